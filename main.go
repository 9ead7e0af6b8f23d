package main

import (
	"ResidentPulse-Server/config"
	"ResidentPulse-Server/middleware"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/admin"
	"ResidentPulse-Server/module/ai"
	"ResidentPulse-Server/module/chat"
	"ResidentPulse-Server/module/client"
	"ResidentPulse-Server/module/insights"
	"ResidentPulse-Server/module/member"
	"ResidentPulse-Server/module/notify"
	"ResidentPulse-Server/module/reporting"
	"ResidentPulse-Server/module/round"
	"ResidentPulse-Server/module/scheduler"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	config.InitDB()
	defer config.DB.Close()

	notify.InitService(config.DB)
	log.Println("notification service ready")

	aiClient := ai.NewClient()
	insights.InitService(insights.NewRepository(), aiClient)

	rateStore := buildRateStore()
	chat.InitService(chat.NewRepository(), aiClient, rateStore, notify.Default(), insights.Default())
	log.Println("chat engine ready")

	round.InitService(round.NewRepository(), notify.Default(), insights.Default())
	log.Println("round lifecycle engine ready")

	if c := scheduler.Start(round.Default()); c != nil {
		defer c.Stop()
	}

	router := gin.Default()

	trusted := config.LoadTrustedProxies()
	if err := router.SetTrustedProxies(trusted); err != nil {
		log.Fatalf("failed to set trusted proxies: %v", err)
	}

	router.Use(gin.Recovery())
	router.Use(
		middleware.CorsMiddleware(),
		middleware.RateLimitMiddleware(),
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Board member survey flow. No login: the invitation token and the
	// unguessable session id are the credentials.
	publicGroup := router.Group("/api/public")
	{
		publicGroup.POST("/survey/:token/start", chat.StartSessionHandler)
		publicGroup.POST("/chat/:sessionId/message", chat.PostMessageHandler)
		publicGroup.PUT("/chat/:sessionId/nps", chat.SetNPSHandler)
		publicGroup.POST("/chat/:sessionId/complete", chat.CompleteSessionHandler)
	}

	// Email delivery events from Resend.
	router.POST("/api/webhooks/resend", notify.ResendWebhookHandler)

	protectedGroup := router.Group("/api")
	protectedGroup.Use(middleware.AuthMiddleware())
	{
		// Round lifecycle
		protectedGroup.POST("/rounds/schedule", round.ScheduleRoundsHandler)
		protectedGroup.GET("/rounds", round.ListRoundsHandler)
		protectedGroup.POST("/rounds/:id/launch", round.LaunchRoundHandler)
		protectedGroup.POST("/rounds/:id/close", round.CloseRoundHandler)
		protectedGroup.POST("/rounds/recalculate", round.RecalculateCadenceHandler)
		protectedGroup.POST("/rounds/:id/regenerate-insights", round.RegenerateInsightsHandler)

		// Reporting
		protectedGroup.GET("/reports/rounds/:id", reporting.RoundDashboardHandler)
		protectedGroup.GET("/reports/rounds/:id/word-frequencies", reporting.LiveWordFrequenciesHandler)
		protectedGroup.GET("/reports/trend", reporting.TrendHandler)
		protectedGroup.GET("/reports/managers", reporting.ManagerRollupHandler)
		protectedGroup.GET("/reports/property-types", reporting.PropertyTypeRollupHandler)

		// Board members
		protectedGroup.GET("/members", member.ListMembersHandler)
		protectedGroup.PUT("/members/:id/status", member.UpdateMemberStatusHandler)

		// Tenant settings
		protectedGroup.GET("/settings", client.GetSettingsHandler)
		protectedGroup.PUT("/settings", client.UpdateSettingsHandler)

		// Alerts and session corrections
		protectedGroup.GET("/alerts", admin.ListAlertsHandler)
		protectedGroup.PUT("/alerts/:id/dismiss", admin.DismissAlertHandler)
		protectedGroup.PUT("/alerts/:id/solve", admin.SolveAlertHandler)
		protectedGroup.PUT("/sessions/:id/community", admin.ReassignSessionCommunityHandler)
		protectedGroup.DELETE("/sessions/:id", admin.DeleteSessionHandler)
		protectedGroup.POST("/sessions/:id/finalize", admin.FinalizeSessionHandler)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8001"
	}
	startServer(router, port)
}

// buildRateStore picks the chat rate-limit backend. Redis is only
// required when running more than one instance.
func buildRateStore() chat.RateStore {
	if os.Getenv("CHAT_RATE_STORE") == "redis" {
		if err := config.InitRedis(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		log.Println("chat rate limiting backed by redis")
		return chat.NewRedisStore(config.RedisClient, model.ChatRateLimit, model.ChatRateWindow)
	}
	return chat.NewMemoryStore(model.ChatRateLimit, model.ChatRateWindow)
}

func startServer(router *gin.Engine, port string) {
	log.Printf("starting HTTP server on port %s", port)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	gracefulShutdown(server)
}

func gracefulShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server forced to shut down: %v", err)
	}
	log.Println("server stopped")
}
