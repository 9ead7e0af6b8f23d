package middleware

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"ResidentPulse-Server/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims carries the tenant scope for an admin session. Every
// protected route reads client_id from the context set here; repository
// queries always filter on it, so a valid token for tenant A can never
// read tenant B's rows.
type AdminClaims struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// AuthMiddleware validates the admin bearer token (header or cookie) and
// sets client_id / admin_email on the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var authHeader string
		if cookieToken, err := c.Cookie("access_token"); err == nil && cookieToken != "" {
			authHeader = "Bearer " + cookieToken
		} else {
			authHeader = c.GetHeader("Authorization")
		}
		if authHeader == "" {
			sendError(c, http.StatusUnauthorized, "missing credentials")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			sendError(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtSecret(), nil
		})
		if err != nil || !token.Valid {
			log.Printf("token validation failed: %v", err)
			sendError(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			sendError(c, http.StatusUnauthorized, "token expired")
			return
		}
		if claims.ClientID == "" {
			sendError(c, http.StatusUnauthorized, "invalid token claims")
			return
		}

		// Reject tokens for deleted or deactivated tenants.
		var active bool
		if err := config.DB.QueryRow(
			"SELECT active FROM clients WHERE id = ?", claims.ClientID,
		).Scan(&active); err != nil || !active {
			sendError(c, http.StatusUnauthorized, "tenant not found or inactive")
			return
		}

		c.Set("client_id", claims.ClientID)
		c.Set("admin_email", claims.Email)
		c.Next()
	}
}

func sendError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg, "status": code, "success": false})
	c.Abort()
}

// CorsMiddleware allows the dashboard origins configured via
// ALLOWED_ORIGINS (comma separated); dev environments also accept
// localhost with any port.
func CorsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		c.Writer.Header().Add("Vary", "Origin")

		allowed := false
		for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
			if o != "" && origin == strings.TrimSpace(o) {
				allowed = true
				break
			}
		}

		env := strings.ToLower(os.Getenv("ENV"))
		isDev := env == "" || env == "dev" || env == "development"
		isLocal := strings.HasPrefix(origin, "http://localhost:") ||
			strings.HasPrefix(origin, "http://127.0.0.1:")
		if !allowed && isDev && isLocal {
			allowed = true
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
