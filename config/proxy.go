package config

import (
	"os"
	"strings"
)

// LoadTrustedProxies returns the reverse proxies gin should trust.
func LoadTrustedProxies() []string {
	proxiesEnv := os.Getenv("TRUSTED_PROXIES")
	if proxiesEnv == "" {
		// default: loopback only
		return []string{"127.0.0.1"}
	}
	return strings.Split(proxiesEnv, ",")
}
