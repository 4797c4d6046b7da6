package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	BackendDocker = "docker"
	BackendRemote = "remote"
)

type Config struct {
	Port     string
	LogLevel string

	// Backend selects the container backend: "docker" drives a local
	// engine, "remote" proxies every call to a peer node.
	Backend        string
	DockerHost     string
	DockerRegistry string
	RemoteURL      string

	// LDAP settings; identity routes are only mounted when LdapURL is set.
	LdapURL          string
	LdapBindDN       string
	LdapBindPassword string
	LdapUserBaseDN   string
	LdapGroupBaseDN  string
	LdapReadOnly     bool
}

// Load loads configuration from environment variables
// Automatically loads .env file if present
func Load() *Config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Backend:        getEnv("BACKEND", BackendDocker),
		DockerHost:     getEnv("DOCKER_HOST", ""),
		DockerRegistry: getEnv("DOCKER_REGISTRY", ""),
		RemoteURL:      getEnv("REMOTE_URL", ""),

		LdapURL:          getEnv("LDAP_URL", ""),
		LdapBindDN:       getEnv("LDAP_BIND_DN", ""),
		LdapBindPassword: getEnv("LDAP_BIND_PASSWORD", ""),
		LdapUserBaseDN:   getEnv("LDAP_USER_BASE_DN", ""),
		LdapGroupBaseDN:  getEnv("LDAP_GROUP_BASE_DN", ""),
		LdapReadOnly:     getEnv("LDAP_READ_ONLY", "false") == "true",
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
