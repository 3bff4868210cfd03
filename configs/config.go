package config

import "os"

type Config struct {
	PostgresURI    string
	SecretKey      string
	CookieName     string
	DefaultNetwork string
	Webhooks       map[string]string
}

func LoadConfig() *Config {
	webhooks := map[string]string{}
	for network, key := range map[string]string{
		"linkedin":  "WEBHOOK_URL_LINKEDIN",
		"twitter":   "WEBHOOK_URL_TWITTER",
		"instagram": "WEBHOOK_URL_INSTAGRAM",
		"facebook":  "WEBHOOK_URL_FACEBOOK",
	} {
		if url := os.Getenv(key); url != "" {
			webhooks[network] = url
		}
	}

	return &Config{
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		SecretKey:      getEnv("SECRET_KEY", ""),
		CookieName:     getEnv("COOKIE_NAME", "user"),
		DefaultNetwork: getEnv("DEFAULT_NETWORK", "linkedin"),
		Webhooks:       webhooks,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
