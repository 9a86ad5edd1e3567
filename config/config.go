package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL  string
	JWTSecret    []byte
	Port         string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	MediaDir     string
	MediaBaseURL string
	JoinURL      string
	CountryCode  string
}

func LoadConfig() (*Config, error) {
	smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if smtpPort == 0 {
		smtpPort = 587
	}

	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    []byte(os.Getenv("JWT_SECRET")),
		Port:         os.Getenv("PORT"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		MediaDir:     os.Getenv("MEDIA_DIR"),
		MediaBaseURL: os.Getenv("MEDIA_BASE_URL"),
		JoinURL:      os.Getenv("JOIN_URL"),
		CountryCode:  os.Getenv("COUNTRY_CODE"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "./media"
	}
	if cfg.MediaBaseURL == "" {
		cfg.MediaBaseURL = "/media"
	}
	if cfg.JoinURL == "" {
		cfg.JoinURL = "https://bakchod.app/join"
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "91"
	}
	return cfg, nil
}
