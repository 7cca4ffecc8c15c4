package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.OpsPort != 9090 {
		t.Fatalf("unexpected ports: %d/%d", cfg.Server.Port, cfg.Server.OpsPort)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DBName != "bizcard_db" {
		t.Fatalf("unexpected db defaults: %+v", cfg.DB)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if cfg.Cards.DefaultPerPage != 15 || cfg.Cards.MaxPerPage != 100 {
		t.Fatalf("unexpected pagination: %+v", cfg.Cards)
	}
	if cfg.SMTP.Host != "" {
		t.Fatalf("smtp must be disabled by default")
	}
}

func TestNewConfigReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "cards_test")
	t.Setenv("APP_DEFAULT_LOCALE", "zh")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Server.Port != 9999 || cfg.DB.Driver != "sqlite" || cfg.DB.DBName != "cards_test" {
		t.Fatalf("environment ignored: port=%d driver=%s name=%s", cfg.Server.Port, cfg.DB.Driver, cfg.DB.DBName)
	}
	if cfg.App.DefaultLocale != "zh" {
		t.Fatalf("unexpected locale: %s", cfg.App.DefaultLocale)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Fatalf("unexpected window: %v", cfg.RateLimit.Window)
	}
}

func TestNewConfigRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":          "mysql",
		"JWT_EXPIRES_IN":     "0",
		"CARDS_MAX_PER_PAGE": "5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := NewConfig(); err == nil {
				t.Fatalf("%s=%s must be rejected", key, value)
			}
		})
	}
}

func TestPostgresConnectionStrings(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Host = "db"
	cfg.DB.Port = 5432
	cfg.DB.User = "app"
	cfg.DB.Password = "pw"
	cfg.DB.DBName = "bizcard_db"
	cfg.DB.SSLMode = "disable"

	if got, want := cfg.PostgresDSN(), "host=db port=5432 user=app password=pw dbname=bizcard_db sslmode=disable"; got != want {
		t.Fatalf("dsn: got=%q want=%q", got, want)
	}
	if got, want := cfg.PostgresURL(), "postgres://app:pw@db:5432/bizcard_db?sslmode=disable"; got != want {
		t.Fatalf("url: got=%q want=%q", got, want)
	}
}
