package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port    int    `mapstructure:"port"`
		OpsPort int    `mapstructure:"ops_port"`
		Mode    string `mapstructure:"mode"`

		// пустой список разрешает любой Origin без credentials
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"server"`
	DB struct {
		Driver       string `mapstructure:"driver"`
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"name"`
		SSLMode      string `mapstructure:"sslmode"`
		Path         string `mapstructure:"path"` // файл SQLite при driver=sqlite
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		Migrate      bool   `mapstructure:"migrate"`
	} `mapstructure:"db"`
	JWT struct {
		SecretKey string `mapstructure:"secret_key"`
		ExpiresIn int    `mapstructure:"expires_in"` // в часах
	} `mapstructure:"jwt"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	RateLimit struct {
		Requests int           `mapstructure:"requests"`
		Window   time.Duration `mapstructure:"window"`
	} `mapstructure:"rate_limit"`
	Log struct {
		Mode string `mapstructure:"mode"`
	} `mapstructure:"log"`
	App struct {
		PublicBaseURL string `mapstructure:"public_base_url"`
		DefaultLocale string `mapstructure:"default_locale"`
	} `mapstructure:"app"`
	Cards struct {
		DefaultPerPage int `mapstructure:"default_per_page"`
		MaxPerPage     int `mapstructure:"max_per_page"`
	} `mapstructure:"cards"`
}

// NewConfig создает новый экземпляр конфигурации.
// Порядок источников: значения по умолчанию, config.yaml (если есть), .env, переменные окружения.
func NewConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	// SERVER_PORT -> server.port, DB_NAME -> db.name и т.д.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ops_port", 9090)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allow_origins", []string{})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "bizcard_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "bizcard.db")
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.max_open_conns", 100)
	v.SetDefault("db.migrate", true)

	v.SetDefault("jwt.secret_key", "your-secret-key-here")
	v.SetDefault("jwt.expires_in", 24)

	// пустой хост отключает отправку писем
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@bizcard.local")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("log.mode", "development")

	v.SetDefault("app.public_base_url", "http://localhost:8080")
	v.SetDefault("app.default_locale", "en")

	v.SetDefault("cards.default_per_page", 15)
	v.SetDefault("cards.max_per_page", 100)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("неверный формат порта сервера: %d", c.Server.Port)
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("неподдерживаемый драйвер базы данных: %q", c.DB.Driver)
	}
	if c.JWT.ExpiresIn <= 0 {
		return fmt.Errorf("неверный формат времени жизни JWT: %d", c.JWT.ExpiresIn)
	}
	if c.Cards.DefaultPerPage <= 0 || c.Cards.MaxPerPage < c.Cards.DefaultPerPage {
		return fmt.Errorf("неверные настройки пагинации: default=%d max=%d", c.Cards.DefaultPerPage, c.Cards.MaxPerPage)
	}
	return nil
}

// PostgresDSN строка подключения для gorm
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}

// PostgresURL строка подключения в формате URL для golang-migrate
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}
