package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName              string
		Env                  string
		Build                string
		Debug                bool
		TestMode             bool
		SecretKey            string
		FrontendBaseURL      string
		FacilityID           string
		RollbarToken         string
		SendgridApiKey       string
		PasswordResetTimeout time.Duration
		HousekeepingSchedule string
		defaultFromEmail     string
		defaultFromEmailName string
		Server               ServerConfig
		Database             DatabaseConfig
		Push                 PushConfig
		Redis                RedisConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugPort                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 float64
		RateBurst                 int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	PushConfig struct {
		URL      string
		APIKey   string
		Function string
		Timeout  time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.defaultFromEmailName, Address: c.defaultFromEmail}
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (s ServerConfig) DebugAddress() string {
	return net.JoinHostPort(s.Host, s.DebugPort)
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the configuration of the current ENV (DEV by default).
// Values are read from `<ENV>_<KEY>` environment variables, optionally preloaded from config/.env.<env>.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Kita")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "x8#kq2)v1m^z@w!c9t$e7r-h5n(p3b&j0s%u4y+a6d=g")
	conf.SetDefault("frontendBaseURL", "http://localhost:5173")
	conf.SetDefault("facilityID", "00000000-0000-0000-0000-000000000001")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("defaultFromEmailName", "Kita")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("housekeepingSchedule", "15 2 * * *")
	conf.SetDefault("server_host", "")
	conf.SetDefault("server_port", "8000")
	conf.SetDefault("server_debugPort", "4000")
	conf.SetDefault("server_readTimeout", 5*time.Second)
	conf.SetDefault("server_writeTimeout", 5*time.Second)
	conf.SetDefault("server_shutdownTimeout", 5*time.Second)
	conf.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server_jwtRefreshExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("server_rateLimit", 1.0)
	conf.SetDefault("server_rateBurst", 5)
	conf.SetDefault("database_engine", "postgres")
	conf.SetDefault("database_host", "localhost")
	conf.SetDefault("database_port", "5432")
	conf.SetDefault("database_name", "kita")
	conf.SetDefault("database_user", "kita")
	conf.SetDefault("database_password", "kita")
	conf.SetDefault("database_adminUser", "postgres")
	conf.SetDefault("database_adminPassword", "postgres")
	conf.SetDefault("database_disableTLS", true)
	conf.SetDefault("push_function", "send-push-notification")
	conf.SetDefault("push_timeout", 30*time.Second)
	conf.SetDefault("redis_db", 0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	case "QA", "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:              conf.GetString("appName"),
		Env:                  env,
		Build:                conf.GetString("build"),
		Debug:                conf.GetBool("debug"),
		TestMode:             conf.GetBool("testMode"),
		SecretKey:            conf.GetString("secretKey"),
		FrontendBaseURL:      conf.GetString("frontendBaseURL"),
		FacilityID:           conf.GetString("facilityID"),
		RollbarToken:         conf.GetString("rollbarToken"),
		SendgridApiKey:       conf.GetString("sendgridApiKey"),
		PasswordResetTimeout: conf.GetDuration("passwordResetTimeoutDelta"),
		HousekeepingSchedule: conf.GetString("housekeepingSchedule"),
		defaultFromEmail:     conf.GetString("defaultFromEmail"),
		defaultFromEmailName: conf.GetString("defaultFromEmailName"),
		Server: ServerConfig{
			Host:                      conf.GetString("server_host"),
			Port:                      conf.GetString("server_port"),
			DebugPort:                 conf.GetString("server_debugPort"),
			ReadTimeout:               conf.GetDuration("server_readTimeout"),
			WriteTimeout:              conf.GetDuration("server_writeTimeout"),
			ShutdownTimeout:           conf.GetDuration("server_shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server_jwtRefreshExpirationDelta"),
			RateLimit:                 conf.GetFloat64("server_rateLimit"),
			RateBurst:                 conf.GetInt("server_rateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database_engine"),
			Host:          conf.GetString("database_host"),
			Port:          conf.GetString("database_port"),
			Name:          conf.GetString("database_name"),
			User:          conf.GetString("database_user"),
			Password:      conf.GetString("database_password"),
			AdminUser:     conf.GetString("database_adminUser"),
			AdminPassword: conf.GetString("database_adminPassword"),
			DisableTLS:    conf.GetBool("database_disableTLS"),
		},
		Push: PushConfig{
			URL:      conf.GetString("push_url"),
			APIKey:   conf.GetString("push_apiKey"),
			Function: conf.GetString("push_function"),
			Timeout:  conf.GetDuration("push_timeout"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redis_addr"),
			Password: conf.GetString("redis_password"),
			DB:       conf.GetInt("redis_db"),
		},
	}
}

// NewTestConfig returns a TEST configuration that does not depend on the environment.
func NewTestConfig() *Config {
	return &Config{
		AppName:              "Kita",
		Env:                  "TEST",
		Build:                "test",
		TestMode:             true,
		SecretKey:            "test-secret",
		FrontendBaseURL:      "http://localhost:5173",
		FacilityID:           "00000000-0000-0000-0000-000000000001",
		PasswordResetTimeout: 3 * 24 * time.Hour,
		HousekeepingSchedule: "15 2 * * *",
		defaultFromEmail:     "noreply@localhost",
		defaultFromEmailName: "Kita",
		Server: ServerConfig{
			Port:                      "8000",
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 30 * 24 * time.Hour,
			RateLimit:                 1,
			RateBurst:                 5,
		},
	}
}
