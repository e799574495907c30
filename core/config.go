package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		DisableReqLogs            bool
		// RequireAuth turns off token and role checks on the records API when false.
		RequireAuth bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		AppName         string
		SecretKey       string
		Debug           bool
		TestMode        bool
		WorkDir         string
		FrontendBaseURL string
		FromEmail       string
		SendgridApiKey  string
		RollbarToken    string

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DefaultFromEmail parses FromEmail. Falls back to a "noreply" address when it cannot be parsed.
func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.FromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "dev")
	v.SetDefault("appName", "SIG Colegio")
	v.SetDefault("secretKey", "k2v!8s9@l#q0p1x5c4+z7b(e3n6m)r^w&y$t*u=h%j")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("fromEmail", "SIG Colegio <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 10*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("serverDisableReqLogs", false)
	v.SetDefault("serverRequireAuth", true)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "sigcolegio")
	v.SetDefault("dbUser", "sigcolegio")
	v.SetDefault("dbPassword", "sigcolegio")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)
}

// NewConfig loads the app configuration from defaults, config/.env.<env> and the environment.
// Environment variables are prefixed by the upper-cased env name, eg. PROD_DBHOST.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		WorkDir:         wd,
		FrontendBaseURL: strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		FromEmail:       v.GetString("fromEmail"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ReadTimeout:               v.GetDuration("serverReadTimeout"),
			WriteTimeout:              v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
			DisableReqLogs:            v.GetBool("serverDisableReqLogs"),
			RequireAuth:               v.GetBool("serverRequireAuth"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests. Nothing is read from the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Env:             "TEST",
		Build:           "test",
		AppName:         v.GetString("appName"),
		SecretKey:       "secret",
		TestMode:        true,
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		FromEmail:       v.GetString("fromEmail"),
		Server: ServerConfig{
			Host:                      "localhost",
			Port:                      v.GetInt("serverPort"),
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
			DisableReqLogs:            true,
			RequireAuth:               true,
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s debug=%t", c.AppName, c.Build, c.Env, c.Debug)
}
