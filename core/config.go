package core

import (
	"log"
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
		Address                   string
		DebugAddress              string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only; ":memory:" is allowed
	}

	EmailConfig struct {
		Provider       string // console | sendgrid | resend
		SendgridApiKey string
		ResendApiKey   string
	}

	DashboardConfig struct {
		APIBaseURL     string
		Token          string
		AckDuration    time.Duration
		ReloadDebounce time.Duration
		PollInterval   time.Duration
		// SessionFile is where the dashboard keeps the session between runs.
		SessionFile string
	}

	Config struct {
		Env      string
		Build    string
		Debug    bool
		TestMode bool

		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server    ServerConfig
		Database  DatabaseConfig
		Email     EmailConfig
		Dashboard DashboardConfig

		defaultFromEmail string
	}
)

func (dbc DatabaseConfig) Address() string {
	if dbc.Port == 0 {
		return dbc.Host
	}
	return dbc.Host + ":" + strconv.Itoa(dbc.Port)
}

// DefaultFromEmail parses the configured sender address, falling back to its raw value.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// NewConfig reads the configuration from defaults, the optional `.env.<env>` file,
// the optional CONFIG_FILE (yaml) and the environment, in increasing priority.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "NexusSync")
	v.SetDefault("secretKey", "k7#v9-qe)nb$+21=dz&uo4h3(x!p)#*c8(#yg2h^$cegm5emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "NexusSync <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "nexussync")
	v.SetDefault("database.user", "nexussync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "nexussync.db")

	v.SetDefault("email.provider", "console")
	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.resendApiKey", "")

	v.SetDefault("dashboard.apiBaseURL", "http://localhost:8000")
	v.SetDefault("dashboard.token", "")
	v.SetDefault("dashboard.ackDuration", 400*time.Millisecond)
	v.SetDefault("dashboard.reloadDebounce", 250*time.Millisecond)
	v.SetDefault("dashboard.pollInterval", 30*time.Second)
	v.SetDefault("dashboard.sessionFile", defaultSessionFile())

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database.path", ":memory:")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatalf("config.ReadInConfig(%s): %v", cfgFile, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Email: EmailConfig{
			Provider:       v.GetString("email.provider"),
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
			ResendApiKey:   v.GetString("email.resendApiKey"),
		},
		Dashboard: DashboardConfig{
			APIBaseURL:     v.GetString("dashboard.apiBaseURL"),
			Token:          v.GetString("dashboard.token"),
			AckDuration:    v.GetDuration("dashboard.ackDuration"),
			ReloadDebounce: v.GetDuration("dashboard.reloadDebounce"),
			PollInterval:   v.GetDuration("dashboard.pollInterval"),
			SessionFile:    v.GetString("dashboard.sessionFile"),
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nexussync", "session.json")
}

// NewTestConfig returns the configuration used by tests: sqlite in memory, no outputs.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "NexusSync",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		defaultFromEmail:          "NexusSync <noreply@localhost>",
		Server: ServerConfig{
			Host:                      "localhost",
			DisableReqLogs:            true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "sqlite", Path: ":memory:"},
		Email:    EmailConfig{Provider: "console"},
		Dashboard: DashboardConfig{
			AckDuration:    400 * time.Millisecond,
			ReloadDebounce: 10 * time.Millisecond,
		},
	}
}
