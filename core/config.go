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
	serverConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	databaseConfig struct {
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

	cloudinaryConfig struct {
		CloudName         string
		UploadPreset      string
		Folder            string
		MaxFileSize       int64
		AllowedFormats    []string
		APIBaseURL        string
		RequestTimeout    time.Duration
		ReadinessInterval time.Duration
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string
		WorkDir          string

		Server     serverConfig
		Database   databaseConfig
		Cloudinary cloudinaryConfig
	}
)

// Address returns the "host:port" of the database server.
func (c databaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the app configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the current env, eg: DEV_CLOUDINARY_CLOUDNAME.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Classroom")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "x8!kq2z$0-vm9r@c4u#1^lp+7wd&n6yh(e3fbt)s5ja=g")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "classroom")
	v.SetDefault("database.user", "classroom")
	v.SetDefault("database.password", "classroom")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("cloudinary.cloudName", "")
	v.SetDefault("cloudinary.uploadPreset", "")
	v.SetDefault("cloudinary.folder", "uploads")
	v.SetDefault("cloudinary.maxFileSize", int64(5_000_000))
	v.SetDefault("cloudinary.allowedFormats", []string{"png", "jpg", "jpeg"})
	v.SetDefault("cloudinary.apiBaseURL", "https://api.cloudinary.com/v1_1")
	v.SetDefault("cloudinary.requestTimeout", 30*time.Second)
	v.SetDefault("cloudinary.readinessInterval", 500*time.Millisecond)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
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
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		WorkDir:          wd,
		Server: serverConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Cloudinary: cloudinaryConfig{
			CloudName:         v.GetString("cloudinary.cloudName"),
			UploadPreset:      v.GetString("cloudinary.uploadPreset"),
			Folder:            v.GetString("cloudinary.folder"),
			MaxFileSize:       v.GetInt64("cloudinary.maxFileSize"),
			AllowedFormats:    v.GetStringSlice("cloudinary.allowedFormats"),
			APIBaseURL:        v.GetString("cloudinary.apiBaseURL"),
			RequestTimeout:    v.GetDuration("cloudinary.requestTimeout"),
			ReadinessInterval: v.GetDuration("cloudinary.readinessInterval"),
		},
	}
}
