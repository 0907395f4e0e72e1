package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableCSRF     bool
		DisableReqLogs  bool
	}

	BackendConfig struct {
		// BaseURL is the backend root, with a trailing slash (e.g. http://127.0.0.1:8000/).
		BaseURL string
		// PhotoBaseURL overrides the root used for student photos; defaults to BaseURL.
		PhotoBaseURL string
		Timeout      time.Duration
	}

	StorageConfig struct {
		Engine    string // memory | redis | sqlite | postgres
		DSN       string
		RedisAddr string
		RedisDB   int
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server  ServerConfig
		Backend BackendConfig
		Storage StorageConfig
	}
)

// NewConfig loads the configuration from defaults, the environment and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Student Portal")
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("defaultFromEmail", "Student Portal <noreply@localhost>")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("server.address", ":3000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.disableCSRF", false)
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("backend.baseURL", "http://127.0.0.1:8000/")
	conf.SetDefault("backend.photoBaseURL", "")
	conf.SetDefault("backend.timeout", 30*time.Second)
	conf.SetDefault("storage.engine", "memory")
	conf.SetDefault("storage.dsn", "")
	conf.SetDefault("storage.redisAddr", "localhost:6379")
	conf.SetDefault("storage.redisDB", 0)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	baseURL := conf.GetString("backend.baseURL")
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	photoBaseURL := conf.GetString("backend.photoBaseURL")
	if photoBaseURL == "" {
		photoBaseURL = baseURL
	}

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:         conf.GetString("server.address"),
			Host:            conf.GetString("server.host"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			DisableCSRF:     conf.GetBool("server.disableCSRF"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
		},
		Backend: BackendConfig{
			BaseURL:      baseURL,
			PhotoBaseURL: photoBaseURL,
			Timeout:      conf.GetDuration("backend.timeout"),
		},
		Storage: StorageConfig{
			Engine:    strings.ToLower(conf.GetString("storage.engine")),
			DSN:       conf.GetString("storage.dsn"),
			RedisAddr: conf.GetString("storage.redisAddr"),
			RedisDB:   conf.GetInt("storage.redisDB"),
		},
	}
}

// DefaultFromEmail parses the configured sender address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}
