package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		CORSOrigins     []string
		DisableReqLogs  bool
	}

	AuthConfig struct {
		JWTPublicKey      string // PEM encoded RSA key published by the identity provider
		JWTSecret         string // HS256, local & test only
		Issuer            string
		AuthorizedParties []string
		Leeway            time.Duration
	}

	ServiceConfig struct {
		BaseURL      string
		APIKey       string
		APIKeyHeader string // defaults to "Authorization: Bearer <key>" when empty
	}

	ServicesConfig struct {
		Timeout time.Duration
		Company ServiceConfig
		Quiz    ServiceConfig
		Publish ServiceConfig
		Result  ServiceConfig
		Plan    ServiceConfig
		Email   ServiceConfig
	}

	EmailConfig struct {
		Provider       string // console | sendgrid | service
		SendgridAPIKey string
	}

	CacheConfig struct {
		RedisAddr      string
		RedisPassword  string
		RedisDB        int
		LRUSize        int
		PlanTTL        time.Duration
		PublicationTTL time.Duration
	}

	RateLimitConfig struct {
		RPS   float64
		Burst int
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		FrontendBaseURL  string
		SupportEmail     string
		DefaultFromEmail string
		RollbarToken     string

		Server    ServerConfig
		Auth      AuthConfig
		Services  ServicesConfig
		Email     EmailConfig
		Cache     CacheConfig
		RateLimit RateLimitConfig
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if present) and the environment.
// Environment variables are prefixed with the current env, e.g. `PROD_SERVICES_QUIZ_BASEURL`.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.Set("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	conf.Server.CORSOrigins = splitList(conf.Server.CORSOrigins)
	conf.Auth.AuthorizedParties = splitList(conf.Auth.AuthorizedParties)
	return conf
}

// splitList accepts list values separated by commas and/or spaces, e.g. `a.test, b.test`.
func splitList(values []string) []string {
	list := make([]string, 0, len(values))
	for _, val := range values {
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}

// every key needs a default for AutomaticEnv to pick it up during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Quizly")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("supportEmail", "support@localhost")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.corsOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("auth.jwtPublicKey", "")
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.authorizedParties", []string{})
	v.SetDefault("auth.leeway", 5*time.Second)

	v.SetDefault("services.timeout", 15*time.Second)
	for _, svc := range []string{"company", "quiz", "publish", "result", "plan", "email"} {
		v.SetDefault("services."+svc+".baseURL", "")
		v.SetDefault("services."+svc+".apiKey", "")
		v.SetDefault("services."+svc+".apiKeyHeader", "")
	}

	v.SetDefault("email.provider", "console")
	v.SetDefault("email.sendgridAPIKey", "")

	v.SetDefault("cache.redisAddr", "")
	v.SetDefault("cache.redisPassword", "")
	v.SetDefault("cache.redisDB", 0)
	v.SetDefault("cache.lruSize", 4096)
	v.SetDefault("cache.planTTL", 5*time.Minute)
	v.SetDefault("cache.publicationTTL", time.Minute)

	v.SetDefault("rateLimit.rps", 5.0)
	v.SetDefault("rateLimit.burst", 20)
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
