package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Groq       GroqConfig
	Runway     RunwayConfig
	Render     RenderConfig
	R2         R2Config
	Zitadel    ZitadelConfig
	Gateway    GatewayConfig
	Generation GenerationConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ClassifyPerMin    int
	GenerationPerHour int
}

// GroqConfig configures the vision model used for room classification.
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// RunwayConfig configures the external image-to-video provider.
type RunwayConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// RenderConfig points at the ffmpeg composition microservice.
type RenderConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type GatewayConfig struct {
	Enabled bool
}

// GenerationConfig tunes the per-job orchestration.
type GenerationConfig struct {
	WorkerPool        int     // concurrent room units per job; sized to the provider's concurrent-request ceiling
	UnitTimeout       int     // hard wall-clock seconds per executor attempt
	MaxAttempts       int     // provider attempts per unit before the unit fails
	BackoffBase       int     // milliseconds, doubled per attempt
	BackoffCap        int     // milliseconds
	PollInterval      int     // seconds between provider status polls
	PerUnitSeconds    int     // coarse ETA budget per non-terminal unit; a heuristic, not an SLA
	MinSuccessRooms   int     // minimum successful units for a partial-success completion
	TransitionSeconds float64 // per-transition overhead added to the final duration
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("GROQ_API_KEY")
	readSecret("RUNWAY_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("ZITADEL_CLIENT_ID")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_MODEL")
	_ = viper.BindEnv("runway.api_key", "RUNWAY_API_KEY")
	_ = viper.BindEnv("runway.base_url", "RUNWAY_BASE_URL")
	_ = viper.BindEnv("runway.model", "RUNWAY_MODEL")
	_ = viper.BindEnv("render.service_url", "RENDER_SERVICE_URL")
	_ = viper.BindEnv("render.timeout", "RENDER_SERVICE_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("zitadel.domain", "ZITADEL_DOMAIN")
	_ = viper.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = viper.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("generation.worker_pool", "GENERATION_WORKER_POOL")
	_ = viper.BindEnv("generation.unit_timeout", "GENERATION_UNIT_TIMEOUT")
	_ = viper.BindEnv("generation.max_attempts", "GENERATION_MAX_ATTEMPTS")
	_ = viper.BindEnv("generation.min_success_rooms", "GENERATION_MIN_SUCCESS_ROOMS")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.classify_per_min", 30)
	viper.SetDefault("ratelimit.generation_per_hour", 5)

	// Groq defaults (vision model for room classification)
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.2-90b-vision-preview")

	// Runway defaults
	viper.SetDefault("runway.base_url", "https://api.dev.runwayml.com")
	viper.SetDefault("runway.model", "gen3a_turbo")

	// Render service defaults
	viper.SetDefault("render.service_url", "http://localhost:8084")
	viper.SetDefault("render.timeout", 300)

	// Generation defaults
	viper.SetDefault("generation.worker_pool", 3)
	viper.SetDefault("generation.unit_timeout", 300)
	viper.SetDefault("generation.max_attempts", 3)
	viper.SetDefault("generation.backoff_base", 2000)
	viper.SetDefault("generation.backoff_cap", 30000)
	viper.SetDefault("generation.poll_interval", 5)
	viper.SetDefault("generation.per_unit_seconds", 90)
	viper.SetDefault("generation.min_success_rooms", 1)
	viper.SetDefault("generation.transition_seconds", 0.5)

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ClassifyPerMin:    viper.GetInt("ratelimit.classify_per_min"),
			GenerationPerHour: viper.GetInt("ratelimit.generation_per_hour"),
		},
		Groq: GroqConfig{
			APIKey:  viper.GetString("groq.api_key"),
			BaseURL: viper.GetString("groq.base_url"),
			Model:   viper.GetString("groq.model"),
		},
		Runway: RunwayConfig{
			APIKey:  viper.GetString("runway.api_key"),
			BaseURL: viper.GetString("runway.base_url"),
			Model:   viper.GetString("runway.model"),
		},
		Render: RenderConfig{
			ServiceURL: viper.GetString("render.service_url"),
			Timeout:    viper.GetInt("render.timeout"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Zitadel: ZitadelConfig{
			Domain:   viper.GetString("zitadel.domain"),
			ClientID: viper.GetString("zitadel.client_id"),
			Issuer:   viper.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		Generation: GenerationConfig{
			WorkerPool:        viper.GetInt("generation.worker_pool"),
			UnitTimeout:       viper.GetInt("generation.unit_timeout"),
			MaxAttempts:       viper.GetInt("generation.max_attempts"),
			BackoffBase:       viper.GetInt("generation.backoff_base"),
			BackoffCap:        viper.GetInt("generation.backoff_cap"),
			PollInterval:      viper.GetInt("generation.poll_interval"),
			PerUnitSeconds:    viper.GetInt("generation.per_unit_seconds"),
			MinSuccessRooms:   viper.GetInt("generation.min_success_rooms"),
			TransitionSeconds: viper.GetFloat64("generation.transition_seconds"),
		},
	}

	return cfg, nil
}
