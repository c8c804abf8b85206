package config

import (
	"os"
	"strings"
	"time"

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
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	Apify     ApifyConfig
	Claude    ClaudeConfig
	AWS       AWSConfig
	Google    GoogleOAuthConfig
	Microsoft MicrosoftOAuthConfig
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
	ScrapePerHour  int
	AnalyzePerHour int
	EmailPerHour   int
}

type WorkerConfig struct {
	Concurrency  int
	ChunkSize    int
	PollInterval time.Duration
	PollTimeout  time.Duration
	StaleAfter   time.Duration
}

type ApifyConfig struct {
	Token          string
	BaseURL        string
	ProfileActorID string
	PostActorID    string
}

type ClaudeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SenderEmail     string
	SenderName      string
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type MicrosoftOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Tenant       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("APIFY_TOKEN")
	readSecret("ANTHROPIC_API_KEY")
	readSecret("AWS_SECRET_ACCESS_KEY")
	readSecret("GOOGLE_CLIENT_SECRET")
	readSecret("MICROSOFT_CLIENT_SECRET")

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
	_ = viper.BindEnv("ratelimit.scrape_per_hour", "RATELIMIT_SCRAPE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.analyze_per_hour", "RATELIMIT_ANALYZE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.email_per_hour", "RATELIMIT_EMAIL_PER_HOUR")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = viper.BindEnv("worker.chunk_size", "WORKER_CHUNK_SIZE")
	_ = viper.BindEnv("worker.poll_interval", "WORKER_POLL_INTERVAL")
	_ = viper.BindEnv("worker.poll_timeout", "WORKER_POLL_TIMEOUT")
	_ = viper.BindEnv("worker.stale_after", "WORKER_STALE_AFTER")
	_ = viper.BindEnv("apify.token", "APIFY_TOKEN")
	_ = viper.BindEnv("apify.base_url", "APIFY_BASE_URL")
	_ = viper.BindEnv("apify.profile_actor_id", "APIFY_PROFILE_ACTOR_ID")
	_ = viper.BindEnv("apify.post_actor_id", "APIFY_POST_ACTOR_ID")
	_ = viper.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = viper.BindEnv("claude.base_url", "ANTHROPIC_BASE_URL")
	_ = viper.BindEnv("claude.model", "CLAUDE_MODEL")
	_ = viper.BindEnv("claude.max_tokens", "CLAUDE_MAX_TOKENS")
	_ = viper.BindEnv("aws.region", "AWS_REGION")
	_ = viper.BindEnv("aws.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = viper.BindEnv("aws.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("aws.sender_email", "SES_SENDER_EMAIL")
	_ = viper.BindEnv("aws.sender_name", "SES_SENDER_NAME")
	_ = viper.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	_ = viper.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	_ = viper.BindEnv("google.redirect_uri", "GOOGLE_REDIRECT_URI")
	_ = viper.BindEnv("microsoft.client_id", "MICROSOFT_CLIENT_ID")
	_ = viper.BindEnv("microsoft.client_secret", "MICROSOFT_CLIENT_SECRET")
	_ = viper.BindEnv("microsoft.redirect_uri", "MICROSOFT_REDIRECT_URI")
	_ = viper.BindEnv("microsoft.tenant", "MICROSOFT_TENANT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.scrape_per_hour", 20)
	viper.SetDefault("ratelimit.analyze_per_hour", 60)
	viper.SetDefault("ratelimit.email_per_hour", 100)

	// Worker defaults
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.chunk_size", 50)
	viper.SetDefault("worker.poll_interval", "5s")
	viper.SetDefault("worker.poll_timeout", "5m")
	viper.SetDefault("worker.stale_after", "30m")

	// Apify defaults
	viper.SetDefault("apify.base_url", "https://api.apify.com")

	// Claude defaults
	viper.SetDefault("claude.base_url", "https://api.anthropic.com")
	viper.SetDefault("claude.model", "claude-3-5-haiku-latest")
	viper.SetDefault("claude.max_tokens", 1024)

	// AWS defaults
	viper.SetDefault("aws.region", "us-east-1")

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
			ScrapePerHour:  viper.GetInt("ratelimit.scrape_per_hour"),
			AnalyzePerHour: viper.GetInt("ratelimit.analyze_per_hour"),
			EmailPerHour:   viper.GetInt("ratelimit.email_per_hour"),
		},
		Worker: WorkerConfig{
			Concurrency:  viper.GetInt("worker.concurrency"),
			ChunkSize:    viper.GetInt("worker.chunk_size"),
			PollInterval: viper.GetDuration("worker.poll_interval"),
			PollTimeout:  viper.GetDuration("worker.poll_timeout"),
			StaleAfter:   viper.GetDuration("worker.stale_after"),
		},
		Apify: ApifyConfig{
			Token:          viper.GetString("apify.token"),
			BaseURL:        viper.GetString("apify.base_url"),
			ProfileActorID: viper.GetString("apify.profile_actor_id"),
			PostActorID:    viper.GetString("apify.post_actor_id"),
		},
		Claude: ClaudeConfig{
			APIKey:    viper.GetString("claude.api_key"),
			BaseURL:   viper.GetString("claude.base_url"),
			Model:     viper.GetString("claude.model"),
			MaxTokens: viper.GetInt("claude.max_tokens"),
		},
		AWS: AWSConfig{
			Region:          viper.GetString("aws.region"),
			AccessKeyID:     viper.GetString("aws.access_key_id"),
			SecretAccessKey: viper.GetString("aws.secret_access_key"),
			SenderEmail:     viper.GetString("aws.sender_email"),
			SenderName:      viper.GetString("aws.sender_name"),
		},
		Google: GoogleOAuthConfig{
			ClientID:     viper.GetString("google.client_id"),
			ClientSecret: viper.GetString("google.client_secret"),
			RedirectURI:  viper.GetString("google.redirect_uri"),
		},
		Microsoft: MicrosoftOAuthConfig{
			ClientID:     viper.GetString("microsoft.client_id"),
			ClientSecret: viper.GetString("microsoft.client_secret"),
			RedirectURI:  viper.GetString("microsoft.redirect_uri"),
			Tenant:       viper.GetString("microsoft.tenant"),
		},
	}

	return cfg, nil
}
