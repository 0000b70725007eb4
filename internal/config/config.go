package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/maxwellt7/ai-hypnosis-generator/pkg/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the API server configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	SecretsDir string `envconfig:"SECRETS_DIR" default:"/run/secrets"`

	// PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	DBPassword    string

	// Redis: tokens, creation limiter, auth rate limiting
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string

	// Auth
	JWTSecret       string
	PasswordPepper  string
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TOKEN_TTL" default:"168h"`
	AuthRateLimit   int           `envconfig:"AUTH_RATE_LIMIT_PER_MINUTE" default:"10"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// RabbitMQ: notification e-mails
	RabbitMQURL    string `envconfig:"RABBITMQ_URL" required:"true"`
	EmailQueueName string `envconfig:"EMAIL_QUEUE_NAME" default:"email_notifications"`
	AdminEmail     string `envconfig:"ADMIN_EMAIL"`
	AppBaseURL     string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`

	// Outbound generator
	GeneratorWebhookURL string        `envconfig:"GENERATOR_WEBHOOK_URL"`
	GeneratorTimeout    time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"30s"`
	PublicBaseURL       string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	GeneratorAPIKey     string

	// Inbound generator webhooks
	WebhookProviders string        `envconfig:"WEBHOOK_PROVIDERS" default:"n8n"`
	WebhookTimeout   time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	WebhookSecret    string

	// Journey creation limits
	JourneyCreateLimit  int           `envconfig:"JOURNEY_CREATE_LIMIT" default:"3"`
	JourneyCreateWindow time.Duration `envconfig:"JOURNEY_CREATE_WINDOW" default:"1h"`

	// Calendar used for streaks
	StatsTimezone string `envconfig:"STATS_TIMEZONE" default:"UTC"`

	// User context retrieval (optional)
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	PineconeIndexHost  string `envconfig:"PINECONE_INDEX_HOST"`
	ContextTopK        int    `envconfig:"CONTEXT_TOP_K" default:"5"`
	ContextTokenBudget int    `envconfig:"CONTEXT_TOKEN_BUDGET" default:"1500"`
	OpenAIAPIKey       string
	PineconeAPIKey     string

	// Detached tasks
	TaskMaxConcurrent   int           `envconfig:"TASK_MAX_CONCURRENT" default:"32"`
	TaskTimeout         time.Duration `envconfig:"TASK_TIMEOUT" default:"45s"`
	TaskShutdownTimeout time.Duration `envconfig:"TASK_SHUTDOWN_TIMEOUT" default:"20s"`
}

// IsProduction reports whether internal error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GetAllowedOrigins splits CORSAllowedOrigins on commas.
func (c *Config) GetAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// GetWebhookProviders returns the provider names accepted in webhook routes.
func (c *Config) GetWebhookProviders() []string {
	return splitList(c.WebhookProviders)
}

// Location resolves StatsTimezone.
func (c *Config) Location() (*time.Location, error) {
	if c.StatsTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_TIMEZONE %q: %w", c.StatsTimezone, err)
	}
	return loc, nil
}

// PostgresDSN builds the pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// ContextRetrievalEnabled reports whether both OpenAI and Pinecone are configured.
func (c *Config) ContextRetrievalEnabled() bool {
	return c.OpenAIAPIKey != "" && c.PineconeAPIKey != "" && c.PineconeIndexHost != ""
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig reads an optional .env file, the environment and the secret files.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: could not load %s: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: error checking %s: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}
	if err := cfg.loadSecrets(); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.JourneyCreateLimit <= 0 {
		return nil, fmt.Errorf("JOURNEY_CREATE_LIMIT must be positive, got %d", cfg.JourneyCreateLimit)
	}
	return &cfg, nil
}

func (c *Config) loadSecrets() error {
	required := []struct {
		name string
		dst  *string
	}{
		{"db_password", &c.DBPassword},
		{"jwt_secret", &c.JWTSecret},
		{"password_pepper", &c.PasswordPepper},
		{"webhook_secret", &c.WebhookSecret},
	}
	for _, s := range required {
		v, err := utils.ReadSecret(c.SecretsDir, s.name)
		if err != nil {
			return err
		}
		*s.dst = v
	}

	c.RedisPassword = utils.ReadOptionalSecret(c.SecretsDir, "redis_password")
	c.GeneratorAPIKey = utils.ReadOptionalSecret(c.SecretsDir, "generator_api_key")
	c.OpenAIAPIKey = utils.ReadOptionalSecret(c.SecretsDir, "openai_api_key")
	c.PineconeAPIKey = utils.ReadOptionalSecret(c.SecretsDir, "pinecone_api_key")
	return nil
}
