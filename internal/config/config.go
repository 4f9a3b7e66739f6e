package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr      string `yaml:"http_addr"`
	PublicBaseURL string `yaml:"public_base_url"`
	LogLevel      string `yaml:"log_level"`

	CRDBDSN   string `yaml:"crdb_dsn"`
	MongoURI  string `yaml:"mongo_uri"`
	MongoDB   string `yaml:"mongo_db"`
	RedisAddr string `yaml:"redis_addr"`
	RabbitURL string `yaml:"rabbit_url"`

	JWTSecret    string `yaml:"jwt_secret"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	TicketStorage string   `yaml:"ticket_storage"`
	TicketsDir    string   `yaml:"tickets_dir"`
	S3            S3Config `yaml:"s3"`

	Mail MailConfig `yaml:"mail"`

	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	DeliveryTimeout    time.Duration `yaml:"delivery_timeout"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MailConfig struct {
	MailerSendAPIKey string `yaml:"mailersend_api_key"`
	FromEmail        string `yaml:"from_email"`
	FromName         string `yaml:"from_name"`
}

const (
	TicketStorageLocal = "local"
	TicketStorageS3    = "s3"
)

func Default() *Config {
	return &Config{
		HTTPAddr:           ":8080",
		PublicBaseURL:      "http://localhost:8080",
		LogLevel:           "info",
		MongoDB:            "bookings",
		TicketStorage:      TicketStorageLocal,
		TicketsDir:         "tickets",
		Mail:               MailConfig{FromName: "Bookings"},
		IdempotencyTTL:     24 * time.Hour,
		RateLimitPerMinute: 60,
		DeliveryTimeout:    10 * time.Second,
	}
}

// Load builds the config from defaults, an optional YAML file named by
// CONFIG_FILE, and finally environment variables (including .env).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.CRDBDSN, "CRDB_DSN")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDB, "MONGO_DB")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RabbitURL, "RABBIT_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.TicketStorage, "TICKET_STORAGE")
	setString(&cfg.TicketsDir, "TICKETS_DIR")
	setString(&cfg.S3.Bucket, "S3_BUCKET")
	setString(&cfg.S3.Region, "S3_REGION")
	setString(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&cfg.S3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	setString(&cfg.Mail.MailerSendAPIKey, "MAILERSEND_API_KEY")
	setString(&cfg.Mail.FromEmail, "MAIL_FROM_EMAIL")
	setString(&cfg.Mail.FromName, "MAIL_FROM_NAME")

	if err := setDuration(&cfg.IdempotencyTTL, "IDEMPOTENCY_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.DeliveryTimeout, "DELIVERY_TIMEOUT"); err != nil {
		return err
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "RATE_LIMIT_PER_MINUTE")
		}
		cfg.RateLimitPerMinute = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.TicketStorage {
	case TicketStorageLocal:
	case TicketStorageS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required when TICKET_STORAGE=s3")
		}
	default:
		return errors.Newf("unknown TICKET_STORAGE %q", c.TicketStorage)
	}
	if c.PublicBaseURL == "" {
		return errors.New("PUBLIC_BASE_URL is required")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.Wrap(err, key)
	}
	*dst = d
	return nil
}
