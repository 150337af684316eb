package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"

	AlgHS256 = "HS256"
	AlgRS256 = "RS256"
)

type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   HTTPServerConfig   `yaml:"http_server"`
	Storage      StorageConfig      `yaml:"storage"`
	Session      SessionConfig      `yaml:"session"`
	Verification VerificationConfig `yaml:"verification"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Redis        RedisConfig        `yaml:"redis"`
	Mail         MailConfig         `yaml:"mail"`
	S3           S3Config           `yaml:"s3"`
	Vault        VaultConfig        `yaml:"vault"`
}

type HTTPServerConfig struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4000"`
	Timeout        time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
	// forwarding headers are honored only from these addresses or CIDR ranges
	TrustedProxies []string `yaml:"trusted_proxies" env:"HTTP_TRUSTED_PROXIES"`
}

type StorageConfig struct {
	Backend  string         `yaml:"backend" env:"STORAGE_BACKEND" env-default:"mongo"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGODB_DATABASE" env-default:"bookmarker"`
}

type PostgresConfig struct {
	ConnString string `yaml:"conn_string" env:"POSTGRES_CONN_STRING"`
}

type SessionConfig struct {
	Algorithm      string        `yaml:"algorithm" env:"SESSION_ALGORITHM" env-default:"HS256"`
	Secret         string        `yaml:"secret" env:"SESSION_SECRET"`
	PrivateKeyPath string        `yaml:"private_key_path" env:"SESSION_PRIVATE_KEY_PATH"`
	KeyID          string        `yaml:"key_id" env-default:"bookmarker-1"`
	TTL            time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"2h"`
}

type VerificationConfig struct {
	TokenTTL     time.Duration `yaml:"token_ttl" env:"EMAIL_VERIFICATION_TOKEN_EXPIRATION" env-default:"24h"`
	URL          string        `yaml:"url" env:"EMAIL_VERIFICATION_URL" env-default:"http://localhost:3000/verify-email"`
	ReapInterval time.Duration `yaml:"reap_interval" env-default:"1m"`
}

type RateLimitConfig struct {
	Backend       string    `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"memory"`
	Verification  LimitRule `yaml:"verification" env-prefix:"RATE_LIMIT_VERIFICATION_"`
	PasswordReset LimitRule `yaml:"password_reset" env-prefix:"RATE_LIMIT_PASSWORD_RESET_"`
}

type LimitRule struct {
	Max    int           `yaml:"max" env:"MAX"`
	Window time.Duration `yaml:"window" env:"WINDOW"`
}

type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type MailConfig struct {
	Host         string `yaml:"host" env:"MAIL_HOST" env-default:"localhost"`
	Port         int    `yaml:"port" env:"MAIL_PORT" env-default:"587"`
	Username     string `yaml:"username" env:"MAIL_USERNAME"`
	Password     string `yaml:"password" env:"MAIL_PASSWORD"`
	From         string `yaml:"from" env:"MAIL_FROM" env-default:"no-reply@bookmarker.local"`
	TLS          bool   `yaml:"tls" env:"MAIL_TLS"`
	TemplatePath string `yaml:"template_path" env:"MAIL_TEMPLATE_PATH" env-default:"mail/template.json"`
}

type S3Config struct {
	Region       string        `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Bucket       string        `yaml:"bucket" env:"S3_BUCKET"`
	BaseEndpoint string        `yaml:"base_endpoint" env:"S3_BASE_ENDPOINT"`
	AccessKey    string        `yaml:"access_key" env:"AWS_ACCESS_KEY_ID"`
	SecretKey    string        `yaml:"secret_key" env:"AWS_SECRET_ACCESS_KEY"`
	PresignTTL   time.Duration `yaml:"presign_ttl" env-default:"15m"`
}

type VaultConfig struct {
	Enabled  bool   `yaml:"enabled" env:"VAULT_ENABLED"`
	Address  string `yaml:"address" env:"VAULT_ADDR" env-default:"http://vault:8200"`
	Token    string `yaml:"token" env:"VAULT_TOKEN"`
	RoleID   string `yaml:"role_id" env:"VAULT_ROLE_ID"`
	SecretID string `yaml:"secret_id" env:"VAULT_SECRET_ID"`
	// role and secret ids are read from these files when not set directly
	RoleIDFile   string `yaml:"role_id_file" env:"VAULT_ROLE_ID_FILE" env-default:"./secrets/role_id.txt"`
	SecretIDFile string `yaml:"secret_id_file" env:"VAULT_SECRET_ID_FILE" env-default:"./secrets/secret_id.txt"`
	Mount        string `yaml:"mount" env-default:"secret"`
	Path         string `yaml:"path" env-default:"bookmarker"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(path string) *Config {
	if path == "" {
		panic("config path is empty")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config path does not exist: " + path)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic(err)
	}
	cfg.applyDefaults()

	return &cfg
}

// applyDefaults fills rate limit rules cleanenv cannot default inside prefixed structs.
func (c *Config) applyDefaults() {
	if c.RateLimit.Verification.Max == 0 {
		c.RateLimit.Verification.Max = 2
	}
	if c.RateLimit.Verification.Window == 0 {
		c.RateLimit.Verification.Window = 20 * time.Second
	}
	if c.RateLimit.PasswordReset.Max == 0 {
		c.RateLimit.PasswordReset.Max = 1
	}
	if c.RateLimit.PasswordReset.Window == 0 {
		c.RateLimit.PasswordReset.Window = 10 * time.Second
	}
}

// Priority: flag > env > default
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
