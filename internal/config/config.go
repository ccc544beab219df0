package config // package config loads application configuration from environment variables

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets that are absent switch the matching
// feature into its local/dev behaviour instead of failing startup.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	StoreBackend string // "mysql" or "memory"
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	DBMaxConns   int    // upper bound on open pool connections

	TokenHashSalt   string   // salt for seller token hashes
	IPHashSalt      string   // salt for client IP hashes
	TurnstileSecret string   // CAPTCHA secret; empty disables verification
	TurnstileURL    string   // CAPTCHA verification endpoint
	AdminEmails     []string // admin allow-list; empty means every caller is admin
	AdminJWTSecret  string   // when set, admin identity comes from a signed assertion
	PublicBaseURL   string   // base URL prefixed to blob keys in public documents
	RabbitURL       string   // broker URL for listing events; empty disables publishing
	AuditLogDir     string   // directory for the rotated listing event audit log
	MetricsEnabled  bool

	Storage StorageConfig
	Limits  Limits
	TTL     TTL
	Quota   Quota
}

// StorageConfig selects and configures the blob backend.
type StorageConfig struct {
	Backend   string // "fs", "s3" or "memory"
	Dir       string // root directory for the fs backend
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when present.
// Database variables are enforced by must() only for the mysql backend.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		StoreBackend:    strings.ToLower(envStr("STORE_BACKEND", "mysql")),
		TokenHashSalt:   os.Getenv("TOKEN_HASH_SALT"),
		IPHashSalt:      os.Getenv("IP_HASH_SALT"),
		TurnstileSecret: os.Getenv("TURNSTILE_SECRET_KEY"),
		TurnstileURL:    envStr("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		AdminEmails:     envList("ADMIN_EMAILS"),
		AdminJWTSecret:  os.Getenv("ADMIN_JWT_SECRET"),
		PublicBaseURL:   os.Getenv("PUBLIC_BASE_URL"),
		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		AuditLogDir:     envStr("AUDIT_LOG_DIR", "logs"),
		MetricsEnabled:  envBool("METRICS_ENABLED", true),
		Storage: StorageConfig{
			Backend:   strings.ToLower(envStr("STORAGE_BACKEND", "fs")),
			Dir:       envStr("STORAGE_DIR", "data/blobs"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Region:    envStr("S3_REGION", "auto"),
			UseSSL:    envBool("S3_USE_SSL", true),
		},
		Limits: LoadLimits(),
		TTL:    LoadTTL(),
		Quota:  LoadQuota(),
	}
	if cfg.StoreBackend == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.DBMaxConns = envInt("DB_MAX_OPEN_CONNS", 25)
	}
	if cfg.Storage.Backend == "s3" {
		cfg.Storage.Endpoint = must("S3_ENDPOINT")
		cfg.Storage.Bucket = must("S3_BUCKET")
	}
	return cfg
}
