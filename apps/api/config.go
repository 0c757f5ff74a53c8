package main

import (
	"time"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	EnvKey          string        `env:"ENV_KEY" envDefault:"dev"`

	// An empty DATABASE_URL runs every domain on in-memory repositories.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	AuthProvider      string `env:"AUTH_PROVIDER" envDefault:"supabase"` // supabase | firebase | dev
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`
	JWTAudience       string `env:"JWT_AUDIENCE" envDefault:"authenticated"`

	GCPCredentialsFile string `env:"GCP_CREDENTIALS_FILE"`
	GCPProjectID       string `env:"GCP_PROJECT_ID"`

	StorageBackend    string `env:"STORAGE_BACKEND" envDefault:"local"` // gcs | local
	StorageBucket     string `env:"STORAGE_BUCKET" envDefault:"bizscreen-assets"`
	StorageLocalDir   string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"`
	StoragePublicBase string `env:"STORAGE_PUBLIC_BASE"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	DashboardCacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL" envDefault:"1m"`
	TenantCacheTTL    time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
}
