package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Single implicit user (default)
	AuthModeToken AuthMode = "token" // Bearer token resolved to a user
)

type FolderCacheBackend string

const (
	FolderCacheMemory FolderCacheBackend = "memory"
	FolderCacheRedis  FolderCacheBackend = "redis"
	FolderCacheNone   FolderCacheBackend = "none"
)

type (
	Config struct {
		HTTP
		Global
		Logging
		Database
		Google
		Drive
		Crypto
		ExportQueue
		Tasks
		Audit
		Auth
		FolderCache
		Metrics
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Logging struct {
		Level       string
		Environment string
	}
	Database struct {
		Path string
	}
	Google struct {
		ClientID     string
		ClientSecret string
		RedirectURI  string
		AuthURL      string // Overrides the default Google endpoint when set
		TokenURL     string
		FrontendURL  string // Where the OAuth callback sends the browser
	}
	Drive struct {
		APIURL            string
		UploadURL         string
		RootFolder        string
		HTTPClientTimeout time.Duration
	}
	Crypto struct {
		EncryptionKey    string // Hex, 32 bytes; empty disables encryption
		OAuthStateSecret string
		OAuthStateTTL    time.Duration
	}
	ExportQueue struct {
		Enabled     bool
		Interval    time.Duration
		BaseDelay   time.Duration
		MaxDelay    time.Duration
		MaxAttempts int
		Lease       time.Duration
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Auth struct {
		Mode          AuthMode
		DefaultUserID uint
	}
	FolderCache struct {
		Backend       FolderCacheBackend
		TTL           time.Duration
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}
	Metrics struct {
		Enabled bool
	}
)

// exportQueueEnabled reports whether the retry worker should run.
// DISABLE_EXPORT_QUEUE wins over EXPORT_QUEUE_ENABLED so test and offline
// runs can switch the worker off without touching other settings.
func exportQueueEnabled(v *viper.Viper) bool {
	if v.GetBool("DISABLE_EXPORT_QUEUE") {
		return false
	}
	return v.GetBool("EXPORT_QUEUE_ENABLED")
}

func httpClientTimeout(v *viper.Viper) time.Duration {
	d := v.GetDuration("HTTP_CLIENT_TIMEOUT")
	if d <= 0 {
		return DefaultHTTPClientTimeout
	}
	return d
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("app_env", "development")
	v.SetDefault("database_path", DefaultDatabasePath)

	// Google OAuth / Drive defaults
	v.SetDefault("google_redirect_uri", "http://localhost:8188/api/auth/google/callback")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("drive_api_url", "https://www.googleapis.com")
	v.SetDefault("drive_upload_url", "https://www.googleapis.com/upload")
	v.SetDefault("drive_root_folder", "EZTutor")
	v.SetDefault("http_client_timeout", DefaultHTTPClientTimeout.String())

	// Crypto defaults
	v.SetDefault("encryption_key", "")
	v.SetDefault("oauth_state_secret", "")
	v.SetDefault("oauth_state_ttl", "15m")

	// Export queue defaults
	v.SetDefault("export_queue_enabled", true)
	v.SetDefault("disable_export_queue", false)
	v.SetDefault("export_queue_interval", DefaultQueueInterval.String())
	v.SetDefault("export_queue_base_delay", DefaultQueueBaseDelay.String())
	v.SetDefault("export_queue_max_delay", DefaultQueueMaxDelay.String())
	v.SetDefault("export_queue_max_attempts", DefaultQueueMaxAttempts)
	v.SetDefault("export_queue_lease", DefaultQueueLease.String())

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("audit_retention_days", 30)

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_default_user_id", 1)

	// Folder cache defaults
	v.SetDefault("folder_cache", "memory")
	v.SetDefault("folder_cache_ttl", "24h")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Logging: Logging{
			Level:       v.GetString("LOG_LEVEL"),
			Environment: v.GetString("APP_ENV"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Google: Google{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:  v.GetString("GOOGLE_REDIRECT_URI"),
			AuthURL:      v.GetString("GOOGLE_AUTH_URL"),
			TokenURL:     v.GetString("GOOGLE_TOKEN_URL"),
			FrontendURL:  v.GetString("FRONTEND_URL"),
		},
		Drive: Drive{
			APIURL:            v.GetString("DRIVE_API_URL"),
			UploadURL:         v.GetString("DRIVE_UPLOAD_URL"),
			RootFolder:        v.GetString("DRIVE_ROOT_FOLDER"),
			HTTPClientTimeout: httpClientTimeout(v),
		},
		Crypto: Crypto{
			EncryptionKey:    v.GetString("ENCRYPTION_KEY"),
			OAuthStateSecret: v.GetString("OAUTH_STATE_SECRET"),
			OAuthStateTTL:    v.GetDuration("OAUTH_STATE_TTL"),
		},
		ExportQueue: ExportQueue{
			Enabled:     exportQueueEnabled(v),
			Interval:    v.GetDuration("EXPORT_QUEUE_INTERVAL"),
			BaseDelay:   v.GetDuration("EXPORT_QUEUE_BASE_DELAY"),
			MaxDelay:    v.GetDuration("EXPORT_QUEUE_MAX_DELAY"),
			MaxAttempts: v.GetInt("EXPORT_QUEUE_MAX_ATTEMPTS"),
			Lease:       v.GetDuration("EXPORT_QUEUE_LEASE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Auth: Auth{
			Mode:          AuthMode(v.GetString("AUTH_MODE")),
			DefaultUserID: v.GetUint("AUTH_DEFAULT_USER_ID"),
		},
		FolderCache: FolderCache{
			Backend:       FolderCacheBackend(v.GetString("FOLDER_CACHE")),
			TTL:           v.GetDuration("FOLDER_CACHE_TTL"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}
