package config

import "time"

type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Storage       StorageConfig       `koanf:"storage"`
	Idempotency   IdempotencyConfig   `koanf:"idempotency"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Email         EmailConfig         `koanf:"email"`
	RateLimit     RateLimitConfig     `koanf:"rate_limit"`
	Channels      ChannelsConfig      `koanf:"channels"`
	Log           LogConfig           `koanf:"log"`
}

type ServerConfig struct {
	Host           string    `koanf:"host"`
	Port           int       `koanf:"port"`
	PublicURL      string    `koanf:"public_url"`
	AllowedOrigins []string  `koanf:"allowed_origins"`
	TLS            TLSConfig `koanf:"tls"`
}

type TLSConfig struct {
	Mode     string        `koanf:"mode"` // off, auto, manual
	CertFile string        `koanf:"cert_file"`
	KeyFile  string        `koanf:"key_file"`
	Auto     TLSAutoConfig `koanf:"auto"`
}

type TLSAutoConfig struct {
	Domain   string `koanf:"domain"`
	Email    string `koanf:"email"`
	CacheDir string `koanf:"cache_dir"`
}

type DatabaseConfig struct {
	// Driver selects the storage backend: "sqlite" or "memory".
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

// StorageConfig configures the object store holding attachment blobs.
type StorageConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
	// GCInterval is how often the background collector sweeps
	// attachments that were marked for deletion.
	GCInterval time.Duration `koanf:"gc_interval"`
}

type IdempotencyConfig struct {
	// TTL is how long a (user, token) record deduplicates retried sends.
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

type NotificationsConfig struct {
	// QueueCapacity bounds the in-process notification queue. When the
	// queue is full new tasks are rejected and the drop is logged.
	QueueCapacity int           `koanf:"queue_capacity"`
	FlushInterval time.Duration `koanf:"flush_interval"`
}

type EmailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type RateLimitConfig struct {
	Enabled     bool              `koanf:"enabled"`
	SendMessage RateLimitEndpoint `koanf:"send_message"`
	EditChannel RateLimitEndpoint `koanf:"edit_channel"`
}

type RateLimitEndpoint struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type ChannelsConfig struct {
	// BcryptCost is used when hashing channel passwords.
	BcryptCost int `koanf:"bcrypt_cost"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			PublicURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/quill.db",
		},
		Storage: StorageConfig{
			Endpoint:   "localhost:9000",
			Bucket:     "quill-attachments",
			GCInterval: 10 * time.Minute,
		},
		Idempotency: IdempotencyConfig{
			TTL:             5 * time.Minute,
			CleanupInterval: time.Hour,
		},
		Notifications: NotificationsConfig{
			QueueCapacity: 10000,
			FlushInterval: time.Minute,
		},
		Email: EmailConfig{
			Enabled: false,
			Port:    587,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			SendMessage: RateLimitEndpoint{Limit: 30, Window: 10 * time.Second},
			EditChannel: RateLimitEndpoint{Limit: 10, Window: time.Minute},
		},
		Channels: ChannelsConfig{
			BcryptCost: 12,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
