package structs

import "time"

type Config struct {
	Server     *ServerConfig
	Cors       *CorsConfig
	Database   *DatabaseConfig
	Cache      *CacheConfig
	Auth       *AuthConfig
	Shop       *ShopConfig
	Email      *EmailConfig
	Storage    *StorageConfig
	Queue      *QueueConfig
	Payment    *PaymentConfig
	RateLimit  *RateLimitConfig
	Encryption *EncryptionConfig
}

type ServerConfig struct {
	AppName        string // Perfumery
	Environment    string // development, production
	Port           string // :8082
	FrontendURL    string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxHeaderBytes int   // in bytes
	BodyLimit      int64 // in bytes
}

type CorsConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // in seconds
}

type DatabaseConfig struct {
	Driver             string // pgdriver, pgx
	Host               string
	Port               int
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	MaxLifetime        time.Duration
	MaxIdleTime        time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	SlowQueryThreshold time.Duration
	AutoMigrate        bool
}

type CacheConfig struct {
	Address         string
	Username        string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolTimeout     time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	ProductListTTL  time.Duration
	ProductTTL      time.Duration
	UserTTL         time.Duration
	CartTTL         time.Duration
}

type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	BlacklistCacheTTL  time.Duration
	AdminEmail         string
	AdminPassword      string
}

type ShopConfig struct {
	Currency          string
	ShippingFlatCents int64
	TaxRateBps        int64 // 800 = 8%
	LowStockThreshold int
	DefaultPageSize   int
	MaxPageSize       int
	DefaultCategory   Category // used when the admin form leaves category out
}

type EmailConfig struct {
	Provider     string // resend, smtp, none
	From         string
	SupportEmail string
	ApiKey       string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

type StorageConfig struct {
	Enabled       bool
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
	MaxImageBytes int64
}

type QueueConfig struct {
	Enabled    bool
	URL        string
	Exchange   string
	RoutingKey string
	PoolSize   int
}

type PaymentConfig struct {
	Provider        string // demo, stripe
	StripeSecretKey string
}

type RateLimitConfig struct {
	Enabled       bool
	GeneralLimit  int
	GeneralWindow time.Duration
	AuthLimit     int
	AuthWindow    time.Duration
	AdminLimit    int
	AdminWindow   time.Duration
}

type EncryptionConfig struct {
	Key string // base64 encoded 32 byte key
}
