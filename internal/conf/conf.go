package conf

import "time"

// Bootstrap is the root configuration of the service.
type Bootstrap struct {
	Server *Server
	Data   *Data
	Auth   *Auth
	Reddit *Reddit
	OAuth  *OAuth
	Log    *Log
}

// Server holds the inbound transport settings.
type Server struct {
	HTTP *HTTP
}

// HTTP configures the kratos HTTP server.
type HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds storage settings.
type Data struct {
	Database *Database
	Redis    *Redis
}

// Database configures the credential store.
type Database struct {
	Driver      string
	Source      string
	AutoMigrate bool
}

// Redis configures the pending request store.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Auth holds secrets used to protect data at rest.
type Auth struct {
	Encryption *Encryption
}

// Encryption configures AES-256-GCM encryption of refresh tokens.
type Encryption struct {
	Key string
}

// Reddit holds the registered reddit application and its HTTP client settings.
type Reddit struct {
	AppKey        string
	AppSecret     string
	AppKeyFile    string
	AppSecretFile string
	UserAgent     string
	ProxyURL      string
	Timeout       time.Duration
	CallbackPath  string
}

// OAuth holds handshake settings shared by all providers.
type OAuth struct {
	PendingTTL      time.Duration
	DefaultToPath   string
	StateSigningKey string
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
