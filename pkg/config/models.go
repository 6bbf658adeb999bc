package config

import "time"

type Config struct {
	Server        ServerConfig
	Transport     TransportConfig
	PendingOffers PendingOffersConfig `mapstructure:"pendingOffers"`
	Store         StoreConfig
	Redis         RedisConfig
	LogLevel      string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Address         string
	Auth            AuthConfig
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type AuthConfig struct {
	// Empty secret disables token validation on the relay channel; the
	// surrounding deployment is then expected to authenticate upstream.
	JWTSecret string `mapstructure:"jwtSecret"`
}

type ConnectionLimitConfig struct {
	// MaxConnections caps live websocket connections process-wide. Zero or
	// negative disables the limiter.
	MaxConnections int `mapstructure:"maxConnections"`
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type PendingOffersConfig struct {
	// MaxPerTarget bounds buffered offers per callee; the oldest entry is
	// evicted when a new offer arrives at the cap.
	MaxPerTarget int `mapstructure:"maxPerTarget"`
	// TTL after which a buffered offer is dropped instead of delivered.
	TTL time.Duration `mapstructure:"ttl"`
}

type StoreConfig struct {
	// Path is the directory holding the message database.
	Path string
}

type RedisConfig struct {
	// Addr is host:port of the redis instance that mirrors the online set.
	// Empty disables the mirror.
	Addr     string
	Password string
	DB       int
}
