package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig   `mapstructure:"server"`
	BiddingServer ServerConfig   `mapstructure:"bidding_server"`
	Storage       StorageConfig  `mapstructure:"storage"`
	Redis         RedisConfig    `mapstructure:"redis"`
	NATS          NATSConfig     `mapstructure:"nats"`
	Auth          AuthConfig     `mapstructure:"auth"`
	Bidding       BiddingConfig  `mapstructure:"bidding"`
	Closing       ClosingConfig  `mapstructure:"closing"`
	Retry         RetryConfig    `mapstructure:"retry"`
	Leader        LeaderConfig   `mapstructure:"leader"`
	Instance      InstanceConfig `mapstructure:"instance"`
	Logger        LoggerConfig   `mapstructure:"logger"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// StorageConfig selects the auction record store. Driver is one of
// "mysql", "postgres" or "memory".
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	Stream        string `mapstructure:"stream"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	Durable       string `mapstructure:"durable"`
}

type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	CookieName string `mapstructure:"cookie_name"`
}

type BiddingConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

type ClosingConfig struct {
	Schedule  string `mapstructure:"schedule"`
	BatchSize int    `mapstructure:"batch_size"`
	Workers   int    `mapstructure:"workers"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Mode       string `mapstructure:"mode"`
	FileEnable bool   `mapstructure:"file_enable"`
	Filename   string `mapstructure:"filename"`
}

var envBindings = map[string]string{
	"server.port":               "SERVER_PORT",
	"server.host":               "SERVER_HOST",
	"bidding_server.port":       "BIDDING_SERVER_PORT",
	"bidding_server.host":       "BIDDING_SERVER_HOST",
	"storage.driver":            "STORAGE_DRIVER",
	"storage.dsn":               "STORAGE_DSN",
	"storage.max_open_conns":    "STORAGE_MAX_OPEN_CONNS",
	"storage.max_idle_conns":    "STORAGE_MAX_IDLE_CONNS",
	"storage.conn_max_lifetime": "STORAGE_CONN_MAX_LIFETIME",
	"storage.auto_migrate":      "STORAGE_AUTO_MIGRATE",
	"redis.address":             "REDIS_ADDRESS",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"nats.url":                  "NATS_URL",
	"nats.stream":               "NATS_STREAM",
	"nats.subject_prefix":       "NATS_SUBJECT_PREFIX",
	"nats.durable":              "NATS_DURABLE",
	"auth.jwt_secret":           "JWT_SECRET",
	"auth.cookie_name":          "AUTH_COOKIE_NAME",
	"bidding.max_retries":       "BIDDING_MAX_RETRIES",
	"closing.schedule":          "CLOSING_SCHEDULE",
	"closing.batch_size":        "CLOSING_BATCH_SIZE",
	"closing.workers":           "CLOSING_WORKERS",
	"retry.max_attempts":        "RETRY_MAX_ATTEMPTS",
	"retry.initial_interval":    "RETRY_INITIAL_INTERVAL",
	"retry.max_interval":        "RETRY_MAX_INTERVAL",
	"leader.ttl":                "LEADER_TTL",
	"instance.id":               "INSTANCE_ID",
	"logger.level":              "LOG_LEVEL",
	"logger.mode":               "LOG_MODE",
	"logger.file_enable":        "LOG_FILE_ENABLE",
	"logger.filename":           "LOG_FILENAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("bidding_server.port", 8081)
	v.SetDefault("bidding_server.host", "0.0.0.0")
	v.SetDefault("storage.driver", "mysql")
	v.SetDefault("storage.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	v.SetDefault("storage.max_open_conns", 25)
	v.SetDefault("storage.max_idle_conns", 10)
	v.SetDefault("storage.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("storage.auto_migrate", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream", "AUCTION_NOTIFICATIONS")
	v.SetDefault("nats.subject_prefix", "auction.notifications")
	v.SetDefault("nats.durable", "ws-push")
	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.cookie_name", "auth-token")
	v.SetDefault("bidding.max_retries", 3)
	v.SetDefault("closing.schedule", "@every 30s")
	v.SetDefault("closing.batch_size", 100)
	v.SetDefault("closing.workers", 8)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 50*time.Millisecond)
	v.SetDefault("retry.max_interval", time.Second)
	v.SetDefault("leader.ttl", 30*time.Second)
	v.SetDefault("instance.id", "auction-engine-1")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", "production")
	v.SetDefault("logger.file_enable", false)
	v.SetDefault("logger.filename", "/var/log/auction-engine/service.log")
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Configuration file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-engine/")

	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.Bidding.MaxRetries < 0 {
		return nil, fmt.Errorf("bidding.max_retries must not be negative, got %d", config.Bidding.MaxRetries)
	}
	if config.Closing.Workers <= 0 {
		config.Closing.Workers = 1
	}
	return &config, nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Bidding: %s:%d, Storage: %s, Redis: %s, NATS: %s, Instance: %s",
		c.Server.Host,
		c.Server.Port,
		c.BiddingServer.Host,
		c.BiddingServer.Port,
		c.Storage.Driver,
		c.Redis.Address,
		c.NATS.URL,
		c.Instance.ID,
	)
}
