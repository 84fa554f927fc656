package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Token   TokenConfig   `mapstructure:"token"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type DBConfig struct {
	DatabaseURL        string        `mapstructure:"databaseURL"`
	MaxOpenConnection  int           `mapstructure:"maxOpenConnection"`
	MaxIdleConnection  int           `mapstructure:"maxIdleConnection"`
	ConnectionLifetime time.Duration `mapstructure:"connectionLifetime"`
	RunMigrations      bool          `mapstructure:"runMigrations"`
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type TokenConfig struct {
	AuthToken    string `mapstructure:"authToken"`
	AdminToken   string `mapstructure:"adminToken"`
	WebhookToken string `mapstructure:"webhookToken"`
}

type LoggerConfig struct {
	LoggerLevel string `mapstructure:"loggerLevel"`
}

const (
	GatewayHTTP    = "http"
	GatewaySandbox = "sandbox"
)

type GatewayConfig struct {
	Name        string        `mapstructure:"name"`
	Driver      string        `mapstructure:"driver"`
	BaseURL     string        `mapstructure:"baseURL"`
	MerchantID  string        `mapstructure:"merchantID"`
	APIKey      string        `mapstructure:"apiKey"`
	CallbackURL string        `mapstructure:"callbackURL"`
	RedirectURL string        `mapstructure:"redirectURL"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("db.databaseURL", "")
	v.SetDefault("db.maxOpenConnection", 15)
	v.SetDefault("db.maxIdleConnection", 10)
	v.SetDefault("db.connectionLifetime", time.Hour)
	v.SetDefault("db.runMigrations", true)

	v.SetDefault("storage.driver", StoragePostgres)

	v.SetDefault("token.authToken", "")
	v.SetDefault("token.adminToken", "")
	v.SetDefault("token.webhookToken", "")

	v.SetDefault("logger.loggerLevel", "info")

	v.SetDefault("gateway.name", "dana")
	v.SetDefault("gateway.driver", GatewaySandbox)
	v.SetDefault("gateway.baseURL", "https://sandbox.dana.id/api/v1")
	v.SetDefault("gateway.merchantID", "sandbox_merchant")
	v.SetDefault("gateway.apiKey", "")
	v.SetDefault("gateway.callbackURL", "")
	v.SetDefault("gateway.redirectURL", "")
	v.SetDefault("gateway.timeout", 15*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "wallet-ledger.events")
}

// Load reads an optional .env file, then config.yaml from the working
// directory or ./internal/config, then environment overrides such as
// DB_DATABASEURL or TOKEN_AUTHTOKEN.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./internal/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.DB.DatabaseURL == "" {
			return errors.New("db.databaseURL is required for the postgres storage driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Gateway.Driver {
	case GatewayHTTP, GatewaySandbox:
	default:
		return fmt.Errorf("unknown gateway driver %q", c.Gateway.Driver)
	}

	if c.Token.AuthToken == "" || c.Token.AdminToken == "" {
		return errors.New("token.authToken and token.adminToken are required")
	}
	return nil
}
