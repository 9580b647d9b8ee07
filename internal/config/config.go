package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Supported store drivers
const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverDynamoDB = "dynamodb"
)

type HTTPCfg struct {
	Port            int           `env:"HTTP_PORT" envDefault:"3000"`
	BasePath        string        `env:"HTTP_BASE_PATH" envDefault:"/cus"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"5s"`
	BodyLimit       string        `env:"HTTP_BODY_LIMIT" envDefault:"1M"`
	SwaggerEnabled  bool          `env:"SWAGGER_ENABLED" envDefault:"true"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
}

type LogCfg struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type MongoCfg struct {
	URI            string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/?maxPoolSize=100"`
	Database       string        `env:"MONGO_DATABASE" envDefault:"customers"`
	Collection     string        `env:"MONGO_COLLECTION" envDefault:"customers"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"5s"`
}

type PostgresCfg struct {
	User        string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password    string `env:"POSTGRES_PASSWORD" envDefault:""`
	Host        string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port        int    `env:"POSTGRES_PORT" envDefault:"5432"`
	Database    string `env:"POSTGRES_DB" envDefault:"customers"`
	SslMode     string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PoolMaxConn int    `env:"POSTGRES_POOL_MAX_CONN" envDefault:"100"`
}

// DSN builds connection string for pgx
func (c PostgresCfg) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=%s pool_max_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SslMode, c.PoolMaxConn)
}

type DynamoDBCfg struct {
	Region   string `env:"DYNAMODB_REGION" envDefault:"us-east-1"`
	Profile  string `env:"DYNAMODB_PROFILE" envDefault:""`
	Endpoint string `env:"DYNAMODB_ENDPOINT" envDefault:""`
	Table    string `env:"DYNAMODB_TABLE" envDefault:"customers"`
}

// RedisCfg configures list cache, empty Addr disables caching
type RedisCfg struct {
	Addr       string        `env:"REDIS_ADDR" envDefault:""`
	Password   string        `env:"REDIS_PASSWORD" envDefault:""`
	DB         int           `env:"REDIS_DB" envDefault:"0"`
	TimeToLive time.Duration `env:"REDIS_TTL" envDefault:"10m"`
}

type Config struct {
	HTTPCfg     HTTPCfg
	LogCfg      LogCfg
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoCfg    MongoCfg
	PostgresCfg PostgresCfg
	DynamoDBCfg DynamoDBCfg
	RedisCfg    RedisCfg
}

// Build reads optional dotenv files and parses environment into Config
func Build(dotenvFiles ...string) (Config, error) {
	var cfg Config

	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}

	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load dotenv file %s - %w", f, err)
		}
	}

	opts := env.Options{RequiredIfNoDef: true}
	if err := env.Parse(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("failed to parse environment variables - %w", err)
	}

	switch cfg.StoreDriver {
	case StoreDriverMongo, StoreDriverPostgres, StoreDriverDynamoDB:
	default:
		return cfg, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	return cfg, nil
}
