package container

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted by LoggerPackage.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Options configures every binary. The server reads them from flags and
// SERVICE_* environment variables; the consumer fills them from the environment.
type Options struct {
	Port           int    `default:"8888"           help:"Port to listen on"                                             short:"p"`
	PhoneLimit     int    `default:"10"             help:"Messages per second allowed for one phone number"`
	AccountLimit   int    `default:"100"            help:"Messages per second allowed for one account"`
	CounterTTL     int    `default:"120"            help:"Seconds a counter lives after it is created"`
	SweepInterval  int    `default:"30"             help:"Seconds between expired counter sweeps, 0 disables"`
	Shards         int    `default:"32"             help:"Number of independently locked counter shards"`
	Broker         string `default:"memory"         help:"Decision event broker, memory or redis"                        short:"b"`
	AllowedOrigins string `default:"*"              help:"Comma separated browser origins allowed by CORS, * allows any"`
	RedisAddr      string `default:"localhost:6379" help:"Redis server address"                                          short:"r"`
	DatabaseURL    string `default:""               help:"PostgreSQL URL for the decision log and history"`
	LogFormat      string `default:"console"        help:"Log format, console or json"`
	LogLevel       string `default:"info"           help:"Minimum log level"`
}

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		var cfg zap.Config

		switch opts.LogFormat {
		case LogFormatJSON:
			cfg = zap.NewProductionConfig()
		case LogFormatConsole, "":
			cfg = zap.NewDevelopmentConfig()
		default:
			return nil, fmt.Errorf("unknown log format %q", opts.LogFormat)
		}

		if opts.LogLevel != "" {
			level, err := zapcore.ParseLevel(opts.LogLevel)
			if err != nil {
				return nil, fmt.Errorf("parse log level: %w", err)
			}

			cfg.Level = zap.NewAtomicLevelAt(level)
		}

		return cfg.Build()
	})
}

// Redis owns the shared client so the injector closes it on shutdown.
type Redis struct {
	*redis.Client
}

// Shutdown closes the client.
func (r *Redis) Shutdown() error {
	return r.Close()
}

// RedisPackage provides the Redis client used by the Redis Streams broker.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)

		return &Redis{Client: redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})}, nil
	})
}

// ServerPackages registers everything the HTTP server needs.
func ServerPackages(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	BrokerPackage(injector)
	MetricsPackage(injector)
	RateLimitPackage(injector)
	LiveUpdatePackage(injector)
	HTTPPackage(injector)
}

// ConsumerPackages registers everything the decision log consumer needs.
func ConsumerPackages(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	DecisionLogPackage(injector)
}
