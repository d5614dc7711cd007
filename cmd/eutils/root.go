package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/eutils-client/pkg/client"
	"github.com/Sternrassler/eutils-client/pkg/logging"
	"github.com/Sternrassler/eutils-client/pkg/metrics"
	"github.com/Sternrassler/eutils-client/pkg/query"
	"github.com/Sternrassler/eutils-client/pkg/ratelimit"
)

// envPrefix namespaces environment overrides, e.g. EUTILS_EMAIL.
const envPrefix = "EUTILS"

// app carries state shared by the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	redis   *redis.Client
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "eutils",
		Short: "Query the NCBI Entrez E-utilities",
		Long: `eutils issues esearch, esummary, efetch, elink, einfo and ecitmatch
requests while keeping to the E-utilities usage policy (at most three
requests per second without an API key).

Every flag of the root command can also be set through the environment
with the EUTILS_ prefix (EUTILS_EMAIL, EUTILS_API_KEY, EUTILS_MIN_INTERVAL...)
or through a YAML config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.redis != nil {
				return a.redis.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	flags.String("tool", "eutils-cli", "application name reported to NCBI (no spaces)")
	flags.String("email", "", "contact e-mail reported to NCBI (required)")
	flags.String("api-key", "", "NCBI API key")
	flags.String("server", client.DefaultServer, "E-utilities base address")
	flags.String("return-type", string(query.ReturnJSON), "default return type: json or xml")
	flags.Duration("min-interval", ratelimit.DefaultMinInterval, "minimal interval between requests")
	flags.Duration("timeout", client.DefaultTimeout, "request timeout")
	flags.String("redis-addr", "", "share the request throttle through Redis at this address")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.String("log-level", string(logging.LevelWarn), "log level: debug, info, warn, error, disabled")
	flags.Bool("log-pretty", true, "human-readable log output")

	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newSearchCmd(a),
		newSummaryCmd(a),
		newFetchCmd(a),
		newLinkCmd(a),
		newInfoCmd(a),
		newCitationsCmd(a),
		newDatabasesCmd(),
	)
	return root
}

func (a *app) init() error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}

	level, err := logging.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = a.v.GetBool("log-pretty")
	logging.Setup(cfg)
	return nil
}

// client builds the configured client and starts the optional metrics
// endpoint for the lifetime of ctx.
func (a *app) client(ctx context.Context) (*client.Client, error) {
	logger := logging.NewLogger("cli")
	cfg := client.DefaultConfig(a.v.GetString("tool"), a.v.GetString("email"))
	cfg.APIKey = a.v.GetString("api-key")
	cfg.Server = a.v.GetString("server")
	cfg.ReturnType = query.ReturnType(a.v.GetString("return-type"))
	cfg.MinimalInterval = a.v.GetDuration("min-interval")
	cfg.Timeout = a.v.GetDuration("timeout")

	if addr := a.v.GetString("redis-addr"); addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: addr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
		}
		cfg.RateLimitStore = ratelimit.NewRedisStore(a.redis)
		logger.Debug().Str("addr", addr).Msg("Sharing rate limit through Redis")
	}

	if addr := a.v.GetString("metrics-addr"); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
			}
		}()
	}

	c, err := client.New(cfg)
	if err != nil {
		var cfgErr *client.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Field == "email" {
			return nil, fmt.Errorf("%w (set --email or %s_EMAIL)", err, envPrefix)
		}
		return nil, err
	}
	return c, nil
}
