package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hongminglow/therapy-console/internal/api"
	"github.com/hongminglow/therapy-console/internal/cache"
	"github.com/hongminglow/therapy-console/internal/config"
	"github.com/hongminglow/therapy-console/internal/logging"
	"github.com/hongminglow/therapy-console/internal/request"
	"github.com/hongminglow/therapy-console/internal/router"
	"github.com/hongminglow/therapy-console/internal/session"
)

// app is the state shared by every subcommand, built in PersistentPreRunE.
type app struct {
	flagServer         string
	flagCache          string
	flagCachePath      string
	flagRedisURL       string
	flagLogLevel       string
	flagLogFormat      string
	flagAllowAnonymous bool

	cfg     config.ClientConfig
	logger  *slog.Logger
	cache   cache.Cache
	api     *api.Client
	session *session.Store
	router  *router.Router
}

// NewRootCmd creates the root cobra command for the console CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "console",
		Short: "Therapy platform console",
		Long:  "console signs in to the therapy platform, checks navigation and manages platform records.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flagServer, "server", "", "API base URL (or CONSOLE_API_URL env)")
	pf.StringVar(&a.flagCache, "cache", "", "Cache backend: file, sqlite or redis (or CONSOLE_CACHE env)")
	pf.StringVar(&a.flagCachePath, "cache-path", "", "Cache file for the file and sqlite backends")
	pf.StringVar(&a.flagRedisURL, "redis-url", "", "Redis URL for the redis backend")
	pf.StringVar(&a.flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flagLogFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVar(&a.flagAllowAnonymous, "allow-anonymous", false, "Let navigation proceed without a token")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newNavigateCmd(a),
		newRoutesCmd(a),
		newListCmd(a),
		newDeviceCmd(a),
		newConfigCmd(a),
		newUploadCmd(a),
		newFilesCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.ClientFromEnv()
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.APIBaseURL = a.flagServer
	}
	if flags.Changed("cache") {
		cfg.CacheBackend = a.flagCache
		if !flags.Changed("cache-path") {
			cfg.CachePath = ""
		}
	}
	if flags.Changed("cache-path") {
		cfg.CachePath = a.flagCachePath
	}
	if flags.Changed("redis-url") {
		cfg.RedisURL = a.flagRedisURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.flagLogFormat
	}
	if flags.Changed("allow-anonymous") {
		cfg.AllowAnonymous = a.flagAllowAnonymous
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	a.cache, err = cache.Open(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	rc := request.New(cfg.APIBaseURL, cfg.RequestTimeout, a.logger)
	a.api = api.New(rc)
	a.session = session.New(ctx, a.api, a.cache, a.logger)
	rc.Token = func(ctx context.Context) string {
		tok, _ := a.session.Token(ctx)
		return tok
	}

	table, err := router.DefaultTable()
	if err != nil {
		return err
	}
	guard := router.NewGuard(a.session, a.logger, router.WithAnonymousAccess(cfg.AllowAnonymous))
	a.router = router.New(table, guard, a.logger)
	return nil
}

func (a *app) close() error {
	if a.cache == nil {
		return nil
	}
	err := a.cache.Close()
	a.cache = nil
	return err
}
