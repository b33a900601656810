package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alexbotov/flickrapi/internal/api"
	"github.com/alexbotov/flickrapi/internal/audit"
	"github.com/alexbotov/flickrapi/internal/auth"
	"github.com/alexbotov/flickrapi/internal/config"
	"github.com/alexbotov/flickrapi/internal/database"
	"github.com/alexbotov/flickrapi/internal/logging"
	"github.com/alexbotov/flickrapi/internal/metrics"
	"github.com/alexbotov/flickrapi/internal/tokencache"
	"github.com/alexbotov/flickrapi/pkg/flickr"
	"github.com/alexbotov/flickrapi/pkg/flickr/rediscache"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:           "flickrapi",
		Short:         "Flickr API client tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides FLICKR_LOG_LEVEL)")

	load := func() (*config.Config, *slog.Logger, error) {
		cfg := config.Load()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return cfg, logger, nil
	}

	rootCmd.AddCommand(
		newServeCmd(load),
		newCallCmd(load),
		newAuthURLCmd(load),
		newUploadCmd(load),
		newHistoryCmd(load),
	)
	return rootCmd
}

type loader func() (*config.Config, *slog.Logger, error)

// app holds the services shared by the commands
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.DB
	client  *flickr.Client
	metrics *metrics.Recorder
	audit   *audit.Service
	auth    *auth.Service
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	if cfg.Database.DSN != "" {
		db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(); err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.audit = audit.New(db.DB, logging.WithComponent(logger, "audit"))
	}

	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logging.WithComponent(logger, "flickr")
	clientCfg.Observers = []flickr.Observer{a.metrics}
	if a.audit != nil {
		clientCfg.Observers = append(clientCfg.Observers, a.audit)
	}
	if cfg.Cache.Enabled {
		cache, err := a.newCache(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		clientCfg.Cache = cache
	}
	a.client = flickr.NewClient(clientCfg)

	if cfg.Flickr.APISecret != "" {
		store, err := a.newTokenStore()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.auth = auth.New(a.client, store, &cfg.Auth, logging.WithComponent(logger, "auth"))
	}
	return a, nil
}

func (a *app) newCache(ctx context.Context) (flickr.Cache, error) {
	if a.cfg.Cache.RedisAddr == "" {
		return flickr.NewMemoryCache(a.cfg.Cache.TTL, a.cfg.Cache.MaxEntries), nil
	}
	cache, err := rediscache.New(ctx, rediscache.Config{
		Addrs:    strings.Split(a.cfg.Cache.RedisAddr, ","),
		Password: a.cfg.Cache.RedisPassword,
		TTL:      a.cfg.Cache.TTL,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cache.Close)
	a.logger.Info("using redis response cache", "addr", a.cfg.Cache.RedisAddr)
	return cache, nil
}

func (a *app) newTokenStore() (tokencache.Store, error) {
	sealer, err := tokencache.NewSealer(a.cfg.Flickr.APIKey, a.cfg.Flickr.APISecret)
	if err != nil {
		return nil, err
	}
	if a.db != nil {
		return tokencache.NewSQLStore(a.db.DB, sealer), nil
	}
	return tokencache.NewFileStore(a.cfg.Database.TokenDir, sealer), nil
}

// authorized returns a client carrying the stored token
func (a *app) authorized(ctx context.Context) (*flickr.Client, error) {
	if a.auth == nil {
		return nil, flickr.ErrNoSecret
	}
	client, token, err := a.auth.Client(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("using stored token", "user", token.Username, "perms", token.Perms)
	return client, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func withApp(load loader, run func(ctx context.Context, a *app) error) error {
	cfg, logger, err := load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, a)
}

// parseArgs turns key=value words into call arguments
func parseArgs(words []string) (flickr.Args, error) {
	args := flickr.Args{}
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", w)
		}
		args[k] = v
	}
	return args, nil
}

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web authorization callback server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(load, func(ctx context.Context, a *app) error {
				if a.auth == nil {
					return errors.New("FLICKR_API_SECRET is required to serve")
				}
				handler := api.New(a.auth, a.metrics, logging.WithComponent(a.logger, "api"))
				srv := &http.Server{
					Addr:         ":" + a.cfg.Server.Port,
					Handler:      handler.SetupRouter(),
					ReadTimeout:  a.cfg.Server.ReadTimeout,
					WriteTimeout: a.cfg.Server.WriteTimeout,
				}

				errCh := make(chan error, 1)
				go func() {
					a.logger.Info("server listening", "addr", srv.Addr)
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				case <-ctx.Done():
				}

				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}

func newCallCmd(load loader) *cobra.Command {
	var useToken bool
	cmd := &cobra.Command{
		Use:   "call <method> [key=value...]",
		Short: "Call an API method and print the response payload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, words []string) error {
			args, err := parseArgs(words[1:])
			if err != nil {
				return err
			}
			return withApp(load, func(ctx context.Context, a *app) error {
				client := a.client
				if useToken {
					if client, err = a.authorized(ctx); err != nil {
						return err
					}
				}
				rsp, err := client.Call(ctx, words[0], args)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rsp.String())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&useToken, "auth", false, "sign the call with the stored auth token")
	return cmd
}

func newAuthURLCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url [perms] [frob]",
		Short: "Print the authorization URL for desktop applications",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, words []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			perms := cfg.Auth.Perms
			if len(words) > 0 {
				perms = flickr.Perms(words[0])
			}
			var frob string
			if len(words) > 1 {
				frob = words[1]
			}

			u := flickr.NewClient(cfg.ClientConfig()).AuthURL(perms, frob)
			if u == nil {
				return flickr.ErrNoSecret
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.String())
			return nil
		},
	}
}

func newUploadCmd(load loader) *cobra.Command {
	var replace string
	cmd := &cobra.Command{
		Use:   "upload <file> [key=value...]",
		Short: "Upload a photo with the stored auth token",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, words []string) error {
			args, err := parseArgs(words[1:])
			if err != nil {
				return err
			}
			f, err := os.Open(words[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withApp(load, func(ctx context.Context, a *app) error {
				client, err := a.authorized(ctx)
				if err != nil {
					return err
				}
				var photoID string
				if replace != "" {
					photoID, err = client.Replace(ctx, filepath.Base(words[0]), f, replace, args)
				} else {
					photoID, err = client.Upload(ctx, filepath.Base(words[0]), f, args)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), photoID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&replace, "replace", "", "replace the photo with this id instead of uploading a new one")
	return cmd
}

func newHistoryCmd(load loader) *cobra.Command {
	filter := &audit.CallFilter{}
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled API calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(load, func(ctx context.Context, a *app) error {
				if a.audit == nil {
					return errors.New("FLICKR_DB_DSN is required for the call journal")
				}
				if since > 0 {
					filter.From = time.Now().UTC().Add(-since)
				}
				calls, err := a.audit.Calls(ctx, filter)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tMETHOD\tOUTCOME\tCODE\tCACHED\tMS")
				for _, c := range calls {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%d\n",
						c.RequestedAt.Format(time.RFC3339), c.Method, c.Outcome, c.ErrorCode, c.Cached, c.DurationMS)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter.Method, "method", "", "only calls to this method")
	cmd.Flags().StringVar(&filter.Outcome, "outcome", "", "only calls with this outcome (ok, fail, protocol_error)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum number of calls")
	cmd.Flags().DurationVar(&since, "since", 0, "only calls newer than this")
	return cmd
}
