package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/killallgit/transcript-sync/api"
	"github.com/killallgit/transcript-sync/api/types"
	"github.com/killallgit/transcript-sync/internal/database"
	"github.com/killallgit/transcript-sync/internal/services/cleanup"
	"github.com/killallgit/transcript-sync/internal/services/identity"
	"github.com/killallgit/transcript-sync/internal/services/regions"
	"github.com/killallgit/transcript-sync/internal/services/snapshots"
	"github.com/killallgit/transcript-sync/pkg/config"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the region persistence server",
	Long: `Start the region persistence server with the configured settings.

The server stores transcript regions, stamps every write with a logical
timestamp and pushes snapshot events to subscribed editors.

Example:
  transcript-sync serve
  transcript-sync serve --port 9090
  transcript-sync serve --config ./config/prod.yaml`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	// Use config values if flags not provided
	host, port := serverHost, serverPort
	if host == "" {
		host = cfg.Server.Host
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	level, _ := cmd.Flags().GetString("log-level")
	db, err := database.Open(cfg.Database.Path, cfg.Database.Verbose || level == "debug")
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.ConfigurePool(cfg.Database.MaxConnections, cfg.Database.MaxIdleConnections, cfg.Database.ConnectionMaxLifetime); err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	broker, err := newBroker(ctx, cfg.Broker)
	if err != nil {
		return err
	}
	defer broker.Close()

	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	service := regions.NewService(regions.NewRepository(db.DB), broker)
	if cfg.Database.TombstoneRetention > 0 {
		purger := cleanup.NewService(service, cfg.Database.TombstoneRetention, cfg.Database.CleanupInterval)
		purger.Start(ctx)
		defer purger.Stop()
	}

	server := api.NewServer(fmt.Sprintf("%s:%d", host, port))
	server.SetDependencies(&types.Dependencies{
		DB:            db,
		RegionService: service,
		Broker:        broker,
		Tokens:        verifier,
		Version:       Version,
	})
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Channel to listen for interrupt signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	log.Printf("Server: listening on %s:%d (broker %s)", host, port, cfg.Broker.Type)

	// Wait for interrupt signal, cancellation or server error
	var runErr error
	select {
	case <-stop:
		log.Printf("Server: shutting down")
	case <-ctx.Done():
		log.Printf("Server: context done, shutting down")
	case runErr = <-serverErr:
		log.Printf("Server: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Printf("Server: stopped")
	return runErr
}

// newBroker builds the snapshot broker selected by the configuration
func newBroker(ctx context.Context, cfg config.BrokerConfig) (snapshots.Broker, error) {
	switch cfg.Type {
	case "", "memory":
		return snapshots.NewMemoryBroker(), nil
	case "redis":
		broker, err := snapshots.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ChannelPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return broker, nil
	default:
		return nil, fmt.Errorf("unknown broker type %q", cfg.Type)
	}
}

// newVerifier picks how bearer tokens are checked. A nil verifier means the
// X-User-ID header is trusted.
func newVerifier(ctx context.Context, cfg config.AuthConfig) (identity.Verifier, error) {
	switch {
	case cfg.JWKSURL != "":
		keys, err := identity.NewKeySet(ctx, cfg.JWKSURL, cfg.RequiredPermission)
		if err != nil {
			return nil, err
		}
		log.Printf("Server: verifying provider tokens against %s", cfg.JWKSURL)
		return keys, nil
	case cfg.JWTSecret != "":
		tokens, err := identity.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		return tokens, nil
	default:
		log.Printf("Server: no auth.jwt_secret set, trusting the X-User-ID header")
		return nil, nil
	}
}
