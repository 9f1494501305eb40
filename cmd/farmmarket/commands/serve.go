package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/safar/farmmarket/internal/api"
	"github.com/safar/farmmarket/internal/config"
	"github.com/safar/farmmarket/internal/logging"
	"github.com/safar/farmmarket/internal/market"
	"github.com/safar/farmmarket/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the marketplace HTTP API. It serves the JSON endpoints for listings,
offers, transactions and profiles, and the websocket feeds for open listings
and pending offers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")
		return runServe(migrate)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("migrate", false, "Apply up migrations before serving")
}

func runServe(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, closeDocs, err := openDocuments(ctx, cfg, logger, migrate)
	if err != nil {
		return err
	}
	defer closeDocs()

	objects, err := openObjects(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open object storage: %w", err)
	}

	listings := store.NewListings(docs, objects, logger, cfg.Query.ResultCap)
	offers := store.NewOffers(docs, listings, logger, cfg.Query.ResultCap)
	transactions := store.NewTransactions(docs, cfg.Query.ResultCap)
	profiles := store.NewProfiles(docs, objects)
	recorder := market.NewRecorder(transactions)

	srv := api.NewServer(api.Deps{
		Listings:     listings,
		Offers:       offers,
		Transactions: transactions,
		Profiles:     profiles,
		Negotiator:   market.NewNegotiator(offers, listings, recorder, logger),
		Recorder:     recorder,
		Auth:         api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Logger:       logger,
	})

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	uploadsDir := ""
	if cfg.Storage.Driver == config.StorageLocal {
		uploadsDir = cfg.Storage.Dir
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Router(uploadsDir),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		figure.NewColorFigure("Farmmarket", "puffy", "green", true).Print()

		logger.Info("server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-stop:
	}
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("http server exited gracefully")
	return nil
}
