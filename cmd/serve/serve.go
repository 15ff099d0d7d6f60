package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreamerjackson/bookcrawler/cmd/app"
	"github.com/dreamerjackson/bookcrawler/server"
	"github.com/dreamerjackson/bookcrawler/sourcestore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP API.",
	Long:  "serve search, validation, source management and metrics over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Context())
	},
}

var HTTPListenAddress string

func init() {
	ServeCmd.Flags().StringVar(
		&HTTPListenAddress, "http", "", "set HTTP listen address, overrides server.http")
}

func Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if w, ok := a.Store.(*sourcestore.EtcdStore); ok {
		go watch(ctx, a, w)
	}

	addr := a.Config.Server.HTTP
	if HTTPListenAddress != "" {
		addr = HTTPListenAddress
	}
	srv := server.New(a.Store,
		server.WithLogger(a.Logger.Named("server")),
		server.WithMetrics(a.Metrics),
		server.WithToken(a.Config.Server.Token),
		server.WithCoordinator(a.Coordinator()),
		server.WithValidator(a.Validator()),
	)

	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// watch drops cached pages whenever another instance changes a rule set, so
// edited rules apply to pages fetched before the change.
func watch(ctx context.Context, a *app.App, s *sourcestore.EtcdStore) {
	for ev := range s.Watch(ctx) {
		a.Logger.Info("rule set changed", zap.Int64("id", ev.ID), zap.Bool("deleted", ev.Type == sourcestore.EventTypeDelete))
		a.Fetcher.Purge()
	}
}
