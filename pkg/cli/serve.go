package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/cli/config"
	httpctrl "github.com/simhud/simhud/pkg/controller/http"
	"github.com/simhud/simhud/pkg/utils/async"
	"github.com/simhud/simhud/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func cmdServe() *cli.Command {
	var addr string
	var gameName string
	var serveOverlays bool
	var appCfg config.App

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("SIMHUD_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "serve-overlays",
			Usage:       "Serve overlay packages under /overlays/ (file storage only)",
			Value:       true,
			Sources:     cli.EnvVars("SIMHUD_SERVE_OVERLAYS"),
			Destination: &serveOverlays,
		},
		gameFlag(&gameName, false),
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the layout manager and its HTTP API",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			game, err := parseGame(gameName)
			if err != nil {
				return err
			}

			rt, err := setup(ctx, c, &appCfg)
			if err != nil {
				return err
			}
			defer rt.close()

			catalog := rt.uc.Catalog
			defer catalog.Close(context.Background())

			if !game.IsNone() {
				if err := catalog.Load(ctx, game); err != nil {
					return goerr.Wrap(err, "failed to load layouts", goerr.V("game", game))
				}
				if active := catalog.ActiveLayout(); active != nil {
					// Navigating every overlay window can be slow; the API is served meanwhile.
					async.Dispatch(ctx, "restore-active-layout", func(ctx context.Context) error {
						if err := catalog.SetActiveLayout(ctx, active.Filename, game, true); err != nil {
							return goerr.Wrap(err, "failed to restore active layout", goerr.V("filename", active.Filename))
						}
						logging.From(ctx).Info("Restored active layout", "game", game, "filename", active.Filename)
						return nil
					})
				}
			}

			var opts []httpctrl.Options
			if serveOverlays && rt.settings.Storage.Backend == config.BackendFile {
				opts = append(opts, httpctrl.WithOverlayFS(os.DirFS(rt.settings.OverlaysDir)))
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(rt.uc, opts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, egCtx := errgroup.WithContext(sigCtx)
			eg.Go(func() error {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server")
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logging.Default().Info("Shutting down")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				logging.Default().Info("Server shutdown completed")
				return nil
			})

			return eg.Wait()
		},
	}
}
