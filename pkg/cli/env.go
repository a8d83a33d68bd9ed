package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/cli/config"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/service/host"
	"github.com/simhud/simhud/pkg/usecase"
	"github.com/simhud/simhud/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// runtime bundles what every subcommand needs to touch layouts
type runtime struct {
	settings *config.Settings
	host     *host.Headless
	uc       *usecase.UseCases
	close    func()
}

func setup(ctx context.Context, c *cli.Command, appCfg *config.App) (*runtime, error) {
	settings, err := appCfg.Configure(c)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load configuration")
	}
	logging.Default().Info("Configuration loaded", "settings", settings)

	storage, closeStorage, err := settings.Storage.Open(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize storage")
	}

	var hostOpts []host.Option
	if settings.HostCheckPages {
		hostOpts = append(hostOpts, host.WithPageCheck(&http.Client{Timeout: 10 * time.Second}))
	}
	h := host.NewHeadless(hostOpts...)

	uc := usecase.New(storage, h,
		usecase.WithLayoutsDir(settings.LayoutsDir),
		usecase.WithOverlaysDir(settings.OverlaysDir),
		usecase.WithOverlayBaseURL(settings.OverlayBaseURL),
	)

	return &runtime{
		settings: settings,
		host:     h,
		uc:       uc,
		close:    closeStorage,
	}, nil
}

func gameFlag(dst *string, required bool) cli.Flag {
	return &cli.StringFlag{
		Name:        "game",
		Aliases:     []string{"g"},
		Usage:       "Game whose layouts are managed, e.g. \"iRacing\" or \"iracing\"",
		Required:    required,
		Sources:     cli.EnvVars("SIMHUD_GAME"),
		Destination: dst,
	}
}

func parseGame(s string) (types.GameName, error) {
	game, err := types.ParseGameName(s)
	if err != nil {
		return "", goerr.Wrap(err, "invalid --game")
	}
	return game, nil
}
