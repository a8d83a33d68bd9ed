package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/cli/config"
	"github.com/simhud/simhud/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.App

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate every overlay manifest and every layout file of every game",
		Flags:   appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			rt, err := setup(ctx, c, &appCfg)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.uc.Validate(ctx)
			if err != nil {
				return goerr.Wrap(err, "validation failed")
			}

			if result.HasIssues() {
				for _, issue := range result.Issues {
					logger.Warn("Validation issue found",
						"game", issue.Game,
						"filename", issue.Filename,
						"folder_name", issue.FolderName,
						"overlay_id", issue.OverlayID,
						"message", issue.Message,
					)
				}
				return goerr.New("validation found issues", goerr.V("count", len(result.Issues)))
			}

			logger.Info("Validation passed",
				"manifests", result.Manifests,
				"layouts", result.Layouts,
			)
			return nil
		},
	}
}
