package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/cli/config"
	"github.com/simhud/simhud/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdLayouts() *cli.Command {
	return &cli.Command{
		Name:    "layouts",
		Aliases: []string{"l"},
		Usage:   "Inspect and manage the layouts of a game",
		Commands: []*cli.Command{
			cmdLayoutsList(),
			cmdLayoutsDelete(),
		},
	}
}

func output(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func cmdLayoutsList() *cli.Command {
	var gameName string
	var appCfg config.App

	flags := []cli.Flag{gameFlag(&gameName, true)}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List layouts in their saved order, marking the active one",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			game, err := parseGame(gameName)
			if err != nil {
				return err
			}
			if game.IsNone() {
				return goerr.New("--game must name a game")
			}

			rt, err := setup(ctx, c, &appCfg)
			if err != nil {
				return err
			}
			defer rt.close()

			catalog := rt.uc.Catalog
			defer catalog.Close(context.Background())

			if err := catalog.Load(ctx, game); err != nil {
				return goerr.Wrap(err, "failed to load layouts")
			}
			layouts, err := catalog.Layouts(ctx, game)
			if err != nil {
				return err
			}
			order, err := catalog.LayoutOrder(ctx, game)
			if err != nil {
				return err
			}

			var active string
			if cfg := catalog.ActiveLayout(); cfg != nil {
				active = cfg.Filename
			}

			w := output(c)
			header := color.New(color.Bold)
			marker := color.New(color.FgGreen, color.Bold)
			dim := color.New(color.Faint)

			_, _ = header.Fprintf(w, "%s (%d layouts)\n", game, len(layouts))
			for _, l := range usecase.SortByOrder(layouts, order) {
				prefix := "  "
				if l.Filename == active {
					prefix = marker.Sprint("* ")
				}
				_, _ = fmt.Fprintf(w, "%s%-28s %s\n", prefix, l.Filename, l.Title)
				_, _ = dim.Fprintf(w, "    %dx%d, %d overlays\n", l.Screen.Width, l.Screen.Height, len(l.Overlays))
			}
			return nil
		},
	}
}

func cmdLayoutsDelete() *cli.Command {
	var gameName string
	var appCfg config.App

	flags := []cli.Flag{gameFlag(&gameName, true)}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a layout file",
		ArgsUsage: "<filename>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			filename := c.Args().First()
			if filename == "" {
				return goerr.New("layout filename is required")
			}
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

			if err := catalog.DeleteLayout(ctx, filename, game); err != nil {
				return goerr.Wrap(err, "failed to delete layout", goerr.V("filename", filename))
			}

			_, _ = color.New(color.FgYellow).Fprintf(output(c), "deleted %s\n", usecase.NormalizeFilename(filename))
			return nil
		},
	}
}
