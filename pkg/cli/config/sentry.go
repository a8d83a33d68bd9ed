package config

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Sentry holds CLI flags for optional error reporting
type Sentry struct {
	dsn string `masq:"secret"`
	env string
}

func (x *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Category:    "Sentry",
			Usage:       "Sentry DSN; error reporting is disabled when empty",
			Sources:     cli.EnvVars("SIMHUD_SENTRY_DSN"),
			Destination: &x.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Category:    "Sentry",
			Usage:       "Sentry environment",
			Value:       "local",
			Sources:     cli.EnvVars("SIMHUD_SENTRY_ENV"),
			Destination: &x.env,
		},
	}
}

func (x Sentry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.dsn != ""),
		slog.String("env", x.env),
	)
}

// Configure initializes the global Sentry client. It is a no-op without a
// DSN. The returned closer flushes buffered events.
func (x *Sentry) Configure(release string) (func(), error) {
	if x.dsn == "" {
		logging.Default().Debug("Sentry is disabled")
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         x.dsn,
		Environment: x.env,
		Release:     release,
	}); err != nil {
		return func() {}, goerr.Wrap(ErrInvalidConfig, "failed to initialize sentry", goerr.V("cause", err.Error()))
	}

	logging.Default().Info("Sentry is enabled", "sentry", x)
	return func() { sentry.Flush(2 * time.Second) }, nil
}
