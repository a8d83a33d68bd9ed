package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/simhud/simhud/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Logger holds CLI flags for the process-wide logger
type Logger struct {
	level  string
	format string
	output string
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Flags returns CLI flags for logger configuration
func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Category:    "Logging",
			Usage:       "Log level [debug|info|warn|error]",
			Value:       "info",
			Sources:     cli.EnvVars("SIMHUD_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Category:    "Logging",
			Usage:       "Log format [console|json]",
			Value:       "console",
			Sources:     cli.EnvVars("SIMHUD_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Category:    "Logging",
			Usage:       "Log output [stdout|stderr|<file path>]",
			Value:       "stderr",
			Sources:     cli.EnvVars("SIMHUD_LOG_OUTPUT"),
			Destination: &x.output,
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

// Configure installs the default logger. The returned closer releases the
// log file when output is a path.
func (x *Logger) Configure() (func(), error) {
	closer := func() {}

	level, ok := logLevels[strings.ToLower(x.level)]
	if !ok {
		return closer, goerr.Wrap(ErrInvalidConfig, "invalid log level", goerr.V("level", x.level))
	}

	var w io.Writer
	switch x.output {
	case "stdout", "-":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	default:
		// #nosec G304 - path is provided by CLI flag
		f, err := os.OpenFile(x.output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return closer, goerr.Wrap(err, "failed to open log file", goerr.V("path", x.output))
		}
		closer = func() { _ = f.Close() }
		w = f
	}

	handler, err := newLogHandler(w, x.format, level)
	if err != nil {
		closer()
		return func() {}, err
	}

	logging.SetDefault(slog.New(handler))
	return closer, nil
}

// redactor hides secrets in log attributes: struct fields tagged
// masq:"secret" and fields whose name looks like a credential
func redactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("DSN"),
		masq.WithFieldName("Credentials"),
	)
}

func newLogHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	filter := redactor()

	switch format {
	case "console", "":
		return clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
			clog.WithSource(true),
			clog.WithColor(w == os.Stdout || w == os.Stderr),
		), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       level,
			ReplaceAttr: filter,
		}), nil
	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid log format", goerr.V("format", format))
	}
}
