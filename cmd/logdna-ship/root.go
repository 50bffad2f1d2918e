package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/philipp01105/nlog-logdna/config"
	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/handler/httphandler"
	"github.com/philipp01105/nlog-logdna/logger"
	"github.com/philipp01105/nlog-logdna/selflog"
)

// maxLineBytes bounds a single stdin line
const maxLineBytes = 1024 * 1024

type options struct {
	configPath string
	apiKey     string
	app        string
	tags       string
	hostname   string
	ingestURL  string
	level      string
	env        string
	dryRun     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "logdna-ship",
		Short: "Ship log lines from stdin to LogDNA/Mezmo",
		Long: `Reads stdin line by line and ships every non-blank line as one log
entry. Lines are batched into {"lines":[...]} requests and posted to the
ingest endpoint with the ingestion key as the Basic credential.

Configuration is read from --config, $LOGDNA_CONFIG, the user config
directory or ./logdna.yaml, then from LOGDNA_* environment variables,
then from flags.

Examples:
  # Ship a service's output
  my-service 2>&1 | logdna-ship --app my-service --tags eu,blue

  # Ship a file at Warning level
  logdna-ship --level warning < errors.log

  # Print the request bodies instead of sending them
  logdna-ship --dry-run < app.log`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path")
	flags.StringVar(&opts.apiKey, "api-key", "", "ingestion key (overrides config)")
	flags.StringVarP(&opts.app, "app", "a", "", "application name written on every line")
	flags.StringVarP(&opts.tags, "tags", "t", "", "comma-separated tags appended to the ingest URL")
	flags.StringVar(&opts.hostname, "hostname", "", "host name reported to the endpoint (default: local host name)")
	flags.StringVar(&opts.ingestURL, "ingest-url", "", "ingest endpoint URL")
	flags.StringVarP(&opts.level, "level", "l", "information", "level assigned to every line")
	flags.StringVarP(&opts.env, "env", "e", "", "environment name written on every line")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print request bodies to stdout instead of sending them")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	log := newCLILogger(cmd.ErrOrStderr(), opts.verbose)
	defer func() { _ = log.Sync() }()

	level, ok := core.ParseLevel(opts.level)
	if !ok {
		return errors.Newf("unknown level %q", opts.level)
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	hcfg := httphandler.FromConfig(cfg)
	hcfg.Reporter = selflog.NewZapReporter(log)
	if opts.dryRun {
		hcfg.Poster = &stdoutPoster{w: cmd.OutOrStdout()}
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	h, err := httphandler.New(hcfg)
	if err != nil {
		return errors.Wrap(err, "creating handler")
	}
	log.Debug("shipping stdin",
		zap.String("app", cfg.AppName),
		zap.String("env", cfg.Env),
		zap.String("ingest_url", h.URI()),
		zap.String("api_key", cfg.MaskedAPIKey()),
		zap.Bool("dry_run", opts.dryRun))

	lg := logger.NewBuilder().
		WithHandler(h).
		WithLevel(core.VerboseLevel).
		Build()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readErr := ship(ctx, cmd.InOrStdin(), lg, level)
	closeErr := lg.Close()

	stats := h.Stats()
	log.Info("done",
		zap.Uint64("lines", stats.ProcessedTotal),
		zap.Uint64("batches_sent", stats.BatchesSent),
		zap.Uint64("batches_failed", stats.BatchesFailed),
		zap.Uint64("dropped", dropped(stats.DroppedTotal)))

	if readErr != nil {
		return errors.Wrap(readErr, "reading stdin")
	}
	if closeErr != nil {
		return closeErr
	}
	if stats.BatchesFailed > 0 {
		return errors.Newf("%d batches could not be delivered", stats.BatchesFailed)
	}
	return nil
}

// loadConfig layers flags over the loaded configuration
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil && (opts.configPath != "" || !errors.Is(err, config.ErrNoConfigFile)) {
		return nil, err
	}

	flags := cmd.Flags()
	set := func(dst *string, name, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	set(&cfg.APIKey, "api-key", opts.apiKey)
	set(&cfg.AppName, "app", opts.app)
	set(&cfg.Tags, "tags", opts.tags)
	set(&cfg.Hostname, "hostname", opts.hostname)
	set(&cfg.IngestURL, "ingest-url", opts.ingestURL)
	set(&cfg.Env, "env", opts.env)
	return cfg, nil
}

// ship logs every non-blank line of r until EOF or ctx is done
func ship(ctx context.Context, r io.Reader, lg *logger.Logger, level core.Level) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lg.Log(level, escapeTemplate(line))
	}
	return scanner.Err()
}

var templateEscaper = strings.NewReplacer("{", "{{", "}", "}}")

// escapeTemplate doubles braces so the line renders back verbatim
func escapeTemplate(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	return templateEscaper.Replace(s)
}

func dropped(m map[core.Level]uint64) uint64 {
	var n uint64
	for _, v := range m {
		n += v
	}
	return n
}

func newCLILogger(w io.Writer, verbose bool) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	zc := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(zc).Named("logdna-ship")
}

// stdoutPoster writes request bodies to w, one per line
type stdoutPoster struct {
	w io.Writer
}

func (p *stdoutPoster) Post(_ context.Context, _ string, body io.Reader) (*http.Response, error) {
	if _, err := io.Copy(p.w, body); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(p.w, "\n"); err != nil {
		return nil, err
	}
	return &http.Response{
		Status:     "202 Accepted",
		StatusCode: http.StatusAccepted,
		Body:       http.NoBody,
	}, nil
}

func (p *stdoutPoster) Close() error { return nil }
