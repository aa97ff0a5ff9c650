// Command license-gen issues, inspects and re-signs license files in the
// format of the legacy rcs-db-license-gen tool.
//
//	license-gen -g -o rcs.lic                 issue a default license
//	license-gen -i old.lic -V 9.6 -o new.lic  migrate and re-sign
//	license-gen -i rcs.lic -v                 inspect and dump
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"rcslicense/internal/config"
	"rcslicense/internal/document"
	"rcslicense/internal/expiry"
	"rcslicense/internal/files"
	"rcslicense/internal/infrastructure"
	"rcslicense/internal/license"
	"rcslicense/internal/security"
)

const displayLayout = "2006-01-02 15:04:05 UTC"

type options struct {
	generate    bool
	input       string
	output      string
	version     string
	verbose     bool
	hidden      string
	configPath  string
	metricsFile string
}

// cli holds the process environment so tests can run the command in-process.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	services []license.Option
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) parse(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("license-gen", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintln(c.stderr, "Usage: license-gen [options]")
		fmt.Fprintln(c.stderr, "  -g, --generate        Generate a new license template")
		fmt.Fprintln(c.stderr, "  -i, --input FILE      Input license file (will be fixed if corrupted)")
		fmt.Fprintln(c.stderr, "  -o, --output FILE     Output license file")
		fmt.Fprintln(c.stderr, "  -V, --version VERSION Version of the license")
		fmt.Fprintln(c.stderr, "  -v, --verbose         Verbose mode")
		fmt.Fprintln(c.stderr, "  -x, --hidden DATE     Hidden expiration (YYYY-MM-DD)")
		fmt.Fprintln(c.stderr, "      --config FILE     Configuration file")
		fmt.Fprintln(c.stderr, "      --metrics-file F  Write a Prometheus metrics snapshot to F")
		fmt.Fprintln(c.stderr, "  -h, --help            Display this screen")
	}

	for _, name := range []string{"g", "generate"} {
		fs.BoolVar(&opts.generate, name, false, "")
	}
	for _, name := range []string{"i", "input"} {
		fs.StringVar(&opts.input, name, "", "")
	}
	for _, name := range []string{"o", "output"} {
		fs.StringVar(&opts.output, name, "", "")
	}
	for _, name := range []string{"V", "version"} {
		fs.StringVar(&opts.version, name, "", "")
	}
	for _, name := range []string{"v", "verbose"} {
		fs.BoolVar(&opts.verbose, name, false, "")
	}
	for _, name := range []string{"x", "hidden"} {
		fs.StringVar(&opts.hidden, name, "", "")
	}
	fs.StringVar(&opts.configPath, "config", "", "")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func (c *cli) run(args []string) int {
	opts, err := c.parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 2
	}

	if !opts.generate && opts.input == "" {
		fmt.Fprintln(c.stderr, "Don't know what to do...")
		return 1
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	if opts.metricsFile != "" {
		cfg.Telemetry.MetricsFile = opts.metricsFile
	}

	// Human output goes to stdout; logs stay quiet unless asked for.
	level := "warn"
	if opts.verbose {
		level = cfg.Logging.Level
	}
	logger := infrastructure.NewLogger(c.stderr, level)

	otelConfig := infrastructure.NewOTelConfig(cfg.Telemetry, "license-gen")
	otelConfig.EnableMetrics = cfg.Telemetry.MetricsFile != ""
	providers, err := infrastructure.InitializeOTel(otelConfig, logger)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	runID := uuid.New().String()
	ctx := infrastructure.WithTraceID(context.Background(), runID)

	code := c.execute(ctx, cfg, opts, providers, logger)

	if cfg.Telemetry.MetricsFile != "" {
		if err := providers.WriteMetricsFile(cfg.Telemetry.MetricsFile); err != nil {
			fmt.Fprintf(c.stderr, "failed to write metrics: %v\n", err)
		}
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	return code
}

func (c *cli) execute(ctx context.Context, cfg *config.Config, opts options, providers *infrastructure.OTelProviders, logger *slog.Logger) int {
	keys := security.DefaultKeys()
	keys.Breakpoint = cfg.License.Breakpoint

	svc, err := license.NewService(append([]license.Option{
		license.WithKeys(keys),
		license.WithCurrentVersion(cfg.License.CurrentVersion),
		license.WithLogger(logger),
		license.WithMeter(providers.Meter),
		license.WithTracer(providers.Tracer),
	}, c.services...)...)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	overrides, err := license.ParseOverrides(opts.version, opts.hidden)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	store := files.NewManager(logger)

	var doc *document.Document
	if opts.input != "" {
		data, err := store.ReadLicense(opts.input)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}

		var report *license.Report
		doc, report, err = svc.Load(ctx, data)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		for _, id := range report.Migrations {
			fmt.Fprintf(c.stdout, "Migration applied: %s\n", id)
		}
		for _, a := range report.Advisories {
			fmt.Fprintln(c.stdout, a.Message)
		}
	} else {
		doc, err = svc.GenerateDefault(ctx)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
	}

	if err := svc.ApplyOverrides(ctx, doc, overrides); err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	status, err := svc.Validate(ctx, doc)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	c.printSummary(doc, status)

	if opts.output != "" {
		data, err := svc.Finalize(ctx, doc)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		size, err := store.WriteLicense(opts.output, data)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 1
		}
		fmt.Fprintf(c.stdout, "License file created. %d bytes\n", size)
	}

	if opts.verbose {
		fmt.Fprintln(c.stdout, svc.Dump(doc))
	}
	return 0
}

func (c *cli) printSummary(doc *document.Document, status expiry.Status) {
	if status.Visible != nil {
		fmt.Fprintf(c.stdout, "Expiration date: %s\n", status.Visible.UTC().Format(displayLayout))
	} else {
		fmt.Fprintln(c.stdout, "Expiration date: Never")
	}

	encryption := license.EncryptionFull
	if status.Hidden != nil {
		fmt.Fprintf(c.stdout, "Hidden Expiration date: %s\n", status.Hidden.UTC().Format(displayLayout))
		encryption = license.EncryptionRestricted
	}
	fmt.Fprintf(c.stdout, "Encryption: %s\n", encryption)

	if serial := doc.Serial(); serial == document.SerialOff {
		fmt.Fprintln(c.stdout, "The license will NOT ask for a HASP dongle")
	} else {
		fmt.Fprintf(c.stdout, "The HASP dongle associated with this license is %s\n", serial)
	}
}
