package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gen2brain/pcmdev"
	"github.com/gen2brain/pcmdev/alsalib"
	"github.com/gen2brain/pcmdev/tinyalsa"
)

// app carries the configuration shared by all subcommands.
type app struct {
	v   *viper.Viper
	reg *prometheus.Registry
}

// rootCommand creates and returns the root command.
func rootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "pcmdevctl",
		Short:         "Inspect and exercise hardware PCM endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (yaml, toml or json)")
	flags.String("backend", "tinyalsa", "Control library: tinyalsa or alsa")
	flags.String("descriptor", pcmdev.DefaultDescriptorPath, "PCM descriptor listing")
	flags.String("platform", "", "YAML platform descriptor; endpoint directions come from the listing when empty")
	flags.String("notify", "", "Sysfs node receiving hardware state records, e.g. "+pcmdev.DefaultNotifyPath)
	flags.Int("retries", pcmdev.DefaultMaxRetries, "Discovery attempts before giving up")
	flags.Duration("retry-interval", pcmdev.DefaultRetryInterval, "Delay between discovery attempts")
	flags.Bool("metrics", false, "Print collected metrics on exit")
	flags.BoolP("debug", "d", false, "Enable debug output")

	if err := a.v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("error binding flags: %v", err))
	}

	a.v.SetEnvPrefix("PCMDEV")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path := a.v.GetString("config")
		if path == "" {
			return nil
		}

		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}

		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.reg == nil {
			return nil
		}

		return printMetrics(cmd.ErrOrStderr(), a.reg)
	}

	rootCmd.AddCommand(
		listCommand(a),
		infoCommand(a),
		chmapCommand(a),
		cycleCommand(a),
	)

	return rootCmd
}

func newBackend(name string) (pcmdev.Backend, error) {
	switch strings.ToLower(name) {
	case "tinyalsa":
		return tinyalsa.New(), nil
	case "alsa", "alsalib":
		return alsalib.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// manager builds the endpoint manager from the current configuration and runs discovery.
// The caller must Deinit it.
func (a *app) manager(ctx context.Context, stderr io.Writer) (*pcmdev.Manager, error) {
	level := slog.LevelWarn
	if a.v.GetBool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	backend, err := newBackend(a.v.GetString("backend"))
	if err != nil {
		return nil, err
	}

	cfg := pcmdev.Config{
		Backend:       backend,
		Source:        pcmdev.FileSource(a.v.GetString("descriptor")),
		Notifier:      pcmdev.NopNotifier{},
		Logger:        logger,
		MaxRetries:    a.v.GetInt("retries"),
		RetryInterval: a.v.GetDuration("retry-interval"),
	}

	if path := a.v.GetString("platform"); path != "" {
		info, err := pcmdev.LoadPlatformInfo(path)
		if err != nil {
			return nil, err
		}
		cfg.Info = info
	}

	if path := a.v.GetString("notify"); path != "" {
		cfg.Notifier = pcmdev.NewSysfsNotifier(path)
	}

	if a.v.GetBool("metrics") {
		a.reg = prometheus.NewRegistry()

		metrics, err := pcmdev.NewMetrics(a.reg)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		cfg.Metrics = metrics
	}

	m, err := pcmdev.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// resolve looks an endpoint up by registry index or by name.
func resolve(m *pcmdev.Manager, arg string) (*pcmdev.Endpoint, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return m.Endpoint(i)
	}

	return m.EndpointByName(arg)
}

// printMetrics writes every gathered sample as "name{labels} value".
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels(metric.GetLabel()), value(mf.GetType(), metric))
		}
	}

	return nil
}

func labels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

func value(typ dto.MetricType, m *dto.Metric) float64 {
	switch typ {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}

// holdOrDone waits for d or until ctx is cancelled.
func holdOrDone(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
