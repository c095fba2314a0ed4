package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitchain/packages/builtin"
	"github.com/abdul-hamid-achik/hitchain/packages/core/config"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
	"github.com/abdul-hamid-achik/hitchain/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitchain/packages/notify"
	"github.com/abdul-hamid-achik/hitchain/packages/output"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run hitchain suites",
	Long: `Run the suites defined in .json, .yaml or .yml files. Steps of a
suite run in order; the first step that fails for good aborts its suite.

Examples:
  hitchain run countries.json
  hitchain run ./suites/ --output junit --output-file report.xml
  hitchain run smoke.yaml --silent --request-id ci-1234
  hitchain run ./suites/ --watch
  hitchain run ./suites/ --metrics-file metrics.json --prometheus-file hitchain.prom
  hitchain run ./suites/ --slack-webhook https://hooks.slack.com/... --notify-on failure
  hitchain run ./suites/ --output html --output-file report.html

Settings are read from .hitchain.json, hitchain.json, .hitchain.yaml or
hitchain.yaml, then from HITCHAIN_* environment variables (the process
environment first, then the env file), then from flags.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	configFlag         string
	envFileFlag        string
	outputFlag         string
	outputFileFlag     string
	verboseFlag        bool
	silentFlag         bool
	noColorFlag        bool
	timeoutFlag        string
	noRedirectsFlag    bool
	insecureFlag       bool
	proxyFlag          string
	rateFlag           float64
	requestIDFlag      string
	bailFlag           bool
	watchFlag          bool
	metricsFileFlag    string
	prometheusFileFlag string
	slackWebhookFlag   string
	slackChannelFlag   string
	teamsWebhookFlag   string
	notifyOnFlag       string
)

func init() {
	runCmd.Flags().StringVar(&configFlag, "config", "", "Path to config file")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", "", "Read HITCHAIN_* variables from this file (default: .env when present)")

	// Output flags
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "console", "Output format: console, json, junit, tap, html (env: HITCHAIN_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "List passed assertions too")
	runCmd.Flags().BoolVarP(&silentFlag, "silent", "s", false, "Suppress step progress lines (env: HITCHAIN_SILENT)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output (env: HITCHAIN_NO_COLOR)")
	runCmd.Flags().StringVar(&requestIDFlag, "request-id", "", "Prefix for progress lines and errors (default: a fresh UUID per suite)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", false, "Stop after the first failed suite")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run")

	// Network flags
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", "30s", "Request timeout (e.g., 30s, 1m) (env: HITCHAIN_TIMEOUT in ms)")
	runCmd.Flags().BoolVar(&noRedirectsFlag, "no-redirects", false, "Do not follow redirects")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", false, "Disable SSL certificate validation (env: HITCHAIN_INSECURE)")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", "", "Proxy URL for HTTP requests (env: HITCHAIN_PROXY)")
	runCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 0, "Maximum requests per second, retries included (env: HITCHAIN_RATE)")

	// Metrics flags
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", "", "Write attempt metrics as JSON (env: HITCHAIN_METRICS_FILE)")
	runCmd.Flags().StringVar(&prometheusFileFlag, "prometheus-file", "", "Write attempt metrics in the Prometheus text format")

	// Notification flags
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", "", "Post a run summary to this Slack webhook (env: HITCHAIN_SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", "", "Slack channel override")
	runCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", "", "Post a run summary to this Microsoft Teams webhook (env: HITCHAIN_TEAMS_WEBHOOK)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", "failure", "When to notify: always, failure, success, recovery (env: HITCHAIN_NOTIFY_ON)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, lookup, err := resolveConfig(cmd)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{
		cfg:       cfg,
		stdout:    cmd.OutOrStdout(),
		progress:  output.NewProgressLogger(output.ProgressWithWriter(cmd.ErrOrStderr()), output.ProgressWithNoColor(cfg.GetNoColor())),
		funcs:     envFunctions(lookup),
		requestID: requestIDFlag,
		bail:      bailFlag,
		verbose:   verboseFlag,
	}

	runOnce := func() (int, error) {
		files, err := collectFiles(args)
		if err != nil {
			return ExitParseError, err
		}
		if len(files) == 0 {
			return ExitParseError, fmt.Errorf("no suite files (.json, .yaml, .yml) found")
		}

		collector, err := s.startMetrics(prometheusFileFlag)
		if err != nil {
			return ExitConfigError, err
		}

		outcome, err := s.runFiles(ctx, files, outputFileFlag)
		if err != nil {
			return ExitConfigError, err
		}

		if collector != nil {
			if err := collector.Flush(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to export metrics: %v\n", err)
			}
			_ = collector.Close()
		}

		if notifier != nil {
			if err := notifier.Notify(outcome.summary()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to send notification: %v\n", err)
			}
		}
		return outcome.code, nil
	}

	code, err := runOnce()
	if !watchFlag {
		if code == ExitSuccess && err == nil {
			return nil
		}
		return &ExitError{Code: code, Err: err, Reported: err == nil}
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}

	return watch(ctx, cmd, args, func() {
		if _, err := runOnce(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}

// resolveConfig layers the config file, HITCHAIN_* variables and the flags
// that were set explicitly. The returned lookup also serves env() in suites.
func resolveConfig(cmd *cobra.Command) (*config.Config, func(string) (string, bool), error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, nil, err
	}

	envFile, required := envFileFlag, true
	if envFile == "" {
		envFile, required = config.DefaultEnvFile, false
	}
	lookup, err := config.EnvLookup(envFile, required)
	if err != nil {
		return nil, nil, err
	}

	envConfig, err := config.FromEnv(lookup)
	if err != nil {
		return nil, nil, err
	}

	flagConfig, err := configFromFlags(cmd)
	if err != nil {
		return nil, nil, err
	}

	cfg := fileConfig.Merge(envConfig).Merge(flagConfig)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, lookup, nil
}

// envFunctions returns the builtin functions with env() reading the process
// environment and then the env file.
func envFunctions(lookup func(string) (string, bool)) *builtin.Registry {
	funcs := builtin.NewRegistry()
	funcs.Register("env", builtin.EnvFunc(lookup))
	return funcs
}

func configFromFlags(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	c := &config.Config{}

	if flags.Changed("timeout") {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		c.Timeout = int(d.Milliseconds())
	}
	if flags.Changed("no-redirects") {
		c.FollowRedirects = config.BoolPtr(!noRedirectsFlag)
	}
	if flags.Changed("insecure") {
		c.ValidateSSL = config.BoolPtr(!insecureFlag)
	}
	if flags.Changed("silent") {
		c.Silent = config.BoolPtr(silentFlag)
	}
	if flags.Changed("no-color") {
		c.NoColor = config.BoolPtr(noColorFlag)
	}
	if flags.Changed("proxy") {
		c.Proxy = proxyFlag
	}
	if flags.Changed("rate") {
		c.Rate = rateFlag
	}
	if flags.Changed("output") {
		c.Output = outputFlag
	}
	if flags.Changed("metrics-file") {
		c.MetricsFile = metricsFileFlag
	}
	if flags.Changed("slack-webhook") {
		c.SlackWebhook = slackWebhookFlag
	}
	if flags.Changed("teams-webhook") {
		c.TeamsWebhook = teamsWebhookFlag
	}
	if flags.Changed("notify-on") {
		c.NotifyOn = notifyOnFlag
	}
	return c, nil
}

// buildNotifier returns nil when no webhook is configured.
func buildNotifier(cfg *config.Config) (*notify.Manager, error) {
	if cfg.SlackWebhook == "" && cfg.TeamsWebhook == "" {
		return nil, nil
	}
	notifyOn, err := notify.ParseNotifyOn(cfg.NotifyOn)
	if err != nil {
		return nil, err
	}

	m := notify.NewManager(notifyOn)
	if cfg.SlackWebhook != "" {
		var slackOpts []notify.SlackOption
		if slackChannelFlag != "" {
			slackOpts = append(slackOpts, notify.WithSlackChannel(slackChannelFlag))
		}
		m.AddNotifier(notify.NewSlackNotifier(cfg.SlackWebhook, slackOpts...))
	}
	if cfg.TeamsWebhook != "" {
		m.AddNotifier(notify.NewTeamsNotifier(cfg.TeamsWebhook))
	}
	return m, nil
}

// startMetrics returns nil when no metrics output is configured.
func (s *session) startMetrics(prometheusFile string) (*metrics.Collector, error) {
	var exporters []metrics.Exporter
	if s.cfg.MetricsFile != "" {
		if err := ensureDir(s.cfg.MetricsFile); err != nil {
			return nil, err
		}
		exporters = append(exporters, metrics.NewJSONExporter(metrics.WithJSONFile(s.cfg.MetricsFile)))
	}
	if prometheusFile != "" {
		if err := ensureDir(prometheusFile); err != nil {
			return nil, err
		}
		exporters = append(exporters, metrics.NewPrometheusExporter(metrics.WithPrometheusFile(prometheusFile)))
	}

	if len(exporters) == 0 {
		s.collector = nil
		return nil, nil
	}
	s.collector = metrics.NewCollector(exporters...)
	return s.collector, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create directory for %s: %w", path, err)
	}
	return nil
}

// openOutput returns the writer for formatted results. The file, if any, is
// truncated on every run.
func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	if err := ensureDir(path); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && suite.IsSuiteFile(path) && !isConfigFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if suite.IsSuiteFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

// isConfigFile keeps project config files out of directory scans.
func isConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range config.ConfigFilenames {
		if base == name {
			return true
		}
	}
	return false
}
