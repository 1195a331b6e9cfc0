package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"crypto-movers/internal/api"
	"crypto-movers/internal/data"
	"crypto-movers/internal/display"
	"crypto-movers/internal/model"
	"crypto-movers/internal/scanner"
	"crypto-movers/internal/service"
	"crypto-movers/internal/strategy"
	"crypto-movers/pkg/ta"
)

// flag 名 -> 配置 key
var flagBindings = map[string]string{
	"watch":           "watch.enabled",
	"interval":        "watch.interval",
	"count":           "scan.count",
	"no-spikes":       "scan.exclude_spikes",
	"spike-threshold": "scan.spike_threshold",
	"min-change":      "scan.min_change",
	"symbols":         "exchange.symbols",
	"quote":           "exchange.quote_asset",
	"log-level":       "log.level",
}

// positionalArgs 拆分后的位置参数
type positionalArgs struct {
	windows   []string
	minChange *float64
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var (
		configPath string
		cfg        *service.Config
		windows    []model.Window
	)

	rootCmd := &cobra.Command{
		Use:   "crypto-movers [flags] [window...] [threshold%]",
		Short: "Top boosted and dropped futures contracts over recent time windows",
		Long: `crypto-movers scans every trading USDT-margined futures contract, computes the price change
over one or more look-back windows and prints the top gainers and losers.

Windows are <int><unit> with unit m, h, d or w (default 1h). The first window ranks the table.
An optional N% argument sets the minimum absolute change a symbol needs to be listed.
Symbols whose price path deviates from a straight line by more than --spike-threshold percent
are flagged as spikes and can be removed with --no-spikes.`,
		Example: `  crypto-movers
  crypto-movers 40m 4h 2d
  crypto-movers 1h 3% --no-spikes --count 10
  crypto-movers 15m --watch --interval 60`,
		Args: func(cmd *cobra.Command, args []string) error {
			pos, err := splitArgs(args)
			if err != nil {
				return err
			}
			_, err = service.ParseWindows(pos.windows)
			return err
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := service.LoadConfig(v, configPath)
			if err != nil {
				return err
			}

			pos, err := splitArgs(args)
			if err != nil {
				return err
			}
			if len(pos.windows) > 0 {
				loaded.Scan.Windows = pos.windows
			}
			if pos.minChange != nil {
				loaded.Scan.MinChange = *pos.minChange
			}

			if err := loaded.Validate(); err != nil {
				return err
			}
			if windows, err = loaded.ParsedWindows(); err != nil {
				return err
			}
			if err := service.InitLogger(loaded.Log.Level); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// 参数已通过校验，之后的错误不再打印用法
			cmd.SilenceUsage = true
			defer func() { _ = service.Logger.Sync() }()

			return run(cmd.Context(), cmd.OutOrStdout(), cfg, windows)
		},
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "Configuration file path (default ./config/config.yaml if present)")
	flags.Bool("watch", false, "Refresh the table periodically until interrupted")
	flags.Float64("interval", service.DefaultWatchInterval, "Refresh interval in seconds for --watch")
	flags.Int("count", service.DefaultCount, "Number of boosted and dropped symbols to show")
	flags.Bool("no-spikes", false, "Exclude symbols whose price path contains a spike")
	flags.Float64("spike-threshold", service.DefaultSpikeThreshold, "Deviation from the straight start-to-end path, in percent, that marks a spike")
	flags.Float64("min-change", 0, "Minimum absolute change in percent to be listed (same as the N% argument)")
	flags.StringSlice("symbols", nil, "Comma separated symbols to scan instead of all trading contracts")
	flags.String("quote", service.DefaultQuoteAsset, "Quote asset used to discover contracts")
	flags.String("log-level", service.DefaultLogLevel, "Log level (debug, info, warn, error)")

	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	return rootCmd
}

// splitArgs 区分窗口参数和 "N%" 阈值参数，阈值最多出现一次
func splitArgs(args []string) (positionalArgs, error) {
	var pos positionalArgs
	for _, arg := range args {
		if !strings.HasSuffix(arg, "%") {
			pos.windows = append(pos.windows, arg)
			continue
		}
		if pos.minChange != nil {
			return positionalArgs{}, fmt.Errorf("threshold given more than once: %q", arg)
		}
		v, err := service.ParsePercentage(arg)
		if err != nil {
			return positionalArgs{}, err
		}
		pos.minChange = &v
	}
	return pos, nil
}

// run 组装各组件并执行一次扫描或进入 watch 循环
func run(ctx context.Context, out io.Writer, cfg *service.Config, windows []model.Window) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	logger := service.Logger

	connector := api.NewConnector(cfg.Exchange.RESTURL, cfg.Exchange.Timeout, logger.With(zap.String("component", "connector")))
	engine := data.NewDataEngine(connector, cfg.Exchange.MaxConcurrency, logger.With(zap.String("component", "data")))
	calc := ta.NewCalculator(cfg.Scan.SpikeThreshold, logger.With(zap.String("component", "ta")))
	ranker := strategy.NewRanker(strategy.RankConfig{
		Count:         cfg.Scan.Count,
		MinChange:     cfg.Scan.MinChange,
		ExcludeSpikes: cfg.Scan.ExcludeSpikes,
	}, logger.With(zap.String("component", "ranker")))
	renderer := display.NewTableRenderer(out, tableTitle(cfg, windows), cfg.Watch.Enabled)

	sc := scanner.New(connector, engine, calc, ranker, renderer, scanner.Options{
		Windows:    windows,
		QuoteAsset: cfg.Exchange.QuoteAsset,
		Symbols:    cfg.SymbolList(),
	}, logger)

	if cfg.Watch.Enabled {
		return sc.Watch(ctx, cfg.WatchInterval())
	}
	return sc.RunOnce(ctx)
}

func tableTitle(cfg *service.Config, windows []model.Window) string {
	labels := make([]string, 0, len(windows))
	for _, w := range windows {
		labels = append(labels, w.Label)
	}
	title := fmt.Sprintf("Top %d movers · %s", cfg.Scan.Count, strings.Join(labels, ", "))
	if cfg.Scan.MinChange > 0 {
		title += fmt.Sprintf(" · min %g%%", cfg.Scan.MinChange)
	}
	if cfg.Scan.ExcludeSpikes {
		title += " · spikes excluded"
	}
	return title
}
