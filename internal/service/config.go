// internal/service/config.go
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"crypto-movers/internal/model"
)

// Config 全局配置：配置文件 < 环境变量 (MOVERS_*) < 命令行参数
type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Log      LogConfig      `mapstructure:"log"`
}

// ExchangeConfig 定义了交易所公共行情接口
type ExchangeConfig struct {
	RESTURL        string        `mapstructure:"rest_url"`
	QuoteAsset     string        `mapstructure:"quote_asset"`     // 只扫描该计价资产的合约
	Symbols        []string      `mapstructure:"symbols"`         // 非空时跳过自动发现，只扫描这些交易对
	Timeout        time.Duration `mapstructure:"timeout"`         // 单次请求超时
	MaxConcurrency int           `mapstructure:"max_concurrency"` // 同时进行的请求上限
}

// ScanConfig 定义了涨跌幅计算和排名参数
type ScanConfig struct {
	Windows        []string `mapstructure:"windows"` // 第一个为主窗口
	Count          int      `mapstructure:"count"`
	MinChange      float64  `mapstructure:"min_change"`      // 进入榜单的最小涨跌幅 (%)
	SpikeThreshold float64  `mapstructure:"spike_threshold"` // 尖刺判定阈值 (%)
	ExcludeSpikes  bool     `mapstructure:"exclude_spikes"`
}

// WatchConfig 定义了自动刷新
type WatchConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Interval float64 `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// 默认值
const (
	DefaultRESTURL        = "https://fapi.binance.com"
	DefaultQuoteAsset     = "USDT"
	DefaultTimeout        = 10 * time.Second
	DefaultMaxConcurrency = 20
	DefaultWindow         = "1h"
	DefaultCount          = 5
	DefaultSpikeThreshold = 5.0
	DefaultWatchInterval  = 30.0
	DefaultLogLevel       = "warn"
)

// SetDefaults 注册所有配置项的默认值 (AutomaticEnv 只覆盖已知的 key)
func SetDefaults(v *viper.Viper) {
	v.SetDefault("exchange.rest_url", DefaultRESTURL)
	v.SetDefault("exchange.quote_asset", DefaultQuoteAsset)
	v.SetDefault("exchange.symbols", []string{})
	v.SetDefault("exchange.timeout", DefaultTimeout)
	v.SetDefault("exchange.max_concurrency", DefaultMaxConcurrency)

	v.SetDefault("scan.windows", []string{DefaultWindow})
	v.SetDefault("scan.count", DefaultCount)
	v.SetDefault("scan.min_change", 0.0)
	v.SetDefault("scan.spike_threshold", DefaultSpikeThreshold)
	v.SetDefault("scan.exclude_spikes", false)

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.interval", DefaultWatchInterval)

	v.SetDefault("log.level", DefaultLogLevel)
}

// LoadConfig 读取并解析配置
// configPath 为空时在 ./config 和当前目录查找 config.yaml，找不到则只用默认值
func LoadConfig(v *viper.Viper, configPath string) (*Config, error) {
	// .env 不存在是正常情况
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix("MOVERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}

// Validate 校验配置，返回的错误会连同用法一起打印
func (c *Config) Validate() error {
	if c.Exchange.RESTURL == "" {
		return errors.New("exchange.rest_url is required")
	}
	if c.Exchange.QuoteAsset == "" && len(c.Exchange.Symbols) == 0 {
		return errors.New("exchange.quote_asset is required when no symbols are given")
	}
	if c.Exchange.Timeout <= 0 {
		return errors.New("exchange.timeout must be positive")
	}
	if c.Exchange.MaxConcurrency <= 0 {
		return errors.New("exchange.max_concurrency must be positive")
	}
	if len(c.Scan.Windows) == 0 {
		return errors.New("at least one window is required")
	}
	if _, err := ParseWindows(c.Scan.Windows); err != nil {
		return err
	}
	if c.Scan.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", c.Scan.Count)
	}
	if c.Scan.MinChange < 0 {
		return fmt.Errorf("min change must not be negative, got %v", c.Scan.MinChange)
	}
	if c.Scan.SpikeThreshold < 0 {
		return fmt.Errorf("spike threshold must not be negative, got %v", c.Scan.SpikeThreshold)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %v", c.Watch.Interval)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// ParsedWindows 返回解析后的窗口，调用前应先 Validate
func (c *Config) ParsedWindows() ([]model.Window, error) {
	return ParseWindows(c.Scan.Windows)
}

// WatchInterval 刷新间隔
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Watch.Interval * float64(time.Second))
}

// SymbolList 手动指定的交易对 (大写、去重、保持顺序)
func (c *Config) SymbolList() []model.Symbol {
	seen := make(map[string]bool, len(c.Exchange.Symbols))
	out := make([]model.Symbol, 0, len(c.Exchange.Symbols))
	for _, s := range c.Exchange.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, model.Symbol(s))
	}
	return out
}
