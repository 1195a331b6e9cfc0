package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-movers/internal/data"
	"crypto-movers/internal/display"
	"crypto-movers/internal/model"
	"crypto-movers/internal/strategy"
	"crypto-movers/pkg/ta"

	"go.uber.org/zap"
)

// SymbolSource 发现可扫描的交易对 (api.Connector 实现)
type SymbolSource interface {
	TradingSymbols(ctx context.Context, quote string) ([]model.Symbol, error)
}

// Options 扫描范围
type Options struct {
	Windows    []model.Window // 第一个为主窗口
	QuoteAsset string
	Symbols    []model.Symbol // 非空时不调用 SymbolSource
}

// Scanner 串联 拉取 -> 计算 -> 过滤 -> 排名 -> 渲染
type Scanner struct {
	symbols  SymbolSource
	engine   *data.DataEngine
	calc     *ta.Calculator
	ranker   *strategy.Ranker
	renderer display.Renderer
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New 创建 Scanner
func New(symbols SymbolSource, engine *data.DataEngine, calc *ta.Calculator, ranker *strategy.Ranker,
	renderer display.Renderer, opts Options, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		symbols:  symbols,
		engine:   engine,
		calc:     calc,
		ranker:   ranker,
		renderer: renderer,
		opts:     opts,
		logger:   logger.With(zap.String("component", "scanner")),
		now:      time.Now,
	}
}

// Scan 执行一轮拉取和计算，不渲染
func (s *Scanner) Scan(ctx context.Context) (model.RankedList, error) {
	if len(s.opts.Windows) == 0 {
		return model.RankedList{}, errors.New("no windows configured")
	}

	symbols := s.opts.Symbols
	if len(symbols) == 0 {
		var err error
		symbols, err = s.symbols.TradingSymbols(ctx, s.opts.QuoteAsset)
		if err != nil {
			return model.RankedList{}, fmt.Errorf("load symbols: %w", err)
		}
	}

	list := model.RankedList{Windows: s.opts.Windows}
	series := s.engine.Collect(ctx, symbols, s.opts.Windows)
	if err := ctx.Err(); err != nil {
		return model.RankedList{}, err
	}
	fetchedAt := s.now()

	grouped, failed := data.Group(series, len(s.opts.Windows))

	reports := make([]model.SymbolReport, 0, len(grouped))
	for _, symbol := range symbols {
		if f, bad := failed[symbol]; bad {
			list.Unavailable = append(list.Unavailable, model.Unavailable{
				Symbol: symbol,
				Window: s.opts.Windows[f.WindowIndex].Label,
				Reason: f.Err.Error(),
			})
			continue
		}
		klines, ok := grouped[symbol]
		if !ok {
			continue
		}
		rep, err := s.calc.Report(symbol, s.opts.Windows, klines, fetchedAt)
		if err != nil {
			list.Unavailable = append(list.Unavailable, model.Unavailable{Symbol: symbol, Reason: err.Error()})
			continue
		}
		reports = append(reports, rep)
	}
	list.Scanned = len(reports)

	for _, u := range list.Unavailable {
		s.logger.Debug("Symbol unavailable",
			zap.String("symbol", u.Symbol.String()),
			zap.String("window", u.Window),
			zap.String("reason", u.Reason))
	}
	if len(list.Unavailable) > 0 {
		s.logger.Warn("Some symbols were skipped", zap.Int("unavailable", len(list.Unavailable)), zap.Int("scanned", list.Scanned))
	}

	s.ranker.Rank(reports, &list)
	list.UpdatedAt = fetchedAt
	return list, nil
}

// RunOnce 执行一轮并渲染
func (s *Scanner) RunOnce(ctx context.Context) error {
	list, err := s.Scan(ctx)
	if err != nil {
		return err
	}
	return s.renderer.Render(list)
}

// Watch 循环执行：运行、等待 interval、再运行，直到 ctx 结束。
// 下一轮只在上一轮渲染完成后才开始计时，两轮不会重叠。
func (s *Scanner) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	s.logger.Info("Watch mode started", zap.Duration("interval", interval))

	for {
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("Scan failed, retrying on next tick", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Watch mode stopped")
			return nil
		case <-time.After(interval):
		}
	}
}
