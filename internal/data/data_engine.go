package data

import (
	"context"
	"sort"
	"time"

	"crypto-movers/internal/model"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// KlineSource 提供 K 线数据 (api.Connector 实现)
type KlineSource interface {
	Klines(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]model.KLine, error)
}

// Series 单个交易对在单个窗口上的拉取结果
type Series struct {
	Symbol      model.Symbol
	WindowIndex int // 在请求窗口中的下标
	KLines      []model.KLine
	Err         error
}

// DataEngine 负责并发拉取所有 symbol × window 的 K 线
type DataEngine struct {
	source         KlineSource
	maxConcurrency int
	logger         *zap.Logger
}

// NewDataEngine 创建并初始化 DataEngine
func NewDataEngine(source KlineSource, maxConcurrency int, logger *zap.Logger) *DataEngine {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataEngine{
		source:         source,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Collect 对所有 symbol × window 发起请求，全部完成后返回。
// 单个请求失败只记录在对应 Series.Err 中，不影响其他请求。
// 结果按 symbol、窗口下标排序。
func (de *DataEngine) Collect(ctx context.Context, symbols []model.Symbol, windows []model.Window) []Series {
	started := time.Now()

	p := pool.NewWithResults[Series]().WithMaxGoroutines(de.maxConcurrency)
	for _, symbol := range symbols {
		for i, w := range windows {
			p.Go(func() Series {
				klines, err := de.source.Klines(ctx, symbol, w.Interval, w.Limit)
				if err != nil {
					de.logger.Debug("Klines fetch failed",
						zap.String("symbol", symbol.String()),
						zap.String("window", w.Label),
						zap.Error(err))
				}
				return Series{Symbol: symbol, WindowIndex: i, KLines: klines, Err: err}
			})
		}
	}
	results := p.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Symbol != results[j].Symbol {
			return results[i].Symbol < results[j].Symbol
		}
		return results[i].WindowIndex < results[j].WindowIndex
	})

	de.logger.Info("Klines collected",
		zap.Int("symbols", len(symbols)),
		zap.Int("windows", len(windows)),
		zap.Int("requests", len(results)),
		zap.Duration("elapsed", time.Since(started)))
	return results
}

// Group 按交易对聚合 Collect 的结果，返回每个交易对按窗口排列的 K 线。
// 任一窗口失败的交易对进入 failed，附带第一个错误。
func Group(series []Series, windowCount int) (ok map[model.Symbol][][]model.KLine, failed map[model.Symbol]Series) {
	ok = make(map[model.Symbol][][]model.KLine)
	failed = make(map[model.Symbol]Series)
	for _, s := range series {
		if _, bad := failed[s.Symbol]; bad {
			continue
		}
		if s.Err != nil {
			failed[s.Symbol] = s
			delete(ok, s.Symbol)
			continue
		}
		klines, exists := ok[s.Symbol]
		if !exists {
			klines = make([][]model.KLine, windowCount)
			ok[s.Symbol] = klines
		}
		if s.WindowIndex >= 0 && s.WindowIndex < windowCount {
			klines[s.WindowIndex] = s.KLines
		}
	}
	return ok, failed
}
