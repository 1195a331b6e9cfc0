package ta

import (
	"errors"
	"fmt"
	"math"
	"time"

	"crypto-movers/internal/model"

	"go.uber.org/zap"
)

var (
	// ErrInsufficientData 价格序列少于两个点
	ErrInsufficientData = errors.New("insufficient price data")
	// ErrNoStartPrice 起点价格缺失或为零，无法计算百分比
	ErrNoStartPrice = errors.New("start price unavailable")
)

// deviationEpsilon 以下的偏离视为浮点误差
const deviationEpsilon = 1e-9

// PercentChange 计算 (last-first)/first × 100
func PercentChange(series []model.PricePoint) (float64, error) {
	if len(series) < 2 {
		return 0, ErrInsufficientData
	}
	first := series[0].Price
	last := series[len(series)-1].Price
	if first <= 0 || math.IsNaN(first) || math.IsInf(first, 0) {
		return 0, ErrNoStartPrice
	}
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return 0, ErrInsufficientData
	}
	return (last - first) / first * 100, nil
}

// SpikeDeviation 计算中间点偏离首尾连线的最大距离，以起点价格的百分比表示。
// 时间戳严格递增时按时间插值，否则按下标插值。
func SpikeDeviation(series []model.PricePoint) float64 {
	n := len(series)
	if n < 3 {
		return 0
	}
	first := series[0]
	last := series[n-1]
	if first.Price <= 0 {
		return 0
	}

	byTime := timestampsIncreasing(series)
	span := float64(last.Timestamp - first.Timestamp)
	delta := last.Price - first.Price

	maxDev := 0.0
	for i := 1; i < n-1; i++ {
		var frac float64
		if byTime {
			frac = float64(series[i].Timestamp-first.Timestamp) / span
		} else {
			frac = float64(i) / float64(n-1)
		}
		expected := first.Price + delta*frac
		dev := math.Abs(series[i].Price-expected) / first.Price * 100
		if dev > maxDev {
			maxDev = dev
		}
	}

	if maxDev < deviationEpsilon {
		return 0
	}
	return maxDev
}

// IsSpike 偏离超过阈值 (%) 即为尖刺
func IsSpike(series []model.PricePoint, threshold float64) bool {
	return SpikeDeviation(series) > threshold
}

func timestampsIncreasing(series []model.PricePoint) bool {
	for i := 1; i < len(series); i++ {
		if series[i].Timestamp <= series[i-1].Timestamp {
			return false
		}
	}
	return true
}

// Calculator 负责把 K 线转换为窗口结果
type Calculator struct {
	SpikeThreshold float64 // 尖刺判定阈值 (%)
	Logger         *zap.Logger
}

// NewCalculator 初始化计算器
func NewCalculator(spikeThreshold float64, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		SpikeThreshold: spikeThreshold,
		Logger:         logger,
	}
}

// Evaluate 计算单个交易对在单个窗口上的涨跌幅和尖刺标记。
// asOf 为拉取 K 线的时间，用于定位未收盘 K 线的现价。
func (tc *Calculator) Evaluate(symbol model.Symbol, window model.Window, klines []model.KLine, asOf time.Time) (model.WindowResult, error) {
	series := model.PriceSeries(klines, asOf)

	change, err := PercentChange(series)
	if err != nil {
		return model.WindowResult{}, fmt.Errorf("%s %s: %w", symbol, window.Label, err)
	}

	dev := SpikeDeviation(series)
	result := model.WindowResult{
		Symbol:     symbol,
		Window:     window,
		StartPrice: series[0].Price,
		EndPrice:   series[len(series)-1].Price,
		ChangePct:  change,
		Deviation:  dev,
		Spike:      dev > tc.SpikeThreshold,
	}

	if result.Spike {
		tc.Logger.Debug("Spike detected",
			zap.String("symbol", symbol.String()),
			zap.String("window", window.Label),
			zap.Float64("deviation", dev),
			zap.Float64("threshold", tc.SpikeThreshold))
	}
	return result, nil
}

// Report 计算单个交易对所有窗口的结果，任一窗口失败则整个交易对不可用
func (tc *Calculator) Report(symbol model.Symbol, windows []model.Window, klines [][]model.KLine, asOf time.Time) (model.SymbolReport, error) {
	if len(klines) != len(windows) {
		return model.SymbolReport{}, fmt.Errorf("%s: %w", symbol, ErrInsufficientData)
	}
	report := model.SymbolReport{
		Symbol:  symbol,
		Results: make([]model.WindowResult, 0, len(windows)),
	}
	for i, w := range windows {
		res, err := tc.Evaluate(symbol, w, klines[i], asOf)
		if err != nil {
			return model.SymbolReport{}, err
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}
