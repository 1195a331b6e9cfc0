package ta

import (
	"math"
	"testing"
	"time"

	"crypto-movers/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(prices ...float64) []model.PricePoint {
	series := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		series[i] = model.PricePoint{Timestamp: int64(i) * 60_000, Price: p}
	}
	return series
}

func scale(series []model.PricePoint, k float64) []model.PricePoint {
	out := make([]model.PricePoint, len(series))
	for i, p := range series {
		out[i] = model.PricePoint{Timestamp: p.Timestamp, Price: p.Price * k}
	}
	return out
}

func TestPercentChange(t *testing.T) {
	change, err := PercentChange(points(100, 90, 110))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, change, 1e-9)

	change, err = PercentChange(points(200, 150))
	require.NoError(t, err)
	assert.InDelta(t, -25.0, change, 1e-9)
}

func TestPercentChange_ScaleInvariant(t *testing.T) {
	series := points(0.00123, 0.0014, 0.0011, 0.00131)
	base, err := PercentChange(series)
	require.NoError(t, err)

	for _, k := range []float64{1e-3, 0.5, 7, 1e6} {
		scaled, err := PercentChange(scale(series, k))
		require.NoError(t, err)
		assert.InDelta(t, base, scaled, 1e-9, "scale %v", k)
	}
}

func TestPercentChange_Guards(t *testing.T) {
	_, err := PercentChange(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = PercentChange(points(100))
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = PercentChange(points(0, 10))
	assert.ErrorIs(t, err, ErrNoStartPrice)

	_, err = PercentChange(points(math.NaN(), 10))
	assert.ErrorIs(t, err, ErrNoStartPrice)

	_, err = PercentChange(points(10, math.NaN()))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSpikeDeviation_LinearNeverSpikes(t *testing.T) {
	rising := points(100, 101, 102, 103, 104, 105)
	falling := points(50, 45, 40, 35, 30)
	flat := points(7, 7, 7, 7)

	for _, series := range [][]model.PricePoint{rising, falling, flat} {
		assert.Zero(t, SpikeDeviation(series))
		assert.False(t, IsSpike(series, 0))
		assert.False(t, IsSpike(series, 5))
	}
}

func TestSpikeDeviation_LinearInTime(t *testing.T) {
	// 不等间隔但价格与时间成正比
	series := []model.PricePoint{
		{Timestamp: 0, Price: 100},
		{Timestamp: 10, Price: 101},
		{Timestamp: 50, Price: 105},
		{Timestamp: 100, Price: 110},
	}
	assert.Zero(t, SpikeDeviation(series))
	assert.False(t, IsSpike(series, 0))
}

func TestSpikeDeviation_TwoPoints(t *testing.T) {
	assert.Zero(t, SpikeDeviation(points(100, 200)))
	assert.False(t, IsSpike(points(100, 200), 0))
}

func TestSpikeDeviation_DetectsSpike(t *testing.T) {
	// 起止价格相同，中间冲高 20%
	series := points(100, 100, 120, 100, 100)
	assert.InDelta(t, 20.0, SpikeDeviation(series), 1e-9)
	assert.True(t, IsSpike(series, 5))
	assert.False(t, IsSpike(series, 20))
	assert.False(t, IsSpike(series, 25))

	// 尖刺幅度与价格量级无关
	assert.InDelta(t, 20.0, SpikeDeviation(scale(series, 0.0001)), 1e-9)
}

func TestSpikeDeviation_IndexFallback(t *testing.T) {
	series := []model.PricePoint{
		{Timestamp: 5, Price: 100},
		{Timestamp: 5, Price: 110},
		{Timestamp: 5, Price: 120},
	}
	assert.Zero(t, SpikeDeviation(series))

	series[1].Price = 130
	assert.InDelta(t, 20.0, SpikeDeviation(series), 1e-9)
}

func kline(start time.Time, step time.Duration, open, close float64) model.KLine {
	return model.KLine{
		Symbol:    "BTCUSDT",
		Interval:  "5m",
		Open:      open,
		Close:     close,
		High:      math.Max(open, close),
		Low:       math.Min(open, close),
		StartTime: start,
		EndTime:   start.Add(step - time.Millisecond),
	}
}

func klinePath(prices ...float64) []model.KLine {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 5 * time.Minute
	out := make([]model.KLine, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out = append(out, kline(start.Add(time.Duration(i-1)*step), step, prices[i-1], prices[i]))
	}
	return out
}

func TestCalculator_Evaluate(t *testing.T) {
	calc := NewCalculator(5, nil)
	w := model.Window{Label: "15m", Duration: 15 * time.Minute, Interval: "5m", Limit: 3}

	res, err := calc.Evaluate("BTCUSDT", w, klinePath(100, 101, 102, 103), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, model.Symbol("BTCUSDT"), res.Symbol)
	assert.Equal(t, 100.0, res.StartPrice)
	assert.Equal(t, 103.0, res.EndPrice)
	assert.InDelta(t, 3.0, res.ChangePct, 1e-9)
	assert.False(t, res.Spike)

	res, err = calc.Evaluate("BTCUSDT", w, klinePath(100, 130, 100, 101), time.Time{})
	require.NoError(t, err)
	assert.True(t, res.Spike)
	assert.Greater(t, res.Deviation, 5.0)
}

func TestCalculator_EvaluateErrors(t *testing.T) {
	calc := NewCalculator(5, nil)
	w := model.Window{Label: "5m"}

	_, err := calc.Evaluate("ETHUSDT", w, nil, time.Time{})
	require.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "ETHUSDT 5m")

	_, err = calc.Evaluate("ETHUSDT", w, klinePath(0, 10), time.Time{})
	assert.ErrorIs(t, err, ErrNoStartPrice)
}

func TestCalculator_Report(t *testing.T) {
	calc := NewCalculator(5, nil)
	windows := []model.Window{{Label: "5m"}, {Label: "15m"}}

	rep, err := calc.Report("SOLUSDT", windows, [][]model.KLine{
		klinePath(10, 11),
		klinePath(10, 14, 10, 9),
	}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)
	assert.InDelta(t, 10.0, rep.Primary().ChangePct, 1e-9)
	assert.True(t, rep.Spiked())

	_, err = calc.Report("SOLUSDT", windows, [][]model.KLine{klinePath(10, 11), nil}, time.Time{})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = calc.Report("SOLUSDT", windows, [][]model.KLine{klinePath(10, 11)}, time.Time{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

// formingKlines 生成 n 根 5m K 线，价格每分钟 +1，最后一根只走了 elapsed
func formingKlines(n int, elapsed time.Duration) ([]model.KLine, time.Time) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 5 * time.Minute
	priceAt := func(t time.Time) float64 { return 100 + t.Sub(start).Minutes() }

	klines := make([]model.KLine, 0, n)
	for i := 0; i < n; i++ {
		open := start.Add(time.Duration(i) * step)
		closeAt := open.Add(step)
		if i == n-1 {
			closeAt = open.Add(elapsed)
		}
		klines = append(klines, kline(open, step, priceAt(open), priceAt(closeAt)))
	}
	return klines, start.Add(time.Duration(n-1)*step + elapsed)
}

func TestCalculator_FormingLastKline(t *testing.T) {
	klines, now := formingKlines(12, time.Minute)
	calc := NewCalculator(1, nil)
	w := model.Window{Label: "1h", Duration: time.Hour, Interval: "5m", Limit: 12}

	res, err := calc.Evaluate("BTCUSDT", w, klines, now)
	require.NoError(t, err)
	assert.Zero(t, res.Deviation)
	assert.False(t, res.Spike)
	assert.InDelta(t, 56.0, res.ChangePct, 1e-9)

	// 按收盘时间定位未收盘 K 线会把线性路径误判为尖刺
	stale := SpikeDeviation(model.PriceSeries(klines, time.Time{}))
	assert.Greater(t, stale, 1.0)
}

func TestPriceSeries_AsOf(t *testing.T) {
	klines, now := formingKlines(3, 2*time.Minute)
	series := model.PriceSeries(klines, now)
	require.Len(t, series, 4)
	assert.Equal(t, now.UnixMilli(), series[3].Timestamp)
	assert.Equal(t, klines[1].EndTime.Add(time.Millisecond).UnixMilli(), series[2].Timestamp)

	// 本地时钟落后于交易所时，不早于该 K 线开盘
	last := klines[2]
	series = model.PriceSeries(klines, last.StartTime.Add(-time.Minute))
	assert.Equal(t, last.StartTime.Add(time.Millisecond).UnixMilli(), series[3].Timestamp)
	assert.True(t, timestampsIncreasing(series))

	// 已收盘的 K 线不受 asOf 影响
	series = model.PriceSeries(klines, last.EndTime.Add(time.Hour))
	assert.Equal(t, last.EndTime.Add(time.Millisecond).UnixMilli(), series[3].Timestamp)
}
