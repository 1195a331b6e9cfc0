package model

import "time"

// Symbol 期货合约标识，例如 "BTCUSDT"
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// PricePoint 价格序列中的单个点
type PricePoint struct {
	Timestamp int64   // 毫秒时间戳
	Price     float64 // 价格
}

// KLine 代表交易所返回的一根 K 线
type KLine struct {
	Symbol    Symbol // 所属交易对
	Interval  string // 周期，例如 "1m", "5m", "1h"
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	StartTime time.Time
	EndTime   time.Time // 交易所的 closeTime，即下一根开盘前 1ms
}

// Window 用户请求的观察窗口，以及用来采样它的 K 线周期和数量
type Window struct {
	Label    string        // 规范化后的窗口标签，例如 "40m", "4h", "2d"
	Duration time.Duration // 窗口长度
	Interval string        // 采样 K 线周期
	Limit    int           // 采样 K 线数量
}

// PriceSeries 把按时间排序的 K 线转换为价格路径：
// 第一根 K 线的开盘价作为起点，之后每根 K 线的收盘价依次跟随。
// 最后一根 K 线可能尚未收盘，其收盘价是 asOf 时刻的现价，时间戳取
// min(EndTime+1ms, asOf)，且不早于该 K 线开盘后 1ms。asOf 为零值时不截断。
func PriceSeries(klines []KLine, asOf time.Time) []PricePoint {
	if len(klines) == 0 {
		return nil
	}
	series := make([]PricePoint, 0, len(klines)+1)
	series = append(series, PricePoint{
		Timestamp: klines[0].StartTime.UnixMilli(),
		Price:     klines[0].Open,
	})
	for i, k := range klines {
		closedAt := k.EndTime.Add(time.Millisecond)
		if i == len(klines)-1 && !asOf.IsZero() && asOf.Before(closedAt) {
			closedAt = asOf
			if floor := k.StartTime.Add(time.Millisecond); closedAt.Before(floor) {
				closedAt = floor
			}
		}
		series = append(series, PricePoint{
			Timestamp: closedAt.UnixMilli(),
			Price:     k.Close,
		})
	}
	return series
}
