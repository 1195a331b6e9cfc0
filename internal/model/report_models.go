package model

import "time"

// WindowResult 单个交易对在单个窗口上的涨跌计算结果
type WindowResult struct {
	Symbol     Symbol
	Window     Window
	StartPrice float64 // 窗口起点价格
	EndPrice   float64 // 窗口终点 (最新) 价格
	ChangePct  float64 // 涨跌幅 (%)
	Deviation  float64 // 价格路径偏离首尾连线的最大幅度 (% of StartPrice)
	Spike      bool    // Deviation 超过阈值
}

// SymbolReport 单个交易对在所有请求窗口上的结果，Results[0] 为主窗口
type SymbolReport struct {
	Symbol  Symbol
	Results []WindowResult
}

// Primary 返回主窗口结果 (排名依据)
func (r SymbolReport) Primary() WindowResult {
	if len(r.Results) == 0 {
		return WindowResult{Symbol: r.Symbol}
	}
	return r.Results[0]
}

// Spiked 任一窗口被标记为尖刺即视为尖刺
func (r SymbolReport) Spiked() bool {
	for _, res := range r.Results {
		if res.Spike {
			return true
		}
	}
	return false
}

// MaxDeviation 所有窗口中最大的偏离幅度
func (r SymbolReport) MaxDeviation() float64 {
	maxDev := 0.0
	for _, res := range r.Results {
		if res.Deviation > maxDev {
			maxDev = res.Deviation
		}
	}
	return maxDev
}

// Unavailable 本轮被跳过的交易对及原因
type Unavailable struct {
	Symbol Symbol
	Window string
	Reason string
}

// RankedList 排名输出：涨幅榜 (降序) 与跌幅榜 (最负在前)，长度均不超过配置数量
type RankedList struct {
	Windows        []Window
	Boosted        []SymbolReport
	Dropped        []SymbolReport
	Scanned        int // 成功计算的交易对数量
	SpikesExcluded int // 因 --no-spikes 被剔除的数量
	Unavailable    []Unavailable
	UpdatedAt      time.Time
}

// Len 榜单中的交易对总数
func (l RankedList) Len() int {
	return len(l.Boosted) + len(l.Dropped)
}
