package strategy

import (
	"fmt"

	"crypto-movers/internal/model"
)

// Direction 交易对在主窗口上的方向
type Direction string

const (
	DirBoosted Direction = "BOOSTED" // 上涨且达到最小涨幅
	DirDropped Direction = "DROPPED" // 下跌且达到最小跌幅
	DirFlat    Direction = "FLAT"    // 其余
)

func (d Direction) String() string {
	return string(d)
}

// Classify 根据涨跌幅和最小变动阈值 (%) 判断方向
func Classify(changePct, minChange float64) Direction {
	switch {
	case changePct > 0 && changePct >= minChange:
		return DirBoosted
	case changePct < 0 && changePct <= -minChange:
		return DirDropped
	default:
		return DirFlat
	}
}

// RankConfig 定义了排名参数
type RankConfig struct {
	Count         int     // 涨幅榜和跌幅榜各自的最大长度
	MinChange     float64 // 进入榜单的最小涨跌幅 (%)
	ExcludeSpikes bool    // 剔除任一窗口被标记为尖刺的交易对
}

// Entry 是榜单中的一行，用于日志和调试输出
type Entry struct {
	Direction Direction
	Report    model.SymbolReport
}

func (e Entry) String() string {
	p := e.Report.Primary()
	return fmt.Sprintf("%s [%s | %s] %+.2f%% (%g -> %g) dev %.2f%%",
		e.Report.Symbol, e.Direction, p.Window.Label, p.ChangePct, p.StartPrice, p.EndPrice, e.Report.MaxDeviation())
}
