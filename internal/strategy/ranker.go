package strategy

import (
	"sort"

	"crypto-movers/internal/model"

	"go.uber.org/zap"
)

// Ranker 根据主窗口涨跌幅选出涨幅榜和跌幅榜
type Ranker struct {
	cfg    RankConfig
	logger *zap.Logger
}

// NewRanker 初始化排名器
func NewRanker(cfg RankConfig, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{cfg: cfg, logger: logger}
}

// Rank 填充 list.Boosted / list.Dropped / list.SpikesExcluded。
// 尖刺交易对在 ExcludeSpikes 时直接移出候选，而不是降低其分数。
func (r *Ranker) Rank(reports []model.SymbolReport, list *model.RankedList) {
	boosted := make([]model.SymbolReport, 0)
	dropped := make([]model.SymbolReport, 0)
	excluded := 0

	for _, rep := range reports {
		if len(rep.Results) == 0 {
			continue
		}
		if r.cfg.ExcludeSpikes && rep.Spiked() {
			excluded++
			r.logger.Debug("Spike excluded", zap.String("symbol", rep.Symbol.String()), zap.Float64("deviation", rep.MaxDeviation()))
			continue
		}
		switch Classify(rep.Primary().ChangePct, r.cfg.MinChange) {
		case DirBoosted:
			boosted = append(boosted, rep)
		case DirDropped:
			dropped = append(dropped, rep)
		}
	}

	// 涨幅榜降序，跌幅榜升序 (最负在前)，相同涨跌幅按名称排序
	sort.Slice(boosted, func(i, j int) bool {
		ci, cj := boosted[i].Primary().ChangePct, boosted[j].Primary().ChangePct
		if ci != cj {
			return ci > cj
		}
		return boosted[i].Symbol < boosted[j].Symbol
	})
	sort.Slice(dropped, func(i, j int) bool {
		ci, cj := dropped[i].Primary().ChangePct, dropped[j].Primary().ChangePct
		if ci != cj {
			return ci < cj
		}
		return dropped[i].Symbol < dropped[j].Symbol
	})

	list.Boosted = truncate(boosted, r.cfg.Count)
	list.Dropped = truncate(dropped, r.cfg.Count)
	list.SpikesExcluded = excluded

	for _, rep := range list.Boosted {
		r.logger.Debug("Ranked", zap.Stringer("entry", Entry{Direction: DirBoosted, Report: rep}))
	}
	for _, rep := range list.Dropped {
		r.logger.Debug("Ranked", zap.Stringer("entry", Entry{Direction: DirDropped, Report: rep}))
	}
}

func truncate(reports []model.SymbolReport, n int) []model.SymbolReport {
	if n < 0 {
		n = 0
	}
	if len(reports) > n {
		return reports[:n]
	}
	return reports
}
