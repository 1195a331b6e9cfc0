package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"crypto-movers/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windows = []model.Window{{Label: "1h"}, {Label: "4h"}}

func symbolReport(symbol string, start, end float64, changes ...float64) model.SymbolReport {
	rep := model.SymbolReport{Symbol: model.Symbol(symbol)}
	for i, c := range changes {
		rep.Results = append(rep.Results, model.WindowResult{
			Symbol:     rep.Symbol,
			Window:     windows[i],
			StartPrice: start,
			EndPrice:   end,
			ChangePct:  c,
		})
	}
	return rep
}

func TestTableRenderer_Render(t *testing.T) {
	spiky := symbolReport("DOGEUSDT", 0.1, 0.08, -20, -22)
	spiky.Results[1].Spike = true
	spiky.Results[1].Deviation = 12.5

	list := model.RankedList{
		Windows: windows,
		Boosted: []model.SymbolReport{
			symbolReport("BTCUSDT", 60000, 63000, 5, 7.25),
			symbolReport("ETHUSDT", 3000, 3030, 1, -0.5),
		},
		Dropped: []model.SymbolReport{
			spiky,
			symbolReport("XRPUSDT", 0.5, 0.49, -2, -1),
		},
		Scanned:     42,
		Unavailable: []model.Unavailable{{Symbol: "BADUSDT", Reason: "timeout"}},
		UpdatedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, NewTableRenderer(&buf, "Top movers", false).Render(list))
	out := buf.String()

	assert.NotContains(t, out, clearScreen)
	assert.Contains(t, out, "Top movers")
	assert.Contains(t, out, "Δ 1h %")
	assert.Contains(t, out, "Δ 4h %")
	assert.Contains(t, out, "+7.25")
	assert.Contains(t, out, "63000")
	assert.Contains(t, out, "0.08")
	assert.Contains(t, out, "12.50 ⚠")
	assert.Contains(t, out, "scanned 42 · unavailable 1 · spikes excluded 0")

	// 涨幅榜在上，跌幅最大的在最后
	order := []string{"BTCUSDT", "ETHUSDT", "XRPUSDT", "DOGEUSDT"}
	last := -1
	for _, s := range order {
		idx := strings.Index(out, s)
		require.Greater(t, idx, last, s)
		last = idx
	}
}

func TestTableRenderer_Empty(t *testing.T) {
	var buf bytes.Buffer
	list := model.RankedList{Windows: windows[:1], UpdatedAt: time.Now()}
	require.NoError(t, NewTableRenderer(&buf, "Top movers", true).Render(list))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, clearScreen))
	assert.Contains(t, out, "-")
	assert.NotContains(t, out, "🔥")
	assert.NotContains(t, out, "❄️")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "+5.00", FormatChange(5))
	assert.Equal(t, "-0.13", FormatChange(-0.125001))
	assert.Equal(t, "+0.00", FormatChange(0))

	assert.Equal(t, "0.00001234", FormatPrice(0.00001234))
	assert.Equal(t, "63000.5", FormatPrice(63000.5))
}
