package display

import (
	"fmt"
	"io"
	"time"

	"crypto-movers/internal/model"
	"crypto-movers/internal/strategy"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

const clearScreen = "\033[2J\033[H"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	boostedStyle = cellStyle.Foreground(lipgloss.Color("#10B981"))
	droppedStyle = cellStyle.Foreground(lipgloss.Color("#EF4444"))
	spikeStyle   = cellStyle.Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	mutedStyle   = cellStyle.Foreground(lipgloss.Color("#6B7280"))

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
)

// Renderer 输出一轮排名结果
type Renderer interface {
	Render(list model.RankedList) error
}

// TableRenderer 以终端表格输出榜单
type TableRenderer struct {
	out   io.Writer
	title string
	clear bool // watch 模式下每次重绘前清屏
}

// NewTableRenderer 创建表格渲染器
func NewTableRenderer(out io.Writer, title string, clear bool) *TableRenderer {
	return &TableRenderer{out: out, title: title, clear: clear}
}

// row 表格中的一行及其方向，用于着色
type row struct {
	cells     []string
	direction strategy.Direction
	spike     bool
}

// Render 涨幅榜在上 (降序)，跌幅榜在下 (最负的在最后)，整体按涨跌幅降序
func (r *TableRenderer) Render(list model.RankedList) error {
	rows := buildRows(list)
	changeCols := len(list.Windows)
	devCol := 2 + changeCols + 2

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers(list.Windows)...).
		StyleFunc(func(rowIdx, col int) lipgloss.Style {
			if rowIdx == table.HeaderRow {
				return headerStyle
			}
			if rowIdx < 0 || rowIdx >= len(rows) {
				return cellStyle
			}
			rw := rows[rowIdx]
			switch {
			case col == devCol && rw.spike:
				return spikeStyle
			case col >= 2 && col < 2+changeCols && rw.direction == strategy.DirBoosted:
				return boostedStyle
			case col >= 2 && col < 2+changeCols && rw.direction == strategy.DirDropped:
				return droppedStyle
			case rw.direction == strategy.DirFlat:
				return mutedStyle
			}
			return cellStyle
		})
	for _, rw := range rows {
		t.Row(rw.cells...)
	}

	if r.clear {
		if _, err := io.WriteString(r.out, clearScreen); err != nil {
			return fmt.Errorf("clear screen: %w", err)
		}
	}
	if _, err := fmt.Fprintf(r.out, "%s\n%s\n%s\n",
		titleStyle.Render(fmt.Sprintf("%s (updated %s)", r.title, list.UpdatedAt.Local().Format(time.DateTime))),
		t.String(),
		footer(list)); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

func headers(windows []model.Window) []string {
	h := []string{"", "Symbol"}
	for _, w := range windows {
		h = append(h, fmt.Sprintf("Δ %s %%", w.Label))
	}
	return append(h, "Start", "Last", "Dev %")
}

func buildRows(list model.RankedList) []row {
	columns := 2 + len(list.Windows) + 3
	if list.Len() == 0 {
		cells := make([]string, columns)
		for i := range cells {
			cells[i] = "-"
		}
		return []row{{cells: cells, direction: strategy.DirFlat}}
	}

	rows := make([]row, 0, list.Len())
	for _, rep := range list.Boosted {
		rows = append(rows, newRow("🔥", rep, strategy.DirBoosted))
	}
	for i := len(list.Dropped) - 1; i >= 0; i-- {
		rows = append(rows, newRow("❄️", list.Dropped[i], strategy.DirDropped))
	}
	return rows
}

func newRow(marker string, rep model.SymbolReport, dir strategy.Direction) row {
	cells := []string{marker, rep.Symbol.String()}
	for _, res := range rep.Results {
		cells = append(cells, FormatChange(res.ChangePct))
	}
	p := rep.Primary()
	dev := fmt.Sprintf("%.2f", rep.MaxDeviation())
	if rep.Spiked() {
		dev += " ⚠"
	}
	cells = append(cells, FormatPrice(p.StartPrice), FormatPrice(p.EndPrice), dev)
	return row{cells: cells, direction: dir, spike: rep.Spiked()}
}

func footer(list model.RankedList) string {
	return mutedStyle.UnsetPadding().Render(fmt.Sprintf("scanned %d · unavailable %d · spikes excluded %d",
		list.Scanned, len(list.Unavailable), list.SpikesExcluded))
}

// FormatChange 带符号，两位小数
func FormatChange(pct float64) string {
	return fmt.Sprintf("%+.2f", pct)
}

// FormatPrice 按交易所原始精度输出，不使用科学计数法
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).String()
}
