package panels

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/view"
	"github.com/zappabad/lobsim/tui/styles"
)

// maxTickRows bounds the tick-spaced price axis. Wider books fall back to
// one row per populated level.
const maxTickRows = 48

// DepthRow is one price on the depth chart. Gap rows are empty ticks.
type DepthRow struct {
	Price  float64
	Side   core.Side
	Orders []core.RestingOrder
	Total  int64
	Gap    bool
}

// topOrders keeps the orders of the best depth price levels. Orders must be
// in price-time priority.
func topOrders(orders []core.RestingOrder, levels []core.Level, depth int) []core.RestingOrder {
	if depth <= 0 || depth > len(levels) {
		depth = len(levels)
	}
	n := 0
	for _, l := range levels[:depth] {
		n += l.Orders
	}
	return orders[:min(n, len(orders))]
}

func groupRows(side core.Side, orders []core.RestingOrder) []DepthRow {
	var rows []DepthRow
	for _, o := range orders {
		if len(rows) == 0 || math.Abs(rows[len(rows)-1].Price-o.Price) > market.PriceTolerance {
			rows = append(rows, DepthRow{Price: o.Price, Side: side})
		}
		r := &rows[len(rows)-1]
		r.Orders = append(r.Orders, o)
		r.Total += o.Amount
	}
	return rows
}

// DepthRows lays out the best depth levels per side from the highest price
// down: asks first, then bids. When the span fits, every tick between the
// extremes gets a row so the price axis is evenly spaced.
func DepthRows(s view.Snapshot, depth int) []DepthRow {
	asks := groupRows(core.SideSell, topOrders(s.AskOrders, s.Asks, depth))
	bids := groupRows(core.SideBuy, topOrders(s.BidOrders, s.Bids, depth))

	rows := make([]DepthRow, 0, len(asks)+len(bids))
	for i := len(asks) - 1; i >= 0; i-- {
		rows = append(rows, asks[i])
	}
	rows = append(rows, bids...)
	if len(rows) < 2 || s.Instrument == nil {
		return rows
	}

	inst := s.Instrument
	hi, lo := inst.Ticks(rows[0].Price), inst.Ticks(rows[len(rows)-1].Price)
	if hi-lo+1 > maxTickRows {
		return rows
	}

	out := make([]DepthRow, 0, hi-lo+1)
	next := 0
	for t := hi; t >= lo; t-- {
		if next < len(rows) && inst.Ticks(rows[next].Price) == t {
			out = append(out, rows[next])
			next++
			continue
		}
		out = append(out, DepthRow{Price: float64(t) * inst.MinTickSize, Gap: true})
	}
	return out
}

var segmentGlyphs = []string{"█", "▓"}

// RenderDepthChart draws the book as horizontal bars, one stacked segment
// per resting order, bids green and asks red.
func RenderDepthChart(s view.Snapshot, depth, width int) string {
	rows := DepthRows(s, depth)
	if len(rows) == 0 {
		return styles.MutedStyle.Render("Order book is empty")
	}

	var maxTotal int64
	labelWidth := 0
	for _, r := range rows {
		maxTotal = max(maxTotal, r.Total)
		labelWidth = max(labelWidth, len(formatPrice(s.Instrument, r.Price)))
	}
	totalWidth := len(fmt.Sprint(maxTotal))
	barWidth := max(width-labelWidth-totalWidth-4, 4)

	var b strings.Builder
	for i, r := range rows {
		label := fmt.Sprintf("%*s", labelWidth, formatPrice(s.Instrument, r.Price))
		b.WriteString(styles.ChartAxisStyle.Render(label + " │"))
		if !r.Gap {
			b.WriteString(renderBar(r, maxTotal, barWidth))
			b.WriteString(" ")
			b.WriteString(styles.SizeStyle.Render(fmt.Sprint(r.Total)))
		}
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderBar(r DepthRow, maxTotal int64, width int) string {
	segStyles := styles.BidSegmentStyles
	if r.Side == core.SideSell {
		segStyles = styles.AskSegmentStyles
	}

	var b strings.Builder
	var cum int64
	drawn := 0
	for i, o := range r.Orders {
		cum += o.Amount
		end := int(math.Round(float64(cum) / float64(maxTotal) * float64(width)))
		cells := max(end-drawn, 1)
		drawn += cells
		glyph := segmentGlyphs[i%len(segmentGlyphs)]
		b.WriteString(segStyles[i%len(segStyles)].Render(strings.Repeat(glyph, cells)))
	}
	return b.String()
}

var (
	deeperKey  = key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "deeper"))
	shallowKey = key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "shallower"))
)

// DepthPanel shows the depth chart for the latest snapshot.
type DepthPanel struct {
	snap    view.Snapshot
	depth   int
	focused bool
	width   int
	height  int
}

// NewDepthPanel creates a depth panel showing depth levels per side.
func NewDepthPanel(depth int) *DepthPanel {
	return &DepthPanel{depth: max(depth, 1)}
}

func (p *DepthPanel) Init() tea.Cmd { return nil }

// Update changes the depth when focused.
func (p *DepthPanel) Update(msg tea.Msg) (*DepthPanel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && p.focused {
		switch {
		case key.Matches(msg, deeperKey):
			p.depth++
		case key.Matches(msg, shallowKey):
			if p.depth > 1 {
				p.depth--
			}
		}
	}
	return p, nil
}

func (p *DepthPanel) View() string {
	code := "-"
	if p.snap.Instrument != nil {
		code = p.snap.Instrument.Code
	}
	title := fmt.Sprintf("Order Book (Depth = %d) for %s", p.depth, code)
	return styles.Panel(title, RenderDepthChart(p.snap, p.depth, p.width-4), p.focused, p.width, p.height)
}

func (p *DepthPanel) SetSnapshot(s view.Snapshot) { p.snap = s }
func (p *DepthPanel) SetFocus(focused bool)       { p.focused = focused }
func (p *DepthPanel) Depth() int                  { return p.depth }

func (p *DepthPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}
