package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/lobsim/internal/orderbook/view"
	"github.com/zappabad/lobsim/internal/simulation"
	"github.com/zappabad/lobsim/tui/styles"
)

// StatsPanel shows running simulation totals next to the book summary.
type StatsPanel struct {
	snap    view.Snapshot
	result  simulation.Result
	dropped int64
	focused bool
	width   int
	height  int
}

// NewStatsPanel creates a new stats panel.
func NewStatsPanel() *StatsPanel {
	return &StatsPanel{}
}

// Init initializes the panel.
func (p *StatsPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *StatsPanel) Update(msg tea.Msg) (*StatsPanel, tea.Cmd) {
	return p, nil
}

type statRow struct {
	label string
	value string
}

func (p *StatsPanel) rows() []statRow {
	inst := p.snap.Instrument
	r := p.result

	price := func(v float64, ok bool) string {
		if !ok {
			return "-"
		}
		return formatPrice(inst, v)
	}
	vwap, hasVWAP := r.VWAP()

	name := "-"
	if inst != nil {
		name = fmt.Sprintf("%s (%s)", inst.Code, inst.Name)
	}

	return []statRow{
		{"Instrument", name},
		{"Sim time", r.LastOrder.Format("15:04:05.000")},
		{"Orders", fmt.Sprintf("%d (%d limit / %d market)", r.Orders, r.Limit, r.Market)},
		{"Sides", fmt.Sprintf("%d buy / %d sell", r.Buys, r.Sells)},
		{"Outcomes", fmt.Sprintf("%d filled / %d rested / %d rejected", r.Filled, r.Rested, r.Rejected)},
		{"Invalid", fmt.Sprint(r.Invalid)},
		{"Trades", fmt.Sprintf("%d (vol %d)", r.Trades, r.Volume)},
		{"VWAP", price(vwap, hasVWAP)},
		{"Best bid", price(p.snap.BestBid, p.snap.HasBestBid)},
		{"Best ask", price(p.snap.BestAsk, p.snap.HasBestAsk)},
		{"Midprice", price(p.snap.Midprice, p.snap.HasMid)},
		{"Resting", fmt.Sprintf("%d bid / %d ask orders", p.snap.BidOrderCount, p.snap.AskOrderCount)},
		{"Liquidity", fmt.Sprintf("%d bid / %d ask", p.snap.BidLiquidity, p.snap.AskLiquidity)},
		{"Interarrival", r.MeanInterarrival().String()},
		{"Dropped", fmt.Sprint(p.dropped)},
	}
}

// View renders the panel.
func (p *StatsPanel) View() string {
	var content strings.Builder
	rows := p.rows()
	for i, row := range rows {
		content.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%-13s", row.label)))
		content.WriteString(styles.ValueStyle.Render(row.value))
		if i < len(rows)-1 {
			content.WriteString("\n")
		}
	}
	return styles.Panel("Simulation", content.String(), p.focused, p.width, p.height)
}

// SetFocus sets the focus state of the panel.
func (p *StatsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *StatsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot sets the book snapshot summarized by the panel.
func (p *StatsPanel) SetSnapshot(s view.Snapshot) {
	p.snap = s
}

// SetResult sets the running simulation result.
func (p *StatsPanel) SetResult(r simulation.Result, droppedTrades int64) {
	p.result = r
	p.dropped = droppedTrades
}
