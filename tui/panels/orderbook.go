package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/view"
	"github.com/zappabad/lobsim/tui/styles"
)

var (
	scrollUpKey   = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up"))
	scrollDownKey = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down"))
)

// OrderbookPanel displays the price ladder and recent trades.
type OrderbookPanel struct {
	snap         view.Snapshot
	trades       []core.Trade
	scrollOffset int
	focused      bool
	width        int
	height       int
	maxLevels    int
}

// NewOrderbookPanel creates a new orderbook panel.
func NewOrderbookPanel() *OrderbookPanel {
	return &OrderbookPanel{
		maxLevels: 10,
	}
}

// Init initializes the panel.
func (p *OrderbookPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *OrderbookPanel) Update(msg tea.Msg) (*OrderbookPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, scrollUpKey):
			if p.scrollOffset > 0 {
				p.scrollOffset--
			}
		case key.Matches(msg, scrollDownKey):
			if p.scrollOffset < max(len(p.snap.Bids), len(p.snap.Asks))-1 {
				p.scrollOffset++
			}
		}
	}
	return p, nil
}

func window(levels []core.Level, offset, n int) []core.Level {
	if offset >= len(levels) {
		return nil
	}
	levels = levels[offset:]
	if len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// View renders the panel.
func (p *OrderbookPanel) View() string {
	var content strings.Builder
	inst := p.snap.Instrument

	availableHeight := p.height - 12 // title, headers, trades, borders
	levelsToShow := min(max(availableHeight, 3), p.maxLevels)

	header := fmt.Sprintf("%8s %10s │ %-10s %-8s", "BidSz", "Bid", "Ask", "AskSz")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	bids := window(p.snap.Bids, p.scrollOffset, levelsToShow)
	asks := window(p.snap.Asks, p.scrollOffset, levelsToShow)

	for i := 0; i < max(len(bids), len(asks)); i++ {
		var bidSize, bidPrice, askPrice, askSize string
		if i < len(bids) {
			bidSize = fmt.Sprint(bids[i].Amount)
			bidPrice = formatPrice(inst, bids[i].Price)
		}
		if i < len(asks) {
			askPrice = formatPrice(inst, asks[i].Price)
			askSize = fmt.Sprint(asks[i].Amount)
		}

		bidPart := styles.BuyStyle.Render(fmt.Sprintf("%8s %10s", bidSize, bidPrice))
		askPart := styles.SellStyle.Render(fmt.Sprintf("%-10s %-8s", askPrice, askSize))
		content.WriteString(fmt.Sprintf("%s │ %s\n", bidPart, askPart))
	}

	if spread, ok := p.snap.Spread(); ok {
		content.WriteString(styles.MutedStyle.Render(fmt.Sprintf("spread %s  mid %s",
			formatPrice(inst, spread), formatPrice(inst, p.snap.Midprice))))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(styles.HeaderStyle.Render("Recent Trades"))
	content.WriteString("\n")

	tradesToShow := p.trades
	if len(tradesToShow) > 5 {
		tradesToShow = tradesToShow[len(tradesToShow)-5:]
	}
	for i := len(tradesToShow) - 1; i >= 0; i-- {
		tr := tradesToShow[i]
		var sideStyle lipgloss.Style
		if tr.TakerSide == core.SideBuy {
			sideStyle = styles.BuyStyle
		} else {
			sideStyle = styles.SellStyle
		}
		line := fmt.Sprintf("%s %8d @ %-10s", tr.Timestamp.Format("15:04:05"), tr.Amount, formatPrice(inst, tr.Price))
		content.WriteString(sideStyle.Render(line))
		content.WriteString("\n")
	}

	return styles.Panel("Ladder", content.String(), p.focused, p.width, p.height)
}

// SetFocus sets the focus state of the panel.
func (p *OrderbookPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *OrderbookPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot sets the book snapshot to display.
func (p *OrderbookPanel) SetSnapshot(s view.Snapshot) {
	p.snap = s
}

// SetTrades sets the recent trades, oldest first.
func (p *OrderbookPanel) SetTrades(trades []core.Trade) {
	p.trades = trades
}
