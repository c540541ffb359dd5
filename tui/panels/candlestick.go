package panels

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/tui/styles"
)

// Candle represents a single candlestick.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Start  time.Time
}

// CandlestickPanel charts trade prices bucketed by simulated time.
type CandlestickPanel struct {
	inst    *market.Instrument
	candles []Candle

	// Current candle being built
	current *Candle
	period  time.Duration

	focused bool
	width   int
	height  int

	maxCandles int
}

// NewCandlestickPanel creates a chart with candles of the given period.
func NewCandlestickPanel(inst *market.Instrument, period time.Duration) *CandlestickPanel {
	if period <= 0 {
		period = 30 * time.Second
	}
	return &CandlestickPanel{
		inst:       inst,
		period:     period,
		maxCandles: 50,
	}
}

// Init initializes the panel.
func (p *CandlestickPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *CandlestickPanel) Update(msg tea.Msg) (*CandlestickPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *CandlestickPanel) View() string {
	var content string
	all := p.Candles()
	if len(all) == 0 {
		content = styles.MutedStyle.Render("No trading data yet...")
	} else {
		content = p.renderChart(p.width-4, max(p.height-4, 5), all)
	}
	return styles.Panel(fmt.Sprintf("Chart (%s candles)", p.period), content, p.focused, p.width, p.height)
}

// Candles returns closed candles plus the one being built.
func (p *CandlestickPanel) Candles() []Candle {
	out := append([]Candle(nil), p.candles...)
	if p.current != nil {
		out = append(out, *p.current)
	}
	return out
}

func (p *CandlestickPanel) renderChart(width, height int, candles []Candle) string {
	// Reserve space: price axis plus separator
	labelWidth := 10
	chartWidth := max(width-labelWidth-1, 2)

	// Each candle takes a column and a spacer
	candlesToShow := min(max(chartWidth/2, 1), len(candles))
	display := candles[len(candles)-candlesToShow:]

	minPrice, maxPrice := display[0].Low, display[0].High
	for _, c := range display {
		minPrice = min(minPrice, c.Low)
		maxPrice = max(maxPrice, c.High)
	}

	tick := 0.01
	if p.inst != nil && p.inst.MinTickSize > 0 {
		tick = p.inst.MinTickSize
	}
	padding := max((maxPrice-minPrice)*0.1, tick)
	minPrice -= padding
	maxPrice += padding

	// Reserve rows for the time axis
	chartHeight := max(height-2, 3)

	var result strings.Builder
	for row := 0; row < chartHeight; row++ {
		price := yToPrice(row, minPrice, maxPrice, chartHeight)
		label := fmt.Sprintf("%*s │", labelWidth-2, formatPrice(p.inst, p.roundPrice(price)))
		result.WriteString(styles.ChartAxisStyle.Render(label))

		for _, c := range display {
			var style lipgloss.Style
			if c.Close >= c.Open {
				style = styles.CandleUpStyle
			} else {
				style = styles.CandleDownStyle
			}
			result.WriteString(style.Render(string(candleChar(c, row, minPrice, maxPrice, chartHeight))))
			result.WriteString(" ")
		}
		result.WriteString("\n")
	}

	result.WriteString(styles.ChartAxisStyle.Render(strings.Repeat("─", labelWidth-1) + "┴" + strings.Repeat("──", len(display))))
	result.WriteString("\n")
	result.WriteString(styles.ChartLabelStyle.Render(fmt.Sprintf("%*s%s … %s", labelWidth, "",
		display[0].Start.Format("15:04:05"), display[len(display)-1].Start.Format("15:04:05"))))

	return result.String()
}

func (p *CandlestickPanel) roundPrice(price float64) float64 {
	if p.inst == nil || p.inst.MinTickSize <= 0 {
		return price
	}
	return float64(p.inst.Ticks(price)) * p.inst.MinTickSize
}

// candleChar returns the character to draw for a candle at a given row.
func candleChar(c Candle, row int, minPrice, maxPrice float64, height int) rune {
	rowPrice := yToPrice(row, minPrice, maxPrice, height)

	bodyTop, bodyBottom := max(c.Open, c.Close), min(c.Open, c.Close)

	// Half a row of tolerance maps continuous prices onto discrete rows.
	tolerance := (maxPrice - minPrice) / float64(height*2)

	switch {
	case rowPrice <= bodyTop+tolerance && rowPrice >= bodyBottom-tolerance:
		return '┃'
	case rowPrice <= c.High+tolerance && rowPrice > bodyTop:
		return '│'
	case rowPrice >= c.Low-tolerance && rowPrice < bodyBottom:
		return '│'
	}
	return ' '
}

func yToPrice(y int, minPrice, maxPrice float64, height int) float64 {
	if height <= 1 {
		return minPrice
	}
	ratio := float64(y) / float64(height-1)
	return maxPrice - ratio*(maxPrice-minPrice)
}

// SetFocus sets the focus state of the panel.
func (p *CandlestickPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *CandlestickPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// AddTrade folds a trade into the candle covering its timestamp.
func (p *CandlestickPanel) AddTrade(tr core.Trade) {
	start := tr.Timestamp.Truncate(p.period)

	if p.current == nil || !start.Equal(p.current.Start) {
		if p.current != nil {
			p.candles = append(p.candles, *p.current)
			if len(p.candles) > p.maxCandles {
				p.candles = p.candles[len(p.candles)-p.maxCandles:]
			}
		}
		p.current = &Candle{
			Open:   tr.Price,
			High:   tr.Price,
			Low:    tr.Price,
			Close:  tr.Price,
			Volume: tr.Amount,
			Start:  start,
		}
		return
	}

	p.current.High = max(p.current.High, tr.Price)
	p.current.Low = min(p.current.Low, tr.Price)
	p.current.Close = tr.Price
	p.current.Volume += tr.Amount
}
