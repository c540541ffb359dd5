package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/internal/orderbook/view"
	"github.com/zappabad/lobsim/internal/simulation"
	"github.com/zappabad/lobsim/tui/panels"
	"github.com/zappabad/lobsim/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusDepth PanelFocus = iota
	FocusOrderbook
	FocusChart
	FocusStats
	FocusOrderInput

	panelCount = 5
)

const (
	refreshInterval = 100 * time.Millisecond
	submitTimeout   = 2 * time.Second
	recentTrades    = 20
)

var (
	quitKey      = key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit"))
	nextPanelKey = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel"))
	prevPanelKey = key.NewBinding(key.WithKeys("shift+tab"))
	panelKeys    = []key.Binding{
		key.NewBinding(key.WithKeys("f1")),
		key.NewBinding(key.WithKeys("f2")),
		key.NewBinding(key.WithKeys("f3")),
		key.NewBinding(key.WithKeys("f4")),
		key.NewBinding(key.WithKeys("f5")),
	}
)

// Market is the live book the UI watches and trades against.
type Market interface {
	Instrument() *market.Instrument
	Submit(ctx context.Context, o core.Order) (core.Report, error)
	Snapshot() view.Snapshot
	TradesLast(n int) []core.Trade
	Trades() <-chan core.Trade
	DroppedTrades() int64
}

// Config wires the model to the running simulation.
type Config struct {
	// Depth is the initial number of levels per side on the depth chart.
	Depth        int
	CandlePeriod time.Duration

	// Manual orders draw ids from IDs and are stamped with Now.
	IDs          *core.IDSequence
	Now          func() time.Time
	Counterparty core.CounterpartyID

	// Stats reports the running simulation totals. Optional.
	Stats func() simulation.Result
}

// Model is the main TUI application model.
type Model struct {
	market Market
	cfg    Config

	depthPanel      *panels.DepthPanel
	orderbookPanel  *panels.OrderbookPanel
	chartPanel      *panels.CandlestickPanel
	statsPanel      *panels.StatsPanel
	orderInputPanel *panels.OrderInputPanel

	focusedPanel PanelFocus

	width  int
	height int

	statusMsg string
	ready     bool
}

// NewModel creates a new TUI model.
func NewModel(m Market, cfg Config) *Model {
	if cfg.IDs == nil {
		cfg.IDs = core.NewIDSequence(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	inst := m.Instrument()
	model := &Model{
		market:          m,
		cfg:             cfg,
		depthPanel:      panels.NewDepthPanel(cfg.Depth),
		orderbookPanel:  panels.NewOrderbookPanel(),
		chartPanel:      panels.NewCandlestickPanel(inst, cfg.CandlePeriod),
		statsPanel:      panels.NewStatsPanel(),
		orderInputPanel: panels.NewOrderInputPanel(inst),
	}
	model.setFocus(FocusDepth)
	return model
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.depthPanel.Init(),
		m.orderbookPanel.Init(),
		m.chartPanel.Init(),
		m.statsPanel.Init(),
		m.orderInputPanel.Init(),
		m.listenTrades(),
		m.tickRefresh(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, nextPanelKey):
			m.setFocus((m.focusedPanel + 1) % panelCount)
			return m, nil
		case key.Matches(msg, prevPanelKey):
			m.setFocus((m.focusedPanel + panelCount - 1) % panelCount)
			return m, nil
		}
		for i, k := range panelKeys {
			if key.Matches(msg, k) {
				m.setFocus(PanelFocus(i))
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tradeMsg:
		m.chartPanel.AddTrade(core.Trade(msg))
		cmds = append(cmds, m.listenTrades())

	case panels.OrderSubmitMsg:
		cmds = append(cmds, m.submitOrder(msg))

	case orderResultMsg:
		m.statusMsg = msg.message
		if msg.ok {
			m.orderInputPanel.Reset()
		}

	case tickMsg:
		m.refresh()
		cmds = append(cmds, m.tickRefresh())
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusDepth:
		m.depthPanel, cmd = m.depthPanel.Update(msg)
	case FocusOrderbook:
		m.orderbookPanel, cmd = m.orderbookPanel.Update(msg)
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusStats:
		m.statsPanel, cmd = m.statsPanel.Update(msg)
	case FocusOrderInput:
		m.orderInputPanel, cmd = m.orderInputPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	// Layout:
	// ┌──────────────────────┬────────────┬───────────┐
	// │     Depth chart      │   Ladder   │   Stats   │
	// ├──────────────────────┴────────────┼───────────┤
	// │          Candlestick chart        │   Order   │
	// └───────────────────────────────────┴───────────┘
	leftWidth := m.width / 2
	middleWidth := m.width / 4
	rightWidth := m.width - leftWidth - middleWidth

	topHeight := (m.height - 1) * 3 / 5
	bottomHeight := m.height - 1 - topHeight

	m.depthPanel.SetSize(leftWidth, topHeight)
	m.orderbookPanel.SetSize(middleWidth, topHeight)
	m.statsPanel.SetSize(rightWidth, topHeight)
	m.chartPanel.SetSize(leftWidth+middleWidth, bottomHeight)
	m.orderInputPanel.SetSize(rightWidth, bottomHeight)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.depthPanel.View(),
		m.orderbookPanel.View(),
		m.statsPanel.View(),
	)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.chartPanel.View(),
		m.orderInputPanel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	help := []string{
		styles.StatusBarKeyStyle.Render("F1-F5") + styles.StatusBarDescStyle.Render(" panels"),
		styles.StatusBarKeyStyle.Render("Tab") + styles.StatusBarDescStyle.Render(" cycle"),
		styles.StatusBarKeyStyle.Render("+/-") + styles.StatusBarDescStyle.Render(" depth"),
		styles.StatusBarKeyStyle.Render("q") + styles.StatusBarDescStyle.Render(" quit"),
	}

	helpStr := lipgloss.JoinHorizontal(lipgloss.Center, help[0], " │ ", help[1], " │ ", help[2], " │ ", help[3])

	status := ""
	if m.statusMsg != "" {
		status = " │ " + m.statusMsg
	}

	return styles.StatusBarStyle.Width(m.width).Render(helpStr + status)
}

func (m *Model) setFocus(panel PanelFocus) {
	m.focusedPanel = panel
	m.depthPanel.SetFocus(panel == FocusDepth)
	m.orderbookPanel.SetFocus(panel == FocusOrderbook)
	m.chartPanel.SetFocus(panel == FocusChart)
	m.statsPanel.SetFocus(panel == FocusStats)
	m.orderInputPanel.SetFocus(panel == FocusOrderInput)
}

// Focus returns the focused panel.
func (m *Model) Focus() PanelFocus { return m.focusedPanel }

func (m *Model) refresh() {
	snap := m.market.Snapshot()
	m.depthPanel.SetSnapshot(snap)
	m.orderbookPanel.SetSnapshot(snap)
	m.orderbookPanel.SetTrades(m.market.TradesLast(recentTrades))
	m.statsPanel.SetSnapshot(snap)

	var r simulation.Result
	if m.cfg.Stats != nil {
		r = m.cfg.Stats()
	}
	m.statsPanel.SetResult(r, m.market.DroppedTrades())
}

func (m *Model) submitOrder(req panels.OrderSubmitMsg) tea.Cmd {
	var o core.Order
	id, ts, inst := m.cfg.IDs.Next(), m.cfg.Now(), m.market.Instrument()
	if req.Type == core.OrderTypeMarket {
		o = core.NewMarketOrder(id, ts, m.cfg.Counterparty, inst, req.Side, req.Amount)
	} else {
		o = core.NewLimitOrder(id, ts, m.cfg.Counterparty, inst, req.Side, req.Amount, req.Price)
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return orderResult(m.market.Submit(ctx, o))
	}
}

func orderResult(r core.Report, err error) orderResultMsg {
	switch {
	case errors.Is(err, core.ErrInvalidPrice):
		return orderResultMsg{message: "✗ Price is off the tick grid"}
	case err != nil:
		return orderResultMsg{message: "✗ Order failed: " + err.Error()}
	}

	switch r.Outcome {
	case core.OutcomeRejected:
		return orderResultMsg{message: fmt.Sprintf("✗ Order %d rejected: not enough liquidity", r.OrderID)}
	case core.OutcomeFilled:
		return orderResultMsg{ok: true, message: fmt.Sprintf("✓ Order %d filled %d in %d trades", r.OrderID, r.Filled, len(r.Trades))}
	}
	if r.Filled > 0 {
		return orderResultMsg{ok: true, message: fmt.Sprintf("✓ Order %d filled %d, resting %d", r.OrderID, r.Filled, r.Remaining)}
	}
	return orderResultMsg{ok: true, message: fmt.Sprintf("✓ Order %d resting %d", r.OrderID, r.Remaining)}
}

func (m *Model) listenTrades() tea.Cmd {
	return func() tea.Msg {
		tr, ok := <-m.market.Trades()
		if !ok {
			return nil
		}
		return tradeMsg(tr)
	}
}

// tickMsg is sent periodically to refresh data.
type tickMsg struct{}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

type tradeMsg core.Trade

// orderResultMsg is sent after a manual order is processed.
type orderResultMsg struct {
	ok      bool
	message string
}
