package panels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/lobsim/internal/market"
	"github.com/zappabad/lobsim/internal/orderbook/core"
	"github.com/zappabad/lobsim/tui/styles"
)

// OrderInputField represents the currently focused input field.
type OrderInputField int

const (
	FieldSide OrderInputField = iota
	FieldType
	FieldPrice
	FieldAmount
	FieldSubmit
)

var (
	nextFieldKey = key.NewBinding(key.WithKeys("down"))
	prevFieldKey = key.NewBinding(key.WithKeys("up"))
	submitKey    = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next/submit"))
	leftKey      = key.NewBinding(key.WithKeys("left"))
	rightKey     = key.NewBinding(key.WithKeys("right"))
)

// OrderSubmitMsg is sent when the user submits an order. Price is zero for
// market orders.
type OrderSubmitMsg struct {
	Side   core.Side
	Type   core.OrderType
	Price  float64
	Amount int64
}

// OrderInputPanel lets the user place orders into the simulated book.
type OrderInputPanel struct {
	inst        *market.Instrument
	priceInput  textinput.Model
	amountInput textinput.Model

	sideOptions []core.Side
	sideIndex   int
	typeOptions []core.OrderType
	typeIndex   int

	currentField OrderInputField
	errMsg       string

	focused bool
	width   int
	height  int
}

// NewOrderInputPanel creates a new order input panel.
func NewOrderInputPanel(inst *market.Instrument) *OrderInputPanel {
	priceInput := textinput.New()
	priceInput.Placeholder = "Price"
	priceInput.Width = 10
	priceInput.CharLimit = 15

	amountInput := textinput.New()
	amountInput.Placeholder = "Amount"
	amountInput.Width = 10
	amountInput.CharLimit = 12

	return &OrderInputPanel{
		inst:        inst,
		priceInput:  priceInput,
		amountInput: amountInput,
		sideOptions: []core.Side{core.SideBuy, core.SideSell},
		typeOptions: []core.OrderType{core.OrderTypeLimit, core.OrderTypeMarket},
	}
}

// Init initializes the panel.
func (p *OrderInputPanel) Init() tea.Cmd {
	return textinput.Blink
}

func (p *OrderInputPanel) isLimit() bool {
	return p.typeOptions[p.typeIndex] == core.OrderTypeLimit
}

// Update handles messages for the panel.
func (p *OrderInputPanel) Update(msg tea.Msg) (*OrderInputPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, nextFieldKey):
			p.nextField()
			return p, nil
		case key.Matches(msg, prevFieldKey):
			p.prevField()
			return p, nil
		case key.Matches(msg, submitKey):
			if p.currentField == FieldSubmit {
				return p, p.submitOrder()
			}
			p.nextField()
			return p, nil
		case key.Matches(msg, leftKey, rightKey):
			step := 1
			if key.Matches(msg, leftKey) {
				step = -1
			}
			switch p.currentField {
			case FieldSide:
				p.sideIndex = clampIndex(p.sideIndex+step, len(p.sideOptions))
				return p, nil
			case FieldType:
				p.typeIndex = clampIndex(p.typeIndex+step, len(p.typeOptions))
				return p, nil
			}
		}
	}

	var cmd tea.Cmd
	switch p.currentField {
	case FieldPrice:
		p.priceInput, cmd = p.priceInput.Update(msg)
	case FieldAmount:
		p.amountInput, cmd = p.amountInput.Update(msg)
	}
	return p, cmd
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}

// View renders the panel.
func (p *OrderInputPanel) View() string {
	var content strings.Builder

	content.WriteString(p.renderField("Side", FieldSide, p.renderSideField()))
	content.WriteString("\n")
	content.WriteString(p.renderField("Type", FieldType, p.renderTypeField()))
	content.WriteString("\n")
	if p.isLimit() {
		content.WriteString(p.renderField("Price", FieldPrice, p.inputView(FieldPrice, &p.priceInput)))
		content.WriteString("\n")
	}
	content.WriteString(p.renderField("Amount", FieldAmount, p.inputView(FieldAmount, &p.amountInput)))
	content.WriteString("\n\n")

	submitStyle := styles.InputStyle
	if p.currentField == FieldSubmit && p.focused {
		submitStyle = styles.FocusedInputStyle.Bold(true).Foreground(styles.PrimaryColor)
	}
	content.WriteString(submitStyle.Render("  [Submit Order]  "))
	content.WriteString("\n")
	content.WriteString(p.renderOrderSummary())
	if p.errMsg != "" {
		content.WriteString("\n")
		content.WriteString(styles.SellStyle.Render(p.errMsg))
	}

	return styles.Panel("Order Entry", content.String(), p.focused, p.width, p.height)
}

func (p *OrderInputPanel) renderField(label string, field OrderInputField, inputView string) string {
	labelStyle := styles.LabelStyle
	if p.currentField == field && p.focused {
		labelStyle = labelStyle.Foreground(styles.PrimaryColor)
	}
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + inputView
}

func (p *OrderInputPanel) inputView(field OrderInputField, in *textinput.Model) string {
	style := styles.InputStyle
	if p.currentField == field && p.focused {
		style = styles.FocusedInputStyle
	}
	return style.Render(in.View())
}

func (p *OrderInputPanel) renderSideField() string {
	items := make([]string, len(p.sideOptions))
	for i, side := range p.sideOptions {
		style := styles.OptionStyle
		if i == p.sideIndex {
			style = p.selectedStyle(FieldSide)
			if side == core.SideBuy {
				style = style.Foreground(styles.BuyColor)
			} else {
				style = style.Foreground(styles.SellColor)
			}
		}
		items[i] = style.Render(side.String())
	}
	return strings.Join(items, " | ")
}

func (p *OrderInputPanel) renderTypeField() string {
	items := make([]string, len(p.typeOptions))
	for i, t := range p.typeOptions {
		style := styles.OptionStyle
		if i == p.typeIndex {
			style = p.selectedStyle(FieldType)
		}
		items[i] = style.Render(t.String())
	}
	return strings.Join(items, " | ")
}

func (p *OrderInputPanel) selectedStyle(field OrderInputField) lipgloss.Style {
	if p.currentField == field && p.focused {
		return styles.OptionSelectedStyle
	}
	return styles.OptionStyle.Bold(true)
}

func (p *OrderInputPanel) renderOrderSummary() string {
	side := p.sideOptions[p.sideIndex]
	sideStyle := styles.BuyStyle
	if side == core.SideSell {
		sideStyle = styles.SellStyle
	}
	parts := []string{sideStyle.Render(side.String()), p.typeOptions[p.typeIndex].String()}

	if p.isLimit() {
		price := p.priceInput.Value()
		if price == "" {
			price = "0"
		}
		parts = append(parts, "@"+price)
	}

	amount := p.amountInput.Value()
	if amount == "" {
		amount = "0"
	}
	parts = append(parts, "x"+amount)

	return styles.HeaderStyle.Render("Order: ") + strings.Join(parts, " ")
}

func (p *OrderInputPanel) focusCurrent() {
	p.priceInput.Blur()
	p.amountInput.Blur()
	if !p.focused {
		return
	}
	switch p.currentField {
	case FieldPrice:
		p.priceInput.Focus()
	case FieldAmount:
		p.amountInput.Focus()
	}
}

func (p *OrderInputPanel) nextField() {
	switch p.currentField {
	case FieldSide:
		p.currentField = FieldType
	case FieldType:
		if p.isLimit() {
			p.currentField = FieldPrice
		} else {
			p.currentField = FieldAmount
		}
	case FieldPrice:
		p.currentField = FieldAmount
	case FieldAmount:
		p.currentField = FieldSubmit
	case FieldSubmit:
		p.currentField = FieldSide
	}
	p.focusCurrent()
}

func (p *OrderInputPanel) prevField() {
	switch p.currentField {
	case FieldSide:
		p.currentField = FieldSubmit
	case FieldType:
		p.currentField = FieldSide
	case FieldPrice:
		p.currentField = FieldType
	case FieldAmount:
		if p.isLimit() {
			p.currentField = FieldPrice
		} else {
			p.currentField = FieldType
		}
	case FieldSubmit:
		p.currentField = FieldAmount
	}
	p.focusCurrent()
}

func (p *OrderInputPanel) submitOrder() tea.Cmd {
	amount, err := strconv.ParseInt(strings.TrimSpace(p.amountInput.Value()), 10, 64)
	if err != nil || amount <= 0 {
		p.errMsg = "amount must be a positive integer"
		return nil
	}

	msg := OrderSubmitMsg{
		Side:   p.sideOptions[p.sideIndex],
		Type:   p.typeOptions[p.typeIndex],
		Amount: amount,
	}
	if p.isLimit() {
		price, err := strconv.ParseFloat(strings.TrimSpace(p.priceInput.Value()), 64)
		if err != nil || price <= 0 {
			p.errMsg = "price must be positive"
			return nil
		}
		if p.inst != nil {
			// Snap to the tick grid the book accepts.
			price = p.inst.RoundUp(price)
		}
		msg.Price = price
	}

	p.errMsg = ""
	return func() tea.Msg { return msg }
}

// SetFocus sets the focus state of the panel.
func (p *OrderInputPanel) SetFocus(focused bool) {
	p.focused = focused
	p.focusCurrent()
}

// SetSize sets the panel dimensions.
func (p *OrderInputPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Reset clears the input fields.
func (p *OrderInputPanel) Reset() {
	p.priceInput.SetValue("")
	p.amountInput.SetValue("")
	p.currentField = FieldSide
	p.sideIndex = 0
	p.typeIndex = 0
	p.errMsg = ""
	p.focusCurrent()
}
