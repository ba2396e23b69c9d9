package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// expiringWindow is how far ahead "Expiring Soon" looks
const expiringWindow = 3 * 24 * time.Hour

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D32")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

var (
	batchColumns = []table.Column{
		{Title: "Name", Width: 18},
		{Title: "Amount", Width: 10},
		{Title: "Unit", Width: 5},
		{Title: "Expiry", Width: 11},
		{Title: "Value", Width: 10},
	}
	recipeColumns = []table.Column{
		{Title: "Recipe", Width: 24},
		{Title: "Ingredients", Width: 12},
		{Title: "Can make", Width: 9},
	}
)

// Model defines the application state
type Model struct {
	mainMenu    list.Model
	stockView   table.Model
	spinner     spinner.Model
	textInput   textinput.Model
	client      *ApiClient
	loading     bool
	currentView string
	summary     string
	message     string
	error       string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// Initialize the model
func initialModel(client *ApiClient) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	items := []list.Item{
		item{title: "Groceries", desc: "Batches on the shelves, earliest expiry first"},
		item{title: "Expiring Soon", desc: "Batches expiring in the next three days"},
		item{title: "Expired", desc: "Move expired batches aside and list them"},
		item{title: "Withdraw", desc: "Take an amount of a grocery out of stock"},
		item{title: "Recipes", desc: "Recipes and whether they can be made now"},
		item{title: "Stock Value", desc: "Value of active and expired stock"},
		item{title: "Exit", desc: "Exit the application"},
	}

	mainMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "Pantry"

	ti := textinput.New()
	ti.Placeholder = "milk,0.5,l"
	ti.CharLimit = 120
	ti.Width = 30

	return Model{
		mainMenu:    mainMenu,
		stockView:   newTable(batchColumns, nil),
		spinner:     s,
		textInput:   ti,
		client:      client,
		currentView: "main",
	}
}

func newTable(columns []table.Column, rows []table.Row) table.Model {
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
	)
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.mainMenu.SetSize(msg.Width-h, msg.Height-v)
	case tea.KeyMsg:
		if m.currentView == "withdraw" {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.currentView = "main"
				m.textInput.Blur()
				return m, nil
			case "enter":
				name, amount, unit, err := parseWithdrawInput(m.textInput.Value())
				if err != nil {
					m.error = err.Error()
					return m, nil
				}
				m.loading = true
				return m, withdraw(m.client, name, amount, unit)
			}
			break
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.currentView == "main" {
				if selected, ok := m.mainMenu.SelectedItem().(item); ok {
					return m.open(selected.title)
				}
			}
		case "p":
			if m.currentView == "expired" {
				m.loading = true
				return m, purgeExpired(m.client)
			}
		case "r":
			if m.currentView != "main" {
				return m.open(m.currentTitle())
			}
		case "esc":
			m.currentView = "main"
			m.message, m.error = "", ""
			return m, nil
		}
	case shelvesMsg:
		m.loading = false
		m.summary = fmt.Sprintf("%d groceries", len(msg.shelves))
		m.stockView = newTable(batchColumns, shelfRows(msg.shelves))
		return m, nil
	case batchesMsg:
		m.loading = false
		m.summary = fmt.Sprintf("%d batches", len(msg.batches))
		m.stockView = newTable(batchColumns, batchRows(msg.batches))
		return m, nil
	case recipesMsg:
		m.loading = false
		m.summary = fmt.Sprintf("%d recipes, %d can be made", len(msg.all), len(msg.cookable))
		m.stockView = newTable(recipeColumns, recipeRows(msg.all, msg.cookable))
		return m, nil
	case valueMsg:
		m.loading = false
		m.summary = fmt.Sprintf("Active stock: %s\nExpired stock: %s", msg.active, msg.expired)
		return m, nil
	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil
	case confirmMsg:
		m.loading = false
		m.error = ""
		m.message = msg.message
		if m.currentView == "expired" {
			return m, fetchExpired(m.client)
		}
		m.textInput.SetValue("")
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "groceries", "expiring", "expired", "recipes":
		m.stockView, cmd = m.stockView.Update(msg)
	case "withdraw":
		m.textInput, cmd = m.textInput.Update(msg)
	}

	return m, cmd
}

// open switches to the view behind a menu entry and starts loading it.
func (m Model) open(title string) (tea.Model, tea.Cmd) {
	m.message, m.error = "", ""
	switch title {
	case "Exit":
		return m, tea.Quit
	case "Groceries":
		m.currentView = "groceries"
		m.loading = true
		return m, fetchShelves(m.client)
	case "Expiring Soon":
		m.currentView = "expiring"
		m.loading = true
		return m, fetchExpiring(m.client, time.Now().Add(expiringWindow))
	case "Expired":
		m.currentView = "expired"
		m.loading = true
		return m, fetchExpired(m.client)
	case "Withdraw":
		m.currentView = "withdraw"
		m.textInput.SetValue("")
		m.textInput.Focus()
		return m, textinput.Blink
	case "Recipes":
		m.currentView = "recipes"
		m.loading = true
		return m, fetchRecipes(m.client)
	case "Stock Value":
		m.currentView = "value"
		m.loading = true
		return m, fetchValue(m.client)
	}
	return m, nil
}

func (m Model) currentTitle() string {
	switch m.currentView {
	case "groceries":
		return "Groceries"
	case "expiring":
		return "Expiring Soon"
	case "expired":
		return "Expired"
	case "recipes":
		return "Recipes"
	case "value":
		return "Stock Value"
	case "withdraw":
		return "Withdraw"
	}
	return ""
}

// View renders the UI
func (m Model) View() string {
	if m.currentView == "main" {
		return docStyle.Render(m.mainMenu.View())
	}

	view := titleStyle.Render(m.currentTitle()) + "\n\n"
	switch m.currentView {
	case "groceries", "expiring", "expired", "recipes":
		view += m.stockView.View() + "\n"
		if !m.loading {
			view += infoStyle.Render(m.summary) + "\n"
		}
	case "value":
		if !m.loading {
			view += m.summary + "\n"
		}
	case "withdraw":
		view += "Format: <name>,<amount>,<unit>  (units: mg g kg ml dl l stk)\n\n"
		view += m.textInput.View() + "\n"
	}

	if m.loading {
		view += m.spinner.View() + " Loading...\n"
	}
	if m.message != "" {
		view += "\n" + successStyle.Render(m.message) + "\n"
	}
	if m.error != "" {
		view += "\n" + errorStyle.Render(m.error) + "\n"
	}

	help := "\nPress 'r' to refresh, 'esc' to go back"
	if m.currentView == "expired" {
		help += ", 'p' to purge expired batches"
	}
	if m.currentView == "withdraw" {
		help = "\nPress 'enter' to withdraw, 'esc' to go back"
	}
	return docStyle.Render(view + help + "\n")
}

// Custom message types for the tea.Model
type shelvesMsg struct {
	shelves []Shelf
}

type batchesMsg struct {
	batches []Batch
}

type recipesMsg struct {
	all, cookable []Recipe
}

type valueMsg struct {
	active, expired string
}

type errorMsg struct {
	err string
}

type confirmMsg struct {
	message string
}

func fetchShelves(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		shelves, err := client.GetShelves()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching groceries: %v", err)}
		}
		return shelvesMsg{shelves: shelves}
	}
}

func fetchExpiring(client *ApiClient, before time.Time) tea.Cmd {
	return func() tea.Msg {
		batches, err := client.GetExpiring(before)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching expiring batches: %v", err)}
		}
		return batchesMsg{batches: batches}
	}
}

func fetchExpired(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		shelves, err := client.GetExpired()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching expired stock: %v", err)}
		}
		return shelvesMsg{shelves: shelves}
	}
}

func purgeExpired(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		n, err := client.PurgeExpired()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error purging expired stock: %v", err)}
		}
		return confirmMsg{message: fmt.Sprintf("Purged %d batches", n)}
	}
}

func fetchRecipes(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		all, err := client.GetRecipes(false)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching recipes: %v", err)}
		}
		cookable, err := client.GetRecipes(true)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching cookable recipes: %v", err)}
		}
		return recipesMsg{all: all, cookable: cookable}
	}
}

func fetchValue(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		active, expired, err := client.GetValue()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching stock value: %v", err)}
		}
		return valueMsg{active: active, expired: expired}
	}
}

func withdraw(client *ApiClient, name, amount, unit string) tea.Cmd {
	return func() tea.Msg {
		w, err := client.Withdraw(name, amount, unit)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error withdrawing %s: %v", name, err)}
		}
		msg := fmt.Sprintf("Withdrew %s %s of %s from %d batches", w.Amount, w.Unit, w.Name, w.Batches)
		if w.Depleted {
			msg += " (now out of stock)"
		}
		return confirmMsg{message: msg}
	}
}

// parseWithdrawInput splits "<name>,<amount>,<unit>"
func parseWithdrawInput(input string) (name, amount, unit string, err error) {
	parts := strings.Split(input, ",")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("expected <name>,<amount>,<unit>")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return "", "", "", fmt.Errorf("name, amount and unit are all required")
		}
	}
	return parts[0], parts[1], parts[2], nil
}

func batchRows(batches []Batch) []table.Row {
	rows := make([]table.Row, len(batches))
	for i, b := range batches {
		rows[i] = table.Row{b.Name, b.Amount, b.Unit, b.Expiry, b.Value}
	}
	return rows
}

func shelfRows(shelves []Shelf) []table.Row {
	var rows []table.Row
	for _, s := range shelves {
		rows = append(rows, batchRows(s.Batches)...)
	}
	return rows
}

func recipeRows(all, cookable []Recipe) []table.Row {
	ready := make(map[string]bool, len(cookable))
	for _, r := range cookable {
		ready[strings.ToLower(r.Name)] = true
	}

	rows := make([]table.Row, len(all))
	for i, r := range all {
		can := "no"
		if ready[strings.ToLower(r.Name)] {
			can = "yes"
		}
		rows[i] = table.Row{r.Name, fmt.Sprintf("%d", len(r.Ingredients)), can}
	}
	return rows
}

func main() {
	client := NewApiClient()
	if ok, err := client.CheckHealth(); !ok {
		fmt.Printf("Warning: API server at %s is not available: %v\n", client.BaseURL, err)
	}

	p := tea.NewProgram(initialModel(client))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
