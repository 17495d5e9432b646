// marketdesk-watch is a terminal watchlist client. It keeps a local session
// store in sync with the server and shows live prices for the listed
// symbols.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"marketdesk/pkg/marketdesk"
	"marketdesk/pkg/marketdesk/watchlist"
)

// Styles.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	symbolStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("236"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	fullStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

const refreshEvery = 5 * time.Second

// Messages.
type tickMsg time.Time

type loadedMsg struct {
	snap watchlist.Snapshot
	err  error
}

type pricesMsg struct {
	quotes map[string]*marketdesk.Quote
}

type mutationMsg struct {
	snap watchlist.Snapshot
	err  error
}

type model struct {
	syncer *watchlist.Syncer
	client *marketdesk.Client

	snap    watchlist.Snapshot
	quotes  map[string]*marketdesk.Quote
	cursor  int
	adding  bool
	input   textinput.Model
	lastErr string
}

func newModel(syncer *watchlist.Syncer, client *marketdesk.Client) model {
	ti := textinput.New()
	ti.Placeholder = "symbol"
	ti.CharLimit = 20
	return model{
		syncer: syncer,
		client: client,
		quotes: make(map[string]*marketdesk.Quote),
		input:  ti,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.syncer.Load(ctx); err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{snap: m.syncer.Store().Snapshot()}
	}
}

func (m model) pricesCmd(symbols []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		quotes := make(map[string]*marketdesk.Quote, len(symbols))
		for _, sym := range symbols {
			q, err := m.client.Price(ctx, sym)
			if err != nil {
				continue // symbol may have no quote yet
			}
			quotes[sym] = q
		}
		return pricesMsg{quotes: quotes}
	}
}

func (m model) addCmd(symbol string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := m.syncer.Add(ctx, symbol)
		return mutationMsg{snap: m.syncer.Store().Snapshot(), err: err}
	}
}

func (m model) removeCmd(symbol string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := m.syncer.Remove(ctx, symbol)
		return mutationMsg{snap: m.syncer.Store().Snapshot(), err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.adding {
			switch msg.String() {
			case "enter":
				sym := strings.TrimSpace(m.input.Value())
				m.adding = false
				m.input.Reset()
				if sym == "" {
					return m, nil
				}
				return m, m.addCmd(sym)
			case "esc":
				m.adding = false
				m.input.Reset()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.snap.Count-1 {
				m.cursor++
			}
		case "a":
			m.adding = true
			m.lastErr = ""
			m.input.Focus()
			return m, textinput.Blink
		case "d":
			if m.cursor < len(m.snap.Symbols) {
				return m, m.removeCmd(m.snap.Symbols[m.cursor])
			}
		case "r":
			return m, m.loadCmd()
		}

	case loadedMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.snap = msg.snap
		m.clampCursor()
		return m, m.pricesCmd(m.snap.Symbols)

	case mutationMsg:
		m.snap = msg.snap
		m.clampCursor()
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		return m, m.pricesCmd(m.snap.Symbols)

	case pricesMsg:
		for sym, q := range msg.quotes {
			m.quotes[sym] = q
		}

	case tickMsg:
		return m, tea.Batch(m.pricesCmd(m.snap.Symbols), tickCmd())
	}

	return m, nil
}

func (m *model) clampCursor() {
	if m.cursor >= m.snap.Count {
		m.cursor = m.snap.Count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) View() string {
	var b strings.Builder

	header := fmt.Sprintf("watchlist  %d/%d", m.snap.Count, m.snap.Limit)
	if m.snap.Count >= m.snap.Limit && m.snap.Limit > 0 {
		header += fullStyle.Render("  FULL")
	}
	b.WriteString(titleStyle.Render(header) + "\n\n")

	if m.snap.Count == 0 {
		b.WriteString(dimStyle.Render("  empty — press a to add a symbol") + "\n")
	}
	for i, sym := range m.snap.Symbols {
		line := fmt.Sprintf("  %-12s", sym)
		if q, ok := m.quotes[sym]; ok {
			pctStyle := gainStyle
			if q.Change < 0 {
				pctStyle = lossStyle
			}
			line = fmt.Sprintf("  %s %10.2f  %s",
				symbolStyle.Render(fmt.Sprintf("%-12s", sym)),
				q.Price,
				pctStyle.Render(fmt.Sprintf("%+.2f (%+.2f%%)", q.Change, q.ChangePct)))
		}
		if i == m.cursor && !m.adding {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	if m.adding {
		b.WriteString("add: " + m.input.View() + "\n")
	}
	if m.lastErr != "" {
		b.WriteString(errStyle.Render(friendlyError(m.lastErr)) + "\n")
	}
	b.WriteString(dimStyle.Render("a add · d delete · r reload · q quit") + "\n")
	return b.String()
}

// friendlyError maps the store's sentinel errors to short messages.
func friendlyError(msg string) string {
	switch {
	case strings.Contains(msg, watchlist.ErrDuplicateSymbol.Error()):
		return "already on the watchlist"
	case strings.Contains(msg, watchlist.ErrWatchlistFull.Error()):
		return "watchlist is full"
	default:
		return msg
	}
}

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("MARKETDESK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := marketdesk.NewClient(baseURL)
	syncer := watchlist.NewSyncer(watchlist.New(50), client)

	p := tea.NewProgram(newModel(syncer, client))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "marketdesk-watch: %v\n", err)
		os.Exit(1)
	}
}
