package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookrec/internal/domain"
)

// TextPrefix marks a free-text query; anything else is looked up as a title or identifier.
const TextPrefix = "?"

// Port is the TUI-facing subset of the recommender bound to a model.
type Port interface {
	SimilarByTitle(ctx context.Context, titleOrID string, k int) ([]domain.SimilarityResult, error)
	SimilarByText(ctx context.Context, text string, k int) ([]domain.SimilarityResult, error)
}

// Renderer turns one result into the text shown in the result box.
type Renderer interface {
	PresentOne(r domain.SimilarityResult, showSummary bool) string
}

// Model is the Bubble Tea model for the book browser.
type Model struct {
	service     Port
	renderer    Renderer
	k           int
	input       textinput.Model
	viewport    viewport.Model
	results     []domain.SimilarityResult
	info        string
	status      string
	cursor      int
	showSummary bool
	ready       bool
	// seq numbers submitted queries so a slow answer cannot replace a newer one.
	seq int
}

// resultsMsg carries the answer to a query submitted by Enter.
type resultsMsg struct {
	seq     int
	query   string
	results []domain.SimilarityResult
	err     error
}

// New creates a browser. info is shown under the header (e.g. model size and provider).
func New(service Port, renderer Renderer, k int, info string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Title or ID, or ?free text, then Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		renderer: renderer,
		k:        k,
		input:    ti,
		viewport: vp,
		info:     info,
		status:   "Loaded. Type a title to find similar books.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and info, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case resultsMsg:
		if msg.seq == m.seq {
			m.showResults(msg)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.seq++
				m.status = fmt.Sprintf("Searching for %q...", q)
				return m, m.query(m.seq, q)
			}
		case "tab":
			m.showSummary = !m.showSummary
			m.viewport.SetContent(m.renderCurrentResult())
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// query runs q off the update loop; remote embedders may take a network round trip.
func (m Model) query(seq int, q string) tea.Cmd {
	service, k := m.service, m.k
	return func() tea.Msg {
		msg := resultsMsg{seq: seq, query: q}
		if text, ok := strings.CutPrefix(q, TextPrefix); ok {
			msg.results, msg.err = service.SimilarByText(context.Background(), strings.TrimSpace(text), k)
		} else {
			msg.results, msg.err = service.SimilarByTitle(context.Background(), q, k)
		}
		return msg
	}
}

func (m *Model) showResults(msg resultsMsg) {
	if msg.err != nil {
		m.status = "Error: " + msg.err.Error()
		m.results = nil
	} else {
		m.status = fmt.Sprintf("%d books similar to %q", len(msg.results), msg.query)
		m.results = msg.results
	}
	m.cursor = 0
	m.viewport.SetContent(m.renderCurrentResult())
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Book Recommendations")
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.info)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + info + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	title := fmt.Sprintf("Result %d/%d", m.cursor+1, len(m.results))
	if m.showSummary {
		title += "  (tab hides summary)"
	} else {
		title += "  (tab shows summary)"
	}
	return titleStyle.Render(title) + "\n\n" + m.renderer.PresentOne(m.results[m.cursor], m.showSummary)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
