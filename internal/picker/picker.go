// Package picker is a small terminal UI for choosing one link from search results.
package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Action is what the user chose to do with the selected link.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionFavorite
)

// KeyMap defines the picker's key bindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Copy     key.Binding
	Favorite key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default vim-style key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "move down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy url"),
		),
		Favorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle favorite"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// ResultsMsg replaces the results, e.g. after the synced links changed.
// The cursor stays on the same link when it is still present.
type ResultsMsg []projection.SearchResult

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results []projection.SearchResult
	query   string
	keys    KeyMap
	clip    func(string) error

	cursor int
	action Action
	status string
	width  int
	height int
}

// New creates a new Picker with the given search results.
func New(results []projection.SearchResult, query string) Picker {
	return Picker{
		results: results,
		query:   query,
		keys:    DefaultKeyMap(),
		clip:    clipboard.WriteAll,
		cursor:  0,
		width:   80,
		height:  24,
	}
}

// WithClipboard replaces the function used by the copy action.
func (p Picker) WithClipboard(write func(string) error) Picker {
	p.clip = write
	return p
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case ResultsMsg:
		p.setResults(msg)
		return p, nil

	case tea.KeyMsg:
		p.status = ""
		switch {
		case key.Matches(msg, p.keys.Quit):
			p.action = ActionNone
			return p, tea.Quit

		case key.Matches(msg, p.keys.Open):
			if len(p.results) > 0 {
				p.action = ActionOpen
			}
			return p, tea.Quit

		case key.Matches(msg, p.keys.Favorite):
			if len(p.results) == 0 {
				return p, nil
			}
			p.action = ActionFavorite
			return p, tea.Quit

		case key.Matches(msg, p.keys.Copy):
			if len(p.results) == 0 {
				return p, nil
			}
			url := p.results[p.cursor].Link.URL
			if err := p.clip(url); err != nil {
				p.status = fmt.Sprintf("copy failed: %v", err)
			} else {
				p.status = "copied " + url
			}
			return p, nil

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
			return p, nil

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil
		}
	}

	return p, nil
}

func (p *Picker) setResults(results []projection.SearchResult) {
	var currentID string
	if p.cursor < len(p.results) {
		currentID = p.results[p.cursor].Link.ID
	}

	p.results = results
	p.cursor = 0
	for i, r := range results {
		if r.Link.ID == currentID {
			p.cursor = i
			break
		}
	}
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	// Header
	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	for i, result := range p.results {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		title := highlight(result.Link.Title, result.MatchedIndexes, style)
		if result.Link.IsFavorite {
			title += style.Render(" ★")
		}
		url := urlStyle.Render(result.Link.URL)

		fmt.Fprintf(&b, "%s%s\n", cursor, title)
		fmt.Fprintf(&b, "   %s\n", url)
	}

	// Footer
	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(hintStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("j/k: move  enter: open  y: copy url  f: favorite  q/esc: cancel"))

	return b.String()
}

// highlight renders the matched characters of s in matchStyle.
func highlight(s string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(s)
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}

	var b strings.Builder
	for i, r := range s {
		if hit[i] {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

// Choice returns the selected link and what to do with it.
// ok is false when the user cancelled.
func (p Picker) Choice() (model.Link, Action, bool) {
	if p.action == ActionNone || p.cursor >= len(p.results) {
		return model.Link{}, ActionNone, false
	}
	return p.results[p.cursor].Link, p.action, true
}

// Cancelled returns true if the user quit without choosing.
func (p Picker) Cancelled() bool {
	return p.action == ActionNone
}
