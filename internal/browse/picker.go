package browse

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scholarslab/nlfeatures/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("245")).
				Padding(0, 0, 0, 4)

	pickerRowStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)

	cellStyle = lipgloss.NewStyle().Width(10)
)

// Lines taken by the title, header and hint around the item rows.
const pickerChrome = 7

type pickerModel struct {
	items  []model.ItemSummary
	cursor int
	offset int // first visible row
	rows   int // visible rows; 0 shows every item
	chosen int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.rows = max(msg.Height-pickerChrome, 3)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			m.cursor--
		case "down", "j":
			m.cursor++
		case "pgup":
			m.cursor -= m.page()
		case "pgdown":
			m.cursor += m.page()
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.items) - 1
		case "enter":
			if len(m.items) > 0 {
				m.chosen = m.cursor
				return m, tea.Quit
			}
		}
	}
	m.cursor = min(max(m.cursor, 0), max(len(m.items)-1, 0))
	m.scroll()
	return m, nil
}

func (m pickerModel) page() int {
	if m.rows > 0 {
		return m.rows
	}
	return 10
}

// scroll moves the window so the cursor row is visible.
func (m *pickerModel) scroll() {
	if m.rows == 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.rows {
		m.offset = m.cursor - m.rows + 1
	}
}

// coverageMark shows how many of an item's coverage values have a feature.
func coverageMark(it model.ItemSummary) string {
	switch {
	case it.Features == 0:
		return "○"
	case it.Features < it.Texts:
		return "◐"
	default:
		return "●"
	}
}

func itemRow(it model.ItemSummary) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		coverageMark(it)+" ",
		cellStyle.Render(fmt.Sprintf("%d", it.ID)),
		cellStyle.Render(fmt.Sprintf("%d", it.Texts)),
		cellStyle.Render(fmt.Sprintf("%d", it.Features)),
		fmt.Sprintf("%d", it.MapFeatures),
	)
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Coverage features: select an item"))
	b.WriteByte('\n')

	if len(m.items) == 0 {
		b.WriteString(pickerRowStyle.Render("(no items with coverage)") + "\n")
	} else {
		b.WriteString(pickerHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
			"  ",
			cellStyle.Render("Item"),
			cellStyle.Render("Coverage"),
			cellStyle.Render("Features"),
			"On map",
		)) + "\n")
	}

	end := len(m.items)
	if m.rows > 0 {
		end = min(m.offset+m.rows, end)
	}
	for i := m.offset; i < end; i++ {
		row := itemRow(m.items[i])
		if i == m.cursor {
			b.WriteString(pickerSelectedStyle.Render("> "+row) + "\n")
		} else {
			b.WriteString(pickerRowStyle.Render(row) + "\n")
		}
	}

	hint := "↑/↓ move  pgup/pgdn page  enter select  q quit"
	if len(m.items) > 0 {
		hint = fmt.Sprintf("%d/%d  %s", m.cursor+1, len(m.items), hint)
	}
	b.WriteString(pickerHintStyle.Render(hint))
	return b.String()
}

// RunItemPicker shows an interactive item selector.
// Returns the index of the chosen item, or -1 if the user quit.
func RunItemPicker(items []model.ItemSummary) (int, error) {
	p := tea.NewProgram(pickerModel{items: items, chosen: -1})
	result, err := p.Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
