// Package browse is the terminal browser for items and their coverage
// features.
package browse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scholarslab/nlfeatures/internal/coverage"
	"github.com/scholarslab/nlfeatures/internal/geo"
	"github.com/scholarslab/nlfeatures/internal/model"
)

// Source is what the browser reads from the feature store.
type Source interface {
	ItemElementTexts(ctx context.Context, itemID int64) ([]model.ElementText, error)
	FindByElementText(ctx context.Context, et model.ElementText) (model.Lookup, error)
}

// Entry is one coverage value with its feature, ready for display.
type Entry struct {
	Text     model.ElementText
	Feature  *model.Feature // nil when no feature is stored
	Geometry string         // e.g. "1 Point", or the parse error
	Body     string         // display text; HTML converted to Markdown
	Pattern  string         // LIKE pattern used to find the feature by text
}

// ItemDetail is everything shown for one item.
type ItemDetail struct {
	ItemID  int64
	Entries []Entry
}

// LoadItem reads an item's coverage values and resolves each one's feature.
func LoadItem(ctx context.Context, src Source, itemID int64) (ItemDetail, error) {
	texts, err := src.ItemElementTexts(ctx, itemID)
	if err != nil {
		return ItemDetail{}, err
	}

	d := ItemDetail{ItemID: itemID}
	for _, et := range texts {
		e := Entry{
			Text:    et,
			Pattern: coverage.NewSearchKey(et.Text).Pattern(),
		}

		lookup, err := src.FindByElementText(ctx, et)
		if err != nil {
			return ItemDetail{}, err
		}
		if found, ok := lookup.(model.Found); ok {
			f := found.Feature
			e.Feature = &f
			geoms, err := geo.Geometries(f.Geo)
			if err != nil {
				e.Geometry = err.Error()
			} else {
				e.Geometry = geo.Summary(geoms)
			}
		}

		var body string
		if e.Feature != nil && e.Feature.IsMap {
			body, err = coverage.PlainText(et.Text, et.HTML)
		} else {
			body, err = coverage.RenderPlain(et.Text, et.HTML)
		}
		if err != nil {
			body = et.Text
		}
		e.Body = body

		d.Entries = append(d.Entries, e)
	}
	return d, nil
}

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(14)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

type detailModel struct {
	detail   ItemDetail
	viewport viewport.Model
	width    int
	height   int
	ready    bool
	wantQuit bool
}

func (m detailModel) Init() tea.Cmd {
	return nil
}

func (m detailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(max(m.width-4, 20), max(m.height-4, 5))
			m.ready = true
		} else {
			m.viewport.Width = max(m.width-4, 20)
			m.viewport.Height = max(m.height-4, 5)
		}
		m.viewport.SetContent(renderEntries(m.detail, max(m.width-8, 20)))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.wantQuit = true
			return m, tea.Quit
		case "esc", "backspace", "b":
			m.wantQuit = false
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m detailModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	title := titleStyle.Render(fmt.Sprintf("Item %d: %d coverage values", m.detail.ItemID, len(m.detail.Entries)))
	content := borderStyle.Width(m.width - 2).Render(m.viewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(" ↑/↓ scroll  esc/backspace back  q quit")
	return title + "\n" + content + "\n" + statusBar
}

func renderEntries(d ItemDetail, wrapWidth int) string {
	if len(d.Entries) == 0 {
		return hintStyle.Render("  (no coverage values)")
	}

	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	for i, e := range d.Entries {
		label := fmt.Sprintf("── Coverage %d ", i+1)
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		b.WriteString(dividerStyle.Render(label+fill) + "\n\n")

		if e.Text.ID != nil {
			addField("Text ID", strconv.FormatInt(*e.Text.ID, 10))
		}
		format := "plain"
		if e.Text.HTML {
			format = "HTML"
		}
		addField("Format", format)
		addField("Pattern", e.Pattern)

		if f := e.Feature; f != nil {
			addField("Feature", fmt.Sprintf("#%d", f.ID))
			addField("On map", strconv.FormatBool(f.IsMap))
			addField("Geometry", e.Geometry)
			addField("Viewport", fmt.Sprintf("zoom %d at %s, %s",
				f.Zoom,
				strconv.FormatFloat(f.CenterLon, 'f', -1, 64),
				strconv.FormatFloat(f.CenterLat, 'f', -1, 64)))
			addField("Base layer", f.BaseLayer)
		} else {
			b.WriteString(hintStyle.Render("  no feature stored") + "\n")
		}

		b.WriteByte('\n')
		b.WriteString(wordWrap(e.Body, wrapWidth))
		b.WriteString("\n\n")
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) <= width {
				line += " " + w
			} else {
				out = append(out, line)
				line = w
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// RunDetail shows an item's coverage values full screen.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to return to the picker.
func RunDetail(d ItemDetail) (bool, error) {
	p := tea.NewProgram(detailModel{detail: d}, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(detailModel).wantQuit, nil
}
