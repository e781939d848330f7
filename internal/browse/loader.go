package browse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user interrupts a load.
var ErrCancelled = errors.New("cancelled")

const loadTimeout = 30 * time.Second

type loadDoneMsg struct {
	detail ItemDetail
	err    error
}

type loaderModel struct {
	label   string
	loadFn  func(ctx context.Context) (ItemDetail, error)
	ctx     context.Context
	cancel  context.CancelFunc
	spinner spinner.Model
	result  ItemDetail
	err     error
	done    bool
}

func newLoaderModel(label string, loadFn func(ctx context.Context) (ItemDetail, error)) loaderModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("33"))),
	)
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	return loaderModel{label: label, loadFn: loadFn, ctx: ctx, cancel: cancel, spinner: s}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doLoad(), m.spinner.Tick)
}

func (m loaderModel) doLoad() tea.Cmd {
	loadFn, ctx := m.loadFn, m.ctx
	return func() tea.Msg {
		detail, err := loadFn(ctx)
		return loadDoneMsg{detail: detail, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg:
		m.result = msg.detail
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Loading %s...\n", m.spinner.View(), m.label)
}

// RunLoader shows a spinner while loadFn runs. It renders inline (no alt screen).
func RunLoader(label string, loadFn func(ctx context.Context) (ItemDetail, error)) (ItemDetail, error) {
	m := newLoaderModel(label, loadFn)
	defer m.cancel()

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return ItemDetail{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
