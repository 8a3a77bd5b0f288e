package main

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/filehandle"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	variantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type sessionState int

const (
	stateSelectVariant sessionState = iota
	statePathInput
	stateWriting
)

var variants = []string{"stdout", "file", "discard", "custom"}

type sessionModel struct {
	handle    *filehandle.FileHandle
	err       error
	input     textinput.Model
	variant   string
	status    string
	lastFlush string
	selected  int
	total     int64
	state     sessionState
}

// tuiCounter is the payload of the TUI's builder-constructed variant.
type tuiCounter struct {
	total int64
}

func newSessionModel() *sessionModel {
	ti := textinput.New()
	ti.CharLimit = 512
	return &sessionModel{input: ti, state: stateSelectVariant}
}

func (m *sessionModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "esc":
		if m.handle != nil {
			m.handle.Close()
			m.handle = nil
		}
		return m, tea.Quit
	}

	switch m.state {
	case stateSelectVariant:
		return m.updateSelect(key)
	case statePathInput:
		return m.updatePath(key)
	case stateWriting:
		return m.updateWriting(key)
	}
	return m, nil
}

func (m *sessionModel) updateSelect(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(variants)-1 {
			m.selected++
		}
	case "enter":
		m.variant = variants[m.selected]
		if m.variant == "file" {
			m.input.Placeholder = "path to write to"
			m.input.Focus()
			m.state = statePathInput
			return m, nil
		}
		return m.openVariant("")
	}
	return m, nil
}

func (m *sessionModel) updatePath(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.String() == "enter" {
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		return m.openVariant(path)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *sessionModel) openVariant(path string) (tea.Model, tea.Cmd) {
	var err error
	switch m.variant {
	case "stdout":
		m.handle = filehandle.NewStdout()
	case "discard":
		m.handle = filehandle.NewDiscard()
	case "file":
		m.handle, err = filehandle.NewPath(path)
	case "custom":
		m.handle, err = m.buildCounter()
	}
	if err != nil {
		m.err = err
		m.input.SetValue("")
		m.state = stateSelectVariant
		return m, nil
	}

	m.err = nil
	m.input.SetValue("")
	m.input.Placeholder = `type a line; "/flush" drains; esc quits`
	m.input.Focus()
	m.state = stateWriting
	return m, nil
}

// buildCounter constructs the TUI's custom variant through the placement
// builder; flush reports the drained total on the status line instead of
// printing over the TUI.
func (m *sessionModel) buildCounter() (*filehandle.FileHandle, error) {
	b, err := filehandle.NewBuilder(
		unsafe.Sizeof(tuiCounter{}),
		unsafe.Alignof(tuiCounter{}),
		filehandle.DispatchTable{
			Write: func(p unsafe.Pointer, data []byte) (int, error) {
				(*tuiCounter)(p).total += int64(len(data))
				return len(data), nil
			},
			Flush: func(p unsafe.Pointer) error {
				c := (*tuiCounter)(p)
				m.lastFlush = fmt.Sprintf("drained %d bytes", c.total)
				c.total = 0
				return nil
			},
			Destroy: func(unsafe.Pointer) error { return nil },
		},
	)
	if err != nil {
		return nil, err
	}
	(*tuiCounter)(b.Place).total = 0
	return b.Handle, nil
}

func (m *sessionModel) updateWriting(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.String() == "enter" {
		line := m.input.Value()
		m.input.SetValue("")

		if strings.TrimSpace(line) == "/flush" {
			if err := m.handle.Flush(); err != nil {
				m.status = errorStyle.Render(err.Error())
			} else {
				m.status = resultStyle.Render("flushed")
			}
			return m, nil
		}

		if err := writeAll(m.handle, []byte(line+"\n")); err != nil {
			m.status = errorStyle.Render(err.Error())
			return m, nil
		}
		m.total += int64(len(line)) + 1
		m.status = resultStyle.Render(fmt.Sprintf("%d bytes written", m.total))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *sessionModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("file-handle session"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectVariant:
		b.WriteString("Pick a variant:\n\n")
		for i, v := range variants {
			line := "  " + v
			if i == m.selected {
				line = selectedStyle.Render("> " + v)
			} else {
				line = variantStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if m.err != nil {
			b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
		}
		b.WriteString("\n" + helpStyle.Render("up/down to move, enter to open, esc to quit"))

	case statePathInput:
		b.WriteString("Output path:\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n" + helpStyle.Render("enter to open, esc to quit"))

	case stateWriting:
		b.WriteString(variantStyle.Render(m.variant) + " handle open\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		if m.status != "" {
			b.WriteString(m.status + "\n")
		}
		if m.lastFlush != "" {
			b.WriteString(resultStyle.Render(m.lastFlush) + "\n")
		}
		b.WriteString("\n" + helpStyle.Render(`"/flush" to flush, esc to close and quit`))
	}

	b.WriteByte('\n')
	return b.String()
}

func runInteractive() error {
	p := tea.NewProgram(newSessionModel())
	_, err := p.Run()
	return err
}
