package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"go.uber.org/zap"

	"github.com/muurk/hcat/internal/hcdevice"
	"github.com/muurk/hcat/internal/logging"
	"github.com/muurk/hcat/internal/ui"
	"github.com/muurk/hcat/internal/uart"
)

// Screen is the active view
type Screen int

const (
	ScreenDetecting Screen = iota
	ScreenMenu
	ScreenChoose
	ScreenInput
	ScreenWorking
	ScreenPowerCycle
	ScreenResult
)

type detectDoneMsg struct {
	cfg hcdevice.DeviceConfig
	err error
}

type probeMsg hcdevice.Event

type powerCycleMsg struct {
	reply chan<- error
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Enter}, {k.Back, k.Quit}}
}

func defaultKeys() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// AppModel is the wizard: detect the module, then loop over the menu.
type AppModel struct {
	Screen Screen
	Port   string
	Width  int
	Height int

	Config     hcdevice.DeviceConfig
	Cursor     int
	Pending    Action
	ProbeCell  int
	ProbeTotal int
	ProbeNote  string
	LastDetail string
	LastError  error

	session *hcdevice.Session
	ctx     context.Context
	events  chan hcdevice.Event
	prompts chan chan<- error
	reply   chan<- error

	spinner spinner.Model
	bar     progress.Model
	choices list.Model
	input   textinput.Model
	help    help.Model
	keys    keyMap
}

// New builds the wizard around a fresh session on link. opts are applied
// before the wizard's own observer and power cycle prompt.
func New(link uart.Link, mode uart.ModeControl, port string, opts ...hcdevice.Option) AppModel {
	events := make(chan hcdevice.Event, 64)
	prompts := make(chan chan<- error)

	observer := func(e hcdevice.Event) {
		if e.Type != hcdevice.EventProbeCell {
			return
		}
		select {
		case events <- e:
		default: // the bar skips a cell rather than stall the probe
		}
	}
	powerCycle := func() error {
		reply := make(chan error, 1)
		prompts <- reply
		return <-reply
	}
	all := append(append([]hcdevice.Option{}, opts...),
		hcdevice.WithObserver(observer),
		hcdevice.WithPowerCycle(powerCycle),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return AppModel{
		Screen:  ScreenDetecting,
		Port:    port,
		Width:   80,
		Height:  24,
		session: hcdevice.NewSession(link, mode, all...),
		ctx:     context.Background(),
		events:  events,
		prompts: prompts,
		spinner: s,
		bar:     bar,
		help:    help.New(),
		keys:    defaultKeys(),
	}
}

// Session exposes the underlying session, mainly so callers can Close it.
func (m AppModel) Session() *hcdevice.Session {
	return m.session
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.detectCmd(), m.waitForEvent(), m.waitForPrompt())
}

func (m AppModel) detectCmd() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		cfg, err := s.Detect(ctx)
		return detectDoneMsg{cfg: cfg, err: err}
	}
}

func (m AppModel) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		return probeMsg(<-ch)
	}
}

func (m AppModel) waitForPrompt() tea.Cmd {
	ch := m.prompts
	return func() tea.Msg {
		return powerCycleMsg{reply: <-ch}
	}
}

func (m AppModel) busy() bool {
	return m.Screen == ScreenDetecting || m.Screen == ScreenWorking
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.choices.SetSize(m.listWidth(), m.listHeight())
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case probeMsg:
		m.ProbeCell, m.ProbeTotal = msg.Cell, msg.Total
		m.ProbeNote = fmt.Sprintf("%s  %d baud  %s parity", msg.Dialect, msg.BaudRate, msg.Parity)
		return m, m.waitForEvent()

	case detectDoneMsg:
		m.Config = msg.cfg
		m.LastError = msg.err
		if msg.err != nil {
			m.Pending = ActionRescan
			m.Screen = ScreenResult
			return m, nil
		}
		m.LastDetail = "Found " + msg.cfg.Summary()
		m.Screen = ScreenMenu
		return m, nil

	case opDoneMsg:
		m.Config = m.session.Config()
		m.Pending = msg.action
		m.LastDetail = msg.detail
		m.LastError = msg.err
		m.Screen = ScreenResult
		return m, nil

	case powerCycleMsg:
		m.reply = msg.reply
		m.Screen = ScreenPowerCycle
		return m, m.waitForPrompt()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Screen {
	case ScreenMenu:
		return m.updateMenu(msg)

	case ScreenChoose:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.Screen = ScreenMenu
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			o, ok := m.choices.SelectedItem().(option)
			if !ok {
				return m, nil
			}
			return m.start(runCmd(m.session, m.Pending, o, ""))
		}
		var cmd tea.Cmd
		m.choices, cmd = m.choices.Update(msg)
		return m, cmd

	case ScreenInput:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.Screen = ScreenMenu
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			return m.start(runCmd(m.session, m.Pending, option{}, m.input.Value()))
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case ScreenPowerCycle:
		switch {
		case key.Matches(msg, m.keys.Enter):
			m.reply <- nil
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
			m.reply <- ui.ErrCancelled
		default:
			return m, nil
		}
		m.reply = nil
		m.Screen = ScreenWorking
		return m, m.spinner.Tick

	case ScreenResult:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.session.State() != hcdevice.StateDetected {
			return m.rescan()
		}
		m.Screen = ScreenMenu
		return m, nil
	}
	return m, nil
}

func (m AppModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.Cursor < len(menu)-1 {
			m.Cursor++
		}
	case key.Matches(msg, m.keys.Enter):
		return m.choose(menu[m.Cursor].action)
	default:
		s := msg.String()
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			i := int(s[0] - '1')
			if i < len(menu) {
				m.Cursor = i
				return m.choose(menu[i].action)
			}
		}
	}
	return m, nil
}

// choose opens the screen that collects the value for a menu action.
func (m AppModel) choose(a Action) (tea.Model, tea.Cmd) {
	m.Pending = a
	switch a {
	case ActionQuit:
		return m, tea.Quit
	case ActionRescan:
		return m.rescan()
	case ActionVersion:
		return m.start(runCmd(m.session, a, option{}, ""))
	case ActionSetName, ActionSetPin:
		m.input = textinput.New()
		m.input.CharLimit = 32
		m.input.Width = 32
		if a == ActionSetName {
			m.input.Placeholder = "new name (" + m.Config.Model.NamePrefix() + " is prepended)"
		} else {
			m.input.Placeholder = "4 digits (Legacy) or up to 16 characters"
		}
		m.input.Focus()
		m.Screen = ScreenInput
		return m, textinput.Blink
	}

	baud, parity := m.session.LocalSettings()
	l := list.New(optionsFor(a, m.Config, baud, parity), list.NewDefaultDelegate(), m.listWidth(), m.listHeight())
	l.Title = a.String()
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	m.choices = l
	m.Screen = ScreenChoose
	return m, nil
}

func (m AppModel) start(op tea.Cmd) (tea.Model, tea.Cmd) {
	m.Screen = ScreenWorking
	return m, tea.Batch(m.spinner.Tick, op)
}

func (m AppModel) rescan() (tea.Model, tea.Cmd) {
	m.Screen = ScreenDetecting
	m.ProbeCell, m.ProbeTotal, m.ProbeNote = 0, 0, ""
	return m, tea.Batch(m.spinner.Tick, m.detectCmd())
}

func (m AppModel) listWidth() int {
	return max(m.Width-8, 20)
}

func (m AppModel) listHeight() int {
	return max(m.Height-12, MinListHeight)
}

func (m AppModel) View() string {
	var content, footer string
	switch m.Screen {
	case ScreenDetecting:
		content = m.viewDetecting()
		footer = "ctrl+c quit"
	case ScreenMenu:
		content = m.viewMenu()
		footer = m.help.View(m.keys) + "  •  1-9 select"
	case ScreenChoose:
		content = m.choices.View()
		footer = m.help.View(m.keys)
	case ScreenInput:
		content = RenderTitle(m.Pending.String()) + "\n" + m.input.View()
		footer = "enter apply  •  esc back"
	case ScreenWorking:
		content = "\n  " + m.spinner.View() + " Talking to the module..."
		footer = "please wait"
	case ScreenPowerCycle:
		content = "\n" + WarningBoxStyle.Render(strings.Join([]string{
			"⚠ POWER CYCLE REQUIRED",
			"",
			"Legacy firmware applies parity only after a restart.",
			"Disconnect the module's VCC, wait a second, reconnect it.",
		}, "\n"))
		footer = "enter continue  •  esc abort"
	case ScreenResult:
		content = m.viewResult()
		footer = "any key continue  •  q quit"
	}
	return RenderApplicationContainer(m.Port, content, footer, m.Width, m.Height)
}

func (m AppModel) viewDetecting() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Searching for a module"))
	b.WriteString("\n  " + m.spinner.View() + " probing every dialect, parity and baud rate\n\n")
	pct := 0.0
	if m.ProbeTotal > 0 {
		pct = float64(m.ProbeCell) / float64(m.ProbeTotal)
	}
	b.WriteString("  " + m.bar.ViewAs(pct) + fmt.Sprintf("  [%d/%d]\n", m.ProbeCell, m.ProbeTotal))
	if m.ProbeNote != "" {
		b.WriteString("  " + SubtitleStyle.Render(m.ProbeNote) + "\n")
	}
	return b.String()
}

func (m AppModel) viewMenu() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Module"))
	b.WriteString(InfoBoxStyle.Render(m.Config.FormatCompact()))
	b.WriteString("\n")
	for i, item := range menu {
		b.WriteString(RenderMenuItem(fmt.Sprintf("%d. %s", i+1, item.label), i == m.Cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m AppModel) viewResult() string {
	if m.LastError == nil {
		return "\n" + RenderSuccess(m.LastDetail)
	}
	var b strings.Builder
	b.WriteString("\n" + RenderError(hcdevice.GetShortErrorMessage(m.LastError)) + "\n\n")
	b.WriteString(HintStyle.Render(hcdevice.GetTroubleshootingHint(m.LastError)))
	if m.session.State() != hcdevice.StateDetected {
		b.WriteString("\n\n" + SubtitleStyle.Render("Press any key to search again."))
	}
	return b.String()
}

// Run starts the wizard full screen and closes the session on exit.
func Run(m AppModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	if cerr := m.session.Close(); cerr != nil {
		logging.Warn("closing link", zap.Error(cerr))
	}
	return err
}
