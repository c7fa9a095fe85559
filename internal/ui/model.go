package ui

import (
	"ImageChat/internal/service/conversation"
	"ImageChat/internal/service/image"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	Placeholder = "Describe the image you want to create..."
	sendLabel   = "Send"
	busyLabel   = "..."
)

// Orchestrator — то, что интерфейс знает о логике запросов.
type Orchestrator interface {
	SubmitPrompt(raw string) bool
	IsBusy() bool
}

// Gallery отдаёт сохранённый на диск файл для готовой картинки.
type Gallery interface {
	Lookup(ref string) (image.SavedImage, bool)
	NotifyCh() <-chan struct{}
}

type snapshotMsg struct{ snap conversation.Snapshot }

type savedMsg struct{}

// Model — bubbletea-модель: слева переписка и поле ввода, справа картинка.
type Model struct {
	store   *conversation.Store
	orch    Orchestrator
	gallery Gallery

	input textinput.Model
	spin  spinner.Model
	vp    viewport.Model

	snap   conversation.Snapshot
	width  int
	height int
	ready  bool
}

// New создаёт модель; gallery может быть nil.
func New(store *conversation.Store, orch Orchestrator, gallery Gallery) Model {
	in := textinput.New()
	in.Placeholder = Placeholder
	in.Prompt = "> "
	in.CharLimit = 0
	in.Width = 60
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		store:   store,
		orch:    orch,
		gallery: gallery,
		input:   in,
		spin:    s,
		vp:      viewport.New(60, 20),
		snap:    store.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForChange(m.store)}
	if m.gallery != nil {
		cmds = append(cmds, waitForSaved(m.gallery.NotifyCh()))
	}
	return tea.Batch(cmds...)
}

// waitForChange ждёт сигнала Store и отдаёт свежий снимок.
func waitForChange(store *conversation.Store) tea.Cmd {
	ch := store.NotifyCh()
	return func() tea.Msg {
		<-ch
		return snapshotMsg{snap: store.Snapshot()}
	}
}

func waitForSaved(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return savedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case snapshotMsg:
		return m.applySnapshot(msg.snap, waitForChange(m.store))

	case savedMsg:
		return m, waitForSaved(m.gallery.NotifyCh())

	case spinner.TickMsg:
		// спиннер крутится только пока идёт запрос
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if !m.busy() {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy() {
		return m, nil
	}
	if !m.orch.SubmitPrompt(m.input.Value()) {
		return m, nil
	}
	m.input.Reset()
	// Store уже сменил состояние; сигнал в NotifyCh обработает waitForChange
	return m.applySnapshot(m.store.Snapshot(), nil)
}

func (m Model) applySnapshot(snap conversation.Snapshot, next tea.Cmd) (tea.Model, tea.Cmd) {
	if snap.Version < m.snap.Version {
		return m, next
	}
	wasBusy := m.busy()
	m.snap = snap
	m.refreshTranscript()

	cmds := []tea.Cmd{next}
	switch {
	case m.busy() && !wasBusy:
		m.input.Blur()
		cmds = append(cmds, m.spin.Tick)
	case !m.busy() && wasBusy:
		cmds = append(cmds, m.input.Focus())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) busy() bool {
	return m.snap.Lifecycle.Status == conversation.StatusPending
}

func (m *Model) layout() {
	chatW, _ := m.panelWidths()
	m.input.Width = max(chatW-len(m.input.Prompt)-len(sendLabel)-8, 10)
	m.vp.Width = max(chatW-2, 10)
	m.vp.Height = max(m.height-6, 3)
	m.refreshTranscript()
}

func (m Model) panelWidths() (int, int) {
	if m.width <= 0 {
		return 60, 40
	}
	chat := m.width * 3 / 5
	return chat, m.width - chat
}

// refreshTranscript перерисовывает переписку и прокручивает к последней записи.
func (m *Model) refreshTranscript() {
	m.vp.SetContent(renderTranscript(m.snap.Entries, m.vp.Width))
	m.vp.GotoBottom()
}

func renderTranscript(entries []conversation.Entry, width int) string {
	wrap := lipgloss.NewStyle().Width(max(width-4, 10))
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		label := systemLabelStyle.Render("AI:")
		if e.Sender == conversation.SenderUser {
			label = userLabelStyle.Render("You:")
		}
		b.WriteString(label + " " + timeStyle.Render(e.CreatedAt.Format("15:04")) + "\n")
		b.WriteString(wrap.Render(e.Text) + "\n")
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	chatW, imageW := m.panelWidths()
	return lipgloss.JoinHorizontal(lipgloss.Top, m.chatView(chatW), m.imageView(imageW))
}

func (m Model) chatView(width int) string {
	label := sendLabel
	if m.busy() {
		label = busyLabel
	}
	inputLine := m.input.View() + " " + buttonStyle.Render(label)
	body := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Chat"), m.vp.View(), inputLine)
	return panelStyle.Width(max(width-2, 10)).Render(body)
}

func (m Model) imageView(width int) string {
	inner := max(width-4, 10)
	lc := m.snap.Lifecycle

	var body string
	switch lc.Status {
	case conversation.StatusPending:
		body = m.spin.View() + " Creating your image..."
	case conversation.StatusSucceeded:
		body = m.succeededView(lc.ImageRef, inner)
	case conversation.StatusFailed:
		body = errorStyle.Width(inner).Render("Image could not be created.\n" + lc.ErrorMessage)
	default:
		body = faintStyle.Render("Your image will appear here.")
	}
	content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Image"), body)
	return panelStyle.Width(max(width-2, 10)).Render(content)
}

func (m Model) succeededView(ref string, width int) string {
	lines := []string{successStyle.Render("Image ready")}
	if m.gallery != nil {
		if saved, ok := m.gallery.Lookup(ref); ok {
			lines = append(lines,
				"File: "+saved.Path,
				fmt.Sprintf("Size: %dx%d (%s)", saved.Width, saved.Height, saved.MimeType),
			)
			return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
		}
	}
	lines = append(lines, "Ref: "+shortRef(ref, 200))
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// shortRef обрезает длинные ссылки (data URL занимает мегабайты).
func shortRef(ref string, limit int) string {
	if len(ref) <= limit {
		return ref
	}
	return ref[:limit] + "..."
}
