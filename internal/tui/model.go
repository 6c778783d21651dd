package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"washroom-tracker-client/internal/notification"
	"washroom-tracker-client/internal/occupancy"
)

// Engine is the sync engine as seen by the screen.
type Engine interface {
	View() occupancy.View
	Refresh(ctx context.Context) error
	Occupy(ctx context.Context, stallID int64) error
	Release(ctx context.Context, stallID int64) error
	JoinWaitlist(ctx context.Context, stallID int64) error
	SignOut(ctx context.Context)
}

// Custom messages for Bubble Tea
type (
	viewMsg    occupancy.View
	noticeMsg  occupancy.Notice
	focusMsg   int64
	actionDone struct{ err error }
	promptMsg  struct {
		prompt notification.Prompt
		reply  chan bool
	}
)

// confirmation is a pending yes/no dialog. Exactly one of onAccept and reply is set.
type confirmation struct {
	title    string
	body     string
	accept   string
	dismiss  string
	onAccept tea.Cmd
	reply    chan bool
}

type model struct {
	ctx     context.Context
	engine  Engine
	view    occupancy.View
	order   []int64
	cursor  int
	spinner spinner.Model
	notice  *occupancy.Notice
	pending []confirmation
	width   int
}

func newModel(ctx context.Context, engine Engine) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	m := model{ctx: ctx, engine: engine, spinner: s}
	m.setView(engine.View())
	return m
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if len(m.pending) > 0 {
			return m.answer(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case viewMsg:
		m.setView(occupancy.View(msg))
		if m.view.State == occupancy.StateSignedOut {
			m.abandonPrompts()
			return m, tea.Quit
		}

	case noticeMsg:
		n := occupancy.Notice(msg)
		m.notice = &n

	case focusMsg:
		m.focus(int64(msg))

	case promptMsg:
		p := msg.prompt
		m.pending = append(m.pending, confirmation{
			title:   p.Title,
			body:    p.Body,
			accept:  p.Accept,
			dismiss: p.Dismiss,
			reply:   msg.reply,
		})

	case actionDone:
		// Failures arrive as engine notices.
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.abandonPrompts()
		return m, tea.Quit

	case "up", "k", "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j", "right", "l":
		if m.cursor < len(m.order)-1 {
			m.cursor++
		}

	case "r":
		return m, m.run(func(ctx context.Context) error { return m.engine.Refresh(ctx) })

	case "enter", " ":
		return m.activate()

	case "o":
		m.pending = append(m.pending, confirmation{
			title:    "Logout",
			body:     "Are you sure you want to log out?",
			accept:   "Logout",
			dismiss:  "Cancel",
			onAccept: m.signOut(),
		})
	}
	return m, nil
}

// activate performs the selected stall's action. Release and waitlist joins
// ask first.
func (m model) activate() (tea.Model, tea.Cmd) {
	if len(m.order) == 0 {
		return m, nil
	}
	id := m.order[m.cursor]
	_, s, ok := m.view.Stall(id)
	if !ok {
		return m, nil
	}

	switch s.Action {
	case occupancy.ActionOccupy:
		return m, m.run(func(ctx context.Context) error { return m.engine.Occupy(ctx, id) })
	case occupancy.ActionRelease:
		m.pending = append(m.pending, confirmation{
			title:    "Release Toilet",
			body:     fmt.Sprintf("Are you sure you want to release toilet %s?", s.Label),
			accept:   "Release",
			dismiss:  "Cancel",
			onAccept: m.run(func(ctx context.Context) error { return m.engine.Release(ctx, id) }),
		})
	case occupancy.ActionJoinWaitlist:
		m.pending = append(m.pending, confirmation{
			title:    "Join Waitlist",
			body:     fmt.Sprintf("Toilet %s is occupied. Join the waitlist?", s.Label),
			accept:   "Join",
			dismiss:  "Cancel",
			onAccept: m.run(func(ctx context.Context) error { return m.engine.JoinWaitlist(ctx, id) }),
		})
	default:
		m.notice = &occupancy.Notice{Kind: occupancy.NoticeInfo, Title: "Waitlist", Message: "You are already on the waitlist for this toilet."}
	}
	return m, nil
}

func (m model) answer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var yes bool
	switch msg.String() {
	case "y", "enter":
		yes = true
	case "n", "esc":
	case "ctrl+c":
		m.abandonPrompts()
		return m, tea.Quit
	default:
		return m, nil
	}

	c := m.pending[0]
	m.pending = m.pending[1:]
	if c.reply != nil {
		c.reply <- yes
		return m, nil
	}
	if yes {
		return m, c.onAccept
	}
	return m, nil
}

// abandonPrompts declines every prompt still waiting on an answer.
func (m *model) abandonPrompts() {
	for _, c := range m.pending {
		if c.reply != nil {
			c.reply <- false
		}
	}
	m.pending = nil
}

// signOut ends the session; the engine's signed-out view then closes the screen.
func (m model) signOut() tea.Cmd {
	return m.run(func(ctx context.Context) error {
		m.engine.SignOut(ctx)
		return nil
	})
}

func (m model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDone{err: fn(ctx)}
	}
}

// setView installs v and keeps the cursor on the same stall when it still exists.
func (m *model) setView(v occupancy.View) {
	var selected int64 = -1
	if m.cursor < len(m.order) {
		selected = m.order[m.cursor]
	}

	m.view = v
	m.order = make([]int64, 0, len(m.order))
	for _, w := range sections(v) {
		for _, s := range w.Stalls {
			m.order = append(m.order, s.ID)
		}
	}

	m.cursor = 0
	if selected >= 0 {
		m.focus(selected)
	}
}

func (m *model) focus(stallID int64) {
	for i, id := range m.order {
		if id == stallID {
			m.cursor = i
			return
		}
	}
}

// sections orders washrooms by floor, keeping the server's order within a
// floor. Unparseable floors go last.
func sections(v occupancy.View) []occupancy.WashroomView {
	out := append([]occupancy.WashroomView(nil), v.Washrooms...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasLevel != b.HasLevel {
			return a.HasLevel
		}
		return a.Level < b.Level
	})
	return out
}

func (m model) View() string {
	var s strings.Builder

	title := "Washrooms"
	if m.view.Identity != nil {
		title = fmt.Sprintf("Washrooms · %s", m.view.Identity.DisplayName)
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")

	switch m.view.State {
	case occupancy.StateUninitialized, occupancy.StateLoading:
		s.WriteString(fmt.Sprintf("%s Loading washrooms...\n", m.spinner.View()))
		return s.String()
	case occupancy.StateSignedOut:
		s.WriteString("Signed out. Please log in again.\n")
		return s.String()
	}

	if m.view.Refreshing {
		s.WriteString(fmt.Sprintf("%s Refreshing...\n", m.spinner.View()))
	} else if !m.view.UpdatedAt.IsZero() {
		s.WriteString(mutedStyle.Render("Updated " + m.view.UpdatedAt.Format("15:04:05")))
		s.WriteString("\n")
	}

	s.WriteString(m.renderSections())

	if m.notice != nil {
		style := noticeStyle
		if m.notice.Kind != occupancy.NoticeInfo {
			style = errorStyle
		}
		s.WriteString(style.Render(fmt.Sprintf("%s: %s", m.notice.Title, m.notice.Message)))
		s.WriteString("\n")
	}

	if len(m.pending) > 0 {
		c := m.pending[0]
		s.WriteString(dialogStyle.Render(fmt.Sprintf("%s\n%s\n\n[y] %s   [n] %s", c.title, c.body, c.accept, c.dismiss)))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("↑/↓ move • enter act • r refresh • o log out • q quit"))
	return s.String()
}

func (m model) renderSections() string {
	var selected int64 = -1
	if m.cursor < len(m.order) {
		selected = m.order[m.cursor]
	}

	var out strings.Builder
	if len(m.view.Washrooms) == 0 {
		out.WriteString(mutedStyle.Render("No washrooms available."))
		out.WriteString("\n")
		return out.String()
	}

	lastFloor := ""
	for _, w := range sections(m.view) {
		if w.Floor != lastFloor {
			out.WriteString(floorStyle.Render("Floor " + w.Floor))
			out.WriteString("\n")
			lastFloor = w.Floor
		}

		header := fmt.Sprintf("%s (%s) · %s", w.Name, w.Category, w.Summary)
		if !w.Operational {
			header += " · out of service"
		}

		cells := make([]string, 0, len(w.Stalls))
		for _, st := range w.Stalls {
			cells = append(cells, renderStall(st, st.ID == selected))
		}
		body := lipgloss.JoinVertical(lipgloss.Left,
			sectionTitleStyle.Render(header),
			lipgloss.JoinHorizontal(lipgloss.Top, cells...),
		)
		out.WriteString(sectionStyle.Render(body))
		out.WriteString("\n")
	}
	return out.String()
}

func renderStall(s occupancy.StallView, selected bool) string {
	color := freeColor
	status := "Available"
	switch {
	case s.Mine:
		color = mineColor
		status = s.Occupant
	case s.Waiting:
		color = waitingColor
		status = "Waiting"
	case s.Occupied:
		color = occupiedColor
		status = s.Occupant
	}

	lines := []string{s.Label, status}
	if s.Remaining != "" {
		lines = append(lines, s.Remaining)
	}

	style := cellStyle.BorderForeground(color).Foreground(color)
	if selected {
		style = style.BorderStyle(lipgloss.ThickBorder()).BorderForeground(cursorColor)
	}
	return style.Render(strings.Join(lines, "\n"))
}
