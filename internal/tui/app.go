package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"washroom-tracker-client/internal/notification"
	"washroom-tracker-client/internal/occupancy"
)

// Source is the engine plus its change feeds.
type Source interface {
	Engine
	Subscribe(fn func(occupancy.View)) func()
	Notices(fn func(occupancy.Notice)) func()
}

// App is the interactive washroom screen. It also answers push prompts with
// in-screen dialogs.
type App struct {
	program *tea.Program
	done    chan struct{}
}

// New builds the screen. Actions started from it use ctx.
func New(ctx context.Context, src Source) *App {
	a := &App{done: make(chan struct{})}
	a.program = tea.NewProgram(newModel(ctx, src), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribeViews := src.Subscribe(func(v occupancy.View) { a.send(viewMsg(v)) })
	unsubscribeNotices := src.Notices(func(n occupancy.Notice) { a.send(noticeMsg(n)) })
	go func() {
		<-a.done
		unsubscribeViews()
		unsubscribeNotices()
	}()
	return a
}

// Run shows the screen until the user quits or the session ends.
func (a *App) Run() error {
	defer close(a.done)
	_, err := a.program.Run()
	return err
}

// Confirm shows p as a dialog and waits for the answer.
func (a *App) Confirm(ctx context.Context, p notification.Prompt) bool {
	reply := make(chan bool, 1)
	if !a.send(promptMsg{prompt: p, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	case <-a.done:
		return false
	}
}

// Alert shows a plain notice.
func (a *App) Alert(ctx context.Context, title, body string) {
	a.send(noticeMsg(occupancy.Notice{Kind: occupancy.NoticeInfo, Title: title, Message: body}))
}

// Focus moves the cursor to the stall.
func (a *App) Focus(stallID int64) {
	a.send(focusMsg(stallID))
}

// send delivers msg unless the screen has already closed.
func (a *App) send(msg tea.Msg) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	a.program.Send(msg)
	return true
}
