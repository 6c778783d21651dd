package notification

import (
	"context"
	"log"
)

// Actions is what the responder may ask of the sync engine.
type Actions interface {
	Refresh(ctx context.Context) error
	Occupy(ctx context.Context, stallID int64) error
	Extend(ctx context.Context, stallID int64) error
}

// Prompt is a two-button question put to the user.
type Prompt struct {
	Kind    Kind
	StallID int64
	Title   string
	Body    string
	Accept  string
	Dismiss string
}

// Prompter asks the user things. Confirm blocks until answered or ctx is done.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) bool
	Alert(ctx context.Context, title, body string)
	Focus(stallID int64)
}

// Responder turns push events into engine actions.
type Responder struct {
	actions  Actions
	prompter Prompter
}

func NewResponder(actions Actions, prompter Prompter) *Responder {
	return &Responder{actions: actions, prompter: prompter}
}

// Handle is a Handler.
func (r *Responder) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case KindStallAvailable:
		r.stallAvailable(ctx, ev)
	case KindSessionExpiring:
		if ev.Origin == OriginOpened {
			return
		}
		r.sessionExpiring(ctx, ev)
	default:
		if ev.Origin == OriginOpened {
			return
		}
		r.prompter.Alert(ctx, ev.Title, ev.Body)
	}
}

func (r *Responder) stallAvailable(ctx context.Context, ev Event) {
	// Errors are already surfaced as engine notices.
	_ = r.actions.Refresh(ctx)
	r.prompter.Focus(ev.StallID)
	if ev.Origin == OriginOpened {
		return
	}

	accepted := r.prompter.Confirm(ctx, Prompt{
		Kind:    ev.Kind,
		StallID: ev.StallID,
		Title:   ev.Title,
		Body:    ev.Body,
		Accept:  "Occupy",
		Dismiss: "Dismiss",
	})
	if !accepted {
		return
	}
	if err := r.actions.Occupy(ctx, ev.StallID); err != nil {
		log.Printf("Occupy from push for stall %d failed: %v", ev.StallID, err)
	}
}

func (r *Responder) sessionExpiring(ctx context.Context, ev Event) {
	accepted := r.prompter.Confirm(ctx, Prompt{
		Kind:    ev.Kind,
		StallID: ev.StallID,
		Title:   ev.Title,
		Body:    ev.Body,
		Accept:  "Extend Time",
		Dismiss: "OK",
	})
	if !accepted {
		return
	}
	if err := r.actions.Extend(ctx, ev.StallID); err != nil {
		log.Printf("Extend from push for stall %d failed: %v", ev.StallID, err)
	}
}

// AutoPrompter answers prompts from configuration, for headless runs.
type AutoPrompter struct {
	AutoOccupy bool
	AutoExtend bool
}

func (p AutoPrompter) Confirm(ctx context.Context, pr Prompt) bool {
	var ok bool
	switch pr.Kind {
	case KindStallAvailable:
		ok = p.AutoOccupy
	case KindSessionExpiring:
		ok = p.AutoExtend
	}
	log.Printf("Push prompt %q for stall %d: %q -> %s", pr.Title, pr.StallID, pr.Body, answer(ok, pr))
	return ok
}

func (p AutoPrompter) Alert(ctx context.Context, title, body string) {
	log.Printf("Push alert %q: %s", title, body)
}

func (p AutoPrompter) Focus(stallID int64) {}

func answer(ok bool, pr Prompt) string {
	if ok {
		return pr.Accept
	}
	return pr.Dismiss
}
