package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockActions is a mock implementation of the Actions interface.
type mockActions struct {
	calls []string

	OccupyErr error
}

func (m *mockActions) Refresh(ctx context.Context) error {
	m.calls = append(m.calls, "refresh")
	return nil
}

func (m *mockActions) Occupy(ctx context.Context, stallID int64) error {
	m.calls = append(m.calls, "occupy")
	return m.OccupyErr
}

func (m *mockActions) Extend(ctx context.Context, stallID int64) error {
	m.calls = append(m.calls, "extend")
	return nil
}

// mockPrompter records prompts and answers with Answer.
type mockPrompter struct {
	Answer  bool
	prompts []Prompt
	alerts  []string
	focused []int64
}

func (m *mockPrompter) Confirm(ctx context.Context, p Prompt) bool {
	m.prompts = append(m.prompts, p)
	return m.Answer
}

func (m *mockPrompter) Alert(ctx context.Context, title, body string) {
	m.alerts = append(m.alerts, title+": "+body)
}

func (m *mockPrompter) Focus(stallID int64) {
	m.focused = append(m.focused, stallID)
}

func TestResponder_Handle(t *testing.T) {
	testCases := []struct {
		name        string
		ev          Event
		answer      bool
		wantCalls   []string
		wantPrompt  string
		wantFocused []int64
		wantAlerts  []string
	}{
		{
			name:        "stall available accepted occupies",
			ev:          Event{Kind: KindStallAvailable, Origin: OriginForeground, StallID: 3, Title: "Free", Body: "T3"},
			answer:      true,
			wantCalls:   []string{"refresh", "occupy"},
			wantPrompt:  "Occupy",
			wantFocused: []int64{3},
		},
		{
			name:        "stall available dismissed only refreshes",
			ev:          Event{Kind: KindStallAvailable, Origin: OriginBackground, StallID: 3},
			wantCalls:   []string{"refresh"},
			wantPrompt:  "Occupy",
			wantFocused: []int64{3},
		},
		{
			name:        "opened notification focuses without prompting",
			ev:          Event{Kind: KindStallAvailable, Origin: OriginOpened, StallID: 8},
			answer:      true,
			wantCalls:   []string{"refresh"},
			wantFocused: []int64{8},
		},
		{
			name:       "session expiring accepted extends",
			ev:         Event{Kind: KindSessionExpiring, Origin: OriginForeground, StallID: 4},
			answer:     true,
			wantCalls:  []string{"extend"},
			wantPrompt: "Extend Time",
		},
		{
			name:       "session expiring dismissed does nothing",
			ev:         Event{Kind: KindSessionExpiring, Origin: OriginForeground, StallID: 4},
			wantPrompt: "Extend Time",
		},
		{
			name: "session expiring tapped is ignored",
			ev:   Event{Kind: KindSessionExpiring, Origin: OriginOpened, StallID: 4},
		},
		{
			name:       "other kinds are plain alerts",
			ev:         Event{Kind: KindOther, Origin: OriginForeground, Title: "News", Body: "Cleaning at 3"},
			wantAlerts: []string{"News: Cleaning at 3"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actions := &mockActions{}
			prompter := &mockPrompter{Answer: tc.answer}

			NewResponder(actions, prompter).Handle(context.Background(), tc.ev)

			assert.Equal(t, tc.wantCalls, actions.calls)
			assert.Equal(t, tc.wantFocused, prompter.focused)
			assert.Equal(t, tc.wantAlerts, prompter.alerts)
			if tc.wantPrompt == "" {
				assert.Empty(t, prompter.prompts)
			} else if assert.Len(t, prompter.prompts, 1) {
				assert.Equal(t, tc.wantPrompt, prompter.prompts[0].Accept)
				assert.Equal(t, tc.ev.StallID, prompter.prompts[0].StallID)
			}
		})
	}
}

func TestResponder_OccupyFailureIsNotFatal(t *testing.T) {
	actions := &mockActions{OccupyErr: errors.New("conflict")}
	prompter := &mockPrompter{Answer: true}

	assert.NotPanics(t, func() {
		NewResponder(actions, prompter).Handle(context.Background(), Event{Kind: KindStallAvailable, StallID: 1})
	})
	assert.Equal(t, []string{"refresh", "occupy"}, actions.calls)
}

func TestAutoPrompter_Confirm(t *testing.T) {
	p := AutoPrompter{AutoOccupy: true}
	assert.True(t, p.Confirm(context.Background(), Prompt{Kind: KindStallAvailable}))
	assert.False(t, p.Confirm(context.Background(), Prompt{Kind: KindSessionExpiring}))
	assert.False(t, p.Confirm(context.Background(), Prompt{Kind: KindOther}))

	p = AutoPrompter{AutoExtend: true}
	assert.False(t, p.Confirm(context.Background(), Prompt{Kind: KindStallAvailable}))
	assert.True(t, p.Confirm(context.Background(), Prompt{Kind: KindSessionExpiring}))
}
