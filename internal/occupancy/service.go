package occupancy

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"

	"washroom-tracker-client/config"
	"washroom-tracker-client/internal/apiclient"
	"washroom-tracker-client/internal/model"
)

// ErrSignedOut is returned by Run when there is no session to sync for or
// the session expired.
var ErrSignedOut = errors.New("occupancy: signed out")

const defaultPollInterval = 30 * time.Second

// API is the subset of the backend client the engine needs.
type API interface {
	Washrooms(ctx context.Context) (model.Snapshot, error)
	Occupy(ctx context.Context, stallID int64) error
	Release(ctx context.Context, stallID int64) error
	JoinWaitlist(ctx context.Context, stallID int64) error
	Extend(ctx context.Context, stallID int64) error
}

// Session exposes the signed-in identity and the forced sign-out.
type Session interface {
	Current() (model.Identity, bool)
	SignOut(ctx context.Context)
}

// Service keeps the local snapshot in step with the backend and applies the
// user's stall actions.
type Service struct {
	api       API
	session   Session
	interval  time.Duration
	ownership config.Ownership
	metrics   *Metrics

	seq *atomic.Uint64

	mu        sync.Mutex
	state     State
	inFlight  int
	applied   uint64
	snapshot  model.Snapshot
	waiting   map[int64]struct{}
	updatedAt time.Time

	subMu      sync.Mutex
	nextSub    int
	viewSubs   map[int]func(View)
	noticeSubs map[int]func(Notice)

	expired       bool
	signedOut     chan struct{}
	signedOutOnce sync.Once
}

// NewService creates a sync engine. A nil metrics gets unregistered collectors.
func NewService(cfg config.SyncConfig, api API, session Session, metrics *Metrics) *Service {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		api:        api,
		session:    session,
		interval:   interval,
		ownership:  cfg.Ownership,
		metrics:    metrics,
		seq:        atomic.NewUint64(0),
		waiting:    make(map[int64]struct{}),
		viewSubs:   make(map[int]func(View)),
		noticeSubs: make(map[int]func(Notice)),
		signedOut:  make(chan struct{}),
	}
}

// Run loads the snapshot and then refreshes it every poll interval until ctx
// is cancelled or the session expires. Cancelling ctx aborts the fetch in flight.
func (s *Service) Run(ctx context.Context) error {
	if _, ok := s.session.Current(); !ok {
		return ErrSignedOut
	}
	log.Println("Starting occupancy sync...")

	s.Refresh(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Occupancy sync shutting down.")
			return s.stopErr()
		case <-s.signedOut:
			log.Println("Signed out; occupancy sync stopped.")
			return s.stopErr()
		case <-timer.C:
			s.Refresh(ctx)
			timer.Reset(s.interval)
		}
	}
}

// Refresh fetches a new snapshot. Responses older than the last installed one
// are discarded. Failures are reported as notices and returned.
func (s *Service) Refresh(ctx context.Context) error {
	seq := s.seq.Inc()
	s.beginFetch()

	snapshot, err := s.api.Washrooms(ctx)
	if err != nil {
		s.endFetch()
		s.fetchFailed(ctx, err)
		return err
	}
	s.install(seq, snapshot)
	return nil
}

// Occupy claims a stall. The local snapshot is not touched until the backend
// confirms; on success the stall leaves the waitlist and a refresh follows.
// A confirmation that lands after sign-out changes nothing.
func (s *Service) Occupy(ctx context.Context, stallID int64) error {
	if err := s.act(ctx, string(ActionOccupy), apiclient.OpOccupy, stallID, s.api.Occupy); err != nil {
		return err
	}
	s.mu.Lock()
	if s.state == StateSignedOut {
		s.mu.Unlock()
		return nil
	}
	delete(s.waiting, stallID)
	s.metrics.Waiting.Set(float64(len(s.waiting)))
	s.mu.Unlock()
	s.publish()

	s.Refresh(ctx)
	return nil
}

// Release gives up a stall and refreshes.
func (s *Service) Release(ctx context.Context, stallID int64) error {
	if err := s.act(ctx, string(ActionRelease), apiclient.OpRelease, stallID, s.api.Release); err != nil {
		return err
	}
	if s.isSignedOut() {
		return nil
	}
	s.Refresh(ctx)
	return nil
}

// JoinWaitlist subscribes to a stall's availability.
func (s *Service) JoinWaitlist(ctx context.Context, stallID int64) error {
	if err := s.act(ctx, string(ActionJoinWaitlist), apiclient.OpJoinWaitlist, stallID, s.api.JoinWaitlist); err != nil {
		return err
	}
	s.mu.Lock()
	if s.state == StateSignedOut {
		s.mu.Unlock()
		return nil
	}
	s.waiting[stallID] = struct{}{}
	s.metrics.Waiting.Set(float64(len(s.waiting)))
	s.mu.Unlock()

	s.notify(noticeWaitlisted)
	s.publish()
	return nil
}

// Extend asks the backend for more time on the user's stall.
func (s *Service) Extend(ctx context.Context, stallID int64) error {
	if err := s.act(ctx, "extend", apiclient.OpExtend, stallID, s.api.Extend); err != nil {
		return err
	}
	if s.isSignedOut() {
		return nil
	}
	s.notify(noticeExtended)
	return nil
}

// View returns the current presentation state.
func (s *Service) View() View {
	var identity *model.Identity
	if id, ok := s.session.Current(); ok {
		identity = &id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		State:      s.state,
		Refreshing: s.state == StateReady && s.inFlight > 0,
		Identity:   identity,
		Washrooms:  BuildView(s.snapshot, identity, s.waiting, s.ownership),
		Waiting:    sortedIDs(s.waiting),
		UpdatedAt:  s.updatedAt,
	}
}

// Subscribe registers fn to receive every view change. The returned func
// removes it.
func (s *Service) Subscribe(fn func(View)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.viewSubs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.viewSubs, id)
		s.subMu.Unlock()
	}
}

// Notices registers fn to receive user-facing notices.
func (s *Service) Notices(fn func(Notice)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.noticeSubs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.noticeSubs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) beginFetch() {
	s.mu.Lock()
	s.inFlight++
	if s.state == StateUninitialized {
		s.state = StateLoading
	}
	s.mu.Unlock()
	s.publish()
}

func (s *Service) endFetch() {
	s.mu.Lock()
	s.inFlight--
	if s.state == StateLoading {
		s.state = StateReady
	}
	s.mu.Unlock()
	s.publish()
}

func (s *Service) install(seq uint64, snapshot model.Snapshot) {
	var identity *model.Identity
	if id, ok := s.session.Current(); ok {
		identity = &id
	}

	s.mu.Lock()
	s.inFlight--
	switch {
	case s.state == StateSignedOut:
		s.mu.Unlock()
		return
	case seq <= s.applied:
		s.mu.Unlock()
		log.Printf("Discarding stale snapshot (seq %d, installed %d)", seq, s.applied)
		s.metrics.Fetches.WithLabelValues(fetchStale).Inc()
		s.publish()
		return
	}

	s.snapshot = snapshot
	s.applied = seq
	s.updatedAt = time.Now()
	s.state = StateReady
	s.reconcile(identity)

	available := 0
	for _, w := range snapshot {
		available += w.AvailableCount
	}
	s.metrics.AvailableStalls.Set(float64(available))
	s.metrics.Waiting.Set(float64(len(s.waiting)))
	s.mu.Unlock()

	s.metrics.Fetches.WithLabelValues(fetchOK).Inc()
	s.publish()
}

// reconcile drops waitlist entries for stalls the user now occupies.
// Callers hold s.mu.
func (s *Service) reconcile(identity *model.Identity) {
	if len(s.waiting) == 0 || identity == nil {
		return
	}
	for _, w := range s.snapshot {
		for _, stall := range w.Stalls {
			if _, ok := s.waiting[stall.ID]; ok && IsMine(stall, identity, s.ownership) {
				delete(s.waiting, stall.ID)
			}
		}
	}
}

func (s *Service) fetchFailed(ctx context.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		s.metrics.Fetches.WithLabelValues(fetchCanceled).Inc()
	case errors.Is(err, apiclient.ErrSessionExpired):
		s.metrics.Fetches.WithLabelValues(fetchSessionExpired).Inc()
	default:
		s.metrics.Fetches.WithLabelValues(fetchFailed).Inc()
	}
	s.handleFailure(ctx, apiclient.OpFetch, err)
}

func (s *Service) act(ctx context.Context, action, op string, stallID int64, call func(context.Context, int64) error) error {
	if err := call(ctx, stallID); err != nil {
		log.Printf("Failed to %s for stall %d: %v", op, stallID, err)
		s.metrics.Actions.WithLabelValues(action, "failed").Inc()
		s.handleFailure(ctx, op, err)
		return err
	}
	s.metrics.Actions.WithLabelValues(action, "ok").Inc()
	return nil
}

// handleFailure maps an API error onto engine state and notices.
func (s *Service) handleFailure(ctx context.Context, op string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		// Teardown, nothing to tell the user.
	case errors.Is(err, apiclient.ErrSessionExpired):
		s.expire(ctx)
	default:
		log.Printf("Error during %s: %v", op, err)
		s.notify(failureNotice(op, err))
	}
}

// SignOut ends the session at the user's request. Run then returns nil.
func (s *Service) SignOut(ctx context.Context) {
	if s.signOut(ctx, false) {
		log.Println("Signed out by user.")
	}
}

// expire moves the engine to SignedOut after the backend rejected the token.
func (s *Service) expire(ctx context.Context) {
	if s.signOut(ctx, true) {
		log.Println("Session expired; signed out.")
		s.notify(noticeExpired)
	}
	s.publish()
}

// signOut clears the snapshot, the waitlist and the session. Only the first
// call has any effect; it reports whether this call did.
func (s *Service) signOut(ctx context.Context, expired bool) bool {
	s.mu.Lock()
	if s.state == StateSignedOut {
		s.mu.Unlock()
		return false
	}
	s.state = StateSignedOut
	s.expired = expired
	s.snapshot = nil
	s.waiting = make(map[int64]struct{})
	s.metrics.Waiting.Set(0)
	s.mu.Unlock()

	s.session.SignOut(context.WithoutCancel(ctx))
	s.signedOutOnce.Do(func() { close(s.signedOut) })
	if !expired {
		s.publish()
	}
	return true
}

func (s *Service) isSignedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateSignedOut
}

// stopErr is what Run returns once it stops: ErrSignedOut after an expiry,
// nil otherwise.
func (s *Service) stopErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return ErrSignedOut
	}
	return nil
}

func (s *Service) publish() {
	s.subMu.Lock()
	subs := make([]func(View), 0, len(s.viewSubs))
	for _, fn := range s.viewSubs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	v := s.View()
	for _, fn := range subs {
		fn(v)
	}
}

func (s *Service) notify(n Notice) {
	s.subMu.Lock()
	subs := make([]func(Notice), 0, len(s.noticeSubs))
	for _, fn := range s.noticeSubs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}
