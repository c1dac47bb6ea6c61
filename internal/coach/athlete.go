package coach

import (
	"sync"
	"time"

	"github.com/myrjola/rexcoach/internal/session"
)

const maxNotices = 50

// NoticeLevel classifies a notice for display.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a transient, non-blocking message for the athlete.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Athlete is the per-user context created at sign-in and torn down at logout. It owns the active plan store, the
// current approval cycle and the running workout session.
type Athlete struct {
	userID int
	store  ActivePlanStore

	mu                sync.Mutex
	approval          *ApprovalController
	approvalFallback  bool
	generating        bool
	modifyingSchedule bool
	engine            *session.Engine
	lastSummary       *session.Summary
	notices           []Notice
	lastActive        time.Time
	closed            bool
}

func newAthlete(userID int, now time.Time) *Athlete {
	return &Athlete{ //nolint:exhaustruct // zero values are the initial state.
		userID:     userID,
		lastActive: now,
	}
}

// Store returns the athlete's active plan store.
func (a *Athlete) Store() *ActivePlanStore {
	return &a.store
}

// notify queues a notice, dropping the oldest when the queue is full.
func (a *Athlete) notify(n Notice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifyLocked(n)
}

func (a *Athlete) notifyLocked(n Notice) {
	if a.closed {
		return
	}
	if len(a.notices) >= maxNotices {
		a.notices = a.notices[1:]
	}
	a.notices = append(a.notices, n)
}

func (a *Athlete) drainNotices() []Notice {
	a.mu.Lock()
	defer a.mu.Unlock()
	drained := a.notices
	a.notices = nil
	if drained == nil {
		drained = []Notice{}
	}
	return drained
}

// close tears the context down: pending approvals are discarded, the session is ended and the store cleared.
// In-flight service calls are not aborted; their results are dropped when they return.
func (a *Athlete) close() {
	a.mu.Lock()
	a.closed = true
	approval := a.approval
	engine := a.engine
	a.approval = nil
	a.engine = nil
	a.notices = nil
	a.mu.Unlock()

	if approval != nil {
		approval.Discard()
	}
	if engine != nil {
		engine.End()
	}
	a.store.Clear()
}

func (a *Athlete) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}
