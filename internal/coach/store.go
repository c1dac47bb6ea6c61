package coach

import (
	"sync/atomic"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/profile"
)

// ErrStoreInvariant is the panic value raised when the store would hold an unusable plan.
var ErrStoreInvariant = errors.NewSentinel("active plan store invariant violated")

// Snapshot is what readers of an ActivePlanStore observe. Nil fields are unset.
type Snapshot struct {
	Profile *profile.Profile
	Plan    *plan.Plan
}

// ActivePlanStore holds the athlete's profile and committed plan. Writers replace whole objects and readers always
// observe a complete snapshot. Stored objects must not be mutated after they are handed to the store.
type ActivePlanStore struct {
	current atomic.Pointer[Snapshot]
}

// Get returns the current snapshot. The pointers are the exact objects that were set.
func (s *ActivePlanStore) Get() Snapshot {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	return Snapshot{Profile: nil, Plan: nil}
}

// SetPlan replaces the committed plan. The latest call wins.
func (s *ActivePlanStore) SetPlan(p *plan.Plan) {
	if p == nil || p.ID == "" {
		panic(errors.Wrap(ErrStoreInvariant, "committed plan must have an id"))
	}
	s.update(func(snap *Snapshot) { snap.Plan = p })
}

// SetProfile replaces the profile.
func (s *ActivePlanStore) SetProfile(p *profile.Profile) {
	if p == nil {
		panic(errors.Wrap(ErrStoreInvariant, "profile must not be nil"))
	}
	s.update(func(snap *Snapshot) { snap.Profile = p })
}

// Clear forgets both profile and plan.
func (s *ActivePlanStore) Clear() {
	s.current.Store(nil)
}

func (s *ActivePlanStore) update(mutate func(*Snapshot)) {
	for {
		old := s.current.Load()
		next := &Snapshot{Profile: nil, Plan: nil}
		if old != nil {
			*next = *old
		}
		mutate(next)
		if s.current.CompareAndSwap(old, next) {
			return
		}
	}
}
