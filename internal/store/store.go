// Package store holds the process-wide user and subscription state.
//
// The user and subscription snapshots are persisted to durable storage under
// StorageKey after every change and rehydrated on start. Loading and error
// flags live in memory only.
package store

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"spactl/internal/logging"
	"spactl/internal/models"
	"spactl/internal/storage"
)

// StorageKey is the durable storage entry holding {user, subscription}
const StorageKey = "user-storage"

// State is an immutable snapshot of the store
type State struct {
	User      *models.User
	UserError *string
	// IsUserLoading is true while a profile request is in flight
	IsUserLoading bool

	Subscription          *models.Subscription
	SubscriptionError     *string
	IsSubscriptionLoading bool
}

type persisted struct {
	User         *models.User         `json:"user"`
	Subscription *models.Subscription `json:"subscription"`
}

// Store is safe for concurrent use
type Store struct {
	storage storage.Storage
	log     *logrus.Logger

	mu    sync.Mutex
	state State

	// serializes writes to storage so the last write is the latest state
	persistMu sync.Mutex

	obsMu     sync.Mutex
	observers map[uint64]func(State)
	nextObs   uint64
}

// New builds a store backed by s and rehydrates it.
// A nil storage behaves like storage.Noop.
func New(s storage.Storage, log *logrus.Logger) *Store {
	if s == nil {
		s = storage.Noop{}
	}
	if log == nil {
		log = logging.Discard()
	}

	st := &Store{
		storage:   s,
		log:       log,
		observers: make(map[uint64]func(State)),
	}
	st.rehydrate()
	return st
}

func (s *Store) rehydrate() {
	raw, ok, err := s.storage.GetItem(StorageKey)
	if err != nil {
		s.log.WithFields(logging.Err(err)).Warn("failed to read persisted user state")
		return
	}
	if !ok || raw == "" {
		return
	}

	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.WithFields(logging.Err(err)).Warn("ignoring corrupt persisted user state")
		return
	}

	s.state.User = p.User
	s.state.Subscription = p.Subscription
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive the state after every change.
// Under concurrent writers fn always ends up seeing the latest state.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.obsMu.Lock()
	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// update applies fn under the lock. fn reports whether a persisted field changed.
func (s *Store) update(fn func(st *State) (persist bool)) {
	s.mu.Lock()
	persist := fn(&s.state)
	s.mu.Unlock()

	if persist {
		s.persist()
	}
	s.notify()
}

func (s *Store) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	snap := s.Snapshot()
	data, err := json.Marshal(persisted{User: snap.User, Subscription: snap.Subscription})
	if err != nil {
		s.log.WithFields(logging.Err(err)).Error("failed to encode user state")
		return
	}
	if err := s.storage.SetItem(StorageKey, string(data)); err != nil {
		s.log.WithFields(logging.Err(err)).Warn("failed to persist user state")
	}
}

func (s *Store) notify() {
	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// SetUser replaces the user (nil clears it) and clears any user error
func (s *Store) SetUser(u *models.User) {
	s.update(func(st *State) bool {
		st.User = cloneUser(u)
		st.UserError = nil
		return true
	})
}

// UpdateUser merges p onto the current user. Without a user it does nothing.
func (s *Store) UpdateUser(p models.UserPatch) {
	s.update(func(st *State) bool {
		if st.User == nil {
			return false
		}
		u := p.Apply(*st.User)
		st.User = &u
		return true
	})
}

func (s *Store) SetUserLoading(loading bool) {
	s.update(func(st *State) bool {
		st.IsUserLoading = loading
		return false
	})
}

// SetUserError records msg (nil clears it) and always ends loading
func (s *Store) SetUserError(msg *string) {
	s.update(func(st *State) bool {
		st.UserError = cloneString(msg)
		st.IsUserLoading = false
		return false
	})
}

// ClearUser drops the user and its error
func (s *Store) ClearUser() {
	s.update(func(st *State) bool {
		st.User = nil
		st.UserError = nil
		return true
	})
}

// SetSubscription replaces the subscription (nil clears it) and clears any subscription error
func (s *Store) SetSubscription(sub *models.Subscription) {
	s.update(func(st *State) bool {
		st.Subscription = cloneSubscription(sub)
		st.SubscriptionError = nil
		return true
	})
}

// UpdateSubscription merges p onto the current subscription. Without one it does nothing.
func (s *Store) UpdateSubscription(p models.SubscriptionPatch) {
	s.update(func(st *State) bool {
		if st.Subscription == nil {
			return false
		}
		sub := p.Apply(*st.Subscription)
		st.Subscription = &sub
		return true
	})
}

func (s *Store) SetSubscriptionLoading(loading bool) {
	s.update(func(st *State) bool {
		st.IsSubscriptionLoading = loading
		return false
	})
}

func (s *Store) SetSubscriptionError(msg *string) {
	s.update(func(st *State) bool {
		st.SubscriptionError = cloneString(msg)
		st.IsSubscriptionLoading = false
		return false
	})
}

func (s *Store) ClearSubscription() {
	s.update(func(st *State) bool {
		st.Subscription = nil
		st.SubscriptionError = nil
		return true
	})
}

// Reset returns the store to its initial empty state
func (s *Store) Reset() {
	s.update(func(st *State) bool {
		*st = State{}
		return true
	})
}

// PlanName is the current plan, free when there is no subscription
func (s *Store) PlanName() models.PlanName { return PlanName(s.Snapshot()) }

func (s *Store) IsSubscriptionActive() bool { return IsSubscriptionActive(s.Snapshot()) }

func (s *Store) IsProOrHigher() bool { return IsProOrHigher(s.Snapshot()) }

func (s *Store) IsPremium() bool { return IsPremium(s.Snapshot()) }

func (st State) clone() State {
	c := st
	c.User = cloneUser(st.User)
	c.UserError = cloneString(st.UserError)
	c.Subscription = cloneSubscription(st.Subscription)
	c.SubscriptionError = cloneString(st.SubscriptionError)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		c.CreatedAt = &t
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

func cloneSubscription(sub *models.Subscription) *models.Subscription {
	if sub == nil {
		return nil
	}
	// Apply copies the time and flag pointers it is given, so the clone shares nothing
	c := models.SubscriptionPatch{
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}.Apply(*sub)
	return &c
}
