package application_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
)

// --- Fake clock ---

// fakeClock advances virtual time on Sleep instead of waiting.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// --- Mock breach client ---

type mockBreachClient struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]model.Breach
	errs    map[string]error
	onCall  func(identity string)
}

func (m *mockBreachClient) Lookup(_ context.Context, identity string) ([]model.Breach, error) {
	m.mu.Lock()
	m.calls = append(m.calls, identity)
	hook := m.onCall
	m.mu.Unlock()

	if hook != nil {
		hook(identity)
	}
	if err := m.errs[identity]; err != nil {
		return nil, err
	}
	return m.results[identity], nil
}

func (m *mockBreachClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// --- In-memory credential store ---

// memStore is a map-backed CredentialStore with the same identity semantics
// as the SQLite adapter.
type memStore struct {
	mu       sync.Mutex
	records  map[string]model.Credential
	applyErr map[string]error
	saveErr  error
	applies  []string
}

func newMemStore(records ...model.Credential) *memStore {
	s := &memStore{records: make(map[string]model.Credential), applyErr: make(map[string]error)}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) sorted(filter func(model.Credential) bool) []model.Credential {
	var out []model.Credential
	for _, r := range s.records {
		if filter(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) Insert(_ context.Context, cred model.Credential) (model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[cred.ID] = cred
	return cred, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memStore) ListAll(_ context.Context) ([]model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(model.Credential) bool { return true }), nil
}

func (s *memStore) ListEligible(_ context.Context) ([]model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(model.Credential.Eligible), nil
}

func (s *memStore) ApplyBreachState(_ context.Context, identity string, state model.BreachState) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applies = append(s.applies, identity)

	if err := s.applyErr[identity]; err != nil {
		return 0, err
	}

	n := 0
	for id, r := range s.records {
		if r.Eligible() && r.IdentityKey() == identity {
			r.BreachState = state
			r.LastCheckedAt = state.CheckedAt
			s.records[id] = r
			n++
		}
	}
	return n, nil
}

// identityStates folds member states per identity: checked when every member
// is checked, breached when any member is breached.
func (s *memStore) identityStates() map[string][2]bool {
	states := make(map[string][2]bool)
	for _, r := range s.records {
		if !r.Eligible() {
			continue
		}
		key := r.IdentityKey()
		st, ok := states[key]
		if !ok {
			st = [2]bool{true, false}
		}
		st[0] = st[0] && r.BreachState.Checked()
		st[1] = st[1] || r.BreachState.Breached()
		states[key] = st
	}
	return states
}

func (s *memStore) CountIdentities(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identityStates()), nil
}

func (s *memStore) CountCheckedIdentities(_ context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var checked, breached int
	for _, st := range s.identityStates() {
		if st[0] {
			checked++
			if st[1] {
				breached++
			}
		}
	}
	return checked, breached, nil
}

func (s *memStore) UncheckedIdentities(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, st := range s.identityStates() {
		if !st[0] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) SaveRiskAssessments(_ context.Context, assessments map[string]model.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for id, a := range assessments {
		r, ok := s.records[id]
		if !ok {
			continue
		}
		a := a
		r.Risk = &a
		s.records[id] = r
	}
	return nil
}

func (s *memStore) get(id string) model.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

var _ driven.CredentialStore = (*memStore)(nil)

// cred builds a record with the given ID and identity.
func cred(id, identity string) model.Credential {
	return model.Credential{ID: id, Name: "Account " + id, Identity: identity, Secret: "secret-" + id}
}
