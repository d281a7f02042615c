package payments

import (
	"context"
	"sync"

	"hostedpay/internal/paystation"
)

// memStore follows the same rule as the postgres repository: a row that is
// already success or failure is never rewritten and Save still returns nil.
// Unknown ids are inserted so initiator tests need no fixture.
type memStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	stale    map[int64]Session // served by Get instead of the stored row
	saves    int
	saveErr  error
}

func newMemStore(sessions ...Session) *memStore {
	m := &memStore{sessions: make(map[int64]Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *memStore) Get(_ context.Context, id int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stale[id]; ok {
		return &s, nil
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if cur, ok := m.sessions[s.ID]; ok && cur.Status.Terminal() {
		return nil
	}
	m.saves++
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) stored(id int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

type fakeGateway struct {
	initiation    paystation.InitiationResult
	initiateErr   error
	lookup        paystation.LookupResult
	lookupErr     error
	gotInitiation []paystation.InitiationRequest
	gotLookup     []paystation.LookupRequest
}

func (g *fakeGateway) Initiate(_ context.Context, req paystation.InitiationRequest) (paystation.InitiationResult, error) {
	g.gotInitiation = append(g.gotInitiation, req)
	return g.initiation, g.initiateErr
}

func (g *fakeGateway) Lookup(_ context.Context, req paystation.LookupRequest) (paystation.LookupResult, error) {
	g.gotLookup = append(g.gotLookup, req)
	return g.lookup, g.lookupErr
}

type redirectRecorder struct {
	urls []string
}

func (r *redirectRecorder) Redirect(url string) { r.urls = append(r.urls, url) }

type auditRecorder struct {
	types []string
	err   error
}

func (a *auditRecorder) InsertPaymentLog(_ context.Context, _ int64, logType string, _ any) error {
	a.types = append(a.types, logType)
	return a.err
}

func testConfig() Config {
	return Config{
		InitiatorID: "615400",
		GatewayID:   "PAYSTATION",
		ReturnURL:   "https://shop.example.com/checkout/done",
		QuickLookup: true,
	}
}

type alertRecorder struct {
	sessions []Session
}

func (a *alertRecorder) VerificationFailed(_ context.Context, s Session) {
	a.sessions = append(a.sessions, s)
}
