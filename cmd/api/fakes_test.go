package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"hostedpay/internal/domain/paymentsrepo"
	"hostedpay/internal/payments"
)

type memStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]payments.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: map[int64]payments.Session{}}
}

func (m *memStore) Create(_ context.Context, s *payments.Session) (*payments.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	if s.Status == "" {
		s.Status = payments.StatusPending
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = *s
	return s, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*payments.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, payments.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s *payments.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return payments.ErrSessionNotFound
	}
	if cur.Status.Terminal() {
		return nil
	}
	s.UpdatedAt = time.Now()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) List(_ context.Context, status payments.Status, since *time.Time, limit, offset int) ([]*payments.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*payments.Session
	for _, s := range m.sessions {
		if status != "" && s.Status != status {
			continue
		}
		if since != nil && s.CreatedAt.Before(*since) {
			continue
		}
		s := s
		all = append(all, &s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) stored(id int64) payments.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

type memLogs struct {
	mu   sync.Mutex
	logs []*paymentsrepo.PaymentLog
}

func (l *memLogs) InsertPaymentLog(_ context.Context, paymentID int64, logType string, _ any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, &paymentsrepo.PaymentLog{
		ID:        int64(len(l.logs) + 1),
		PaymentID: paymentID,
		LogType:   logType,
		CreatedAt: time.Now(),
	})
	return nil
}

func (l *memLogs) ListByPayment(_ context.Context, paymentID int64) ([]*paymentsrepo.PaymentLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*paymentsrepo.PaymentLog
	for _, pl := range l.logs {
		if pl.PaymentID == paymentID {
			out = append(out, pl)
		}
	}
	return out, nil
}

type sentMail struct {
	template string
	email    string
	data     any
}

type chanMailer chan sentMail

func (c chanMailer) Send(templateFile, _, email string, data any) (int, error) {
	c <- sentMail{template: templateFile, email: email, data: data}
	return 1, nil
}
