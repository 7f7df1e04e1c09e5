package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

type fakeSender struct {
	mu     sync.Mutex
	msgs   []Envelope
	fail   error
	closed bool
}

func (s *fakeSender) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	s.msgs = append(s.msgs, env)
	return nil
}

func (s *fakeSender) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeSender) received() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.msgs...)
}

var errBadToken = errors.New("bad token")

// tokenVerifier treats "tok-<user>" as a valid token for <user>.
type tokenVerifier struct {
	// gate, when set, blocks Verify until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func (v *tokenVerifier) Verify(ctx context.Context, token string) (string, error) {
	if v != nil && v.entered != nil {
		v.entered <- struct{}{}
	}
	if v != nil && v.gate != nil {
		select {
		case <-v.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if len(token) > 4 && token[:4] == "tok-" {
		return token[4:], nil
	}
	return "", errBadToken
}

type staticProjects struct {
	byUser map[string][]string
	err    error
}

func (p staticProjects) ProjectsForUser(_ context.Context, userID string) ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.byUser[userID], nil
}

func newTestRegistry(byUser map[string][]string) *Registry {
	return NewRegistry(&tokenVerifier{}, staticProjects{byUser: byUser})
}

func acceptAuthed(t interface {
	Helper()
	Fatalf(string, ...any)
}, r *Registry, userID string) (string, *fakeSender) {
	t.Helper()
	s := &fakeSender{}
	id := r.Accept(s)
	if _, err := r.Authenticate(context.Background(), id, "tok-"+userID); err != nil {
		t.Fatalf("authenticate %s: %v", userID, err)
	}
	return id, s
}
