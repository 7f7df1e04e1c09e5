package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cydxin/presence-sdk/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sender is the write side of one duplex transport session.
// Send must not block: a full outbound buffer is reported as ErrSlowConsumer.
type Sender interface {
	Send(msg []byte) error
	Close()
}

// IdentityVerifier resolves a credential token to a user id.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// ProjectLookup lists the projects a user belongs to.
type ProjectLookup interface {
	ProjectsForUser(ctx context.Context, userID string) ([]string, error)
}

// Identity is the result of a successful Authenticate.
type Identity struct {
	UserID     string   `json:"user_id"`
	ProjectIDs []string `json:"project_ids"`
}

// Envelope is the wire shape of every outbound event.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Encode renders an outbound event.
func Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: event, Data: payload})
}

// BroadcastResult counts the connections a broadcast was written to.
type BroadcastResult struct {
	Recipients int `json:"recipients"`
	Failed     int `json:"failed"`
}

type set map[string]struct{}

type connection struct {
	id        string
	userID    string // empty until authenticated
	sender    Sender
	rooms     set
	createdAt time.Time
}

// Registry owns every live connection together with two indices that are
// only ever changed under mu:
//   - rooms: room key -> connection ids (reverse of connection.rooms)
//   - users: user id  -> connection ids (presence index)
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
	rooms map[string]set
	users map[string]set

	verifier IdentityVerifier
	projects ProjectLookup
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry. projects may be nil, in which case
// authenticated connections join only their user room.
func NewRegistry(verifier IdentityVerifier, projects ProjectLookup, opts ...Option) *Registry {
	r := &Registry{
		conns:    make(map[string]*connection),
		rooms:    make(map[string]set),
		users:    make(map[string]set),
		verifier: verifier,
		projects: projects,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("hub")
	return r
}

// Accept registers a new unauthenticated connection and returns its id.
func (r *Registry) Accept(sender Sender) string {
	c := &connection{
		id:        uuid.NewString(),
		sender:    sender,
		rooms:     make(set),
		createdAt: time.Now(),
	}
	r.mu.Lock()
	r.conns[c.id] = c
	r.reportLocked()
	r.mu.Unlock()

	r.logger.Debug("connection accepted", zap.String("conn", c.id))
	return c.id
}

// Authenticate verifies token and binds the connection to the resulting user,
// joining its user room and one room per project. The collaborators are
// called without holding the lock; state is re-checked afterwards so a
// connection that went away or authenticated concurrently is not touched.
func (r *Registry) Authenticate(ctx context.Context, connID, token string) (*Identity, error) {
	r.mu.RLock()
	c, ok := r.conns[connID]
	authed := ok && c.userID != ""
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownConnection
	}
	if authed {
		return nil, ErrAlreadyAuthenticated
	}
	if token == "" {
		return nil, &AuthError{Reason: "missing token"}
	}

	userID, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, &AuthError{Reason: "invalid token", Err: err}
	}
	if userID == "" {
		return nil, &AuthError{Reason: "empty identity"}
	}

	var projectIDs []string
	if r.projects != nil {
		projectIDs, err = r.projects.ProjectsForUser(ctx, userID)
		if err != nil {
			return nil, &AuthError{Reason: "project lookup", Err: err}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok = r.conns[connID]
	if !ok {
		return nil, ErrUnknownConnection
	}
	if c.userID != "" {
		return nil, ErrAlreadyAuthenticated
	}
	c.userID = userID
	r.joinLocked(c, UserRoom(userID))
	joined := make([]string, 0, len(projectIDs))
	for _, pid := range projectIDs {
		if pid == "" {
			continue
		}
		r.joinLocked(c, ProjectRoom(pid))
		joined = append(joined, pid)
	}
	conns := r.users[userID]
	if conns == nil {
		conns = make(set)
		r.users[userID] = conns
	}
	conns[connID] = struct{}{}
	r.reportLocked()

	r.logger.Debug("connection authenticated",
		zap.String("conn", connID), zap.String("user", userID), zap.Int("projects", len(joined)))
	return &Identity{UserID: userID, ProjectIDs: joined}, nil
}

// Disconnect drops the connection from every room, the presence index and the
// registry. It reports whether anything was removed; repeated calls are no-ops.
func (r *Registry) Disconnect(connID string) bool {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	for room := range c.rooms {
		r.leaveLocked(c, room)
	}
	if c.userID != "" {
		if conns := r.users[c.userID]; conns != nil {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.users, c.userID)
			}
		}
	}
	delete(r.conns, connID)
	r.reportLocked()
	r.mu.Unlock()

	r.logger.Debug("connection removed", zap.String("conn", connID), zap.String("user", c.userID))
	return true
}

// JoinRoom adds an authenticated connection to a project or media room.
func (r *Registry) JoinRoom(connID, roomID string) error {
	if err := checkAdHoc(roomID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.authedLocked(connID)
	if err != nil {
		return err
	}
	r.joinLocked(c, roomID)
	return nil
}

// LeaveRoom removes an authenticated connection from a project or media room.
// Leaving a room the connection is not in is not an error.
func (r *Registry) LeaveRoom(connID, roomID string) error {
	if err := checkAdHoc(roomID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.authedLocked(connID)
	if err != nil {
		return err
	}
	r.leaveLocked(c, roomID)
	return nil
}

// Broadcast writes one event to every connection in roomID. Members are
// snapshotted under the read lock and written to afterwards; a failed write
// is logged and counted, never returned.
func (r *Registry) Broadcast(roomID, event string, payload any) (BroadcastResult, error) {
	kind, _, err := ParseRoom(roomID)
	if err != nil {
		return BroadcastResult{}, err
	}
	msg, err := Encode(event, payload)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("encode %s: %w", event, err)
	}

	type target struct {
		id     string
		sender Sender
	}
	r.mu.RLock()
	members := r.rooms[roomID]
	targets := make([]target, 0, len(members))
	for id := range members {
		targets = append(targets, target{id: id, sender: r.conns[id].sender})
	}
	r.mu.RUnlock()

	res := BroadcastResult{Recipients: len(targets)}
	for _, t := range targets {
		if err := t.sender.Send(msg); err != nil {
			res.Failed++
			r.metrics.BroadcastWriteFailed(string(kind))
			r.logger.Warn("broadcast write failed",
				zap.String("room", roomID), zap.String("event", event), zap.String("conn", t.id), zap.Error(err))
		}
	}
	return res, nil
}

// SendToUser broadcasts to every connection of userID.
func (r *Registry) SendToUser(userID, event string, payload any) (BroadcastResult, error) {
	return r.Broadcast(UserRoom(userID), event, payload)
}

// MembersOf returns the ids of the connections currently in roomID.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.rooms[roomID])
}

// RoomsOf returns the rooms a connection belongs to.
func (r *Registry) RoomsOf(connID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return nil, ErrUnknownConnection
	}
	return keys(c.rooms), nil
}

// UserOf returns the user bound to connID, empty when not authenticated.
func (r *Registry) UserOf(connID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return "", ErrUnknownConnection
	}
	return c.userID, nil
}

func (r *Registry) IsAuthenticated(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return ok && c.userID != ""
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close drops every connection and closes its sender.
func (r *Registry) Close() {
	r.mu.Lock()
	senders := make([]Sender, 0, len(r.conns))
	for _, c := range r.conns {
		senders = append(senders, c.sender)
	}
	r.conns = make(map[string]*connection)
	r.rooms = make(map[string]set)
	r.users = make(map[string]set)
	r.reportLocked()
	r.mu.Unlock()

	for _, s := range senders {
		s.Close()
	}
}

func (r *Registry) authedLocked(connID string) (*connection, error) {
	c, ok := r.conns[connID]
	if !ok {
		return nil, ErrUnknownConnection
	}
	if c.userID == "" {
		return nil, ErrNotAuthenticated
	}
	return c, nil
}

// joinLocked and leaveLocked keep connection.rooms and r.rooms in lock-step.
func (r *Registry) joinLocked(c *connection, roomID string) {
	c.rooms[roomID] = struct{}{}
	members := r.rooms[roomID]
	if members == nil {
		members = make(set)
		r.rooms[roomID] = members
	}
	members[c.id] = struct{}{}
}

func (r *Registry) leaveLocked(c *connection, roomID string) {
	delete(c.rooms, roomID)
	if members := r.rooms[roomID]; members != nil {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

func (r *Registry) reportLocked() {
	r.metrics.SetPresence(len(r.conns), len(r.users))
}

func checkAdHoc(roomID string) error {
	kind, _, err := ParseRoom(roomID)
	if err != nil {
		return err
	}
	if kind == KindUser {
		return fmt.Errorf("%w: user rooms cannot be joined or left", ErrInvalidRoom)
	}
	return nil
}

func keys(s set) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
