package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/cons"
	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/mocks"
	"github.com/cydxin/presence-sdk/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type memStore struct {
	mu      sync.Mutex
	created []*models.Notification
	err     error
}

func (s *memStore) Create(_ context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = "n-" + n.UserID
	}
	s.created = append(s.created, n)
	return nil
}

func (s *memStore) MarkRead(context.Context, string, string) error { return nil }
func (s *memStore) MarkAllRead(context.Context, string) (int64, error) {
	return 0, nil
}
func (s *memStore) Count(context.Context, string, bool) (int64, error) { return 0, nil }
func (s *memStore) List(context.Context, string, ListQuery) (Page, error) {
	return Page{}, nil
}

func (s *memStore) users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.created))
	for _, n := range s.created {
		out = append(out, n.UserID)
	}
	sort.Strings(out)
	return out
}

type staticPrefs struct {
	byUser map[string]Preferences
	err    error
	calls  atomic.Int32
}

func (p *staticPrefs) Resolve(_ context.Context, userID string) (Preferences, error) {
	p.calls.Add(1)
	if p.err != nil {
		return DefaultPreferences, p.err
	}
	if pr, ok := p.byUser[userID]; ok {
		return pr, nil
	}
	return DefaultPreferences, nil
}

type staticMembers map[string][]string

func (m staticMembers) MembersOf(_ context.Context, projectID string) ([]string, error) {
	members, ok := m[projectID]
	if !ok {
		return nil, errors.New("no such project")
	}
	return members, nil
}

var testInput = Input{UserID: "u1", Type: "comment", Title: "New comment", Message: "hi", Data: map[string]any{"media_id": "m1"}}

func TestDispatcher_AllChannelsDelivered(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	push := mocks.NewMockPushSender(ctrl)
	mail := mocks.NewMockMailer(ctrl)
	store := &memStore{}
	prefs := &staticPrefs{}

	rt.EXPECT().Broadcast("user:u1", cons.EventNotification, gomock.Any()).
		Return(hub.BroadcastResult{Recipients: 2}, nil)
	push.EXPECT().Send(gomock.Any(), "u1", gomock.Any()).Return(nil)
	mail.EXPECT().Send(gomock.Any(), "u1", gomock.Any()).Return(nil)

	d := NewDispatcher(DispatcherDeps{Store: store, Preferences: prefs, Realtime: rt, Push: push, Mailer: mail}, config.DispatchConfig{})
	res, err := d.Dispatch(context.Background(), testInput)
	req.NoError(err)
	req.NotNil(res.Record)
	req.Equal("n-u1", res.Record.ID)
	req.JSONEq(`{"media_id":"m1"}`, string(res.Record.Data))

	req.Equal(cons.StatusDelivered, res.Deliveries.Realtime.Status)
	req.Equal(2, res.Deliveries.Realtime.Recipients)
	req.Equal(cons.StatusDelivered, res.Deliveries.Push.Status)
	req.Equal(cons.StatusDelivered, res.Deliveries.Email.Status)
	req.Equal(cons.ChannelPush, res.Deliveries.Push.Channel)
	req.EqualValues(1, prefs.calls.Load(), "preferences resolved once per dispatch")
}

func TestDispatcher_PersistenceFailureAbortsFanout(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	push := mocks.NewMockPushSender(ctrl)
	mail := mocks.NewMockMailer(ctrl)
	// no EXPECT: any call fails the test

	d := NewDispatcher(DispatcherDeps{
		Store:       &memStore{err: errors.New("db down")},
		Preferences: &staticPrefs{},
		Realtime:    rt, Push: push, Mailer: mail,
	}, config.DispatchConfig{})

	res, err := d.Dispatch(context.Background(), testInput)
	require.ErrorIs(t, err, ErrPersistence)
	require.Nil(t, res)
}

func TestDispatcher_InvalidInput(t *testing.T) {
	store := &memStore{}
	d := NewDispatcher(DispatcherDeps{Store: store, Preferences: &staticPrefs{}}, config.DispatchConfig{})

	_, err := d.Dispatch(context.Background(), Input{UserID: "u1", Type: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = d.Dispatch(context.Background(), Input{UserID: "u1", Type: "x", Title: "t", Data: make(chan int)})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Empty(t, store.users())
}

// The record survives even when every channel fails or is skipped.
func TestDispatcher_AllChannelsFailOrSkip(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	push := mocks.NewMockPushSender(ctrl)
	mail := mocks.NewMockMailer(ctrl)
	store := &memStore{}

	rt.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).Return(hub.BroadcastResult{}, nil)
	push.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("gateway down"))
	mail.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("relay down"))

	d := NewDispatcher(DispatcherDeps{Store: store, Preferences: &staticPrefs{}, Realtime: rt, Push: push, Mailer: mail}, config.DispatchConfig{})
	res, err := d.Dispatch(context.Background(), testInput)
	req.NoError(err)
	req.Equal([]string{"u1"}, store.users())

	req.Equal(cons.StatusSkipped, res.Deliveries.Realtime.Status)
	req.Equal("recipient offline", res.Deliveries.Realtime.Reason)
	req.Equal(cons.StatusFailed, res.Deliveries.Push.Status)
	req.EqualError(res.Deliveries.Push.Err, "gateway down")
	req.Equal(cons.StatusFailed, res.Deliveries.Email.Status)
}

func TestDispatcher_RealtimeAllWritesFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	rt.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).Return(hub.BroadcastResult{Recipients: 2, Failed: 2}, nil)

	d := NewDispatcher(DispatcherDeps{Store: &memStore{}, Preferences: &staticPrefs{}, Realtime: rt}, config.DispatchConfig{})
	res, err := d.Dispatch(context.Background(), testInput)
	require.NoError(t, err)
	require.Equal(t, cons.StatusFailed, res.Deliveries.Realtime.Status)
	require.Equal(t, cons.StatusSkipped, res.Deliveries.Push.Status, "push not configured")
	require.Equal(t, cons.StatusSkipped, res.Deliveries.Email.Status, "email not configured")
}

func TestDispatcher_PreferenceSuppression(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	push := mocks.NewMockPushSender(ctrl)
	mail := mocks.NewMockMailer(ctrl)

	rt.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).Return(hub.BroadcastResult{Recipients: 1}, nil)
	push.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	mail.EXPECT().Send(gomock.Any(), "u1", gomock.Any()).Return(nil)

	prefs := &staticPrefs{byUser: map[string]Preferences{"u1": {EmailEnabled: true, PushEnabled: false}}}
	d := NewDispatcher(DispatcherDeps{Store: &memStore{}, Preferences: prefs, Realtime: rt, Push: push, Mailer: mail}, config.DispatchConfig{})

	res, err := d.Dispatch(context.Background(), testInput)
	req.NoError(err)
	req.Equal(cons.StatusSkipped, res.Deliveries.Push.Status)
	req.Equal("disabled by preference", res.Deliveries.Push.Reason)
	req.Equal(cons.StatusDelivered, res.Deliveries.Email.Status)
	req.Equal(cons.StatusDelivered, res.Deliveries.Realtime.Status)
}

func TestDispatcher_PreferenceErrorFailsChannelWithoutCallingProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	push := mocks.NewMockPushSender(ctrl)
	mail := mocks.NewMockMailer(ctrl)
	rt.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).Return(hub.BroadcastResult{Recipients: 1}, nil)

	prefs := &staticPrefs{err: errors.New("store down")}
	d := NewDispatcher(DispatcherDeps{Store: &memStore{}, Preferences: prefs, Realtime: rt, Push: push, Mailer: mail}, config.DispatchConfig{})

	res, err := d.Dispatch(context.Background(), testInput)
	require.NoError(t, err)
	require.Equal(t, cons.StatusDelivered, res.Deliveries.Realtime.Status)
	require.Equal(t, cons.StatusFailed, res.Deliveries.Push.Status)
	require.Equal(t, cons.StatusFailed, res.Deliveries.Email.Status)
	require.EqualValues(t, 1, prefs.calls.Load())
}

func TestDispatcher_NoRecipientIsSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	push := mocks.NewMockPushSender(ctrl)
	push.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(ErrNoRecipient)

	d := NewDispatcher(DispatcherDeps{Store: &memStore{}, Preferences: &staticPrefs{}, Push: push}, config.DispatchConfig{})
	res, err := d.Dispatch(context.Background(), testInput)
	require.NoError(t, err)
	require.Equal(t, cons.StatusSkipped, res.Deliveries.Push.Status)
}

func TestDispatcher_ChannelTimeoutAndPanicAreIsolated(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	push := mocks.NewMockPushSender(ctrl)
	mail := mocks.NewMockMailer(ctrl)

	rt.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).Return(hub.BroadcastResult{Recipients: 1}, nil)
	push.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ *models.Notification) error {
			<-ctx.Done()
			return ctx.Err()
		})
	mail.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, *models.Notification) error {
			panic("boom")
		})

	d := NewDispatcher(DispatcherDeps{Store: &memStore{}, Preferences: &staticPrefs{}, Realtime: rt, Push: push, Mailer: mail},
		config.DispatchConfig{ChannelTimeout: 30 * time.Millisecond})

	start := time.Now()
	res, err := d.Dispatch(context.Background(), testInput)
	req.NoError(err)
	req.Less(time.Since(start), 2*time.Second)

	req.Equal(cons.StatusDelivered, res.Deliveries.Realtime.Status)
	req.Equal(cons.StatusFailed, res.Deliveries.Push.Status)
	req.ErrorIs(res.Deliveries.Push.Err, context.DeadlineExceeded)
	req.Equal(cons.StatusFailed, res.Deliveries.Email.Status)
	req.Contains(res.Deliveries.Email.Reason, "panic")
}

func TestDispatcher_DispatchToMany(t *testing.T) {
	req := require.New(t)
	store := &memStore{}
	var inFlight, peak atomic.Int32
	rt := broadcasterFunc(func(roomID, event string, payload any) (hub.BroadcastResult, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return hub.BroadcastResult{Recipients: 1}, nil
	})

	d := NewDispatcher(DispatcherDeps{Store: store, Preferences: &staticPrefs{}, Realtime: rt}, config.DispatchConfig{MaxParallel: 2})
	results := d.DispatchToMany(context.Background(), []string{"a", "b", "a", "", "c", "d"}, testInput)

	req.Len(results, 4)
	req.Equal([]string{"a", "b", "c", "d"}, []string{results[0].UserID, results[1].UserID, results[2].UserID, results[3].UserID})
	for _, r := range results {
		req.NoError(r.Err)
		req.Equal(r.UserID, r.Result.Record.UserID)
	}
	req.Equal([]string{"a", "b", "c", "d"}, store.users())
	req.LessOrEqual(peak.Load(), int32(2))
}

func TestDispatcher_DispatchToManyIsolatesFailures(t *testing.T) {
	store := &failingFor{memStore: &memStore{}, user: "b"}
	d := NewDispatcher(DispatcherDeps{Store: store, Preferences: &staticPrefs{}}, config.DispatchConfig{})

	results := d.DispatchToMany(context.Background(), []string{"a", "b", "c"}, testInput)
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, ErrPersistence)
	require.Nil(t, results[1].Result)
	require.NoError(t, results[2].Err)
}

func TestDispatcher_DispatchToProjectMembersExcludesActor(t *testing.T) {
	req := require.New(t)
	store := &memStore{}
	d := NewDispatcher(DispatcherDeps{
		Store:       store,
		Preferences: &staticPrefs{},
		Projects:    staticMembers{"P": {"A", "B", "C"}},
	}, config.DispatchConfig{})

	results, err := d.DispatchToProjectMembers(context.Background(), "P", testInput, "A")
	req.NoError(err)
	req.Len(results, 2)
	req.Equal([]string{"B", "C"}, store.users())

	_, err = d.DispatchToProjectMembers(context.Background(), "missing", testInput, "")
	req.Error(err)
}

func TestDispatcher_BroadcastProjectUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockBroadcaster(ctrl)
	rt.EXPECT().Broadcast("project:P1", cons.EventProjectUpdate, map[string]string{"status": "done"}).
		Return(hub.BroadcastResult{Recipients: 3}, nil)

	d := NewDispatcher(DispatcherDeps{Store: &memStore{}, Preferences: &staticPrefs{}, Realtime: rt}, config.DispatchConfig{})
	res, err := d.BroadcastProjectUpdate("P1", map[string]string{"status": "done"})
	require.NoError(t, err)
	require.Equal(t, 3, res.Recipients)
}

// End to end with the real registry: only the addressed user's tabs receive it.
func TestDispatcher_WithRegistry(t *testing.T) {
	req := require.New(t)
	reg := hub.NewRegistry(verifierFunc(func(_ context.Context, tok string) (string, error) { return tok, nil }), nil)
	alice := &recordingSender{}
	bob := &recordingSender{}
	ctx := context.Background()
	_, err := reg.Authenticate(ctx, reg.Accept(alice), "alice")
	req.NoError(err)
	_, err = reg.Authenticate(ctx, reg.Accept(bob), "bob")
	req.NoError(err)

	d := NewDispatcher(DispatcherDeps{Store: &memStore{}, Preferences: &staticPrefs{}, Realtime: reg}, config.DispatchConfig{})
	in := testInput
	in.UserID = "alice"
	res, err := d.Dispatch(ctx, in)
	req.NoError(err)
	req.Equal(cons.StatusDelivered, res.Deliveries.Realtime.Status)
	req.Equal(1, alice.count())
	req.Zero(bob.count())
}

type broadcasterFunc func(roomID, event string, payload any) (hub.BroadcastResult, error)

func (f broadcasterFunc) Broadcast(roomID, event string, payload any) (hub.BroadcastResult, error) {
	return f(roomID, event, payload)
}

type verifierFunc func(ctx context.Context, token string) (string, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (string, error) { return f(ctx, token) }

type recordingSender struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (s *recordingSender) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSender) Close() {}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type failingFor struct {
	*memStore
	user string
}

func (f *failingFor) Create(ctx context.Context, n *models.Notification) error {
	if n.UserID == f.user {
		return errors.New("constraint violation")
	}
	return f.memStore.Create(ctx, n)
}
