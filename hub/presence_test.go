package hub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresence_TwoTabs(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(nil)
	p := NewPresence(r)

	req.False(p.IsOnline("alice"))

	tab1, _ := acceptAuthed(t, r, "alice")
	tab2, _ := acceptAuthed(t, r, "alice")
	req.True(p.IsOnline("alice"))
	req.ElementsMatch([]string{tab1, tab2}, p.ConnectionsOf("alice"))

	r.Disconnect(tab1)
	req.True(p.IsOnline("alice"), "second tab keeps the user online")

	r.Disconnect(tab2)
	req.False(p.IsOnline("alice"))
	req.Empty(p.ConnectionsOf("alice"))
}

func TestPresence_UnauthenticatedIsNotOnline(t *testing.T) {
	r := newTestRegistry(nil)
	p := NewPresence(r)
	r.Accept(&fakeSender{})

	require.Empty(t, p.OnlineUsers())
}

func TestPresence_OnlineUsersInProject(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(map[string][]string{
		"carol": {"p1"},
		"alice": {"p1", "p2"},
		"bob":   {"p2"},
	})
	p := NewPresence(r)

	acceptAuthed(t, r, "carol")
	acceptAuthed(t, r, "alice")
	acceptAuthed(t, r, "alice")
	bob, _ := acceptAuthed(t, r, "bob")

	req.Equal([]string{"alice", "carol"}, p.OnlineUsersInProject("p1"))
	req.Equal([]string{"alice", "bob"}, p.OnlineUsersInProject("p2"))
	req.Empty(p.OnlineUsersInProject("p3"))
	req.Equal([]string{"alice", "bob", "carol"}, p.OnlineUsers())

	r.Disconnect(bob)
	req.Equal([]string{"alice"}, p.OnlineUsersInProject("p2"))
}
