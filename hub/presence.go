package hub

import "sort"

// Presence answers online/offline questions from the registry's indices.
// It holds no state of its own, so a disconnect is visible to the very next
// call.
type Presence struct {
	r *Registry
}

func NewPresence(r *Registry) *Presence {
	return &Presence{r: r}
}

// IsOnline reports whether userID holds at least one live connection.
func (p *Presence) IsOnline(userID string) bool {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	return len(p.r.users[userID]) > 0
}

// OnlineUsersInProject returns the distinct users connected to project:<projectID>, sorted.
func (p *Presence) OnlineUsersInProject(projectID string) []string {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()

	seen := make(set)
	for connID := range p.r.rooms[ProjectRoom(projectID)] {
		if c, ok := p.r.conns[connID]; ok && c.userID != "" {
			seen[c.userID] = struct{}{}
		}
	}
	out := keys(seen)
	sort.Strings(out)
	return out
}

// OnlineUsers returns every user with a live connection, sorted.
func (p *Presence) OnlineUsers() []string {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	out := make([]string, 0, len(p.r.users))
	for userID := range p.r.users {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

// ConnectionsOf returns the live connection ids of userID.
func (p *Presence) ConnectionsOf(userID string) []string {
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	return keys(p.r.users[userID])
}
