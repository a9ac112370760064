package signaling

// Room groups the clients that may exchange negotiation envelopes with each
// other. Members are kept in join order so member-list broadcasts are stable.
// Rooms are created lazily on the first join and deleted by the hub as soon
// as the last member leaves.
type Room struct {
	ID      string
	members []*Client
}

func newRoom(id string) *Room {
	return &Room{ID: id}
}

func (r *Room) add(c *Client) {
	for _, m := range r.members {
		if m == c {
			return
		}
	}
	r.members = append(r.members, c)
}

func (r *Room) remove(c *Client) bool {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}

// names returns the member display names in join order.
func (r *Room) names() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.Name)
	}
	return names
}

// find resolves a member by display name.
func (r *Room) find(name string) *Client {
	for _, m := range r.members {
		if m.Name == name {
			return m
		}
	}
	return nil
}
