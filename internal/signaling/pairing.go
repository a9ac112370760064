package signaling

// PairingTable tracks direct 1:1 calls between registered names. Each name
// has at most one partner at a time and every pairing is stored in both
// directions, so Partner(a) == b implies Partner(b) == a.
//
// The table is only mutated from the hub goroutine.
type PairingTable struct {
	partners map[string]string
}

func newPairingTable() *PairingTable {
	return &PairingTable{partners: make(map[string]string)}
}

// Partner returns the current partner of name, if any.
func (p *PairingTable) Partner(name string) (string, bool) {
	partner, ok := p.partners[name]
	return partner, ok
}

// Install records the pairing a<->b, first tearing down any pairing either
// side is currently part of. It returns the names whose old pairings were
// removed (excluding a and b themselves) so the caller can notify them.
func (p *PairingTable) Install(a, b string) []string {
	var preempted []string
	for _, name := range []string{a, b} {
		if old, ok := p.End(name); ok && old != a && old != b {
			preempted = append(preempted, old)
		}
	}
	p.partners[a] = b
	p.partners[b] = a
	return preempted
}

// End removes the pairing name is part of, clearing both directions.
// Returns the former partner when a pairing existed.
func (p *PairingTable) End(name string) (string, bool) {
	partner, ok := p.partners[name]
	if !ok {
		return "", false
	}
	delete(p.partners, name)
	delete(p.partners, partner)
	return partner, true
}

func (p *PairingTable) len() int {
	return len(p.partners)
}
