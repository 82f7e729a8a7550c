package protocol

// PingState tracks ping/pong bookkeeping. Invariant:
// Pong <= Expecting <= Sent.
type PingState struct {
	Sent      int `json:"sent"`
	Expecting int `json:"expecting"`
	Pong      int `json:"pong"`
}

// Outstanding reports whether a pong is still owed.
func (p PingState) Outstanding() bool {
	return p.Pong < p.Expecting
}

// next records a new ping and returns its number.
func (p *PingState) next() int {
	p.Sent++
	p.Expecting = p.Sent
	return p.Sent
}

// receive applies pong n and reports whether it matched the expected one.
// Values beyond Expecting or not newer than Pong are ignored.
func (p *PingState) receive(n int) bool {
	if n > p.Pong && n <= p.Expecting {
		p.Pong = n
	}
	return n == p.Expecting
}

// settle marks every sent ping answered. UCI's readyok carries no number.
func (p *PingState) settle() {
	p.Pong = p.Expecting
}
