package client

// State is the client's position in its lifecycle. Transitions:
//
//	Unregistered -> Registering -> Registered -> Deregistering -> Stopped
//
// A failed Start returns the client to Unregistered so it can be
// started again. A stopped client cannot be restarted.
type State int

const (
	StateUnregistered State = iota
	StateRegistering
	StateRegistered
	StateDeregistering
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateDeregistering:
		return "deregistering"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
