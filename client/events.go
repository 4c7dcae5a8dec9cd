package client

// Signal is a lifecycle event emitted by the client. The set is closed;
// subscribers can exhaustively switch over it.
type Signal int

const (
	// SignalStarted fires once startup completes: registration done,
	// initial registry fetch done, background loops running.
	SignalStarted Signal = iota
	// SignalRegistered fires after a successful registration, including
	// re-registrations triggered by an expired lease.
	SignalRegistered
	// SignalHeartbeat fires after each successful lease renewal.
	SignalHeartbeat
	// SignalRegistryUpdated fires after each registry cache update.
	SignalRegistryUpdated
	// SignalDeregistered fires after the instance deregisters on Stop.
	SignalDeregistered
)

func (s Signal) String() string {
	switch s {
	case SignalStarted:
		return "started"
	case SignalRegistered:
		return "registered"
	case SignalHeartbeat:
		return "heartbeat"
	case SignalRegistryUpdated:
		return "registry-updated"
	case SignalDeregistered:
		return "deregistered"
	default:
		return "unknown"
	}
}

// signalBuffer is the capacity of subscriber channels. Publishing never
// blocks; a subscriber that falls this far behind misses signals.
const signalBuffer = 16

// Subscribe returns a channel of lifecycle signals. The channel is
// closed when the client stops. Slow subscribers drop signals rather
// than stalling the client.
func (c *Client) Subscribe() <-chan Signal {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Signal, signalBuffer)
	if c.state == StateStopped {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// publish delivers a signal to every subscriber. Sends happen under the
// lock so they cannot interleave with closeSubscribers; they are
// non-blocking, so holding the lock is cheap.
func (c *Client) publish(s Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (c *Client) closeSubscribers() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}
