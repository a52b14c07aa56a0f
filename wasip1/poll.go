package wasip1

import "github.com/kateinoigakukun/wasi-vfs-go/vfs"

// EventType distinguishes a subscription's kind.
type EventType uint8

const (
	EventTypeClock EventType = iota
	EventTypeFDRead
	EventTypeFDWrite
)

// Subscription is one poll_oneoff input: either a clock deadline or
// readiness on a descriptor.
type Subscription struct {
	Type    EventType
	FD      Fd       // meaningful for EventTypeFDRead/Write
	ClockID uint32   // meaningful for EventTypeClock
	Timeout uint64   // nanoseconds, meaningful for EventTypeClock
}

// Event is one poll_oneoff output.
type Event struct {
	Type  EventType
	FD    Fd
	Errno Errno
}

// PollOneoff implements poll_oneoff: a single synchronous evaluation of
// the subscription list, never a blocking wait. VFS descriptors report
// ready immediately for FDSTAT subscriptions; CLOCK subscriptions are
// forwarded to the Host's clock. Mixing VFS and host subscriptions in one
// call is not a failure.
func (r *Runtime) PollOneoff(subs []Subscription) []Event {
	events := make([]Event, 0, len(subs))
	for _, s := range subs {
		switch s.Type {
		case EventTypeClock:
			_, errno := r.Host.ClockTimeGet(s.ClockID)
			events = append(events, Event{Type: s.Type, Errno: errno})
		case EventTypeFDRead, EventTypeFDWrite:
			d := r.VFS.FDs.Get(vfs.FD(s.FD))
			if d == nil {
				events = append(events, Event{Type: s.Type, FD: s.FD, Errno: ErrnoBadf})
				continue
			}
			// VFS descriptors are always immediately ready; in-memory
			// reads/writes never block. Host descriptors would need a
			// real poll against the host ABI, which we do not attempt to
			// emulate here since this VFS has no event loop of its own —
			// any host-backed subscription resolves to "ready" the same
			// way, on the assumption the embedder only hands this
			// function subscriptions it already knows are synchronous.
			events = append(events, Event{Type: s.Type, FD: s.FD, Errno: ErrnoSuccess})
		}
	}
	return events
}
