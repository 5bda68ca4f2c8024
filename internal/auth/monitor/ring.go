package monitor

import "github.com/folioworks/folio/internal/auth/domain"

// ring is a fixed-capacity event buffer that overwrites oldest entries.
// Not safe for concurrent use; the Monitor's mutex guards every ring.
type ring struct {
	buf  []domain.SecurityEvent
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.SecurityEvent, capacity)}
}

func (r *ring) add(e domain.SecurityEvent) {
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// snapshot returns the buffered events oldest first.
func (r *ring) snapshot() []domain.SecurityEvent {
	if !r.full {
		out := make([]domain.SecurityEvent, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]domain.SecurityEvent, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// dropOlderThan rewrites the ring keeping only events at or after
// cutoff. Returns how many were dropped.
func (r *ring) dropOlderThan(cutoff func(e domain.SecurityEvent) bool) int {
	kept := make([]domain.SecurityEvent, 0, r.len())
	for _, e := range r.snapshot() {
		if cutoff(e) {
			kept = append(kept, e)
		}
	}
	dropped := r.len() - len(kept)

	r.next = 0
	r.full = false
	for i := range r.buf {
		r.buf[i] = domain.SecurityEvent{}
	}
	for _, e := range kept {
		r.add(e)
	}
	return dropped
}
