// SPDX-License-Identifier: ice License 1.0

package client

type (
	// trace remembers the last size event ids seen by a subscription.
	trace struct {
		seen map[string]struct{}
		ring []string
		size int
		next int
	}
)

// maxTraceSize bounds the memory a subscription spends on duplicate detection whatever limit its filters ask for.
const maxTraceSize = 10_000

func newTrace(size int) *trace {
	size = min(max(size, 1), maxTraceSize)

	return &trace{seen: make(map[string]struct{}), size: size}
}

// add reports false when id is already traced.
func (t *trace) add(id string) bool {
	if _, found := t.seen[id]; found {
		return false
	}
	t.seen[id] = struct{}{}
	if len(t.ring) < t.size {
		t.ring = append(t.ring, id)

		return true
	}
	delete(t.seen, t.ring[t.next])
	t.ring[t.next] = id
	t.next = (t.next + 1) % t.size

	return true
}
