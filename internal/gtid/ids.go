// Package gtid generates the short, prefixed identifiers used for work
// items, convoys, and agents, plus the cyclic call-sign name pool used to
// name newly spawned polecats.
package gtid

import (
	"crypto/rand"
	"fmt"
	"sync/atomic"
)

// alphabet is the 62 ASCII letters and digits: the URL-safe nanoid default
// alphabet without '_' and '-'. Avoiding visually ambiguous characters is
// not attempted here since ids are never hand-typed.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const defaultSize = 12

// generate returns a random id of size characters drawn from alphabet.
func generate(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// degraded but still-unique-enough sequence rather than panicking.
		for i := range buf {
			buf[i] = byte(fallbackCounter.Add(1))
		}
	}
	out := make([]byte, size)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}

var fallbackCounter atomic.Uint64

// WorkItemID returns a new work item identifier, e.g. "wi-aB3xQ...".
func WorkItemID() string { return "wi-" + generate(defaultSize) }

// ConvoyID returns a new convoy identifier, e.g. "cv-aB3xQ...".
func ConvoyID() string { return "cv-" + generate(defaultSize) }

// AgentID returns a new agent identifier prefixed by the agent's call sign,
// e.g. "toast-aB3xQ...".
func AgentID(name string) string { return fmt.Sprintf("%s-%s", name, generate(defaultSize)) }
