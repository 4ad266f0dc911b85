// internal/types/interfaces.go
package types

// DedupStore tracks recently admitted event IDs so redelivered events are
// no-ops. Check atomically tests and marks, so concurrent deliveries of the
// same event admit exactly one.
type DedupStore interface {
	Check(id EventID) (dup bool)
	Seen(id EventID) bool
	MarkSeen(id EventID)
}
