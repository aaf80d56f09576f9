package storage

// Ledger is the persisted set of codes that have already been notified. It
// exists for duplicate suppression across restarts, not delivery tracking.
type Ledger interface {
	Contains(code string) bool
	Add(code string) error
	Codes() []string
	Len() int
}
