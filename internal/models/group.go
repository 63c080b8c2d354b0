package models

// Group is a shareable expense ledger.
// Anyone holding the group ID can read it; edits may additionally require a
// group token (see package auth).
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	// It doubles as the share link, so it must stay unguessable.
	ID string

	// Ledger holds the participants and expenses.
	Ledger Ledger

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// LastAccessedAt is the Unix timestamp of the last read or write.
	// Groups idle for longer than the retention window are purged.
	LastAccessedAt int64
}
