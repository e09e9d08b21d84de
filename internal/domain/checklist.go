package domain

import "time"

// ChecklistResult stores the outcome of a self-assessment checklist run a
// user submitted for a given provider/service. Payload is the raw JSON the
// frontend posted; the server does not interpret it beyond size limits.
type ChecklistResult struct {
	ID        int64
	UserID    int64
	Provider  string
	Service   string
	Payload   string
	CreatedAt time.Time
}
