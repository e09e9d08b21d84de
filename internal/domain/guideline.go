package domain

import "time"

// Guideline is one security guideline authored by an administrator for a
// cloud provider/service pair. The auth core only cares that these exist as
// public-read content; the schema is deliberately minimal.
type Guideline struct {
	ID        int64
	Provider  string // e.g. "aws"
	Service   string // e.g. "s3"
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceEntry is a cloud service listed under a provider, used to populate
// the public browse pages.
type ServiceEntry struct {
	ID        int64
	Provider  string
	Name      string
	CreatedAt time.Time
}
