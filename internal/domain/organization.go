package domain

import "time"

// Organization is the tenant boundary; every ticket and user belongs to one.
type Organization struct {
	ID        int64
	Name      string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
