package domain

import "time"

// AuditLog represents one audited administrative or authentication event.
type AuditLog struct {
	ID        string
	Realm     string
	UserID    string
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}
