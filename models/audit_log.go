package models

import "time"

// Audit actions
const (
	AuditActionDeleteEntry = "delete_entry"
)

// AuditLogEntry records one admin mutation
type AuditLogEntry struct {
	ID        int64
	Timestamp time.Time
	UserEmail string
	Action    string
	TargetID  int64
	UserAgent string
	IPAddress string
}
