// Package uuid generates and validates the time-ordered identifiers used as
// primary keys for positions, audit entries and outbox events.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. Version 7 embeds a millisecond timestamp in
// the high bits, so ids sort by creation time, which keeps the audit log and
// outbox tables append-friendly.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// entropy exhaustion; a random v4 id is still unique
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates and normalizes a UUID string.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
