package uid

import "github.com/google/uuid"

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Canonical returns id in lowercase hyphenated form, or a fresh id when id is
// not a valid UUID. The boolean reports whether id was kept.
func Canonical(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return New(), false
	}
	return u.String(), true
}
