// Package domain holds small shared domain types used across features.
package domain

import "github.com/google/uuid"

// UserID identifies a principal (talent, director, or admin).
type UserID uuid.UUID

// JobID identifies a casting job posting.
type JobID uuid.UUID

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewJobID returns a fresh random JobID.
func NewJobID() JobID { return JobID(uuid.New()) }

// ParseUserID parses a string form UserID. Returns an error for anything that
// is not a valid UUID so handlers can reject malformed ids early.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseJobID parses a string form JobID.
func ParseJobID(s string) (JobID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return JobID{}, err
	}
	return JobID(u), nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id JobID) String() string  { return uuid.UUID(id).String() }

// MarshalText makes the id render as its canonical UUID string in JSON and
// text encodings.
func (id UserID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID string form.
func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

// MarshalText makes the id render as its canonical UUID string in JSON and
// text encodings.
func (id JobID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID string form.
func (id *JobID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = JobID(u)
	return nil
}

// IsNil reports whether the id is the zero UUID.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the id is the zero UUID.
func (id JobID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
