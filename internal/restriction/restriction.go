// Package restriction holds the pure state-transition logic for the four
// behavioral restriction flags. It never touches storage; the override service
// loads a principal, calls Apply or Remove on its restriction state, and
// persists the result together with the audit entry.
package restriction

import (
	"strings"
	"time"

	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/audit"
)

// Type enumerates the four independent restriction flags.
type Type string

const (
	ShadowLimit      Type = "SHADOW_LIMIT"
	DisableMessaging Type = "DISABLE_MESSAGING"
	FreezePosting    Type = "FREEZE_POSTING"
	FlagHighRisk     Type = "FLAG_HIGH_RISK"
)

// Action is what to do with a restriction flag.
type Action string

const (
	ActionApply  Action = "APPLY"
	ActionRemove Action = "REMOVE"
)

// ParseType validates an incoming restriction type string.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case ShadowLimit, DisableMessaging, FreezePosting, FlagHighRisk:
		return t, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown restriction type %q", s)
}

// ParseAction validates an incoming action string.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionApply, ActionRemove:
		return a, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown restriction action %q", s)
}

// AuditAction maps a restriction transition to its ledger action. The high
// risk flag audits as FLAG_ADDED/FLAG_REMOVED; the other three as
// RESTRICTION_APPLIED/RESTRICTION_REMOVED.
func AuditAction(t Type, a Action) audit.Action {
	switch t {
	case FlagHighRisk:
		if a == ActionApply {
			return audit.ActionFlagAdded
		}
		return audit.ActionFlagRemoved
	case ShadowLimit, DisableMessaging, FreezePosting:
		if a == ActionApply {
			return audit.ActionRestrictionApplied
		}
		return audit.ActionRestrictionRemoved
	}
	return audit.ActionOther
}

// Detail is the per-flag metadata record. Each active flag keeps its own
// reason, expiry, and actor; removing one flag cannot clobber another's
// metadata.
type Detail struct {
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	ActorID   id.UserID  `json:"actorId"`
	AppliedAt time.Time  `json:"appliedAt"`
}

// State is a principal's restriction snapshot: four independent flags plus
// per-flag detail for the active ones.
//
// ExpiresAt is advisory display metadata; nothing in this package re-evaluates
// it to auto-clear a flag.
type State struct {
	ShadowLimited     bool            `json:"shadowLimited"`
	MessagingDisabled bool            `json:"messagingDisabled"`
	PostingFrozen     bool            `json:"postingFrozen"`
	HighRisk          bool            `json:"highRisk"`
	Details           map[Type]Detail `json:"details,omitempty"`
}

// Active reports whether any of the four flags is set.
func (s *State) Active() bool {
	return s.ShadowLimited || s.MessagingDisabled || s.PostingFrozen || s.HighRisk
}

// Flag returns the value of one flag.
func (s *State) Flag(t Type) bool {
	switch t {
	case ShadowLimit:
		return s.ShadowLimited
	case DisableMessaging:
		return s.MessagingDisabled
	case FreezePosting:
		return s.PostingFrozen
	case FlagHighRisk:
		return s.HighRisk
	}
	return false
}

func (s *State) setFlag(t Type, v bool) {
	switch t {
	case ShadowLimit:
		s.ShadowLimited = v
	case DisableMessaging:
		s.MessagingDisabled = v
	case FreezePosting:
		s.PostingFrozen = v
	case FlagHighRisk:
		s.HighRisk = v
	}
}

// current returns the detail of the most recently applied active flag. This
// backs the shared display fields older consumers still read.
func (s *State) current() (Detail, bool) {
	var latest Detail
	found := false
	for t, d := range s.Details {
		if !s.Flag(t) {
			continue
		}
		if !found || d.AppliedAt.After(latest.AppliedAt) {
			latest = d
			found = true
		}
	}
	return latest, found
}

// Reason is the shared display reason: the most recently applied active
// flag's reason, empty once all flags are clear.
func (s *State) Reason() string {
	if d, ok := s.current(); ok {
		return d.Reason
	}
	return ""
}

// ExpiresAt is the shared display expiry, nil meaning indefinite or no
// active restriction.
func (s *State) ExpiresAt() *time.Time {
	if d, ok := s.current(); ok {
		return d.ExpiresAt
	}
	return nil
}

// RestrictedBy is the actor behind the shared display reason.
func (s *State) RestrictedBy() id.UserID {
	if d, ok := s.current(); ok {
		return d.ActorID
	}
	return id.UserID{}
}

// Apply sets the flag for t and records its detail. The reason must be
// non-empty after trimming. Other flags and their details are untouched.
func Apply(s *State, t Type, d Detail) error {
	reason := strings.TrimSpace(d.Reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "restriction reason is required")
	}
	d.Reason = reason

	if s.Details == nil {
		s.Details = make(map[Type]Detail, 4)
	}
	s.setFlag(t, true)
	s.Details[t] = d
	return nil
}

// Remove clears the flag for t and drops its detail. Details of other active
// flags survive; once the last flag is removed the shared display fields
// (Reason, ExpiresAt, RestrictedBy) read as cleared because no active detail
// remains.
func Remove(s *State, t Type) {
	s.setFlag(t, false)
	delete(s.Details, t)
	if !s.Active() {
		s.Details = nil
	}
}

// Snapshot renders the state for audit before/after records and API
// responses, shared fields included.
func (s *State) Snapshot() map[string]any {
	snap := map[string]any{
		"shadowLimited":     s.ShadowLimited,
		"messagingDisabled": s.MessagingDisabled,
		"postingFrozen":     s.PostingFrozen,
		"highRisk":          s.HighRisk,
		"restrictionReason": s.Reason(),
	}
	if exp := s.ExpiresAt(); exp != nil {
		snap["restrictionExpiresAt"] = exp.Format(time.RFC3339)
	} else {
		snap["restrictionExpiresAt"] = nil
	}
	if by := s.RestrictedBy(); !by.IsNil() {
		snap["restrictedBy"] = by.String()
	}
	return snap
}
