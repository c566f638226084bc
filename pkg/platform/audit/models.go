package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "stagegate/pkg/domain"
)

// Action is the closed set of administrative actions recorded in the ledger.
// New actions must be added here and to Valid; dispatch sites switch
// exhaustively on this type so an unhandled action is caught in review, not
// at runtime.
type Action string

const (
	ActionTrustTierChange        Action = "TRUST_TIER_CHANGE"
	ActionVerificationTierChange Action = "VERIFICATION_TIER_CHANGE"
	ActionTrustScoreOverride     Action = "TRUST_SCORE_OVERRIDE"
	ActionAccountFrozen          Action = "ACCOUNT_FROZEN"
	ActionAccountUnfrozen        Action = "ACCOUNT_UNFROZEN"
	ActionRestrictionApplied     Action = "RESTRICTION_APPLIED"
	ActionRestrictionRemoved     Action = "RESTRICTION_REMOVED"
	ActionFlagAdded              Action = "FLAG_ADDED"
	ActionFlagRemoved            Action = "FLAG_REMOVED"
	ActionJobClosedEarly         Action = "JOB_CLOSED_EARLY"
	ActionJobApproved            Action = "JOB_APPROVED"
	ActionJobRejected            Action = "JOB_REJECTED"
	ActionJobHidden              Action = "JOB_HIDDEN"
	ActionJobUnhidden            Action = "JOB_UNHIDDEN"
	ActionOther                  Action = "OTHER"
)

// Valid reports whether the action is a member of the closed enum.
func (a Action) Valid() bool {
	switch a {
	case ActionTrustTierChange, ActionVerificationTierChange, ActionTrustScoreOverride,
		ActionAccountFrozen, ActionAccountUnfrozen,
		ActionRestrictionApplied, ActionRestrictionRemoved,
		ActionFlagAdded, ActionFlagRemoved,
		ActionJobClosedEarly, ActionJobApproved, ActionJobRejected,
		ActionJobHidden, ActionJobUnhidden,
		ActionOther:
		return true
	}
	return false
}

// Entry is one immutable ledger record. Entries are created once, atomically
// with the mutation they describe, and never updated or deleted. The store
// interface has no update or delete operations on purpose.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    id.UserID      `json:"actorId"`
	ActorRole  string         `json:"actorRole"`
	TargetID   string         `json:"targetUserId"`
	TargetRole string         `json:"targetUserRole,omitempty"`
	Action     Action         `json:"actionType"`
	Before     map[string]any `json:"beforeState"`
	After      map[string]any `json:"afterState"`
	Reason     string         `json:"reason"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Validate checks the non-negotiable entry invariants: a known action, an
// identified actor, a target, and a non-empty trimmed reason.
func (e *Entry) Validate() error {
	if !e.Action.Valid() {
		return ErrUnknownAction
	}
	if e.ActorID.IsNil() {
		return ErrMissingActor
	}
	if e.TargetID == "" {
		return ErrMissingTarget
	}
	if strings.TrimSpace(e.Reason) == "" {
		return ErrEmptyReason
	}
	return nil
}
