package handler

import (
	"strings"
	"time"

	jobmodels "stagegate/internal/job/models"
	"stagegate/internal/override/service"
	"stagegate/internal/restriction"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	platformstrings "stagegate/pkg/platform/strings"
)

const maxReasonLength = 500

// validReason trims and bounds an override reason. Presence is enforced here
// so bad requests never reach the service; the service re-checks anyway.
func validReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if len(reason) > maxReasonLength {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "reason must be at most %d characters", maxReasonLength)
	}
	return reason, nil
}

func parseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expiresAt must be RFC 3339")
	}
	return &t, nil
}

// TierChangeRequest is the body for POST /users/{userID}/tier.
type TierChangeRequest struct {
	Direction string `json:"direction"`
	Reason    string `json:"reason"`

	parsedDirection service.Direction
}

func (r *TierChangeRequest) Validate() error {
	direction, err := service.ParseDirection(strings.TrimSpace(r.Direction))
	if err != nil {
		return err
	}
	r.parsedDirection = direction

	r.Reason, err = validReason(r.Reason)
	return err
}

func (r *TierChangeRequest) ParsedDirection() service.Direction { return r.parsedDirection }

// ScoreOverrideRequest is the body for POST /users/{userID}/trust-score.
// Score is a pointer so an absent field is distinguishable from zero.
type ScoreOverrideRequest struct {
	Score  *int   `json:"score"`
	Reason string `json:"reason"`
}

func (r *ScoreOverrideRequest) Validate() error {
	if r.Score == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "score is required")
	}
	var err error
	r.Reason, err = validReason(r.Reason)
	return err
}

// FreezeRequest is the body for POST /users/{userID}/freeze.
type FreezeRequest struct {
	Frozen    *bool  `json:"frozen"`
	Reason    string `json:"reason"`
	ExpiresAt string `json:"expiresAt,omitempty"`

	parsedExpiry *time.Time
}

func (r *FreezeRequest) Validate() error {
	if r.Frozen == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "frozen is required")
	}
	expiry, err := parseExpiry(r.ExpiresAt)
	if err != nil {
		return err
	}
	r.parsedExpiry = expiry

	r.Reason, err = validReason(r.Reason)
	return err
}

func (r *FreezeRequest) ParsedExpiry() *time.Time { return r.parsedExpiry }

// RestrictionRequest is the body for POST /users/{userID}/restrictions.
type RestrictionRequest struct {
	Action          string `json:"action"`
	RestrictionType string `json:"restrictionType"`
	Reason          string `json:"reason"`
	ExpiresAt       string `json:"expiresAt,omitempty"`

	parsedOp     restriction.Action
	parsedType   restriction.Type
	parsedExpiry *time.Time
}

func (r *RestrictionRequest) Validate() error {
	op, err := restriction.ParseAction(strings.TrimSpace(r.Action))
	if err != nil {
		return err
	}
	r.parsedOp = op

	t, err := restriction.ParseType(strings.TrimSpace(r.RestrictionType))
	if err != nil {
		return err
	}
	r.parsedType = t

	expiry, err := parseExpiry(r.ExpiresAt)
	if err != nil {
		return err
	}
	if expiry != nil && op == restriction.ActionRemove {
		return dErrors.New(dErrors.CodeInvalidInput, "expiresAt only applies to APPLY")
	}
	r.parsedExpiry = expiry

	r.Reason, err = validReason(r.Reason)
	return err
}

func (r *RestrictionRequest) ParsedOp() restriction.Action { return r.parsedOp }
func (r *RestrictionRequest) ParsedType() restriction.Type { return r.parsedType }
func (r *RestrictionRequest) ParsedExpiry() *time.Time     { return r.parsedExpiry }

// JobActionRequest is the body for POST /jobs/{jobID}/actions.
type JobActionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`

	parsedAction jobmodels.AdminAction
}

func (r *JobActionRequest) Validate() error {
	action, err := jobmodels.ParseAdminAction(strings.TrimSpace(r.Action))
	if err != nil {
		return err
	}
	r.parsedAction = action

	r.Reason, err = validReason(r.Reason)
	return err
}

func (r *JobActionRequest) ParsedAction() jobmodels.AdminAction { return r.parsedAction }

// BulkConfirmRequest is the body for POST /payments/confirm.
type BulkConfirmRequest struct {
	UserIDs []string `json:"userIds"`
	Reason  string   `json:"reason,omitempty"`

	parsedIDs []id.UserID
}

const maxBulkIDs = 200

func (r *BulkConfirmRequest) Validate() error {
	// Dedupe up front: a repeated id would confirm once and then report a
	// spurious already-confirmed failure for the duplicate.
	ids := platformstrings.DedupeAndTrim(r.UserIDs)
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "userIds is required")
	}
	if len(ids) > maxBulkIDs {
		return dErrors.Newf(dErrors.CodeInvalidInput, "at most %d userIds per request", maxBulkIDs)
	}
	r.parsedIDs = make([]id.UserID, 0, len(ids))
	for _, raw := range ids {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return dErrors.Newf(dErrors.CodeInvalidInput, "invalid user id %q", raw)
		}
		r.parsedIDs = append(r.parsedIDs, userID)
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxReasonLength {
		return dErrors.Newf(dErrors.CodeInvalidInput, "reason must be at most %d characters", maxReasonLength)
	}
	return nil
}

func (r *BulkConfirmRequest) ParsedIDs() []id.UserID { return r.parsedIDs }
