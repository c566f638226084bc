package models

import (
	"time"

	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
)

// Status is a job's open/closed lifecycle state.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ApprovalStatus is the moderation verdict on a posted job.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// AdminAction enumerates the moderation actions an admin can take on a job.
type AdminAction string

const (
	ActionCloseEarly AdminAction = "CLOSE_EARLY"
	ActionApprove    AdminAction = "APPROVE"
	ActionReject     AdminAction = "REJECT"
	ActionHide       AdminAction = "HIDE"
	ActionUnhide     AdminAction = "UNHIDE"
)

// ParseAdminAction validates an incoming action string.
func ParseAdminAction(s string) (AdminAction, error) {
	switch a := AdminAction(s); a {
	case ActionCloseEarly, ActionApprove, ActionReject, ActionHide, ActionUnhide:
		return a, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown job action %q", s)
}

// Job is a casting job posting as the moderation surface sees it.
type Job struct {
	ID                id.JobID       `json:"_id"`
	Title             string         `json:"title"`
	OwnerID           id.UserID      `json:"ownerId"`
	Status            Status         `json:"status"`
	ApprovalStatus    ApprovalStatus `json:"approvalStatus"`
	Hidden            bool           `json:"hidden"`
	ClosedEarly       bool           `json:"closedEarly"`
	AdminActionReason string         `json:"adminActionReason,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Visible reports whether the job appears in talent-facing listings.
func (j *Job) Visible() bool {
	return !j.Hidden && j.ApprovalStatus == ApprovalApproved
}

// ApplyAdminAction mutates the job per the fixed moderation table:
//
//	CLOSE_EARLY  status=closed, closedEarly=true
//	APPROVE      approvalStatus=approved, status=open
//	REJECT       approvalStatus=rejected, status=closed (regardless of prior status)
//	HIDE         hidden=true
//	UNHIDE       hidden=false, adminActionReason cleared
//
// Every action except UNHIDE records the reason on the job.
func (j *Job) ApplyAdminAction(action AdminAction, reason string, now time.Time) error {
	switch action {
	case ActionCloseEarly:
		j.Status = StatusClosed
		j.ClosedEarly = true
		j.AdminActionReason = reason
	case ActionApprove:
		j.ApprovalStatus = ApprovalApproved
		j.Status = StatusOpen
		j.AdminActionReason = reason
	case ActionReject:
		j.ApprovalStatus = ApprovalRejected
		j.Status = StatusClosed
		j.AdminActionReason = reason
	case ActionHide:
		j.Hidden = true
		j.AdminActionReason = reason
	case ActionUnhide:
		j.Hidden = false
		j.AdminActionReason = ""
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown job action %q", action)
	}
	j.UpdatedAt = now
	return nil
}

// Snapshot renders the moderation-relevant fields for audit records.
func (j *Job) Snapshot() map[string]any {
	return map[string]any{
		"status":      string(j.Status),
		"hidden":      j.Hidden,
		"closedEarly": j.ClosedEarly,
	}
}
