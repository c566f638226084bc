package handler

import (
	"time"

	jobmodels "stagegate/internal/job/models"
	"stagegate/internal/override/service"
	"stagegate/internal/principal/models"
	"stagegate/internal/trust"
	"stagegate/pkg/platform/audit"
)

// UserResponse is the user object inside success envelopes. Archetype-specific
// fields are omitted where they do not apply.
type UserResponse struct {
	ID                string `json:"_id"`
	Role              string `json:"role"`
	VerificationTier  string `json:"verificationTier,omitempty"`
	TrustScore        *int   `json:"trustScore,omitempty"`
	TrustLevel        string `json:"trustLevel,omitempty"`
	Frozen            bool   `json:"frozen"`
	PaymentConfirmed  bool   `json:"paymentConfirmed"`
	PaymentPending    bool   `json:"paymentPending"`
	ProfileCompletion int    `json:"profileCompletion"`

	ShadowLimited        bool    `json:"shadowLimited"`
	MessagingDisabled    bool    `json:"messagingDisabled"`
	PostingFrozen        bool    `json:"postingFrozen"`
	HighRisk             bool    `json:"highRisk"`
	RestrictionReason    string  `json:"restrictionReason"`
	RestrictionExpiresAt *string `json:"restrictionExpiresAt"`
	RestrictedBy         string  `json:"restrictedBy,omitempty"`
}

// UserEnvelope is the success envelope for single-user overrides.
type UserEnvelope struct {
	Success bool          `json:"success"`
	User    *UserResponse `json:"user"`
}

// FromPrincipal renders a principal for the admin surface.
func FromPrincipal(p *models.Principal) *UserResponse {
	resp := &UserResponse{
		ID:                p.ID.String(),
		Role:              string(p.Role),
		Frozen:            p.Frozen,
		PaymentConfirmed:  p.PaymentConfirmed,
		PaymentPending:    p.PaymentPending(),
		ProfileCompletion: p.ProfileCompletion,

		ShadowLimited:     p.Restrictions.ShadowLimited,
		MessagingDisabled: p.Restrictions.MessagingDisabled,
		PostingFrozen:     p.Restrictions.PostingFrozen,
		HighRisk:          p.Restrictions.HighRisk,
		RestrictionReason: p.Restrictions.Reason(),
	}
	if exp := p.Restrictions.ExpiresAt(); exp != nil {
		s := exp.Format(time.RFC3339)
		resp.RestrictionExpiresAt = &s
	}
	if by := p.Restrictions.RestrictedBy(); !by.IsNil() {
		resp.RestrictedBy = by.String()
	}
	switch p.Role {
	case models.RoleTalent:
		resp.VerificationTier = string(p.VerificationTier)
	case models.RoleDirector:
		score := p.TrustScore
		resp.TrustScore = &score
		resp.TrustLevel = string(trust.LevelForScore(p.TrustScore))
	}
	return resp
}

// JobResponse is the job object inside the moderation success envelope.
type JobResponse struct {
	ID                string `json:"_id"`
	Status            string `json:"status"`
	Hidden            bool   `json:"hidden"`
	ClosedEarly       bool   `json:"closedEarly"`
	AdminActionReason string `json:"adminActionReason"`
	ApprovalStatus    string `json:"approvalStatus"`
}

// JobEnvelope is the success envelope for job moderation.
type JobEnvelope struct {
	Success bool         `json:"success"`
	Job     *JobResponse `json:"job"`
}

func FromJob(j *jobmodels.Job) *JobResponse {
	return &JobResponse{
		ID:                j.ID.String(),
		Status:            string(j.Status),
		Hidden:            j.Hidden,
		ClosedEarly:       j.ClosedEarly,
		AdminActionReason: j.AdminActionReason,
		ApprovalStatus:    string(j.ApprovalStatus),
	}
}

// BulkConfirmResponse reports per-id outcomes of a bulk confirmation.
type BulkConfirmResponse struct {
	Confirmed int               `json:"confirmed"`
	Failed    []BulkFailureItem `json:"failed"`
}

type BulkFailureItem struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

func FromBulkResult(res *service.BulkResult) *BulkConfirmResponse {
	out := &BulkConfirmResponse{
		Confirmed: res.Confirmed,
		Failed:    make([]BulkFailureItem, 0, len(res.Failed)),
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, BulkFailureItem{
			UserID:  f.UserID.String(),
			Message: f.Message,
		})
	}
	return out
}

// AuditEntryResponse is one ledger entry on the read surface.
type AuditEntryResponse struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actorId"`
	ActorRole  string         `json:"actorRole"`
	TargetID   string         `json:"targetId"`
	TargetRole string         `json:"targetRole"`
	ActionType string         `json:"actionType"`
	Before     map[string]any `json:"beforeState,omitempty"`
	After      map[string]any `json:"afterState,omitempty"`
	Reason     string         `json:"reason"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AuditListResponse wraps a ledger page.
type AuditListResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

func FromAuditEntries(entries []audit.Entry) *AuditListResponse {
	out := &AuditListResponse{Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, AuditEntryResponse{
			ID:         e.ID.String(),
			ActorID:    e.ActorID.String(),
			ActorRole:  e.ActorRole,
			TargetID:   e.TargetID,
			TargetRole: e.TargetRole,
			ActionType: string(e.Action),
			Before:     e.Before,
			After:      e.After,
			Reason:     e.Reason,
			Metadata:   e.Metadata,
			RequestID:  e.RequestID,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
