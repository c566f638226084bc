package models

import (
	"time"

	"stagegate/internal/restriction"
	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
)

// Role of a principal. TALENT and DIRECTOR are the two marketplace
// archetypes; ADMIN is the back-office actor.
type Role string

const (
	RoleTalent   Role = "TALENT"
	RoleDirector Role = "DIRECTOR"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole validates an incoming role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleTalent, RoleDirector, RoleAdmin:
		return r, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
}

// VerificationTier is the discrete ordered tier for TALENT principals.
// DIRECTOR principals carry a continuous trust score instead; their trust
// level is always derived from the score, never stored.
type VerificationTier string

const (
	TierBasic    VerificationTier = "BASIC"
	TierComplete VerificationTier = "COMPLETE"
	TierVerified VerificationTier = "VERIFIED"
	TierFeatured VerificationTier = "FEATURED"
)

// TierOrder is the promotion order, lowest first.
var TierOrder = []VerificationTier{TierBasic, TierComplete, TierVerified, TierFeatured}

// Principal is the aggregate for one marketplace user as this service sees
// it. Course catalog, checkout, and profile editing own the rest of the user
// document elsewhere; only trust, restriction, freeze, and payment fields
// live here.
//
// Invariants:
//   - Role is one of TALENT, DIRECTOR, ADMIN
//   - TrustScore stays within [0,100] (DIRECTOR)
//   - VerificationTier is one of the four ordered tiers (TALENT)
//   - Restriction details exist only for active flags (see restriction.State)
type Principal struct {
	ID               id.UserID         `json:"id"`
	Email            string            `json:"email"`
	Role             Role              `json:"role"`
	VerificationTier VerificationTier  `json:"verificationTier,omitempty"`
	TrustScore       int               `json:"trustScore,omitempty"`
	Restrictions     restriction.State `json:"restrictions"`
	Frozen           bool              `json:"frozen"`
	PaymentConfirmed bool              `json:"paymentConfirmed"`
	// PaymentReference is the submitted payment method/reference. Non-empty
	// with PaymentConfirmed=false means a payment is pending review.
	PaymentReference  string    `json:"paymentReference,omitempty"`
	ProfileCompletion int       `json:"profileCompletion"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (p *Principal) IsTalent() bool   { return p.Role == RoleTalent }
func (p *Principal) IsDirector() bool { return p.Role == RoleDirector }
func (p *Principal) IsAdmin() bool    { return p.Role == RoleAdmin }

// PaymentPending reports whether a payment reference has been submitted but
// not yet confirmed. Derived, never stored.
func (p *Principal) PaymentPending() bool {
	return p.PaymentReference != "" && !p.PaymentConfirmed
}

// CanSetFrozen checks the freeze/unfreeze transition. Toggling to the current
// value is an invariant violation so callers report the no-op instead of
// silently succeeding.
func (p *Principal) CanSetFrozen(frozen bool) error {
	if p.Frozen == frozen {
		if frozen {
			return dErrors.New(dErrors.CodeInvariantViolation, "account is already frozen")
		}
		return dErrors.New(dErrors.CodeInvariantViolation, "account is not frozen")
	}
	return nil
}

// ApplySetFrozen toggles the freeze gate. Call CanSetFrozen first.
func (p *Principal) ApplySetFrozen(frozen bool, now time.Time) {
	p.Frozen = frozen
	p.UpdatedAt = now
}

// CanConfirmPayment checks that the principal is awaiting confirmation: a
// reference was submitted and is not confirmed yet.
func (p *Principal) CanConfirmPayment() error {
	if p.PaymentConfirmed {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment is already confirmed")
	}
	if p.PaymentReference == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "no payment reference submitted")
	}
	return nil
}

// ApplyPaymentConfirmed marks the payment confirmed and lifts the freeze that
// held the account pending payment.
func (p *Principal) ApplyPaymentConfirmed(now time.Time) {
	p.PaymentConfirmed = true
	p.Frozen = false
	p.UpdatedAt = now
}

// Clone returns a deep copy so memory stores never hand out aliased state.
func (p *Principal) Clone() *Principal {
	cp := *p
	if p.Restrictions.Details != nil {
		details := make(map[restriction.Type]restriction.Detail, len(p.Restrictions.Details))
		for k, v := range p.Restrictions.Details {
			details[k] = v
		}
		cp.Restrictions.Details = details
	}
	return &cp
}
