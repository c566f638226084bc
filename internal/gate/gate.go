// Package gate is the read-only access evaluator consumed by protected
// feature endpoints. It combines profile completeness and payment
// confirmation into an allow/deny decision with a machine-readable reason.
// It reads persisted principal state only; it never writes and never reads
// the audit ledger.
package gate

import (
	"fmt"

	"stagegate/internal/principal/models"
)

// MinProfileCompletion is the percentage a talent profile must reach before
// protected resources open up.
const MinProfileCompletion = 60

// ReasonCode is the machine-readable denial reason.
type ReasonCode string

const (
	ReasonProfileIncomplete ReasonCode = "PROFILE_INCOMPLETE"
	ReasonPaymentRequired   ReasonCode = "PAYMENT_REQUIRED"
)

// Decision is computed fresh per request and never persisted.
type Decision struct {
	Allowed    bool
	ReasonCode ReasonCode
	Message    string
	// PaymentPending distinguishes "submitted, awaiting confirmation" from
	// "not submitted" on PAYMENT_REQUIRED denials. Informational only; it is
	// not a third outcome.
	PaymentPending bool
}

// Evaluate gates TALENT principals. Other roles bypass the gate entirely.
//
// Profile completeness is checked strictly before payment: a talent failing
// both sees PROFILE_INCOMPLETE. The ordering is part of the contract.
func Evaluate(p *models.Principal) Decision {
	if !p.IsTalent() {
		return Decision{Allowed: true}
	}

	if p.ProfileCompletion < MinProfileCompletion {
		return Decision{
			ReasonCode: ReasonProfileIncomplete,
			Message: fmt.Sprintf("complete your profile to continue (%d%% of %d%% required)",
				p.ProfileCompletion, MinProfileCompletion),
		}
	}

	if !p.PaymentConfirmed {
		msg := "submit your membership payment to continue"
		if p.PaymentPending() {
			msg = "your payment is being reviewed; access opens once it is confirmed"
		}
		return Decision{
			ReasonCode:     ReasonPaymentRequired,
			Message:        msg,
			PaymentPending: p.PaymentPending(),
		}
	}

	return Decision{Allowed: true}
}
