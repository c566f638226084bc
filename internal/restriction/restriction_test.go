package restriction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "stagegate/pkg/domain"
	dErrors "stagegate/pkg/domain-errors"
	"stagegate/pkg/platform/audit"
)

func detail(reason string, appliedAt time.Time) Detail {
	return Detail{
		Reason:    reason,
		ActorID:   id.NewUserID(),
		AppliedAt: appliedAt,
	}
}

func TestApply(t *testing.T) {
	now := time.Now()

	t.Run("sets only the named flag", func(t *testing.T) {
		var s State
		require.NoError(t, Apply(&s, ShadowLimit, detail("spam reports", now)))

		assert.True(t, s.ShadowLimited)
		assert.False(t, s.MessagingDisabled)
		assert.False(t, s.PostingFrozen)
		assert.False(t, s.HighRisk)
		assert.Equal(t, "spam reports", s.Reason())
	})

	t.Run("trims the reason", func(t *testing.T) {
		var s State
		require.NoError(t, Apply(&s, FlagHighRisk, detail("  chargeback pattern  ", now)))
		assert.Equal(t, "chargeback pattern", s.Reason())
	})

	t.Run("empty reason rejected", func(t *testing.T) {
		var s State
		err := Apply(&s, ShadowLimit, detail("   ", now))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.False(t, s.ShadowLimited)
	})

	t.Run("applying a second flag keeps the first flag's detail", func(t *testing.T) {
		var s State
		require.NoError(t, Apply(&s, ShadowLimit, detail("first", now)))
		require.NoError(t, Apply(&s, DisableMessaging, detail("second", now.Add(time.Minute))))

		assert.True(t, s.ShadowLimited)
		assert.True(t, s.MessagingDisabled)
		assert.Equal(t, "first", s.Details[ShadowLimit].Reason)
		// Shared display fields follow the most recently applied flag.
		assert.Equal(t, "second", s.Reason())
	})
}

func TestRemove(t *testing.T) {
	now := time.Now()

	t.Run("removing one flag leaves others untouched", func(t *testing.T) {
		var s State
		require.NoError(t, Apply(&s, DisableMessaging, detail("abuse", now)))
		require.NoError(t, Apply(&s, FreezePosting, detail("scam listing", now.Add(time.Second))))
		require.NoError(t, Apply(&s, FlagHighRisk, detail("manual review", now.Add(2*time.Second))))
		require.NoError(t, Apply(&s, ShadowLimit, detail("spam", now.Add(3*time.Second))))

		Remove(&s, ShadowLimit)

		assert.False(t, s.ShadowLimited)
		assert.True(t, s.MessagingDisabled)
		assert.True(t, s.PostingFrozen)
		assert.True(t, s.HighRisk)
	})

	t.Run("removing a non-last flag keeps shared fields populated", func(t *testing.T) {
		var s State
		require.NoError(t, Apply(&s, ShadowLimit, detail("older", now)))
		require.NoError(t, Apply(&s, FreezePosting, detail("newer", now.Add(time.Minute))))

		Remove(&s, FreezePosting)

		assert.True(t, s.Active())
		assert.Equal(t, "older", s.Reason())
		assert.NotEqual(t, id.UserID{}, s.RestrictedBy())
	})

	t.Run("removing the last flag clears shared fields", func(t *testing.T) {
		var s State
		exp := now.Add(24 * time.Hour)
		d := detail("temporary", now)
		d.ExpiresAt = &exp
		require.NoError(t, Apply(&s, ShadowLimit, d))

		Remove(&s, ShadowLimit)

		assert.False(t, s.Active())
		assert.Empty(t, s.Reason())
		assert.Nil(t, s.ExpiresAt())
		assert.Equal(t, id.UserID{}, s.RestrictedBy())
		assert.Nil(t, s.Details)
	})

	t.Run("removing an unset flag is harmless", func(t *testing.T) {
		var s State
		Remove(&s, FlagHighRisk)
		assert.False(t, s.Active())
	})
}

func TestAuditAction(t *testing.T) {
	assert.Equal(t, audit.ActionFlagAdded, AuditAction(FlagHighRisk, ActionApply))
	assert.Equal(t, audit.ActionFlagRemoved, AuditAction(FlagHighRisk, ActionRemove))
	assert.Equal(t, audit.ActionRestrictionApplied, AuditAction(ShadowLimit, ActionApply))
	assert.Equal(t, audit.ActionRestrictionRemoved, AuditAction(DisableMessaging, ActionRemove))
	assert.Equal(t, audit.ActionRestrictionApplied, AuditAction(FreezePosting, ActionApply))
}

func TestParse(t *testing.T) {
	_, err := ParseType("SHADOW_BAN")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseAction("TOGGLE")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	tt, err := ParseType("FREEZE_POSTING")
	require.NoError(t, err)
	assert.Equal(t, FreezePosting, tt)
}
