// Package trust owns the mapping between continuous director trust scores
// and human-facing trust levels, and the tier walk for talent promotions.
// The numeric bands live here and nowhere else; everything that needs a
// level derives it from the stored score through this package.
package trust

import (
	"stagegate/internal/principal/models"
	dErrors "stagegate/pkg/domain-errors"
)

// Level is the derived label for a director trust score.
type Level string

const (
	LevelNewDirector     Level = "NEW_DIRECTOR"
	LevelTrustedDirector Level = "TRUSTED_DIRECTOR"
	LevelVerifiedStudio  Level = "VERIFIED_STUDIO"
)

// Score band boundaries, inclusive.
const (
	trustedFloor = 40
	studioFloor  = 80

	// MinScore and MaxScore bound valid trust scores.
	MinScore = 0
	MaxScore = 100
)

// LevelForScore maps a score to its level. Defined for every integer in
// [0,100] and monotonically non-decreasing in score; out-of-range inputs are
// clamped, callers validate ranges before storing.
func LevelForScore(score int) Level {
	score = Clamp(score)
	switch {
	case score >= studioFloor:
		return LevelVerifiedStudio
	case score >= trustedFloor:
		return LevelTrustedDirector
	default:
		return LevelNewDirector
	}
}

// ScoreForLevel is the reverse mapping used when an admin promotes or demotes
// a director by target level: a representative score inside the band.
func ScoreForLevel(level Level) int {
	switch level {
	case LevelVerifiedStudio:
		return 90
	case LevelTrustedDirector:
		return 60
	default:
		return 25
	}
}

// NextLevel returns the level one band above, or an error when already at the
// top.
func NextLevel(level Level) (Level, error) {
	switch level {
	case LevelNewDirector:
		return LevelTrustedDirector, nil
	case LevelTrustedDirector:
		return LevelVerifiedStudio, nil
	}
	return "", dErrors.New(dErrors.CodeConflict, "trust level is already at the top")
}

// PreviousLevel returns the level one band below, or an error when already at
// the bottom.
func PreviousLevel(level Level) (Level, error) {
	switch level {
	case LevelVerifiedStudio:
		return LevelTrustedDirector, nil
	case LevelTrustedDirector:
		return LevelNewDirector, nil
	}
	return "", dErrors.New(dErrors.CodeConflict, "trust level is already at the bottom")
}

// Clamp bounds a score to [MinScore, MaxScore]. Only call on values already
// validated at the API boundary; clamping is not a substitute for rejection.
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ValidScore reports whether a score is inside [0,100]. The override service
// rejects out-of-range input explicitly instead of clamping it away.
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// NextTier walks the talent tier order one step up. Promoting at FEATURED is
// a reported boundary, not a silent success.
func NextTier(tier models.VerificationTier) (models.VerificationTier, error) {
	for i, t := range models.TierOrder {
		if t != tier {
			continue
		}
		if i == len(models.TierOrder)-1 {
			return "", dErrors.New(dErrors.CodeConflict, "verification tier is already at the top")
		}
		return models.TierOrder[i+1], nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown verification tier %q", tier)
}

// PreviousTier walks the talent tier order one step down. Demoting at BASIC
// is a reported boundary, not a silent success.
func PreviousTier(tier models.VerificationTier) (models.VerificationTier, error) {
	for i, t := range models.TierOrder {
		if t != tier {
			continue
		}
		if i == 0 {
			return "", dErrors.New(dErrors.CodeConflict, "verification tier is already at the bottom")
		}
		return models.TierOrder[i-1], nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown verification tier %q", tier)
}
