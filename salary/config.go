/*
config.go - Validated obligation percent configuration

PURPOSE:
  ObligationConfig assigns each of the four obligations a penalty percent.
  The percents MUST sum to exactly 100 and each must lie within [0,100];
  this is what guarantees that a lesson missing all four obligations is
  deducted exactly 100% and nets zero.

CONSTRUCTION:
  The only way to obtain a valid config is NewObligationConfig, which
  rejects violating percent sets with *InvalidConfigError. Components
  downstream (the rule engine, the generation job) never re-check the
  invariant - a config value in hand is a valid one.

SNAPSHOT SEMANTICS:
  The config is a stored singleton mutated only through the validated
  admin update path. A generation run reads it ONCE at start and carries
  the copy through the run, so a concurrent admin update cannot make one
  salary record mix two weighting schemes.

SEE ALSO:
  - deduction.go: Consumes the percents
  - store.go: SettingsStore, the singleton's persistence interface
*/
package salary

import "github.com/shopspring/decimal"

// =============================================================================
// OBLIGATION CONFIG - Four percents summing to exactly 100
// =============================================================================

// ObligationConfig is immutable once constructed. Zero value is NOT valid;
// use NewObligationConfig or DefaultObligationConfig.
type ObligationConfig struct {
	absencePercent  int
	feedbackPercent int
	voicePercent    int
	textPercent     int
}

// NewObligationConfig validates and constructs a config.
// Returns *InvalidConfigError if any percent is outside [0,100] or the
// four do not sum to exactly 100.
func NewObligationConfig(absence, feedback, voice, text int) (ObligationConfig, error) {
	for _, p := range []int{absence, feedback, voice, text} {
		if p < 0 || p > 100 {
			return ObligationConfig{}, &InvalidConfigError{
				Absence:  absence,
				Feedback: feedback,
				Voice:    voice,
				Text:     text,
				Reason:   "percent outside [0,100]",
			}
		}
	}
	if sum := absence + feedback + voice + text; sum != 100 {
		return ObligationConfig{}, &InvalidConfigError{
			Absence:  absence,
			Feedback: feedback,
			Voice:    voice,
			Text:     text,
			Sum:      sum,
			Reason:   "percents must sum to exactly 100",
		}
	}
	return ObligationConfig{
		absencePercent:  absence,
		feedbackPercent: feedback,
		voicePercent:    voice,
		textPercent:     text,
	}, nil
}

// DefaultObligationConfig is the equal-weight scheme used until an admin
// configures something else.
func DefaultObligationConfig() ObligationConfig {
	cfg, _ := NewObligationConfig(25, 25, 25, 25)
	return cfg
}

func (c ObligationConfig) AbsencePercent() int  { return c.absencePercent }
func (c ObligationConfig) FeedbackPercent() int { return c.feedbackPercent }
func (c ObligationConfig) VoicePercent() int    { return c.voicePercent }
func (c ObligationConfig) TextPercent() int     { return c.textPercent }

// Percent returns the configured percent for an obligation kind.
func (c ObligationConfig) Percent(kind ObligationKind) int {
	switch kind {
	case ObligationAbsence:
		return c.absencePercent
	case ObligationFeedback:
		return c.feedbackPercent
	case ObligationVoice:
		return c.voicePercent
	case ObligationText:
		return c.textPercent
	default:
		return 0
	}
}

// PenaltyPercent sums the percents of every obligation NOT met in state.
// By the sum-to-100 invariant the result is always within [0,100].
func (c ObligationConfig) PenaltyPercent(state ObligationState) int {
	penalty := 0
	for _, kind := range ObligationKinds {
		if !state.Met(kind) {
			penalty += c.Percent(kind)
		}
	}
	return penalty
}

// penaltyFraction returns penalty/100 as a decimal for money math.
func penaltyFraction(penalty int) decimal.Decimal {
	return decimal.NewFromInt(int64(penalty)).Div(decimal.NewFromInt(100))
}
