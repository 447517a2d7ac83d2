/*
deduction.go - Deduction rule engine

PURPOSE:
  Turns one lesson's obligation state into money. Pure function: no I/O,
  no clock, no store. Missing obligations are the EXPECTED domain here,
  not errors - a teacher who forgot the voice message simply earns less.

ALGORITHM:
  penalty  = sum of configured percents for obligations NOT met
  deduction = round_half_up(gross * penalty / 100)   <- the ONLY rounding
  net      = gross - deduction

  The config invariant (percents sum to 100, each within [0,100]) caps
  penalty at 100, so net is never negative: all four obligations missed
  means a 100% deduction and zero net, which is a correct outcome.

ROUNDING:
  Rounding happens exactly once, on the deduction, at the currency minor
  unit. Net is derived by subtraction from the (already minor-unit) gross,
  so gross == deduction + net holds exactly with no leakage.

SEE ALSO:
  - config.go: PenaltyPercent
  - job.go: Applies this per lesson, then sums
*/
package salary

// =============================================================================
// DEDUCTION BREAKDOWN - Per-lesson derivation result
// =============================================================================

// DeductionBreakdown records how one lesson's pay was derived.
type DeductionBreakdown struct {
	Gross     Money
	Deduction Money
	Net       Money
	Missing   []ObligationKind
}

// ComputeDeduction applies the configured weighting to one lesson's
// obligation state. gross is expected to be minor-unit scaled already
// (LessonFact.Gross rounds it); cfg is valid by construction.
func ComputeDeduction(gross Money, state ObligationState, cfg ObligationConfig) DeductionBreakdown {
	penalty := cfg.PenaltyPercent(state)

	deduction := gross.Mul(penaltyFraction(penalty)).RoundMinor()
	net := gross.Sub(deduction)

	return DeductionBreakdown{
		Gross:     gross,
		Deduction: deduction,
		Net:       net,
		Missing:   state.Missing(),
	}
}
