// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import "math"

// round6 rounds v to 6 decimal places, matching §4.9's "all numbers rounded
// to 6 decimals" requirement for forecast output.
func round6(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}

// DegreeOdds is the relative frequency of each degree of success over the 20
// faces of a d20, for a given modifier and dc. Frequencies sum to 1 exactly
// in 1/20 units.
type DegreeOdds struct {
	CriticalSuccess float64 `json:"critical_success"`
	Success         float64 `json:"success"`
	Failure         float64 `json:"failure"`
	CriticalFailure float64 `json:"critical_failure"`
}

// ComputeDegreeOdds enumerates d20 faces 1..20, applies modifier, and
// resolves the degree against dc using the same rule the reducer uses
// (§4.2), returning relative frequencies. It never consumes RNG.
func ComputeDegreeOdds(modifier, dc int) DegreeOdds {
	var counts [4]int
	for die := 1; die <= 20; die++ {
		degree := ResolveDegree(die, modifier, dc)
		counts[degreeIndex(degree)]++
	}
	return DegreeOdds{
		CriticalFailure: round6(float64(counts[0]) / 20),
		Failure:         round6(float64(counts[1]) / 20),
		Success:         round6(float64(counts[2]) / 20),
		CriticalSuccess: round6(float64(counts[3]) / 20),
	}
}

// averageDamage returns the expected value of an NdM+K formula:
// N·(M+1)/2 + K. Flat formulas (N=0) return K.
func averageDamage(count, size, flat int) float64 {
	if count == 0 {
		return float64(flat)
	}
	return float64(count)*(float64(size)+1)/2 + float64(flat)
}

// StrikeForecast is the pure preview of a strike command's odds and
// expected damage, computed without consuming RNG.
type StrikeForecast struct {
	Odds           DegreeOdds `json:"odds"`
	ExpectedDamage float64    `json:"expected_damage"`
	ExpectedOnCrit float64    `json:"expected_on_crit"`
	ExpectedOnHit  float64    `json:"expected_on_hit"`
}

// ForecastStrike previews a strike against effectiveAC (target AC plus any
// cover bonus) using attackMod and damage formula.
func ForecastStrike(attackMod, effectiveAC int, damageFormula string) (StrikeForecast, error) {
	odds := ComputeDegreeOdds(attackMod, effectiveAC)
	count, size, flat, err := ParseDamageFormula(damageFormula)
	if err != nil {
		return StrikeForecast{}, err
	}
	avg := averageDamage(count, size, flat)

	expected := round6(odds.CriticalSuccess*avg*2 + odds.Success*avg)
	return StrikeForecast{
		Odds:           odds,
		ExpectedDamage: expected,
		ExpectedOnCrit: round6(avg * 2),
		ExpectedOnHit:  round6(avg),
	}, nil
}

// CastSpellForecast previews a basic-save modeled effect: the expected
// multiplier is the degree-weighted basic-save multiplier, and expected
// damage applies it to the average roll.
type CastSpellForecast struct {
	Odds               DegreeOdds `json:"odds"`
	ExpectedMultiplier float64    `json:"expected_multiplier"`
	ExpectedDamage     float64    `json:"expected_damage"`
}

// ForecastCastSpell previews a mode=basic save_check+damage modeled effect
// (§8 property 7): expected_multiplier = 0·p_crit + 0.5·p_succ + 1·p_fail +
// 2·p_critfail.
func ForecastCastSpell(saveModifier, dc int, damageFormula string) (CastSpellForecast, error) {
	odds := ComputeDegreeOdds(saveModifier, dc)
	count, size, flat, err := ParseDamageFormula(damageFormula)
	if err != nil {
		return CastSpellForecast{}, err
	}
	avg := averageDamage(count, size, flat)

	expectedMultiplier := round6(
		0*odds.CriticalSuccess + 0.5*odds.Success + 1*odds.Failure + 2*odds.CriticalFailure,
	)
	return CastSpellForecast{
		Odds:               odds,
		ExpectedMultiplier: expectedMultiplier,
		ExpectedDamage:     round6(avg * expectedMultiplier),
	}, nil
}

// AfflictionForecast previews one save-check tick of an affliction stage
// track (§4.6 tickAffliction): the save odds, and the expected per-round
// stage delta (crit-success -2, success -1, failure +1, crit-failure +2).
// The delta is not clamped: the current stage and max_stage are not inputs.
type AfflictionForecast struct {
	Odds               DegreeOdds `json:"odds"`
	ExpectedStageDelta float64    `json:"expected_stage_delta"`
}

// ForecastAffliction previews the stage-track save at the given modifier/dc.
func ForecastAffliction(saveModifier, dc int) AfflictionForecast {
	odds := ComputeDegreeOdds(saveModifier, dc)
	delta := round6(
		-2*odds.CriticalSuccess - 1*odds.Success + 1*odds.Failure + 2*odds.CriticalFailure,
	)
	return AfflictionForecast{Odds: odds, ExpectedStageDelta: delta}
}
