// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/00d/skirmish/rpgerr"
)

// diceFormulaPattern matches "NdM" or "NdM+K" (K may be negative). A bare
// integer (flat damage, e.g. "10" or "-3") is handled separately.
var diceFormulaPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// DamageRoll is the result of rolling a damage formula: the individual dice
// results (empty for a flat formula), the flat modifier, and the clamped
// total.
type DamageRoll struct {
	Rolls    []int
	Modifier int
	Total    int
}

// RollDamage parses and rolls a damage formula ("2d6+3", "1d8", "10", "-5")
// against the RNG, then scales the rolled (dice + flat) total by multiplier
// and clamps at 0. multiplier is 2 for a critical strike, 1 for a normal
// hit, or a basic-save fraction (0, 0.5, 1, 2).
func RollDamage(rng *RNG, formula string, multiplier float64) (DamageRoll, error) {
	count, size, flat, err := ParseDamageFormula(formula)
	if err != nil {
		return DamageRoll{}, err
	}

	var rolls []int
	if size > 0 && count > 0 {
		rolls, err = rng.RollN(count, size)
		if err != nil {
			return DamageRoll{}, err
		}
	}

	diceTotal := 0
	for _, r := range rolls {
		diceTotal += r
	}

	total := int(float64(diceTotal+flat) * multiplier)
	if total < 0 {
		total = 0
	}

	return DamageRoll{Rolls: rolls, Modifier: flat, Total: total}, nil
}

// ParseDamageFormula parses "NdM", "NdM+K", or a bare signed integer. For a
// dice formula it returns (count, size, flat, nil). For a flat formula it
// returns (0, 0, value, nil).
func ParseDamageFormula(formula string) (count, size, flat int, err error) {
	if m := diceFormulaPattern.FindStringSubmatch(formula); m != nil {
		count, _ = strconv.Atoi(m[1])
		size, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			flat, _ = strconv.Atoi(m[3])
		}
		return count, size, flat, nil
	}
	if v, convErr := strconv.Atoi(formula); convErr == nil {
		return 0, 0, v, nil
	}
	return 0, 0, 0, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("invalid damage formula %q", formula))
}

// damageTypeAliases maps informal/alternate spellings onto this engine's
// canonical damage type names.
var damageTypeAliases = map[string]string{
	"lightning": "electricity",
	"pierce":    "piercing",
	"slash":     "slashing",
	"bludgeon":  "bludgeoning",
}

var physicalTypes = map[string]bool{"bludgeoning": true, "piercing": true, "slashing": true}
var energyTypes = map[string]bool{"acid": true, "cold": true, "electricity": true, "fire": true, "force": true, "sonic": true}

// NormalizeDamageType canonicalizes a damage type string: lowercase, aliased.
func NormalizeDamageType(damageType string) string {
	n := NormalizeName(damageType)
	if alias, ok := damageTypeAliases[n]; ok {
		return alias
	}
	return n
}

// DamageTags returns the normalized type plus its group tag(s):
// "physical" for bludgeoning/piercing/slashing, "energy" for
// acid/cold/electricity/fire/force/sonic.
func DamageTags(damageType string) []string {
	normalized := NormalizeDamageType(damageType)
	tags := []string{normalized}
	if physicalTypes[normalized] {
		tags = append(tags, "physical")
	}
	if energyTypes[normalized] {
		tags = append(tags, "energy")
	}
	return tags
}

// MitigationResult is the outcome of applying a unit's resistances,
// weaknesses, and immunities to a raw damage amount.
type MitigationResult struct {
	DamageType        string
	Tags              []string
	Immune            bool
	ResistanceApplied int
	WeaknessApplied   int
	AppliedTotal      int
}

// Mitigate applies §4.2's mitigation algorithm: bypass tags remove matching
// resistance/immunity entries (never weaknesses) before the immunity and
// highest-matching-resistance/weakness checks run.
func Mitigate(target *Unit, raw int, damageType string, bypassTags []string) MitigationResult {
	tags := DamageTags(damageType)
	result := MitigationResult{DamageType: NormalizeDamageType(damageType), Tags: tags}

	if raw == 0 {
		return result
	}

	bypass := make(map[string]bool, len(bypassTags))
	for _, t := range bypassTags {
		bypass[NormalizeName(t)] = true
	}

	effectiveImmunities := make(map[string]bool, len(target.Immunities))
	for k, v := range target.Immunities {
		if v && !bypass[k] {
			effectiveImmunities[k] = true
		}
	}
	effectiveResistances := make(map[string]int, len(target.Resistances))
	for k, v := range target.Resistances {
		if !bypass[k] {
			effectiveResistances[k] = v
		}
	}

	if effectiveImmunities["all"] {
		result.Immune = true
		return result
	}
	for _, t := range tags {
		if effectiveImmunities[t] {
			result.Immune = true
			return result
		}
	}

	maxResistance := 0
	for _, t := range tags {
		if v := effectiveResistances[t]; v > maxResistance {
			maxResistance = v
		}
	}
	maxWeakness := 0
	for _, t := range tags {
		if v := target.Weaknesses[t]; v > maxWeakness {
			maxWeakness = v
		}
	}

	result.ResistanceApplied = maxResistance
	result.WeaknessApplied = maxWeakness

	applied := raw - maxResistance + maxWeakness
	if applied < 0 {
		applied = 0
	}
	result.AppliedTotal = applied
	return result
}
