// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

// DamageApplication records how a single incoming amount of damage split
// across temp-HP absorption and the unit's real hit-point pool.
type DamageApplication struct {
	Incoming       int
	AbsorbedByTemp int
	HPLoss         int
	OldHP          int
	NewHP          int
	OldTempHP      int
	NewTempHP      int
	WentUnconscious bool
}

// ApplyDamageToPool applies incoming (already-mitigated) damage to a unit:
// temp_hp absorbs first, the remainder reduces hp. Zeroing temp_hp clears
// both its source fields. Hitting hp=0 auto-applies the unconscious
// condition.
func ApplyDamageToPool(u *Unit, incoming int) DamageApplication {
	app := DamageApplication{Incoming: incoming, OldHP: u.HP, OldTempHP: u.TempHP}
	if incoming <= 0 {
		app.NewHP, app.NewTempHP = u.HP, u.TempHP
		return app
	}

	absorbed := incoming
	if absorbed > u.TempHP {
		absorbed = u.TempHP
	}
	u.TempHP -= absorbed
	if u.TempHP == 0 {
		u.TempHPSource = ""
		u.TempHPOwnerEffectID = ""
	}

	remaining := incoming - absorbed
	u.HP -= remaining
	if u.HP < 0 {
		u.HP = 0
	}

	app.AbsorbedByTemp = absorbed
	app.HPLoss = app.OldHP - u.HP
	app.NewHP = u.HP
	app.NewTempHP = u.TempHP

	if u.HP == 0 {
		if ApplyCondition(u, "unconscious", 1) {
			app.WentUnconscious = true
		}
	}
	return app
}

// ApplyCondition sets name (normalized) to the max of its current and new
// severity, unless the unit is immune to it. Returns true if the condition
// was actually applied (not blocked by immunity).
func ApplyCondition(u *Unit, name string, severity int) bool {
	normalized := NormalizeName(name)
	if u.isImmuneToAny([]string{normalized}, "all_conditions") {
		return false
	}
	if u.Conditions == nil {
		u.Conditions = make(map[string]int)
	}
	if existing, ok := u.Conditions[normalized]; !ok || severity > existing {
		u.Conditions[normalized] = severity
	}
	return true
}

// ClearCondition removes name (normalized) from the unit's condition map.
func ClearCondition(u *Unit, name string) {
	delete(u.Conditions, NormalizeName(name))
}

// IsImmuneToCondition reports whether the unit is immune to the named
// condition, honoring the all_conditions wildcard.
func IsImmuneToCondition(u *Unit, name string) bool {
	return u.isImmuneToAny([]string{NormalizeName(name)}, "all_conditions")
}

// TempHPStackMode controls how a same-source temp-HP reapplication combines
// with the existing pool.
type TempHPStackMode string

const (
	TempHPStackMax TempHPStackMode = "max"
	TempHPStackAdd TempHPStackMode = "add"
)

// TempHPCrossSourceMode controls how a different-source temp-HP grant
// interacts with an existing pool from another source.
type TempHPCrossSourceMode string

const (
	CrossSourceHigherOnly TempHPCrossSourceMode = "higher_only"
	CrossSourceReplace    TempHPCrossSourceMode = "replace"
	CrossSourceIgnore     TempHPCrossSourceMode = "ignore"
)

// TempHPApplyResult records the decision ApplyTempHP made, for event payload
// construction (scenario S3's cross_source_ignored/lower_or_equal_than_current).
type TempHPApplyResult struct {
	Applied bool
	Reason  string
}

// ApplyTempHP applies an incoming temp-HP grant of `amount` from `source`,
// owned by effectID, using stackMode for same-source reapplication and
// crossSourceMode for a different source overlapping an existing pool.
func ApplyTempHP(u *Unit, amount int, source, effectID string, stackMode TempHPStackMode, crossSourceMode TempHPCrossSourceMode) TempHPApplyResult {
	if u.TempHP == 0 || u.TempHPSource == "" {
		u.TempHP = amount
		u.TempHPSource = source
		u.TempHPOwnerEffectID = effectID
		return TempHPApplyResult{Applied: true, Reason: "initial_grant"}
	}

	if u.TempHPSource == source {
		switch stackMode {
		case TempHPStackAdd:
			u.TempHP += amount
		default: // max
			if amount > u.TempHP {
				u.TempHP = amount
			}
		}
		u.TempHPOwnerEffectID = effectID
		return TempHPApplyResult{Applied: true, Reason: "same_source_" + string(stackMode)}
	}

	switch crossSourceMode {
	case CrossSourceIgnore:
		return TempHPApplyResult{Applied: false, Reason: "cross_source_ignored"}
	case CrossSourceReplace:
		u.TempHP = amount
		u.TempHPSource = source
		u.TempHPOwnerEffectID = effectID
		return TempHPApplyResult{Applied: true, Reason: "cross_source_replaced"}
	default: // higher_only
		if amount > u.TempHP {
			u.TempHP = amount
			u.TempHPSource = source
			u.TempHPOwnerEffectID = effectID
			return TempHPApplyResult{Applied: true, Reason: "cross_source_replaced_higher"}
		}
		return TempHPApplyResult{Applied: false, Reason: "cross_source_ignored/lower_or_equal_than_current"}
	}
}

// ClearTempHP zeroes the temp-HP pool and both source fields, as would
// happen when an effect owning the pool expires with remove_on_expire set.
func ClearTempHP(u *Unit) {
	u.TempHP = 0
	u.TempHPSource = ""
	u.TempHPOwnerEffectID = ""
}
