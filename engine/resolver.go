// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"sort"

	"github.com/00d/skirmish/grid"
)

// AreaShape is the shape a modeled effect's area event describes.
type AreaShape string

const (
	AreaLine          AreaShape = "line"
	AreaCone          AreaShape = "cone"
	AreaBurst         AreaShape = "burst"
	AreaRadius        AreaShape = "radius"
	AreaWithinRadius  AreaShape = "within_radius"
	AreaEmanation     AreaShape = "emanation"
	AreaRadiusMiles   AreaShape = "radius_miles"
)

// ConditionGrant is one condition an affliction stage or apply_condition
// event grants.
type ConditionGrant struct {
	Name     string
	Severity int
	Persists bool
}

// AfflictionStageConfig is one stage of a staged affliction: the duration
// (already converted to rounds), the conditions it grants, and an optional
// damage roll.
type AfflictionStageConfig struct {
	DurationRounds int
	Conditions     []ConditionGrant
	DamageFormula  string
	DamageType     string
}

// ModeledEffectEvent is one entry in a hazard catalog source's effects list
// (§6 "Modeled-effect catalog"): save_check, damage, affliction, apply_condition,
// area, instant_death, special_lethality, transform, teleport.
type ModeledEffectEvent struct {
	Kind string

	// save_check
	SaveType SaveType
	DC       int

	// damage
	Formula    string
	DamageType string
	Bypass     []string

	// apply_condition
	ConditionName     string
	ConditionSeverity int

	// area
	AreaShape    AreaShape
	AreaSizeFeet int

	// affliction
	Stages  []AfflictionStageConfig
	MaxStage int

	// transform / teleport
	Special string
}

// TargetSelectionInput describes what the resolver needs to pick targets
// for a modeled-effect application (§4.5).
type TargetSelectionInput struct {
	ActorID        string
	ExplicitTarget string
	CenterX        int
	CenterY        int
	HasCenter      bool
}

// SelectModeledEffectTargets implements §4.5's target-selection rules. The
// area kind is inferred from the first "area" event in effects, if any.
func SelectModeledEffectTargets(state *BattleState, effects []ModeledEffectEvent, input TargetSelectionInput) []string {
	actor := state.Units[input.ActorID]
	if actor == nil {
		return nil
	}

	var area *ModeledEffectEvent
	for i := range effects {
		if effects[i].Kind == "area" {
			area = &effects[i]
			break
		}
	}

	if area == nil {
		if input.ExplicitTarget != "" {
			target := state.Units[input.ExplicitTarget]
			if target != nil && target.Alive() && grid.HasLineOfEffect(state.Map.Grid, actor.Position, target.Position) {
				return []string{input.ExplicitTarget}
			}
			return nil
		}
		var out []string
		for _, id := range state.SortedAliveUnitIDs() {
			if id == input.ActorID {
				continue
			}
			if grid.HasLineOfEffect(state.Map.Grid, actor.Position, state.Units[id].Position) {
				out = append(out, id)
			}
		}
		return out
	}

	center := grid.Position{X: input.CenterX, Y: input.CenterY}
	if !input.HasCenter {
		center = actor.Position
	}
	lengthTiles := grid.FeetToTiles(area.AreaSizeFeet)

	switch area.AreaShape {
	case AreaLine:
		return unitsAlongLine(state, actor.Position, center, lengthTiles)
	case AreaCone:
		tiles := state.Map.Grid.ConeTemplate(actor.Position, center, lengthTiles)
		return unitsInTilesWithLoE(state, actor.Position, tiles)
	default: // burst, radius, within_radius, emanation, radius_miles
		tiles := state.Map.Grid.RadiusTemplate(center, lengthTiles)
		return unitsInTilesWithLoE(state, center, tiles)
	}
}

// unitsAlongLine walks the line from actor through center, excluding the
// actor's own origin tile, and stops at the first blocked tile.
func unitsAlongLine(state *BattleState, origin, through grid.Position, lengthTiles int) []string {
	full := grid.Line(origin, through)
	var tiles []grid.Position
	for i, pos := range full {
		if i == 0 {
			continue // exclude actor origin
		}
		if state.Map.IsBlocked(pos) {
			break
		}
		tiles = append(tiles, pos)
		if len(tiles) >= lengthTiles {
			break
		}
	}
	return unitsInTiles(state, tiles)
}

func unitsInTiles(state *BattleState, tiles []grid.Position) []string {
	tileSet := make(map[grid.Position]bool, len(tiles))
	for _, t := range tiles {
		tileSet[t] = true
	}
	var out []string
	for _, id := range state.SortedAliveUnitIDs() {
		if tileSet[state.Units[id].Position] {
			out = append(out, id)
		}
	}
	return out
}

func unitsInTilesWithLoE(state *BattleState, from grid.Position, tiles []grid.Position) []string {
	tileSet := make(map[grid.Position]bool, len(tiles))
	for _, t := range tiles {
		tileSet[t] = true
	}
	var out []string
	for _, id := range state.SortedAliveUnitIDs() {
		unit := state.Units[id]
		if tileSet[unit.Position] && grid.HasLineOfEffect(state.Map.Grid, from, unit.Position) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ApplyModeledEffectsToTarget runs the §4.5 per-target resolution order
// against a single target and returns the per-target result payload plus
// any lifecycle events the apply step itself produced (e.g. effect_apply
// for a freshly created affliction).
func ApplyModeledEffectsToTarget(state *BattleState, rng *RNG, actorID, targetID string, effects []ModeledEffectEvent) (map[string]interface{}, []Event, error) {
	target := state.Units[targetID]
	if target == nil || !target.Alive() {
		return nil, nil, nil
	}

	result := map[string]interface{}{"target": targetID}
	var events []Event

	var affliction *ModeledEffectEvent
	var saveCheck *ModeledEffectEvent
	var damage *ModeledEffectEvent
	var conditions []ModeledEffectEvent
	var instantDeath bool
	var specials []string

	for i := range effects {
		switch effects[i].Kind {
		case "affliction":
			if affliction == nil {
				affliction = &effects[i]
			}
		case "save_check":
			if saveCheck == nil {
				saveCheck = &effects[i]
			}
		case "damage":
			if damage == nil {
				damage = &effects[i]
			}
		case "apply_condition":
			conditions = append(conditions, effects[i])
		case "instant_death", "special_lethality":
			instantDeath = true
		case "transform", "teleport":
			specials = append(specials, effects[i].Kind+":"+effects[i].Special)
		}
	}

	savePerformed := false
	degree := DegreeFailure

	switch {
	case affliction != nil:
		if affliction.DC > 0 {
			save, err := ResolveSave(rng, target, affliction.SaveType, affliction.DC)
			if err != nil {
				return nil, nil, err
			}
			savePerformed = true
			degree = save.Degree
			result["save_degree"] = string(degree)
		}
		contracted := !savePerformed || (degree != DegreeCriticalSuccess && degree != DegreeSuccess)
		result["contracted"] = contracted
		if contracted {
			effectID := state.nextEffectID()
			stage := 1
			if savePerformed && degree == DegreeCriticalFailure && affliction.MaxStage >= 2 {
				stage = 2
			}
			durationRounds := 0
			var persistentConditions []string
			if stage-1 < len(affliction.Stages) {
				durationRounds = affliction.Stages[stage-1].DurationRounds
				for _, c := range affliction.Stages[stage-1].Conditions {
					if c.Persists {
						persistentConditions = append(persistentConditions, c.Name)
					}
				}
			}
			payload := map[string]interface{}{
				"save_type":              string(affliction.SaveType),
				"dc":                     affliction.DC,
				"current_stage":          stage,
				"max_stage":              affliction.MaxStage,
				"stages":                 affliction.Stages,
				"stage_rounds_remaining": durationRounds,
				"persistent_conditions":  persistentConditions,
			}
			effect := &Effect{
				EffectID:     effectID,
				Kind:         "affliction",
				SourceUnitID: actorID,
				TargetUnitID: targetID,
				Payload:      payload,
				TickTiming:   "turn_end",
			}
			state.Effects[effectID] = effect
			applyEvents, err := onApplyAffliction(state, rng, effect)
			if err != nil {
				return nil, nil, err
			}
			events = append(events, applyEvents...)
			result["effect_id"] = effectID
		}
		return result, events, nil

	case saveCheck != nil:
		save, err := ResolveSave(rng, target, saveCheck.SaveType, saveCheck.DC)
		if err != nil {
			return nil, nil, err
		}
		savePerformed = true
		degree = save.Degree
		result["save_degree"] = string(degree)
		if damage != nil {
			if err := applyModeledDamage(state, rng, target, damage, BasicSaveMultiplier(degree), result); err != nil {
				return nil, nil, err
			}
		}

	case damage != nil:
		if err := applyModeledDamage(state, rng, target, damage, 1.0, result); err != nil {
			return nil, nil, err
		}
	}

	if !savePerformed || (degree != DegreeCriticalSuccess && degree != DegreeSuccess) {
		for _, c := range conditions {
			applied := ApplyCondition(target, c.ConditionName, c.ConditionSeverity)
			result["condition_"+NormalizeName(c.ConditionName)] = applied
		}
		if instantDeath {
			target.HP = 0
			ApplyCondition(target, "unconscious", 1)
			result["instant_death"] = true
		}
	}

	if len(specials) > 0 {
		result["special_flags"] = specials
	}

	return result, events, nil
}

func applyModeledDamage(state *BattleState, rng *RNG, target *Unit, damage *ModeledEffectEvent, multiplier float64, result map[string]interface{}) error {
	roll, err := RollDamage(rng, damage.Formula, multiplier)
	if err != nil {
		return err
	}
	mitigation := Mitigate(target, roll.Total, damage.DamageType, damage.Bypass)
	app := ApplyDamageToPool(target, mitigation.AppliedTotal)
	result["raw_damage"] = roll.Total
	result["applied_damage"] = mitigation.AppliedTotal
	result["hp_loss"] = app.HPLoss
	result["immune"] = mitigation.Immune
	return nil
}
