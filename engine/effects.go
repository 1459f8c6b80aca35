// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

// EffectKind enumerates the long-lived effect kinds the lifecycle knows how
// to tick.
const (
	EffectKindCondition        = "condition"
	EffectKindPersistentDamage = "persistent_damage"
	EffectKindAffliction       = "affliction"
	EffectKindTempHP           = "temp_hp"
)

// TickPhase is when in the turn an effect's tick_timing fires.
type TickPhase string

const (
	PhaseTurnStart TickPhase = "turn_start"
	PhaseTurnEnd   TickPhase = "turn_end"
)

// payloadString/payloadInt/payloadBool read a typed value out
// of an effect's opaque payload map, defaulting on absence or type mismatch.
func payloadString(p map[string]interface{}, key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

func payloadInt(p map[string]interface{}, key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func payloadBool(p map[string]interface{}, key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// onApplyEffect runs the on_apply step for a freshly created effect (§4.6),
// returning any lifecycle events it produced (e.g. effect_apply).
func onApplyEffect(state *BattleState, rng *RNG, effect *Effect) ([]Event, error) {
	switch effect.Kind {
	case EffectKindCondition:
		return onApplyCondition(state, effect), nil
	case EffectKindTempHP:
		return onApplyTempHP(state, effect), nil
	case EffectKindAffliction:
		return onApplyAffliction(state, rng, effect)
	case EffectKindPersistentDamage:
		// persistent_damage has no on_apply effect of its own; it first
		// acts on its tick_timing.
		return nil, nil
	default:
		return nil, nil
	}
}

func onApplyCondition(state *BattleState, effect *Effect) []Event {
	target := state.Units[effect.TargetUnitID]
	if target == nil {
		return nil
	}
	name := payloadString(effect.Payload, "name", "")
	severity := payloadInt(effect.Payload, "severity", 1)
	applied := ApplyCondition(target, name, severity)
	return []Event{state.EmitEvent("effect_apply", map[string]interface{}{
		"effect_id": effect.EffectID,
		"kind":      effect.Kind,
		"target":    effect.TargetUnitID,
		"applied":   applied,
	})}
}

func onApplyTempHP(state *BattleState, effect *Effect) []Event {
	target := state.Units[effect.TargetUnitID]
	if target == nil {
		return nil
	}
	amount := payloadInt(effect.Payload, "amount", 0)
	source := payloadString(effect.Payload, "source", effect.SourceUnitID)
	stackMode := TempHPStackMode(payloadString(effect.Payload, "stack_mode", string(TempHPStackMax)))
	crossMode := TempHPCrossSourceMode(payloadString(effect.Payload, "cross_source", string(CrossSourceHigherOnly)))

	applyResult := ApplyTempHP(target, amount, source, effect.EffectID, stackMode, crossMode)
	return []Event{state.EmitEvent("effect_apply", map[string]interface{}{
		"effect_id": effect.EffectID,
		"kind":      effect.Kind,
		"target":    effect.TargetUnitID,
		"applied":   applyResult.Applied,
		"reason":    applyResult.Reason,
		"temp_hp":   target.TempHP,
	})}
}

func onApplyAffliction(state *BattleState, rng *RNG, effect *Effect) ([]Event, error) {
	target := state.Units[effect.TargetUnitID]
	if target == nil {
		return nil, nil
	}
	stage := payloadInt(effect.Payload, "current_stage", 1)
	return applyAfflictionStage(state, rng, target, effect, stage)
}

// applyAfflictionStage applies a stage's damage and conditions and installs
// its duration, tracking which non-persistent conditions this affliction now
// owns so a later stage change or expiry can clear exactly those (§4.6:
// "on apply, run stage 1 (damage + conditions + duration)").
func applyAfflictionStage(state *BattleState, rng *RNG, target *Unit, effect *Effect, stage int) ([]Event, error) {
	stages, _ := effect.Payload["stages"].([]AfflictionStageConfig)
	if stage < 1 || stage > len(stages) {
		return nil, nil
	}
	cfg := stages[stage-1]

	var stillOwned []string
	for _, c := range cfg.Conditions {
		name := NormalizeName(c.Name)
		ApplyCondition(target, name, c.Severity)
		if !c.Persists {
			stillOwned = append(stillOwned, name)
		}
	}
	effect.Payload["owned_conditions"] = stillOwned
	effect.Payload["current_stage"] = stage
	effect.Payload["stage_rounds_remaining"] = cfg.DurationRounds

	payload := map[string]interface{}{
		"effect_id": effect.EffectID,
		"kind":      effect.Kind,
		"target":    effect.TargetUnitID,
		"stage":     stage,
	}

	if cfg.DamageFormula != "" {
		roll, err := RollDamage(rng, cfg.DamageFormula, 1.0)
		if err != nil {
			return nil, err
		}
		mitigation := Mitigate(target, roll.Total, cfg.DamageType, nil)
		app := ApplyDamageToPool(target, mitigation.AppliedTotal)
		payload["damage_formula"] = cfg.DamageFormula
		payload["damage_type"] = cfg.DamageType
		payload["raw_damage"] = roll.Total
		payload["applied_damage"] = mitigation.AppliedTotal
		payload["hp_loss"] = app.HPLoss
	}

	return []Event{state.EmitEvent("effect_apply", payload)}, nil
}

// ProcessTiming runs the effect-lifecycle tick loop (§4.6) for the active
// unit: every effect on that unit whose tick_timing matches phase ticks,
// then (for turn_end only) every effect's duration_rounds decrements. In
// either phase, effects flagged to expire (duration reached zero, or a tick
// ended them) then run on_expire and are removed.
func ProcessTiming(state *BattleState, rng *RNG, activeUnitID string, phase TickPhase) ([]Event, error) {
	var events []Event

	for _, effectID := range state.SortedEffectIDs() {
		effect := state.Effects[effectID]
		if effect == nil || effect.TargetUnitID != activeUnitID {
			continue
		}
		if TickPhase(effect.TickTiming) != phase {
			continue
		}
		tickEvents, err := tickEffect(state, rng, effect)
		if err != nil {
			return events, err
		}
		events = append(events, tickEvents...)
	}

	if phase == PhaseTurnEnd {
		for _, effectID := range state.SortedEffectIDs() {
			effect := state.Effects[effectID]
			if effect == nil || effect.TargetUnitID != activeUnitID {
				continue
			}
			if effect.DurationRounds != nil {
				*effect.DurationRounds--
				events = append(events, state.EmitEvent("effect_duration", map[string]interface{}{
					"effect_id":        effect.EffectID,
					"rounds_remaining": *effect.DurationRounds,
				}))
				if *effect.DurationRounds <= 0 {
					effect.expireNow = true
				}
			}
		}
	}

	for _, effectID := range state.SortedEffectIDs() {
		effect := state.Effects[effectID]
		if effect == nil || effect.TargetUnitID != activeUnitID || !effect.expireNow {
			continue
		}
		expireEvents := expireEffect(state, effect)
		events = append(events, expireEvents...)
		delete(state.Effects, effectID)
	}

	return events, nil
}

func tickEffect(state *BattleState, rng *RNG, effect *Effect) ([]Event, error) {
	target := state.Units[effect.TargetUnitID]
	if target == nil || !target.Alive() {
		return nil, nil
	}

	switch effect.Kind {
	case EffectKindPersistentDamage:
		return tickPersistentDamage(state, rng, target, effect)
	case EffectKindAffliction:
		return tickAffliction(state, rng, target, effect)
	default:
		return nil, nil
	}
}

func tickPersistentDamage(state *BattleState, rng *RNG, target *Unit, effect *Effect) ([]Event, error) {
	formula := payloadString(effect.Payload, "formula", "0")
	damageType := payloadString(effect.Payload, "damage_type", "")

	roll, err := RollDamage(rng, formula, 1.0)
	if err != nil {
		return nil, err
	}
	mitigation := Mitigate(target, roll.Total, damageType, nil)
	app := ApplyDamageToPool(target, mitigation.AppliedTotal)

	payload := map[string]interface{}{
		"effect_id":   effect.EffectID,
		"kind":        effect.Kind,
		"target":      effect.TargetUnitID,
		"raw_damage":  roll.Total,
		"applied":     mitigation.AppliedTotal,
		"hp_loss":     app.HPLoss,
	}
	events := []Event{state.EmitEvent("effect_tick", payload)}

	recoveryDC := payloadInt(effect.Payload, "recovery_dc", 15)
	recoveryModifier := payloadInt(effect.Payload, "recovery_modifier", 0)
	die, err := rng.D20()
	if err != nil {
		return events, err
	}
	degree := ResolveDegree(die, recoveryModifier, recoveryDC)
	if degree == DegreeSuccess || degree == DegreeCriticalSuccess {
		effect.expireNow = true
	}
	events = append(events, state.EmitEvent("effect_recovery_check", map[string]interface{}{
		"effect_id": effect.EffectID,
		"degree":    string(degree),
	}))
	return events, nil
}

func tickAffliction(state *BattleState, rng *RNG, target *Unit, effect *Effect) ([]Event, error) {
	remaining := payloadInt(effect.Payload, "stage_rounds_remaining", 0)
	if remaining > 1 {
		effect.Payload["stage_rounds_remaining"] = remaining - 1
		return []Event{state.EmitEvent("effect_tick", map[string]interface{}{
			"effect_id": effect.EffectID,
			"waiting":   true,
		})}, nil
	}

	saveType := SaveType(payloadString(effect.Payload, "save_type", string(SaveFortitude)))
	dc := payloadInt(effect.Payload, "dc", 10)
	save, err := ResolveSave(rng, target, saveType, dc)
	if err != nil {
		return nil, err
	}

	maxStage := payloadInt(effect.Payload, "max_stage", 1)
	stage := payloadInt(effect.Payload, "current_stage", 1)
	delta := 0
	switch save.Degree {
	case DegreeCriticalSuccess:
		delta = -2
	case DegreeSuccess:
		delta = -1
	case DegreeFailure:
		delta = 1
	case DegreeCriticalFailure:
		delta = 2
	}
	stage += delta
	if stage < 0 {
		stage = 0
	}
	if stage > maxStage {
		stage = maxStage
	}

	events := []Event{state.EmitEvent("effect_stage_save", map[string]interface{}{
		"effect_id": effect.EffectID,
		"degree":    string(save.Degree),
		"new_stage": stage,
	})}

	if stage == 0 {
		effect.expireNow = true
		return events, nil
	}

	if stage != payloadInt(effect.Payload, "current_stage", 1) {
		clearOwnedConditions(target, effect)
	}
	stageEvents, err := applyAfflictionStage(state, rng, target, effect, stage)
	if err != nil {
		return events, err
	}
	return append(events, stageEvents...), nil
}

func clearOwnedConditions(target *Unit, effect *Effect) {
	owned, _ := effect.Payload["owned_conditions"].([]string)
	for _, name := range owned {
		ClearCondition(target, name)
	}
}

func expireEffect(state *BattleState, effect *Effect) []Event {
	target := state.Units[effect.TargetUnitID]
	payload := map[string]interface{}{
		"effect_id": effect.EffectID,
		"kind":      effect.Kind,
		"target":    effect.TargetUnitID,
	}
	if target != nil {
		switch effect.Kind {
		case EffectKindCondition:
			if payloadBool(effect.Payload, "clear_on_expire", true) {
				ClearCondition(target, payloadString(effect.Payload, "name", ""))
			}
		case EffectKindAffliction:
			clearOwnedConditions(target, effect)
		case EffectKindTempHP:
			if target.TempHPOwnerEffectID == effect.EffectID && payloadBool(effect.Payload, "remove_on_expire", true) {
				ClearTempHP(target)
			}
		}
	}
	return []Event{state.EmitEvent("effect_expire", payload)}
}
