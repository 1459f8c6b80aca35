// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"sort"

	"github.com/00d/skirmish/grid"
)

// ApplyCommand is the reducer's single entry point: it enforces
// preconditions, mutates a clone of state, and returns the new state plus
// the events the command produced. On precondition failure the original
// state is returned unchanged alongside the error; the driver discards the
// attempted next state (§5, §7).
func ApplyCommand(state *BattleState, cmd Command, rng *RNG) (*BattleState, []Event, error) {
	actor, ok := state.Units[cmd.Actor]
	if !ok {
		return state, nil, actorUnknown(cmd.Actor)
	}
	if !actor.Alive() {
		return state, nil, actorNotAlive(cmd.Actor)
	}
	if cmd.Actor != state.ActiveUnitID() {
		return state, nil, notActiveUnit(cmd.Actor)
	}

	next := state.Clone()
	var events []Event

	var err error
	switch cmd.EffectiveType() {
	case CommandMove:
		err = applyMove(next, cmd, &events)
	case CommandStrike:
		err = applyStrike(next, rng, cmd, &events)
	case CommandEndTurn:
		err = applyEndTurn(next, rng, &events)
	case CommandSaveDamage:
		err = applySaveDamage(next, rng, cmd, &events)
	case CommandAreaSaveDamage:
		err = applyAreaSaveDamage(next, rng, cmd, &events)
	case CommandApplyEffect:
		err = applyApplyEffect(next, rng, cmd, &events)
	case CommandTriggerHazardSource:
		err = applyTriggerHazardSource(next, rng, cmd, &events)
	case CommandRunHazardRoutine:
		err = applyRunHazardRoutine(next, rng, cmd, &events)
	case CommandSetFlag:
		err = applySetFlag(next, cmd, &events)
	case CommandSpawnUnit:
		err = applySpawnUnit(next, cmd, &events)
	default:
		err = unsupportedCommand(cmd.EffectiveType())
	}

	if err != nil {
		return state, nil, err
	}
	return next, events, nil
}

func isOccupied(state *BattleState, pos grid.Position) bool {
	for _, id := range state.SortedAliveUnitIDs() {
		if state.Units[id].Position == pos {
			return true
		}
	}
	return false
}

func canStepTo(state *BattleState, unit *Unit, pos grid.Position) bool {
	return state.Map.InBounds(pos) &&
		!state.Map.IsBlocked(pos) &&
		!isOccupied(state, pos) &&
		grid.Adjacent(unit.Position, pos)
}

func applyMove(state *BattleState, cmd Command, events *[]Event) error {
	actor := state.Units[cmd.Actor]
	if actor.ActionsRemaining <= 0 {
		return noActionsRemaining(cmd.Actor)
	}
	dest := grid.Position{X: cmd.X, Y: cmd.Y}
	if !canStepTo(state, actor, dest) {
		return illegalMove(cmd.Actor, cmd.X, cmd.Y)
	}
	actor.Position = dest
	actor.ActionsRemaining--
	state.emit(events, "move", map[string]interface{}{
		"actor": cmd.Actor, "x": cmd.X, "y": cmd.Y,
	})
	return nil
}

func applyStrike(state *BattleState, rng *RNG, cmd Command, events *[]Event) error {
	actor := state.Units[cmd.Actor]
	if actor.ActionsRemaining <= 0 {
		return noActionsRemaining(cmd.Actor)
	}
	target, ok := state.Units[cmd.Target]
	if !ok {
		return targetUnknown(cmd.Target)
	}
	if !target.Alive() {
		return targetNotAlive(cmd.Target)
	}

	grade := grid.Cover(state.Map.Grid, actor.Position, target.Position)
	if grade == grid.CoverBlocked {
		return noLineOfSight(cmd.Actor, cmd.Target)
	}
	coverBonus := grid.CoverBonus(grade)
	baseDC := target.AC
	effectiveDC := baseDC + coverBonus

	die, err := rng.D20()
	if err != nil {
		return err
	}
	degree := ResolveDegree(die, actor.AttackMod, effectiveDC)

	multiplier := 0.0
	switch degree {
	case DegreeCriticalSuccess:
		multiplier = 2
	case DegreeSuccess:
		multiplier = 1
	}

	payload := map[string]interface{}{
		"actor":        cmd.Actor,
		"target":       cmd.Target,
		"die":          die,
		"mod":          actor.AttackMod,
		"total":        die + actor.AttackMod,
		"base_dc":      baseDC,
		"cover_grade":  string(grade),
		"cover_bonus":  coverBonus,
		"dc":           effectiveDC,
		"degree":       string(degree),
	}

	if multiplier > 0 {
		roll, err := RollDamage(rng, actor.Damage, multiplier)
		if err != nil {
			return err
		}
		mitigation := Mitigate(target, roll.Total, actor.AttackDamageType, actor.AttackDamageBypass)
		app := ApplyDamageToPool(target, mitigation.AppliedTotal)
		payload["raw_damage"] = roll.Total
		payload["applied_damage"] = mitigation.AppliedTotal
		payload["hp_loss"] = app.HPLoss
		payload["immune"] = mitigation.Immune
		payload["multiplier"] = multiplier
	}

	actor.ActionsRemaining--
	state.emit(events, "strike", payload)
	return nil
}

func applyEndTurn(state *BattleState, rng *RNG, events *[]Event) error {
	activeID := state.ActiveUnitID()
	state.emit(events, "end_turn", map[string]interface{}{"actor": activeID})

	tickEvents, err := ProcessTiming(state, rng, activeID, PhaseTurnEnd)
	if err != nil {
		return err
	}
	*events = append(*events, tickEvents...)

	state.AdvanceTurn()
	newActiveID := state.ActiveUnitID()
	state.emit(events, "turn_start", map[string]interface{}{"actor": newActiveID})

	startEvents, err := ProcessTiming(state, rng, newActiveID, PhaseTurnStart)
	if err != nil {
		return err
	}
	*events = append(*events, startEvents...)
	return nil
}

func applySaveDamage(state *BattleState, rng *RNG, cmd Command, events *[]Event) error {
	actor := state.Units[cmd.Actor]
	if actor.ActionsRemaining <= 0 {
		return noActionsRemaining(cmd.Actor)
	}
	target, ok := state.Units[cmd.Target]
	if !ok {
		return targetUnknown(cmd.Target)
	}
	if !target.Alive() {
		return targetNotAlive(cmd.Target)
	}
	if cmd.Mode != "basic" {
		return unsupportedCommand(cmd.Type)
	}

	save, err := ResolveSave(rng, target, cmd.SaveType, cmd.DC)
	if err != nil {
		return err
	}
	roll, err := RollDamage(rng, cmd.Formula, BasicSaveMultiplier(save.Degree))
	if err != nil {
		return err
	}
	mitigation := Mitigate(target, roll.Total, cmd.DamageType, cmd.Bypass)
	app := ApplyDamageToPool(target, mitigation.AppliedTotal)

	actor.ActionsRemaining--
	state.emit(events, "save_damage", map[string]interface{}{
		"actor": cmd.Actor, "target": cmd.Target,
		"save_type": string(cmd.SaveType), "dc": cmd.DC,
		"degree":         string(save.Degree),
		"raw_damage":     roll.Total,
		"applied_damage": mitigation.AppliedTotal,
		"hp_loss":        app.HPLoss,
		"immune":         mitigation.Immune,
	})
	return nil
}

func applyAreaSaveDamage(state *BattleState, rng *RNG, cmd Command, events *[]Event) error {
	actor := state.Units[cmd.Actor]
	if actor.ActionsRemaining <= 0 {
		return noActionsRemaining(cmd.Actor)
	}
	if cmd.Mode != "basic" {
		return unsupportedCommand(cmd.Type)
	}

	center := grid.Position{X: cmd.CenterX, Y: cmd.CenterY}
	tiles := state.Map.Grid.RadiusTemplate(center, cmd.RadiusTiles)
	targetIDs := unitsInTilesWithLoE(state, center, tiles)
	if !cmd.IncludeActor {
		targetIDs = removeID(targetIDs, cmd.Actor)
	}

	results := make([]map[string]interface{}, 0, len(targetIDs))
	for _, id := range targetIDs {
		target := state.Units[id]
		save, err := ResolveSave(rng, target, cmd.SaveType, cmd.DC)
		if err != nil {
			return err
		}
		roll, err := RollDamage(rng, cmd.Formula, BasicSaveMultiplier(save.Degree))
		if err != nil {
			return err
		}
		mitigation := Mitigate(target, roll.Total, cmd.DamageType, cmd.Bypass)
		app := ApplyDamageToPool(target, mitigation.AppliedTotal)
		results = append(results, map[string]interface{}{
			"target":         id,
			"degree":         string(save.Degree),
			"raw_damage":     roll.Total,
			"applied_damage": mitigation.AppliedTotal,
			"hp_loss":        app.HPLoss,
			"immune":         mitigation.Immune,
		})
	}

	actor.ActionsRemaining--
	state.emit(events, "area_save_damage", map[string]interface{}{
		"actor": cmd.Actor, "center_x": cmd.CenterX, "center_y": cmd.CenterY,
		"results": results,
	})
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func applyApplyEffect(state *BattleState, rng *RNG, cmd Command, events *[]Event) error {
	actor := state.Units[cmd.Actor]
	if actor.ActionsRemaining <= 0 {
		return noActionsRemaining(cmd.Actor)
	}
	target, ok := state.Units[cmd.Target]
	if !ok {
		return targetUnknown(cmd.Target)
	}
	if !target.Alive() {
		return targetNotAlive(cmd.Target)
	}

	payload := cmd.Payload
	if payload == nil {
		payload = make(map[string]interface{})
	}
	effect := &Effect{
		EffectID:       state.nextEffectID(),
		Kind:           cmd.EffectKind,
		SourceUnitID:   cmd.Actor,
		TargetUnitID:   cmd.Target,
		Payload:        payload,
		DurationRounds: cmd.DurationRounds,
		TickTiming:     cmd.TickTiming,
	}
	state.Effects[effect.EffectID] = effect

	applyEvents, err := onApplyEffect(state, rng, effect)
	if err != nil {
		return err
	}

	actor.ActionsRemaining--
	state.emit(events, "apply_effect_command", map[string]interface{}{
		"actor": cmd.Actor, "target": cmd.Target, "effect_id": effect.EffectID, "kind": effect.Kind,
	})
	*events = append(*events, applyEvents...)
	return nil
}

func applyTriggerHazardSource(state *BattleState, rng *RNG, cmd Command, events *[]Event) error {
	actor := state.Units[cmd.Actor]
	if actor.ActionsRemaining <= 0 {
		return noActionsRemaining(cmd.Actor)
	}

	input := TargetSelectionInput{
		ActorID:        cmd.Actor,
		ExplicitTarget: cmd.ExplicitTarget,
		CenterX:        cmd.CenterX,
		CenterY:        cmd.CenterY,
		HasCenter:      cmd.HasCenter,
	}
	targets := SelectModeledEffectTargets(state, cmd.ModeledEffects, input)

	results := make([]map[string]interface{}, 0, len(targets))
	for _, targetID := range targets {
		result, lifecycleEvents, err := ApplyModeledEffectsToTarget(state, rng, cmd.Actor, targetID, cmd.ModeledEffects)
		if err != nil {
			return err
		}
		if result != nil {
			results = append(results, result)
		}
		*events = append(*events, lifecycleEvents...)
	}

	actor.ActionsRemaining--
	state.emit(events, "trigger_hazard_source", map[string]interface{}{
		"actor": cmd.Actor, "hazard_id": cmd.HazardID, "source_name": cmd.SourceName,
		"results": results,
	})
	return nil
}

func applyRunHazardRoutine(state *BattleState, rng *RNG, cmd Command, events *[]Event) error {
	actor := state.Units[cmd.Actor]
	if actor.ActionsRemaining <= 0 {
		return noActionsRemaining(cmd.Actor)
	}

	targets := selectTargetsByPolicy(state, cmd)

	results := make([]map[string]interface{}, 0, len(targets))
	for _, targetID := range targets {
		result, lifecycleEvents, err := ApplyModeledEffectsToTarget(state, rng, cmd.Actor, targetID, cmd.ModeledEffects)
		if err != nil {
			return err
		}
		if result != nil {
			results = append(results, result)
		}
		*events = append(*events, lifecycleEvents...)
	}

	actor.ActionsRemaining--
	state.emit(events, "run_hazard_routine", map[string]interface{}{
		"actor": cmd.Actor, "hazard_id": cmd.HazardID, "source_name": cmd.SourceName,
		"target_policy": string(cmd.TargetPolicy), "results": results,
	})
	return nil
}

// selectTargetsByPolicy implements run_hazard_routine's target policy
// (§4.4): nearest_enemy and nearest_enemy_area_center pick a single enemy
// (or the area centered on it), explicit is a single named target,
// all_enemies is every alive unit on a different team, and as_configured
// defers to the default §4.5 selection rules.
func selectTargetsByPolicy(state *BattleState, cmd Command) []string {
	actor := state.Units[cmd.Actor]

	switch cmd.TargetPolicy {
	case PolicyExplicit:
		input := TargetSelectionInput{ActorID: cmd.Actor, ExplicitTarget: cmd.ExplicitTarget}
		return SelectModeledEffectTargets(state, cmd.ModeledEffects, input)

	case PolicyAllEnemies:
		var out []string
		for _, id := range state.SortedAliveUnitIDs() {
			if id == cmd.Actor {
				continue
			}
			if state.Units[id].Team != actor.Team {
				out = append(out, id)
			}
		}
		return out

	case PolicyNearestEnemyAreaCenter:
		nearest := nearestEnemyID(state, actor)
		if nearest == "" {
			return nil
		}
		pos := state.Units[nearest].Position
		input := TargetSelectionInput{ActorID: cmd.Actor, CenterX: pos.X, CenterY: pos.Y, HasCenter: true}
		return SelectModeledEffectTargets(state, cmd.ModeledEffects, input)

	case PolicyNearestEnemy:
		nearest := nearestEnemyID(state, actor)
		if nearest == "" {
			return nil
		}
		return []string{nearest}

	default: // as_configured
		input := TargetSelectionInput{
			ActorID:        cmd.Actor,
			ExplicitTarget: cmd.ExplicitTarget,
			CenterX:        cmd.CenterX,
			CenterY:        cmd.CenterY,
			HasCenter:      cmd.HasCenter,
		}
		return SelectModeledEffectTargets(state, cmd.ModeledEffects, input)
	}
}

// nearestEnemyID returns the nearest alive unit on a different team from
// actor, Manhattan distance, tie-broken by ascending unit_id (the iteration
// order of SortedAliveUnitIDs already guarantees the tie-break).
func nearestEnemyID(state *BattleState, actor *Unit) string {
	best := ""
	bestDist := -1
	for _, id := range state.SortedAliveUnitIDs() {
		unit := state.Units[id]
		if unit.Team == actor.Team {
			continue
		}
		dist := grid.ManhattanDistance(actor.Position, unit.Position)
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = id
		}
	}
	return best
}

func applySetFlag(state *BattleState, cmd Command, events *[]Event) error {
	if state.Flags == nil {
		state.Flags = make(map[string]bool)
	}
	state.Flags[cmd.Flag] = cmd.Value
	state.emit(events, "set_flag", map[string]interface{}{
		"actor": cmd.Actor, "flag": cmd.Flag, "value": cmd.Value,
	})
	return nil
}

func applySpawnUnit(state *BattleState, cmd Command, events *[]Event) error {
	if _, exists := state.Units[cmd.UnitID]; exists {
		return duplicateUnitID(cmd.UnitID)
	}

	desired := grid.Position{X: cmd.X, Y: cmd.Y}
	var pos grid.Position
	switch cmd.Placement {
	case SpawnNearestOpen:
		found, ok := nearestOpenTile(state, desired)
		if !ok {
			return invalidSpawnPosition(cmd.X, cmd.Y)
		}
		pos = found
	default: // exact
		if !state.Map.InBounds(desired) || state.Map.IsBlocked(desired) || isOccupied(state, desired) {
			return invalidSpawnPosition(cmd.X, cmd.Y)
		}
		pos = desired
	}

	unit := &Unit{
		UnitID:              cmd.UnitID,
		Team:                cmd.Team,
		HP:                  cmd.HP,
		MaxHP:               cmd.MaxHP,
		Position:            pos,
		Initiative:          cmd.Initiative,
		AttackMod:           cmd.AttackMod,
		AC:                  cmd.AC,
		Damage:              cmd.Damage,
		Fortitude:           0,
		Reflex:              0,
		Will:                0,
		ActionsRemaining:    3,
		ReactionAvailable:   true,
		Conditions:          make(map[string]int),
		ConditionImmunities: make(map[string]bool),
		Resistances:         make(map[string]int),
		Weaknesses:          make(map[string]int),
		Immunities:          make(map[string]bool),
	}
	state.Units[cmd.UnitID] = unit
	state.RebuildTurnOrder()

	if cmd.SpendAction {
		if actor := state.Units[cmd.Actor]; actor != nil && actor.ActionsRemaining > 0 {
			actor.ActionsRemaining--
		}
	}

	state.emit(events, "spawn_unit", map[string]interface{}{
		"actor": cmd.Actor, "unit_id": cmd.UnitID, "team": cmd.Team, "x": pos.X, "y": pos.Y,
	})
	return nil
}

// nearestOpenTile finds the closest in-bounds, unblocked, unoccupied tile to
// desired, tie-broken by (distance, y, x) ascending.
func nearestOpenTile(state *BattleState, desired grid.Position) (grid.Position, bool) {
	type candidate struct {
		pos  grid.Position
		dist int
	}
	var candidates []candidate
	for x := 0; x < state.Map.Grid.Width; x++ {
		for y := 0; y < state.Map.Grid.Height; y++ {
			pos := grid.Position{X: x, Y: y}
			if state.Map.IsBlocked(pos) || isOccupied(state, pos) {
				continue
			}
			candidates = append(candidates, candidate{pos: pos, dist: grid.ManhattanDistance(desired, pos)})
		}
	}
	if len(candidates) == 0 {
		return grid.Position{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		if candidates[i].pos.Y != candidates[j].pos.Y {
			return candidates[i].pos.Y < candidates[j].pos.Y
		}
		return candidates[i].pos.X < candidates[j].pos.X
	})
	return candidates[0].pos, true
}
