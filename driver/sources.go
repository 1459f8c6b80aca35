// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package driver

import (
	"fmt"
	"sort"

	"github.com/00d/skirmish/engine"
	"github.com/00d/skirmish/grid"
	"github.com/00d/skirmish/scenario"
)

// windowKey returns the (round_number, turn_index) key a mission event's
// once=false firing state is tracked against (Open Question (c), §9/§13).
func windowKey(round, turnIndex int) string {
	return fmt.Sprintf("%d:%d", round, turnIndex)
}

// nextMissionEventCommand drains any queued commands from a previously
// fired mission event, else scans mission_events[] in file order for the
// first eligible one and queues its command list.
func (d *Driver) nextMissionEventCommand() (engine.Command, bool) {
	if len(d.queue) > 0 {
		cmd := d.queue[0]
		d.queue = d.queue[1:]
		return cmd, true
	}

	for _, ev := range d.Scenario.MissionEvents {
		if !d.missionEventEligible(ev) {
			continue
		}

		state := d.missionState[ev.ID]
		if state == nil {
			state = &missionEventState{firedWindows: make(map[string]bool)}
			d.missionState[ev.ID] = state
		}
		key := windowKey(d.State.RoundNumber, d.State.TurnIndex)
		if state.firedWindows[key] {
			continue
		}
		state.firedWindows[key] = true
		if ev.Once {
			state.completed = true
		}

		raws := ev.Commands
		if ev.IfFlag != "" {
			if d.State.Flags[ev.IfFlag] {
				raws = ev.ThenCommands
			} else {
				raws = ev.ElseCommands
			}
		}

		materialized := make([]engine.Command, 0, len(raws))
		for _, raw := range raws {
			cmd, err := scenario.MaterializeCommand(raw, d.Packs, d.Catalog)
			if err != nil {
				continue
			}
			if cmd.Actor == "" {
				cmd.Actor = d.State.ActiveUnitID()
			}
			materialized = append(materialized, cmd)
		}
		if len(materialized) == 0 {
			continue
		}
		d.queue = materialized[1:]
		return materialized[0], true
	}
	return engine.Command{}, false
}

func (d *Driver) missionEventEligible(ev scenario.MissionEvent) bool {
	state := d.missionState[ev.ID]
	if state != nil && state.completed {
		return false
	}

	switch ev.Trigger {
	case "round_start":
		if d.State.TurnIndex != 0 {
			return false
		}
	case "turn_start":
		// always eligible within the turn
	case "unit_dead":
		unit := d.State.Units[ev.UnitID]
		if unit == nil || unit.Alive() {
			return false
		}
	case "unit_alive":
		unit := d.State.Units[ev.UnitID]
		if unit == nil || !unit.Alive() {
			return false
		}
	case "flag_set":
		if d.State.Flags[ev.Flag] != ev.Value {
			return false
		}
	default:
		return false
	}

	if ev.Round != nil && d.State.RoundNumber != *ev.Round {
		return false
	}
	if ev.StartRound != nil && d.State.RoundNumber < *ev.StartRound {
		return false
	}
	if ev.EndRound != nil && d.State.RoundNumber > *ev.EndRound {
		return false
	}
	if ev.ActiveUnit != "" && ev.ActiveUnit != d.State.ActiveUnitID() {
		return false
	}
	if ev.EnabledFlag != "" && !d.State.Flags[ev.EnabledFlag] {
		return false
	}
	if ev.DisabledFlag != "" && d.State.Flags[ev.DisabledFlag] {
		return false
	}
	return true
}

// nextHazardRoutineCommand returns a queued auto-end-turn for a routine
// that just fired, else the highest-priority eligible routine owned by the
// active unit.
func (d *Driver) nextHazardRoutineCommand() (engine.Command, bool) {
	if d.pendingAutoEndTurnActor != "" {
		actor := d.pendingAutoEndTurnActor
		d.pendingAutoEndTurnActor = ""
		if d.State.ActiveUnitID() == actor && d.State.Units[actor] != nil && d.State.Units[actor].Alive() {
			return engine.Command{Type: engine.CommandEndTurn, Actor: actor}, true
		}
		return engine.Command{}, false
	}

	activeID := d.State.ActiveUnitID()
	var eligible []scenario.HazardRoutineSpec
	for _, r := range d.Scenario.HazardRoutines {
		if r.UnitID != activeID {
			continue
		}
		if d.hazardRoutineEligible(r) {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return engine.Command{}, false
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority < eligible[j].Priority
		}
		return eligible[i].ID < eligible[j].ID
	})
	routine := eligible[0]

	state := d.routineState[routine.ID]
	if state == nil {
		state = &hazardRoutineState{}
		d.routineState[routine.ID] = state
	}
	state.triggerCount++
	if routine.Once || (routine.MaxTriggers > 0 && state.triggerCount >= routine.MaxTriggers) {
		state.completed = true
	}
	d.routineLastFiredRound[routine.ID] = d.State.RoundNumber

	cmd := engine.Command{
		Type: engine.CommandRunHazardRoutine, Actor: routine.UnitID,
		HazardID: routine.HazardID, SourceName: routine.SourceName,
		TargetPolicy:   engine.TargetPolicy(routine.TargetPolicy),
		ExplicitTarget: routine.ExplicitTarget,
	}
	if d.Catalog != nil {
		if source, err := scenario.FindHazardSource(d.Catalog, routine.HazardID, routine.SourceName); err == nil {
			if effects, err := scenario.ConvertModeledEffects(source.Effects); err == nil {
				cmd.ModeledEffects = effects
			}
		}
	}

	if routine.AutoEndTurn {
		d.pendingAutoEndTurnActor = routine.UnitID
	}
	return cmd, true
}

func (d *Driver) hazardRoutineEligible(r scenario.HazardRoutineSpec) bool {
	state := d.routineState[r.ID]
	if state != nil && state.completed {
		return false
	}
	if d.State.RoundNumber < r.StartRound {
		return false
	}
	cadence := r.CadenceRounds
	if cadence <= 0 {
		cadence = 1
	}
	if (d.State.RoundNumber-r.StartRound)%cadence != 0 {
		return false
	}
	lastFiredRound, fired := d.routineLastFiredRound[r.ID]
	return !fired || lastFiredRound != d.State.RoundNumber
}

// nextScriptedCommand returns the next static commands[] entry, defaulting
// its actor to the current active unit when omitted. A mismatched actor is
// deliberately NOT special-cased here: ApplyCommand's own generic
// precondition check rejects it as notActiveUnit, which the Run loop
// converts into the same command_error stop the spec requires.
func (d *Driver) nextScriptedCommand() (engine.Command, bool) {
	if d.scriptIndex >= len(d.Scenario.Commands) {
		return engine.Command{}, false
	}
	raw := d.Scenario.Commands[d.scriptIndex]
	d.scriptIndex++

	cmd, err := scenario.MaterializeCommand(raw, d.Packs, d.Catalog)
	if err != nil {
		return engine.Command{}, false
	}
	if cmd.Actor == "" {
		cmd.Actor = d.State.ActiveUnitID()
	}
	return cmd, true
}

// nextPolicyCommand builds the enemy-policy command for the active unit,
// only once the static script is exhausted (§4.7 tier 4).
func (d *Driver) nextPolicyCommand() (engine.Command, bool) {
	policy := d.Scenario.EnemyPolicy
	if policy == nil || !policy.Enabled || d.scriptIndex < len(d.Scenario.Commands) {
		return engine.Command{}, false
	}
	activeID := d.State.ActiveUnitID()
	active := d.State.Units[activeID]
	if active == nil {
		return engine.Command{}, false
	}
	onPolicyTeam := false
	for _, t := range policy.Teams {
		if t == active.Team {
			onPolicyTeam = true
			break
		}
	}
	if !onPolicyTeam {
		return engine.Command{}, false
	}

	cmd, ok := d.buildPolicyCommand(policy, active)
	if ok && policy.AutoEndTurn && cmd.Type != engine.CommandEndTurn {
		d.pendingAutoEndTurnActor = activeID
	}
	return cmd, ok
}

func (d *Driver) buildPolicyCommand(policy *scenario.EnemyPolicySpec, active *engine.Unit) (engine.Command, bool) {
	switch policy.Action {
	case "strike_nearest":
		target := nearestEnemy(d.State, active)
		if target == "" {
			return engine.Command{Type: engine.CommandEndTurn, Actor: active.UnitID}, true
		}
		return engine.Command{Type: engine.CommandStrike, Actor: active.UnitID, Target: target}, true

	case "cast_spell_entry_nearest":
		target := nearestEnemy(d.State, active)
		if target == "" || policy.ContentEntryID == "" {
			return engine.Command{Type: engine.CommandEndTurn, Actor: active.UnitID}, true
		}
		return d.materializePolicyTemplate(engine.CommandCastSpell, active.UnitID, policy.ContentEntryID, target)

	case "use_feat_entry_self":
		return d.materializePolicyTemplate(engine.CommandUseFeat, active.UnitID, policy.ContentEntryID, active.UnitID)

	case "use_item_entry_self":
		return d.materializePolicyTemplate(engine.CommandUseItem, active.UnitID, policy.ContentEntryID, active.UnitID)

	case "interact_entry_self":
		return d.materializePolicyTemplate(engine.CommandInteract, active.UnitID, policy.ContentEntryID, active.UnitID)

	default:
		return engine.Command{Type: engine.CommandEndTurn, Actor: active.UnitID}, true
	}
}

func (d *Driver) materializePolicyTemplate(cmdType engine.CommandType, actor, entryID, target string) (engine.Command, bool) {
	entry, err := scenario.FindContentEntry(d.Packs, entryID)
	if err != nil {
		return engine.Command{Type: engine.CommandEndTurn, Actor: actor}, true
	}
	materializedType := engine.CommandType(stringPayload(entry.Payload, "command_type"))
	cmd, err := scenario.DecodeCommandFields(materializedType, entry.Payload, d.Catalog)
	if err != nil {
		return engine.Command{Type: engine.CommandEndTurn, Actor: actor}, true
	}
	cmd.Type = cmdType
	cmd.MaterializedType = materializedType
	cmd.Actor = actor
	cmd.ContentEntryID = entryID
	if cmd.Target == "" {
		cmd.Target = target
	}
	return cmd, true
}

func stringPayload(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func nearestEnemy(state *engine.BattleState, actor *engine.Unit) string {
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
