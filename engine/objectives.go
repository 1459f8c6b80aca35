// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import "fmt"

// ObjectiveResult is the side an objective counts toward.
type ObjectiveResult string

const (
	ObjectiveVictory ObjectiveResult = "victory"
	ObjectiveDefeat  ObjectiveResult = "defeat"
)

// ObjectiveType enumerates the primitive objective kinds §4.8 supports.
// Objective packs (e.g. escape_unit) expand into these at scenario-load
// time; the evaluator only ever sees primitives.
type ObjectiveType string

const (
	ObjectiveTeamEliminated ObjectiveType = "team_eliminated"
	ObjectiveUnitReachTile  ObjectiveType = "unit_reach_tile"
	ObjectiveFlagSet        ObjectiveType = "flag_set"
	ObjectiveRoundAtLeast   ObjectiveType = "round_at_least"
	ObjectiveUnitDead       ObjectiveType = "unit_dead"
	ObjectiveUnitAlive      ObjectiveType = "unit_alive"
)

// Objective is one primitive win/loss condition.
type Objective struct {
	Type   ObjectiveType
	Result ObjectiveResult

	Team      string // team_eliminated
	UnitID    string // unit_reach_tile / unit_dead / unit_alive
	TileX     int    // unit_reach_tile
	TileY     int    // unit_reach_tile
	Flag      string // flag_set
	Value     bool   // flag_set
	MinRounds int    // round_at_least
}

// satisfied reports whether a single objective currently holds against state.
func (o Objective) satisfied(state *BattleState) bool {
	switch o.Type {
	case ObjectiveTeamEliminated:
		for _, id := range state.SortedAliveUnitIDs() {
			if state.Units[id].Team == o.Team {
				return false
			}
		}
		return true
	case ObjectiveUnitReachTile:
		unit := state.Units[o.UnitID]
		return unit != nil && unit.Alive() && unit.Position.X == o.TileX && unit.Position.Y == o.TileY
	case ObjectiveFlagSet:
		return state.Flags[o.Flag] == o.Value
	case ObjectiveRoundAtLeast:
		return state.RoundNumber >= o.MinRounds
	case ObjectiveUnitDead:
		unit := state.Units[o.UnitID]
		return unit != nil && !unit.Alive()
	case ObjectiveUnitAlive:
		unit := state.Units[o.UnitID]
		return unit != nil && unit.Alive()
	default:
		return false
	}
}

// BattleEndResult is the outcome of evaluating objectives (or, absent any,
// team elimination) against the current state.
type BattleEndResult struct {
	Ended  bool
	Reason string // "objectives" or "team_elimination"
	Outcome string // "victory", "defeat", or "" when no single team survives
	WinningTeam string

	// ObjectiveStatuses is the per-objective held/not-held snapshot that
	// produced Outcome when Reason == "objectives"; nil for team_elimination.
	ObjectiveStatuses map[string]bool
}

// ObjectiveState is the per-objective status snapshot evaluate_objectives
// produces in the original (engine/core/objectives.py): a status map keyed
// by a stable per-objective id, plus the aggregate victory/defeat flags
// derived from it.
type ObjectiveState struct {
	Statuses   map[string]bool
	VictoryMet bool
	DefeatMet  bool
}

// EvaluateObjectiveState reports the held/not-held status of every
// configured objective, keyed objective_1, objective_2, ... in declaration
// order (the original's objective.get("id") or f"objective_{idx + 1}"
// scheme, minus the explicit-id case our scenario schema doesn't expose).
func EvaluateObjectiveState(state *BattleState, objectives []Objective) ObjectiveState {
	statuses := make(map[string]bool, len(objectives))
	victoryCount, victoryHeld := 0, 0
	defeatMet := false
	for i, o := range objectives {
		id := fmt.Sprintf("objective_%d", i+1)
		held := o.satisfied(state)
		statuses[id] = held
		switch o.Result {
		case ObjectiveDefeat:
			if held {
				defeatMet = true
			}
		case ObjectiveVictory:
			victoryCount++
			if held {
				victoryHeld++
			}
		}
	}
	return ObjectiveState{
		Statuses:   statuses,
		VictoryMet: victoryCount > 0 && victoryHeld == victoryCount,
		DefeatMet:  defeatMet,
	}
}

// EvaluateObjectives implements §4.8: with objectives configured, victory
// requires at least one victory objective and all of them true; defeat is
// any defeat objective being true. With no objectives, the battle ends when
// at most one team has a living unit.
func EvaluateObjectives(state *BattleState, objectives []Objective) BattleEndResult {
	if len(objectives) == 0 {
		return evaluateTeamElimination(state)
	}

	os := EvaluateObjectiveState(state, objectives)
	if os.DefeatMet {
		return BattleEndResult{Ended: true, Reason: "objectives", Outcome: string(ObjectiveDefeat), ObjectiveStatuses: os.Statuses}
	}
	if os.VictoryMet {
		return BattleEndResult{Ended: true, Reason: "objectives", Outcome: string(ObjectiveVictory), ObjectiveStatuses: os.Statuses}
	}
	return BattleEndResult{}
}

// evaluateTeamElimination is the fallback end-state rule when a scenario
// declares no objectives: the battle ends once at most one team has a
// living unit. The winner is that sole surviving team, or "" on a draw.
func evaluateTeamElimination(state *BattleState) BattleEndResult {
	aliveTeams := make(map[string]bool)
	for _, id := range state.SortedAliveUnitIDs() {
		aliveTeams[state.Units[id].Team] = true
	}
	if len(aliveTeams) > 1 {
		return BattleEndResult{}
	}

	result := BattleEndResult{Ended: true, Reason: "team_elimination"}
	if len(aliveTeams) == 1 {
		for team := range aliveTeams {
			result.WinningTeam = team
		}
		result.Outcome = string(ObjectiveVictory)
	}
	return result
}
