// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

// Package driver implements the scenario driver loop (spec.md §4.7): it
// interleaves mission events, hazard routines, the scenario's scripted
// commands, and an enemy-behavior policy, dispatching each through
// engine.ApplyCommand and stopping when the battle ends, the script is
// exhausted with no automatic source producing work, a command fails, or
// the step budget is exceeded.
package driver

import (
	"github.com/rs/zerolog"

	"github.com/00d/skirmish/engine"
	"github.com/00d/skirmish/rpgerr"
	"github.com/00d/skirmish/scenario"
)

// StopReason is the terminal condition that ended a driver run.
type StopReason string

const (
	StopBattleEnd       StopReason = "battle_end"
	StopCommandError    StopReason = "command_error"
	StopScriptExhausted StopReason = "script_exhausted"
	StopMaxSteps        StopReason = "max_steps"
)

// Result is everything the CLI needs to render a finished run (§6).
type Result struct {
	BattleID              string
	Seed                  int64
	EnginePhase           int
	ExecutedCommands      int
	AutoExecutedCommands  int
	StopReason            StopReason
	Events                []engine.Event
	FinalState            *engine.BattleState
	Outcome               string
	WinningTeam           string
	CommandErrorMessage   string
}

// missionEventState tracks once-completion and per-window firing for one
// mission event (Open Question (c): the turn-key is (round, turn_index, id),
// not branch choice).
type missionEventState struct {
	completed     bool
	firedWindows  map[string]bool
}

// hazardRoutineState tracks how many times a routine has fired.
type hazardRoutineState struct {
	triggerCount int
	completed    bool
}

// Driver runs one scenario to completion.
type Driver struct {
	State    *engine.BattleState
	RNG      *engine.RNG
	Logger   zerolog.Logger
	Scenario *scenario.File
	Packs    []*scenario.ContentPack
	Catalog  *scenario.HazardCatalog

	Objectives []engine.Objective

	scriptIndex int
	events      []engine.Event
	executed    int
	autoExec    int

	// queue holds commands from a mission event firing that produced more
	// than one command; nextMissionEventCommand drains it before scanning
	// mission_events[] again.
	queue []engine.Command

	// pendingAutoEndTurnActor is set by a hazard routine or enemy-policy
	// action whose auto_end_turn is true; the next nextCommand call returns
	// an end_turn for that actor ahead of routines, scripted commands and
	// policy (a pending mission event still goes first).
	pendingAutoEndTurnActor string

	missionState           map[string]*missionEventState
	routineState           map[string]*hazardRoutineState
	routineLastFiredRound  map[string]int

	// lastObjectiveStatuses is the most recently emitted per-objective
	// status snapshot; Run diffs against it each step to decide whether a
	// fresh objective_update event is due (§8 S5).
	lastObjectiveStatuses map[string]bool
}

// New constructs a Driver ready to Run.
func New(state *engine.BattleState, rng *engine.RNG, file *scenario.File, packs []*scenario.ContentPack, catalog *scenario.HazardCatalog, objectives []engine.Objective, logger zerolog.Logger) *Driver {
	return &Driver{
		State:        state,
		RNG:          rng,
		Logger:       logger,
		Scenario:     file,
		Packs:        packs,
		Catalog:      catalog,
		Objectives:            objectives,
		missionState:          make(map[string]*missionEventState),
		routineState:          make(map[string]*hazardRoutineState),
		routineLastFiredRound: make(map[string]int),
		lastObjectiveStatuses: make(map[string]bool),
	}
}

// Run executes the driver loop until a stop condition is reached.
func (d *Driver) Run() Result {
	maxSteps := d.Scenario.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10000
	}

	for step := 0; step < maxSteps; step++ {
		if len(d.Objectives) > 0 {
			objState := engine.EvaluateObjectiveState(d.State, d.Objectives)
			if !objectiveStatusesEqual(objState.Statuses, d.lastObjectiveStatuses) {
				d.events = append(d.events, d.State.EmitEvent("objective_update", map[string]interface{}{
					"statuses":    objState.Statuses,
					"victory_met": objState.VictoryMet,
					"defeat_met":  objState.DefeatMet,
				}))
				d.lastObjectiveStatuses = objState.Statuses
			}
			if objState.DefeatMet || objState.VictoryMet {
				outcome := string(engine.ObjectiveVictory)
				if objState.DefeatMet {
					outcome = string(engine.ObjectiveDefeat)
				}
				d.events = append(d.events, d.State.EmitEvent("battle_end", map[string]interface{}{
					"reason": "objectives", "outcome": outcome, "objective_statuses": d.lastObjectiveStatuses,
				}))
				return d.result(StopBattleEnd, outcome, "", "")
			}
		} else if end := engine.EvaluateObjectives(d.State, d.Objectives); end.Ended {
			d.events = append(d.events, d.State.EmitEvent("battle_end", map[string]interface{}{
				"reason": end.Reason, "outcome": end.Outcome, "winning_team": end.WinningTeam,
			}))
			return d.result(StopBattleEnd, end.Outcome, end.WinningTeam, "")
		}

		cmd, auto, ran := d.nextCommand()
		if !ran {
			return d.result(StopScriptExhausted, "", "", "")
		}

		next, evs, err := engine.ApplyCommand(d.State, cmd, d.RNG)
		if err != nil {
			d.logCommandError(cmd, err)
			code, message := errorCodeAndMessage(err)
			d.events = append(d.events, d.State.CommandErrorEvent(string(cmd.EffectiveType()), cmd.Actor, code, message))
			return d.result(StopCommandError, "", "", message)
		}

		d.State = next
		d.events = append(d.events, evs...)
		if auto {
			d.autoExec++
		} else {
			d.executed++
		}
		d.logCommand(cmd)
	}

	return d.result(StopMaxSteps, "", "", "")
}

func (d *Driver) result(reason StopReason, outcome, winningTeam, errMsg string) Result {
	return Result{
		BattleID:             d.Scenario.BattleID,
		Seed:                 d.Scenario.Seed,
		EnginePhase:          d.Scenario.EngineVersion,
		ExecutedCommands:     d.executed,
		AutoExecutedCommands: d.autoExec,
		StopReason:           reason,
		Events:               d.events,
		FinalState:           d.State,
		Outcome:              outcome,
		WinningTeam:          winningTeam,
		CommandErrorMessage:  errMsg,
	}
}

func (d *Driver) logCommand(cmd engine.Command) {
	d.Logger.Debug().
		Str("command_type", string(cmd.EffectiveType())).
		Str("actor", cmd.Actor).
		Int("round", d.State.RoundNumber).
		Int("turn_index", d.State.TurnIndex).
		Msg("dispatched command")
}

func (d *Driver) logCommandError(cmd engine.Command, err error) {
	d.Logger.Error().
		Str("command_type", string(cmd.EffectiveType())).
		Str("actor", cmd.Actor).
		Err(err).
		Msg("command failed")
}

func errorCodeAndMessage(err error) (string, string) {
	if rerr, ok := err.(*rpgerr.Error); ok {
		return string(rerr.Code), rerr.Message
	}
	return "unknown", err.Error()
}

// objectiveStatusesEqual reports whether two objective status snapshots
// hold the same id→bool pairs (map equality Go doesn't give you for free).
func objectiveStatusesEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// nextCommand implements §4.7's 4-tier priority: mission events, hazard
// routines, the scripted command list, then the enemy policy. The bool
// return is false only when no tier produced a command.
func (d *Driver) nextCommand() (engine.Command, bool, bool) {
	if cmd, ok := d.nextMissionEventCommand(); ok {
		return cmd, true, true
	}
	if cmd, ok := d.nextHazardRoutineCommand(); ok {
		return cmd, true, true
	}
	if cmd, ok := d.nextScriptedCommand(); ok {
		return cmd, false, true
	}
	if cmd, ok := d.nextPolicyCommand(); ok {
		return cmd, true, true
	}
	return engine.Command{}, false, false
}
