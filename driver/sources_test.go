// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package driver

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/00d/skirmish/engine"
	"github.com/00d/skirmish/scenario"
)

func TestNextCommand_MissionEventOutranksScriptedCommand(t *testing.T) {
	state := twoUnitState(20, 10)
	file := &scenario.File{
		BattleID: "b1",
		MissionEvents: []scenario.MissionEvent{
			{ID: "intro", Trigger: "round_start", Commands: []scenario.Command{
				rawCmd(t, `{"type":"set_flag","actor":"hero","flag":"intro_fired","value":true}`),
			}},
		},
		Commands: []scenario.Command{
			rawCmd(t, `{"type":"end_turn","actor":"hero"}`),
		},
	}
	d := newDriver(state, file, nil)
	cmd, auto, ran := d.nextCommand()
	require.True(t, ran)
	assert.True(t, auto)
	assert.Equal(t, engine.CommandSetFlag, cmd.Type)
	assert.Equal(t, "intro_fired", cmd.Flag)
}

func TestNextMissionEventCommand_OnceFlagPreventsRefire(t *testing.T) {
	state := twoUnitState(20, 10)
	file := &scenario.File{
		BattleID: "b1",
		MissionEvents: []scenario.MissionEvent{
			{ID: "intro", Trigger: "round_start", Once: true, Commands: []scenario.Command{
				rawCmd(t, `{"type":"set_flag","actor":"hero","flag":"fired","value":true}`),
			}},
		},
	}
	d := newDriver(state, file, nil)
	_, ok := d.nextMissionEventCommand()
	require.True(t, ok)

	_, ok = d.nextMissionEventCommand()
	assert.False(t, ok, "a once mission event must not fire a second time even in the same window")
}

func TestNextMissionEventCommand_IfFlagBranches(t *testing.T) {
	state := twoUnitState(20, 10)
	state.Flags["door_open"] = true
	file := &scenario.File{
		BattleID: "b1",
		MissionEvents: []scenario.MissionEvent{{
			ID: "branch", Trigger: "round_start", IfFlag: "door_open",
			ThenCommands: []scenario.Command{rawCmd(t, `{"type":"set_flag","actor":"hero","flag":"then_ran","value":true}`)},
			ElseCommands: []scenario.Command{rawCmd(t, `{"type":"set_flag","actor":"hero","flag":"else_ran","value":true}`)},
		}},
	}
	d := newDriver(state, file, nil)
	cmd, ok := d.nextMissionEventCommand()
	require.True(t, ok)
	assert.Equal(t, "then_ran", cmd.Flag)
}

func TestMissionEventEligible_UnitDeadTrigger(t *testing.T) {
	state := twoUnitState(20, 10)
	d := newDriver(state, &scenario.File{BattleID: "b1"}, nil)
	ev := scenario.MissionEvent{ID: "on_death", Trigger: "unit_dead", UnitID: "goblin"}
	assert.False(t, d.missionEventEligible(ev), "goblin is alive, unit_dead trigger must not fire yet")

	state.Units["goblin"].HP = 0
	assert.True(t, d.missionEventEligible(ev))
}

func TestHazardRoutineEligible_CadenceAndStartRound(t *testing.T) {
	state := twoUnitState(20, 10)
	d := newDriver(state, &scenario.File{BattleID: "b1"}, nil)
	routine := scenario.HazardRoutineSpec{ID: "gas", UnitID: "hero", StartRound: 2, CadenceRounds: 2}

	state.RoundNumber = 1
	assert.False(t, d.hazardRoutineEligible(routine), "round is before start_round")

	state.RoundNumber = 2
	assert.True(t, d.hazardRoutineEligible(routine))

	state.RoundNumber = 3
	assert.False(t, d.hazardRoutineEligible(routine), "round 3 is off-cadence from start_round 2 with cadence 2")

	state.RoundNumber = 4
	assert.True(t, d.hazardRoutineEligible(routine))
}

func TestNextHazardRoutineCommand_PriorityOrderAndAutoEndTurn(t *testing.T) {
	state := twoUnitState(20, 10)
	catalog := &scenario.HazardCatalog{}
	catalog.Hazards.Entries = []scenario.HazardEntry{
		{ID: "trap", Sources: []scenario.HazardSource{{SourceName: "tick"}}},
	}
	file := &scenario.File{
		BattleID: "b1",
		HazardRoutines: []scenario.HazardRoutineSpec{
			{ID: "low_priority", UnitID: "hero", HazardID: "trap", SourceName: "tick", Priority: 5, AutoEndTurn: true},
			{ID: "high_priority", UnitID: "hero", HazardID: "trap", SourceName: "tick", Priority: 1},
		},
	}
	d := New(state, testRNG(1), file, nil, catalog, nil, zerolog.Nop())
	cmd, ok := d.nextHazardRoutineCommand()
	require.True(t, ok)
	assert.Equal(t, engine.CommandRunHazardRoutine, cmd.Type)
	assert.Equal(t, "hero", cmd.Actor)

	// high_priority (priority 1) must fire before low_priority (priority 5).
	state2 := d.routineState["high_priority"]
	require.NotNil(t, state2)
	assert.Equal(t, 1, state2.triggerCount)
	assert.Nil(t, d.routineState["low_priority"])
	// high_priority has auto_end_turn off, so no end_turn is queued.
	assert.Empty(t, d.pendingAutoEndTurnActor)
}

func TestNextScriptedCommand_ExhaustionFallsThroughToPolicy(t *testing.T) {
	state := twoUnitState(20, 10)
	file := &scenario.File{
		BattleID: "b1",
		EnemyPolicy: &scenario.EnemyPolicySpec{
			Enabled: true, Teams: []string{"party"}, Action: "strike_nearest",
		},
	}
	d := newDriver(state, file, nil)
	_, ok := d.nextScriptedCommand()
	assert.False(t, ok, "no scripted commands at all")

	cmd, ok := d.nextPolicyCommand()
	require.True(t, ok)
	assert.Equal(t, engine.CommandStrike, cmd.Type)
	assert.Equal(t, "goblin", cmd.Target)
}

func TestNextPolicyCommand_OnlyAppliesAfterScriptExhausted(t *testing.T) {
	state := twoUnitState(20, 10)
	file := &scenario.File{
		BattleID: "b1",
		Commands: []scenario.Command{rawCmd(t, `{"type":"end_turn","actor":"hero"}`)},
		EnemyPolicy: &scenario.EnemyPolicySpec{
			Enabled: true, Teams: []string{"party"}, Action: "strike_nearest",
		},
	}
	d := newDriver(state, file, nil)
	_, ok := d.nextPolicyCommand()
	assert.False(t, ok, "scripted commands remain, policy must not preempt them")
}

func TestNextPolicyCommand_WrongTeamNotEligible(t *testing.T) {
	state := twoUnitState(20, 10)
	file := &scenario.File{
		BattleID: "b1",
		EnemyPolicy: &scenario.EnemyPolicySpec{
			Enabled: true, Teams: []string{"enemy"}, Action: "strike_nearest",
		},
	}
	d := newDriver(state, file, nil)
	_, ok := d.nextPolicyCommand()
	assert.False(t, ok, "hero is on the party team, not the enemy policy's teams list")
}

func TestNearestEnemy_PicksManhattanClosest(t *testing.T) {
	state := twoUnitState(20, 10)
	state.Units["goblin"].Position.X = 5
	target := nearestEnemy(state, state.Units["hero"])
	assert.Equal(t, "goblin", target)
}

