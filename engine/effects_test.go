// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_dice "github.com/00d/skirmish/dice/mock"
)

func afflictionEffect(target string) *Effect {
	return &Effect{
		EffectID:     "eff_0001",
		Kind:         EffectKindAffliction,
		TargetUnitID: target,
		Payload: map[string]interface{}{
			"current_stage": 1,
			"max_stage":      2,
			"save_type":      string(SaveFortitude),
			"dc":             10,
			"stages": []AfflictionStageConfig{
				{DurationRounds: 1, Conditions: []ConditionGrant{{Name: "poisoned", Severity: 1}}, DamageFormula: "1d4", DamageType: "poison"},
				{DurationRounds: 1, Conditions: []ConditionGrant{{Name: "poisoned", Severity: 2}}, DamageFormula: "2d4", DamageType: "poison"},
			},
		},
	}
}

func TestOnApplyAffliction_RollsAndAppliesStageOneDamage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	roller := mock_dice.NewMockRoller(ctrl)
	roller.EXPECT().RollN(gomock.Any(), 1, 4).Return([]int{3}, nil)
	rng := NewRNG(context.Background(), roller)

	state := newTestState(1)
	target := state.Units["goblin"]
	effect := afflictionEffect("goblin")

	events, err := onApplyAffliction(state, rng, effect)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, 1, target.Conditions["poisoned"])
	assert.Equal(t, 7, target.HP, "stage 1's 1d4 damage formula must actually be rolled and applied, not just recorded")
	assert.NotEmpty(t, events[0].EventID, "lifecycle events must go through EmitEvent for a real event_id")
	assert.Equal(t, 3, events[0].Payload["raw_damage"])
	assert.Equal(t, 3, events[0].Payload["applied_damage"])
}

func TestTickAffliction_WaitingTickDoesNotReroll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	roller := mock_dice.NewMockRoller(ctrl)
	// No RollN/D20 expectations: a waiting tick must not touch the RNG at all.
	rng := NewRNG(context.Background(), roller)

	state := newTestState(1)
	target := state.Units["goblin"]
	effect := afflictionEffect("goblin")
	effect.Payload["stage_rounds_remaining"] = 2

	events, err := tickAffliction(state, rng, target, effect)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, true, events[0].Payload["waiting"])
	assert.Equal(t, 1, effect.Payload["stage_rounds_remaining"])
}

func TestTickAffliction_StageChangeRollsNewStageDamage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	roller := mock_dice.NewMockRoller(ctrl)
	roller.EXPECT().Roll(gomock.Any(), 20).Return(1, nil)           // natural 1 on the stage save -> critical failure
	roller.EXPECT().RollN(gomock.Any(), 2, 4).Return([]int{2, 2}, nil) // stage 2's damage formula
	rng := NewRNG(context.Background(), roller)

	state := newTestState(1)
	target := state.Units["goblin"]
	effect := afflictionEffect("goblin")
	effect.Payload["stage_rounds_remaining"] = 1

	events, err := tickAffliction(state, rng, target, effect)
	require.NoError(t, err)

	assert.Equal(t, 2, effect.Payload["current_stage"])
	assert.Equal(t, 2, target.Conditions["poisoned"], "stage 2 grants the higher-severity condition")
	assert.Equal(t, 6, target.HP, "stage 2's 2d4 damage must be rolled and applied on the stage change")

	var stageEvent *Event
	for i := range events {
		if events[i].Type == "effect_apply" {
			stageEvent = &events[i]
		}
	}
	require.NotNil(t, stageEvent)
	assert.Equal(t, 4, stageEvent.Payload["raw_damage"])
}

func TestOnApplyCondition_EmitsEventWithRealID(t *testing.T) {
	state := newTestState(1)
	effect := &Effect{
		EffectID: "eff_0002", Kind: EffectKindCondition, TargetUnitID: "goblin",
		Payload: map[string]interface{}{"name": "prone", "severity": 1},
	}
	events := onApplyCondition(state, effect)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].EventID)
	assert.Equal(t, state.RoundNumber, events[0].Round)
	assert.Equal(t, 1, state.Units["goblin"].Conditions["prone"])
}

func TestOnApplyTempHP_EmitsEventWithRealID(t *testing.T) {
	state := newTestState(1)
	effect := &Effect{
		EffectID: "eff_0003", Kind: EffectKindTempHP, TargetUnitID: "hero",
		Payload: map[string]interface{}{"amount": 5, "source": "shield"},
	}
	events := onApplyTempHP(state, effect)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].EventID)
	assert.Equal(t, 5, state.Units["hero"].TempHP)
}

func TestExpireEffect_ClearsOwnedConditionsForAffliction(t *testing.T) {
	state := newTestState(1)
	target := state.Units["goblin"]
	target.Conditions = map[string]int{"poisoned": 1}
	effect := afflictionEffect("goblin")
	effect.Payload["owned_conditions"] = []string{"poisoned"}

	events := expireEffect(state, effect)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].EventID)
	assert.NotContains(t, target.Conditions, "poisoned")
}
