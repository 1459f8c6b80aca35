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

func TestParseDamageFormula(t *testing.T) {
	cases := []struct {
		formula              string
		count, size, flat int
	}{
		{"2d6+3", 2, 6, 3},
		{"1d8", 1, 8, 0},
		{"2d6-1", 2, 6, -1},
		{"10", 0, 0, 10},
		{"-5", 0, 0, -5},
	}
	for _, c := range cases {
		count, size, flat, err := ParseDamageFormula(c.formula)
		require.NoError(t, err)
		assert.Equal(t, c.count, count, c.formula)
		assert.Equal(t, c.size, size, c.formula)
		assert.Equal(t, c.flat, flat, c.formula)
	}
}

func TestParseDamageFormula_Invalid(t *testing.T) {
	_, _, _, err := ParseDamageFormula("not-a-formula")
	assert.Error(t, err)
}

func TestRollDamage_ScalesAndClampsAtZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	roller := mock_dice.NewMockRoller(ctrl)
	roller.EXPECT().RollN(gomock.Any(), 2, 6).Return([]int{3, 4}, nil)
	rng := NewRNG(context.Background(), roller)

	roll, err := RollDamage(rng, "2d6+1", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, roll.Rolls)
	assert.Equal(t, 1, roll.Modifier)
	assert.Equal(t, 16, roll.Total) // (3+4+1)*2

	roll, err = RollDamage(rng, "-100", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, roll.Total)
}

func TestNormalizeDamageType_Aliases(t *testing.T) {
	assert.Equal(t, "electricity", NormalizeDamageType("Lightning"))
	assert.Equal(t, "piercing", NormalizeDamageType("pierce"))
	assert.Equal(t, "slashing", NormalizeDamageType("SLASH"))
	assert.Equal(t, "fire", NormalizeDamageType("fire"))
}

func TestDamageTags_GroupTags(t *testing.T) {
	assert.ElementsMatch(t, []string{"slashing", "physical"}, DamageTags("slash"))
	assert.ElementsMatch(t, []string{"fire", "energy"}, DamageTags("fire"))
	assert.ElementsMatch(t, []string{"poison"}, DamageTags("poison"))
}

func unitWithDefenses(resist map[string]int, weak map[string]int, immune map[string]bool) *Unit {
	return &Unit{Resistances: resist, Weaknesses: weak, Immunities: immune}
}

func TestMitigate_ImmunityShortCircuits(t *testing.T) {
	u := unitWithDefenses(nil, nil, map[string]bool{"fire": true})
	result := Mitigate(u, 10, "fire", nil)
	assert.True(t, result.Immune)
	assert.Equal(t, 0, result.AppliedTotal)
}

func TestMitigate_AllImmunityWildcard(t *testing.T) {
	u := unitWithDefenses(nil, nil, map[string]bool{"all": true})
	result := Mitigate(u, 10, "cold", nil)
	assert.True(t, result.Immune)
}

func TestMitigate_ResistanceAndWeaknessNetOut(t *testing.T) {
	u := unitWithDefenses(map[string]int{"physical": 5}, map[string]int{"slashing": 2}, nil)
	result := Mitigate(u, 10, "slashing", nil)
	assert.False(t, result.Immune)
	assert.Equal(t, 5, result.ResistanceApplied)
	assert.Equal(t, 2, result.WeaknessApplied)
	assert.Equal(t, 7, result.AppliedTotal) // 10 - 5 + 2
}

func TestMitigate_BypassRemovesResistanceButNotWeakness(t *testing.T) {
	u := unitWithDefenses(map[string]int{"fire": 10}, map[string]int{"fire": 2}, map[string]bool{"fire": true})
	result := Mitigate(u, 10, "fire", []string{"fire"})
	assert.False(t, result.Immune, "bypass should remove the matching immunity entry")
	assert.Equal(t, 0, result.ResistanceApplied, "bypass should remove the matching resistance entry")
	assert.Equal(t, 2, result.WeaknessApplied, "bypass never removes weaknesses")
	assert.Equal(t, 12, result.AppliedTotal)
}

func TestMitigate_NetNegativeClampsToZero(t *testing.T) {
	u := unitWithDefenses(map[string]int{"physical": 100}, nil, nil)
	result := Mitigate(u, 10, "bludgeoning", nil)
	assert.Equal(t, 0, result.AppliedTotal)
}

func TestMitigate_ZeroRawIsNoop(t *testing.T) {
	u := unitWithDefenses(map[string]int{"physical": 5}, nil, nil)
	result := Mitigate(u, 0, "bludgeoning", nil)
	assert.Equal(t, 0, result.AppliedTotal)
	assert.Equal(t, 0, result.ResistanceApplied)
}
