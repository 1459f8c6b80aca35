// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package grid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/00d/skirmish/grid"
)

func TestManhattanDistance(t *testing.T) {
	require.Equal(t, 7, grid.ManhattanDistance(grid.Position{X: 0, Y: 0}, grid.Position{X: 3, Y: 4}))
	require.Equal(t, 0, grid.ManhattanDistance(grid.Position{X: 2, Y: 2}, grid.Position{X: 2, Y: 2}))
}

func TestAdjacent(t *testing.T) {
	require.True(t, grid.Adjacent(grid.Position{X: 1, Y: 1}, grid.Position{X: 1, Y: 2}))
	require.False(t, grid.Adjacent(grid.Position{X: 1, Y: 1}, grid.Position{X: 2, Y: 2}))
}

func TestLineStraight(t *testing.T) {
	line := grid.Line(grid.Position{X: 0, Y: 0}, grid.Position{X: 3, Y: 0})
	require.Equal(t, []grid.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}, line)
}

func TestHasLineOfEffect_ClearPath(t *testing.T) {
	m := grid.NewMap(10, 10)
	require.True(t, grid.HasLineOfEffect(m, grid.Position{X: 0, Y: 0}, grid.Position{X: 5, Y: 0}))
}

func TestHasLineOfEffect_DirectBlock(t *testing.T) {
	m := grid.NewMap(10, 10)
	m.SetBlocking(grid.Position{X: 2, Y: 0}, true)
	require.False(t, grid.HasLineOfEffect(m, grid.Position{X: 0, Y: 0}, grid.Position{X: 5, Y: 0}))
}

func TestHasLineOfEffect_CornerPinch(t *testing.T) {
	m := grid.NewMap(10, 10)
	// Wall flanking the diagonal step from (0,0) to (1,1): both orthogonal
	// neighbors of the step are blocking, so the diagonal cannot slip through.
	m.SetBlocking(grid.Position{X: 1, Y: 0}, true)
	m.SetBlocking(grid.Position{X: 0, Y: 1}, true)
	require.False(t, grid.HasLineOfEffect(m, grid.Position{X: 0, Y: 0}, grid.Position{X: 1, Y: 1}))
}

func TestHasLineOfEffect_CornerPinch_SingleWallDoesNotBlock(t *testing.T) {
	m := grid.NewMap(10, 10)
	m.SetBlocking(grid.Position{X: 1, Y: 0}, true)
	require.True(t, grid.HasLineOfEffect(m, grid.Position{X: 0, Y: 0}, grid.Position{X: 1, Y: 1}))
}

func TestCover_None(t *testing.T) {
	m := grid.NewMap(10, 10)
	require.Equal(t, grid.CoverNone, grid.Cover(m, grid.Position{X: 0, Y: 0}, grid.Position{X: 4, Y: 0}))
}

func TestCover_BlockedWhenLineBroken(t *testing.T) {
	m := grid.NewMap(10, 10)
	from := grid.Position{X: 0, Y: 0}
	to := grid.Position{X: 4, Y: 0}
	m.SetBlocking(grid.Position{X: 2, Y: 0}, true)
	require.Equal(t, grid.CoverBlocked, grid.Cover(m, from, to), "a directly blocking tile on the line blocks LoE entirely")
}

// TestCover_StandardSingleFlank mirrors spec scenario S1: an 8x8 map, a block
// at (4,2), attacker at (1,1), target at (4,1) — one flanking tile blocked
// yields standard cover (+2).
func TestCover_StandardSingleFlank(t *testing.T) {
	m := grid.NewMap(8, 8)
	m.SetBlocking(grid.Position{X: 4, Y: 2}, true)
	grade := grid.Cover(m, grid.Position{X: 1, Y: 1}, grid.Position{X: 4, Y: 1})
	require.Equal(t, grid.CoverStandard, grade)
	require.Equal(t, 2, grid.CoverBonus(grade))
}

func TestCover_GreaterBothFlanksBlocked(t *testing.T) {
	m := grid.NewMap(8, 8)
	m.SetBlocking(grid.Position{X: 4, Y: 2}, true)
	m.SetBlocking(grid.Position{X: 4, Y: 0}, true)
	grade := grid.Cover(m, grid.Position{X: 1, Y: 1}, grid.Position{X: 4, Y: 1})
	require.Equal(t, grid.CoverGreater, grade)
	require.Equal(t, 4, grid.CoverBonus(grade))
}

func TestRadiusTemplate(t *testing.T) {
	m := grid.NewMap(20, 20)
	center := grid.Position{X: 10, Y: 10}
	tiles := m.RadiusTemplate(center, 1)
	require.ElementsMatch(t, []grid.Position{
		{X: 10, Y: 10},
		{X: 9, Y: 10}, {X: 11, Y: 10},
		{X: 10, Y: 9}, {X: 10, Y: 11},
	}, tiles)
}

func TestConeTemplate_IncludesOrigin(t *testing.T) {
	m := grid.NewMap(20, 20)
	origin := grid.Position{X: 5, Y: 5}
	target := grid.Position{X: 10, Y: 5}
	tiles := m.ConeTemplate(origin, target, 3)
	require.Contains(t, tiles, origin)
	require.Contains(t, tiles, grid.Position{X: 8, Y: 5})
}

func TestFeetToTiles(t *testing.T) {
	require.Equal(t, 1, grid.FeetToTiles(5))
	require.Equal(t, 6, grid.FeetToTiles(30))
	require.Equal(t, 0, grid.FeetToTiles(0))
	require.Equal(t, 1, grid.FeetToTiles(4))
	require.Equal(t, 2, grid.FeetToTiles(6))
}
