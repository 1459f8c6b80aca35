// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDegree_Baseline(t *testing.T) {
	assert.Equal(t, DegreeCriticalSuccess, ResolveDegree(15, 5, 10)) // total 20 >= dc+10
	assert.Equal(t, DegreeSuccess, ResolveDegree(10, 2, 10))         // total 12 >= dc, < dc+10
	assert.Equal(t, DegreeFailure, ResolveDegree(5, 2, 10))          // total 7, > dc-10
	assert.Equal(t, DegreeCriticalFailure, ResolveDegree(2, -5, 20)) // total -3 <= dc-10
}

func TestResolveDegree_NaturalBumps(t *testing.T) {
	// A natural 20 bumps the baseline degree up one step even when the raw
	// total alone would only be a plain success.
	assert.Equal(t, DegreeCriticalSuccess, ResolveDegree(20, 0, 15))
	// A natural 1 bumps down one step: a critical success by total (21 >=
	// dc+10) becomes a plain success.
	assert.Equal(t, DegreeSuccess, ResolveDegree(1, 20, 10))
}

func TestResolveDegree_SaturatesAtExtremes(t *testing.T) {
	// Already critical failure: a natural 1 cannot bump it any lower.
	assert.Equal(t, DegreeCriticalFailure, ResolveDegree(1, -100, 10))
	// Already critical success: a natural 20 cannot bump it any higher.
	assert.Equal(t, DegreeCriticalSuccess, ResolveDegree(20, 100, 10))
}

func TestBasicSaveMultiplier(t *testing.T) {
	assert.Equal(t, 0.0, BasicSaveMultiplier(DegreeCriticalSuccess))
	assert.Equal(t, 0.5, BasicSaveMultiplier(DegreeSuccess))
	assert.Equal(t, 1.0, BasicSaveMultiplier(DegreeFailure))
	assert.Equal(t, 2.0, BasicSaveMultiplier(DegreeCriticalFailure))
}
