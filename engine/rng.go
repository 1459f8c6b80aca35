// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"

	"github.com/00d/skirmish/dice"
)

// RNG is the single seeded integer stream a battle draws from. It wraps a
// dice.Roller: the roller already gives us a seeded, reproducible source,
// RNG just narrows its interface to the two primitives the reducer is
// specified against (randint, d20) so the reducer's RNG consumption order is
// easy to read off the code.
type RNG struct {
	ctx    context.Context
	roller dice.Roller
}

// NewRNG wraps a dice.Roller (typically dice.NewSeededRoller(seed)) for use
// by the reducer. ctx is threaded through to the roller on every call; it
// carries no cancellation semantics here since rolls never block, but keeps
// the Roller interface's context-aware contract intact.
func NewRNG(ctx context.Context, roller dice.Roller) *RNG {
	return &RNG{ctx: ctx, roller: roller}
}

// Randint returns a uniformly distributed integer in [lo, hi], inclusive.
func (r *RNG) Randint(lo, hi int) (int, error) {
	if hi < lo {
		lo, hi = hi, lo
	}
	size := hi - lo + 1
	roll, err := r.roller.Roll(r.ctx, size)
	if err != nil {
		return 0, err
	}
	// roller.Roll returns a value in [1, size]; shift into [lo, hi].
	return lo + (roll - 1), nil
}

// D20 rolls a single d20: Randint(1, 20).
func (r *RNG) D20() (int, error) {
	return r.roller.Roll(r.ctx, 20)
}

// RollN rolls count dice of the given size and returns the individual
// results, in roll order.
func (r *RNG) RollN(count, size int) ([]int, error) {
	if count == 0 {
		return nil, nil
	}
	return r.roller.RollN(r.ctx, count, size)
}
