// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"fmt"

	"github.com/00d/skirmish/rpgerr"
)

// SaveType identifies which of a unit's three save modifiers to use.
type SaveType string

const (
	SaveFortitude SaveType = "fortitude"
	SaveReflex    SaveType = "reflex"
	SaveWill      SaveType = "will"
)

// SaveResult is the outcome of a single saving throw.
type SaveResult struct {
	Die      int
	Modifier int
	Total    int
	DC       int
	Degree   Degree
}

// ResolveSave picks the unit's modifier for saveType, rolls a d20 against
// rng, and resolves the degree of success against dc.
func ResolveSave(rng *RNG, u *Unit, saveType SaveType, dc int) (SaveResult, error) {
	modifier, err := saveModifier(u, saveType)
	if err != nil {
		return SaveResult{}, err
	}

	die, err := rng.D20()
	if err != nil {
		return SaveResult{}, err
	}

	degree := ResolveDegree(die, modifier, dc)
	return SaveResult{
		Die:      die,
		Modifier: modifier,
		Total:    die + modifier,
		DC:       dc,
		Degree:   degree,
	}, nil
}

func saveModifier(u *Unit, saveType SaveType) (int, error) {
	switch saveType {
	case SaveFortitude:
		return u.Fortitude, nil
	case SaveReflex:
		return u.Reflex, nil
	case SaveWill:
		return u.Will, nil
	default:
		return 0, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("unknown save type %q", saveType))
	}
}
