// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"fmt"

	"github.com/00d/skirmish/rpgerr"
)

// ReductionError is exactly *rpgerr.Error (§7, §10.1 of SPEC_FULL.md): the
// reducer never invents its own error type, it reuses the ambient rpgerr
// package with domain-appropriate codes and metadata.
type ReductionError = rpgerr.Error

func notActiveUnit(actor string) *ReductionError {
	return rpgerr.New(rpgerr.CodeNotAllowed, fmt.Sprintf("%s is not the active unit", actor),
		rpgerr.WithMeta("actor", actor))
}

func actorNotAlive(actor string) *ReductionError {
	return rpgerr.New(rpgerr.CodeInvalidState, fmt.Sprintf("%s is not alive", actor),
		rpgerr.WithMeta("actor", actor))
}

func actorUnknown(actor string) *ReductionError {
	return rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("unknown actor %q", actor),
		rpgerr.WithMeta("actor", actor))
}

func noActionsRemaining(actor string) *ReductionError {
	return rpgerr.New(rpgerr.CodeResourceExhausted, "no actions remaining this turn",
		rpgerr.WithMeta("actor", actor))
}

func targetUnknown(target string) *ReductionError {
	return rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("unknown target %q", target),
		rpgerr.WithMeta("target", target))
}

func targetNotAlive(target string) *ReductionError {
	return rpgerr.New(rpgerr.CodeInvalidTarget, fmt.Sprintf("target %q is not alive", target),
		rpgerr.WithMeta("target", target))
}

func noLineOfSight(actor, target string) *ReductionError {
	return rpgerr.New(rpgerr.CodeOutOfRange, "no line of sight to target",
		rpgerr.WithMeta("actor", actor), rpgerr.WithMeta("target", target))
}

func illegalMove(actor string, x, y int) *ReductionError {
	return rpgerr.New(rpgerr.CodeBlocked, "illegal move destination",
		rpgerr.WithMeta("actor", actor), rpgerr.WithMeta("x", x), rpgerr.WithMeta("y", y))
}

func unsupportedCommand(cmdType CommandType) *ReductionError {
	return rpgerr.New(rpgerr.CodeNotAllowed, fmt.Sprintf("unsupported command %q", cmdType),
		rpgerr.WithMeta("command_type", string(cmdType)))
}

func invalidSpawnPosition(x, y int) *ReductionError {
	return rpgerr.New(rpgerr.CodeInvalidTarget, "spawn position is out of bounds, blocked, or occupied",
		rpgerr.WithMeta("x", x), rpgerr.WithMeta("y", y))
}

func duplicateUnitID(id string) *ReductionError {
	return rpgerr.New(rpgerr.CodeAlreadyExists, fmt.Sprintf("unit id %q already exists", id),
		rpgerr.WithMeta("unit_id", id))
}
