// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"encoding/json"
	"sort"
)

// battleStateJSON is the wire shape BattleState marshals to: grid.Map's
// Blocking set keys on grid.Position, which encoding/json cannot use as a
// map key directly, so MarshalJSON flattens it to a sorted [][2]int list.
type battleStateJSON struct {
	BattleID    string             `json:"battle_id"`
	Seed        int64              `json:"seed"`
	RoundNumber int                `json:"round_number"`
	TurnIndex   int                `json:"turn_index"`
	TurnOrder   []string           `json:"turn_order"`
	Units       map[string]*Unit   `json:"units"`
	Map         mapJSON            `json:"map"`
	Effects     map[string]*Effect `json:"effects"`
	Flags       map[string]bool    `json:"flags"`
}

type mapJSON struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Blocked [][2]int `json:"blocked"`
}

// MarshalJSON renders the battle state for the CLI's final_state field
// (§6). It is never used by the replay hash, which hashes the event log.
func (s *BattleState) MarshalJSON() ([]byte, error) {
	blocked := make([][2]int, 0, len(s.Map.Grid.Blocking))
	for pos, isBlocked := range s.Map.Grid.Blocking {
		if isBlocked {
			blocked = append(blocked, [2]int{pos.X, pos.Y})
		}
	}
	sort.Slice(blocked, func(i, j int) bool {
		if blocked[i][0] != blocked[j][0] {
			return blocked[i][0] < blocked[j][0]
		}
		return blocked[i][1] < blocked[j][1]
	})

	return json.Marshal(battleStateJSON{
		BattleID:    s.BattleID,
		Seed:        s.Seed,
		RoundNumber: s.RoundNumber,
		TurnIndex:   s.TurnIndex,
		TurnOrder:   s.TurnOrder,
		Units:       s.Units,
		Map:         mapJSON{Width: s.Map.Grid.Width, Height: s.Map.Grid.Height, Blocked: blocked},
		Effects:     s.Effects,
		Flags:       s.Flags,
	})
}
