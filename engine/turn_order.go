// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import "sort"

// RebuildTurnOrder recomputes s.TurnOrder (descending initiative, tie-break
// unit_id ascending) in place, preserving the currently active unit's index
// where possible: if the previously active unit is still present, turn_index
// is updated to its new position in the rebuilt order. This is invoked after
// spawn_unit inserts a new combatant mid-battle.
func (s *BattleState) RebuildTurnOrder() {
	previousActive := s.ActiveUnitID()

	ids := s.SortedUnitIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		ui, uj := s.Units[ids[i]], s.Units[ids[j]]
		if ui.Initiative != uj.Initiative {
			return ui.Initiative > uj.Initiative
		}
		return ids[i] < ids[j]
	})
	s.TurnOrder = ids

	if previousActive == "" {
		s.TurnIndex = 0
		return
	}
	for i, id := range s.TurnOrder {
		if id == previousActive {
			s.TurnIndex = i
			return
		}
	}
	s.TurnIndex = 0
}

// AdvanceTurn implements the turn-advance rule from §4.4: increment
// turn_index modulo len(turn_order); wrapping to 0 increments round_number.
// Non-alive active units are skipped until one alive unit is found or a full
// loop passes (e.g. every unit is dead, in which case turn_index comes back
// to where it started, round_number has gone up by one, and the driver will
// detect battle end separately). On
// arrival at a live unit, its actions_remaining resets to 3 and
// reaction_available to true.
func (s *BattleState) AdvanceTurn() {
	n := len(s.TurnOrder)
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		s.TurnIndex++
		if s.TurnIndex >= n {
			s.TurnIndex = 0
			s.RoundNumber++
		}
		unit := s.Units[s.TurnOrder[s.TurnIndex]]
		if unit != nil && unit.Alive() {
			unit.ActionsRemaining = 3
			unit.ReactionAvailable = true
			return
		}
	}
}
