// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

// Package engine implements the deterministic tactical combat reducer: the
// battle state model, the rule kernels (degree of success, damage mitigation,
// saves, conditions), the effect lifecycle, the modeled-effect resolver, and
// the apply_command state transition. ApplyCommand returns a new BattleState
// and never mutates the one passed in; lower-level helpers such as
// ProcessTiming, AdvanceTurn and EmitEvent mutate the state they are given.
package engine

import (
	"sort"
	"strings"

	"github.com/00d/skirmish/grid"
)

// Unit is a single combatant on the battle map.
type Unit struct {
	UnitID     string `json:"unit_id"`
	Team       string `json:"team"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"max_hp"`
	Position   grid.Position `json:"position"`
	Initiative int    `json:"initiative"`
	AttackMod  int    `json:"attack_mod"`
	AC         int    `json:"ac"`
	Damage     string `json:"damage"`

	TempHP               int    `json:"temp_hp"`
	TempHPSource         string `json:"temp_hp_source,omitempty"`
	TempHPOwnerEffectID  string `json:"temp_hp_owner_effect_id,omitempty"`

	Fortitude int `json:"fortitude"`
	Reflex    int `json:"reflex"`
	Will      int `json:"will"`

	ActionsRemaining  int  `json:"actions_remaining"`
	ReactionAvailable bool `json:"reaction_available"`

	Conditions          map[string]int    `json:"conditions"`
	ConditionImmunities map[string]bool   `json:"condition_immunities"`
	Resistances         map[string]int    `json:"resistances"`
	Weaknesses          map[string]int    `json:"weaknesses"`
	Immunities          map[string]bool   `json:"immunities"`

	AttackDamageType   string   `json:"attack_damage_type,omitempty"`
	AttackDamageBypass []string `json:"attack_damage_bypass,omitempty"`
}

// Alive reports whether the unit still has hit points.
func (u *Unit) Alive() bool { return u.HP > 0 }

// Clone returns a deep copy of the unit. The reducer never mutates a Unit in
// place; every command works against cloned units and installs the result
// back into the cloned state.
func (u *Unit) Clone() *Unit {
	clone := *u
	clone.Conditions = cloneIntMap(u.Conditions)
	clone.ConditionImmunities = cloneBoolMap(u.ConditionImmunities)
	clone.Resistances = cloneIntMap(u.Resistances)
	clone.Weaknesses = cloneIntMap(u.Weaknesses)
	clone.Immunities = cloneBoolMap(u.Immunities)
	if u.AttackDamageBypass != nil {
		clone.AttackDamageBypass = append([]string(nil), u.AttackDamageBypass...)
	}
	return &clone
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// isImmuneToAny reports whether the unit is immune to any of the given
// normalized tags, or to the wildcard tag the caller passes.
func (u *Unit) isImmuneToAny(tags []string, wildcard string) bool {
	if u.Immunities[wildcard] {
		return true
	}
	for _, t := range tags {
		if u.Immunities[t] {
			return true
		}
	}
	return false
}

// NormalizeName lowercases a name and replaces spaces with underscores, the
// canonical form condition and damage-type names are stored in.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Map is the battle state's static battlefield, wrapping grid geometry with
// the unit-occupancy test the reducer needs (grid.Map has no notion of
// units).
type Map struct {
	Grid *grid.Map
}

// NewMap constructs an empty battle map of the given dimensions.
func NewMap(width, height int) *Map {
	return &Map{Grid: grid.NewMap(width, height)}
}

// InBounds delegates to the underlying grid.
func (m *Map) InBounds(pos grid.Position) bool { return m.Grid.InBounds(pos) }

// IsBlocked delegates to the underlying grid.
func (m *Map) IsBlocked(pos grid.Position) bool { return m.Grid.IsBlocking(pos) }

// Effect is a long-lived attachment to a unit (condition, persistent damage,
// affliction, temp-HP grant, ...). Payload is an opaque bag of kind-specific
// fields the lifecycle in effects.go interprets.
type Effect struct {
	EffectID       string                 `json:"effect_id"`
	Kind           string                 `json:"kind"`
	SourceUnitID   string                 `json:"source_unit_id,omitempty"`
	TargetUnitID   string                 `json:"target_unit_id,omitempty"`
	Payload        map[string]interface{} `json:"payload"`
	DurationRounds *int                   `json:"duration_rounds,omitempty"`
	TickTiming     string                 `json:"tick_timing,omitempty"`

	// expireNow is an internal lifecycle signal, never serialized: a tick
	// sets it to force immediate expiry at the end of the same ProcessTiming
	// call.
	expireNow bool
}

// Clone returns a deep copy of the effect including its payload map.
func (e *Effect) Clone() *Effect {
	clone := *e
	if e.Payload != nil {
		clone.Payload = make(map[string]interface{}, len(e.Payload))
		for k, v := range e.Payload {
			clone.Payload[k] = v
		}
	}
	if e.DurationRounds != nil {
		d := *e.DurationRounds
		clone.DurationRounds = &d
	}
	clone.expireNow = false
	return &clone
}

// Event is one entry in the append-only canonical event log.
type Event struct {
	EventID    string                 `json:"event_id"`
	Round      int                    `json:"round"`
	ActiveUnit string                 `json:"active_unit"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
}

// BattleState is the complete state of one battle. ApplyCommand takes a
// *BattleState and returns a new one without mutating its input; the
// exported helpers with pointer receivers or a *BattleState argument (such as
// ProcessTiming and AdvanceTurn) change the state in place.
type BattleState struct {
	BattleID      string
	Seed          int64
	RoundNumber   int
	TurnIndex     int
	TurnOrder     []string
	Units         map[string]*Unit
	Map           *Map
	Effects       map[string]*Effect
	Flags         map[string]bool
	EventSequence int

	// effectSeq generates effect_id suffixes; kept separate from
	// EventSequence because effect creation does not itself emit an event.
	effectSeq int
}

// ActiveUnitID returns turn_order[turn_index], or "" if there is no turn
// order yet.
func (s *BattleState) ActiveUnitID() string {
	if len(s.TurnOrder) == 0 || s.TurnIndex < 0 || s.TurnIndex >= len(s.TurnOrder) {
		return ""
	}
	return s.TurnOrder[s.TurnIndex]
}

// ActiveUnit returns the active unit, or nil if none.
func (s *BattleState) ActiveUnit() *Unit {
	return s.Units[s.ActiveUnitID()]
}

// Clone returns a deep copy of the battle state: new maps, new unit and
// effect clones, but the same Map pointer only if callers never mutate the
// grid in place (they don't; SetBlocking is only called at scenario load).
func (s *BattleState) Clone() *BattleState {
	clone := &BattleState{
		BattleID:      s.BattleID,
		Seed:          s.Seed,
		RoundNumber:   s.RoundNumber,
		TurnIndex:     s.TurnIndex,
		TurnOrder:     append([]string(nil), s.TurnOrder...),
		Map:           s.Map,
		EventSequence: s.EventSequence,
		effectSeq:     s.effectSeq,
	}
	clone.Units = make(map[string]*Unit, len(s.Units))
	for id, u := range s.Units {
		clone.Units[id] = u.Clone()
	}
	clone.Effects = make(map[string]*Effect, len(s.Effects))
	for id, e := range s.Effects {
		clone.Effects[id] = e.Clone()
	}
	clone.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		clone.Flags[k] = v
	}
	return clone
}

// SortedUnitIDs returns all unit IDs in ascending order: the canonical
// iteration order §9 requires anywhere "all units"/"all alive units" is
// enumerated.
func (s *BattleState) SortedUnitIDs() []string {
	ids := make([]string, 0, len(s.Units))
	for id := range s.Units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedAliveUnitIDs returns the ascending-sorted IDs of every unit with hp>0.
func (s *BattleState) SortedAliveUnitIDs() []string {
	ids := s.SortedUnitIDs()
	out := ids[:0]
	for _, id := range ids {
		if s.Units[id].Alive() {
			out = append(out, id)
		}
	}
	return out
}

// SortedEffectIDs returns all effect IDs in ascending order.
func (s *BattleState) SortedEffectIDs() []string {
	ids := make([]string, 0, len(s.Effects))
	for id := range s.Effects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// nextEventID allocates the next "ev_NNNNNN" identifier and advances the
// counter. Callers append the returned Event to their own local event slice;
// EventSequence itself lives in state so replays are deterministic.
func (s *BattleState) nextEventID() string {
	id := formatEventID(s.EventSequence)
	s.EventSequence++
	return id
}

// nextEffectID allocates the next "eff_NNNN" identifier.
func (s *BattleState) nextEffectID() string {
	id := formatEffectID(s.effectSeq)
	s.effectSeq++
	return id
}

func (s *BattleState) emit(events *[]Event, eventType string, payload map[string]interface{}) {
	*events = append(*events, s.EmitEvent(eventType, payload))
}

// EmitEvent allocates the next event_id and returns the event, without
// appending it anywhere. Exported for the driver package, which emits
// driver-level events (battle_end, command_error) that the reducer itself
// never produces.
func (s *BattleState) EmitEvent(eventType string, payload map[string]interface{}) Event {
	return Event{
		EventID:    s.nextEventID(),
		Round:      s.RoundNumber,
		ActiveUnit: s.ActiveUnitID(),
		Type:       eventType,
		Payload:    payload,
	}
}

// CommandErrorEvent builds the command_error event the driver emits when
// ApplyCommand fails (§7): the offending command's type/actor plus the
// error's code and message.
func (s *BattleState) CommandErrorEvent(cmdType, actor, code, message string) Event {
	return s.EmitEvent("command_error", map[string]interface{}{
		"command_type": cmdType,
		"actor":        actor,
		"code":         code,
		"message":      message,
	})
}
