// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scenario loads and statically validates the JSON external
// interfaces described in spec.md §6: scenario files, content packs, and
// the modeled-effect (hazard) catalog. Everything here is read-only input
// construction for the engine package; it never mutates battle state
// itself.
package scenario

import "encoding/json"

// File is the top-level scenario document (§6 "Scenario file").
type File struct {
	BattleID string   `json:"battle_id"`
	Seed     int64    `json:"seed"`
	Map      MapSpec  `json:"map"`
	Units    []Unit   `json:"units"`
	Commands []Command `json:"commands"`

	EngineVersion int             `json:"engine_phase"`
	Flags         map[string]bool `json:"flags"`

	Objectives     []ObjectiveSpec     `json:"objectives"`
	ObjectivePacks []ObjectivePackSpec `json:"objective_packs"`

	EnemyPolicy *EnemyPolicySpec `json:"enemy_policy"`

	MissionEvents        []MissionEvent        `json:"mission_events"`
	ReinforcementWaves   []ReinforcementWave   `json:"reinforcement_waves"`
	HazardRoutines       []HazardRoutineSpec   `json:"hazard_routines"`

	MaxSteps int `json:"max_steps"`

	ContentPacks            []string `json:"content_packs"`
	ContentPackID           string   `json:"content_pack_id"`
	RequiredContentFeatures []string `json:"required_content_features"`
}

// MapSpec is the scenario's static battlefield.
type MapSpec struct {
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Blocked [][2]int   `json:"blocked"`
}

// Unit is one combatant's starting configuration.
type Unit struct {
	ID         string  `json:"id"`
	Team       string  `json:"team"`
	HP         int     `json:"hp"`
	MaxHP      int     `json:"max_hp"`
	Position   [2]int  `json:"position"`
	Initiative int     `json:"initiative"`
	AttackMod  int     `json:"attack_mod"`
	AC         int     `json:"ac"`
	Damage     string  `json:"damage"`

	TempHP             int      `json:"temp_hp"`
	AttackDamageType   string   `json:"attack_damage_type"`
	AttackDamageBypass []string `json:"attack_damage_bypass"`

	Fortitude int `json:"fortitude"`
	Reflex    int `json:"reflex"`
	Will      int `json:"will"`

	ConditionImmunities []string       `json:"condition_immunities"`
	Resistances         map[string]int `json:"resistances"`
	Weaknesses          map[string]int `json:"weaknesses"`
	Immunities          []string       `json:"immunities"`
}

// Command is a raw JSON command as it appears in commands[] or a mission
// event's commands[]/then_commands[]/else_commands[]. It is decoded into an
// engine.Command by the materializer in convert.go.
type Command struct {
	Type   string          `json:"type"`
	Actor  string          `json:"actor"`
	Raw    json.RawMessage `json:"-"`
}

// UnmarshalJSON captures both the discriminant fields and the full raw
// document, since each command type's remaining fields differ.
func (c *Command) UnmarshalJSON(data []byte) error {
	type alias struct {
		Type  string `json:"type"`
		Actor string `json:"actor"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	c.Type = a.Type
	c.Actor = a.Actor
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ObjectiveSpec is one primitive objective entry.
type ObjectiveSpec struct {
	Type      string `json:"type"`
	Result    string `json:"result"`
	Team      string `json:"team"`
	UnitID    string `json:"unit_id"`
	Tile      [2]int `json:"tile"`
	Flag      string `json:"flag"`
	Value     bool   `json:"value"`
	MinRounds int    `json:"min_rounds"`
}

// ObjectivePackSpec is a higher-level objective that expands into primitives
// (§4.8, e.g. escape_unit).
type ObjectivePackSpec struct {
	Type        string `json:"type"`
	UnitID      string `json:"unit_id"`
	Tile        [2]int `json:"tile"`
	DefeatOnDeath bool `json:"defeat_on_death"`
}

// EnemyPolicySpec configures the driver's automatic enemy-turn behavior.
type EnemyPolicySpec struct {
	Enabled          bool     `json:"enabled"`
	Teams            []string `json:"teams"`
	Action           string   `json:"action"`
	ContentEntryID   string   `json:"content_entry_id"`
	DC               int      `json:"dc"`
	IncludeRationale bool     `json:"include_rationale"`
	AutoEndTurn      bool     `json:"auto_end_turn"`
}

// MissionEvent is a one-shot or repeating scripted trigger (§4.7).
type MissionEvent struct {
	ID       string `json:"id"`
	Trigger  string `json:"trigger"`

	Round       *int   `json:"round"`
	StartRound  *int   `json:"start_round"`
	EndRound    *int   `json:"end_round"`
	ActiveUnit  string `json:"active_unit"`
	EnabledFlag string `json:"enabled_flag"`
	DisabledFlag string `json:"disabled_flag"`
	Once        bool   `json:"once"`

	UnitID string `json:"unit_id"` // unit_dead / unit_alive trigger
	Flag   string `json:"flag"`    // flag_set trigger
	Value  bool   `json:"value"`   // flag_set trigger

	Commands []Command `json:"commands"`

	IfFlag       string    `json:"if_flag"`
	ThenCommands []Command `json:"then_commands"`
	ElseCommands []Command `json:"else_commands"`
}

// ReinforcementWave expands into a mission event whose commands spawn units
// (and optionally set a flag) (§6).
type ReinforcementWave struct {
	ID         string   `json:"id"`
	Round      int      `json:"round"`
	Units      []Unit   `json:"units"`
	Placement  string   `json:"placement"`
	SetFlag    string   `json:"set_flag"`
	FlagValue  bool     `json:"flag_value"`
}

// HazardRoutineSpec is a per-unit automatic hazard trigger (§4.7).
type HazardRoutineSpec struct {
	ID             string `json:"id"`
	UnitID         string `json:"unit_id"`
	HazardID       string `json:"hazard_id"`
	SourceName     string `json:"source_name"`
	StartRound     int    `json:"start_round"`
	CadenceRounds  int    `json:"cadence_rounds"`
	MaxTriggers    int    `json:"max_triggers"`
	Once           bool   `json:"once"`
	Priority       int    `json:"priority"`
	AutoEndTurn    bool   `json:"auto_end_turn"`
	TargetPolicy   string `json:"target_policy"`
	ExplicitTarget string `json:"explicit_target"`
}

// ContentPack is a versioned catalog of template-command entries (§6).
type ContentPack struct {
	PackID        string        `json:"pack_id"`
	Version       string        `json:"version"`
	Compatibility Compatibility `json:"compatibility"`
	Entries       []ContentEntry `json:"entries"`
}

// Compatibility declares which engine phases a content pack supports.
type Compatibility struct {
	MinEnginePhase int      `json:"min_engine_phase"`
	MaxEnginePhase int      `json:"max_engine_phase"`
	FeatureTags    []string `json:"feature_tags"`
}

// ContentEntry is one spell/feat/item/trait/condition/action definition.
type ContentEntry struct {
	ID        string                 `json:"id"`
	Kind      string                 `json:"kind"`
	SourceRef string                 `json:"source_ref"`
	Tags      []string               `json:"tags"`
	Payload   map[string]interface{} `json:"payload"`
}

// HazardCatalog is the modeled-effect catalog (§6).
type HazardCatalog struct {
	Hazards struct {
		Entries []HazardEntry `json:"entries"`
	} `json:"hazards"`
}

// HazardEntry groups the sources (trap triggers, routine effects) for one
// named hazard.
type HazardEntry struct {
	ID      string         `json:"id"`
	Sources []HazardSource `json:"sources"`
}

// HazardSource is one effect-event list a trigger_hazard_source/
// run_hazard_routine command resolves against.
type HazardSource struct {
	SourceType string          `json:"source_type"`
	SourceName string          `json:"source_name"`
	Effects    []EffectEventRaw `json:"effects"`
	RawText    string          `json:"raw_text"`
}

// EffectEventRaw is one entry in a hazard source's effects[] list, decoded
// generically since its shape depends on Kind.
type EffectEventRaw struct {
	Kind string                 `json:"kind"`
	Data map[string]interface{} `json:"-"`
}

// UnmarshalJSON keeps Kind plus the full field set for convert.go to
// interpret per-kind.
func (e *EffectEventRaw) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	kind, _ := m["kind"].(string)
	e.Kind = kind
	e.Data = m
	return nil
}
