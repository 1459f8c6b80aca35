// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

// CommandType enumerates the tagged-union command kinds the reducer
// dispatches. The richer command set is authoritative (§9 Open Question b):
// set_flag, spawn_unit, cast_spell, use_feat, use_item, interact, and
// run_hazard_routine are all implemented, not just the narrower sibling set.
type CommandType string

const (
	CommandMove                CommandType = "move"
	CommandStrike              CommandType = "strike"
	CommandEndTurn             CommandType = "end_turn"
	CommandSaveDamage          CommandType = "save_damage"
	CommandAreaSaveDamage      CommandType = "area_save_damage"
	CommandApplyEffect         CommandType = "apply_effect"
	CommandTriggerHazardSource CommandType = "trigger_hazard_source"
	CommandRunHazardRoutine    CommandType = "run_hazard_routine"
	CommandSetFlag             CommandType = "set_flag"
	CommandSpawnUnit           CommandType = "spawn_unit"
	CommandCastSpell           CommandType = "cast_spell"
	CommandUseFeat             CommandType = "use_feat"
	CommandUseItem             CommandType = "use_item"
	CommandInteract            CommandType = "interact"
)

// templateCommandTypes carries a content_entry_id the driver materializes
// against the content-pack catalog before dispatch (§3, §6).
var templateCommandTypes = map[CommandType]bool{
	CommandCastSpell: true,
	CommandUseFeat:   true,
	CommandUseItem:   true,
	CommandInteract:  true,
}

// IsTemplateCommand reports whether a command type carries a
// content_entry_id that must be expanded before the reducer can dispatch it.
func IsTemplateCommand(t CommandType) bool { return templateCommandTypes[t] }

// SpawnPlacement controls how spawn_unit resolves an in-bounds, non-blocked
// tile for the new unit.
type SpawnPlacement string

const (
	SpawnExact       SpawnPlacement = "exact"
	SpawnNearestOpen SpawnPlacement = "nearest_open"
)

// TargetPolicy selects targets for run_hazard_routine (§4.4).
type TargetPolicy string

const (
	PolicyNearestEnemy           TargetPolicy = "nearest_enemy"
	PolicyNearestEnemyAreaCenter TargetPolicy = "nearest_enemy_area_center"
	PolicyExplicit               TargetPolicy = "explicit"
	PolicyAllEnemies             TargetPolicy = "all_enemies"
	PolicyAsConfigured           TargetPolicy = "as_configured"
)

// Command is every variant of the tagged union flattened into one struct.
// Every variant carries Actor; other fields are populated according to Type.
// This mirrors the JSON shape a scenario/mission-event/policy command
// arrives in (§6) and is the representation the driver materializes
// template commands into before calling ApplyCommand.
type Command struct {
	Type  CommandType
	Actor string

	// move
	X, Y int

	// strike / apply_effect / save_damage target
	Target string

	// save_damage / area_save_damage
	SaveType   SaveType
	DC         int
	Formula    string
	DamageType string
	Bypass     []string
	Mode       string // "basic"

	// area_save_damage / trigger_hazard_source / run_hazard_routine
	CenterX, CenterY int
	HasCenter        bool
	RadiusTiles      int
	IncludeActor     bool

	// apply_effect
	EffectKind     string
	Payload        map[string]interface{}
	DurationRounds *int
	TickTiming     string

	// trigger_hazard_source / run_hazard_routine. ModeledEffects is the
	// already-looked-up hazard catalog source's effect event list: the
	// driver resolves HazardID/SourceName against the modeled-effect
	// catalog before dispatch, the reducer only runs the resolver in §4.5
	// against whatever list it is handed.
	HazardID       string
	SourceName     string
	ModeledEffects []ModeledEffectEvent
	TargetPolicy   TargetPolicy
	ExplicitTarget string

	// set_flag
	Flag  string
	Value bool

	// spawn_unit
	UnitID    string
	Team      string
	HP        int
	MaxHP     int
	Placement SpawnPlacement
	NearX     int
	NearY     int
	SpendAction bool
	Initiative int
	AttackMod  int
	AC         int
	Damage     string

	// template commands (cast_spell / use_feat / use_item / interact).
	// MaterializedType is set by the driver when it expands ContentEntryID
	// against the content pack: the entry's payload.command_type tells the
	// reducer which primitive command this template ultimately dispatches
	// as (§9 Open Question d governs the field-merge precedence that
	// produces the rest of the command's fields).
	ContentEntryID   string
	MaterializedType CommandType
}

// EffectiveType returns MaterializedType when set (a template command the
// driver has expanded against the content pack), else Type.
func (c Command) EffectiveType() CommandType {
	if c.MaterializedType != "" {
		return c.MaterializedType
	}
	return c.Type
}
