// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"encoding/json"
	"fmt"

	"github.com/00d/skirmish/engine"
	"github.com/00d/skirmish/grid"
	"github.com/00d/skirmish/rpgerr"
)

// BuildBattleState constructs the initial engine.BattleState from a loaded
// scenario file.
func BuildBattleState(file *File) *engine.BattleState {
	m := engine.NewMap(file.Map.Width, file.Map.Height)
	for _, b := range file.Map.Blocked {
		m.Grid.SetBlocking(grid.Position{X: b[0], Y: b[1]}, true)
	}

	units := make(map[string]*engine.Unit, len(file.Units))
	for _, u := range file.Units {
		units[u.ID] = convertUnit(u)
	}

	state := &engine.BattleState{
		BattleID:    file.BattleID,
		Seed:        file.Seed,
		RoundNumber: 1,
		Units:       units,
		Map:         m,
		Effects:     make(map[string]*engine.Effect),
		Flags:       file.Flags,
	}
	if state.Flags == nil {
		state.Flags = make(map[string]bool)
	}
	state.RebuildTurnOrder()
	if active := state.ActiveUnit(); active != nil {
		active.ActionsRemaining = 3
		active.ReactionAvailable = true
	}
	return state
}

func convertUnit(u Unit) *engine.Unit {
	unit := &engine.Unit{
		UnitID:             u.ID,
		Team:               u.Team,
		HP:                 u.HP,
		MaxHP:              u.MaxHP,
		Position:           grid.Position{X: u.Position[0], Y: u.Position[1]},
		Initiative:         u.Initiative,
		AttackMod:          u.AttackMod,
		AC:                 u.AC,
		Damage:             u.Damage,
		TempHP:             u.TempHP,
		Fortitude:          u.Fortitude,
		Reflex:             u.Reflex,
		Will:               u.Will,
		AttackDamageType:   u.AttackDamageType,
		AttackDamageBypass: u.AttackDamageBypass,
		Conditions:          make(map[string]int),
		ConditionImmunities: make(map[string]bool),
		Resistances:         make(map[string]int),
		Weaknesses:          make(map[string]int),
		Immunities:          make(map[string]bool),
	}
	if u.TempHP > 0 {
		unit.TempHPSource = "scenario:initial"
	}
	for _, c := range u.ConditionImmunities {
		unit.ConditionImmunities[engine.NormalizeName(c)] = true
	}
	for k, v := range u.Resistances {
		unit.Resistances[engine.NormalizeDamageType(k)] = v
	}
	for k, v := range u.Weaknesses {
		unit.Weaknesses[engine.NormalizeDamageType(k)] = v
	}
	for _, im := range u.Immunities {
		unit.Immunities[engine.NormalizeDamageType(im)] = true
	}
	return unit
}

// BuildObjectives expands objectives[] and objective_packs[] into primitive
// engine.Objective values (§4.8).
func BuildObjectives(file *File) ([]engine.Objective, error) {
	out := make([]engine.Objective, 0, len(file.Objectives))
	for _, o := range file.Objectives {
		obj, err := convertObjective(o)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	for _, pack := range file.ObjectivePacks {
		expanded, err := expandObjectivePack(pack)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func convertObjective(o ObjectiveSpec) (engine.Objective, error) {
	result := engine.ObjectiveResult(o.Result)
	if result != engine.ObjectiveVictory && result != engine.ObjectiveDefeat {
		return engine.Objective{}, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("objective has invalid result %q", o.Result))
	}
	return engine.Objective{
		Type:      engine.ObjectiveType(o.Type),
		Result:    result,
		Team:      o.Team,
		UnitID:    o.UnitID,
		TileX:     o.Tile[0],
		TileY:     o.Tile[1],
		Flag:      o.Flag,
		Value:     o.Value,
		MinRounds: o.MinRounds,
	}, nil
}

// expandObjectivePack expands a higher-level objective pack into primitives,
// e.g. escape_unit → a reach-tile victory objective plus an optional
// unit-dead defeat objective (§4.8).
func expandObjectivePack(pack ObjectivePackSpec) ([]engine.Objective, error) {
	switch pack.Type {
	case "escape_unit":
		out := []engine.Objective{{
			Type:   engine.ObjectiveUnitReachTile,
			Result: engine.ObjectiveVictory,
			UnitID: pack.UnitID,
			TileX:  pack.Tile[0],
			TileY:  pack.Tile[1],
		}}
		if pack.DefeatOnDeath {
			out = append(out, engine.Objective{
				Type:   engine.ObjectiveUnitDead,
				Result: engine.ObjectiveDefeat,
				UnitID: pack.UnitID,
			})
		}
		return out, nil
	default:
		return nil, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("unknown objective pack type %q", pack.Type))
	}
}

// ConvertModeledEffects decodes a hazard source's raw effects list into
// engine.ModeledEffectEvent values (§6's modeled-effect catalog).
func ConvertModeledEffects(raws []EffectEventRaw) ([]engine.ModeledEffectEvent, error) {
	out := make([]engine.ModeledEffectEvent, 0, len(raws))
	for _, raw := range raws {
		ev, err := convertModeledEffect(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func convertModeledEffect(raw EffectEventRaw) (engine.ModeledEffectEvent, error) {
	ev := engine.ModeledEffectEvent{Kind: raw.Kind}
	switch raw.Kind {
	case "save_check":
		ev.SaveType = engine.SaveType(stringField(raw.Data, "save_type"))
		ev.DC = intField(raw.Data, "dc")
	case "damage":
		ev.Formula = stringField(raw.Data, "formula")
		ev.DamageType = stringField(raw.Data, "damage_type")
		ev.Bypass = stringSliceField(raw.Data, "bypass")
	case "apply_condition":
		ev.ConditionName = stringField(raw.Data, "name")
		ev.ConditionSeverity = intField(raw.Data, "severity")
	case "area":
		ev.AreaShape = engine.AreaShape(stringField(raw.Data, "shape"))
		ev.AreaSizeFeet = intField(raw.Data, "size_feet")
	case "affliction":
		ev.SaveType = engine.SaveType(stringField(raw.Data, "save_type"))
		ev.DC = intField(raw.Data, "dc")
		ev.MaxStage = intField(raw.Data, "max_stage")
		ev.Stages = convertAfflictionStages(raw.Data)
	case "transform", "teleport":
		ev.Special = stringField(raw.Data, "special")
	case "instant_death", "special_lethality":
		// no extra fields
	default:
		return engine.ModeledEffectEvent{}, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("unknown modeled effect kind %q", raw.Kind))
	}
	return ev, nil
}

// durationUnitMultiplier converts a duration unit keyword to a round multiplier
// (round=1, minute=10, hour=600, day=14400), per §4.5.
func durationUnitMultiplier(unit string) int {
	switch unit {
	case "minute":
		return 10
	case "hour":
		return 600
	case "day":
		return 14400
	default: // "round"
		return 1
	}
}

func convertAfflictionStages(data map[string]interface{}) []engine.AfflictionStageConfig {
	rawStages, _ := data["stages"].([]interface{})
	out := make([]engine.AfflictionStageConfig, 0, len(rawStages))
	for _, rs := range rawStages {
		stageMap, ok := rs.(map[string]interface{})
		if !ok {
			continue
		}
		durationValue := intField(stageMap, "duration_value")
		durationUnit := stringField(stageMap, "duration_unit")
		cfg := engine.AfflictionStageConfig{
			DurationRounds: durationValue * durationUnitMultiplier(durationUnit),
			DamageFormula:  stringField(stageMap, "damage_formula"),
			DamageType:     stringField(stageMap, "damage_type"),
		}
		rawConditions, _ := stageMap["conditions"].([]interface{})
		for _, rc := range rawConditions {
			cMap, ok := rc.(map[string]interface{})
			if !ok {
				continue
			}
			cfg.Conditions = append(cfg.Conditions, engine.ConditionGrant{
				Name:     stringField(cMap, "name"),
				Severity: intField(cMap, "severity"),
				Persists: boolField(cMap, "persists"),
			})
		}
		out = append(out, cfg)
	}
	return out
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func boolField(m map[string]interface{}, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, _ := m[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// MaterializeCommand decodes a raw scenario Command into an engine.Command.
// For template command types (cast_spell/use_feat/use_item/interact) it
// looks up ContentEntryID in packs and shallow-merges the entry's
// payload.command_type-driven fields under the command's own explicit
// fields, the command winning on key collision (Open Question (d), §13).
func MaterializeCommand(raw Command, packs []*ContentPack, catalog *HazardCatalog) (engine.Command, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw.Raw, &generic); err != nil {
		return engine.Command{}, rpgerr.New(rpgerr.CodeInvalidArgument, "malformed command JSON")
	}

	cmdType := engine.CommandType(raw.Type)
	if engine.IsTemplateCommand(cmdType) {
		return materializeTemplateCommand(cmdType, generic, packs, catalog)
	}
	return decodeCommandFields(cmdType, generic, catalog)
}

func materializeTemplateCommand(cmdType engine.CommandType, generic map[string]interface{}, packs []*ContentPack, catalog *HazardCatalog) (engine.Command, error) {
	entryID, _ := generic["content_entry_id"].(string)
	entry, err := FindContentEntry(packs, entryID)
	if err != nil {
		return engine.Command{}, err
	}

	merged := make(map[string]interface{}, len(entry.Payload)+len(generic))
	for k, v := range entry.Payload {
		merged[k] = v
	}
	for k, v := range generic {
		merged[k] = v
	}

	materializedType := engine.CommandType(stringField(entry.Payload, "command_type"))
	cmd, err := decodeCommandFields(materializedType, merged, catalog)
	if err != nil {
		return engine.Command{}, err
	}
	cmd.Type = cmdType
	cmd.MaterializedType = materializedType
	cmd.ContentEntryID = entryID
	cmd.Actor, _ = generic["actor"].(string)
	return cmd, nil
}

// decodeCommandFields maps a generic JSON object onto the flattened
// engine.Command struct for the given primitive command type.
func decodeCommandFields(cmdType engine.CommandType, m map[string]interface{}, catalog *HazardCatalog) (engine.Command, error) {
	cmd := engine.Command{Type: cmdType, Actor: stringField(m, "actor")}

	switch cmdType {
	case engine.CommandMove:
		pos := positionField(m, "position")
		cmd.X, cmd.Y = pos[0], pos[1]

	case engine.CommandStrike:
		cmd.Target = stringField(m, "target")

	case engine.CommandEndTurn:
		// no fields

	case engine.CommandSaveDamage:
		cmd.Target = stringField(m, "target")
		cmd.SaveType = engine.SaveType(stringField(m, "save_type"))
		cmd.DC = intField(m, "dc")
		cmd.Formula = stringField(m, "formula")
		cmd.DamageType = stringField(m, "damage_type")
		cmd.Bypass = stringSliceField(m, "bypass")
		cmd.Mode = stringFieldOr(m, "mode", "basic")

	case engine.CommandAreaSaveDamage:
		center := positionField(m, "center")
		cmd.CenterX, cmd.CenterY = center[0], center[1]
		cmd.HasCenter = true
		cmd.RadiusTiles = intField(m, "radius_tiles")
		cmd.SaveType = engine.SaveType(stringField(m, "save_type"))
		cmd.DC = intField(m, "dc")
		cmd.Formula = stringField(m, "formula")
		cmd.DamageType = stringField(m, "damage_type")
		cmd.Bypass = stringSliceField(m, "bypass")
		cmd.Mode = stringFieldOr(m, "mode", "basic")
		cmd.IncludeActor = boolField(m, "include_actor")

	case engine.CommandApplyEffect:
		cmd.Target = stringField(m, "target")
		cmd.EffectKind = stringField(m, "effect_kind")
		payload, _ := m["payload"].(map[string]interface{})
		cmd.Payload = payload
		if dr, ok := m["duration_rounds"]; ok {
			d := intField(map[string]interface{}{"d": dr}, "d")
			cmd.DurationRounds = &d
		}
		cmd.TickTiming = stringField(m, "tick_timing")

	case engine.CommandTriggerHazardSource:
		cmd.HazardID = stringField(m, "hazard_id")
		cmd.SourceName = stringField(m, "source_name")
		cmd.ExplicitTarget = stringField(m, "explicit_target")
		if center, ok := m["center"]; ok {
			pos := positionFieldFromAny(center)
			cmd.CenterX, cmd.CenterY, cmd.HasCenter = pos[0], pos[1], true
		}
		if catalog != nil {
			source, err := FindHazardSource(catalog, cmd.HazardID, cmd.SourceName)
			if err != nil {
				return engine.Command{}, err
			}
			effects, err := ConvertModeledEffects(source.Effects)
			if err != nil {
				return engine.Command{}, err
			}
			cmd.ModeledEffects = effects
		}

	case engine.CommandRunHazardRoutine:
		cmd.HazardID = stringField(m, "hazard_id")
		cmd.SourceName = stringField(m, "source_name")
		cmd.TargetPolicy = engine.TargetPolicy(stringField(m, "target_policy"))
		cmd.ExplicitTarget = stringField(m, "explicit_target")
		if catalog != nil {
			source, err := FindHazardSource(catalog, cmd.HazardID, cmd.SourceName)
			if err != nil {
				return engine.Command{}, err
			}
			effects, err := ConvertModeledEffects(source.Effects)
			if err != nil {
				return engine.Command{}, err
			}
			cmd.ModeledEffects = effects
		}

	case engine.CommandSetFlag:
		cmd.Flag = stringField(m, "flag")
		cmd.Value = boolField(m, "value")

	case engine.CommandSpawnUnit:
		cmd.UnitID = stringField(m, "unit_id")
		cmd.Team = stringField(m, "team")
		cmd.HP = intField(m, "hp")
		cmd.MaxHP = intField(m, "max_hp")
		pos := positionField(m, "position")
		cmd.X, cmd.Y = pos[0], pos[1]
		cmd.Placement = engine.SpawnPlacement(stringFieldOr(m, "placement", "exact"))
		cmd.SpendAction = boolField(m, "spend_action")
		cmd.Initiative = intField(m, "initiative")
		cmd.AttackMod = intField(m, "attack_mod")
		cmd.AC = intField(m, "ac")
		cmd.Damage = stringField(m, "damage")

	default:
		return engine.Command{}, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("unsupported command type %q", cmdType))
	}

	return cmd, nil
}

// DecodeCommandFields exposes decodeCommandFields to other packages: the
// driver materializes enemy-policy content entries directly against a
// unit/target it computed itself, with no raw scenario command to merge
// against.
func DecodeCommandFields(cmdType engine.CommandType, m map[string]interface{}, catalog *HazardCatalog) (engine.Command, error) {
	return decodeCommandFields(cmdType, m, catalog)
}

func stringFieldOr(m map[string]interface{}, key, def string) string {
	if v := stringField(m, key); v != "" {
		return v
	}
	return def
}

func positionField(m map[string]interface{}, key string) [2]int {
	return positionFieldFromAny(m[key])
}

func positionFieldFromAny(v interface{}) [2]int {
	arr, ok := v.([]interface{})
	if !ok || len(arr) < 2 {
		return [2]int{}
	}
	x, _ := arr[0].(float64)
	y, _ := arr[1].(float64)
	return [2]int{int(x), int(y)}
}
