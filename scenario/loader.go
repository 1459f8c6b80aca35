// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/00d/skirmish/rpgerr"
)

const currentEnginePhase = 7

// LoadScenario reads and statically validates a scenario JSON file (§6, §7
// "static/validation" errors): required keys present, unit IDs unique,
// command actor references resolvable against the unit set.
func LoadScenario(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("cannot read scenario file %q", path),
			rpgerr.WithMeta("path", path), rpgerr.WithMeta("cause", err.Error()))
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("malformed scenario JSON in %q", path),
			rpgerr.WithMeta("path", path), rpgerr.WithMeta("cause", err.Error()))
	}

	if file.EngineVersion == 0 {
		file.EngineVersion = currentEnginePhase
	}
	if file.MaxSteps == 0 {
		file.MaxSteps = 10000
	}

	if err := validateScenario(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

func validateScenario(file *File) error {
	if file.BattleID == "" {
		return rpgerr.New(rpgerr.CodeInvalidArgument, "scenario missing battle_id")
	}
	if file.Map.Width <= 0 || file.Map.Height <= 0 {
		return rpgerr.New(rpgerr.CodeInvalidArgument, "scenario map must have positive width and height",
			rpgerr.WithMeta("battle_id", file.BattleID))
	}
	if len(file.Units) == 0 {
		return rpgerr.New(rpgerr.CodeInvalidArgument, "scenario has no units",
			rpgerr.WithMeta("battle_id", file.BattleID))
	}

	seen := make(map[string]bool, len(file.Units))
	for _, u := range file.Units {
		if u.ID == "" {
			return rpgerr.New(rpgerr.CodeInvalidArgument, "unit missing id",
				rpgerr.WithMeta("battle_id", file.BattleID))
		}
		if seen[u.ID] {
			return rpgerr.New(rpgerr.CodeAlreadyExists, fmt.Sprintf("duplicate unit id %q", u.ID),
				rpgerr.WithMeta("unit_id", u.ID))
		}
		seen[u.ID] = true
	}

	for i, cmd := range file.Commands {
		if cmd.Type == "" {
			return rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("command %d missing type", i))
		}
		if cmd.Actor != "" && !seen[cmd.Actor] {
			return rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("command %d references unknown actor %q", i, cmd.Actor),
				rpgerr.WithMeta("actor", cmd.Actor))
		}
	}

	return nil
}

// LoadContentPack reads and validates one content-pack JSON file: valid
// semver, duplicate entry IDs rejected.
func LoadContentPack(path string) (*ContentPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("cannot read content pack %q", path),
			rpgerr.WithMeta("path", path))
	}
	var pack ContentPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("malformed content pack JSON in %q", path),
			rpgerr.WithMeta("path", path))
	}
	if pack.PackID == "" {
		return nil, rpgerr.New(rpgerr.CodeInvalidArgument, "content pack missing pack_id")
	}
	if !isValidSemver(pack.Version) {
		return nil, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("content pack %q has invalid semver %q", pack.PackID, pack.Version),
			rpgerr.WithMeta("pack_id", pack.PackID), rpgerr.WithMeta("version", pack.Version))
	}

	seen := make(map[string]bool, len(pack.Entries))
	for _, e := range pack.Entries {
		if e.ID == "" {
			return nil, rpgerr.New(rpgerr.CodeInvalidArgument, "content entry missing id",
				rpgerr.WithMeta("pack_id", pack.PackID))
		}
		if seen[e.ID] {
			return nil, rpgerr.New(rpgerr.CodeAlreadyExists, fmt.Sprintf("duplicate content entry id %q", e.ID),
				rpgerr.WithMeta("entry_id", e.ID))
		}
		seen[e.ID] = true
	}

	return &pack, nil
}

// CheckEnginePhaseCompatibility rejects a content pack whose compatibility
// window excludes the running engine phase.
func CheckEnginePhaseCompatibility(pack *ContentPack, enginePhase int) error {
	if pack.Compatibility.MinEnginePhase != 0 && enginePhase < pack.Compatibility.MinEnginePhase {
		return rpgerr.New(rpgerr.CodeConflictingState,
			fmt.Sprintf("content pack %q requires engine phase >= %d, running %d", pack.PackID, pack.Compatibility.MinEnginePhase, enginePhase),
			rpgerr.WithMeta("pack_id", pack.PackID))
	}
	if pack.Compatibility.MaxEnginePhase != 0 && enginePhase > pack.Compatibility.MaxEnginePhase {
		return rpgerr.New(rpgerr.CodeConflictingState,
			fmt.Sprintf("content pack %q requires engine phase <= %d, running %d", pack.PackID, pack.Compatibility.MaxEnginePhase, enginePhase),
			rpgerr.WithMeta("pack_id", pack.PackID))
	}
	return nil
}

// RequireContentFeatures fails if any of required is absent from the pack's
// feature_tags.
func RequireContentFeatures(pack *ContentPack, required []string) error {
	tags := make(map[string]bool, len(pack.Compatibility.FeatureTags))
	for _, t := range pack.Compatibility.FeatureTags {
		tags[t] = true
	}
	for _, r := range required {
		if !tags[r] {
			return rpgerr.New(rpgerr.CodeConflictingState, fmt.Sprintf("content pack %q missing required feature %q", pack.PackID, r),
				rpgerr.WithMeta("pack_id", pack.PackID), rpgerr.WithMeta("feature", r))
		}
	}
	return nil
}

// isValidSemver is a minimal MAJOR.MINOR.PATCH check; the scenario/content
// pack contract does not need full semver range comparison, only shape
// validation and the min/max engine-phase compatibility window above.
func isValidSemver(v string) bool {
	if v == "" {
		return false
	}
	parts := 1
	for _, r := range v {
		if r == '.' {
			parts++
		} else if r < '0' || r > '9' {
			return false
		}
	}
	return parts == 3
}

// LoadHazardCatalog reads the modeled-effect catalog JSON (§6).
func LoadHazardCatalog(path string) (*HazardCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("cannot read hazard catalog %q", path),
			rpgerr.WithMeta("path", path))
	}
	var catalog HazardCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("malformed hazard catalog JSON in %q", path),
			rpgerr.WithMeta("path", path))
	}
	return &catalog, nil
}

// FindHazardSource looks up hazardID/sourceName in the catalog.
func FindHazardSource(catalog *HazardCatalog, hazardID, sourceName string) (*HazardSource, error) {
	for _, entry := range catalog.Hazards.Entries {
		if entry.ID != hazardID {
			continue
		}
		for i := range entry.Sources {
			if entry.Sources[i].SourceName == sourceName {
				return &entry.Sources[i], nil
			}
		}
		return nil, rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("hazard %q has no source named %q", hazardID, sourceName),
			rpgerr.WithMeta("hazard_id", hazardID), rpgerr.WithMeta("source_name", sourceName))
	}
	return nil, rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("unknown hazard id %q", hazardID),
		rpgerr.WithMeta("hazard_id", hazardID))
}

// FindContentEntry looks up an entry by ID across a set of loaded packs.
func FindContentEntry(packs []*ContentPack, entryID string) (*ContentEntry, error) {
	for _, pack := range packs {
		for i := range pack.Entries {
			if pack.Entries[i].ID == entryID {
				return &pack.Entries[i], nil
			}
		}
	}
	return nil, rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("unknown content entry id %q", entryID),
		rpgerr.WithMeta("entry_id", entryID))
}
