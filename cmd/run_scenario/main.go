// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

// Command run_scenario loads a scenario file and runs it to completion
// through the driver package, writing the resulting JSON document (§6) to
// stdout or --out. The doctor subcommand performs the same loading and
// static validation without running the battle.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/00d/skirmish/dice"
	"github.com/00d/skirmish/driver"
	"github.com/00d/skirmish/engine"
	"github.com/00d/skirmish/grid"
	"github.com/00d/skirmish/rpgerr"
	"github.com/00d/skirmish/scenario"
)

// runOutput is the JSON document §6 specifies for a finished run.
type runOutput struct {
	RunID                string             `json:"run_id"`
	BattleID             string             `json:"battle_id"`
	Seed                 int64              `json:"seed"`
	EnginePhase          int                `json:"engine_phase"`
	ExecutedCommands     int                `json:"executed_commands"`
	AutoExecutedCommands int                `json:"auto_executed_commands"`
	StopReason           driver.StopReason  `json:"stop_reason"`
	EventCount           int                `json:"event_count"`
	ReplayHash           string             `json:"replay_hash"`
	FinalState           *engine.BattleState `json:"final_state"`
	ContentPackContext   []contentPackRef   `json:"content_pack_context"`
	Events               []engine.Event     `json:"events"`
	Forecasts            []forecastEntry    `json:"forecasts,omitempty"`
}

type contentPackRef struct {
	PackID  string `json:"pack_id"`
	Version string `json:"version"`
}

// forecastEntry previews the opening strike of the active unit against its
// nearest enemy (--forecast): a representative sample, not a forecast of
// every legal command.
type forecastEntry struct {
	ActorID  string                `json:"actor_id"`
	TargetID string                `json:"target_id"`
	Strike   *engine.StrikeForecast `json:"strike,omitempty"`
}

func buildForecasts(state *engine.BattleState) []forecastEntry {
	active := state.ActiveUnit()
	if active == nil {
		return nil
	}
	var target *engine.Unit
	bestDist := -1
	var targetID string
	for _, id := range state.SortedAliveUnitIDs() {
		u := state.Units[id]
		if u.Team == active.Team {
			continue
		}
		dist := grid.ManhattanDistance(active.Position, u.Position)
		if bestDist == -1 || dist < bestDist {
			bestDist, target, targetID = dist, u, id
		}
	}
	if target == nil {
		return nil
	}
	forecast, err := engine.ForecastStrike(active.AttackMod, target.AC, active.Damage)
	if err != nil {
		return []forecastEntry{{ActorID: active.UnitID, TargetID: targetID}}
	}
	return []forecastEntry{{ActorID: active.UnitID, TargetID: targetID, Strike: &forecast}}
}

func main() {
	cfgViper := viper.New()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "run_scenario <scenario.json>",
		Short: "Run a tactical combat scenario to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(cfgViper, cmd)
			cfg, err := loadConfig(cfgViper)
			if err != nil {
				return err
			}
			cfg.ScenarioPath = args[0]
			applyLogLevel(&logger, cfg.LogLevel)
			return runScenario(cfg, logger)
		},
	}
	root.Flags().String("out", "", "write the result JSON document to this path instead of stdout")
	root.Flags().Bool("forecast", false, "include a forecasts[] array computed before execution")
	root.Flags().Bool("pretty", false, "print a human-readable summary to stderr in addition to the JSON document")
	root.Flags().String("content-dir", "", "directory of content pack JSON files to load")
	root.Flags().String("hazard-catalog", "", "hazard catalog JSON path")
	root.Flags().String("log-level", "info", "zerolog level: debug, info, warn, error")

	doctor := &cobra.Command{
		Use:   "doctor <scenario.json>",
		Short: "Validate a scenario and its content packs without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(cfgViper, cmd)
			cfg, err := loadConfig(cfgViper)
			if err != nil {
				return err
			}
			cfg.ScenarioPath = args[0]
			applyLogLevel(&logger, cfg.LogLevel)
			return runDoctor(cfg, logger)
		},
	}
	doctor.Flags().String("content-dir", "", "directory of content pack JSON files to load")
	doctor.Flags().String("hazard-catalog", "", "hazard catalog JSON path")
	root.AddCommand(doctor)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for _, name := range []string{"out", "forecast", "pretty", "content-dir", "hazard-catalog", "log-level"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), f)
		}
	}
}

func applyLogLevel(logger *zerolog.Logger, level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	*logger = logger.Level(parsed)
}

func loadContentAndCatalog(cfg Config, logger zerolog.Logger) ([]*scenario.ContentPack, *scenario.HazardCatalog, error) {
	var packs []*scenario.ContentPack
	if cfg.ContentDir != "" {
		entries, err := os.ReadDir(cfg.ContentDir)
		if err != nil {
			return nil, nil, rpgerr.New(rpgerr.CodeNotFound, fmt.Sprintf("cannot read content dir %q", cfg.ContentDir))
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			loadTxID := uuid.NewString()
			pack, err := scenario.LoadContentPack(cfg.ContentDir + "/" + e.Name())
			if err != nil {
				logger.Error().Str("load_tx_id", loadTxID).Str("file", e.Name()).Err(err).Msg("content pack load failed")
				return nil, nil, err
			}
			logger.Debug().Str("load_tx_id", loadTxID).Str("pack_id", pack.PackID).Msg("content pack loaded")
			packs = append(packs, pack)
		}
	}

	var catalog *scenario.HazardCatalog
	if cfg.HazardCatalogPath != "" {
		c, err := scenario.LoadHazardCatalog(cfg.HazardCatalogPath)
		if err != nil {
			return nil, nil, err
		}
		catalog = c
	}
	return packs, catalog, nil
}

func runScenario(cfg Config, logger zerolog.Logger) error {
	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()

	file, err := scenario.LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return err
	}
	packs, catalog, err := loadContentAndCatalog(cfg, logger)
	if err != nil {
		return err
	}
	for _, pack := range packs {
		if err := scenario.CheckEnginePhaseCompatibility(pack, file.EngineVersion); err != nil {
			return err
		}
	}
	if err := scenario.RequireContentFeatures(firstPack(packs), file.RequiredContentFeatures); err != nil {
		return err
	}

	state := scenario.BuildBattleState(file)
	objectives, err := scenario.BuildObjectives(file)
	if err != nil {
		return err
	}

	var forecasts []forecastEntry
	if cfg.Forecast {
		forecasts = buildForecasts(state)
	}

	roller := dice.NewSeededRoller(file.Seed)
	rng := engine.NewRNG(context.Background(), roller)

	d := driver.New(state, rng, file, packs, catalog, objectives, logger)
	result := d.Run()

	hash, err := engine.ReplayHash(result.Events)
	if err != nil {
		return err
	}

	out := runOutput{
		RunID:                runID,
		BattleID:             result.BattleID,
		Seed:                 result.Seed,
		EnginePhase:          result.EnginePhase,
		ExecutedCommands:     result.ExecutedCommands,
		AutoExecutedCommands: result.AutoExecutedCommands,
		StopReason:           result.StopReason,
		EventCount:           len(result.Events),
		ReplayHash:           hash,
		FinalState:           result.FinalState,
		ContentPackContext:   packRefs(packs),
		Events:               result.Events,
		Forecasts:            forecasts,
	}

	if cfg.Pretty {
		fmt.Fprint(os.Stderr, renderPretty(result))
	}
	return writeJSON(cfg.OutPath, out)
}

func runDoctor(cfg Config, logger zerolog.Logger) error {
	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()

	file, err := scenario.LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return err
	}
	packs, catalog, err := loadContentAndCatalog(cfg, logger)
	if err != nil {
		return err
	}
	for _, pack := range packs {
		if err := scenario.CheckEnginePhaseCompatibility(pack, file.EngineVersion); err != nil {
			return err
		}
	}
	if err := scenario.RequireContentFeatures(firstPack(packs), file.RequiredContentFeatures); err != nil {
		return err
	}
	if _, err := scenario.BuildObjectives(file); err != nil {
		return err
	}
	for i, cmd := range file.Commands {
		if _, err := scenario.MaterializeCommand(cmd, packs, catalog); err != nil {
			return rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("commands[%d]: %v", i, err))
		}
	}
	for _, ev := range file.MissionEvents {
		for _, cmd := range ev.Commands {
			if _, err := scenario.MaterializeCommand(cmd, packs, catalog); err != nil {
				return rpgerr.New(rpgerr.CodeInvalidArgument, fmt.Sprintf("mission_event %q: %v", ev.ID, err))
			}
		}
	}
	for _, r := range file.HazardRoutines {
		if catalog != nil {
			if _, err := scenario.FindHazardSource(catalog, r.HazardID, r.SourceName); err != nil {
				return err
			}
		}
	}
	logger.Info().Str("battle_id", file.BattleID).Msg("scenario is valid")
	fmt.Fprintf(os.Stdout, "%s: OK (%d units, %d commands, %d mission events, %d hazard routines)\n",
		file.BattleID, len(file.Units), len(file.Commands), len(file.MissionEvents), len(file.HazardRoutines))
	return nil
}

func firstPack(packs []*scenario.ContentPack) *scenario.ContentPack {
	if len(packs) == 0 {
		return &scenario.ContentPack{}
	}
	return packs[0]
}

func packRefs(packs []*scenario.ContentPack) []contentPackRef {
	refs := make([]contentPackRef, 0, len(packs))
	for _, p := range packs {
		refs = append(refs, contentPackRef{PackID: p.PackID, Version: p.Version})
	}
	return refs
}

func writeJSON(outPath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(outPath, append(data, '\n'), 0o644)
}
