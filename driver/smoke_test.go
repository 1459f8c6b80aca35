// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package driver

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/00d/skirmish/dice"
	"github.com/00d/skirmish/engine"
	"github.com/00d/skirmish/scenario"
)

// TestSmokeScenarios_ReplayTwiceProducesIdenticalHash is the regression
// matrix S6 requires: every fixture under ../scenarios/smoke/ must replay
// to a byte-identical event log and replay hash across two independent runs
// from the same seed and command list.
func TestSmokeScenarios_ReplayTwiceProducesIdenticalHash(t *testing.T) {
	cases := []struct {
		name         string
		scenarioPath string
		catalogPath  string
	}{
		{name: "basic_strike", scenarioPath: "../scenarios/smoke/basic_strike.json"},
		{
			name:         "hidden_pit_basic",
			scenarioPath: "../scenarios/smoke/hidden_pit_basic.json",
			catalogPath:  "../scenarios/smoke/hidden_pit_hazards.json",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run := func() (string, StopReason) {
				file, err := scenario.LoadScenario(tc.scenarioPath)
				require.NoError(t, err)

				var catalog *scenario.HazardCatalog
				if tc.catalogPath != "" {
					catalog, err = scenario.LoadHazardCatalog(tc.catalogPath)
					require.NoError(t, err)
				}

				state := scenario.BuildBattleState(file)
				objectives, err := scenario.BuildObjectives(file)
				require.NoError(t, err)

				rng := engine.NewRNG(context.Background(), dice.NewSeededRoller(file.Seed))
				d := New(state, rng, file, nil, catalog, objectives, zerolog.Nop())
				result := d.Run()
				require.NotEqual(t, StopCommandError, result.StopReason, result.CommandErrorMessage)

				hash, err := engine.ReplayHash(result.Events)
				require.NoError(t, err)
				return hash, result.StopReason
			}

			hash1, reason1 := run()
			hash2, reason2 := run()
			assert.Equal(t, hash1, hash2, "two independent runs of the same scenario must produce an identical replay hash")
			assert.Equal(t, reason1, reason2)
			assert.Len(t, hash1, 64)
		})
	}
}
