// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/00d/skirmish/driver"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	victoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	defeatStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// renderPretty renders a human-readable summary of a finished run for
// --pretty; the JSON document written to --out is unaffected.
func renderPretty(result driver.Result) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("battle %s", result.BattleID)))
	b.WriteString("\n")

	outcomeLine := fmt.Sprintf("stop_reason=%s", result.StopReason)
	switch result.Outcome {
	case "victory":
		outcomeLine += "  " + victoryStyle.Render(fmt.Sprintf("victory (%s)", result.WinningTeam))
	case "defeat":
		outcomeLine += "  " + defeatStyle.Render(fmt.Sprintf("defeat (%s)", result.WinningTeam))
	}
	b.WriteString(outcomeLine + "\n")

	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"executed=%d auto_executed=%d events=%d",
		result.ExecutedCommands, result.AutoExecutedCommands, len(result.Events),
	)))
	b.WriteString("\n")

	if result.CommandErrorMessage != "" {
		b.WriteString(defeatStyle.Render("command_error: " + result.CommandErrorMessage))
		b.WriteString("\n")
	}

	if result.FinalState != nil {
		b.WriteString(headingStyle.Render("units"))
		b.WriteString("\n")
		for _, id := range result.FinalState.SortedUnitIDs() {
			u := result.FinalState.Units[id]
			status := fmt.Sprintf("%-12s hp=%d/%d team=%s", id, u.HP, u.MaxHP, u.Team)
			if !u.Alive() {
				status = defeatStyle.Render(status + " (down)")
			}
			b.WriteString("  " + status + "\n")
		}
	}

	return b.String()
}
