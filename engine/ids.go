// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import "fmt"

func formatEventID(seq int) string {
	return fmt.Sprintf("ev_%06d", seq)
}

func formatEffectID(seq int) string {
	return fmt.Sprintf("eff_%04d", seq)
}
