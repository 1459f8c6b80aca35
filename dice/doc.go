// Package dice provides seeded, deterministic random number generation for
// the combat engine, without implementing any game-specific rules.
//
// Purpose:
// This package offers deterministic dice rolling with modifier support, so a
// battle replayed from the same seed and command log produces identical
// rolls every time.
//
// Scope:
//   - Dice notation parsing (e.g., "3d6+2", "1d20-1")
//   - Seeded, reproducible random generation
//   - Modifier system for bonuses and penalties
//   - Individual die results
//   - Deterministic rolling for testing
//   - Support for standard polyhedral dice (d4, d6, d8, d10, d12, d20, d100)
//   - Mathematical operations on roll results
//
// Non-Goals:
//   - Game-specific roll types: Advantage/disadvantage belong in games
//   - Roll result interpretation: Critical hits/failures are game rules
//   - Dice pool mechanics: Counting successes is game-specific
//   - Reroll mechanics: When to reroll is game logic
//   - Probability calculations: Use external statistics packages
//   - Dice UI/visualization: This is pure logic
//   - Custom dice faces: Non-numeric dice are game-specific
//
// Integration:
// This package is used by:
//   - Combat systems for attack and damage rolls
//   - Skill systems for ability checks
//   - Loot systems for random generation
//   - Any game mechanic requiring random numbers
//
// The dice package provides the randomness foundation but makes no
// assumptions about how rolls are used or interpreted.
//
// Example:
//
//	// Create a seeded roller
//	roller := dice.NewSeededRoller(42)
//
//	// Roll 3d6+2
//	pool, err := dice.ParseNotation("3d6+2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result := pool.Roll(roller)
//	fmt.Printf("Rolled %d (dice: %v, modifier: %d)\n",
//	    result.Total(), result.Rolls(), result.Modifier())
//
//	// For testing, use deterministic roller
//	testRoller := dice.NewMockRoller(6, 5, 4) // Rolls 6, 5, 4 in order
//	result = dice.MustParseNotation("3d6").Roll(testRoller)
//	// result.Total() = 15, result.Rolls() = [[6 5 4]]
//
//	// Games implement their own mechanics
//	if gameRules.IsCriticalHit(result.Rolls()[0][0]) {
//	    // Game-specific critical logic
//	}
package dice
