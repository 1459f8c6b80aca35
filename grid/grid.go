// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

// Package grid implements the integer tile grid the combat engine resolves
// movement, line of effect, cover, and area templates against. Distance is
// Manhattan (orthogonal step count); there is no diagonal-cheaper-than-two-steps
// rule, and line of sight and line of effect are the same computation.
package grid

import "math"

// Position is a single grid tile.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position offset by another position treated as a vector.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Equals reports whether two positions are the same tile.
func (p Position) Equals(o Position) bool {
	return p.X == o.X && p.Y == o.Y
}

// CoverGrade classifies how exposed a target is along a line of effect.
type CoverGrade string

const (
	CoverNone     CoverGrade = "none"
	CoverStandard CoverGrade = "standard"
	CoverGreater  CoverGrade = "greater"
	CoverBlocked  CoverGrade = "blocked"
)

// CoverBonus returns the AC/DC bonus the grade grants the defender. Blocked
// has no numeric bonus: it means the attack cannot be made at all.
func CoverBonus(grade CoverGrade) int {
	switch grade {
	case CoverStandard:
		return 2
	case CoverGreater:
		return 4
	default:
		return 0
	}
}

// TileFeet is the length in feet of one grid tile's edge.
const TileFeet = 5

// FeetToTiles converts a distance in feet to whole tiles: ceil(feet/5) for
// positive feet, so any positive distance reaches at least one tile; zero or
// negative feet give 0.
func FeetToTiles(feet int) int {
	if feet <= 0 {
		return 0
	}
	return (feet + TileFeet - 1) / TileFeet
}

// Map is the static battlefield: its bounds and which tiles block movement
// and line of effect.
type Map struct {
	Width, Height int
	Blocking      map[Position]bool
}

// NewMap constructs an empty map of the given dimensions.
func NewMap(width, height int) *Map {
	return &Map{Width: width, Height: height, Blocking: make(map[Position]bool)}
}

// InBounds reports whether pos lies within the map's dimensions.
func (m *Map) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < m.Width && pos.Y >= 0 && pos.Y < m.Height
}

// IsBlocking reports whether a tile blocks movement and line of effect.
func (m *Map) IsBlocking(pos Position) bool {
	return m.Blocking[pos]
}

// SetBlocking marks a tile as blocking or clear.
func (m *Map) SetBlocking(pos Position, blocked bool) {
	if blocked {
		m.Blocking[pos] = true
	} else {
		delete(m.Blocking, pos)
	}
}

// ManhattanDistance returns the orthogonal step distance between two tiles.
func ManhattanDistance(a, b Position) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

// Adjacent reports whether two tiles are one orthogonal step apart.
func Adjacent(a, b Position) bool {
	return ManhattanDistance(a, b) == 1
}

// Neighbors returns the four orthogonally adjacent in-bounds tiles.
func (m *Map) Neighbors(pos Position) []Position {
	candidates := []Position{
		{X: pos.X + 1, Y: pos.Y},
		{X: pos.X - 1, Y: pos.Y},
		{X: pos.X, Y: pos.Y + 1},
		{X: pos.X, Y: pos.Y - 1},
	}
	out := make([]Position, 0, 4)
	for _, c := range candidates {
		if m.InBounds(c) {
			out = append(out, c)
		}
	}
	return out
}

// Line returns the tiles a Bresenham line from "from" to "to" passes through,
// inclusive of both endpoints.
func Line(from, to Position) []Position {
	if from.Equals(to) {
		return []Position{from}
	}

	x0, y0 := from.X, from.Y
	x1, y1 := to.X, to.Y

	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)

	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx - dy
	x, y := x0, y0

	var positions []Position
	for {
		positions = append(positions, Position{X: x, Y: y})
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		movedX, movedY := false, false
		if e2 > -dy {
			err -= dy
			x += sx
			movedX = true
		}
		if e2 < dx {
			err += dx
			y += sy
			movedY = true
		}
		_ = movedX
		_ = movedY
	}
	return positions
}

// HasLineOfEffect reports whether an unobstructed line exists between from
// and to on the map. A diagonal step in the traced line is blocked not only
// by a blocking tile directly on the line but by a "corner pinch": if both
// orthogonal tiles flanking a diagonal step are blocking, the diagonal
// cannot slip between them. Line of sight and line of effect are the same
// computation in this engine.
func HasLineOfEffect(m *Map, from, to Position) bool {
	line := Line(from, to)
	for i := 1; i < len(line); i++ {
		prev, cur := line[i-1], line[i]
		if m.IsBlocking(cur) {
			return false
		}
		dx, dy := cur.X-prev.X, cur.Y-prev.Y
		if dx != 0 && dy != 0 {
			corner1 := Position{X: prev.X + dx, Y: prev.Y}
			corner2 := Position{X: prev.X, Y: prev.Y + dy}
			if m.IsBlocking(corner1) && m.IsBlocking(corner2) {
				return false
			}
		}
	}
	return true
}

// HasLineOfSight is an alias for HasLineOfEffect: this engine makes no
// distinction between what a unit can see and what it can target.
func HasLineOfSight(m *Map, from, to Position) bool {
	return HasLineOfEffect(m, from, to)
}

// Cover computes the cover grade a defender at "to" enjoys against an
// attacker at "from". If line of effect is broken entirely, cover is
// Blocked. Otherwise cover is graded by how many of the two tiles flanking
// the target on the side facing the source are blocking: an axis-aligned
// approach flanks perpendicular to the line of travel; a diagonal approach
// flanks along the two axis-orthogonal neighbors one step back toward the
// source. Zero blocking flanks is None, one is Standard, two is Greater.
func Cover(m *Map, from, to Position) CoverGrade {
	if !HasLineOfEffect(m, from, to) {
		return CoverBlocked
	}

	dx := signInt(to.X - from.X)
	dy := signInt(to.Y - from.Y)

	var flank1, flank2 Position
	switch {
	case dx != 0 && dy != 0:
		flank1 = Position{X: to.X - dx, Y: to.Y}
		flank2 = Position{X: to.X, Y: to.Y - dy}
	case dy == 0:
		flank1 = Position{X: to.X, Y: to.Y + 1}
		flank2 = Position{X: to.X, Y: to.Y - 1}
	default:
		flank1 = Position{X: to.X + 1, Y: to.Y}
		flank2 = Position{X: to.X - 1, Y: to.Y}
	}

	blockingCount := 0
	if m.IsBlocking(flank1) {
		blockingCount++
	}
	if m.IsBlocking(flank2) {
		blockingCount++
	}

	switch blockingCount {
	case 0:
		return CoverNone
	case 1:
		return CoverStandard
	default:
		return CoverGreater
	}
}

func signInt(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// RadiusTemplate returns every in-bounds tile within a Manhattan disc of the
// given radius around center, center included.
func (m *Map) RadiusTemplate(center Position, radiusTiles int) []Position {
	var out []Position
	for x := center.X - radiusTiles; x <= center.X+radiusTiles; x++ {
		for y := center.Y - radiusTiles; y <= center.Y+radiusTiles; y++ {
			pos := Position{X: x, Y: y}
			if !m.InBounds(pos) {
				continue
			}
			if ManhattanDistance(center, pos) <= radiusTiles {
				out = append(out, pos)
			}
		}
	}
	return out
}

// LineTemplate returns the tiles a line template from origin toward target
// covers, up to lengthTiles tiles from origin.
func (m *Map) LineTemplate(origin, target Position, lengthTiles int) []Position {
	full := Line(origin, target)
	var out []Position
	for _, pos := range full {
		if !m.InBounds(pos) {
			continue
		}
		if ManhattanDistance(origin, pos) > lengthTiles {
			break
		}
		out = append(out, pos)
	}
	return out
}

// cosHalfAngle45 is cos(45 degrees), the dot-product threshold for a
// standard 90-degree-wide cone template.
const cosHalfAngle45 = 0.70710678118

// ConeTemplate returns every in-bounds tile within lengthTiles of origin
// that falls inside a cone pointed from origin toward target, using a
// dot-product angle test (cosine of the angle between the cone axis and the
// candidate tile must be at least cosHalfAngle45). The origin tile is always
// included.
func (m *Map) ConeTemplate(origin, target Position, lengthTiles int) []Position {
	dirX, dirY := float64(target.X-origin.X), float64(target.Y-origin.Y)
	dirLen := math.Hypot(dirX, dirY)
	if dirLen == 0 {
		return []Position{origin}
	}
	dirX /= dirLen
	dirY /= dirLen

	var out []Position
	for x := origin.X - lengthTiles; x <= origin.X+lengthTiles; x++ {
		for y := origin.Y - lengthTiles; y <= origin.Y+lengthTiles; y++ {
			pos := Position{X: x, Y: y}
			if !m.InBounds(pos) {
				continue
			}
			if pos.Equals(origin) {
				out = append(out, pos)
				continue
			}
			px, py := float64(pos.X-origin.X), float64(pos.Y-origin.Y)
			pLen := math.Hypot(px, py)
			if pLen > float64(lengthTiles) {
				continue
			}
			dot := (dirX*px + dirY*py) / pLen
			if dot >= cosHalfAngle45 {
				out = append(out, pos)
			}
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
