// Package chess holds the small slice of chess vocabulary the engine
// protocols need: square coordinates, coordinate-notation moves, sides and
// the (result, reason) pair reported when a game ends.
//
// Board state and move legality live outside this module. A Move here is an
// opaque from/to/promotion triple; nothing in this package checks that it is
// playable.
package chess
