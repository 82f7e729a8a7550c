// Package match plays games between protocol engines.
//
// A Runner owns a ticker.Scheduler and a pool of workers. Each worker keeps
// its own pair of engine instances for the whole run, reattaching one only
// after it crashed or was benched, and plays the games handed to it:
//
//	games ──► worker 1 ─┐
//	      ──► worker 2 ─┼──► results ──► summary (score, Elo, LOS)
//	      ──► worker N ─┘
//
// A Game never talks to an engine process. It calls the engine's lifecycle
// methods and reacts to the events the engines post into the worker's
// Mailbox from their tick goroutines.
//
// Moves go through a Board. The default RulesBoard checks legality,
// renders SAN for engines that negotiated it and ends the game on mate or
// a rules draw. CoordinateBoard only checks notation, leaving game ends to
// engine results, claims, the clock or the ply limit.
package match
