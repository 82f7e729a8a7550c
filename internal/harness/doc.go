// Package harness runs protocol conformance scenarios against a single
// engine instance.
//
// A scenario scripts the engine side of the conversation, drives the
// protocol.Engine through a list of steps with manual ticks, records every
// line and event as a trace, and checks assertions against it. Nothing runs
// in the background, so the same scenario always yields the same trace and
// traces can be compared against golden files.
//
// # Scenario Format
//
//	name: winboard_game
//	description: "Negotiate, play one move, quit"
//	engine:
//	  name: crafty
//	  protocol: winboard
//	time_control: { move_time_ms: 1000 }
//	script:
//	  - on: protover
//	    reply: ["feature ping=1 usermove=1 done=1"]
//	  - on: ping
//	    reply: ["pong {arg}"]
//	steps:
//	  - tick: 1
//	  - call: new_game
//	  - call: move
//	    move: e7e5
//	  - emit: ["resign"]
//	  - exit: 0
//	assertions:
//	  - type: trace_contains
//	    entry: "send go"
//	  - type: final_state
//	    state: idle
//
// A script reply may use {arg}, replaced by whatever followed the command on
// the line that triggered it.
//
// # Trace Entries
//
// Entries are numbered from 1 and have one of five types: step (a scenario
// step), send (a line written to the engine), recv (a line read from it),
// event (an engine event) and state (the state after a step or tick, when it
// changed). Assertions name entries as "<type> <text>", e.g. "send go",
// "event move" or "state thinking".
//
// # Golden Files
//
// RunWithGolden writes the trace as one canonical JSON object per line and
// compares it with testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
