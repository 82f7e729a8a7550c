package protocol

import (
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/wbarena/internal/chess"
)

// uci speaks the Universal Chess Interface. The position is resent from the
// start position with the full move list before every search.
type uci struct {
	*instance

	moves      []string
	ponderMove string

	// discard is set after "stop" on a search whose bestmove must not be
	// reported (a missed ponder, an aborted search).
	discard bool
}

func (u *uci) reset() {
	u.moves = nil
	u.ponderMove = ""
	u.discard = false
}

func (u *uci) handshake() {
	u.write("uci")
}

func (u *uci) finishNegotiation(timedOut bool) {
	names := make([]string, 0, len(u.cfg.Options))
	for name := range u.cfg.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		u.writef("setoption name %s value %s", name, u.cfg.Options[name])
	}
	if _, ok := u.features["option:Threads"]; ok && u.cfg.Cores > 0 {
		u.writef("setoption name Threads value %d", u.cfg.Cores)
	}
	if _, ok := u.features["option:Hash"]; ok && u.cfg.MemoryMB > 0 {
		u.writef("setoption name Hash value %d", u.cfg.MemoryMB)
	}
	if _, ok := u.features["option:Ponder"]; ok {
		u.writef("setoption name Ponder value %t", u.cfg.Ponder)
	}
	u.sendPing()
	u.negotiated(timedOut)
}

func (u *uci) parseLine(line string) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "id":
		key, value, _ := strings.Cut(rest, " ")
		u.features[key] = strings.TrimSpace(value)
	case "option":
		name, typ := parseOptionLine(rest)
		if name == "" {
			u.violation("malformed option", line)
			return
		}
		u.features["option:"+name] = typ
	case "uciok":
		if u.State() == StateNegotiating {
			u.finishNegotiation(false)
		}
	case "readyok":
		u.ping.settle()
	case "bestmove":
		u.onBestmove(rest, line)
	case "info":
		if info, ok := parseUCIInfo(rest); ok {
			u.emit(Event{Kind: EventInfo, Info: info})
		}
	case "copyprotection", "registration":
		u.logger.Debug("engine status", "engine", u.cfg.Name, "line", line)
	default:
		u.violation("unrecognized line", line)
	}
}

func (u *uci) onBestmove(args, line string) {
	fields := strings.Fields(args)
	if u.discard {
		u.discard = false
		u.endSearch()
		return
	}
	if !u.State().IsSearching() || len(fields) == 0 {
		u.violation("bestmove outside a search", line)
		return
	}

	text := fields[0]
	if text == "(none)" || text == "0000" {
		u.endSearch()
		u.reportResult(chess.Result{Type: chess.NoResult, Reason: chess.IllegalMove},
			&EngineError{Code: ErrCodeIllegalMove, Engine: u.cfg.Name, Message: "engine found no move", Line: line})
		return
	}
	ponder := ""
	if len(fields) >= 3 && fields[1] == "ponder" {
		ponder = fields[2]
	}
	u.moves = append(u.moves, text)
	u.engineMoved(text, ponder)
}

func (u *uci) newGame() {
	u.write("ucinewgame")
	u.moves = nil
	u.ponderMove = ""
	u.sendPing()
}

func (u *uci) position() string {
	if len(u.moves) == 0 {
		return "position startpos"
	}
	return "position startpos moves " + strings.Join(u.moves, " ")
}

// goCommand builds "go ..." for the side to move in u.moves.
func (u *uci) goCommand(ponder bool) string {
	var sb strings.Builder
	sb.WriteString("go")
	if ponder {
		sb.WriteString(" ponder")
	}
	if u.tc.IsFixedMoveTime() {
		sb.WriteString(" movetime " + strconv.Itoa(u.tc.MoveTimeMs))
		return sb.String()
	}

	wtime, btime := u.clock.OwnMs, u.clock.OppMs
	if len(u.moves)%2 == 1 {
		wtime, btime = btime, wtime
	}
	sb.WriteString(" wtime " + strconv.Itoa(wtime) + " btime " + strconv.Itoa(btime))
	if u.tc.IncMs > 0 {
		inc := strconv.Itoa(u.tc.IncMs)
		sb.WriteString(" winc " + inc + " binc " + inc)
	}
	if u.tc.MovesToGo > 0 {
		sb.WriteString(" movestogo " + strconv.Itoa(u.tc.MovesToGo))
	}
	return sb.String()
}

func (u *uci) think() {
	u.write(u.position())
	u.write(u.goCommand(false))
}

func (u *uci) ponder(move chess.Move) {
	u.ponderMove = move.String()
	u.moves = append(u.moves, u.ponderMove)
	u.write(u.position())
	u.write(u.goCommand(true))
}

func (u *uci) dropPonderMove() {
	if u.ponderMove != "" && len(u.moves) > 0 {
		u.moves = u.moves[:len(u.moves)-1]
	}
	u.ponderMove = ""
}

func (u *uci) stop() {
	switch u.State() {
	case StateThinking:
		u.write("stop")
		u.awaitStop()
	case StatePondering:
		u.write("stop")
		u.discard = true
		u.dropPonderMove()
		u.awaitStop()
	}
}

func (u *uci) opponentMoved(move chess.Move) bool {
	if move.String() == u.ponderMove {
		u.ponderMove = ""
		u.write("ponderhit")
		return true
	}
	u.stop()
	return false
}

func (u *uci) userMove(move chess.Move, _ string) {
	u.moves = append(u.moves, move.String())
}

func (u *uci) gameOver(chess.Result, chess.Side) {
	if u.State().IsSearching() {
		u.write("stop")
		u.discard = true
		u.awaitStop()
	}
}

func (u *uci) abortSearch() {
	u.write("stop")
	u.discard = true
	u.dropPonderMove()
	u.awaitStop()
	u.sendPing()
}

func (u *uci) quit() {
	u.write("quit")
}

func (u *uci) canPing() bool { return true }

func (u *uci) writePing(int) {
	u.write("isready")
}

// parseOptionLine splits "name <N...> type <T> ..." into the option name
// and everything from "type" on.
func parseOptionLine(s string) (name, rest string) {
	after, ok := strings.CutPrefix(s, "name ")
	if !ok {
		return "", ""
	}
	name, rest, found := strings.Cut(after, " type ")
	if !found {
		return strings.TrimSpace(after), ""
	}
	return strings.TrimSpace(name), "type " + strings.TrimSpace(rest)
}

// parseUCIInfo reads the fields of an info line that matter for reporting.
// Lines without depth or pv (currmove updates, strings) are skipped.
func parseUCIInfo(s string) (*SearchInfo, bool) {
	fields := strings.Fields(s)
	info := &SearchInfo{}
	seen := false
	for i := 0; i < len(fields); i++ {
		next := func() int64 {
			if i+1 >= len(fields) {
				return 0
			}
			i++
			n, _ := strconv.ParseInt(fields[i], 10, 64)
			return n
		}
		switch fields[i] {
		case "string":
			return nil, false
		case "depth":
			info.Depth = int(next())
			seen = true
		case "time":
			info.TimeMs = next()
		case "nodes":
			info.Nodes = next()
		case "score":
			if i+1 < len(fields) {
				i++
				switch fields[i] {
				case "cp":
					info.Score = int(next())
				case "mate":
					info.Mate = int(next())
				}
			}
		case "pv":
			info.PV = strings.Join(fields[i+1:], " ")
			seen = true
			i = len(fields)
		}
	}
	return info, seen
}
