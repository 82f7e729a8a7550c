package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/wbarena/internal/chess"
)

// winboard speaks the WinBoard/XBoard (CECP) protocol, version 2.
type winboard struct {
	*instance

	featurePing     bool
	featureSAN      bool
	featureUsermove bool
	featureMemory   bool
	featureSMP      bool
	hard            bool
}

// knownFeatures are accepted during negotiation; anything else is rejected
// but still recorded in the FeatureMap.
var knownFeatures = map[string]bool{
	"ping": true, "setboard": true, "playother": true, "san": true,
	"usermove": true, "time": true, "draw": true, "sigint": true,
	"sigterm": true, "reuse": true, "analyze": true, "myname": true,
	"variants": true, "colors": true, "ics": true, "name": true,
	"pause": true, "nps": true, "debug": true, "memory": true,
	"smp": true, "egt": true, "option": true, "exclude": true,
	"setscore": true, "highlight": true, "done": true,
}

func (w *winboard) reset() {
	w.featurePing = false
	w.featureSAN = false
	w.featureUsermove = false
	w.featureMemory = false
	w.featureSMP = false
	w.hard = false
}

func (w *winboard) handshake() {
	w.write("xboard")
	w.write("protover 2")
}

func (w *winboard) finishNegotiation(timedOut bool) {
	names := make([]string, 0, len(w.cfg.Options))
	for name := range w.cfg.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w.writef("option %s=%s", name, w.cfg.Options[name])
	}
	w.negotiated(timedOut)
}

func (w *winboard) parseLine(line string) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "feature":
		w.onFeatures(rest, line)
	case "move":
		w.onMove(rest, line)
	case "pong":
		w.onPong(rest, line)
	case "ping":
		w.write("pong " + rest)
	case "resign":
		w.reportResult(chess.Result{Type: chess.Loss, Reason: chess.Resign}, nil)
		w.endSearch()
	case "offer":
		if strings.HasPrefix(rest, "draw") {
			w.emit(Event{Kind: EventDrawOffer, Comment: line})
		}
	case "1-0", "0-1", "1/2-1/2":
		w.emit(Event{Kind: EventClaim, Claim: cmd, Comment: braced(rest)})
	case "tellusererror":
		w.errorsSinceGo++
		w.diagnose(ErrCodeProtocolViolation, "engine reported an error", line)
	case "telluser", "tellopponent", "tellothers", "tellall", "tellics", "tellicsnoalias", "askuser":
		w.logger.Info("engine says", "engine", w.cfg.Name, "line", line)
	case "#":
	default:
		switch {
		case strings.HasPrefix(strings.ToLower(line), "illegal move"):
			w.onIllegal(line)
		case strings.HasPrefix(line, "Error"):
			w.errorsSinceGo++
			w.diagnose(ErrCodeProtocolViolation, "engine reported an error", line)
		case cmd == "My" && strings.HasPrefix(rest, "move is"):
			_, mv, _ := strings.Cut(rest, ":")
			w.onMove(strings.TrimSpace(mv), line)
		default:
			if info, ok := parseThinking(line); ok {
				w.emit(Event{Kind: EventInfo, Info: info})
				return
			}
			w.violation("unrecognized line", line)
		}
	}
}

func (w *winboard) onFeatures(args, line string) {
	pairs, err := parseFeatures(args)
	done := ""
	for _, p := range pairs {
		w.features[p.name] = p.value
		if !knownFeatures[p.name] {
			w.write("rejected " + p.name)
			continue
		}
		w.write("accepted " + p.name)

		on := p.value == "1"
		switch p.name {
		case "ping":
			w.featurePing = on
		case "san":
			w.featureSAN = on
		case "usermove":
			w.featureUsermove = on
		case "memory":
			w.featureMemory = on
		case "smp":
			w.featureSMP = on
		case "done":
			done = p.value
		}
	}
	if err != nil {
		w.violation(err.Error(), line)
	}

	if w.State() != StateNegotiating {
		return
	}
	switch done {
	case "1":
		w.finishNegotiation(false)
	case "0":
		// The engine needs longer to start up; wait as long as for a pong.
		w.negotiateLeft = w.budget.idle
	default:
		w.negotiateLeft = w.budget.negotiation
	}
}

func (w *winboard) onMove(text, line string) {
	if text == "" {
		w.violation("empty move", line)
		return
	}
	if w.State() != StateThinking {
		w.violation("move outside a search", line)
		return
	}
	w.write("force")
	w.engineMoved(text, "")
}

func (w *winboard) onPong(arg, line string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		w.violation("malformed pong", line)
		return
	}
	if !w.ping.receive(n) {
		w.logger.Warn("pong mismatch", "engine", w.cfg.Name, "got", n, "expecting", w.ping.Expecting)
	}
}

func (w *winboard) onIllegal(line string) {
	w.diagnose(ErrCodeIllegalMove, "engine rejected a move", line)
	w.reportResult(chess.Result{Type: chess.NoResult, Reason: chess.IllegalMove},
		&EngineError{Code: ErrCodeIllegalMove, Engine: w.cfg.Name, Message: "engine rejected a move", Line: line})
	w.endSearch()
}

func (w *winboard) newGame() {
	w.write("new")
	w.write("force")
	w.write(levelCommand(w.tc.BaseMs, w.tc.IncMs, w.tc.MovesToGo, w.tc.MoveTimeMs))
	w.write("post")
	w.hard = w.cfg.Ponder
	if w.hard {
		w.write("hard")
	} else {
		w.write("easy")
	}
	if w.featureMemory && w.cfg.MemoryMB > 0 {
		w.writef("memory %d", w.cfg.MemoryMB)
	}
	if w.featureSMP && w.cfg.Cores > 0 {
		w.writef("cores %d", w.cfg.Cores)
	}
	w.sendPing()
}

func (w *winboard) think() {
	if !w.tc.IsFixedMoveTime() {
		w.writef("time %d", w.clock.OwnMs/10)
		w.writef("otim %d", w.clock.OppMs/10)
	}
	w.write("go")
}

// ponder enables thinking on the opponent's time. WinBoard has no
// "go ponder": the engine guesses its own ponder move while in hard mode.
func (w *winboard) ponder(chess.Move) {
	if !w.hard {
		w.write("hard")
		w.hard = true
	}
}

func (w *winboard) stop() {
	switch w.State() {
	case StateThinking:
		w.write("?")
	case StatePondering:
		w.write("easy")
		w.hard = false
		w.setState(StateIdle)
	}
}

func (w *winboard) opponentMoved(chess.Move) bool {
	w.setState(StateIdle)
	return false
}

func (w *winboard) userMove(move chess.Move, san string) {
	text := move.String()
	if w.featureSAN && san != "" {
		text = san
	}
	if w.featureUsermove {
		text = "usermove " + text
	}
	w.write(text)
}

func (w *winboard) gameOver(res chess.Result, side chess.Side) {
	if w.State().IsSearching() {
		w.write("force")
		w.endSearch()
	}
	w.writef("result %s {%s}", res.Score(side), res.Reason)
}

func (w *winboard) abortSearch() {
	w.write("force")
	w.endSearch()
}

func (w *winboard) quit() {
	w.write("quit")
}

func (w *winboard) canPing() bool {
	return w.featurePing
}

func (w *winboard) writePing(n int) {
	w.writef("ping %d", n)
}

// levelCommand renders the time control as "st" or "level".
func levelCommand(baseMs, incMs, movesToGo, moveTimeMs int) string {
	if moveTimeMs > 0 {
		return fmt.Sprintf("st %d", (moveTimeMs+999)/1000)
	}
	minutes := baseMs / 60000
	seconds := (baseMs % 60000) / 1000
	base := strconv.Itoa(minutes)
	if seconds > 0 {
		base = fmt.Sprintf("%d:%02d", minutes, seconds)
	}
	inc := strconv.FormatFloat(float64(incMs)/1000, 'f', -1, 64)
	return fmt.Sprintf("level %d %s %s", movesToGo, base, inc)
}

// parseThinking reads "ply score time nodes pv...". time is in centiseconds.
func parseThinking(line string) (*SearchInfo, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, false
	}
	var nums [4]int64
	for i := range nums {
		n, err := strconv.ParseInt(strings.TrimRight(fields[i], ".&"), 10, 64)
		if err != nil {
			return nil, false
		}
		nums[i] = n
	}
	return &SearchInfo{
		Depth:  int(nums[0]),
		Score:  int(nums[1]),
		TimeMs: nums[2] * 10,
		Nodes:  nums[3],
		PV:     strings.Join(fields[4:], " "),
	}, true
}

// braced returns the text between the first '{' and the last '}'.
func braced(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[start+1 : end])
}
