package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_LinesNeverInterleave(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	const writers = 16
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c.Line(fmt.Sprintf("engine%02d", w), Inbound, fmt.Sprintf("move e2e4 #%03d", i))
			}
		}(w)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, writers*perWriter)
	for _, line := range lines {
		fields := strings.Fields(line)
		require.Len(t, fields, 6, "line %q", line)
		assert.Equal(t, "<-", fields[2])
		assert.Equal(t, "move", fields[3])
	}
}

func TestConsole_Disabled(t *testing.T) {
	c := NewConsole(nil)
	assert.False(t, c.Enabled())
	c.Printf("nothing %d", 1)

	var nilConsole *Console
	assert.False(t, nilConsole.Enabled())
	nilConsole.Line("x", Outbound, "go")
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Options{Writer: &buf})
	l.Debug("hidden")
	l.Info("shown", "engine", "crafty")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "engine=crafty")

	buf.Reset()
	l = NewLogger(Options{Writer: &buf, Verbose: true, Format: "json"})
	l.Debug("visible")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
}
