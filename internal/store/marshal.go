package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// timeLayout stores timestamps as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalInfo converts MoveInfo to JSON TEXT with HTML escaping disabled,
// so PV text like "e7e8=Q" or "<" is stored verbatim.
func marshalInfo(info MoveInfo) (string, error) {
	info.PV = normalizeText(info.PV)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(info); err != nil {
		return "", fmt.Errorf("marshal move info: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalInfo(data string) (MoveInfo, error) {
	var info MoveInfo
	if data == "" || data == "{}" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return MoveInfo{}, fmt.Errorf("unmarshal move info: %w", err)
	}
	return info, nil
}

// normalizeText puts engine-supplied text in NFC so identical output from
// different engines compares equal byte for byte.
func normalizeText(s string) string {
	return norm.NFC.String(s)
}
