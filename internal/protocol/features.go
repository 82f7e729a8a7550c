package protocol

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// FeatureMap holds every feature the engine announced, known or not.
// Values keep their original text with quotes removed.
type FeatureMap map[string]string

// Flag reads a 0/1 feature, falling back to def when absent or malformed.
func (f FeatureMap) Flag(name string, def bool) bool {
	switch f[name] {
	case "1":
		return true
	case "0":
		return false
	}
	return def
}

// Names returns the feature names sorted.
func (f FeatureMap) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f FeatureMap) clone() FeatureMap {
	if f == nil {
		return FeatureMap{}
	}
	return maps.Clone(f)
}

type featurePair struct {
	name   string
	value  string
	quoted bool
}

// parseFeatures splits the arguments of a "feature" line into name=value
// pairs. Values are either bare tokens or double-quoted strings that may
// contain spaces. Parsing stops at the first malformed token; pairs read up
// to that point are returned along with the error.
func parseFeatures(args string) ([]featurePair, error) {
	var pairs []featurePair
	s := args
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return pairs, nil
		}
		eq := strings.IndexByte(s, '=')
		if eq <= 0 || strings.ContainsAny(s[:eq], " \t") {
			return pairs, fmt.Errorf("malformed feature near %q", s)
		}
		p := featurePair{name: s[:eq]}
		s = s[eq+1:]

		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				return pairs, fmt.Errorf("unterminated quoted value for feature %q", p.name)
			}
			p.value = s[1 : end+1]
			p.quoted = true
			s = s[end+2:]
		} else {
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				end = len(s)
			}
			p.value = s[:end]
			s = s[end:]
		}
		pairs = append(pairs, p)
	}
}
