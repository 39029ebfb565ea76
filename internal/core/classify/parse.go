package classify

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/colonyops/yearn/internal/core/desire"
)

// ParseCandidates extracts candidates from model output. It accepts a bare
// JSON array, an object with a "desires" or "candidates" array, and either
// of those wrapped in prose or a markdown fence. Anything unparseable yields
// no candidates. Entries without a title are dropped.
func ParseCandidates(raw []byte) []desire.Candidate {
	body := extractJSON(raw)
	if body == nil {
		return nil
	}

	var list []desire.Candidate
	if err := json.Unmarshal(body, &list); err != nil {
		var wrapped struct {
			Desires    []desire.Candidate `json:"desires"`
			Candidates []desire.Candidate `json:"candidates"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil
		}
		list = append(wrapped.Desires, wrapped.Candidates...)
	}

	out := make([]desire.Candidate, 0, len(list))
	for _, c := range list {
		c.Title = strings.TrimSpace(c.Title)
		if c.Title == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

type reinforcement struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ParseReinforcements extracts id -> reason pairs from model output. It
// accepts an array of {id, reason}, an object with a "reinforced" array, or a
// plain id -> reason object. Anything unparseable yields an empty map.
func ParseReinforcements(raw []byte) map[string]string {
	out := make(map[string]string)

	body := extractJSON(raw)
	if body == nil {
		return out
	}

	var list []reinforcement
	if err := json.Unmarshal(body, &list); err == nil {
		return collect(out, list)
	}

	var wrapped struct {
		Reinforced []reinforcement `json:"reinforced"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Reinforced != nil {
		return collect(out, wrapped.Reinforced)
	}

	var plain map[string]string
	if err := json.Unmarshal(body, &plain); err == nil {
		for id, reason := range plain {
			if id = strings.TrimSpace(id); id != "" {
				out[id] = reason
			}
		}
	}
	return out
}

func collect(out map[string]string, list []reinforcement) map[string]string {
	for _, r := range list {
		if id := strings.TrimSpace(r.ID); id != "" {
			out[id] = r.Reason
		}
	}
	return out
}

// extractJSON returns the first balanced JSON array or object in raw, or nil.
func extractJSON(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return raw
	}

	for start := 0; start < len(raw); start++ {
		if raw[start] != '[' && raw[start] != '{' {
			continue
		}
		if end := matchClose(raw, start); end > start {
			candidate := raw[start : end+1]
			if json.Valid(candidate) {
				return candidate
			}
		}
	}
	return nil
}

// matchClose finds the index of the bracket closing raw[start], skipping
// brackets inside strings. Returns -1 when unbalanced.
func matchClose(raw []byte, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
