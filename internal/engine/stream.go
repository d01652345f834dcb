package engine

import "strings"

// StreamRuleType is the operator of a stream matching rule. The integer codes
// are part of the engine's wire format.
type StreamRuleType int

const (
	StreamRuleExact       StreamRuleType = 1
	StreamRuleRegex       StreamRuleType = 2
	StreamRuleGreater     StreamRuleType = 3
	StreamRuleSmaller     StreamRuleType = 4
	StreamRulePresence    StreamRuleType = 5
	StreamRuleContains    StreamRuleType = 6
	StreamRuleAlwaysMatch StreamRuleType = 7
	StreamRuleMatchInput  StreamRuleType = 8
)

var streamRuleTypeNames = map[StreamRuleType]string{
	StreamRuleExact:       "EXACT",
	StreamRuleRegex:       "REGEX",
	StreamRuleGreater:     "GREATER",
	StreamRuleSmaller:     "SMALLER",
	StreamRulePresence:    "PRESENCE",
	StreamRuleContains:    "CONTAINS",
	StreamRuleAlwaysMatch: "ALWAYS_MATCH",
	StreamRuleMatchInput:  "MATCH_INPUT",
}

// Valid reports whether t is a known operator code.
func (t StreamRuleType) Valid() bool {
	_, ok := streamRuleTypeNames[t]
	return ok
}

func (t StreamRuleType) String() string {
	if name, ok := streamRuleTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseStreamRuleType parses an operator name such as "EXACT" or "contains".
func ParseStreamRuleType(name string) (StreamRuleType, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range streamRuleTypeNames {
		if n == upper {
			return t, true
		}
	}
	return 0, false
}

// Stream matching types.
const (
	MatchingTypeAnd = "AND"
	MatchingTypeOr  = "OR"
)

// StreamRule is a single predicate routing messages into a stream.
type StreamRule struct {
	ID          string         `json:"id" yaml:"id"`
	Field       string         `json:"field" yaml:"field"`
	Type        StreamRuleType `json:"type" yaml:"type"`
	Value       string         `json:"value" yaml:"value"`
	Inverted    bool           `json:"inverted" yaml:"inverted"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
}

// Stream is the set of rules a message has to satisfy, combined with
// MatchingType.
type Stream struct {
	ID           string       `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	MatchingType string       `json:"matching_type" yaml:"matching_type"`
	Rules        []StreamRule `json:"rules" yaml:"rules"`
}
