// Package normalize turns free-form model replies into structured records.
//
// Replies are passed through an ordered chain of extractors, cheapest and
// strictest first. When none of them yields a JSON object the reply is wrapped
// in a sentinel record that callers must treat as a failure.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
)

// SentinelKey holds the raw reply when no structured data could be extracted.
const SentinelKey = "raw_response"

// Extractor tries to pull a JSON object out of a raw model reply.
type Extractor interface {
	Name() string
	Extract(raw string) (map[string]any, bool)
}

// Normalizer runs extractors in order and stops at the first success.
type Normalizer struct {
	extractors []Extractor
}

// New returns a normalizer using the given extractors in order.
func New(extractors ...Extractor) *Normalizer {
	return &Normalizer{extractors: extractors}
}

// Default returns the fence, span, regex chain.
func Default() *Normalizer {
	return New(FenceExtractor{}, SpanExtractor{}, RegexExtractor{})
}

// Parse returns the first successfully extracted object or the sentinel record.
func (n *Normalizer) Parse(raw string) map[string]any {
	rec, _ := n.ParseWith(raw)
	return rec
}

// ParseWith is Parse that also reports which extractor succeeded. The name is
// empty when the sentinel was returned.
func (n *Normalizer) ParseWith(raw string) (map[string]any, string) {
	for _, ex := range n.extractors {
		if rec, ok := ex.Extract(raw); ok {
			return rec, ex.Name()
		}
	}
	return map[string]any{SentinelKey: raw}, ""
}

// Parse uses the default chain.
func Parse(raw string) map[string]any {
	return Default().Parse(raw)
}

// IsSentinel reports whether rec carries nothing but the raw reply.
func IsSentinel(rec map[string]any) bool {
	if len(rec) != 1 {
		return false
	}
	_, ok := rec[SentinelKey]
	return ok
}

// RawOf returns the raw reply stored in a sentinel record.
func RawOf(rec map[string]any) string {
	s, _ := rec[SentinelKey].(string)
	return s
}

// FenceExtractor strips markdown code fences and parses what is left.
type FenceExtractor struct{}

func (FenceExtractor) Name() string { return "fence" }

func (FenceExtractor) Extract(raw string) (map[string]any, bool) {
	return decodeObject(StripFences(raw))
}

// SpanExtractor parses the slice between the first '{' and the last '}'.
type SpanExtractor struct{}

func (SpanExtractor) Name() string { return "span" }

func (SpanExtractor) Extract(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	return decodeObject(raw[start : end+1])
}

var braceSpan = regexp.MustCompile(`(?s)\{.*\}`)

// RegexExtractor parses the first greedy brace-delimited span of the fence-stripped reply.
type RegexExtractor struct{}

func (RegexExtractor) Name() string { return "regex" }

func (RegexExtractor) Extract(raw string) (map[string]any, bool) {
	match := braceSpan.FindString(StripFences(raw))
	if match == "" {
		return nil, false
	}
	return decodeObject(match)
}

// StripFences removes ``` and ```json markers and surrounding whitespace.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.Trim(cleaned, "`")
	return strings.TrimSpace(cleaned)
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(s), &rec); err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}
