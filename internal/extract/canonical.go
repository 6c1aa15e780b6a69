package extract

import (
	"strings"

	"github.com/ppiankov/cxrsect/internal/cache"
)

// FallbackRule is reported by Explain when no rule matched
const FallbackRule = "fallback"

// Canonicalizer maps raw section headers to canonical names.
// Rules are tried in order and the first match wins; an unmatched header maps to
// its own lowercased, trimmed form. A Canonicalizer is safe for concurrent use.
type Canonicalizer struct {
	rules []Rule
	memo  cache.Memo
}

// NewCanonicalizer creates a canonicalizer over rules. memo may be nil.
func NewCanonicalizer(rules []Rule, memo cache.Memo) *Canonicalizer {
	return &Canonicalizer{
		rules: append([]Rule(nil), rules...),
		memo:  memo,
	}
}

// NewDefaultCanonicalizer uses DefaultRules and an in-memory memo
func NewDefaultCanonicalizer() *Canonicalizer {
	return NewCanonicalizer(DefaultRules(), cache.NewMemoryCache())
}

// Canonicalize maps every header; the result has the same length as names
func (c *Canonicalizer) Canonicalize(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = c.Name(name)
	}
	return out
}

// Name returns the canonical name for a single header
func (c *Canonicalizer) Name(header string) string {
	header = normalizeHeader(header)

	if c.memo == nil {
		name, _ := c.resolve(header)
		return name
	}

	key := cache.Key("canonical", RulesVersion, header)
	if name, ok := c.memo.Get(key); ok {
		return name
	}

	name, _ := c.resolve(header)
	c.memo.Set(key, name)
	return name
}

// Memoized returns the number of distinct headers named so far
func (c *Canonicalizer) Memoized() int {
	if c.memo == nil {
		return 0
	}
	return c.memo.Len()
}

// Explain returns the canonical name and the rule that produced it
func (c *Canonicalizer) Explain(header string) (string, string) {
	return c.resolve(normalizeHeader(header))
}

func (c *Canonicalizer) resolve(header string) (string, string) {
	for _, rule := range c.rules {
		if name, ok := rule.Resolve(header); ok {
			return name, rule.Name
		}
	}
	return header, FallbackRule
}

func normalizeHeader(header string) string {
	return strings.TrimSpace(strings.ToLower(header))
}
