package extract

import (
	"regexp"
	"strings"
	"sync"
)

// RulesVersion identifies the rule table below. Bump it whenever a mapping changes.
const RulesVersion = "v1"

// exactHeaders maps frequent headers and known misspellings to canonical names.
// Comments give approximate occurrence counts in MIMIC-CXR.
var exactHeaders = map[string]string{
	"preamble":                "preamble",         // 227885
	"impression":              "impression",       // 187759
	"comparison":              "comparison",       // 154647
	"indication":              "indication",       // 153730
	"findings":                "findings",         // 149842
	"examination":             "examination",      // 94094
	"technique":               "technique",        // 81402
	"history":                 "history",          // 45624
	"comparisons":             "comparison",       // 8686
	"clinical history":        "history",          // 7121
	"reason for examination":  "indication",       // 5845
	"notification":            "notification",     // 5749
	"reason for exam":         "indication",       // 4430
	"clinical information":    "history",          // 4024
	"exam":                    "examination",      // 3907
	"clinical indication":     "indication",       // 1945
	"conclusion":              "impression",       // 1802
	"chest, two views":        "chest, two views", // 1735
	"recommendation(s)":       "recommendations",  // 1700
	"type of examination":     "examination",      // 1678
	"reference exam":          "comparison",       // 347
	"patient history":         "history",          // 251
	"addendum":                "addendum",         // 183
	"comparison exam":         "comparison",       // 163
	"date":                    "date",             // 108
	"comment":                 "comment",          // 88
	"findings and impression": "impression",       // 87
	"wet read":                "wet read",         // 83
	"comparison film":         "comparison",       // 79
	"recommendations":         "recommendations",  // 72
	"findings/impression":     "impression",       // 47
	"pfi":                     "history",
	"recommendation":          "recommendations",
	"wetread":                 "wet read",
	"ndication":               "impression",
	"impresson":               "impression",
	"imprression":             "impression",
	"imoression":              "impression",
	"impressoin":              "impression",
	"imprssion":               "impression",
	"impresion":               "impression",
	"imperssion":              "impression",
	"mpression":               "impression",
	"impession":               "impression",
	"findings/ impression":    "impression",
	"finding":                 "findings",
	"findins":                 "findings",
	"findindgs":               "findings",
	"findgings":               "findings",
	"findngs":                 "findings",
	"findnings":               "findings",
	"finidngs":                "findings",
	"idication":               "indication",
	"reference findings":      "findings",
	"comparision":             "comparison",
	"comparsion":              "comparison",
	"comparrison":             "comparison",
	"comparisions":            "comparison",
}

// mainSections are matched by substring, in this order
var mainSections = []string{
	"impression",
	"findings",
	"history",
	"comparison",
	"addendum",
}

// viewKeywords indicate a header describing the imaging views, i.e. the findings
var viewKeywords = []string{
	"chest",
	"portable",
	"pa and lateral",
	"lateral and pa",
	"ap and lateral",
	"lateral and ap",
	"frontal and",
	"two views",
	"frontal view",
	"pa view",
	"ap view",
	"one view",
	"lateral view",
	"bone window",
	"frontal upright",
	"frontal semi-upright",
	"ribs",
}

// Rule resolves a normalized header to a canonical name.
// Resolve returns false when the rule does not apply.
type Rule struct {
	Name    string
	Resolve func(header string) (string, bool)
}

// ExactRule looks the header up in a fixed table
func ExactRule(table map[string]string) Rule {
	t := make(map[string]string, len(table))
	for k, v := range table {
		t[k] = v
	}

	return Rule{
		Name: "exact",
		Resolve: func(header string) (string, bool) {
			name, ok := t[header]
			return name, ok
		},
	}
}

// SubstringRule maps a header to the first listed name it contains
func SubstringRule(names []string) Rule {
	list := append([]string(nil), names...)

	return Rule{
		Name: "main-section",
		Resolve: func(header string) (string, bool) {
			for _, name := range list {
				if strings.Contains(header, name) {
					return name, true
				}
			}
			return "", false
		},
	}
}

// KeywordRule maps any header containing one of the keywords to target
func KeywordRule(keywords []string, target string) Rule {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	pattern := regexp.MustCompile("(" + strings.Join(quoted, "|") + ")")

	return Rule{
		Name: "view-keyword",
		Resolve: func(header string) (string, bool) {
			if pattern.MatchString(header) {
				return target, true
			}
			return "", false
		},
	}
}

var (
	defaultRulesOnce sync.Once
	defaultRules     []Rule
)

// DefaultRules returns the MIMIC-CXR rule chain: exact table, main-section
// substrings, then imaging-view keywords. The chain is built once per process.
func DefaultRules() []Rule {
	defaultRulesOnce.Do(func() {
		defaultRules = []Rule{
			ExactRule(exactHeaders),
			SubstringRule(mainSections),
			KeywordRule(viewKeywords, "findings"),
		}
	})
	return append([]Rule(nil), defaultRules...)
}
