// Package grade maps classifier output to nutrition grade labels and the
// colors and explanations shown next to them.
package grade

import (
	"strconv"
	"strings"
)

const (
	FallbackColor       = "#888888"
	FallbackExplanation = "Grade information not available."
)

var labels = [...]string{"a", "b", "c", "d", "e"}

// Decode maps a class id to its grade label. Ids outside 0..4 decode to their
// decimal form so unexpected model output degrades instead of failing.
func Decode(classID int) string {
	if classID >= 0 && classID < len(labels) {
		return labels[classID]
	}
	return strings.ToLower(strconv.Itoa(classID))
}

type Presentation struct {
	Grade       string `json:"grade"`
	Color       string `json:"color"`
	Explanation string `json:"explanation"`
	Quality     string `json:"quality,omitempty"`
}

var presentations = map[string]Presentation{
	"a": {
		Grade:       "a",
		Color:       "#038141",
		Quality:     "Best nutritional quality",
		Explanation: "Excellent! This product has the best nutritional quality. It's low in unhealthy nutrients and high in beneficial ones.",
	},
	"b": {
		Grade:       "b",
		Color:       "#85BB2F",
		Quality:     "Good nutritional quality",
		Explanation: "Good! This product has good nutritional quality. It's a healthy choice for most people.",
	},
	"c": {
		Grade:       "c",
		Color:       "#FECB02",
		Quality:     "Average nutritional quality",
		Explanation: "Average. This product has moderate nutritional quality. Consider consuming in moderation.",
	},
	"d": {
		Grade:       "d",
		Color:       "#EE8100",
		Quality:     "Poor nutritional quality",
		Explanation: "Poor. This product has poor nutritional quality. Consider healthier alternatives when possible.",
	},
	"e": {
		Grade:       "e",
		Color:       "#E63E11",
		Quality:     "Lowest nutritional quality",
		Explanation: "Very Poor. This product has the lowest nutritional quality. Limit consumption and opt for healthier choices.",
	},
}

// Lookup returns the presentation for a grade label. Matching ignores case
// only; any other label, including one with surrounding whitespace, gets the
// neutral fallback.
func Lookup(label string) Presentation {
	normalized := strings.ToLower(label)
	if p, ok := presentations[normalized]; ok {
		return p
	}
	return Presentation{
		Grade:       normalized,
		Color:       FallbackColor,
		Explanation: FallbackExplanation,
	}
}

// All returns the known grades from best to worst.
func All() []Presentation {
	out := make([]Presentation, 0, len(labels))
	for _, l := range labels {
		out = append(out, presentations[l])
	}
	return out
}
