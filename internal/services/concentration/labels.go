package concentration

import "strings"

// majorLabelVariants is the maintained list of known major-label name
// fragments. Matching is case-insensitive substring; everything that does
// not match defaults to independent.
var majorLabelVariants = []string{
	// Universal Music Group
	"universal", "umg", "interscope", "republic", "capitol", "island",
	"def jam", "geffen", "motown", "polydor", "virgin", "emi",
	// Sony Music Entertainment
	"sony", "columbia", "rca", "epic", "arista", "legacy recordings",
	// Warner Music Group
	"warner", "wmg", "atlantic", "elektra", "parlophone", "asylum",
}

// IsMajorLabel reports whether a label name matches a known major variant
func IsMajorLabel(label string) bool {
	lowered := strings.ToLower(label)
	for _, variant := range majorLabelVariants {
		if strings.Contains(lowered, variant) {
			return true
		}
	}
	return false
}
