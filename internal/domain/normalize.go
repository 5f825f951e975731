package domain

// CanonicalFitnessKey is the one internal name all fitness-selector
// aliases are renamed to at the submission boundary (§4.4
// Normalization, §9 "Field-name drift").
const CanonicalFitnessKey = "fitness"

// fitnessAliases lists every historical field name observed for the
// fitness selector, beyond the canonical key itself.
var fitnessAliases = []string{
	"fitness_function_name",
	"fitness_function",
	"fitness_name",
}

// NormalizeFitnessKey rewrites any known alias key in raw to the
// canonical key, in place, and returns raw. If more than one alias is
// present the first one found (in fitnessAliases order) wins and the
// rest are left untouched — callers only ever read CanonicalFitnessKey
// afterward. A raw map that already sets the canonical key is
// returned unchanged.
func NormalizeFitnessKey(raw map[string]any) map[string]any {
	if raw == nil {
		return raw
	}
	if _, ok := raw[CanonicalFitnessKey]; ok {
		return raw
	}
	for _, alias := range fitnessAliases {
		if v, ok := raw[alias]; ok {
			raw[CanonicalFitnessKey] = v
			return raw
		}
	}
	return raw
}
