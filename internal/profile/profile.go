// Package profile defines the built-in stem-separation model profiles.
package profile

// ID identifies one of the built-in separation model profiles.
type ID string

const (
	BalancedFourStem ID = "balanced-four-stem"
	BalancedSixStem  ID = "balanced-six-stem"
)

// Profile describes a separation model: the stems it produces and the
// weight file it expects to find in the cache.
type Profile struct {
	ID             ID
	Key            string
	Label          string
	WeightFilename string
	Stems          []string
}

var builtins = []Profile{
	{
		ID:             BalancedFourStem,
		Key:            "balanced-four-stem",
		Label:          "Balanced 4-Stem",
		WeightFilename: "ggml-model-htdemucs-4s-f16.bin",
		Stems:          []string{"vocals", "drums", "bass", "other"},
	},
	{
		ID:             BalancedSixStem,
		Key:            "balanced-six-stem",
		Label:          "Balanced 6-Stem",
		WeightFilename: "ggml-model-htdemucs-6s-f16.bin",
		Stems:          []string{"vocals", "drums", "bass", "piano", "guitar", "other"},
	},
}

// Default is the profile used when a job does not request one explicitly.
const Default = BalancedSixStem

// Lookup resolves a profile by its enum identifier.
func Lookup(id ID) (Profile, bool) {
	for _, p := range builtins {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// LookupKey resolves a profile by its string key, as used in manifests,
// job overrides, and CLI flags.
func LookupKey(key string) (Profile, bool) {
	for _, p := range builtins {
		if p.Key == key {
			return p, true
		}
	}
	return Profile{}, false
}

// All returns every built-in profile, in a stable order.
func All() []Profile {
	out := make([]Profile, len(builtins))
	copy(out, builtins)
	return out
}

// HasStem reports whether a profile produces the named stem.
func (p Profile) HasStem(stem string) bool {
	for _, s := range p.Stems {
		if s == stem {
			return true
		}
	}
	return false
}
