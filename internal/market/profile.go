// Package market provides named adjustment rate profiles so the valuation
// engine can be tuned per metro area without rebuilding.
package market

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cma-cli/internal/config"
)

// Profile overrides the dollar adjustment rates for one market. Zero-valued
// fields keep the engine's configured rate. Similarity weights and the
// recency window are deliberately not overridable per market.
type Profile struct {
	Label               string  `yaml:"label"`
	PricePerSqft        float64 `yaml:"price_per_sqft"`
	SmallCompMultiplier float64 `yaml:"small_comp_multiplier"`
	LargeCompMultiplier float64 `yaml:"large_comp_multiplier"`
	BedroomValue        float64 `yaml:"bedroom_value"`
	BathroomValue       float64 `yaml:"bathroom_value"`
	AgePerYear          float64 `yaml:"age_per_year"`
	LotRate             float64 `yaml:"lot_rate"`
	LotExcessRate       float64 `yaml:"lot_excess_rate"`
	QuarterlyRate       float64 `yaml:"quarterly_rate"`
	TimeCap             float64 `yaml:"time_cap"`
}

// Profiles is a named set of market profiles.
type Profiles struct {
	profiles map[string]Profile
}

// UnknownProfileError reports a market selector that matches no profile.
type UnknownProfileError struct {
	Name      string
	Available []string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("market: unknown profile %q (available: %s)",
		e.Name, strings.Join(e.Available, ", "))
}

// BuiltinProfiles returns the profiles shipped with the binary. A profiles
// file overlays these; same-named entries in the file win.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"los_angeles": {
			Label:         "Los Angeles, CA",
			PricePerSqft:  350,
			BedroomValue:  25000,
			BathroomValue: 12000,
			LotRate:       12,
			LotExcessRate: 5,
		},
		"san_francisco": {
			Label:         "San Francisco Bay Area, CA",
			PricePerSqft:  550,
			BedroomValue:  40000,
			BathroomValue: 20000,
			LotRate:       20,
			LotExcessRate: 8,
		},
		"austin": {
			Label:         "Austin, TX",
			PricePerSqft:  220,
			BedroomValue:  18000,
			BathroomValue: 9000,
			LotRate:       6,
			LotExcessRate: 2.5,
		},
		"midwest": {
			Label:         "Midwest metro baseline",
			PricePerSqft:  120,
			BedroomValue:  10000,
			BathroomValue: 6000,
			LotRate:       3,
			LotExcessRate: 1,
		},
	}
}

// Builtin returns the profile set containing only the builtin profiles.
func Builtin() *Profiles {
	return &Profiles{profiles: BuiltinProfiles()}
}

// Load builds the profile set for the given market configuration: the
// builtin profiles, overlaid with the profiles file when one is configured.
func Load(cfg config.MarketConfig) (*Profiles, error) {
	merged := BuiltinProfiles()

	if cfg.ProfilesPath != "" {
		fromFile, err := LoadProfiles(cfg.ProfilesPath)
		if err != nil {
			return nil, err
		}
		for name, p := range fromFile.profiles {
			merged[name] = p
		}
	}

	return &Profiles{profiles: merged}, nil
}

// LoadProfiles reads market profiles from a YAML file. The file has a
// top-level "markets" key mapping profile names to rate overrides.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "market: read profiles %s", path)
	}

	var wrapper struct {
		Markets map[string]Profile `yaml:"markets"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "market: parse profiles")
	}
	if len(wrapper.Markets) == 0 {
		return nil, eris.Errorf("market: no profiles found in %s", path)
	}

	return &Profiles{profiles: wrapper.Markets}, nil
}

// Get returns the named profile.
func (p *Profiles) Get(name string) (Profile, error) {
	prof, ok := p.profiles[name]
	if !ok {
		return Profile{}, &UnknownProfileError{Name: name, Available: p.Names()}
	}
	return prof, nil
}

// Names returns the profile names in sorted order.
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.profiles))
	for name := range p.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply returns a copy of the engine config with the profile's non-zero
// rates applied.
func Apply(prof Profile, cfg config.EngineConfig) config.EngineConfig {
	r := &cfg.Rates

	if prof.PricePerSqft > 0 {
		r.PricePerSqft = prof.PricePerSqft
	}
	if prof.SmallCompMultiplier > 0 {
		r.SmallCompMultiplier = prof.SmallCompMultiplier
	}
	if prof.LargeCompMultiplier > 0 {
		r.LargeCompMultiplier = prof.LargeCompMultiplier
	}
	if prof.BedroomValue > 0 {
		r.BedroomValue = prof.BedroomValue
	}
	if prof.BathroomValue > 0 {
		r.BathroomValue = prof.BathroomValue
	}
	if prof.AgePerYear > 0 {
		r.AgePerYear = prof.AgePerYear
	}
	if prof.LotRate > 0 {
		r.LotRate = prof.LotRate
	}
	if prof.LotExcessRate > 0 {
		r.LotExcessRate = prof.LotExcessRate
	}
	if prof.QuarterlyRate > 0 {
		r.QuarterlyRate = prof.QuarterlyRate
	}
	if prof.TimeCap > 0 {
		r.TimeCap = prof.TimeCap
	}

	return cfg
}
