package barometer

import (
	"fmt"
	"math"
)

// Band is an interval of pressure in inches of mercury.
type Band struct {
	Low, High   float64
	IncludeLow  bool
	IncludeHigh bool
}

// Contains reports whether inHg lies inside the band.
func (b Band) Contains(inHg float64) bool {
	if inHg < b.Low || (inHg == b.Low && !b.IncludeLow) {
		return false
	}
	if inHg > b.High || (inHg == b.High && !b.IncludeHigh) {
		return false
	}
	return true
}

func (b Band) String() string {
	open, closeBr := "(", ")"
	if b.IncludeLow {
		open = "["
	}
	if b.IncludeHigh {
		closeBr = "]"
	}
	return fmt.Sprintf("%s%.2f, %.2f%s", open, b.Low, b.High, closeBr)
}

var (
	bandHigh   = Band{Low: 30.20, High: math.Inf(1), IncludeLow: true}
	bandFair   = Band{Low: 30.00, High: 30.20, IncludeLow: true, IncludeHigh: true}
	bandChange = Band{Low: 29.80, High: 30.00, IncludeLow: true}
	bandLow    = Band{Low: 29.60, High: 29.80, IncludeLow: true}
	bandStorm  = Band{Low: math.Inf(-1), High: 29.60, IncludeHigh: true}
)

// Rule maps a band and trend to forecast text.
type Rule struct {
	Band  Band   `json:"-"`
	Trend Trend  `json:"trend"`
	Text  string `json:"text"`
}

// Matches reports whether the rule applies to the given pressure and trend.
func (r Rule) Matches(inHg float64, t Trend) bool {
	return r.Trend == t && r.Band.Contains(inHg)
}

// The storm band carries repeated entries; only the first of each trend can fire.
var defaultRules = []Rule{
	{bandHigh, FallingRapidly, "Warmer, and rain within 36 hours."},
	{bandHigh, Steady, "No early change."},
	{bandFair, FallingSlowly, "Rain within 18 hours that will continue a day or two."},
	{bandFair, FallingRapidly, "Warmer, and rain within 24 hours."},
	{bandFair, RisingRapidly, "Fair followed within two days by warmer and rain."},
	{bandFair, Steady, "Fair, with slight changes in temperature, for one to two days."},
	{bandChange, FallingRapidly, "Rain, with high wind, followed within two days by clearing, colder."},
	{bandChange, RisingRapidly, "Clearing and colder within 12 hours."},
	{bandChange, Steady, "Fair and warmer."},
	{bandLow, FallingSlowly, "Foul weather: rain, snow, and storms."},
	{bandLow, RisingSlowly, "Improving weather: clearing skies and cooler temperatures."},
	{bandLow, Steady, "Continued foul weather."},
	{bandStorm, FallingRapidly, "Storm conditions expected: heavy rain or snow, strong winds."},
	{bandStorm, RisingRapidly, "Rapid improvement expected: clearing skies and cooler."},
	{bandStorm, Steady, "Severe weather: heavy rain or snow, strong winds."},
	{bandStorm, FallingRapidly, "Severe storm with heavy rain or snow imminent."},
	{bandStorm, RisingRapidly, "Rapid improvement, but cold weather likely."},
	{bandStorm, FallingSlowly, "Prolonged bad weather with heavy precipitation."},
	{bandStorm, RisingSlowly, "Gradual clearing, but conditions remain unsettled."},
	{bandStorm, Steady, "Severe weather: heavy rain or snow, strong winds."},
}

// DefaultRules returns a copy of the built-in forecast table.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// FallbackText is returned when no rule matches.
func FallbackText(inHg float64) string {
	return fmt.Sprintf("Check for updates - Current pressure: %.2f inHg", inHg)
}

// Resolver evaluates an ordered rule list. The first matching rule wins.
type Resolver struct {
	rules []Rule
}

// NewResolver copies rules. A nil or empty list uses the default table.
func NewResolver(rules []Rule) *Resolver {
	if len(rules) == 0 {
		return &Resolver{rules: DefaultRules()}
	}
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Resolver{rules: r}
}

// Rules returns a copy of the rule list in evaluation order.
func (r *Resolver) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Match returns the index and rule that fires for the given pressure and trend.
func (r *Resolver) Match(kPa float64, t Trend) (int, Rule, bool) {
	inHg := ToInHg(kPa)
	for i, rule := range r.rules {
		if rule.Matches(inHg, t) {
			return i, rule, true
		}
	}
	return -1, Rule{}, false
}

// Resolve returns the forecast text for the given pressure and trend.
func (r *Resolver) Resolve(kPa float64, t Trend) string {
	if _, rule, ok := r.Match(kPa, t); ok {
		return rule.Text
	}
	return FallbackText(ToInHg(kPa))
}

// Shadowed returns the indexes of rules that repeat an earlier rule's band
// and trend and therefore never fire.
func Shadowed(rules []Rule) []int {
	var out []int
	for i := range rules {
		for j := 0; j < i; j++ {
			if rules[j].Band == rules[i].Band && rules[j].Trend == rules[i].Trend {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
