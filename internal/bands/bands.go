// Package bands holds the categorical bucketing shared by the dimension and
// fact builders. Both sides must classify identically, so the boundaries
// live here exactly once.
package bands

// TemperatureBand is one row of the temperature dimension.
type TemperatureBand struct {
	Key         int64
	Name        string
	RangeMin    float64
	RangeMax    float64
	Description string
}

// Temperature bands in Fahrenheit. Keys are stable (1..5) because the band
// table itself is static, not derived from data.
var TemperatureBands = []TemperatureBand{
	{Key: 1, Name: "Freezing", RangeMin: -999, RangeMax: 32, Description: "Below 32°F - Freezing conditions"},
	{Key: 2, Name: "Cold", RangeMin: 32, RangeMax: 50, Description: "32-50°F - Cold weather"},
	{Key: 3, Name: "Cool", RangeMin: 50, RangeMax: 70, Description: "50-70°F - Cool/Comfortable"},
	{Key: 4, Name: "Warm", RangeMin: 70, RangeMax: 85, Description: "70-85°F - Warm weather"},
	{Key: 5, Name: "Hot", RangeMin: 85, RangeMax: 999, Description: "Above 85°F - Hot conditions"},
}

// TemperatureKey classifies a temperature into a band key. Bands are
// half-open [min, max): 32.0 is Cold, not Freezing.
func TemperatureKey(f float64) int64 {
	switch {
	case f < 32:
		return 1
	case f < 50:
		return 2
	case f < 70:
		return 3
	case f < 85:
		return 4
	default:
		return 5
	}
}

// AgeGroup buckets an age into the reporting bands used by the customer
// dimension. Ages at a boundary belong to the lower band (18 → "18-30",
// 30 → "18-30", 31 → "31-45").
func AgeGroup(age int64) string {
	switch {
	case age < 18:
		return "<18"
	case age <= 30:
		return "18-30"
	case age <= 45:
		return "31-45"
	case age <= 60:
		return "46-60"
	default:
		return "60+"
	}
}
