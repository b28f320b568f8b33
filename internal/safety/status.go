package safety

// Check names used in logs and telemetry.
const (
	CheckIsDark      = "is_dark"
	CheckGoodWeather = "good_weather"
	CheckFreeSpace   = "free_space"
)

// Status is the outcome of one safety evaluation.
type Status struct {
	IsDark      bool `json:"is_dark"`
	GoodWeather bool `json:"good_weather"`
	FreeSpace   bool `json:"free_space"`
}

// Safe is true only when every check passed.
func (s Status) Safe() bool {
	return s.IsDark && s.GoodWeather && s.FreeSpace
}

// Checks returns the individual results keyed by check name.
func (s Status) Checks() map[string]bool {
	return map[string]bool{
		CheckIsDark:      s.IsDark,
		CheckGoodWeather: s.GoodWeather,
		CheckFreeSpace:   s.FreeSpace,
	}
}
