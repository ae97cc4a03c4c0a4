package dispatch

// Config holds the engine settings.
type Config struct {
	// BaseLatitude and BaseLongitude are the home-base coordinates a unit
	// returns to when its run completes.
	BaseLatitude  float64 `json:"base_latitude"`
	BaseLongitude float64 `json:"base_longitude"`
	// AckTimeoutSeconds bounds the wait for a driver acknowledgment after a
	// dispatch order is published.
	AckTimeoutSeconds int `json:"ack_timeout_seconds"`
}

// SetDefaults applies the campus defaults.
func (c *Config) SetDefaults() {
	if c.BaseLatitude == 0 && c.BaseLongitude == 0 {
		c.BaseLatitude = 12.9716
		c.BaseLongitude = 77.5946
	}
	if c.AckTimeoutSeconds <= 0 {
		c.AckTimeoutSeconds = 5
	}
}
