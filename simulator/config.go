package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the driver simulator.
type Config struct {
	Broker     string
	AckTopic   string
	OrderTopic string
	AckLatency time.Duration
	DropRate   float64
	Verbose    bool
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop rate must be between 0 and 1")
	}
	if c.AckLatency < 0 {
		return fmt.Errorf("ack latency must not be negative")
	}
	return nil
}
