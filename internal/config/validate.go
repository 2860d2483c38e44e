package config

import (
	"fmt"
	"strings"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
)

// Validate checks the configuration for structural errors. All violations
// are collected and reported together.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.MaxConns < c.Database.MinConns {
		problems = append(problems, fmt.Sprintf(
			"database.max_conns (%d) must be >= database.min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be json or text", c.Log.Format))
	}

	if err := c.Scheduler.DeckSettings().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if n := len(c.Scheduler.Weights); n != 0 && n != domain.WeightCount {
		problems = append(problems, fmt.Sprintf(
			"scheduler.weights must hold exactly %d values or be empty, got %d",
			domain.WeightCount, n))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s): %s", len(problems), strings.Join(problems, "; "))
	}
	return nil
}

// DeckSettings converts the scheduler section into kernel settings. An empty
// weight list selects the built-in defaults.
func (c SchedulerConfig) DeckSettings() domain.DeckSettings {
	s := domain.DefaultDeckSettings()
	s.RequestRetention = c.RequestRetention
	s.MaximumInterval = c.MaximumInterval
	s.EnableFuzz = c.EnableFuzz
	if len(c.Weights) == domain.WeightCount {
		copy(s.W[:], c.Weights)
	}
	return s
}
