package state

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var configValidate = validator.New()

// TrackerConfig holds the topic tracker bounds. Loaded with the GUARD prefix.
type TrackerConfig struct {
	MaxTopics         int  `split_words:"true" default:"64" validate:"gte=1"`
	DormantAfterTurns int  `split_words:"true" default:"8" validate:"gte=1"`
	AllowRevival      bool `split_words:"true" default:"false"`
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxTopics:         64,
		DormantAfterTurns: 8,
		AllowRevival:      false,
	}
}

func (c TrackerConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid tracker config: %w", err)
	}
	return nil
}
