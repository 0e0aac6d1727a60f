package audit

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverUpstash  = "upstash"
	DriverQStash   = "qstash"
	DriverLog      = "log"
	DriverNone     = "none"
)

var configValidate = validator.New()

// Config selects and configures the audit sink. Loaded with the AUDIT prefix.
type Config struct {
	Driver  string        `envconfig:"DRIVER" default:"log" validate:"oneof=postgres sqlite upstash qstash log none"`
	DSN     string        `envconfig:"DSN" validate:"required_if=Driver postgres,required_if=Driver sqlite"`
	Upstash UpstashConfig `envconfig:"UPSTASH"`
	QStash  QStashConfig  `envconfig:"QSTASH"`
}

type UpstashConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"168h"`
}

// QStashConfig publishes turn records to Destination through Upstash QStash.
type QStashConfig struct {
	URL          string        `envconfig:"URL" split_words:"true" default:"https://qstash.upstash.io"`
	Token        string        `envconfig:"TOKEN" split_words:"true"`
	Destination  string        `envconfig:"DESTINATION" split_words:"true"`
	CriticalOnly bool          `envconfig:"CRITICAL_ONLY" split_words:"true" default:"true"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid audit config: %w", err)
	}
	return nil
}
