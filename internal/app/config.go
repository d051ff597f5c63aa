package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string `validate:"required"` // hcl file or directory

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`
	WorkerCount     int    `validate:"gte=0"` // 0 keeps the analysis file's value
	Cycles          int    `validate:"gte=1"`
	// Derivatives overrides the analysis file when "true" or "false".
	Derivatives string `validate:"omitempty,oneof=true false"`

	PublishURL   string `validate:"omitempty,url"`
	PublishEvent string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails '%s' (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return nil, err
	}
	return &cfg, nil
}

// derivativesOverride reports the CLI override, if any.
func (c *Config) derivativesOverride() (bool, bool) {
	switch c.Derivatives {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
