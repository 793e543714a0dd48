package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/enkiluv/scl-core-experiment/internal/types"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements Validator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator instance.
func NewValidator() Validator {
	return &validatorImpl{validate: validator.New()}
}

// Validate validates the configuration and returns a structured error
// naming every failing field.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	err := v.validate.Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.WrapError(types.CONFIG_VALIDATION_FAILED, "configuration validation failed", err)
	}

	var details []string
	for _, fieldErr := range validationErrors {
		details = append(details, fmt.Sprintf("%s failed %q", fieldErr.Namespace(), fieldErr.Tag()))
	}

	return types.NewError(types.CONFIG_VALIDATION_FAILED,
		fmt.Sprintf("configuration validation failed: %s", strings.Join(details, "; ")))
}
