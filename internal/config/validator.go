package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigError describes a single invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors aggregates every invalid field found in one pass.
type ValidationErrors []ConfigError

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d config errors: %s", len(v), strings.Join(msgs, "; "))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags plus cross-field rules the tags cannot
// express. It reports all failures at once rather than the first.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, ConfigError{
				Field:   strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config.")),
				Message: messageFor(fe),
				Value:   fe.Value(),
			})
		}
	}

	if cfg.Compaction.ToolUseRetention > cfg.Compaction.MaxRecords {
		errs = append(errs, ConfigError{
			Field:   "compaction.tooluseretention",
			Message: "must not exceed compaction.maxrecords",
			Value:   cfg.Compaction.ToolUseRetention,
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
