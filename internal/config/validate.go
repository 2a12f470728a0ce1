package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"doccov/internal/errors"
)

var (
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New(validator.WithRequiredStructEnabled())
		validatorInstance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validatorInstance
}

// ConfigError describes one invalid field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate checks the configuration. The returned error has code
// CONFIG_INVALID and lists every offending field in its details.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.New(errors.ConfigInvalid, "config validation failed", err)
	}

	fields := make([]*ConfigError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, &ConfigError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return errors.New(errors.ConfigInvalid, fields[0].Error(), fields[0]).
		WithDetails(map[string]any{"fields": fields})
}

// fieldPath drops the root type from a namespace such as
// Config.generator.timeoutSeconds.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "eq":
		return fmt.Sprintf("must be %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "required", "required_if":
		return "is required"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
