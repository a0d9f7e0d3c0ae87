package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every configuration problem Validate finds.
var ErrInvalid = errors.New("config validation failed")

// validate names fields by their koanf key, so problems read like the YAML
// and APP_ env var they came from.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}

		return name
	})

	return v
}

// Validate checks the struct tags, then the settings that depend on each
// other. All problems are reported together, one per line.
func (c *Config) Validate() error {
	var problems []string

	var verrs validator.ValidationErrors

	switch err := validate.Struct(c); {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	case err != nil:
		return err
	}

	problems = append(problems, c.crossChecks()...)

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(problems, "\n  "))
}

// crossChecks covers settings a single tag cannot express.
func (c *Config) crossChecks() []string {
	var problems []string

	if c.Sync.Interval > 0 && c.Sync.Timeout > c.Sync.Interval {
		problems = append(problems, "sync.timeout must not exceed sync.interval")
	}

	retry := c.Client.Retry
	if retry.InitialInterval > 0 && retry.MaxInterval > 0 && retry.MaxInterval < retry.InitialInterval {
		problems = append(problems, "client.retry.max_interval must not be below client.retry.initial_interval")
	}

	return problems
}

func describe(fe validator.FieldError) string {
	field := formatFieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		// Param is "<GoField> <value>", e.g. "Driver sqlite".
		other, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is required when %s is %s", field, strings.ToLower(other), value)
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "url":
		return field + " must be a valid URL"
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	case "excludes":
		return fmt.Sprintf("%s must not contain %q", field, fe.Param())
	default:
		return field + " failed validation: " + fe.Tag()
	}
}

// formatFieldPath drops the root struct name: "Config.store.driver" becomes "store.driver".
func formatFieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return strings.ToLower(namespace)
	}

	return rest
}
