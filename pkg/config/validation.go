package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Validatable interface {
	Validate() error
}

// getFieldFlag extracts the flag name from struct tags for a field given its
// struct namespace, e.g. "Config.Identity.AccountName".
func getFieldFlag(structType reflect.Type, namespace string) string {
	path := strings.Split(namespace, ".")
	if len(path) > 1 {
		// first element is the root type name
		path = path[1:]
	}
	fieldName := path[len(path)-1]

	var field reflect.StructField
	for _, name := range path {
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
		if structType.Kind() != reflect.Struct {
			return "--" + strings.ToLower(fieldName)
		}
		f, found := structType.FieldByName(name)
		if !found {
			return "--" + strings.ToLower(fieldName)
		}
		field = f
		structType = f.Type
	}

	// Check if this field has a flag tag
	if flagTag := field.Tag.Get("flag"); flagTag != "" {
		return "--" + flagTag
	}

	// Default to lowercase field name
	return "--" + strings.ToLower(fieldName)
}

func formatValidationError(structType reflect.Type, errs validator.ValidationErrors) error {
	var messages []string

	for _, err := range errs {
		field := err.Field()

		// Get flag name from struct tags
		flag := getFieldFlag(structType, err.StructNamespace())
		hint := fmt.Sprintf(" (see %s flag for help)", flag)

		switch err.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required but not provided%s", field, hint))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a valid URL%s", field, hint))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]%s", field, err.Param(), hint))
		case "excludesall":
			messages = append(messages, fmt.Sprintf("%s must not contain any of %q%s", field, err.Param(), hint))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s%s", field, err.Tag(), hint))
		}
	}

	if len(messages) == 1 {
		return fmt.Errorf("config validation error: %s", messages[0])
	}
	return fmt.Errorf("config validation errors:\n  - %s", strings.Join(messages, "\n  - "))
}

func validateConfig[T Validatable](cfg T) error {
	if err := validate.Struct(cfg); err != nil {
		// Convert validation errors to custom messages
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationError(reflect.TypeOf(cfg), validationErrors)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
