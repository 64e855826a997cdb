package art

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	ApiKeyPrefix    = "sk-"
	ApiKeyMinLength = 21
)

var apiKeyRules = fmt.Sprintf("required,startswith=%s,min=%d", ApiKeyPrefix, ApiKeyMinLength)

var validate = validator.New()

// ValidateApiKey checks the format of an OpenAI key only; it never contacts
// the provider.
func ValidateApiKey(apiKey string) error {
	err := validate.Var(apiKey, apiKeyRules)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ConfigurationError{Err: err}
	}

	switch fieldErrs[0].Tag() {
	case "required":
		return &ConfigurationError{Err: errors.New("key is empty")}
	case "startswith":
		return &ConfigurationError{Err: fmt.Errorf("key must start with %q", ApiKeyPrefix)}
	case "min":
		return &ConfigurationError{Err: fmt.Errorf("key must be at least %d characters", ApiKeyMinLength)}
	default:
		return &ConfigurationError{Err: err}
	}
}

func IsValidApiKey(apiKey string) bool {
	return ValidateApiKey(apiKey) == nil
}
