package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/kadirbarquet/usuarios-api/internal/models"
)

// Global validator instance (reused across all handlers)
var validate = validator.New()

// ValidateRequest checks the presence rules declared in struct tags and
// reports a failure with msg, the client message for the endpoint. Field
// rules such as name length or email shape are enforced by the services.
func ValidateRequest(req interface{}, msg string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	field := ""
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		field = ve[0].Field()
	}
	return models.NewValidationError(field, msg)
}
