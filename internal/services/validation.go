package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kadirbarquet/usuarios-api/internal/models"
	pkgauth "github.com/kadirbarquet/usuarios-api/pkg/auth"
)

// Client-facing validation messages
const (
	MsgAllFieldsRequired   = "Todos los campos son requeridos"
	MsgNameTooShort        = "El nombre debe tener al menos 2 caracteres"
	MsgInvalidEmail        = "Correo inválido"
	MsgPasswordTooShort    = "La contraseña debe tener al menos 8 caracteres"
	MsgPasswordTooLong     = "La contraseña no puede superar los 72 bytes"
	MsgPasswordNotAllowed  = "Las cuentas de Google no tienen contraseña"
	MsgCredentialsRequired = "Correo y contraseña son requeridos"
)

// emailPattern is deliberately loose: something@something.tld with no spaces.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// normalizeEmail trims and lowercases; email uniqueness is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	if err := validate.Var(strings.TrimSpace(name), "required,min=2"); err != nil {
		return models.NewValidationError("name", MsgNameTooShort)
	}
	return nil
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,basic_email"); err != nil {
		return models.NewValidationError("email", MsgInvalidEmail)
	}
	return nil
}

func validatePassword(password string) error {
	if err := validate.Var(password, fmt.Sprintf("required,min=%d", pkgauth.MinPasswordLen)); err != nil {
		return models.NewValidationError("password", MsgPasswordTooShort)
	}
	// bcrypt only looks at the first 72 bytes
	if len(password) > pkgauth.MaxPasswordLen {
		return models.NewValidationError("password", MsgPasswordTooLong)
	}
	return nil
}
