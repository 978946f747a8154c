package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(domain.Enum)
		return ok && e.Valid()
	})
	return v
}

// validateRequest checks req's struct tags and returns the first failure
// as a *domain.ErrValidation.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return &domain.ErrValidation{Field: "body", Message: err.Error()}
	}
	fe := ves[0]
	return &domain.ErrValidation{Field: fieldPath(fe), Message: message(fe)}
}

// fieldPath drops the struct name from the namespace: "LeadRequest.timeline[0].note" -> "timeline[0].note".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "email":
		return "e-mail inválido"
	case "url":
		return "URL inválida"
	case "datetime":
		return fmt.Sprintf("formato esperado %s", fe.Param())
	case "enum":
		return fmt.Sprintf("valor não permitido: %v", fe.Value())
	case "gte":
		return fmt.Sprintf("deve ser maior ou igual a %s", fe.Param())
	}
	return fmt.Sprintf("falhou na regra %s", fe.Tag())
}
