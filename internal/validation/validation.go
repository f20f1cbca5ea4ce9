// Package validation проверяет входные данные API по тегам validate.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/lunchbox/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct проверяет структуру и возвращает ошибку вида Validation с описанием полей.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Wrap(apperr.KindValidation, err, "")
	}

	e := apperr.New(apperr.KindValidation, describe(fieldErrs[0]))
	for _, fe := range fieldErrs {
		e.WithDetail(fieldPath(fe), fe.Tag())
	}
	return e
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldPath(fe))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fieldPath(fe), fe.Param())
	case "min", "gt", "gte":
		return fmt.Sprintf("%s is too small", fieldPath(fe))
	case "max", "lt", "lte":
		return fmt.Sprintf("%s is too large", fieldPath(fe))
	}
	return fmt.Sprintf("%s is invalid", fieldPath(fe))
}

// fieldPath отбрасывает имя корневой структуры из пространства имён поля.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
