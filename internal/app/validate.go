package app

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)
	return &requestValidator{validate: v, translator: translator}
}

// Struct validates target and turns failures into a 400 DomainError with
// details.fields. message overrides the default "Invalid request".
func (rv *requestValidator) Struct(target any, message ...string) error {
	err := rv.validate.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return badRequest(err.Error())
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(rv.translator)})
	}
	msg := "Invalid request"
	if len(message) > 0 {
		msg = message[0]
	}
	e := badRequest(msg)
	e.Details = map[string]any{"fields": fields}
	return e
}
