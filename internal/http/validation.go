package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/example/coaching-scheduler/internal/application"
	"github.com/example/coaching-scheduler/internal/scheduler"
)

var (
	// custom validation tags & texts
	weekdayTag  = "day_of_week"
	weekdayText = "{0} must be a day of the week such as monday"
	clockTag    = "clock"
	clockText   = "{0} must be a time of day in HH:MM format"
	statusTag   = "attendance_status"
	statusText  = "{0} must be one of present, absent, late, leave"

	requiredTag  = "required"
	requiredText = "{0} is required"
)

// requestValidator checks request DTOs before they are converted into
// application inputs. Messages are English and keyed by JSON field name.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		_, err := scheduler.ParseDayOfWeek(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
		_, err := scheduler.ParseClockTime(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return application.AttendanceStatus(strings.ToLower(strings.TrimSpace(fl.Field().String()))).Valid()
	})

	v := &requestValidator{validate: validate, translator: translator}
	v.registerTranslation(weekdayTag, weekdayText, false)
	v.registerTranslation(clockTag, clockText, false)
	v.registerTranslation(statusTag, statusText, false)
	v.registerTranslation(requiredTag, requiredText, true)
	return v
}

func (v *requestValidator) registerTranslation(tag, text string, override bool) {
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates req and returns a *application.ValidationError holding one
// message per failing field, or nil.
func (v *requestValidator) Struct(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	vErr := &application.ValidationError{FieldErrors: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, exists := vErr.FieldErrors[field]; exists {
			continue
		}
		vErr.FieldErrors[field] = fe.Translate(v.translator)
	}
	return vErr
}
