package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "event-booking-engine/pkg/app_errors"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Unwrap 讓 handler 可用 errors.Is 判斷為 ErrInvalidInput
func (v ValidationErrors) Unwrap() error {
	return apperrors.ErrInvalidInput
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	enums := map[string]func(string) bool{
		"event_category": func(s string) bool { return EventCategory(s).IsValid() },
		"ticket_tier":    func(s string) bool { return TicketTier(s).IsValid() },
		"payment_method": func(s string) bool { return PaymentMethod(s).IsValid() },
	}
	for tag, fn := range enums {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s validator: %v", tag, err))
		}
	}
	return v
}

// Validate 驗證 request struct，錯誤轉成 ValidationErrors
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, e := range errs {
		var msg string
		switch e.Tag() {
		case "required":
			msg = "is required"
		case "gt":
			msg = "must be greater than " + e.Param()
		case "gte":
			msg = "must be at least " + e.Param()
		case "min":
			msg = "must contain at least " + e.Param() + " item(s)"
		case "max":
			msg = "must be at most " + e.Param() + " characters"
		case "email":
			msg = "must be a valid email"
		case "event_category", "ticket_tier", "payment_method", "oneof":
			msg = fmt.Sprintf("unsupported value %q", fmt.Sprint(e.Value()))
		default:
			msg = "failed on " + e.Tag()
		}
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, ValidationError{Field: field, Message: msg})
	}
	return out
}
