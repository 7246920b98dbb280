package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	dniPattern   = regexp.MustCompile(`^[0-9]{8}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
	hhmmPattern  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

var messages = map[string]string{
	"required": "field is required",
	"email":    "invalid email format",
	"min":      "value is too short",
	"max":      "value is too long",
	"gt":       "value must be greater than zero",
	"gte":      "value is too small",
	"oneof":    "value is not allowed",
	"dni":      "dni must have 8 digits",
	"phone":    "invalid phone number",
	"hhmm":     "time must use HH:MM",
	"dive":     "invalid item",
}

// FieldError is a client-facing validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator validates request payloads.
type Validator interface {
	Validate(obj interface{}) error
}

type playground struct {
	v *validator.Validate
}

// New returns a Validator with the clinic tags registered.
func New() Validator {
	v := validator.New()
	v.SetTagName("binding")
	Register(v)
	return &playground{v: v}
}

func (p *playground) Validate(obj interface{}) error {
	return p.v.Struct(obj)
}

// Register installs the clinic tags and json field naming on v. It is used
// both for standalone validators and for gin's binding engine.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// RegisterValidation only fails on empty tags or baked-in collisions.
	_ = v.RegisterValidation("dni", matches(dniPattern))
	_ = v.RegisterValidation("phone", matches(phonePattern))
	_ = v.RegisterValidation("hhmm", matches(hhmmPattern))
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Errors converts a validation error into field messages. Non-validation
// errors yield nil.
func Errors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = e.Error()
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}
