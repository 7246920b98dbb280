package middleware

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/dentalclinic-api/pkg/validator"
)

// RegisterValidation installs the clinic validation tags and json field
// names on gin's binding engine.
func RegisterValidation() error {
	v, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	validator.Register(v)
	return nil
}
