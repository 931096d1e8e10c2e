package handler

import (
	"errors"
	"regexp"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[0-9]{12}$`)

// clockSkew tolerates client clocks slightly ahead of the server.
const clockSkew = time.Minute

// RegisterValidators adds the custom binding tags used by request payloads:
// "notfuture" for dates and "phone" for 12-digit phone numbers.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	if err := v.RegisterValidation("notfuture", notFuture); err != nil {
		return err
	}
	return v.RegisterValidation("phone", phone)
}

func notFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.After(time.Now().Add(clockSkew))
}

func phone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}
