package http

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlinks/internal/entity"
)

// newValidator returns a validator that reports json field names and knows
// the slug and targeturl tags.
func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		_, err := entity.ValidateSlug(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("targeturl", func(fl validator.FieldLevel) bool {
		_, err := entity.ValidateTargetURL(fl.Field().String())
		return err == nil
	})

	return validate
}
