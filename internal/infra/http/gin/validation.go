package ginserver

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"luxrent/internal/domain/refund"
)

var registerOnce sync.Once

// RegisterValidators installs the refund request rules on gin's validator and makes
// validation errors report JSON field names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
			return refund.ValidEmail(fl.Field().String())
		})
	})
}

// validationError converts validator output into the domain error the API reports.
// Blank fields win over a malformed email, in struct order.
func validationError(err error) (*refund.ValidationError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	var missing []string
	var invalid string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "notblank", "required":
			missing = append(missing, fe.Field())
		default:
			if invalid == "" {
				invalid = fe.Field()
			}
		}
	}
	if len(missing) > 0 {
		return &refund.ValidationError{Missing: missing}, true
	}
	if invalid == "customerEmail" {
		return &refund.ValidationError{Field: invalid, Message: "Invalid email address"}, true
	}
	return &refund.ValidationError{Field: invalid, Message: "Invalid " + invalid}, true
}
