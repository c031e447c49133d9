// Package validation registers the custom binding tags used by request DTOs.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	// resource or resource:action, lowercase with underscores
	permCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(:[a-z][a-z0-9_]*)?$`)
	slugPattern     = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Register installs the custom tags on v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("permcode", validatePermCode); err != nil {
		return err
	}
	return v.RegisterValidation("slug", validateSlug)
}

// RegisterGin installs the custom tags on gin's default binding engine
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("validation: gin binding engine is not validator/v10")
	}
	return Register(v)
}

func validatePermCode(fl validator.FieldLevel) bool {
	return permCodePattern.MatchString(fl.Field().String())
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

// Describe flattens binding errors into one message per field, e.g. "code: must be a permission code"
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fieldName(fe), rule(fe)))
	}
	return strings.Join(msgs, "; ")
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.Namespace()
	}
	return toSnake(name)
}

func rule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be an email address"
	case "url":
		return "must be a URL"
	case "uuid":
		return "must be a UUID"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "permcode":
		return "must look like resource or resource:action"
	case "slug":
		return "must be lowercase letters, digits and underscores"
	case "nefield":
		return "must differ from " + toSnake(fe.Param())
	}
	return "failed " + fe.Tag()
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			// keep acronyms like ID together
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
