package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Phone numbers: digits with optional leading +, spaces, dashes and
	// parentheses
	PhonePattern = `^\+?[0-9][0-9 ()\-]{2,29}$`

	NameMinLength = 1
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Phone *regexp.Regexp
}{
	Phone: regexp.MustCompile(PhonePattern),
}

// Custom tags registered by Register
const (
	TagPhone = "phone"
	TagName  = "personname"
)

// Register adds the campus rules to v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation(TagPhone, func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation(TagName, func(fl validator.FieldLevel) bool {
		return IsName(fl.Field().String())
	})
}

// New returns a validator with the campus rules registered
func New() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// IsPhone reports whether s looks like a phone number
func IsPhone(s string) bool {
	return CompiledPatterns.Phone.MatchString(s)
}

// IsName reports whether s is a non-blank name within the length limits
func IsName(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed != s {
		return false
	}
	n := len([]rune(trimmed))
	return n >= NameMinLength && n <= NameMaxLength
}
