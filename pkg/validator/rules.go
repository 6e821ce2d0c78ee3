package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	imageURLRegex = regexp.MustCompile(`^https?://.*\.(jpg|jpeg|png|gif)$`)
)

// Required fails when the trimmed value is empty.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)},
	}
}

// MinLen fails when the value is shorter than min characters.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return len(value) >= min },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("%s must be at least %d characters long", field, min)},
	}
}

// MaxLen fails when the value is longer than max characters.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("%s cannot exceed %d characters", field, max)},
	}
}

// ValidEmail fails when the value is not a plausible email address.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			value = strings.TrimSpace(value)
			if value == "" {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			parts := strings.Split(value, "@")
			return len(parts) == 2 && parts[0] != "" && strings.Contains(parts[1], ".")
		},
		Error: ValidationError{Field: field, Message: "please provide a valid email address"},
	}
}

// ValidUsername fails unless the value is letters, digits, and underscores.
func ValidUsername(field, value string) Rule {
	return Rule{
		Check: func() bool { return usernameRegex.MatchString(value) },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("%s can only contain letters, numbers, and underscores", field)},
	}
}

// ValidImageURL fails unless the value is an http(s) URL ending in a common
// image extension. Empty values pass; combine with Required when needed.
func ValidImageURL(field, value string) Rule {
	return Rule{
		Check: func() bool { return value == "" || imageURLRegex.MatchString(value) },
		Error: ValidationError{Field: field, Message: "please provide a valid image URL"},
	}
}

// MaxLenSlice fails when the slice has more than max elements.
func MaxLenSlice[T any](field string, value []T, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("%s cannot exceed %d items", field, max)},
	}
}
