// Package inputval validates decoded request payloads with struct tags.
//
// Rules are those of github.com/go-playground/validator plus a few domain
// rules: objectid, httpurl, amount, invitetype and visibility. Messages use
// the field's `label` tag so they can be returned to API clients directly.
package inputval

import (
	"net/mail"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/dalemusser/investwest/internal/app/system/normalize"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the failures of one Validate call.
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "" when valid.
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsValidHTTPURL(fl.Field().String())
		})
		_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
			return IsValidAmount(fl.Field().String())
		})
		_ = v.RegisterValidation("invitetype", func(fl validator.FieldLevel) bool {
			return IsValidInviteType(fl.Field().String())
		})
		_ = v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
			n := fl.Field().Int()
			return n >= -1 && n <= 2
		})
		validate = v
	})
	return validate
}

// Validate checks v against its `validate` tags.
func Validate(v any) *Result {
	res := &Result{}
	err := engine().Struct(v)
	if err == nil {
		return res
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Field: "_", Message: err.Error()})
		return res
	}
	for _, e := range ve {
		res.Errors = append(res.Errors, FieldError{Field: e.StructField(), Message: message(e)})
	}
	return res
}

func message(e validator.FieldError) string {
	label := e.Field()
	switch e.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return label + " must be at most " + e.Param() + " characters."
	case "min":
		return label + " must be at least " + e.Param() + " characters."
	case "email":
		return "A valid email address is required."
	case "objectid":
		return label + " must be a valid id."
	case "httpurl":
		return label + " must be an http(s) URL."
	case "amount":
		return label + " must be a positive number."
	case "invitetype":
		return label + ` must be "issuer" or "investor".`
	case "visibility":
		return label + " must be -1, 0, 1 or 2."
	}
	return label + " is invalid."
}

// IsValidEmail accepts a bare RFC 5322 address without a display name.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	for _, part := range []string{local, domain} {
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") || strings.Contains(part, "..") {
			return false
		}
	}
	return true
}

// IsValidHTTPURL accepts absolute http and https URLs.
func IsValidHTTPURL(s string) bool {
	return urlutil.IsValidAbsHTTPURL(strings.TrimSpace(s))
}

// IsValidObjectID accepts a 24-character hex string.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(s)))
	return err == nil
}

// IsValidAmount accepts a positive decimal number.
func IsValidAmount(s string) bool {
	f, err := strconv.ParseFloat(normalize.Amount(s), 64)
	return err == nil && f > 0
}

// IsValidInviteType accepts the roles a group can invite.
func IsValidInviteType(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "issuer", "investor":
		return true
	}
	return false
}
