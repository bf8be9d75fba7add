package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Messages shown to the person filling in the register and login forms.
const (
	MsgAllFieldsRequired   = "All fields are required"
	MsgLoginFieldsRequired = "Email and password are required"
	MsgPasswordTooShort    = "Password must be at least 8 characters long"
	MsgPasswordTooLong     = "Password must be at most 72 bytes long"
	MsgInvalidEmail        = "Email must be a valid email address"
	MsgUserExists          = "A user with this email already exists"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgSomethingWentWrong  = "Something went wrong, please try again"
)

const (
	msgRequired       = "is required"
	minPasswordLength = 8
	maxPasswordBytes  = 72
)

// ValidationError reports rejected input. Message is the form-level summary
// and Fields maps json field names to their messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return common.ErrorValidation
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// normalizeEmail only trims; stored emails are matched exactly.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (in *RegisterInput) normalize() {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
}

func (in *LoginInput) normalize() {
	in.Email = normalizeEmail(in.Email)
}

// Validate checks presence first; format and length rules only speak when
// every field is filled in.
func (in RegisterInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required.Error(msgRequired)),
		validation.Field(&in.Password, validation.Required.Error(msgRequired)),
		validation.Field(&in.Name, validation.Required.Error(msgRequired)),
	)
	if err != nil {
		return newValidationError(MsgAllFieldsRequired, err)
	}

	err = validation.ValidateStruct(&in,
		validation.Field(&in.Email, is.Email.Error(MsgInvalidEmail)),
		validation.Field(&in.Password,
			validation.RuneLength(minPasswordLength, 0).Error(MsgPasswordTooShort),
			validation.Length(0, maxPasswordBytes).Error(MsgPasswordTooLong),
		),
	)
	if err != nil {
		return newValidationError("", err)
	}
	return nil
}

func (in LoginInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required.Error(msgRequired)),
		validation.Field(&in.Password, validation.Required.Error(msgRequired)),
	)
	if err != nil {
		return newValidationError(MsgLoginFieldsRequired, err)
	}
	return nil
}

// newValidationError flattens ozzo errors. An empty summary takes the
// message of the first failing field in name order.
func newValidationError(summary string, err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	names := make([]string, 0, len(errs))
	for name, fieldErr := range errs {
		fields[name] = fieldErr.Error()
		names = append(names, name)
	}
	sort.Strings(names)

	if summary == "" && len(names) > 0 {
		summary = fields[names[0]]
	}
	return &ValidationError{Message: summary, Fields: fields}
}
