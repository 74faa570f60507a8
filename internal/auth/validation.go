// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// Password policy, applied to the trimmed password.
const (
	MinPasswordLength = 10
	MaxPasswordLength = 100
)

// NormalizeEmail trims surrounding whitespace and lowercases an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	emailRules = []validation.Rule{
		validation.Required.Error("email is required"),
		is.Email.Error("must be a valid email address"),
	}
	newPasswordRules = []validation.Rule{
		validation.Required.Error("password is required"),
		validation.RuneLength(MinPasswordLength, MaxPasswordLength).
			Error("password must be between 10 and 100 characters"),
	}
)

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetInput struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// validateEmail normalizes and checks the shape of an email.
func validateEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if err := validation.Validate(email, emailRules...); err != nil {
		return "", validationFailed(&ValidationError{Fields: map[string]string{"email": err.Error()}})
	}
	return email, nil
}

// validateLogin returns the normalized email. The password is taken as-is;
// only its presence is checked, so passwords set before the policy existed
// still authenticate.
func validateLogin(email, password string) (string, error) {
	in := loginInput{Email: NormalizeEmail(email), Password: password}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Password, validation.Required.Error("password is required")),
	)
	if err != nil {
		return "", fromOzzo(err)
	}
	return in.Email, nil
}

// validateSignup returns the normalized email and trimmed password.
func validateSignup(email, password string) (string, string, error) {
	in := signupInput{Email: NormalizeEmail(email), Password: strings.TrimSpace(password)}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Password, newPasswordRules...),
	)
	if err != nil {
		return "", "", fromOzzo(err)
	}
	return in.Email, in.Password, nil
}

// validateReset returns the trimmed token and new password.
func validateReset(token, password, confirmation string) (string, string, error) {
	in := resetInput{
		Token:                strings.TrimSpace(token),
		Password:             strings.TrimSpace(password),
		PasswordConfirmation: strings.TrimSpace(confirmation),
	}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Token, validation.Required.Error("token is required")),
		validation.Field(&in.Password, newPasswordRules...),
		validation.Field(&in.PasswordConfirmation, append(newPasswordRules, validation.By(func(value interface{}) error {
			if s, _ := value.(string); s != in.Password {
				return errors.New("passwords don't match")
			}
			return nil
		}))...),
	)
	if err != nil {
		return "", "", fromOzzo(err)
	}
	return in.Token, in.Password, nil
}

// validateChangePassword returns the trimmed new password.
func validateChangePassword(current, newPassword string) (string, error) {
	in := changePasswordInput{CurrentPassword: current, NewPassword: strings.TrimSpace(newPassword)}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required.Error("current password is required")),
		validation.Field(&in.NewPassword, newPasswordRules...),
	)
	if err != nil {
		return "", fromOzzo(err)
	}
	return in.NewPassword, nil
}

// fromOzzo converts ozzo field errors into a ValidationError.
func fromOzzo(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		// ValidateStruct only returns a non-Errors value for programming mistakes.
		return oops.Code("AUTH_VALIDATION_INTERNAL").Wrap(err)
	}
	ve := &ValidationError{Fields: make(map[string]string, len(errs))}
	for field, fieldErr := range errs {
		if fieldErr != nil {
			ve.Fields[field] = fieldErr.Error()
		}
	}
	return validationFailed(ve)
}

func validationFailed(ve *ValidationError) error {
	return oops.Code("AUTH_VALIDATION_FAILED").With("fields", ve.Fields).Wrap(ve)
}
