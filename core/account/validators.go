package account

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/studentportal/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("Password must be at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "Password must not contain whitespace"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "Password is too similar to your student ID or email"

	pwdMismatchTag = "eqfield"

	emailSameTag  = "emaildiff"
	emailSameText = "New email must be different"
)

// RegisterValidators registers the account forms' struct level validations and their messages.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(formStructValidation, ResetPasswordForm{}, ChangePasswordForm{}, ChangeEmailForm{})

	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, emailSameTag, emailSameText)
}

// formStructValidation does struct level validation on the password & email forms.
func formStructValidation(sl validator.StructLevel) {
	switch f := sl.Current().Interface().(type) {
	case ResetPasswordForm:
		if checkPasswordsMatch(f.Password, f.PasswordConfirm, sl) {
			validatePassword(f.Password, sl)
		}
	case ChangePasswordForm:
		if checkPasswordsMatch(f.Password, f.PasswordConfirm, sl) {
			validatePassword(f.Password, sl, f.StudentID, f.Email)
		}
	case ChangeEmailForm:
		if f.CurrentEmail != "" && strings.EqualFold(strings.TrimSpace(f.Email), strings.TrimSpace(f.CurrentEmail)) {
			sl.ReportError(f.Email, "email", "Email", emailSameTag, "")
		}
	}
}

func checkPasswordsMatch(pwd, confirm string, sl validator.StructLevel) bool {
	if pwd != confirm {
		sl.ReportError(confirm, "confirm_password", "PasswordConfirm", pwdMismatchTag, "Password")
		return false
	}
	return true
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no similarity with the account attributes
func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	if pwd == "" { // reported by `required`
		return
	}
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len([]rune(pwd)) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			reportErr(pwdAttrSimTag)
			return
		}
	}
}
