package account

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/student"
)

// Roles known by the backend.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var Roles = []string{RoleStudent, RoleTeacher, RoleAdmin}

type (
	// LoginResponse is the body returned by a successful login.
	LoginResponse struct {
		AccessToken string       `json:"access_token"`
		StudentID   student.Text `json:"student_id"`
		Email       string       `json:"email"`
	}

	// TokenStatus is the result of a password reset token verification.
	TokenStatus struct {
		Valid   bool   `json:"valid"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}

	// User is a backend account, as managed by admins.
	User struct {
		ID       student.Text `json:"id"`
		Username string       `json:"username"`
		Email    string       `json:"email"`
		Role     string       `json:"role"`
	}

	// NewUser contains the information needed to create a backend account.
	NewUser struct {
		Username string `json:"username" validate:"required,notblank"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role,omitempty" validate:"omitempty,oneof=student teacher admin"`
	}

	// UserUpdate holds the account fields to change; empty fields are left untouched.
	UserUpdate struct {
		Username string `json:"username,omitempty"`
		Email    string `json:"email,omitempty"`
	}
)

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true)
	return validate.Struct(nu)
}

// Forms

type (
	LoginForm struct {
		Username string `form:"username" validate:"required,notblank"`
		Password string `form:"password" validate:"required"`
	}

	ForgotPasswordForm struct {
		StudentID string `form:"student_id" validate:"required,notblank"`
	}

	ResetPasswordForm struct {
		Token           string `form:"token" validate:"required"`
		Password        string `form:"password" validate:"required"`
		PasswordConfirm string `form:"confirm_password"`
	}

	ChangePasswordForm struct {
		Password        string `form:"password" validate:"required"`
		PasswordConfirm string `form:"confirm_password"`

		// set from the session
		StudentID string `form:"-"`
		Email     string `form:"-"`
	}

	ChangeEmailForm struct {
		Email        string `form:"email" validate:"required,email"`
		CurrentEmail string `form:"-"`
	}
)

func (f *LoginForm) Validate(validate *validator.Validate) error {
	f.Username = core.CleanString(f.Username)
	return validate.Struct(f)
}

func (f *ForgotPasswordForm) Validate(validate *validator.Validate) error {
	f.StudentID = core.CleanString(f.StudentID)
	return validate.Struct(f)
}

func (f ResetPasswordForm) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

func (f ChangePasswordForm) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

func (f *ChangeEmailForm) Validate(validate *validator.Validate) error {
	f.Email = core.CleanString(f.Email)
	return validate.Struct(f)
}
