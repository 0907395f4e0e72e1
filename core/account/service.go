package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/session"
)

// User facing messages.
const (
	MsgLoginInvalidResponse = "Login failed: Invalid response from server."
	MsgLoginInvalidCreds    = "Login failed: Invalid username or password."

	MsgResetLinkSent       = "Password reset link has been sent to your email."
	MsgResetLinkFailed     = "Failed to send reset link. Please try again."
	MsgResetLinkError      = "Error: Unable to send reset link."
	MsgNoResetToken        = "No token provided"
	MsgInvalidResetToken   = "Invalid or expired token"
	MsgVerifyTokenFailed   = "Failed to verify token"
	MsgResetPasswordFailed = "Failed to reset password"
	MsgPasswordReset       = "Password reset successfully! You can now sign in."

	MsgPasswordChanged      = "Password updated successfully."
	MsgPasswordChangeFailed = "Failed to update password."
	MsgEmailChanged         = "Email updated. Please verify your new email."
	MsgEmailChangeFailed    = "Failed to update email."
)

// Backend is the authentication part of the backend API.
type Backend interface {
	Login(ctx context.Context, username, password string) (LoginResponse, error)
	ForgotPassword(ctx context.Context, studentID string) (bool, error)
	VerifyToken(ctx context.Context, resetToken string) (TokenStatus, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) (bool, error)
	ChangePassword(ctx context.Context, token, studentID, newPassword string) error
	UpdateUser(ctx context.Context, token, id string, upd UserUpdate) error
}

// Service runs the login, password reset and settings flows.
type Service struct {
	backend Backend
	mailSvc core.EmailService
	logger  core.Logger
	nowFunc func() time.Time
}

func NewService(backend Backend, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		backend: backend,
		mailSvc: mailSvc,
		logger:  logger,
		nowFunc: time.Now,
	}
}

func failure(msg string) error {
	return core.NewValidationError(errors.New(msg))
}

// displayable turns a backend error into a message for the form. The backend message is kept
// when there is one; 401s are returned untouched so the caller can sign the client out.
func (svc *Service) displayable(err error, fallback string, args ...interface{}) error {
	if core.IsUnauthorized(err) {
		return err
	}
	svc.logger.Error(fallback, append([]interface{}{err}, args...)...)
	if apiErr, ok := errors.Cause(err).(*core.APIError); ok && apiErr.Message != "" {
		return failure(apiErr.Message)
	}
	return failure(fallback)
}

// Login authenticates against the backend and stores the returned token in the client's Session.
// The real backend error is logged, never shown.
func (svc *Service) Login(ctx context.Context, store *session.Store, form LoginForm) error {
	resp, err := svc.backend.Login(ctx, form.Username, form.Password)
	if err != nil {
		svc.logger.Warn("login failed", err, map[string]interface{}{"username": form.Username})
		if errors.Cause(err) == core.ErrMalformedResponse {
			return failure(MsgLoginInvalidResponse)
		}
		return failure(MsgLoginInvalidCreds)
	}
	if resp.AccessToken == "" {
		svc.logger.Warn("login response has no access_token", map[string]interface{}{"username": form.Username})
		return failure(MsgLoginInvalidResponse)
	}

	studentID := core.FirstNonEmpty(resp.StudentID.String(), form.Username)
	if err = store.SetToken(ctx, resp.AccessToken, studentID, resp.Email); err != nil {
		return errors.Wrap(err, "storing session")
	}
	return nil
}

// Logout clears the client's Session. The token is not revoked on the backend.
func (svc *Service) Logout(ctx context.Context, store *session.Store) error {
	if err := store.Clear(ctx); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	return nil
}

// ForgotPassword asks the backend to email a reset link; returns the message to show.
func (svc *Service) ForgotPassword(ctx context.Context, form ForgotPasswordForm) (string, error) {
	ok, err := svc.backend.ForgotPassword(ctx, form.StudentID)
	if err != nil {
		svc.logger.Error("requesting password reset link", err, map[string]interface{}{"student_id": form.StudentID})
		return "", failure(MsgResetLinkError)
	}
	if !ok {
		return "", failure(MsgResetLinkFailed)
	}
	return MsgResetLinkSent, nil
}

// VerifyResetToken checks a reset token before offering the new password form.
func (svc *Service) VerifyResetToken(ctx context.Context, resetToken string) (TokenStatus, error) {
	if resetToken == "" {
		return TokenStatus{}, failure(MsgNoResetToken)
	}
	status, err := svc.backend.VerifyToken(ctx, resetToken)
	if err != nil {
		svc.logger.Error("verifying reset token", err)
		return TokenStatus{}, failure(MsgVerifyTokenFailed)
	}
	if !status.Valid {
		return status, failure(core.FirstNonEmpty(status.Message, MsgInvalidResetToken))
	}
	return status, nil
}

// ResetPassword sets a new password with a verified reset token.
func (svc *Service) ResetPassword(ctx context.Context, form ResetPasswordForm) error {
	ok, err := svc.backend.ResetPassword(ctx, form.Token, form.Password)
	if err != nil {
		return svc.displayable(err, MsgResetPasswordFailed)
	}
	if !ok {
		return failure(MsgResetPasswordFailed)
	}
	return nil
}

// ChangePassword updates the password of the signed in student and notifies them by email.
func (svc *Service) ChangePassword(ctx context.Context, sess session.Session, form ChangePasswordForm) error {
	if err := svc.backend.ChangePassword(ctx, sess.Token, sess.StudentID, form.Password); err != nil {
		return svc.displayable(err, MsgPasswordChangeFailed, sess)
	}

	if sess.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Address: sess.Email}},
			Subject:      "Your password was changed",
			TemplateName: "password_changed",
			TemplateData: map[string]interface{}{
				"StudentID": sess.StudentID,
				"When":      svc.nowFunc().UTC().Format(time.RFC1123),
			},
		})
	}
	return nil
}

// ChangeEmail updates the email of the signed in student, mirrors it into the Session
// and notifies the previous address.
func (svc *Service) ChangeEmail(ctx context.Context, store *session.Store, form ChangeEmailForm) error {
	sess := store.Session()
	if err := svc.backend.UpdateUser(ctx, sess.Token, sess.StudentID, UserUpdate{Email: form.Email}); err != nil {
		return svc.displayable(err, MsgEmailChangeFailed, sess)
	}
	if err := store.SetEmail(ctx, form.Email); err != nil {
		return errors.Wrap(err, "storing email")
	}

	if sess.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Address: sess.Email}},
			Subject:      "Your email address was changed",
			TemplateName: "email_changed",
			TemplateData: map[string]interface{}{
				"StudentID": sess.StudentID,
				"NewEmail":  form.Email,
				"When":      svc.nowFunc().UTC().Format(time.RFC1123),
			},
		})
	}
	return nil
}
