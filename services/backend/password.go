package backendsvc

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/studentportal/core/account"
)

type successResponse struct {
	Success bool `json:"success"`
}

// ForgotPassword asks the backend to email a reset link to the student.
func (c *Client) ForgotPassword(ctx context.Context, studentID string) (bool, error) {
	var resp successResponse
	err := c.do(ctx, call{
		method:     rest.Post,
		url:        c.frontURL + "forgot-password/",
		body:       map[string]string{"student_id": studentID},
		defaultMsg: "Failed to send reset link.",
	}, &resp)
	return resp.Success, err
}

// VerifyToken checks a password reset token. A 4xx answer is an invalid token, not an error.
func (c *Client) VerifyToken(ctx context.Context, resetToken string) (account.TokenStatus, error) {
	var status account.TokenStatus
	err := c.do(ctx, call{
		method:     rest.Get,
		url:        c.frontURL + "verify-token",
		query:      map[string]string{"token": resetToken},
		defaultMsg: "Invalid or expired token",
	}, &status)
	if apiErr, ok := errors.Cause(err).(*APIError); ok &&
		apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError {
		return account.TokenStatus{Message: apiErr.Message}, nil
	}
	return status, err
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) (bool, error) {
	var resp successResponse
	err := c.do(ctx, call{
		method:     rest.Post,
		url:        c.frontURL + "reset-password",
		body:       map[string]string{"token": resetToken, "new_password": newPassword},
		defaultMsg: "Failed to reset password",
	}, &resp)
	return resp.Success, err
}
