package backendsvc

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/studentportal/core/account"
)

// Login posts the credentials as a multipart form.
func (c *Client) Login(ctx context.Context, username, password string) (account.LoginResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, val := range map[string]string{"username": username, "password": password} {
		if err := w.WriteField(name, val); err != nil {
			return account.LoginResponse{}, errors.Wrap(err, "writing login form")
		}
	}
	if err := w.Close(); err != nil {
		return account.LoginResponse{}, errors.Wrap(err, "closing login form")
	}

	var resp account.LoginResponse
	err := c.do(ctx, call{
		method:      rest.Post,
		url:         c.authURL + "login",
		raw:         body.Bytes(),
		contentType: w.FormDataContentType(),
		defaultMsg:  "Unable to login. Please try again.",
	}, &resp)
	return resp, err
}

func (c *Client) Register(ctx context.Context, nu account.NewUser) error {
	return c.do(ctx, call{
		method:     rest.Post,
		url:        c.authURL + "register",
		body:       nu,
		defaultMsg: "Unable to register. Please try again.",
	}, nil)
}

func (c *Client) CreateUser(ctx context.Context, token string, nu account.NewUser) (account.User, error) {
	var usr account.User
	err := c.do(ctx, call{
		method:     rest.Post,
		url:        c.authURL + "create-user",
		token:      token,
		body:       nu,
		defaultMsg: "Failed to create user.",
	}, &usr)
	return usr, err
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]account.User, error) {
	var users []account.User
	err := c.do(ctx, call{
		method:     rest.Get,
		url:        c.authURL,
		token:      token,
		defaultMsg: "Failed to fetch users.",
	}, &users)
	return users, err
}

func (c *Client) UpdateUser(ctx context.Context, token, id string, upd account.UserUpdate) error {
	return c.do(ctx, call{
		method:     rest.Put,
		url:        c.authURL + "update-user/" + url.PathEscape(id),
		token:      token,
		body:       upd,
		defaultMsg: "Failed to update user.",
	}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.do(ctx, call{
		method:     rest.Delete,
		url:        c.apiURL + "users/" + url.PathEscape(id),
		token:      token,
		defaultMsg: "Failed to delete user.",
	}, nil)
}

// ChangePassword sets the password of the account id; the caller must be that account or an admin.
func (c *Client) ChangePassword(ctx context.Context, token, id, newPassword string) error {
	return c.do(ctx, call{
		method:     rest.Post,
		url:        c.authURL + "change-password/" + url.PathEscape(id),
		token:      token,
		body:       map[string]string{"new_password": newPassword},
		defaultMsg: "Failed to reset password.",
	}, nil)
}

func (c *Client) AssignRole(ctx context.Context, token, id, role string) error {
	return c.do(ctx, call{
		method:     rest.Post,
		url:        c.authURL + "assign-role/" + url.PathEscape(id),
		token:      token,
		body:       map[string]string{"role": role},
		defaultMsg: "Failed to assign role.",
	}, nil)
}
