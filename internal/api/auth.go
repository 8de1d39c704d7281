package api

import (
	"context"
	"errors"

	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/request"
)

// ErrEmptyToken is returned when a login succeeds without issuing a token.
var ErrEmptyToken = errors.New("login response missing token")

type loginEnvelope struct {
	request.Result
	dto.LoginResponse
}

type userInfoEnvelope struct {
	request.Result
	models.UserInfo
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (string, error) {
	var out loginEnvelope
	if err := c.r.Post(ctx, "/login", req, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", ErrEmptyToken
	}
	return out.Token, nil
}

// GetUserInfo fetches the identity behind the current token.
func (c *Client) GetUserInfo(ctx context.Context) (models.UserInfo, error) {
	var out userInfoEnvelope
	if err := c.r.Get(ctx, "/getInfo", nil, &out); err != nil {
		return models.UserInfo{}, err
	}
	return out.UserInfo, nil
}

// Logout tells the server to drop the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.r.Post(ctx, "/logout", nil, nil)
}

// Register creates an account. The new account still has to log in.
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) error {
	return c.r.Post(ctx, "/register", req, nil)
}
