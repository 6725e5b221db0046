package api

import (
	"context"
	"net/http"

	"shici/pkg/domain"
)

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, p domain.LoginParams) (domain.Session, error) {
	var resp struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, p, &resp); err != nil {
		return domain.Session{}, err
	}
	user := resp.User
	return domain.Session{Token: resp.Token, User: &user}, nil
}

// SignUp creates an account. It deliberately discards any returned session:
// registration does not sign the user in.
func (c *Client) SignUp(ctx context.Context, p domain.RegisterParams) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/register", nil, p, nil)
}

// SignOut is a local no-op: the REST surface has no sign-out endpoint, so
// logout is purely client-side on this path.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return nil
}

// CurrentUser fetches the caller's profile. The token argument is unused
// here; the request interceptor attaches the cached bearer token.
func (c *Client) CurrentUser(ctx context.Context, _ string) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/user/info", nil, nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile applies a partial profile update.
func (c *Client) UpdateProfile(ctx context.Context, _ domain.Session, p domain.UserUpdateParams) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodPut, "/user/info", nil, p, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ChangePassword rotates the caller's password.
func (c *Client) ChangePassword(ctx context.Context, _ string, oldPassword, newPassword string) error {
	payload := map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}
	return c.doJSON(ctx, http.MethodPost, "/user/change-password", nil, payload, nil)
}
