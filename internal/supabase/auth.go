package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shici/pkg/domain"
)

// authUser is the auth subsystem's view of an account, distinct from the
// profiles table row.
type authUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	UserMetadata     struct {
		Username string `json:"username"`
	} `json:"user_metadata"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        authUser `json:"user"`
}

// SignIn exchanges credentials for an access token, then resolves the full
// profile so the returned session is immediately usable.
func (c *Client) SignIn(ctx context.Context, p domain.LoginParams) (domain.Session, error) {
	query := url.Values{}
	query.Set("grant_type", "password")
	payload := map[string]string{"email": p.Email, "password": p.Password}

	var resp tokenResponse
	if err := c.authJSON(ctx, http.MethodPost, "/auth/v1/token", query, "", payload, &resp); err != nil {
		return domain.Session{}, err
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		return domain.Session{}, &Error{
			Kind:    domain.KindOther,
			Message: "sign-in returned no session, check email verification status",
		}
	}
	user, err := c.CurrentUser(ctx, resp.AccessToken)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: resp.AccessToken, User: &user}, nil
}

// SignUp creates an account. The service may require email verification, so
// this never signs the user in. A profiles row is inserted best-effort: the
// service can auto-provision it through its own side effects, so a duplicate
// or policy-blocked insert is swallowed and logged.
func (c *Client) SignUp(ctx context.Context, p domain.RegisterParams) error {
	payload := map[string]any{
		"email":    p.Email,
		"password": p.Password,
		"data":     map[string]string{"username": p.Username},
	}
	var created authUser
	if err := c.authJSON(ctx, http.MethodPost, "/auth/v1/signup", nil, "", payload, &created); err != nil {
		return err
	}
	if created.ID == "" {
		// No user yet: pending verification. Nothing else to do.
		return nil
	}
	row := map[string]any{
		"id":          created.ID,
		"username":    p.Username,
		"email":       p.Email,
		"level":       1,
		"is_verified": false,
	}
	if err := c.from("profiles", "").insert(ctx, row, nil); err != nil {
		c.log.Info("profile insert during sign-up skipped", "err", err)
	}
	return nil
}

// SignOut revokes the access token remotely.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.authJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, token, nil, nil)
}

// ResetPassword sends a password recovery email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	payload := map[string]string{"email": strings.TrimSpace(email)}
	return c.authJSON(ctx, http.MethodPost, "/auth/v1/recover", nil, "", payload, nil)
}

// ChangePassword sets a new password on the authenticated account. The
// service authorizes by token, not by re-checking the old password.
func (c *Client) ChangePassword(ctx context.Context, token string, _, newPassword string) error {
	payload := map[string]string{"password": newPassword}
	return c.authJSON(ctx, http.MethodPut, "/auth/v1/user", nil, token, payload, nil)
}

func (c *Client) getAuthUser(ctx context.Context, token string) (authUser, error) {
	var user authUser
	if err := c.authJSON(ctx, http.MethodGet, "/auth/v1/user", nil, token, nil, &user); err != nil {
		return authUser{}, err
	}
	return user, nil
}

func (c *Client) authJSON(ctx context.Context, method, path string, query url.Values, token string, payload, out any) error {
	resp, err := c.send(ctx, method, path, query, token, nil, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: domain.KindOther, Message: "decode auth response: " + err.Error()}
	}
	return nil
}
