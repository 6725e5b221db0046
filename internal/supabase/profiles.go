package supabase

import (
	"context"
	"strings"
	"time"

	"shici/pkg/domain"
)

// profileRow mirrors the profiles table columns.
type profileRow struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	AvatarURL  string    `json:"avatar_url"`
	Level      int       `json:"level"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r profileRow) toUser() domain.User {
	return domain.User{
		ID:         r.ID,
		Email:      r.Email,
		Username:   r.Username,
		AvatarURL:  r.AvatarURL,
		Level:      r.Level,
		IsVerified: r.IsVerified,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// CurrentUser resolves the authenticated account to its profile. A missing
// profile row is bootstrapped with defaults (level 1, unverified); if that
// insert fails, auth success still wins: a degraded profile derived from the
// auth account is returned instead of an error.
func (c *Client) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	account, err := c.getAuthUser(ctx, token)
	if err != nil {
		return domain.User{}, err
	}

	var row profileRow
	found, err := c.from("profiles", token).eq("id", account.ID).maybeSingle(ctx, &row)
	if err != nil {
		return domain.User{}, err
	}
	if !found {
		payload := map[string]any{
			"id":          account.ID,
			"username":    defaultUsername(account),
			"email":       account.Email,
			"level":       1,
			"is_verified": false,
		}
		var created profileRow
		if err := c.from("profiles", token).insert(ctx, payload, &created); err != nil {
			c.log.Warn("profile bootstrap failed, serving degraded profile", "user", account.ID, "err", err)
			return degradedUser(account), nil
		}
		row = created
	}

	user := row.toUser()
	// The auth subsystem owns the email address.
	user.Email = account.Email
	return user, nil
}

// UpdateProfile patches the caller's profile row.
func (c *Client) UpdateProfile(ctx context.Context, sess domain.Session, p domain.UserUpdateParams) (domain.User, error) {
	payload := map[string]any{}
	if p.Username != nil {
		payload["username"] = *p.Username
	}
	if p.AvatarURL != nil {
		payload["avatar_url"] = *p.AvatarURL
	}
	var row profileRow
	if err := c.from("profiles", sess.Token).eq("id", sess.User.ID).update(ctx, payload, &row); err != nil {
		return domain.User{}, err
	}
	user := row.toUser()
	user.Email = sess.User.Email
	return user, nil
}

// relationJoinRow is a favorites/likes row with the joined poem embedded.
type relationJoinRow struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	PoemID    int64     `json:"poem_id"`
	CreatedAt time.Time `json:"created_at"`
	Poems     *poemRow  `json:"poems"`
}

// UserFavorites lists the caller's favorited poems, newest first, mapping
// join rows down to plain poem records.
func (c *Client) UserFavorites(ctx context.Context, sess domain.Session, q domain.PageQuery) (domain.PoemPage, error) {
	return c.userRelationPoems(ctx, sess, "favorites", q)
}

// UserLikes lists the caller's liked poems, newest first.
func (c *Client) UserLikes(ctx context.Context, sess domain.Session, q domain.PageQuery) (domain.PoemPage, error) {
	return c.userRelationPoems(ctx, sess, "likes", q)
}

func (c *Client) userRelationPoems(ctx context.Context, sess domain.Session, table string, q domain.PageQuery) (domain.PoemPage, error) {
	var rows []relationJoinRow
	total, err := c.from(table, sess.Token).
		selectCols("*,poems(*)").
		eq("user_id", sess.User.ID).
		order("created_at", true).
		page(q.Page, q.Limit).
		withCount().
		get(ctx, &rows)
	if err != nil {
		return domain.PoemPage{}, err
	}
	poems := make([]domain.Poem, 0, len(rows))
	for _, row := range rows {
		if row.Poems == nil {
			continue
		}
		poems = append(poems, row.Poems.toPoem())
	}
	return domain.PoemPage{Poems: poems, Total: total}, nil
}

func defaultUsername(account authUser) string {
	if name := account.UserMetadata.Username; name != "" {
		return name
	}
	if at := strings.Index(account.Email, "@"); at > 0 {
		return account.Email[:at]
	}
	return "user"
}

func degradedUser(account authUser) domain.User {
	return domain.User{
		ID:         account.ID,
		Email:      account.Email,
		Username:   defaultUsername(account),
		Level:      1,
		IsVerified: account.EmailConfirmedAt != nil,
		CreatedAt:  account.CreatedAt,
	}
}
