package supabase

import (
	"context"
	"time"

	"shici/pkg/domain"
)

// relationRow is a bare favorites/likes row.
type relationRow struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	PoemID    int64     `json:"poem_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckLike reports whether the session's user has liked a poem. Failures
// degrade to "not liked" so a flaky check never blocks the UI.
func (c *Client) CheckLike(ctx context.Context, sess domain.Session, poemID int64) (bool, error) {
	if !sess.Valid() {
		return false, nil
	}
	var row relationRow
	found, err := c.from("likes", sess.Token).
		selectCols("id").
		eq("poem_id", formatID(poemID)).
		eq("user_id", sess.User.ID).
		maybeSingle(ctx, &row)
	if err != nil {
		c.log.Warn("check like failed", "poem", poemID, "err", err)
		return false, nil
	}
	return found, nil
}

// ToggleLike flips the like relation and reconciles the poems.likes counter.
func (c *Client) ToggleLike(ctx context.Context, sess domain.Session, poemID int64) (domain.ToggleResult, error) {
	return c.toggleRelation(ctx, sess, poemID, "likes", "likes")
}

// ToggleFavorite flips the favorite relation and reconciles
// poems.favorites.
func (c *Client) ToggleFavorite(ctx context.Context, sess domain.Session, poemID int64) (domain.ToggleResult, error) {
	return c.toggleRelation(ctx, sess, poemID, "favorites", "favorites")
}

// toggleRelation is a read-check-then-write sequence: look up the relation
// row, delete or insert it, re-read the poem's counter, adjust by ±1 clamped
// at zero, and persist the counter back. There is no compare-and-swap or
// server-side atomic increment, so concurrent toggles from different
// sessions can race on the counter; last write wins.
func (c *Client) toggleRelation(ctx context.Context, sess domain.Session, poemID int64, table, counterCol string) (domain.ToggleResult, error) {
	var existing relationRow
	found, err := c.from(table, sess.Token).
		selectCols("id").
		eq("poem_id", formatID(poemID)).
		eq("user_id", sess.User.ID).
		maybeSingle(ctx, &existing)
	if err != nil {
		return domain.ToggleResult{}, err
	}

	delta := 1
	active := true
	if found {
		if err := c.from(table, sess.Token).eq("id", formatID(existing.ID)).delete(ctx); err != nil {
			return domain.ToggleResult{}, err
		}
		delta = -1
		active = false
	} else {
		payload := map[string]any{"poem_id": poemID, "user_id": sess.User.ID}
		if err := c.from(table, sess.Token).insert(ctx, payload, nil); err != nil {
			return domain.ToggleResult{}, err
		}
	}

	var counter map[string]int
	if _, err := c.from("poems", sess.Token).
		selectCols(counterCol).
		eq("id", formatID(poemID)).
		asSingle().
		get(ctx, &counter); err != nil {
		return domain.ToggleResult{}, err
	}
	count := counter[counterCol] + delta
	if count < 0 {
		count = 0
	}

	payload := map[string]any{counterCol: count}
	if err := c.from("poems", sess.Token).eq("id", formatID(poemID)).update(ctx, payload, nil); err != nil {
		return domain.ToggleResult{}, err
	}
	return domain.ToggleResult{Active: active, Count: count}, nil
}

// commentRow is a comments row with the author's profile embedded.
type commentRow struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	PoemID    int64     `json:"poem_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Profiles  *struct {
		Username  string `json:"username"`
		AvatarURL string `json:"avatar_url"`
	} `json:"profiles"`
}

func (r commentRow) toComment() domain.Comment {
	comment := domain.Comment{
		ID:        r.ID,
		UserID:    r.UserID,
		PoemID:    r.PoemID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Profiles != nil {
		comment.Username = r.Profiles.Username
		comment.AvatarURL = r.Profiles.AvatarURL
	}
	return comment
}

// AddComment attaches a comment to a poem and returns it with the author's
// profile joined in.
func (c *Client) AddComment(ctx context.Context, sess domain.Session, poemID int64, content string) (domain.Comment, error) {
	payload := map[string]any{
		"poem_id": poemID,
		"user_id": sess.User.ID,
		"content": content,
	}
	var row commentRow
	if err := c.from("comments", sess.Token).
		selectCols("*,profiles(username,avatar_url)").
		insert(ctx, payload, &row); err != nil {
		return domain.Comment{}, err
	}
	return row.toComment(), nil
}

// PoemComments lists a poem's comments, newest first.
func (c *Client) PoemComments(ctx context.Context, poemID int64, q domain.PageQuery) ([]domain.Comment, int, error) {
	var rows []commentRow
	total, err := c.from("comments", "").
		selectCols("*,profiles(username,avatar_url)").
		eq("poem_id", formatID(poemID)).
		order("created_at", true).
		page(q.Page, q.Limit).
		withCount().
		get(ctx, &rows)
	if err != nil {
		return nil, 0, err
	}
	comments := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toComment())
	}
	return comments, total, nil
}
