package supabase

import (
	"context"
	"strconv"
	"time"

	"shici/pkg/domain"
)

// poemRow mirrors the poems table columns.
type poemRow struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Dynasty   string    `json:"dynasty"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Analysis  string    `json:"analysis"`
	Likes     int       `json:"likes"`
	Favorites int       `json:"favorites"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r poemRow) toPoem() domain.Poem {
	return domain.Poem{
		ID:        r.ID,
		Title:     r.Title,
		Author:    r.Author,
		Dynasty:   r.Dynasty,
		Content:   r.Content,
		Category:  r.Category,
		Tags:      r.Tags,
		Analysis:  r.Analysis,
		Likes:     r.Likes,
		Favorites: r.Favorites,
		Image:     r.Image,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toPoems(rows []poemRow) []domain.Poem {
	poems := make([]domain.Poem, 0, len(rows))
	for _, row := range rows {
		poems = append(poems, row.toPoem())
	}
	return poems
}

// ListPoems fetches one page of poems, newest first, with optional filters.
func (c *Client) ListPoems(ctx context.Context, q domain.PoemQuery) (domain.PoemPage, error) {
	query := c.from("poems", "").
		order("created_at", true).
		page(q.Page, q.Limit).
		withCount()
	if q.Dynasty != "" {
		query.eq("dynasty", q.Dynasty)
	}
	if q.Author != "" {
		query.eq("author", q.Author)
	}
	if len(q.Tags) > 0 {
		query.contains("tags", q.Tags)
	}
	var rows []poemRow
	total, err := query.get(ctx, &rows)
	if err != nil {
		return domain.PoemPage{}, err
	}
	return domain.PoemPage{Poems: toPoems(rows), Total: total}, nil
}

// GetPoem fetches a single poem by ID.
func (c *Client) GetPoem(ctx context.Context, id int64) (domain.Poem, error) {
	var row poemRow
	if _, err := c.from("poems", "").eq("id", formatID(id)).asSingle().get(ctx, &row); err != nil {
		return domain.Poem{}, err
	}
	return row.toPoem(), nil
}

// SearchPoems runs a case-insensitive substring match server-side across
// title, author, and content (or a single field per the search type).
func (c *Client) SearchPoems(ctx context.Context, keyword string, q domain.SearchQuery) (domain.PoemPage, error) {
	pattern := "*" + keyword + "*"
	query := c.from("poems", "").page(q.Page, q.Limit).withCount()
	switch q.Type {
	case domain.SearchTitle:
		query.params.Set("title", "ilike."+pattern)
	case domain.SearchAuthor:
		query.params.Set("author", "ilike."+pattern)
	case domain.SearchContent:
		query.params.Set("content", "ilike."+pattern)
	default:
		query.orFilter(
			"title.ilike."+pattern,
			"author.ilike."+pattern,
			"content.ilike."+pattern,
		)
	}
	var rows []poemRow
	total, err := query.get(ctx, &rows)
	if err != nil {
		return domain.PoemPage{}, err
	}
	return domain.PoemPage{Poems: toPoems(rows), Total: total}, nil
}

// RandomPoem picks a poem for the "random" feature. The table has no random
// ordering operator exposed, so this mirrors the web client: latest by ID.
func (c *Client) RandomPoem(ctx context.Context) (domain.Poem, error) {
	var rows []poemRow
	if _, err := c.from("poems", "").order("id", true).limit(1).get(ctx, &rows); err != nil {
		return domain.Poem{}, err
	}
	if len(rows) == 0 {
		return domain.Poem{}, &Error{Kind: domain.KindNotFound, Message: "no poems available"}
	}
	return rows[0].toPoem(), nil
}

// CreatePoem inserts a new poem (admin surface).
func (c *Client) CreatePoem(ctx context.Context, token string, poem domain.Poem) (domain.Poem, error) {
	payload := map[string]any{
		"title":    poem.Title,
		"author":   poem.Author,
		"dynasty":  poem.Dynasty,
		"content":  poem.Content,
		"category": poem.Category,
		"tags":     poem.Tags,
		"analysis": poem.Analysis,
		"image":    poem.Image,
	}
	var row poemRow
	if err := c.from("poems", token).insert(ctx, payload, &row); err != nil {
		return domain.Poem{}, err
	}
	return row.toPoem(), nil
}

// UpdatePoem patches selected poem fields (admin surface).
func (c *Client) UpdatePoem(ctx context.Context, token string, id int64, fields map[string]any) (domain.Poem, error) {
	var row poemRow
	if err := c.from("poems", token).eq("id", formatID(id)).update(ctx, fields, &row); err != nil {
		return domain.Poem{}, err
	}
	return row.toPoem(), nil
}

// DeletePoem removes a poem (admin surface).
func (c *Client) DeletePoem(ctx context.Context, token string, id int64) error {
	return c.from("poems", token).eq("id", formatID(id)).delete(ctx)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
