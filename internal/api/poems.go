package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"shici/pkg/domain"
)

type poemListResponse struct {
	Poems []domain.Poem `json:"poems"`
	Total int           `json:"total"`
}

// ListPoems fetches one page of the poem catalog with optional filters.
func (c *Client) ListPoems(ctx context.Context, q domain.PoemQuery) (domain.PoemPage, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Dynasty != "" {
		query.Set("dynasty", q.Dynasty)
	}
	if q.Author != "" {
		query.Set("author", q.Author)
	}
	for _, tag := range q.Tags {
		query.Add("tags", tag)
	}
	var resp poemListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/poems", query, nil, &resp); err != nil {
		return domain.PoemPage{}, err
	}
	return domain.PoemPage{Poems: resp.Poems, Total: resp.Total}, nil
}

// GetPoem fetches a single poem by ID.
func (c *Client) GetPoem(ctx context.Context, id int64) (domain.Poem, error) {
	var poem domain.Poem
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/poems/%d", id), nil, nil, &poem); err != nil {
		return domain.Poem{}, err
	}
	return poem, nil
}

// SearchPoems runs a keyword search server-side.
func (c *Client) SearchPoems(ctx context.Context, keyword string, q domain.SearchQuery) (domain.PoemPage, error) {
	query := url.Values{}
	query.Set("keyword", keyword)
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Type != "" {
		query.Set("searchType", string(q.Type))
	}
	var resp poemListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/poems/search", query, nil, &resp); err != nil {
		return domain.PoemPage{}, err
	}
	return domain.PoemPage{Poems: resp.Poems, Total: resp.Total}, nil
}

// RandomPoem fetches a random poem.
func (c *Client) RandomPoem(ctx context.Context) (domain.Poem, error) {
	var poem domain.Poem
	if err := c.doJSON(ctx, http.MethodGet, "/poems/random", nil, nil, &poem); err != nil {
		return domain.Poem{}, err
	}
	return poem, nil
}

// ToggleLike flips the caller's like on a poem. The server identifies the
// user from the bearer token the request interceptor attaches.
func (c *Client) ToggleLike(ctx context.Context, _ domain.Session, poemID int64) (domain.ToggleResult, error) {
	var resp struct {
		Success bool `json:"success"`
		Liked   bool `json:"liked"`
		Likes   int  `json:"likes"`
	}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/poems/%d/like", poemID), nil, nil, &resp); err != nil {
		return domain.ToggleResult{}, err
	}
	return domain.ToggleResult{Active: resp.Liked, Count: resp.Likes}, nil
}

// ToggleFavorite flips the caller's favorite on a poem.
func (c *Client) ToggleFavorite(ctx context.Context, _ domain.Session, poemID int64) (domain.ToggleResult, error) {
	var resp struct {
		Success   bool `json:"success"`
		Favorited bool `json:"favorited"`
		Favorites int  `json:"favorites"`
	}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/poems/%d/favorite", poemID), nil, nil, &resp); err != nil {
		return domain.ToggleResult{}, err
	}
	return domain.ToggleResult{Active: resp.Favorited, Count: resp.Favorites}, nil
}

// CheckLike is only served by the backend-service path.
func (c *Client) CheckLike(ctx context.Context, _ domain.Session, poemID int64) (bool, error) {
	return false, fmt.Errorf("check like %d: %w", poemID, ErrUnsupported)
}

// UserFavorites is only served by the backend-service path.
func (c *Client) UserFavorites(ctx context.Context, _ domain.Session, _ domain.PageQuery) (domain.PoemPage, error) {
	return domain.PoemPage{}, fmt.Errorf("user favorites: %w", ErrUnsupported)
}

// UserLikes is only served by the backend-service path.
func (c *Client) UserLikes(ctx context.Context, _ domain.Session, _ domain.PageQuery) (domain.PoemPage, error) {
	return domain.PoemPage{}, fmt.Errorf("user likes: %w", ErrUnsupported)
}
