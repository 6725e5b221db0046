package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"shici/pkg/domain"
)

// PoemStore owns the catalog state: the browsing list, an independent search
// result set, the focused poem, and the caller's favorites. It reads the
// session through a SessionSource and never mutates it.
type PoemStore struct {
	svc      PoemService
	sessions SessionSource
	log      *slog.Logger
	group    singleflight.Group

	mu          sync.Mutex
	poems       []domain.Poem
	pagination  domain.Pagination
	results     []domain.Poem
	searchPages domain.Pagination
	keyword     string
	searching   bool
	current     *domain.Poem
	favorites   []domain.Poem
	loading     bool
	lastErr     string
}

func NewPoemStore(svc PoemService, sessions SessionSource, logger *slog.Logger) *PoemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PoemStore{svc: svc, sessions: sessions, log: logger}
}

// FetchPoems loads one page of the catalog. Page 1 replaces the list, later
// pages append, so scrolling accumulates without duplicating refreshes.
func (s *PoemStore) FetchPoems(ctx context.Context, q domain.PoemQuery) error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = domain.DefaultPageLimit
	}
	s.setLoading(true)
	defer s.setLoading(false)

	page, err := s.svc.ListPoems(ctx, q)
	if err != nil {
		s.setError(messageOr(err, "获取诗词列表失败"))
		return err
	}

	s.mu.Lock()
	if q.Page <= 1 {
		s.poems = page.Poems
	} else {
		s.poems = append(s.poems, page.Poems...)
	}
	s.pagination = domain.NewPagination(q.Page, q.Limit, page.Total)
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// SearchPoems runs a keyword search into its own result set; the browsing
// list is untouched. An empty keyword clears the search instead.
func (s *PoemStore) SearchPoems(ctx context.Context, keyword string, q domain.SearchQuery) error {
	if keyword == "" {
		s.ClearSearch()
		return nil
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = domain.DefaultPageLimit
	}
	s.setSearching(true)
	defer s.setSearching(false)

	page, err := s.svc.SearchPoems(ctx, keyword, q)
	if err != nil {
		s.setError(messageOr(err, "搜索诗词失败"))
		return err
	}

	s.mu.Lock()
	if q.Page <= 1 || s.keyword != keyword {
		s.results = page.Poems
	} else {
		s.results = append(s.results, page.Poems...)
	}
	s.keyword = keyword
	s.searchPages = domain.NewPagination(q.Page, q.Limit, page.Total)
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// FetchPoemByID focuses a poem. Concurrent fetches of the same ID collapse
// into one request.
func (s *PoemStore) FetchPoemByID(ctx context.Context, id int64) (domain.Poem, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	v, err, _ := s.group.Do(fmt.Sprintf("poem-%d", id), func() (any, error) {
		return s.svc.GetPoem(ctx, id)
	})
	if err != nil {
		s.setError(messageOr(err, "获取诗词详情失败"))
		return domain.Poem{}, err
	}
	poem := v.(domain.Poem)
	s.mu.Lock()
	s.current = &poem
	s.lastErr = ""
	s.mu.Unlock()
	return poem, nil
}

// FetchRandomPoem focuses a random pick from the catalog.
func (s *PoemStore) FetchRandomPoem(ctx context.Context) (domain.Poem, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	poem, err := s.svc.RandomPoem(ctx)
	if err != nil {
		s.setError(messageOr(err, "获取随机诗词失败"))
		return domain.Poem{}, err
	}
	s.mu.Lock()
	s.current = &poem
	s.lastErr = ""
	s.mu.Unlock()
	return poem, nil
}

// LikePoem toggles the caller's like. It fails fast while anonymous, before
// any network call, and on success patches the server-confirmed counter onto
// the list entry, the search entry, and the focused poem.
func (s *PoemStore) LikePoem(ctx context.Context, id int64) (domain.ToggleResult, error) {
	return s.toggle(ctx, id, s.svc.ToggleLike, func(p *domain.Poem, count int) {
		p.Likes = count
	})
}

// FavoritePoem toggles the caller's favorite.
func (s *PoemStore) FavoritePoem(ctx context.Context, id int64) (domain.ToggleResult, error) {
	return s.toggle(ctx, id, s.svc.ToggleFavorite, func(p *domain.Poem, count int) {
		p.Favorites = count
	})
}

type toggleCall func(ctx context.Context, sess domain.Session, poemID int64) (domain.ToggleResult, error)

func (s *PoemStore) toggle(ctx context.Context, id int64, call toggleCall, patch func(*domain.Poem, int)) (domain.ToggleResult, error) {
	sess := s.sessions.Session()
	if !sess.Valid() {
		s.setError("请先登录")
		return domain.ToggleResult{}, ErrNotLoggedIn
	}
	res, err := call(ctx, sess, id)
	if err != nil {
		s.setError(messageOr(err, "操作失败，请稍后重试"))
		return domain.ToggleResult{}, err
	}

	s.mu.Lock()
	for i := range s.poems {
		if s.poems[i].ID == id {
			patch(&s.poems[i], res.Count)
		}
	}
	for i := range s.results {
		if s.results[i].ID == id {
			patch(&s.results[i], res.Count)
		}
	}
	if s.current != nil && s.current.ID == id {
		patch(s.current, res.Count)
	}
	s.lastErr = ""
	s.mu.Unlock()
	return res, nil
}

// CheckUserLike reports whether the caller has liked a poem. Anonymous
// callers and lookup failures both read as "not liked".
func (s *PoemStore) CheckUserLike(ctx context.Context, id int64) bool {
	sess := s.sessions.Session()
	if !sess.Valid() {
		return false
	}
	liked, err := s.svc.CheckLike(ctx, sess, id)
	if err != nil {
		s.log.Warn("like check failed", "poem", id, "err", err)
		return false
	}
	return liked
}

// FetchUserFavorites loads the caller's favorited poems.
func (s *PoemStore) FetchUserFavorites(ctx context.Context, q domain.PageQuery) ([]domain.Poem, error) {
	sess := s.sessions.Session()
	if !sess.Valid() {
		return nil, ErrNotLoggedIn
	}
	page, err := s.svc.UserFavorites(ctx, sess, q)
	if err != nil {
		s.setError(messageOr(err, "获取收藏列表失败"))
		return nil, err
	}
	s.mu.Lock()
	s.favorites = page.Poems
	s.lastErr = ""
	s.mu.Unlock()
	return page.Poems, nil
}

// FetchUserLikes loads the caller's liked poems.
func (s *PoemStore) FetchUserLikes(ctx context.Context, q domain.PageQuery) ([]domain.Poem, error) {
	sess := s.sessions.Session()
	if !sess.Valid() {
		return nil, ErrNotLoggedIn
	}
	page, err := s.svc.UserLikes(ctx, sess, q)
	if err != nil {
		s.setError(messageOr(err, "获取点赞记录失败"))
		return nil, err
	}
	return page.Poems, nil
}

// Displayed returns the search results while a keyword is active, otherwise
// the browsing list.
func (s *PoemStore) Displayed() []domain.Poem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyword != "" {
		return s.results
	}
	return s.poems
}

func (s *PoemStore) Current() *domain.Poem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *PoemStore) Favorites() []domain.Poem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites
}

func (s *PoemStore) Pagination() domain.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyword != "" {
		return s.searchPages
	}
	return s.pagination
}

// IsSearching reports whether a search call is in flight. It is independent
// of IsLoading so the list and search spinners never interfere.
func (s *PoemStore) IsSearching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

func (s *PoemStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *PoemStore) Keyword() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyword
}

func (s *PoemStore) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearSearch drops the search state, returning Displayed to the list.
func (s *PoemStore) ClearSearch() {
	s.mu.Lock()
	s.results = nil
	s.searchPages = domain.Pagination{}
	s.keyword = ""
	s.searching = false
	s.mu.Unlock()
}

func (s *PoemStore) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// Reset returns the store to its initial state.
func (s *PoemStore) Reset() {
	s.mu.Lock()
	s.poems = nil
	s.pagination = domain.Pagination{}
	s.results = nil
	s.searchPages = domain.Pagination{}
	s.keyword = ""
	s.searching = false
	s.current = nil
	s.favorites = nil
	s.loading = false
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *PoemStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *PoemStore) setSearching(v bool) {
	s.mu.Lock()
	s.searching = v
	s.mu.Unlock()
}

func (s *PoemStore) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}
