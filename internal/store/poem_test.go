package store

import (
	"context"
	"fmt"
	"testing"

	"shici/pkg/domain"
)

type fakePoemService struct {
	pages      map[int]domain.PoemPage
	searches   map[int]domain.PoemPage
	poem       domain.Poem
	liked      map[int64]bool
	likeCounts map[int64]int

	// onSearch and onGet run inside the corresponding call, letting tests
	// observe the store's flags while a request is in flight.
	onSearch func()
	onGet    func()

	listCalls   int
	toggleCalls int
}

func (f *fakePoemService) ListPoems(_ context.Context, q domain.PoemQuery) (domain.PoemPage, error) {
	f.listCalls++
	page, ok := f.pages[q.Page]
	if !ok {
		return domain.PoemPage{}, fmt.Errorf("no page %d", q.Page)
	}
	return page, nil
}

func (f *fakePoemService) GetPoem(_ context.Context, id int64) (domain.Poem, error) {
	if f.onGet != nil {
		f.onGet()
	}
	if f.poem.ID != id {
		return domain.Poem{}, fmt.Errorf("no poem %d", id)
	}
	return f.poem, nil
}

func (f *fakePoemService) SearchPoems(_ context.Context, _ string, q domain.SearchQuery) (domain.PoemPage, error) {
	if f.onSearch != nil {
		f.onSearch()
	}
	page, ok := f.searches[q.Page]
	if !ok {
		return domain.PoemPage{}, fmt.Errorf("no search page %d", q.Page)
	}
	return page, nil
}

func (f *fakePoemService) RandomPoem(_ context.Context) (domain.Poem, error) {
	return f.poem, nil
}

func (f *fakePoemService) ToggleLike(_ context.Context, _ domain.Session, id int64) (domain.ToggleResult, error) {
	f.toggleCalls++
	if f.liked == nil {
		f.liked = map[int64]bool{}
	}
	if f.liked[id] {
		f.liked[id] = false
		f.likeCounts[id]--
		return domain.ToggleResult{Active: false, Count: f.likeCounts[id]}, nil
	}
	f.liked[id] = true
	f.likeCounts[id]++
	return domain.ToggleResult{Active: true, Count: f.likeCounts[id]}, nil
}

func (f *fakePoemService) ToggleFavorite(_ context.Context, _ domain.Session, id int64) (domain.ToggleResult, error) {
	return domain.ToggleResult{Active: true, Count: 1}, nil
}

func (f *fakePoemService) CheckLike(_ context.Context, _ domain.Session, id int64) (bool, error) {
	return f.liked[id], nil
}

func (f *fakePoemService) UserFavorites(_ context.Context, _ domain.Session, _ domain.PageQuery) (domain.PoemPage, error) {
	return domain.PoemPage{Poems: []domain.Poem{f.poem}, Total: 1}, nil
}

func (f *fakePoemService) UserLikes(_ context.Context, _ domain.Session, _ domain.PageQuery) (domain.PoemPage, error) {
	return domain.PoemPage{}, nil
}

type staticSession struct{ sess domain.Session }

func (s staticSession) Session() domain.Session { return s.sess }

func anonymous() SessionSource { return staticSession{} }

func loggedIn() SessionSource {
	user := testUser()
	return staticSession{sess: domain.Session{Token: "tok-1", User: &user}}
}

func poems(ids ...int64) []domain.Poem {
	out := make([]domain.Poem, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Poem{ID: id, Title: fmt.Sprintf("poem %d", id)})
	}
	return out
}

func TestFetchPoemsReplacesFirstPageAppendsLater(t *testing.T) {
	svc := &fakePoemService{pages: map[int]domain.PoemPage{
		1: {Poems: poems(1, 2), Total: 5},
		2: {Poems: poems(3, 4), Total: 5},
	}}
	s := NewPoemStore(svc, anonymous(), nil)

	if err := s.FetchPoems(context.Background(), domain.PoemQuery{Page: 1, Limit: 2}); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if err := s.FetchPoems(context.Background(), domain.PoemQuery{Page: 2, Limit: 2}); err != nil {
		t.Fatalf("page 2: %v", err)
	}
	got := s.Displayed()
	if len(got) != 4 || got[0].ID != 1 || got[3].ID != 4 {
		t.Fatalf("displayed = %v, want poems 1..4", got)
	}
	if p := s.Pagination(); !p.HasNext || p.Page != 2 {
		t.Fatalf("pagination = %+v", p)
	}

	// Refreshing page 1 replaces instead of appending.
	if err := s.FetchPoems(context.Background(), domain.PoemQuery{Page: 1, Limit: 2}); err != nil {
		t.Fatalf("page 1 refresh: %v", err)
	}
	if got := s.Displayed(); len(got) != 2 {
		t.Fatalf("refresh should replace, got %d poems", len(got))
	}
}

func TestSearchKeepsListIntact(t *testing.T) {
	svc := &fakePoemService{
		pages:    map[int]domain.PoemPage{1: {Poems: poems(1, 2), Total: 2}},
		searches: map[int]domain.PoemPage{1: {Poems: poems(9), Total: 1}},
	}
	s := NewPoemStore(svc, anonymous(), nil)
	if err := s.FetchPoems(context.Background(), domain.PoemQuery{Page: 1}); err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := s.SearchPoems(context.Background(), "春", domain.SearchQuery{Page: 1}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if s.Keyword() != "春" {
		t.Fatalf("keyword = %q, want active search", s.Keyword())
	}
	if got := s.Displayed(); len(got) != 1 || got[0].ID != 9 {
		t.Fatalf("displayed = %v, want search result", got)
	}

	s.ClearSearch()
	if s.Keyword() != "" {
		t.Fatalf("keyword should be cleared")
	}
	if got := s.Displayed(); len(got) != 2 {
		t.Fatalf("list should be intact, got %v", got)
	}
}

func TestEmptyKeywordClearsSearch(t *testing.T) {
	svc := &fakePoemService{searches: map[int]domain.PoemPage{1: {Poems: poems(9), Total: 1}}}
	s := NewPoemStore(svc, anonymous(), nil)
	if err := s.SearchPoems(context.Background(), "春", domain.SearchQuery{Page: 1}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := s.SearchPoems(context.Background(), "", domain.SearchQuery{}); err != nil {
		t.Fatalf("clear via empty keyword: %v", err)
	}
	if s.IsSearching() || s.Keyword() != "" {
		t.Fatalf("search state should be cleared")
	}
}

func TestSearchingFlagTracksCallLifetime(t *testing.T) {
	svc := &fakePoemService{searches: map[int]domain.PoemPage{1: {Poems: poems(9), Total: 1}}}
	s := NewPoemStore(svc, anonymous(), nil)
	var inFlight bool
	svc.onSearch = func() { inFlight = s.IsSearching() }

	if err := s.SearchPoems(context.Background(), "春", domain.SearchQuery{Page: 1}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if !inFlight {
		t.Fatalf("flag should be set while the search is in flight")
	}
	if s.IsSearching() {
		t.Fatalf("flag should clear once the search completes")
	}

	// The error path clears it too.
	if err := s.SearchPoems(context.Background(), "春", domain.SearchQuery{Page: 2}); err == nil {
		t.Fatalf("expected error for missing page")
	}
	if s.IsSearching() {
		t.Fatalf("flag should clear after a failed search")
	}
}

func TestDetailFetchTracksLoading(t *testing.T) {
	svc := &fakePoemService{poem: domain.Poem{ID: 1}}
	s := NewPoemStore(svc, anonymous(), nil)
	var inFlight bool
	svc.onGet = func() { inFlight = s.IsLoading() }

	if _, err := s.FetchPoemByID(context.Background(), 1); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !inFlight {
		t.Fatalf("loading should be set while the detail fetch is in flight")
	}
	if s.IsLoading() {
		t.Fatalf("loading should clear once the fetch completes")
	}
}

func TestAnonymousLikeFailsWithoutNetwork(t *testing.T) {
	svc := &fakePoemService{}
	s := NewPoemStore(svc, anonymous(), nil)

	_, err := s.LikePoem(context.Background(), 7)
	if err != ErrNotLoggedIn {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
	if svc.toggleCalls != 0 {
		t.Fatalf("toggle reached the network %d times", svc.toggleCalls)
	}
}

func TestSequentialLikeToggleRestoresState(t *testing.T) {
	svc := &fakePoemService{
		pages:      map[int]domain.PoemPage{1: {Poems: []domain.Poem{{ID: 7, Likes: 5}}, Total: 1}},
		poem:       domain.Poem{ID: 7, Likes: 5},
		likeCounts: map[int64]int{7: 5},
	}
	s := NewPoemStore(svc, loggedIn(), nil)
	if err := s.FetchPoems(context.Background(), domain.PoemQuery{Page: 1}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := s.FetchPoemByID(context.Background(), 7); err != nil {
		t.Fatalf("focus: %v", err)
	}

	first, err := s.LikePoem(context.Background(), 7)
	if err != nil || !first.Active || first.Count != 6 {
		t.Fatalf("first toggle = (%+v, %v)", first, err)
	}
	if got := s.Displayed()[0].Likes; got != 6 {
		t.Fatalf("list counter = %d, want 6", got)
	}
	if got := s.Current().Likes; got != 6 {
		t.Fatalf("focus counter = %d, want 6", got)
	}

	second, err := s.LikePoem(context.Background(), 7)
	if err != nil || second.Active || second.Count != 5 {
		t.Fatalf("second toggle = (%+v, %v)", second, err)
	}
	if got := s.Displayed()[0].Likes; got != 5 {
		t.Fatalf("list counter = %d, want back to 5", got)
	}
}

func TestCheckUserLikeAnonymousIsFalse(t *testing.T) {
	svc := &fakePoemService{liked: map[int64]bool{7: true}}
	s := NewPoemStore(svc, anonymous(), nil)
	if s.CheckUserLike(context.Background(), 7) {
		t.Fatalf("anonymous check should read as not liked")
	}
}

func TestFetchUserFavoritesRequiresLogin(t *testing.T) {
	s := NewPoemStore(&fakePoemService{}, anonymous(), nil)
	if _, err := s.FetchUserFavorites(context.Background(), domain.PageQuery{}); err != ErrNotLoggedIn {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestResetDropsEverything(t *testing.T) {
	svc := &fakePoemService{
		pages: map[int]domain.PoemPage{1: {Poems: poems(1), Total: 1}},
		poem:  domain.Poem{ID: 1},
	}
	s := NewPoemStore(svc, anonymous(), nil)
	_ = s.FetchPoems(context.Background(), domain.PoemQuery{Page: 1})
	_, _ = s.FetchPoemByID(context.Background(), 1)

	s.Reset()
	if len(s.Displayed()) != 0 || s.Current() != nil {
		t.Fatalf("reset left state behind")
	}
}
