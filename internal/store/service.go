// Package store holds the application-facing state stores. Each store wraps a
// backend service interface satisfied by both the REST client and the
// backend-service client, so the rest of the app never knows which path is
// wired.
package store

import (
	"context"
	"errors"

	"shici/pkg/domain"
)

// ErrNotLoggedIn is returned by operations that require an authenticated
// session, before any network call is made.
var ErrNotLoggedIn = errors.New("not logged in")

// UserService is the account surface of a backend.
type UserService interface {
	SignIn(ctx context.Context, p domain.LoginParams) (domain.Session, error)
	SignUp(ctx context.Context, p domain.RegisterParams) error
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (domain.User, error)
	UpdateProfile(ctx context.Context, sess domain.Session, p domain.UserUpdateParams) (domain.User, error)
	ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error
}

// PoemService is the catalog and interaction surface of a backend.
type PoemService interface {
	ListPoems(ctx context.Context, q domain.PoemQuery) (domain.PoemPage, error)
	GetPoem(ctx context.Context, id int64) (domain.Poem, error)
	SearchPoems(ctx context.Context, keyword string, q domain.SearchQuery) (domain.PoemPage, error)
	RandomPoem(ctx context.Context) (domain.Poem, error)
	ToggleLike(ctx context.Context, sess domain.Session, poemID int64) (domain.ToggleResult, error)
	ToggleFavorite(ctx context.Context, sess domain.Session, poemID int64) (domain.ToggleResult, error)
	CheckLike(ctx context.Context, sess domain.Session, poemID int64) (bool, error)
	UserFavorites(ctx context.Context, sess domain.Session, q domain.PageQuery) (domain.PoemPage, error)
	UserLikes(ctx context.Context, sess domain.Session, q domain.PageQuery) (domain.PoemPage, error)
}

// SessionSource lets the poem store read the current session without holding
// a reference to the whole user store API.
type SessionSource interface {
	Session() domain.Session
}
