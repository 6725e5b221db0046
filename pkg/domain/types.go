package domain

import "time"

// Poem is a single poem record as served by the backend.
type Poem struct {
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
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is the authenticated user's profile.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Level      int       `json:"level"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Session pairs an access token with the user it belongs to.
// Logged in means both fields are present.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Valid reports whether the session carries both a token and a user.
func (s Session) Valid() bool {
	return s.Token != "" && s.User != nil && s.User.ID != ""
}

// Favorite is a user-poem favorite relation row.
type Favorite struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	PoemID    int64     `json:"poemId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Like is a user-poem like relation row.
type Like struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	PoemID    int64     `json:"poemId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a user comment attached to a poem.
type Comment struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	PoemID    int64     `json:"poemId"`
	Content   string    `json:"content"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultPageLimit applies when a query omits the page size.
const DefaultPageLimit = 10

// Pagination is derived from the server-reported total after every fetch.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// NewPagination recomputes the cursor from a server-reported total.
func NewPagination(page, limit, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	return Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
		HasPrev: page > 1,
	}
}

// LoginParams are the credentials for a sign-in attempt.
type LoginParams struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterParams are the fields required to create an account.
type RegisterParams struct {
	Username string `json:"username" validate:"required,min=2,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserUpdateParams is a partial profile update; nil fields are untouched.
type UserUpdateParams struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=2,max=32"`
	AvatarURL *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// SearchType narrows which poem fields a search matches.
type SearchType string

const (
	SearchAll     SearchType = "all"
	SearchTitle   SearchType = "title"
	SearchAuthor  SearchType = "author"
	SearchContent SearchType = "content"
)

// PoemQuery filters and paginates the poem list.
type PoemQuery struct {
	Page    int
	Limit   int
	Dynasty string
	Author  string
	Tags    []string
}

// SearchQuery paginates a keyword search.
type SearchQuery struct {
	Page  int
	Limit int
	Type  SearchType
}

// PageQuery is plain pagination for relation listings.
type PageQuery struct {
	Page  int
	Limit int
}

// PoemPage is one page of poems plus the server-reported total.
type PoemPage struct {
	Poems []Poem `json:"poems"`
	Total int    `json:"total"`
}

// ToggleResult reports the state after a like/favorite toggle. Count is the
// server-confirmed counter, never a purely client-side derivation.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}
