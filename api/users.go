package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultItemsPerPage = 20
	DefaultStatsPeriod  = "month"
)

// User is one account as returned by /users and /users/me
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// Users wraps the /users family
type Users struct {
	d Dispatcher
}

func NewUsers(d Dispatcher) *Users {
	return &Users{d: d}
}

// List returns one page of users. Filters with a nil value are not sent;
// others are formatted with %v (bools as true/false).
func (u *Users) List(ctx context.Context, page, itemsPerPage int, filters map[string]any) (any, error) {
	if page <= 0 {
		page = 1
	}
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}
	q := url.Values{
		"page":           {strconv.Itoa(page)},
		"items_per_page": {strconv.Itoa(itemsPerPage)},
	}
	for k, v := range filters {
		if v == nil {
			continue
		}
		q.Set(k, fmt.Sprint(v))
	}
	return u.d.Dispatch(ctx, http.MethodGet, "/users", q, nil)
}

// Me returns the authenticated user
func (u *Users) Me(ctx context.Context) (any, error) {
	return u.d.Dispatch(ctx, http.MethodGet, "/users/me", nil, nil)
}

// Current is Me decoded into a User
func (u *Users) Current(ctx context.Context) (*User, error) {
	var user User
	if err := u.d.DispatchInto(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Stats returns statistics for userID, or for the authenticated user when
// userID is 0. An empty period means DefaultStatsPeriod.
func (u *Users) Stats(ctx context.Context, userID int, period string) (any, error) {
	if period == "" {
		period = DefaultStatsPeriod
	}
	path := "/users/me/stats"
	if userID != 0 {
		path = fmt.Sprintf("/users/%d/stats", userID)
	}
	return u.d.Dispatch(ctx, http.MethodGet, path, url.Values{"period": {period}}, nil)
}
