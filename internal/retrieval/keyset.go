package retrieval

import (
	"context"

	"github.com/javajoker/license-registry/internal/models"
	"github.com/javajoker/license-registry/internal/store"
)

// Cursor is the last key a client has seen. The zero value is the start of
// the sequence and never compares against a real key.
type Cursor struct {
	after string
	set   bool
}

func StartCursor() Cursor { return Cursor{} }

func CursorAfter(key string) Cursor { return Cursor{after: key, set: true} }

// ParseCursor treats an absent or empty raw value as the start of the
// sequence. Real keys are validated non-empty when written.
func ParseCursor(raw string) Cursor {
	if raw == "" {
		return StartCursor()
	}
	return CursorAfter(raw)
}

func (c Cursor) IsStart() bool { return !c.set }

// String returns the key, or "" at the start of the sequence.
func (c Cursor) String() string { return c.after }

func (c Cursor) bound() store.Bound {
	if !c.set {
		return store.NoBound()
	}
	return store.After(c.after)
}

// Scope restricts a page to one organization.
type Scope struct {
	Organization string
}

func OrganizationScope(organization string) *Scope {
	return &Scope{Organization: organization}
}

// UserRanger issues one bounded range lookup over user-shaped rows.
type UserRanger interface {
	RangeUsers(ctx context.Context, q store.RangeQuery) ([]models.User, error)
}

type Page struct {
	Users      []models.User
	NextCursor Cursor
	HasMore    bool
}

// Pager walks users in ascending email order.
type Pager struct {
	ranger UserRanger
}

func NewPager(ranger UserRanger) *Pager {
	return &Pager{ranger: ranger}
}

// Page returns up to limit users whose email is strictly after cursor. With a
// scope only that organization's users are returned; an unknown organization
// yields an empty page. A zero limit returns an empty page without a lookup.
//
// One extra row is read to tell whether another page follows.
func (p *Pager) Page(ctx context.Context, scope *Scope, cursor Cursor, limit int) (Page, error) {
	if limit == 0 {
		return Page{Users: []models.User{}, NextCursor: cursor}, nil
	}

	fetch := limit + 1
	if limit < 0 {
		// rejected by the store
		fetch = limit
	}
	q := store.RangeQuery{
		Table:       models.TableUsers,
		OrderColumn: "email",
		After:       cursor.bound(),
		Limit:       fetch,
	}
	if scope != nil {
		q.Table = models.TableUsersByOrganization
		q.Equal = &store.Equality{Column: "organization", Value: scope.Organization}
	}

	users, err := p.ranger.RangeUsers(ctx, q)
	if err != nil {
		return Page{}, err
	}

	page := Page{Users: users, NextCursor: cursor}
	if len(users) > limit {
		page.Users = users[:limit]
		page.HasMore = true
	}
	if n := len(page.Users); n > 0 {
		page.NextCursor = CursorAfter(page.Users[n-1].Email)
	}
	return page, nil
}
