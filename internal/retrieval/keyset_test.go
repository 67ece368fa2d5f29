package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/database"
	"github.com/javajoker/license-registry/internal/models"
	"github.com/javajoker/license-registry/internal/store"
	"github.com/javajoker/license-registry/internal/testutil"
)

type RetrievalTestSuite struct {
	suite.Suite
	db     *gorm.DB
	store  *store.Store
	pager  *Pager
	engine *Engine
}

func (s *RetrievalTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())

	st, err := store.New(s.db, config.StoreConfig{QueryTimeout: 5 * time.Second}, database.Models()...)
	s.Require().NoError(err)
	s.store = st
	s.pager = NewPager(st)
	s.engine = NewEngine(st, 4)
}

func (s *RetrievalTestSuite) TestPageWalksAscendingEmails() {
	for _, email := range []string{"b@x", "c@x", "a@x"} {
		testutil.InsertUser(s.T(), s.db, email, "")
	}
	ctx := context.Background()

	page, err := s.pager.Page(ctx, nil, StartCursor(), 1)
	s.Require().NoError(err)
	s.Equal([]string{"a@x"}, userEmails(page.Users))
	s.True(page.HasMore)
	s.Equal("a@x", page.NextCursor.String())

	page, err = s.pager.Page(ctx, nil, CursorAfter("a@x"), 1)
	s.Require().NoError(err)
	s.Equal([]string{"b@x"}, userEmails(page.Users))

	page, err = s.pager.Page(ctx, nil, CursorAfter("c@x"), 1)
	s.Require().NoError(err)
	s.Empty(page.Users)
	s.False(page.HasMore)
	s.Equal("c@x", page.NextCursor.String())
}

func (s *RetrievalTestSuite) TestFullTraversalHasNoGapsOrDuplicates() {
	emails := testutil.Emails(23)
	for _, email := range emails {
		testutil.InsertUser(s.T(), s.db, email, "")
	}
	ctx := context.Background()

	var seen []string
	cursor := StartCursor()
	for i := 0; ; i++ {
		s.Require().Less(i, 20, "traversal did not terminate")

		page, err := s.pager.Page(ctx, nil, cursor, 5)
		s.Require().NoError(err)
		s.LessOrEqual(len(page.Users), 5)
		if len(page.Users) == 0 {
			s.False(page.HasMore)
			break
		}
		seen = append(seen, userEmails(page.Users)...)
		cursor = page.NextCursor
	}
	s.Equal(emails, seen)
}

func (s *RetrievalTestSuite) TestLastFullPageReportsNoMore() {
	for _, email := range testutil.Emails(4) {
		testutil.InsertUser(s.T(), s.db, email, "")
	}

	page, err := s.pager.Page(context.Background(), nil, StartCursor(), 4)
	s.Require().NoError(err)
	s.Len(page.Users, 4)
	s.False(page.HasMore)
}

func (s *RetrievalTestSuite) TestPageByOrganization() {
	testutil.InsertUser(s.T(), s.db, "a@x", "acme")
	testutil.InsertUser(s.T(), s.db, "b@x", "globex")
	testutil.InsertUser(s.T(), s.db, "c@x", "acme")
	testutil.InsertUser(s.T(), s.db, "d@x", "acme")
	ctx := context.Background()

	page, err := s.pager.Page(ctx, OrganizationScope("acme"), StartCursor(), 2)
	s.Require().NoError(err)
	s.Equal([]string{"a@x", "c@x"}, userEmails(page.Users))
	s.True(page.HasMore)

	page, err = s.pager.Page(ctx, OrganizationScope("acme"), page.NextCursor, 2)
	s.Require().NoError(err)
	s.Equal([]string{"d@x"}, userEmails(page.Users))
	s.False(page.HasMore)

	page, err = s.pager.Page(ctx, OrganizationScope("initech"), StartCursor(), 10)
	s.Require().NoError(err)
	s.Empty(page.Users)
}

func (s *RetrievalTestSuite) TestZeroAndNegativeLimits() {
	testutil.InsertUser(s.T(), s.db, "a@x", "")

	page, err := s.pager.Page(context.Background(), nil, CursorAfter("0"), 0)
	s.Require().NoError(err)
	s.NotNil(page.Users)
	s.Empty(page.Users)
	s.Equal("0", page.NextCursor.String())

	_, err = s.pager.Page(context.Background(), nil, StartCursor(), -1)
	s.ErrorIs(err, store.ErrInvalidRange)
}

func (s *RetrievalTestSuite) TestEngineAgainstLookupTables() {
	first := testutil.Asset(uuid.New(), "first", []string{"L1", "L2"}, []string{"A"})
	second := testutil.Asset(uuid.New(), "second", []string{"L1"}, []string{"B"})
	third := testutil.Asset(uuid.New(), "third", []string{"L3"}, []string{"A"})
	testutil.InsertAssets(s.T(), s.db, first, second, third)
	ctx := context.Background()

	got, err := s.engine.ByAnyOf(ctx, License, []string{"L1", "L7"})
	s.Require().NoError(err)
	s.ElementsMatch([]uuid.UUID{first.AssetID, second.AssetID}, assetIDs(got))

	got, err = s.engine.ByAllDimensions(ctx, []string{"L1"}, []string{"A"})
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{first.AssetID}, assetIDs(got))

	got, err = s.engine.ByAnyOf(ctx, Category, []string{"A", "B"})
	s.Require().NoError(err)
	s.Len(got, 3)
}

func TestRetrievalSuite(t *testing.T) {
	suite.Run(t, new(RetrievalTestSuite))
}

func TestParseCursor(t *testing.T) {
	c := ParseCursor("")
	assert.True(t, c.IsStart())
	assert.Empty(t, c.String())

	c = ParseCursor("a@x")
	assert.False(t, c.IsStart())
	assert.Equal(t, "a@x", c.String())

	v, ok := c.bound().Value()
	assert.True(t, ok)
	assert.Equal(t, "a@x", v)

	_, ok = StartCursor().bound().Value()
	assert.False(t, ok)
}

func userEmails(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Email)
	}
	return out
}

func assetIDs(assets []models.Asset) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.AssetID)
	}
	return out
}
