package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/database"
	"github.com/javajoker/license-registry/internal/models"
	"github.com/javajoker/license-registry/internal/testutil"
)

type StoreTestSuite struct {
	suite.Suite
	db    *gorm.DB
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())

	st, err := New(s.db, config.StoreConfig{QueryTimeout: 5 * time.Second}, database.Models()...)
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreTestSuite) TestLookupByExactValueOnLicenseTable() {
	project := uuid.New()
	a := testutil.Asset(project, "alpha", []string{"MIT", "BSD-3-Clause"}, []string{"permissive"})
	b := testutil.Asset(project, "beta", []string{"GPL-3.0"}, []string{"copyleft"})
	testutil.InsertAssets(s.T(), s.db, a, b)

	rows, err := s.store.FindAssets(context.Background(), models.TableAssetsByLicense, "license", "MIT")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(a.AssetID, rows[0].AssetID)
	s.Equal(models.StringSet{"BSD-3-Clause", "MIT"}, rows[0].Licenses)

	rows, err = s.store.FindAssets(context.Background(), models.TableAssetsByProject, "project_id", project)
	s.Require().NoError(err)
	s.Len(rows, 2)
}

func (s *StoreTestSuite) TestLookupByExactValueMissReturnsEmpty() {
	rows, err := s.store.FindAssets(context.Background(), models.TableAssetsByName, "name", "nothing")
	s.Require().NoError(err)
	s.NotNil(rows)
	s.Empty(rows)
}

func (s *StoreTestSuite) TestUnknownTableOrColumnIsSchemaMismatch() {
	_, err := s.store.FindAssets(context.Background(), "assets_by_vendor", "vendor", "x")
	s.ErrorIs(err, ErrSchemaMismatch)

	_, err = s.store.FindAssets(context.Background(), models.TableAssetsByLicense, "vendor", "x")
	s.ErrorIs(err, ErrSchemaMismatch)

	_, err = s.store.RangeUsers(context.Background(), RangeQuery{Table: models.TableUsers, OrderColumn: "nickname", Limit: 1})
	s.ErrorIs(err, ErrSchemaMismatch)
}

func (s *StoreTestSuite) TestDroppedTableIsSchemaMismatch() {
	s.Require().NoError(s.db.Migrator().DropTable(models.TableAssetsByName))

	_, err := s.store.FindAssets(context.Background(), models.TableAssetsByName, "name", "alpha")
	s.ErrorIs(err, ErrSchemaMismatch)
}

func (s *StoreTestSuite) TestLookupByRange() {
	for _, email := range []string{"c@x", "a@x", "b@x"} {
		testutil.InsertUser(s.T(), s.db, email, "")
	}
	ctx := context.Background()

	rows, err := s.store.RangeUsers(ctx, RangeQuery{Table: models.TableUsers, OrderColumn: "email", After: NoBound(), Limit: 2})
	s.Require().NoError(err)
	s.Equal([]string{"a@x", "b@x"}, emailsOf(rows))

	rows, err = s.store.RangeUsers(ctx, RangeQuery{Table: models.TableUsers, OrderColumn: "email", After: After("b@x"), Limit: 2})
	s.Require().NoError(err)
	s.Equal([]string{"c@x"}, emailsOf(rows))

	rows, err = s.store.RangeUsers(ctx, RangeQuery{Table: models.TableUsers, OrderColumn: "email", After: After("c@x"), Limit: 2})
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *StoreTestSuite) TestLookupByRangeWithEquality() {
	testutil.InsertUser(s.T(), s.db, "a@x", "acme")
	testutil.InsertUser(s.T(), s.db, "b@x", "globex")
	testutil.InsertUser(s.T(), s.db, "c@x", "acme")

	rows, err := s.store.RangeUsers(context.Background(), RangeQuery{
		Table:       models.TableUsersByOrganization,
		OrderColumn: "email",
		Equal:       &Equality{Column: "organization", Value: "acme"},
		Limit:       10,
	})
	s.Require().NoError(err)
	s.Equal([]string{"a@x", "c@x"}, emailsOf(rows))
	s.Equal("acme", rows[0].Organization)
}

func (s *StoreTestSuite) TestLookupByRangeLimits() {
	testutil.InsertUser(s.T(), s.db, "a@x", "")

	rows, err := s.store.RangeUsers(context.Background(), RangeQuery{Table: models.TableUsers, OrderColumn: "email", Limit: 0})
	s.Require().NoError(err)
	s.NotNil(rows)
	s.Empty(rows)

	_, err = s.store.RangeUsers(context.Background(), RangeQuery{Table: models.TableUsers, OrderColumn: "email", Limit: -1})
	s.ErrorIs(err, ErrInvalidRange)
}

func (s *StoreTestSuite) TestCanceledContextIsUnavailable() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.store.RangeUsers(ctx, RangeQuery{Table: models.TableUsers, OrderColumn: "email", Limit: 5})
	s.ErrorIs(err, ErrStoreUnavailable)

	_, err = s.store.FindAssets(ctx, models.TableAssetsByLicense, "license", "MIT")
	s.ErrorIs(err, ErrStoreUnavailable)
}

func (s *StoreTestSuite) TestConcurrentIdenticalLookups() {
	a := testutil.Asset(uuid.New(), "alpha", []string{"MIT"}, []string{"permissive"})
	testutil.InsertAssets(s.T(), s.db, a)

	const callers = 8
	results := make(chan []models.Asset, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			rows, err := s.store.FindAssets(context.Background(), models.TableAssetsByLicense, "license", "MIT")
			errs <- err
			results <- rows
		}()
	}

	var first []models.Asset
	for i := 0; i < callers; i++ {
		s.Require().NoError(<-errs)
		rows := <-results
		s.Require().Len(rows, 1)
		if first == nil {
			first = rows
			continue
		}
		// each caller owns its rows, sets included
		rows[0].Name = fmt.Sprintf("mutated-%d", i)
		rows[0].Licenses[0] = fmt.Sprintf("LIC-%d", i)
		rows[0].LicenseCategories = append(rows[0].LicenseCategories[:0], "changed")
		s.Equal("alpha", first[0].Name)
		s.Equal(models.StringSet{"MIT"}, first[0].Licenses)
		s.Equal(models.StringSet{"permissive"}, first[0].LicenseCategories)
	}
}

func (s *StoreTestSuite) TestQueryTimeoutIsUnavailable() {
	testutil.InsertUser(s.T(), s.db, "a@x", "")
	testutil.InsertAssets(s.T(), s.db, testutil.Asset(uuid.New(), "alpha", []string{"MIT"}, []string{"permissive"}))

	st, err := New(s.db, config.StoreConfig{QueryTimeout: time.Nanosecond}, database.Models()...)
	s.Require().NoError(err)
	ctx := context.Background()

	_, err = st.FindAssets(ctx, models.TableAssetsByLicense, "license", "MIT")
	s.ErrorIs(err, ErrStoreUnavailable)
	s.ErrorIs(err, context.DeadlineExceeded)

	_, err = st.RangeUsers(ctx, RangeQuery{Table: models.TableUsers, OrderColumn: "email", Limit: 5})
	s.ErrorIs(err, ErrStoreUnavailable)
	s.ErrorIs(err, context.DeadlineExceeded)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestBound(t *testing.T) {
	v, ok := NoBound().Value()
	assert.False(t, ok)
	assert.Empty(t, v)

	v, ok = After("").Value()
	assert.True(t, ok, "an explicit empty bound is still a bound")
	assert.Empty(t, v)

	v, ok = After("a@x").Value()
	assert.True(t, ok)
	assert.Equal(t, "a@x", v)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, ErrStoreUnavailable},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), ErrStoreUnavailable},
		{"net", &net.OpError{Op: "read", Err: timeoutErr{}}, ErrStoreUnavailable},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, ErrStoreUnavailable},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, ErrStoreUnavailable},
		{"pg undefined table", &pgconn.PgError{Code: "42P01"}, ErrSchemaMismatch},
		{"pg undefined column", &pgconn.PgError{Code: "42703"}, ErrSchemaMismatch},
		{"sqlite missing table", errors.New("SQL logic error: no such table: assets_by_name (1)"), ErrSchemaMismatch},
		{"already classified", fmt.Errorf("%w: x", ErrSchemaMismatch), ErrSchemaMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, classify(tt.err), tt.want)
		})
	}

	assert.Nil(t, classify(nil))

	other := errors.New("syntax error")
	got := classify(other)
	assert.ErrorIs(t, got, other)
	assert.NotErrorIs(t, got, ErrStoreUnavailable)
	assert.NotErrorIs(t, got, ErrSchemaMismatch)

	assert.Same(t, other, Classify(other))
	assert.ErrorIs(t, Classify(context.DeadlineExceeded), ErrStoreUnavailable)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert assets: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: assets.asset_id (1555)")))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(context.DeadlineExceeded))
}

func (s *StoreTestSuite) TestIsUniqueViolationOnDuplicateRow() {
	a := testutil.Asset(uuid.New(), "alpha", []string{"MIT"}, []string{"permissive"})
	testutil.InsertAssets(s.T(), s.db, a)

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return database.InsertAssets(tx, []models.Asset{a})
	})
	s.Require().Error(err)
	s.True(IsUniqueViolation(err))
	s.NotErrorIs(Classify(err), ErrStoreUnavailable)
}

func emailsOf(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Email)
	}
	return out
}
