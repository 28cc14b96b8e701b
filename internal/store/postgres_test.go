package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/listings-api/feed"
)

// Matches the upsert statement and pins down that every inserted column is
// also replaced on conflict, so a re-sync fully overwrites the row.
const upsertPattern = `INSERT INTO properties \(external_id, title, region, price, town, property_type, beds, reference, images, details, updated_at\)[\s\S]*ON CONFLICT \(external_id\) DO UPDATE SET[\s\S]*title = EXCLUDED\.title[\s\S]*price = EXCLUDED\.price[\s\S]*images = EXCLUDED\.images[\s\S]*details = EXCLUDED\.details[\s\S]*updated_at = EXCLUDED\.updated_at`

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mock
}

func TestUpsertPropertiesReplacesRowByExternalID(t *testing.T) {
	s, mock := mockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := feed.Property{
		ExternalID: "A-1", Title: "Sea View", Region: "R", Price: 100,
		Town: "Nice", PropertyType: "Villa", Beds: "3", Reference: "A-1",
		Images: []string{}, UpdatedAt: now,
	}
	second := first
	second.Title = "Sea View II"
	second.Price = 250

	mock.ExpectExec(upsertPattern).
		WithArgs("A-1", "Sea View", "R", 100.0, "Nice", "Villa", "3", "A-1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertPattern).
		WithArgs("A-1", "Sea View II", "R", 250.0, "Nice", "Villa", "3", "A-1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	written, err := s.UpsertProperties(context.Background(), []feed.Property{first})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	written, err = s.UpsertProperties(context.Background(), []feed.Property{second})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPropertiesContinuesPastRowFailure(t *testing.T) {
	s, mock := mockStore(t)

	bad := feed.Property{ExternalID: "bad", Images: []string{}}
	good := feed.Property{ExternalID: "good", Images: []string{}}

	mock.ExpectExec(upsertPattern).
		WithArgs("bad", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("value too long"))
	mock.ExpectExec(upsertPattern).
		WithArgs("good", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	written, err := s.UpsertProperties(context.Background(), []feed.Property{bad, good})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, 1, written, "a failed row must not abort the batch")

	require.NoError(t, mock.ExpectationsWereMet())
}
