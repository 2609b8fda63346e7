package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/store"
)

func linkFixture() *domain.EntityLink {
	return &domain.EntityLink{
		ID:             "link-1",
		UserID:         "user-1",
		FromEntityType: domain.EntityTypeTask,
		FromEntityID:   "task-1",
		ToEntityType:   domain.EntityTypeGoal,
		ToEntityID:     "goal-1",
		LinkType:       domain.LinkTypeSupportsGoal,
		CreatedAt:      fixedNow,
	}
}

func linkRows(links ...*domain.EntityLink) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "from_entity_type", "from_entity_id",
		"to_entity_type", "to_entity_id", "link_type", "created_at",
	})
	for _, link := range links {
		rows.AddRow(
			link.ID,
			link.UserID,
			string(link.FromEntityType),
			link.FromEntityID,
			string(link.ToEntityType),
			link.ToEntityID,
			string(link.LinkType),
			link.CreatedAt,
		)
	}
	return rows
}

func TestPostgresLinkStore_Create(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresLinkStore(db)
	link := linkFixture()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entity_links")).
		WithArgs(
			link.ID, link.UserID, string(link.FromEntityType),
			link.FromEntityID, string(link.ToEntityType), link.ToEntityID,
			string(link.LinkType), link.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Create(context.Background(), link)
	assert.NoError(t, err)
}

func TestPostgresLinkStore_Create_RejectsInvalidLink(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	s := NewPostgresLinkStore(db)
	link := linkFixture()
	link.LinkType = "follows"

	err := s.Create(context.Background(), link)
	assert.ErrorIs(t, err, domain.ErrInvalidLinkType)
}

func TestPostgresLinkStore_Create_MapsForeignKeyViolation(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresLinkStore(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entity_links")).
		WillReturnError(&pgconn.PgError{
			Code:           foreignKeyViolationCode,
			ConstraintName: "entity_links_user_id_fkey",
		})

	err := s.Create(context.Background(), linkFixture())
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestPostgresLinkStore_ListByUser(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresLinkStore(db)

	first := linkFixture()
	second := linkFixture()
	second.ID = "link-2"
	second.FromEntityID = "task-2"
	second.ToEntityType = domain.EntityTypeTask
	second.ToEntityID = "task-1"
	second.LinkType = domain.LinkTypeDependsOn

	mock.ExpectQuery(regexp.QuoteMeta("FROM entity_links WHERE user_id = $1 ORDER BY id")).
		WithArgs("user-1").
		WillReturnRows(linkRows(first, second))

	got, err := s.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestPostgresLinkStore_ListByUser_UnknownLinkTypeFailsScan(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := NewPostgresLinkStore(db)

	rows := linkRows()
	rows.AddRow("link-1", "user-1", "task", "task-1", "goal", "goal-1",
		"bogus", fixedNow)

	mock.ExpectQuery(regexp.QuoteMeta("FROM entity_links WHERE user_id = $1 ORDER BY id")).
		WithArgs("user-1").
		WillReturnRows(rows)

	got, err := s.ListByUser(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan link row")
	assert.Nil(t, got)
}
