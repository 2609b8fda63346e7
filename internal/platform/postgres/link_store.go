package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/augur/internal/domain"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/store"
)

// PostgresLinkStore implements the store.LinkStore interface using PostgreSQL.
type PostgresLinkStore struct {
	db store.DBTX
}

// NewPostgresLinkStore creates a new PostgreSQL implementation of the
// LinkStore interface.
func NewPostgresLinkStore(db store.DBTX) *PostgresLinkStore {
	return &PostgresLinkStore{db: db}
}

// Ensure PostgresLinkStore implements store.LinkStore
var _ store.LinkStore = (*PostgresLinkStore)(nil)

// Create implements store.LinkStore.Create
func (s *PostgresLinkStore) Create(ctx context.Context, link *domain.EntityLink) error {
	log := logger.FromContext(ctx)

	if err := link.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO entity_links (id, user_id, from_entity_type,
			from_entity_id, to_entity_type, to_entity_id, link_type,
			created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		link.ID,
		link.UserID,
		string(link.FromEntityType),
		link.FromEntityID,
		string(link.ToEntityType),
		link.ToEntityID,
		string(link.LinkType),
		link.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create entity link", "link_id", link.ID, "error", err)
		return MapError(err)
	}

	return nil
}

// ListByUser implements store.LinkStore.ListByUser
func (s *PostgresLinkStore) ListByUser(ctx context.Context, userID string) ([]*domain.EntityLink, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, user_id, from_entity_type, from_entity_id,
			to_entity_type, to_entity_id, link_type, created_at
		FROM entity_links
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query entity links", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query entity links: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	links := make([]*domain.EntityLink, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link row: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link rows: %w", err)
	}

	return links, nil
}

// WithTx implements store.LinkStore.WithTx
func (s *PostgresLinkStore) WithTx(tx *sql.Tx) store.LinkStore {
	return NewPostgresLinkStore(tx)
}

func scanLink(row rowScanner) (*domain.EntityLink, error) {
	var (
		link     domain.EntityLink
		fromType string
		toType   string
		linkType string
	)

	if err := row.Scan(
		&link.ID,
		&link.UserID,
		&fromType,
		&link.FromEntityID,
		&toType,
		&link.ToEntityID,
		&linkType,
		&link.CreatedAt,
	); err != nil {
		return nil, err
	}

	from, err := domain.ParseEntityType(fromType)
	if err != nil {
		return nil, err
	}
	to, err := domain.ParseEntityType(toType)
	if err != nil {
		return nil, err
	}
	lt, err := domain.ParseLinkType(linkType)
	if err != nil {
		return nil, err
	}

	link.FromEntityType = from
	link.ToEntityType = to
	link.LinkType = lt

	return &link, nil
}
