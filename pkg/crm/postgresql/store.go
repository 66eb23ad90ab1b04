// Package postgresql provides the PostgreSQL CRM adapter: contacts and list membership.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campaignhq/automation/pkg/persistence/sqlbase"
	"github.com/campaignhq/automation/pkg/protocol"
	_ "github.com/lib/pq"
)

// Store reads and mutates contacts and lists stored in PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	owned  bool
}

// Open connects to databaseURL and migrates the CRM schema. Close releases the connection.
func Open(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CRM database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping CRM database: %w", err)
	}

	store, err := NewStore(ctx, logger, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	store.owned = true

	return store, nil
}

// NewStore migrates the CRM schema on db and returns a store using it.
func NewStore(ctx context.Context, logger *slog.Logger, db *sql.DB) (*Store, error) {
	migrationManager := sqlbase.NewMigrationManager(logger, db, migrations(),
		sqlbase.WithMigrationsTable(migrationsTable))

	err := migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run CRM migrations: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the connection when the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}

	return s.db.Close()
}

func (s *Store) GetContact(ctx context.Context, contactID string) (map[string]any, error) {
	var raw []byte

	err := s.db.QueryRowContext(ctx, "SELECT attributes FROM contacts WHERE id = $1", contactID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact %s: %w", contactID, protocol.ErrContactNotFound)
		}

		return nil, fmt.Errorf("failed to get contact %s: %w", contactID, err)
	}

	contact := make(map[string]any)

	err = json.Unmarshal(raw, &contact)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact %s: %w", contactID, err)
	}

	return contact, nil
}

// SaveContact creates or replaces a contact.
func (s *Store) SaveContact(ctx context.Context, contactID string, attributes map[string]any) error {
	raw, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal contact %s: %w", contactID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, attributes) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET attributes = EXCLUDED.attributes, updated_at = NOW()`,
		contactID, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact %s: %w", contactID, err)
	}

	return nil
}

// Update merges fields into the stored attributes.
func (s *Store) Update(ctx context.Context, contactID string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal contact fields: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE contacts SET attributes = attributes || $2::jsonb, updated_at = NOW() WHERE id = $1",
		contactID, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact %s: %w", contactID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update contact %s: %w", contactID, err)
	}

	if affected == 0 {
		return fmt.Errorf("contact %s: %w", contactID, protocol.ErrContactNotFound)
	}

	return nil
}

// CreateList creates an empty list if it does not exist.
func (s *Store) CreateList(ctx context.Context, listID string) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO contact_lists (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", listID)
	if err != nil {
		return fmt.Errorf("failed to create list %s: %w", listID, err)
	}

	return nil
}

// AddMember adds a contact to a list. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, contactID, listID string) error {
	err := s.ensureList(ctx, listID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO contact_list_members (list_id, contact_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		listID, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to add %s to list %s: %w", contactID, listID, err)
	}

	return nil
}

// RemoveMember removes a contact from a list. Removing a non member is a no-op.
func (s *Store) RemoveMember(ctx context.Context, contactID, listID string) error {
	err := s.ensureList(ctx, listID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"DELETE FROM contact_list_members WHERE list_id = $1 AND contact_id = $2",
		listID, contactID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove %s from list %s: %w", contactID, listID, err)
	}

	return nil
}

// Members returns the contact ids of a list in insertion order.
func (s *Store) Members(ctx context.Context, listID string) ([]string, error) {
	err := s.ensureList(ctx, listID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT contact_id FROM contact_list_members WHERE list_id = $1 ORDER BY added_at, contact_id",
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", listID, err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	members := make([]string, 0)

	for rows.Next() {
		var contactID string

		err = rows.Scan(&contactID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list member: %w", err)
		}

		members = append(members, contactID)
	}

	return members, rows.Err()
}

func (s *Store) ensureList(ctx context.Context, listID string) error {
	var exists bool

	err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM contact_lists WHERE id = $1)", listID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up list %s: %w", listID, err)
	}

	if !exists {
		return fmt.Errorf("list %s: %w", listID, protocol.ErrListNotFound)
	}

	return nil
}
