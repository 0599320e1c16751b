package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qmodel/internal/execute"
	"github.com/roach88/qmodel/internal/expr"
)

// Store errors. A missing table reports execute.ErrUnknownTable so
// executors treat stored and in-memory catalogs alike.
var (
	ErrTableExists = errors.New("table already exists with a different type")
	ErrRowType     = errors.New("row does not match the table type")
)

// TableInfo describes one stored table.
type TableInfo struct {
	Name string     `json:"name"`
	Type *expr.Type `json:"-"`
	Rows int        `json:"rows"`
}

// CreateTable registers a table with its item type. Creating a table
// that already exists with an equal type is a no-op.
func (s *Store) CreateTable(ctx context.Context, name string, itemType *expr.Type) error {
	if name == "" {
		return errors.New("create table: name is required")
	}
	if itemType == nil {
		return fmt.Errorf("create table %q: item type is required", name)
	}

	existing, err := s.TableType(ctx, name)
	switch {
	case err == nil:
		if existing.Equal(itemType) {
			return nil
		}
		return fmt.Errorf("create table %q: %w: stored %s, got %s", name, ErrTableExists, existing, itemType)
	case !errors.Is(err, execute.ErrUnknownTable):
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO source_tables (name, item_type, created_seq)
		VALUES (?, ?, COALESCE((SELECT MAX(created_seq) FROM source_tables), 0) + 1)
	`, name, itemType.String())
	if err != nil {
		return fmt.Errorf("create table %q: %w", name, err)
	}
	s.logger.Info("table created", "table", name, "type", itemType.String())
	return nil
}

// TableType returns the item type of a stored table.
func (s *Store) TableType(ctx context.Context, name string) (*expr.Type, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT item_type FROM source_tables WHERE name = ?`, name,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", execute.ErrUnknownTable, name)
	}
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}

	t, err := expr.ParseType(text)
	if err != nil {
		return nil, fmt.Errorf("table %q: stored type %q: %w", name, text, err)
	}
	return t, nil
}

// Tables lists stored tables in creation order.
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.item_type, COUNT(r.id)
		FROM source_tables t
		LEFT JOIN source_rows r ON r.table_name = t.name
		GROUP BY t.name, t.item_type, t.created_seq
		ORDER BY t.created_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []TableInfo
	for rows.Next() {
		var (
			info     TableInfo
			typeText string
		)
		if err := rows.Scan(&info.Name, &typeText, &info.Rows); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		if info.Type, err = expr.ParseType(typeText); err != nil {
			return nil, fmt.Errorf("table %q: stored type %q: %w", info.Name, typeText, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DropTable removes a table and its rows.
func (s *Store) DropTable(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM source_rows WHERE table_name = ?`, name); err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM source_tables WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", execute.ErrUnknownTable, name)
	}
	return tx.Commit()
}
