package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

var _ expr.Catalog = (*Store)(nil)

// Insert appends rows to table and returns their ids (UUIDv7) in order.
// Every row is checked against the table type before anything is
// written; the insert is all or nothing.
func (s *Store) Insert(ctx context.Context, table string, rows ir.IRArray) ([]string, error) {
	itemType, err := s.TableType(ctx, table)
	if err != nil {
		return nil, err
	}

	encoded := make([]string, len(rows))
	for i, row := range rows {
		v, err := conform(itemType, row)
		if err != nil {
			return nil, fmt.Errorf("insert into %q: row %d: %w", table, i, err)
		}
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			return nil, fmt.Errorf("insert into %q: row %d: %w", table, i, err)
		}
		encoded[i] = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert into %q: %w", table, err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM source_rows WHERE table_name = ?`, table,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("insert into %q: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO source_rows (id, table_name, seq, row) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("insert into %q: %w", table, err)
	}
	defer stmt.Close()

	ids := make([]string, len(encoded))
	for i, row := range encoded {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("insert into %q: row id: %w", table, err)
		}
		seq++
		if _, err := stmt.ExecContext(ctx, id.String(), table, seq, row); err != nil {
			return nil, fmt.Errorf("insert into %q: row %d: %w", table, i, err)
		}
		ids[i] = id.String()
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("insert into %q: %w", table, err)
	}
	s.logger.Debug("rows inserted", "table", table, "rows", len(ids), "last_seq", seq)
	return ids, nil
}

// Rows returns the rows of table in insertion order.
func (s *Store) Rows(ctx context.Context, table string) (ir.IRArray, error) {
	itemType, err := s.TableType(ctx, table)
	if err != nil {
		return nil, err
	}

	rs, err := s.db.QueryContext(ctx, `
		SELECT row FROM source_rows
		WHERE table_name = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, table)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", table, err)
	}
	defer rs.Close()

	out := ir.IRArray{}
	for rs.Next() {
		var text string
		if err := rs.Scan(&text); err != nil {
			return nil, fmt.Errorf("read %q: %w", table, err)
		}
		v, err := ir.UnmarshalIRValue([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("read %q: row %d: %w", table, len(out), err)
		}
		// canonical JSON prints 7.00 as 7
		if v, err = conform(itemType, v); err != nil {
			return nil, fmt.Errorf("read %q: row %d: %w", table, len(out), err)
		}
		out = append(out, v)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read %q: %w", table, err)
	}
	return out, nil
}

// conform checks v against t, widening integers in float positions.
// Null is accepted anywhere. Record fields not named by t pass through.
func conform(t *expr.Type, v ir.IRValue) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return ir.IRNull{}, nil
	case ir.IRInt:
		if t.Kind == expr.KindFloat {
			return ir.NewIRDecimal(decimal.NewFromInt(int64(val))), nil
		}
	case ir.IRObject:
		if t.Kind == expr.KindRecord {
			out := make(ir.IRObject, len(val))
			for k, fv := range val {
				out[k] = fv
			}
			for _, f := range t.Fields {
				fv, ok := val[f.Name]
				if !ok {
					return nil, fmt.Errorf("%w: missing field %q", ErrRowType, f.Name)
				}
				c, err := conform(f.Type, fv)
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", f.Name, err)
				}
				out[f.Name] = c
			}
			return out, nil
		}
	case ir.IRArray:
		if t.Kind == expr.KindSequence {
			out := make(ir.IRArray, len(val))
			for i, elem := range val {
				c, err := conform(t.Elem, elem)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out[i] = c
			}
			return out, nil
		}
	}

	if !t.Accepts(v) {
		return nil, fmt.Errorf("%w: %s value is not %s", ErrRowType, ir.KindName(v), t)
	}
	return v, nil
}
