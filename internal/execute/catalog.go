package execute

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

// MapCatalog serves tables from memory.
type MapCatalog map[string]ir.IRArray

// Rows returns the rows of table.
func (c MapCatalog) Rows(_ context.Context, table string) (ir.IRArray, error) {
	rows, ok := c[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return rows, nil
}

// Catalogs looks a table up in each catalog in turn. A catalog that
// does not know the table is skipped; any other error stops the search.
type Catalogs []expr.Catalog

// Rows returns the rows of table from the first catalog that has it.
func (cs Catalogs) Rows(ctx context.Context, table string) (ir.IRArray, error) {
	for _, c := range cs {
		if c == nil {
			continue
		}
		rows, err := c.Rows(ctx, table)
		if errors.Is(err, ErrUnknownTable) {
			continue
		}
		return rows, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
}
