package catalog

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/osusume/internal/models"
)

// loadXLSX reads a catalog from the first sheet of an XLSX workbook. The first
// row is the header, mapped the same way as for delimited files.
func loadXLSX(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrLoad)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrLoad, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrLoad, sheets[0])
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	var products []models.Product
	for _, row := range rows[1:] {
		p := productFromRow(row, cols)
		if p.ID == "" && p.Name == "" {
			continue // trailing blank rows are common in spreadsheets
		}
		products = append(products, p)
	}

	c, err := New(products)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return c, nil
}
