package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/osusume/internal/models"
)

// ErrLoad wraps all catalog load failures so callers can treat them uniformly
// (a load failure at startup is fatal; on reload it keeps the old generation).
var ErrLoad = errors.New("catalog load failed")

// Load reads a product catalog from path. The format is picked from the file
// extension: .xlsx is read as a spreadsheet, everything else as delimited text
// (delimiter defaults to comma). The first row must be a header containing at
// least "id" and "name"; "category" and "description" are optional.
func Load(path, delimiter string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadXLSX(path)
	default:
		return loadCSV(path, delimiter)
	}
}

func loadCSV(path, delimiter string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if delimiter != "" {
		// The delimiter may be any single rune, including multi-byte ones.
		d, _ := utf8.DecodeRuneInString(delimiter)
		r.Comma = d
	}
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrLoad, err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	var products []models.Product
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", ErrLoad, err)
		}
		products = append(products, productFromRow(record, cols))
	}

	c, err := New(products)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return c, nil
}

// columns maps header names to field positions; -1 means absent.
type columns struct {
	id, name, category, description int
}

func mapColumns(header []string) (columns, error) {
	cols := columns{id: -1, name: -1, category: -1, description: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id", "product_id":
			cols.id = i
		case "name", "title", "product_name":
			cols.name = i
		case "category":
			cols.category = i
		case "description", "desc":
			cols.description = i
		}
	}
	if cols.id < 0 || cols.name < 0 {
		return cols, fmt.Errorf("header must contain id and name columns")
	}
	return cols, nil
}

func productFromRow(record []string, cols columns) models.Product {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return models.Product{
		ID:          field(cols.id),
		Name:        field(cols.name),
		Category:    field(cols.category),
		Description: field(cols.description),
	}
}
