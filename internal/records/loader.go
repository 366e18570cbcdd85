package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpattn/advfilter/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned when an uploaded file is not supported.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Loader turns tabular uploads into record collections typed by a field
// catalog, so filter previews run against properly typed values instead of
// raw strings.
type Loader struct{}

// NewLoader creates a record loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the file into records for the entity type, dispatching on the
// file extension. Supported formats are .csv, .xlsx and .xlsm.
func (l *Loader) Load(fileName, entityType string, data io.Reader, catalog domain.FieldCatalog) ([]domain.Record, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return l.LoadCSV(data, entityType, catalog)
	case ".xlsx", ".xlsm":
		return l.LoadXLSX(data, entityType, catalog)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
}

// LoadCSV parses comma-separated data. The first row is the header.
func (l *Loader) LoadCSV(data io.Reader, entityType string, catalog domain.FieldCatalog) ([]domain.Record, error) {
	buffered := bufio.NewReader(data)
	if prefix, err := buffered.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		if _, err := buffered.Discard(len(byteOrderMark)); err != nil {
			return nil, fmt.Errorf("failed to skip byte order mark: %w", err)
		}
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return l.rowsToRecords(rows, entityType, catalog)
}

// LoadXLSX parses the first sheet of a workbook. The first row is the header.
func (l *Loader) LoadXLSX(data io.Reader, entityType string, catalog domain.FieldCatalog) ([]domain.Record, error) {
	workbook, err := excelize.OpenReader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	return l.rowsToRecords(rows, entityType, catalog)
}

func (l *Loader) rowsToRecords(rows [][]string, entityType string, catalog domain.FieldCatalog) ([]domain.Record, error) {
	if len(rows) == 0 {
		return nil, errors.New("no data rows found")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for rowIndex, row := range rows[1:] {
		fields := make(map[string]any, len(headers))
		id := ""
		for col, header := range headers {
			if header == "" || col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[col])
			if header == "id" {
				id = cell
				continue
			}
			value, err := coerceCell(cell, header, catalog)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", rowIndex+2, header, err)
			}
			fields[header] = value
		}

		record := domain.NewRecord(entityType, fields)
		if id != "" {
			record.ID = id
		}
		records = append(records, record)
	}

	return records, nil
}

// coerceCell converts a cell to the runtime shape the field's declared type
// expects. Columns absent from the catalog stay raw strings. Empty cells load
// as nil so the emptiness operators see them as missing.
func coerceCell(cell, field string, catalog domain.FieldCatalog) (any, error) {
	if cell == "" {
		return nil, nil
	}
	def, known := catalog.Definition(field)
	if !known {
		return cell, nil
	}

	switch def.Type {
	case domain.DataTypeNumber:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", cell)
		}
		return f, nil
	case domain.DataTypeBoolean:
		switch strings.ToLower(cell) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		default:
			return nil, fmt.Errorf("expected boolean, got %q", cell)
		}
	case domain.DataTypeDate:
		t, err := domain.ParseTime(cell)
		if err != nil {
			return nil, err
		}
		return t, nil
	case domain.DataTypeArray:
		if strings.HasPrefix(cell, "[") {
			var items []any
			if err := json.Unmarshal([]byte(cell), &items); err != nil {
				return nil, fmt.Errorf("invalid array value: %w", err)
			}
			return items, nil
		}
		parts := strings.Split(cell, ",")
		items := make([]any, 0, len(parts))
		for _, part := range parts {
			items = append(items, strings.TrimSpace(part))
		}
		return items, nil
	case domain.DataTypeObject:
		var value map[string]any
		if err := json.Unmarshal([]byte(cell), &value); err != nil {
			return nil, fmt.Errorf("invalid object value: %w", err)
		}
		return value, nil
	default:
		return cell, nil
	}
}
