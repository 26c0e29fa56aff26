package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseDocument parses raw report document bytes into rows. SP-API report
// documents are either tab-delimited flat files with a header line or a
// JSON envelope; the format is sniffed from the first non-space byte.
// Parameters:
//   - data: raw (already decompressed) document bytes.
// Returns:
//   - []Row: parsed rows, one map per data line / array element.
//   - error: non-nil if the document cannot be parsed.
func ParseDocument(data []byte) ([]Row, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return parseJSONRows(trimmed)
	}
	return ParseFlatFile(data)
}

// ParseFlatFile parses a tab-delimited flat file with a header line.
// Parameters:
//   - data: raw flat-file bytes.
// Returns:
//   - []Row: one row per data line, keyed by header column.
//   - error: non-nil if the file cannot be read.
func ParseFlatFile(data []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	// Flat files from older report versions pad short lines
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse flat file: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[strings.TrimSpace(col)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseJSONRows parses a JSON report document. Both a bare array of row
// objects and common envelope shapes ({"rows": [...]}, {"data": [...]},
// {"reportData": [...]}) are accepted; scalar values are stringified so
// downstream code sees the same Row shape as flat files.
func parseJSONRows(data []byte) ([]Row, error) {
	var objects []map[string]interface{}

	if data[0] == '[' {
		if err := json.Unmarshal(data, &objects); err != nil {
			return nil, fmt.Errorf("failed to parse JSON report: %w", err)
		}
	} else {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to parse JSON report: %w", err)
		}
		found := false
		for _, key := range []string{"rows", "data", "reportData"} {
			if raw, ok := envelope[key]; ok {
				if err := json.Unmarshal(raw, &objects); err != nil {
					return nil, fmt.Errorf("failed to parse JSON report %q field: %w", key, err)
				}
				found = true
				break
			}
		}
		if !found {
			// Single-object document: treat the envelope itself as one row
			var single map[string]interface{}
			if err := json.Unmarshal(data, &single); err != nil {
				return nil, fmt.Errorf("failed to parse JSON report: %w", err)
			}
			objects = []map[string]interface{}{single}
		}
	}

	rows := make([]Row, 0, len(objects))
	for _, obj := range objects {
		row := make(Row, len(obj))
		for k, v := range obj {
			row[k] = stringifyValue(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// Avoid 1e+06 style output for integral values
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
