package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"condofin/internal/core"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ExportReport serializes a report. CSV output is a header row with the
// top-level keys in encoding order and one row of values, where nested values
// are inlined as compact JSON.
func (e *Engine) ExportReport(ctx context.Context, data any, format string) (string, error) {
	var (
		out string
		err error
	)
	switch format {
	case FormatJSON:
		out, err = exportJSON(data)
	case FormatCSV:
		out, err = exportCSV(data)
	default:
		return "", &core.UnsupportedFormatError{Format: format}
	}
	if err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "Report exported",
		"format", format,
		"bytes", len(out))
	return out, nil
}

func exportJSON(data any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(b), nil
}

func exportCSV(data any) (string, error) {
	keys, values, err := topLevelFields(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(keys); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	if err := w.Write(values); err != nil {
		return "", fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// topLevelFields walks the JSON object form of data in order, returning its
// keys and a CSV cell per value.
func topLevelFields(data any) ([]string, []string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("encode report: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode report: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, &core.ValidationError{Field: "data", Message: "csv export needs an object with named fields"}
	}

	var keys, values []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode report key: %w", err)
		}
		key := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("decode report field %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, cell(v))
	}
	return keys, values, nil
}

func cell(v json.RawMessage) string {
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}
