package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/pkg/utils"

	"github.com/rs/zerolog/log"
)

// maxPayload caps a fetched or loaded document.
const maxPayload = 32 << 20

// ------------------- Parsing -------------------

// Parse turns raw text into rows. CSV input is split on commas with no quote
// handling; JSON input must be an array of objects.
func Parse(text string, format model.Format) ([]model.RawRow, error) {
	switch format {
	case model.FormatCSV:
		return parseCSV(text), nil
	case model.FormatJSON:
		return parseJSON(text)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, format)
	}
}

func parseCSV(text string) []model.RawRow {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return []model.RawRow{}
	}

	headers := strings.Split(lines[0], ",")
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]model.RawRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ",")
		values := make(map[string]model.Value, len(headers))
		// Later duplicates overwrite earlier ones; missing cells leave the
		// field out.
		for i, h := range headers {
			if i >= len(cells) {
				break
			}
			values[h] = cellValue(cells[i])
		}
		rows = append(rows, model.NewRawRow(headers, values))
	}
	return rows
}

// cellValue reads a CSV cell. Blank cells count as the number 0.
func cellValue(cell string) model.Value {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return model.Number(0)
	}
	if f, ok := utils.ParseNumber(cell); ok {
		return model.Number(f)
	}
	return model.Text(cell)
}

func parseJSON(text string) ([]model.RawRow, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &model.ParseError{Format: model.FormatJSON, Reason: "malformed document", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, &model.ParseError{Format: model.FormatJSON, Reason: "expected an array of objects"}
	}

	rows := []model.RawRow{}
	for dec.More() {
		row, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, &model.ParseError{Format: model.FormatJSON, Reason: "unterminated array", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &model.ParseError{Format: model.FormatJSON, Reason: "trailing data after array"}
	}
	return rows, nil
}

// decodeObject reads one object from dec keeping its key order.
func decodeObject(dec *json.Decoder) (model.RawRow, error) {
	tok, err := dec.Token()
	if err != nil {
		return model.RawRow{}, &model.ParseError{Format: model.FormatJSON, Reason: "malformed element", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return model.RawRow{}, &model.ParseError{Format: model.FormatJSON, Reason: "array element is not an object"}
	}

	var fields []string
	values := make(map[string]model.Value)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return model.RawRow{}, &model.ParseError{Format: model.FormatJSON, Reason: "malformed key", Err: err}
		}
		key, ok := keyTok.(string)
		if !ok {
			return model.RawRow{}, &model.ParseError{Format: model.FormatJSON, Reason: "object key is not a string"}
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return model.RawRow{}, &model.ParseError{Format: model.FormatJSON, Reason: fmt.Sprintf("malformed value for %q", key), Err: err}
		}
		fields = append(fields, key)
		values[key] = jsonValue(raw)
	}
	if _, err := dec.Token(); err != nil {
		return model.RawRow{}, &model.ParseError{Format: model.FormatJSON, Reason: "unterminated object", Err: err}
	}
	return model.NewRawRow(fields, values), nil
}

// jsonValue keeps the JSON type of raw: strings and numbers as such, null as
// Null and anything else verbatim.
func jsonValue(raw json.RawMessage) model.Value {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return model.Null()
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return model.Text(s)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if f, ok := utils.ParseNumber(string(trimmed)); ok {
			return model.Number(f)
		}
	case 'n':
		if string(trimmed) == "null" {
			return model.Null()
		}
	}
	return model.Other(string(trimmed))
}

// ------------------- Acquisition -------------------

// DetectFormat picks the input format from a file name or URL path, falling
// back to a MIME type. Anything else is ErrUnsupportedFormat.
func DetectFormat(name, mimeType string) (model.Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return model.FormatCSV, nil
	case ".json":
		return model.FormatJSON, nil
	}
	if mimeType != "" {
		if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
			switch mt {
			case "text/csv", "application/csv":
				return model.FormatCSV, nil
			case "application/json", "text/json":
				return model.FormatJSON, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, name)
}

// LoadFile reads a local CSV or JSON file and parses it.
func LoadFile(filePath string) ([]model.RawRow, model.Format, error) {
	format, err := DetectFormat(filePath, "")
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	rows, err := Parse(string(data), format)
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("file", filePath).Str("format", string(format)).Int("rows", len(rows)).Msg("📄 Loaded file")
	return rows, format, nil
}

// FetchURL downloads a CSV or JSON document and parses it. The format comes
// from the URL path, then from the response Content-Type.
func FetchURL(ctx context.Context, client *http.Client, rawURL string) ([]model.RawRow, model.Format, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}

	log.Debug().Str("url", rawURL).Msg("🌐 GET")
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", &model.NetworkError{Op: "GET", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, "", &model.NetworkError{Op: "GET", URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &model.NetworkError{Op: "GET", URL: rawURL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	format, err := DetectFormat(path.Base(req.URL.Path), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", err
	}
	rows, err := Parse(string(body), format)
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("url", rawURL).Str("format", string(format)).Int("rows", len(rows)).Msg("🌐 Fetched document")
	return rows, format, nil
}
