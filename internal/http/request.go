// Package http provides HTTP server and handler implementations.
//
// This file parses request bodies and query parameters. Registration
// accepts both JSON and form-encoded bodies.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gofinances/internal/services"
)

const maxBodyBytes = 1 << 20

var errInvalidMonth = errors.New("invalid year or month")

// RequestBodyParser reads a JSON or form-encoded body once.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object and as a
// form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}
	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal([]byte(body), &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a trimmed, sanitized value from the parsed body.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// RegisterInput maps the parsed body to a registration form. An
// unparseable date is reported through the returned field map.
func (p *RequestBodyParser) RegisterInput() (services.RegisterInput, map[string]string) {
	in := services.RegisterInput{
		Name:     p.Get("name"),
		Amount:   p.Get("amount"),
		Type:     p.Get("type"),
		Category: p.Get("category"),
	}
	if raw := p.Get("date"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return in, map[string]string{"date": "Data inválida"}
		}
		in.Date = d
	}
	return in, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// parseMonthParams reads year and month from the query, defaulting to the
// month of now. Present but invalid values are an error.
func parseMonthParams(query url.Values, now time.Time) (year, month int, err error) {
	year, month = now.Year(), int(now.Month())

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil || year < 1 || year > 9999 {
			return 0, 0, fmt.Errorf("%w: year %q", errInvalidMonth, v)
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil || month < 1 || month > 12 {
			return 0, 0, fmt.Errorf("%w: month %q", errInvalidMonth, v)
		}
	}
	return year, month, nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
