package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"timetrack/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedBody = errors.New("request body must be a JSON object")
	errMissingFields = errors.New("missing required fields")
	errInvalidFormat = errors.New("invalid hours or date format")
)

// parseEventInput reads a create or update body. date, project and hours
// are required; hours may be a JSON number or a numeric string.
func parseEventInput(r *http.Request) (core.EventInput, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return core.EventInput{}, errMalformedBody
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return core.EventInput{}, errMalformedBody
	}
	for _, key := range []string{core.FieldDate, core.FieldProject, core.FieldHours} {
		if _, ok := fields[key]; !ok {
			return core.EventInput{}, errMissingFields
		}
	}

	var in core.EventInput
	if err := json.Unmarshal(fields[core.FieldProject], &in.Project); err != nil {
		return core.EventInput{}, errInvalidFormat
	}
	in.Project = sanitizeInput(in.Project)

	hours, ok := numeric(fields[core.FieldHours])
	if !ok {
		return core.EventInput{}, errInvalidFormat
	}
	in.Hours = hours

	var date string
	if err := json.Unmarshal(fields[core.FieldDate], &date); err != nil {
		return core.EventInput{}, errInvalidFormat
	}
	if in.Date, err = core.ParseDate(date); err != nil {
		return core.EventInput{}, errInvalidFormat
	}

	if raw, ok := fields[core.FieldDescription]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &in.Description); err != nil {
			return core.EventInput{}, errMalformedBody
		}
		in.Description = sanitizeInput(in.Description)
	}

	if err := in.Validate(); err != nil {
		return core.EventInput{}, err
	}
	return in, nil
}

func numeric(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// pathEventID returns the {id} path value. Non-numeric ids never match a
// stored event.
func pathEventID(r *http.Request) (core.EventID, bool) {
	id, err := core.ParseEventID(r.PathValue("id"))
	return id, err == nil
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
