package router

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/HatiCode/plotviz/pkg/render"
)

// Request-shape failure reasons. Renderer limits use the render.Reason* values.
const (
	reasonNotJSON     = "not_json"
	reasonMalformed   = "malformed"
	reasonMissingData = "missing_data"
	reasonBadShape    = "bad_shape"
	reasonNonNumeric  = "non_numeric"
)

// plotRequest is the decoded body of POST /plots.
type plotRequest struct {
	Series render.Series
	Labels render.Labels
}

// isJSON accepts application/json and structured-syntax variants such as
// application/vnd.api+json.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/json" ||
		(strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}

// decodePlotRequest parses body. data is either a flat array of y values or
// an object {"x": [...], "y": [...]} with x optional. Numbers may be JSON
// numbers or numeric strings. Length limits are checked before the elements
// are parsed.
func decodePlotRequest(body []byte, maxPoints int) (plotRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return plotRequest{}, render.Invalid(reasonMalformed, "request body must be a json object")
	}

	data, ok := fields["data"]
	if !ok || isNull(data) {
		return plotRequest{}, render.Invalid(reasonMissingData, "missing 'data' field")
	}

	var rawX, rawY json.RawMessage
	switch firstByte(data) {
	case '[':
		rawY = data
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return plotRequest{}, render.Invalid(reasonMalformed, "request body must be a json object")
		}
		rawX, rawY = obj["x"], obj["y"]
	}

	var ys []json.RawMessage
	if err := json.Unmarshal(rawY, &ys); err != nil || firstByte(rawY) != '[' {
		return plotRequest{}, render.Invalid(reasonBadShape, "'data' or 'data.y' must be an array of numbers")
	}
	if len(ys) == 0 {
		return plotRequest{}, render.Invalid(render.ReasonEmpty, "data must be non-empty")
	}
	if len(ys) > maxPoints {
		return plotRequest{}, render.Invalid(render.ReasonTooManyPoints, "data contains too many points (max %d)", maxPoints)
	}

	var req plotRequest
	var err error
	if req.Series.Y, err = parseNumbers(ys, "y"); err != nil {
		return plotRequest{}, err
	}

	if rawX != nil && !isNull(rawX) {
		var xs []json.RawMessage
		if err := json.Unmarshal(rawX, &xs); err != nil || firstByte(rawX) != '[' {
			return plotRequest{}, render.Invalid(reasonBadShape, "'data.x' must be an array of numbers")
		}
		if len(xs) != len(ys) {
			return plotRequest{}, render.Invalid(render.ReasonLengthMismatch, "x and y must have the same length")
		}
		if req.Series.X, err = parseNumbers(xs, "x"); err != nil {
			return plotRequest{}, err
		}
	}

	req.Labels = render.Labels{
		Title:  label(fields["title"]),
		XLabel: label(fields["x_label"]),
		YLabel: label(fields["y_label"]),
	}
	return req, nil
}

func parseNumbers(raw []json.RawMessage, axis string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, elem := range raw {
		v, ok := parseNumber(elem)
		if !ok {
			return nil, render.Invalid(reasonNonNumeric, "all %s values must be numeric", axis)
		}
		out[i] = v
	}
	return out, nil
}

func parseNumber(elem json.RawMessage) (float64, bool) {
	switch firstByte(elem) {
	case '"':
		var s string
		if err := json.Unmarshal(elem, &s); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v, err == nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var v float64
		if err := json.Unmarshal(elem, &v); err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// label returns a string field as-is and any other non-null JSON value as
// its literal text.
func label(raw json.RawMessage) string {
	if raw == nil || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
