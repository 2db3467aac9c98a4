package shared

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies read by ReadJSONBody.
const MaxBodyBytes = 1 << 20

// ErrInvalidJSON is returned when a request body is not a single JSON value.
var ErrInvalidJSON = errors.New("request body is not valid JSON")

// ReadJSONBody reads the request body as raw JSON without decoding it. An
// empty body yields nil.
func ReadJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(body), nil
}
