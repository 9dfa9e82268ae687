package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSize = 4 << 20

var client = &http.Client{Timeout: 30 * time.Second}

// HTTPError is returned for any response with a non 2xx status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// NewHTTPRequest performs a request with the given method against url and
// returns the status code and body of the response.
// If body is not nil it's JSON encoded and sent as request payload.
func NewHTTPRequest(
	ctx context.Context, method, url string, body interface{}, header map[string]string,
) (int, []byte, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		return 0, nil, fmt.Errorf("verb not supported %s", method)
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer rs.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(rs.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return rs.StatusCode, bodyBytes, nil
}

// DoJSON is like NewHTTPRequest but decodes the response body into out, if
// not nil. Responses with a status code other than 2xx are returned as
// *HTTPError carrying the server's error message.
func DoJSON(
	ctx context.Context, method, url string, body, out interface{},
	header map[string]string,
) error {
	status, respBody, err := NewHTTPRequest(ctx, method, url, body, header)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &HTTPError{StatusCode: status, Message: errorMessage(respBody)}
	}
	if out == nil || len(respBody) <= 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	resp := struct {
		Error string `json:"error"`
	}{}
	if err := json.Unmarshal(body, &resp); err == nil && len(resp.Error) > 0 {
		return resp.Error
	}
	return strings.TrimSpace(string(body))
}
