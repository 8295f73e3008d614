package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

// doJSON executes one JSON API request and returns the status code and raw
// response body. payload may be nil for body-less requests. Transport-level
// failures come back as errors; HTTP error statuses are left to the caller
// to classify.
func doJSON(ctx context.Context, hc *http.Client, method, url string, headers map[string]string, payload interface{}) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		reqBytes, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewBuffer(reqBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return httpResp.StatusCode, nil, fmt.Errorf("failed to read response body (status %d): %w", httpResp.StatusCode, err)
	}
	return httpResp.StatusCode, respBytes, nil
}

// classifyStatus maps an HTTP status onto the error taxonomy: 2xx is fine,
// 401/403 is an unambiguous credential rejection, everything else is a
// remote failure for the given operation.
func classifyStatus(key domain.ProviderKey, op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &domain.AuthError{Provider: key, StatusCode: status}
	}
	detail := apiErrorDetail(body)
	return &domain.RemoteUnavailableError{
		Provider: key,
		Op:       op,
		Err:      fmt.Errorf("unexpected status %d%s", status, detail),
	}
}

// remoteErr wraps a transport-level failure.
func remoteErr(key domain.ProviderKey, op string, err error) error {
	return &domain.RemoteUnavailableError{Provider: key, Op: op, Err: err}
}

// apiErrorDetail pulls a short message out of a provider error body when one
// is present; large or non-JSON bodies are dropped rather than logged raw.
func apiErrorDetail(body []byte) string {
	if len(body) == 0 || len(body) > 2048 {
		return ""
	}
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	switch {
	case parsed.Message != "":
		return ": " + parsed.Message
	case parsed.Error != "":
		return ": " + parsed.Error
	case parsed.Detail != "":
		return ": " + parsed.Detail
	}
	return ""
}
