package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
)

const maxMessageLen = 200

// Error is a non-2xx answer from an upstream service.
type Error struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s service: %d %s", e.Service, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var uErr *Error
	return errors.As(err, &uErr) && uErr.StatusCode == http.StatusNotFound
}

// notFound maps an upstream 404 to core.ErrNotFound.
func notFound(err error) error {
	if IsNotFound(err) {
		return core.ErrNotFound
	}
	return err
}

// ExtractMessage makes a best effort at finding a human readable message in an error body.
func ExtractMessage(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return http.StatusText(status)
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := messageFrom(payload); msg != "" {
			return truncate(msg)
		}
		if _, isObj := payload.(map[string]interface{}); isObj {
			return http.StatusText(status)
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") {
		return truncate(text)
	}
	return http.StatusText(status)
}

func messageFrom(payload interface{}) string {
	switch v := payload.(type) {
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"error", "message", "detail"} {
			if msg := messageFrom(v[key]); msg != "" {
				return msg
			}
		}
		if errs, ok := v["errors"].([]interface{}); ok && len(errs) > 0 {
			return messageFrom(errs[0])
		}
	}
	return ""
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxMessageLen {
		return string(r[:maxMessageLen]) + "..."
	}
	return s
}
