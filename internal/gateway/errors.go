package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a gateway failure so callers can switch on it.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindDecode     Kind = "decode"
	KindOther      Kind = "other"
)

// Error is returned for every failed gateway call.
type Error struct {
	Kind     Kind
	Status   int    // 0 when no response was received
	Endpoint string // request path, without base URL or query
	Message  string
	// Fields holds per-field messages from a structured 400 body.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error on %s", e.Kind, e.Endpoint)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, KindOther for foreign errors, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindOther
}

// FieldsOf returns the structured field errors carried by err, if any.
func FieldsOf(err error) map[string]string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Fields
	}
	return nil
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindOther
	}
}

// errorFromBody maps a non-2xx response body onto an Error.
func errorFromBody(endpoint string, status int, statusLine string, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status, Endpoint: endpoint}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil && obj != nil {
		if status == http.StatusBadRequest && !envelopeOnly(obj) {
			e.Fields = fieldMessages(obj)
			if msg := joinFields(e.Fields); msg != "" {
				e.Message = msg
				return e
			}
		}
		for _, k := range envelopeKeys {
			if s := valueMessage(obj[k]); strings.TrimSpace(s) != "" {
				e.Message = s
				return e
			}
		}
	}

	var list []any
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		if msg := joinValues(list); msg != "" {
			e.Message = msg
			return e
		}
	}

	if strings.TrimSpace(statusLine) == "" {
		statusLine = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	e.Message = "request failed: " + statusLine
	return e
}

var envelopeKeys = []string{"detail", "message", "error", "non_field_errors"}

// envelopeOnly reports whether a 400 body carries only a general message, not field errors.
func envelopeOnly(obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	for k := range obj {
		found := false
		for _, e := range envelopeKeys {
			if k == e {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fieldMessages(obj map[string]any) map[string]string {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		out[k] = valueMessage(v)
	}
	return out
}

func valueMessage(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		return joinValues(t)
	case nil:
		return ""
	case map[string]any:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func joinValues(vs []any) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		if s := valueMessage(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// joinFields renders "field: msg1, msg2; field2: msg" with keys sorted.
func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}
