package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/lifecycle"
	"gmao-cli/internal/report"
)

var (
	errNotLoggedIn = errors.New("not logged in; run `gmao login`")
	errCancelled   = errors.New("cancelled")
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// fieldsError reports local form validation failures.
type fieldsError struct {
	what   string
	fields map[string]string
}

func (e fieldsError) Error() string {
	return e.what + ": " + lifecycle.FieldErrors(e.fields).Error()
}

func errInvalid(what string, fields map[string]string) error {
	return fieldsError{what: what, fields: fields}
}

// describe renders err for stderr, one field per line when there are field errors.
func describe(err error) string {
	if err == nil {
		return ""
	}
	var fields map[string]string
	var fe fieldsError
	var lfe lifecycle.FieldErrors
	var rie *report.InvalidError
	switch {
	case errors.As(err, &fe):
		fields = fe.fields
	case errors.As(err, &lfe):
		fields = lfe
	case errors.As(err, &rie):
		fields = rie.Fields
	default:
		fields = gateway.FieldsOf(err)
	}

	msg := err.Error()
	switch gateway.KindOf(err) {
	case gateway.KindPermission:
		msg += " (run `gmao login` again if your session expired)"
	case gateway.KindNetwork:
		msg += " (check --api / GMAO_API_URL and that the server is up)"
	}
	if len(fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, fields[k])
	}
	return b.String()
}
