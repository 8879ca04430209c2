// Package report builds task-report queries and saves the PDFs the server renders.
package report

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gmao-cli/internal/model"
)

// Query filters the admin task report. Dates are both set or both empty.
type Query struct {
	StartDate     string
	EndDate       string
	OrderValues   []string
	TechnicianIDs []string
}

func (q Query) clean() Query {
	trim := func(in []string) []string {
		var out []string
		for _, v := range in {
			if v = strings.TrimSpace(v); v != "" && !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
		return out
	}
	return Query{
		StartDate:     strings.TrimSpace(q.StartDate),
		EndDate:       strings.TrimSpace(q.EndDate),
		OrderValues:   trim(q.OrderValues),
		TechnicianIDs: trim(q.TechnicianIDs),
	}
}

// Validate returns field errors, nil when q can be sent. A PDF needs a date range or
// at least one OI.
func (q Query) Validate(pdf bool) map[string]string {
	q = q.clean()
	errs := map[string]string{}
	if (q.StartDate == "") != (q.EndDate == "") {
		errs["dates"] = "Give both a start and an end date, or neither."
	}
	for k, v := range map[string]string{"start_date": q.StartDate, "end_date": q.EndDate} {
		if v == "" {
			continue
		}
		if _, err := model.ParseDate(v); err != nil {
			errs[k] = "Use YYYY-MM-DD."
		}
	}
	if _, bad := errs["start_date"]; !bad && q.StartDate != "" && q.EndDate != "" && q.EndDate < q.StartDate {
		if _, bad := errs["end_date"]; !bad {
			errs["end_date"] = "End date cannot be before start date."
		}
	}
	if pdf && q.StartDate == "" && len(q.OrderValues) == 0 {
		errs["ordre_imputation_value"] = "A PDF needs a date range or at least one OI."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Values renders q as query parameters, repeating the list filters.
func (q Query) Values(pdf bool) url.Values {
	q = q.clean()
	v := url.Values{}
	if q.StartDate != "" && q.EndDate != "" {
		v.Set("start_date", q.StartDate)
		v.Set("end_date", q.EndDate)
	}
	for _, o := range q.OrderValues {
		v.Add("ordre_imputation_value", o)
	}
	for _, t := range q.TechnicianIDs {
		v.Add("technicien_id", t)
	}
	if pdf {
		v.Set("format", "pdf")
	}
	return v
}

type API interface {
	TaskReport(ctx context.Context, q url.Values) ([]model.WorkOrder, error)
	TaskReportPDF(ctx context.Context, q url.Values) ([]byte, error)
	PrintTask(ctx context.Context, id int) ([]byte, error)
}

// InvalidError carries the field errors of a rejected query.
type InvalidError struct {
	Fields map[string]string
}

func (e *InvalidError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid report query: " + strings.Join(parts, "; ")
}

func List(ctx context.Context, api API, q Query) ([]model.WorkOrder, error) {
	if errs := q.Validate(false); errs != nil {
		return nil, &InvalidError{Fields: errs}
	}
	return api.TaskReport(ctx, q.Values(false))
}

func TaskFileName(id int) string { return fmt.Sprintf("tache_%d.pdf", id) }

func ReportFileName(day time.Time) string {
	return fmt.Sprintf("rapport_taches_%s.pdf", day.Format(model.DateLayout))
}

// SaveReportPDF downloads the report PDF into dir and returns its path.
func SaveReportPDF(ctx context.Context, api API, q Query, dir string, now time.Time) (string, error) {
	if errs := q.Validate(true); errs != nil {
		return "", &InvalidError{Fields: errs}
	}
	b, err := api.TaskReportPDF(ctx, q.Values(true))
	if err != nil {
		return "", err
	}
	return writeFile(dir, ReportFileName(now), b)
}

// SaveTaskPDF downloads the printable work order into dir.
func SaveTaskPDF(ctx context.Context, api API, id int, dir string) (string, error) {
	b, err := api.PrintTask(ctx, id)
	if err != nil {
		return "", err
	}
	return writeFile(dir, TaskFileName(id), b)
}

func writeFile(dir, name string, b []byte) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}
