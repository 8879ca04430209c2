package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/gateway/gatewaytest"
	"gmao-cli/internal/model"
)

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		pdf  bool
		bad  []string
	}{
		{"empty list", Query{}, false, nil},
		{"empty pdf", Query{}, true, []string{"ordre_imputation_value"}},
		{"pdf with oi", Query{OrderValues: []string{"OI-1"}}, true, nil},
		{"pdf with dates", Query{StartDate: "2026-01-01", EndDate: "2026-01-31"}, true, nil},
		{"one date", Query{StartDate: "2026-01-01"}, false, []string{"dates"}},
		{"bad date", Query{StartDate: "01/01/2026", EndDate: "2026-01-31"}, false, []string{"start_date"}},
		{"reversed", Query{StartDate: "2026-02-01", EndDate: "2026-01-31"}, false, []string{"end_date"}},
		{"blank oi", Query{OrderValues: []string{"  "}}, true, []string{"ordre_imputation_value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.q.Validate(tt.pdf)
			if len(errs) != len(tt.bad) {
				t.Fatalf("errors = %v; want keys %v", errs, tt.bad)
			}
			for _, k := range tt.bad {
				if _, ok := errs[k]; !ok {
					t.Fatalf("missing %s in %v", k, errs)
				}
			}
		})
	}
}

func TestQueryValuesRepeatsFilters(t *testing.T) {
	q := Query{
		StartDate:     "2026-01-01",
		EndDate:       "2026-01-31",
		OrderValues:   []string{"OI-1", " OI-2 ", "OI-1"},
		TechnicianIDs: []string{"T1", "T2"},
	}
	v := q.Values(true)
	if got := v["ordre_imputation_value"]; !reflect.DeepEqual(got, []string{"OI-1", "OI-2"}) {
		t.Fatalf("ordre_imputation_value = %v", got)
	}
	if got := v["technicien_id"]; !reflect.DeepEqual(got, []string{"T1", "T2"}) {
		t.Fatalf("technicien_id = %v", got)
	}
	if v.Get("format") != "pdf" || v.Get("start_date") != "2026-01-01" {
		t.Fatalf("values = %v", v)
	}
	if q.Values(false).Has("format") {
		t.Fatalf("list query should not ask for a pdf")
	}
}

func TestFileNames(t *testing.T) {
	if got := TaskFileName(12); got != "tache_12.pdf" {
		t.Fatalf("TaskFileName = %q", got)
	}
	if got := ReportFileName(time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)); got != "rapport_taches_2026-03-04.pdf" {
		t.Fatalf("ReportFileName = %q", got)
	}
}

func newClient(t *testing.T) (*gatewaytest.Server, *gateway.Client) {
	t.Helper()
	srv := gatewaytest.New(t)
	srv.AddOrder(model.CostAllocationOrder{ID: "OI-1", Value: "OI-1"})
	pid := srv.ProfileID(gatewaytest.ChefUsername)
	srv.AddTask(model.WorkOrder{
		ID:                  5,
		Ordre:               &model.CostAllocationOrder{Value: "OI-1"},
		Type:                model.TypeCorrective,
		Status:              model.StatusAssigned,
		Description:         "Fix",
		AssignedToProfileID: &pid,
	})
	return srv, gateway.New(srv.URL, gateway.WithToken(srv.Token(gatewaytest.AdminUsername)))
}

func TestSavePDFs(t *testing.T) {
	_, c := newClient(t)
	dir := t.TempDir()
	ctx := context.Background()

	p, err := SaveReportPDF(ctx, c, Query{OrderValues: []string{"OI-1"}}, dir, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SaveReportPDF: %v", err)
	}
	if filepath.Base(p) != "rapport_taches_2026-03-04.pdf" {
		t.Fatalf("path = %s", p)
	}
	b, _ := os.ReadFile(p)
	if !strings.HasPrefix(string(b), "%PDF") {
		t.Fatalf("not a pdf: %q", b)
	}

	p, err = SaveTaskPDF(ctx, c, 5, dir)
	if err != nil {
		t.Fatalf("SaveTaskPDF: %v", err)
	}
	if filepath.Base(p) != "tache_5.pdf" {
		t.Fatalf("path = %s", p)
	}
}

func TestInvalidQuerySendsNothing(t *testing.T) {
	srv, c := newClient(t)
	_, err := SaveReportPDF(context.Background(), c, Query{}, t.TempDir(), time.Now())
	var inv *InvalidError
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v", err)
	}
	if srv.Calls("GET", "/admin/task-reports/") != 0 {
		t.Fatalf("invalid query reached the server")
	}
	rows, err := List(context.Background(), c, Query{OrderValues: []string{"OI-1"}})
	if err != nil || len(rows) != 1 || rows[0].ID != 5 {
		t.Fatalf("List = %v, %v", rows, err)
	}
}
