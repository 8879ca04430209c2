package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestWorkOrder_DecodesDecimalStringsAndNumbers(t *testing.T) {
	raw := `{"id": 12, "status": "in progress", "type": "preventif", "tasks": "Check oil",
		"hours_of_work": "1500.50", "estimated_hours": 2, "ordre": {"id_ordre": "1", "value": "OI-42", "total_hours_of_work": "1500.50"},
		"advancement_notes": [{"id": 3, "task": 12, "date": "2024-05-01", "note": "ok", "images": null}]}`
	var w WorkOrder
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.ReportedOperating == nil || float64(*w.ReportedOperating) != 1500.5 {
		t.Fatalf("hours_of_work: got %v", w.ReportedOperating)
	}
	if w.EstimatedHours == nil || float64(*w.EstimatedHours) != 2 {
		t.Fatalf("estimated_hours: got %v", w.EstimatedHours)
	}
	if w.Ordre == nil || float64(w.Ordre.TotalHours) != 1500.5 {
		t.Fatalf("ordre hours: got %+v", w.Ordre)
	}
	w.Normalize()
	if w.DisplayID != "ORDT-12" {
		t.Fatalf("display id: got %q", w.DisplayID)
	}
	if w.Notes[0].TaskDisplayID != "ORDT-12" || w.Notes[0].Images == nil {
		t.Fatalf("note not normalized: %+v", w.Notes[0])
	}
	if err := Check(&w); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestCheck_RejectsUnknownStatus(t *testing.T) {
	list := []WorkOrder{
		{ID: 1, Status: StatusAssigned},
		{ID: 2, Status: "archived"},
	}
	err := Check(list)
	var rerr RecordError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RecordError, got %v", err)
	}
	if rerr.Index != 1 {
		t.Fatalf("expected index 1, got %d (%v)", rerr.Index, rerr)
	}
}

func TestCheck_RejectsMissingIdentity(t *testing.T) {
	if err := Check(CostAllocationOrder{Value: "OI-1"}); err == nil {
		t.Fatalf("expected missing id_ordre to be rejected")
	}
	if err := Check(Session{Token: "t", Username: "u", Role: "Visitor"}); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
	if err := Check(Session{Token: "t", Username: "u", Role: RoleChef}); err != nil {
		t.Fatalf("valid session rejected: %v", err)
	}
}

func TestFlexID_AcceptsNumbersAndStrings(t *testing.T) {
	var ns []Notification
	raw := `[{"id": 7, "notification_category": "TASK"}, {"id": "local-abc", "notification_category": "GENERAL"}]`
	if err := json.Unmarshal([]byte(raw), &ns); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ns[0].ID != "7" || ns[0].IsLocal() {
		t.Fatalf("numeric id: %+v", ns[0])
	}
	if !ns[1].IsLocal() {
		t.Fatalf("expected local id")
	}
	b, _ := json.Marshal(ns[0].ID)
	if string(b) != "7" {
		t.Fatalf("numeric id should marshal as number, got %s", b)
	}
}

func TestNotification_RelatedIDPerCategory(t *testing.T) {
	task := 77
	oi := " OI-9 "
	cases := []struct {
		cat  Category
		want string
	}{
		{CategoryCycleVisit, "OI-9"},
		{CategoryChecklist, "OI-9"},
		{CategoryTask, "77"},
		{CategoryGeneral, "77"},
	}
	for _, tc := range cases {
		n := Notification{Category: tc.cat, TaskRelated: &task, OrdreRelated: &oi}
		if got := n.RelatedID(); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.cat, got, tc.want)
		}
	}
}

func TestParseHours(t *testing.T) {
	h, err := ParseHours(" 12,5 ")
	if err != nil || h == nil || float64(*h) != 12.5 {
		t.Fatalf("got %v %v", h, err)
	}
	h, err = ParseHours("")
	if err != nil || h != nil {
		t.Fatalf("empty should be nil: %v %v", h, err)
	}
	for _, bad := range []string{"abc", "NaN", "nan", "Inf", "+Inf", "-inf", "Infinity"} {
		if _, err := ParseHours(bad); err == nil {
			t.Fatalf("ParseHours(%q) accepted", bad)
		}
	}
	var dec Hours
	if err := dec.UnmarshalJSON([]byte(`"NaN"`)); err == nil {
		t.Fatalf("decoded NaN hours")
	}
}

func TestNewUserForm_Validate(t *testing.T) {
	f := NewUserForm{Username: " bob ", Email: "bob-at-example", Password: "short", ConfirmPassword: "other", ProfileName: "Bob", ProfileRole: RoleChef}
	errs := f.Validate()
	for _, k := range []string{"email", "password", "confirm_password"} {
		if _, ok := errs[k]; !ok {
			t.Fatalf("expected error on %s, got %v", k, errs)
		}
	}
	if _, ok := errs["username"]; ok {
		t.Fatalf("username should be valid: %v", errs)
	}

	ok := NewUserForm{Username: "bob", Email: "bob@example.com", Password: "longenough", ConfirmPassword: "longenough", ProfileName: "Bob", ProfileRole: RoleAdmin}
	if errs := ok.Validate(); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestTemplateForm_TriggerHoursMustBePositive(t *testing.T) {
	f := TemplateForm{Title: "Vidange", Description: "Huile", TriggerHours: 0, OrdreID: "1"}
	if errs := f.Validate(); errs["trigger_hours"] == "" {
		t.Fatalf("expected trigger_hours error, got %v", errs)
	}
	f.TriggerHours = 250
	if errs := f.Validate(); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestOrderForm_IDRequiredOnCreateOnly(t *testing.T) {
	f := OrderForm{Value: "OI-1"}
	if errs := f.Validate(true); errs["id_ordre"] == "" {
		t.Fatalf("expected id_ordre error on create: %v", errs)
	}
	if errs := f.Validate(false); errs != nil {
		t.Fatalf("unexpected errors on update: %v", errs)
	}
}
