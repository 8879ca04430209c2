package lifecycle

import (
	"reflect"
	"testing"

	"gmao-cli/internal/model"
)

var (
	admin = model.Session{Token: "t", Username: "admin", Name: "Alice Admin", Role: model.RoleAdmin}
	chef  = model.Session{Token: "t", Username: "chef", Name: "Bruno Chef", Role: model.RoleChef}
	other = model.Session{Token: "t", Username: "chef2", Name: "Chloe Chef", Role: model.RoleChef}
)

func orderOf(status model.Status, assignee string) model.WorkOrder {
	return model.WorkOrder{ID: 12, Status: status, AssignedToName: assignee}
}

func TestAccessFor(t *testing.T) {
	tests := []struct {
		name       string
		actor      model.Session
		wo         model.WorkOrder
		core, mgmt bool
	}{
		{"admin open", admin, orderOf(model.StatusAssigned, "Bruno Chef"), true, true},
		{"admin in progress", admin, orderOf(model.StatusInProgress, "Bruno Chef"), true, true},
		{"admin closed", admin, orderOf(model.StatusClosed, "Bruno Chef"), false, false},
		{"assignee assigned", chef, orderOf(model.StatusAssigned, " Bruno Chef "), false, true},
		{"assignee in progress", chef, orderOf(model.StatusInProgress, "Bruno Chef"), false, true},
		{"assignee closed", chef, orderOf(model.StatusClosed, "Bruno Chef"), false, false},
		{"other chef", other, orderOf(model.StatusInProgress, "Bruno Chef"), false, false},
		{"other chef closed", other, orderOf(model.StatusClosed, "Bruno Chef"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AccessFor(tt.actor, tt.wo)
			if got.Core != tt.core || got.Management != tt.mgmt {
				t.Fatalf("core=%v management=%v; want %v %v", got.Core, got.Management, tt.core, tt.mgmt)
			}
		})
	}
}

func TestClosedIsReadOnlyForNonAdmins(t *testing.T) {
	for _, actor := range []model.Session{chef, other} {
		for _, assignee := range []string{"Bruno Chef", "Chloe Chef", ""} {
			acc := AccessFor(actor, orderOf(model.StatusClosed, assignee))
			if !acc.ReadOnly() {
				t.Fatalf("%s on closed task assigned to %q: expected read-only", actor.Username, assignee)
			}
			if len(acc.Statuses) != 0 {
				t.Fatalf("%s on closed task: expected no transitions; got %v", actor.Username, acc.Statuses)
			}
		}
	}
	if !AccessFor(chef, orderOf(model.StatusClosed, "Bruno Chef")).Notes {
		t.Fatalf("assignee should still add notes on a closed task")
	}
}

func TestAllowedTransitions(t *testing.T) {
	tests := []struct {
		name  string
		actor model.Session
		wo    model.WorkOrder
		want  []model.Status
	}{
		{"admin assigned", admin, orderOf(model.StatusAssigned, ""), []model.Status{model.StatusInProgress, model.StatusClosed}},
		{"admin closed reopen", admin, orderOf(model.StatusClosed, ""), []model.Status{model.StatusAssigned, model.StatusInProgress}},
		{"chef assigned", chef, orderOf(model.StatusAssigned, "Bruno Chef"), nil},
		{"chef in progress", chef, orderOf(model.StatusInProgress, "Bruno Chef"), []model.Status{model.StatusClosed}},
		{"other chef in progress", other, orderOf(model.StatusInProgress, "Bruno Chef"), nil},
		{"loading placeholder", admin, orderOf(model.StatusLoading, ""), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AllowedTransitions(tt.actor, tt.wo)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v; want %v", got, tt.want)
			}
		})
	}
}

func completeChefDraft() Draft {
	return Draft{
		Status:         model.StatusAssigned,
		TechnicianIDs:  []string{"T1"},
		PPE:            "Gloves",
		Parts:          "Filter",
		OperatingHours: "1500.5",
		EstimatedHours: "2",
	}
}

func TestValidateFirstChefSubmission(t *testing.T) {
	wo := orderOf(model.StatusAssigned, "Bruno Chef")
	if fe := Validate(chef, wo, completeChefDraft()); fe != nil {
		t.Fatalf("complete draft rejected: %v", fe)
	}

	tests := []struct {
		field  string
		mutate func(*Draft)
	}{
		{"technicien_ids", func(d *Draft) { d.TechnicianIDs = nil }},
		{"epi", func(d *Draft) { d.PPE = "  " }},
		{"pdr", func(d *Draft) { d.Parts = "" }},
		{"hours_of_work", func(d *Draft) { d.OperatingHours = "" }},
		{"hours_of_work", func(d *Draft) { d.OperatingHours = "0" }},
		{"hours_of_work", func(d *Draft) { d.OperatingHours = "abc" }},
		{"hours_of_work", func(d *Draft) { d.OperatingHours = "NaN" }},
		{"hours_of_work", func(d *Draft) { d.OperatingHours = "+Inf" }},
		{"estimated_hours", func(d *Draft) { d.EstimatedHours = "Inf" }},
		{"estimated_hours", func(d *Draft) { d.EstimatedHours = "nan" }},
		{"estimated_hours", func(d *Draft) { d.EstimatedHours = "" }},
		{"estimated_hours", func(d *Draft) { d.EstimatedHours = "-1" }},
		{"start_time", func(d *Draft) { d.StartDate = "2026-03-01" }},
	}
	for _, tt := range tests {
		d := completeChefDraft()
		tt.mutate(&d)
		fe := Validate(chef, wo, d)
		if len(fe) != 1 {
			t.Fatalf("%s: expected exactly one error; got %v", tt.field, fe)
		}
		if _, ok := fe[tt.field]; !ok {
			t.Fatalf("expected error on %s; got %v", tt.field, fe)
		}
	}
}

func TestValidateInProgressHoursOptional(t *testing.T) {
	wo := orderOf(model.StatusInProgress, "Bruno Chef")
	if fe := Validate(chef, wo, Draft{Status: model.StatusInProgress}); fe != nil {
		t.Fatalf("empty hours should pass in progress: %v", fe)
	}
	fe := Validate(chef, wo, Draft{Status: model.StatusInProgress, OperatingHours: "0"})
	if _, ok := fe["hours_of_work"]; !ok {
		t.Fatalf("expected hours_of_work error; got %v", fe)
	}
	fe = Validate(admin, wo, Draft{Status: model.StatusInProgress, OperatingHours: "-3"})
	if _, ok := fe["hours_of_work"]; !ok {
		t.Fatalf("admin: expected hours_of_work error; got %v", fe)
	}
}

func TestValidateDateOrder(t *testing.T) {
	wo := orderOf(model.StatusAssigned, "Bruno Chef")
	pairs := [][2]string{
		{"2026-03-10", "2026-03-09"},
		{"2026-03-10", "2025-12-31"},
		{"2026-01-01", "2025-01-01"},
	}
	for _, p := range pairs {
		d := Draft{Status: wo.Status, StartDate: p[0], EndDate: p[1], StartTime: "08:00"}
		fe := Validate(admin, wo, d)
		if fe["end_date"] != msgEndBeforeStart {
			t.Fatalf("%v: expected end_date error; got %v", p, fe)
		}
		d.StartDate, d.EndDate = p[1], p[0]
		if fe := Validate(admin, wo, d); fe != nil {
			t.Fatalf("%v swapped: expected no error; got %v", p, fe)
		}
	}
	d := Draft{Status: wo.Status, StartDate: "2026-03-10", EndDate: "2026-03-10"}
	if fe := Validate(admin, wo, d); fe != nil {
		t.Fatalf("same day should pass: %v", fe)
	}
}

func TestValidateRejectsIllegalStatus(t *testing.T) {
	wo := orderOf(model.StatusAssigned, "Bruno Chef")
	d := completeChefDraft()
	d.Status = model.StatusClosed
	if fe := Validate(chef, wo, d); fe["status"] == "" {
		t.Fatalf("chef cannot close an assigned task; got %v", fe)
	}
}

func TestBuildUpdateAdminReopen(t *testing.T) {
	wo := orderOf(model.StatusClosed, "Bruno Chef")
	orig := NewDraft(wo, nil, nil)
	d := orig
	d.Status = model.StatusAssigned
	upd := BuildUpdate(admin, wo, orig, d)
	want := map[string]any{"status": "assigned"}
	if !reflect.DeepEqual(upd.Patch, want) {
		t.Fatalf("patch = %#v; want %#v", upd.Patch, want)
	}
}

func TestBuildUpdateAdminDiff(t *testing.T) {
	start := model.Date("2026-02-01")
	hours := model.Hours(1200)
	pid := 2
	wo := model.WorkOrder{
		ID:                  5,
		Status:              model.StatusAssigned,
		Ordre:               &model.CostAllocationOrder{ID: "OI-1", Value: "CAT-320"},
		Type:                model.TypeCorrective,
		Description:         "Fix",
		AssignedToName:      "Bruno Chef",
		AssignedToProfileID: &pid,
		StartDate:           &start,
		ReportedOperating:   &hours,
		TechnicianNames:     []string{"Sofia", "Karim"},
	}
	techs := []model.Technician{{ID: "T1", Name: "Karim"}, {ID: "T2", Name: "Sofia"}}
	orig := NewDraft(wo, techs, nil)

	if upd := BuildUpdate(admin, wo, orig, orig); !upd.Empty() {
		t.Fatalf("no edits should give empty update; got %#v", upd.Patch)
	}

	d := orig
	d.TechnicianIDs = []string{"T1", "T2"} // same set, different order
	d.OperatingHours = "1200.0"
	d.StartTime = "07:30"
	d.EndDate = "2026-02-03"
	d.AssigneeID = nil
	upd := BuildUpdate(admin, wo, orig, d)
	want := map[string]any{
		"start_time":             "07:30:00",
		"end_date":               "2026-02-03",
		"assigned_to_profile_id": nil,
	}
	if !reflect.DeepEqual(upd.Patch, want) {
		t.Fatalf("patch = %#v; want %#v", upd.Patch, want)
	}
}

func TestBuildUpdateChefFirstSubmissionIsForced(t *testing.T) {
	wo := orderOf(model.StatusAssigned, "Bruno Chef")
	orig := NewDraft(wo, nil, nil)
	d := orig
	d.TechnicianIDs = []string{"T1"}
	d.PPE = "Gloves"
	d.Parts = "Filter"
	d.OperatingHours = "1500,5"
	d.EstimatedHours = "2"
	d.Description = "ignored: chefs cannot edit core fields"

	upd := BuildUpdate(chef, wo, orig, d)
	if !upd.Forced {
		t.Fatalf("expected forced update")
	}
	want := map[string]any{
		"technicien_ids":  []string{"T1"},
		"epi":             "Gloves",
		"pdr":             "Filter",
		"hours_of_work":   1500.5,
		"estimated_hours": 2.0,
	}
	if !reflect.DeepEqual(upd.Patch, want) {
		t.Fatalf("patch = %#v; want %#v", upd.Patch, want)
	}
}

func TestBuildUpdateChefClose(t *testing.T) {
	wo := orderOf(model.StatusInProgress, "Bruno Chef")
	orig := NewDraft(wo, nil, nil)
	d := orig
	d.Status = model.StatusClosed
	upd := BuildUpdate(chef, wo, orig, d)
	want := map[string]any{"status_update_for_chef": "closed"}
	if !reflect.DeepEqual(upd.Patch, want) {
		t.Fatalf("patch = %#v; want %#v", upd.Patch, want)
	}
}

func TestBuildCreate(t *testing.T) {
	task := NewTask{
		OrdreValue:     "OI-42",
		Type:           model.TypePreventive,
		Description:    "Check oil",
		TechnicianIDs:  []string{"T1"},
		PPE:            "Gloves",
		Parts:          "Filter",
		OperatingHours: "1500.5",
		EstimatedHours: "2",
	}
	body, fe := BuildCreate(chef, task)
	if fe != nil {
		t.Fatalf("unexpected errors: %v", fe)
	}
	if body["hours_of_work"] != 1500.5 || body["estimated_hours"] != 2.0 {
		t.Fatalf("hours not rendered as numbers: %#v", body)
	}
	if _, ok := body["assigned_to_profile_id"]; ok {
		t.Fatalf("chef create must not send an assignee")
	}

	if _, fe := BuildCreate(admin, task); fe["assigned_to_profile_id"] == "" {
		t.Fatalf("admin create without assignee should fail; got %v", fe)
	}
	task.StartDate = "2026-04-02"
	if _, fe := BuildCreate(chef, task); fe["start_time"] == "" {
		t.Fatalf("start date without time should fail; got %v", fe)
	}
}
