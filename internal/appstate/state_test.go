package appstate

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/model"
)

func TestCacheDropsStaleResponses(t *testing.T) {
	var c Cache[int]
	slow := c.Begin()
	fast := c.Begin()

	if !c.Apply(fast, []int{2}, nil) {
		t.Fatalf("fresh response rejected")
	}
	if c.Apply(slow, []int{1}, nil) {
		t.Fatalf("stale response applied")
	}
	if got := c.Items(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("items = %v; want [2]", got)
	}
}

func TestCacheFailedRefreshKeepsItems(t *testing.T) {
	var c Cache[string]
	c.Apply(c.Begin(), []string{"a"}, nil)
	boom := errors.New("boom")
	c.Apply(c.Begin(), nil, boom)
	if got := c.Items(); len(got) != 1 {
		t.Fatalf("items = %v", got)
	}
	if !errors.Is(c.Err(), boom) {
		t.Fatalf("err = %v", c.Err())
	}
}

func TestResetDiscardsInFlight(t *testing.T) {
	s := New()
	s.SetSession(model.Session{Token: "x", Username: "chef", Role: model.RoleChef})
	s.SetStatusFilter(model.StatusClosed)
	tk := s.Tasks.Begin()
	gen := s.OpenFlow("detail")

	s.Reset()

	if _, ok := s.Session(); ok {
		t.Fatalf("session survived reset")
	}
	if s.StatusFilter() != "" {
		t.Fatalf("filter survived reset")
	}
	if s.Tasks.Apply(tk, []model.WorkOrder{{ID: 1}}, nil) {
		t.Fatalf("pre-reset response applied")
	}
	if s.Current("detail", gen) {
		t.Fatalf("pre-reset flow still current")
	}
	if !s.Tasks.Apply(s.Tasks.Begin(), []model.WorkOrder{{ID: 2}}, nil) {
		t.Fatalf("post-reset response rejected")
	}
}

func TestFlowGenerations(t *testing.T) {
	s := New()
	g1 := s.OpenFlow("checklist")
	if !s.Current("checklist", g1) {
		t.Fatalf("new flow not current")
	}
	s.CloseFlow("checklist")
	if s.Current("checklist", g1) {
		t.Fatalf("closed flow still current")
	}
	g2 := s.OpenFlow("checklist")
	if g2 == g1 || !s.Current("checklist", g2) {
		t.Fatalf("reopened flow not current")
	}
}

func TestApplySnapshotKeepsFailedLists(t *testing.T) {
	s := New()
	s.Technicians.Apply(s.Technicians.Begin(), []model.Technician{{ID: "T1"}}, nil)
	tk := s.BeginSnapshot(false)
	s.ApplySnapshot(tk, &gateway.Snapshot{
		Tasks: []model.WorkOrder{{ID: 3, Status: model.StatusAssigned}},
		Errs:  map[string]error{"technicians": &gateway.Error{Kind: gateway.KindNetwork}},
	})
	if len(s.Tasks.Items()) != 1 {
		t.Fatalf("tasks not applied")
	}
	if len(s.Technicians.Items()) != 1 || s.Technicians.Err() == nil {
		t.Fatalf("technicians should keep old items and record the error")
	}
}

func TestBannerFor(t *testing.T) {
	tests := []struct {
		err     error
		level   Level
		relogin bool
	}{
		{&gateway.Error{Kind: gateway.KindPermission, Message: "Invalid token."}, LevelError, true},
		{fmt.Errorf("save: %w", &gateway.Error{Kind: gateway.KindNetwork, Endpoint: "/tasks/"}), LevelError, false},
		{&gateway.Error{Kind: gateway.KindNotFound, Message: "Not found."}, LevelWarn, false},
		{errors.New("permission wording in a plain error"), LevelError, false},
	}
	for _, tt := range tests {
		b := BannerFor(tt.err)
		if b.Level != tt.level || b.Relogin != tt.relogin {
			t.Fatalf("%v: got %+v", tt.err, b)
		}
	}
	if b := BannerFor(fmt.Errorf("x: %w", &gateway.Error{Kind: gateway.KindNetwork, Endpoint: "/tasks/"})); !strings.Contains(b.Text, "/tasks/") {
		t.Fatalf("network banner should name the endpoint: %q", b.Text)
	}
	if !BannerFor(nil).Empty() {
		t.Fatalf("nil error should give no banner")
	}
}
