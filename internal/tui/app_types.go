package tui

import (
	"gmao-cli/internal/appstate"
	"gmao-cli/internal/gateway"
	"gmao-cli/internal/lifecycle"
	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"
)

type screen int

const (
	screenLogin screen = iota
	screenTasks
	screenDetail
	screenNotifications
	screenChecklist
	screenCycleVisit
)

func (s screen) view() appstate.View {
	switch s {
	case screenNotifications, screenChecklist, screenCycleVisit:
		return appstate.ViewNotifications
	default:
		return appstate.ViewTasks
	}
}

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirmDelete
	modalConfirmLogout
	modalInfo
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

// Results of background commands. Those tied to the detail flow carry its generation
// and are dropped once the flow is closed.

type loginDoneMsg struct {
	sess model.Session
	err  error
}

type logoutDoneMsg struct{ err error }

type snapshotMsg struct {
	tickets appstate.SnapshotTickets
	snap    *gateway.Snapshot
}

type taskLoadedMsg struct {
	gen  uint64
	task model.WorkOrder
	err  error
}

type savedMsg struct {
	gen uint64
	res lifecycle.SaveResult
}

type deletedMsg struct {
	gen  uint64
	task model.WorkOrder
	err  error
}

type printedMsg struct {
	path string
	err  error
}

type openedMsg struct {
	act notify.Action
	err error
}

type markedMsg struct{ err error }

type cycleVisitMsg struct {
	order  model.CostAllocationOrder
	fields map[string]string
	err    error
}

type checklistMsg struct {
	task model.WorkOrder
	err  error
}

type filterSavedMsg struct{ err error }
