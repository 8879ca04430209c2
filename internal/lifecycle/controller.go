package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/model"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotPermitted         = errors.New("not permitted")
	ErrConfirmationRequired = errors.New("confirmation required")
)

const (
	defaultNoteWithChanges = "Details updated."
	defaultNoteOnly        = "Note added."
)

// API is the slice of the gateway the controller drives.
type API interface {
	CreateTask(ctx context.Context, payload map[string]any) (model.WorkOrder, error)
	GetTask(ctx context.Context, id int) (model.WorkOrder, error)
	UpdateTask(ctx context.Context, id int, patch map[string]any) (model.WorkOrder, error)
	DeleteTask(ctx context.Context, id int) error
	AppendNote(ctx context.Context, n gateway.NoteUpload) (model.AdvancementNote, error)
}

// Outcome classifies what a Save did.
type Outcome int

const (
	Unchanged Outcome = iota
	Updated
	UpdatedButNoteFailed
	Invalid
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case UpdatedButNoteFailed:
		return "updated_but_note_failed"
	case Invalid:
		return "invalid"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SaveResult reports what a save did. Task is the re-fetched record whenever something
// was written, or the PATCH response when the re-fetch failed. Err is set on Updated only
// when that re-fetch failed.
type SaveResult struct {
	Outcome Outcome
	Task    model.WorkOrder
	Fields  FieldErrors
	Err     error
}

type Controller struct {
	API API
	Now func() time.Time
	Log logrus.FieldLogger
}

// NewController returns a Controller over api. A nil log discards output.
func NewController(api API, log logrus.FieldLogger) *Controller {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Controller{API: api, Now: time.Now, Log: log}
}

// Save validates draft, sends the PATCH when there is something to send, then appends
// the staged note. A note failure does not undo the PATCH.
func (c *Controller) Save(ctx context.Context, actor model.Session, wo model.WorkOrder, draft Draft) SaveResult {
	if fe := Validate(actor, wo, draft); fe != nil {
		return SaveResult{Outcome: Invalid, Task: wo, Fields: fe}
	}
	acc := AccessFor(actor, wo)
	if draft.HasNote() && !acc.Notes {
		return SaveResult{Outcome: Invalid, Task: wo, Fields: FieldErrors{"note": "You cannot add notes to this task."}}
	}

	original, ok := draft.Original()
	if !ok {
		original = Draft{Status: wo.Status}
	}
	upd := BuildUpdate(actor, wo, original, draft)
	if upd.Empty() && !draft.HasNote() {
		return SaveResult{Outcome: Unchanged, Task: wo}
	}

	log := c.Log.WithFields(logrus.Fields{"task": wo.ID, "actor": actor.Username})
	changed := !upd.Empty()
	var patched *model.WorkOrder
	if changed {
		patch := upd.Patch
		if patch == nil {
			patch = map[string]any{}
		}
		got, err := c.API.UpdateTask(ctx, wo.ID, patch)
		if err != nil {
			log.WithError(err).Warn("task update failed")
			return SaveResult{Outcome: Failed, Task: wo, Fields: FieldErrors(nil).Merge(gateway.FieldsOf(err)), Err: err}
		}
		patched = &got
		log.WithField("fields", len(patch)).Info("task updated")
	}

	var noteErr error
	if draft.HasNote() {
		text := strings.TrimSpace(draft.Note)
		if text == "" {
			text = defaultNoteOnly
			if changed {
				text = defaultNoteWithChanges
			}
		}
		_, noteErr = c.API.AppendNote(ctx, gateway.NoteUpload{
			TaskID: wo.ID,
			Date:   model.DateOf(c.now()),
			Text:   text,
			Images: draft.Images,
		})
		if noteErr != nil {
			log.WithError(noteErr).Warn("note append failed")
			if !changed {
				return SaveResult{Outcome: Failed, Task: wo, Fields: FieldErrors(nil).Merge(gateway.FieldsOf(noteErr)), Err: noteErr}
			}
		}
	}

	var reloadErr error
	fresh, err := c.API.GetTask(ctx, wo.ID)
	if err != nil {
		log.WithError(err).Warn("refetch after save failed")
		reloadErr = fmt.Errorf("saved, but reloading %s failed: %w", wo.Label(), err)
		fresh = wo
		if patched != nil {
			fresh = *patched
		}
	}
	if noteErr != nil {
		return SaveResult{Outcome: UpdatedButNoteFailed, Task: fresh, Err: errors.Join(fmt.Errorf("fields saved, note not added: %w", noteErr), reloadErr)}
	}
	return SaveResult{Outcome: Updated, Task: fresh, Err: reloadErr}
}

// Create validates and posts a new task.
func (c *Controller) Create(ctx context.Context, actor model.Session, t NewTask) (model.WorkOrder, FieldErrors, error) {
	body, fe := BuildCreate(actor, t)
	if fe != nil {
		return model.WorkOrder{}, fe, fe
	}
	wo, err := c.API.CreateTask(ctx, body)
	if err != nil {
		fe := FieldErrors(nil).Merge(gateway.FieldsOf(err))
		return model.WorkOrder{}, fe, err
	}
	c.Log.WithFields(logrus.Fields{"task": wo.ID, "actor": actor.Username, "status": wo.Status}).Info("task created")
	return wo, nil, nil
}

// Delete removes a task with its notes and images. Only an Admin may delete, never a
// closed task, and only with confirm set.
func (c *Controller) Delete(ctx context.Context, actor model.Session, wo model.WorkOrder, confirm bool) error {
	if !AccessFor(actor, wo).Delete {
		if wo.Status == model.StatusClosed && actor.IsAdmin() {
			return fmt.Errorf("delete %s: closed tasks cannot be deleted: %w", wo.Label(), ErrNotPermitted)
		}
		return fmt.Errorf("delete %s: %w", wo.Label(), ErrNotPermitted)
	}
	if !confirm {
		return fmt.Errorf("delete %s is irreversible: %w", wo.Label(), ErrConfirmationRequired)
	}
	if err := c.API.DeleteTask(ctx, wo.ID); err != nil {
		return err
	}
	c.Log.WithFields(logrus.Fields{"task": wo.ID, "actor": actor.Username}).Info("task deleted")
	return nil
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
