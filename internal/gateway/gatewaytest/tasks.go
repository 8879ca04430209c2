package gatewaytest

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gmao-cli/internal/model"
)

const closedAtLayout = "2006-01-02 15:04:05"

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ *account) {
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	username, _ := in["username"].(string)
	password, _ := in["password"].(string)
	a := s.accountByUsername(username)
	if a == nil || a.password != password || !a.active {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Unable to log in with provided credentials."}})
		return
	}
	writeJSON(w, http.StatusOK, model.Session{
		Token:    a.token,
		UserID:   a.userID,
		Username: a.username,
		Name:     a.profile.Name,
		Role:     a.profile.Role,
	})
}

func (s *Server) listTasks(w http.ResponseWriter, _ *http.Request, a *account) {
	out := []model.WorkOrder{}
	for _, rec := range s.tasks {
		if s.canTouchTask(a, rec) {
			out = append(out, s.render(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request, a *account) (*taskRec, bool) {
	id, ok := pathInt(r, "id")
	if !ok {
		notFound(w)
		return nil, false
	}
	rec, ok := s.tasks[id]
	if !ok || !s.canTouchTask(a, rec) {
		notFound(w)
		return nil, false
	}
	return rec, true
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, a *account) {
	rec, ok := s.lookupTask(w, r, a)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.render(rec))
}

func str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func hoursValue(v any) (*model.Hours, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		h := model.Hours(t)
		return &h, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("A valid number is required.")
		}
		h := model.Hours(f)
		return &h, nil
	default:
		return nil, fmt.Errorf("A valid number is required.")
	}
}

func dateValue(v any) (*model.Date, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		d, err := model.ParseDate(t)
		if err != nil {
			return nil, fmt.Errorf("Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("Date has wrong format.")
	}
}

// applyTaskFields writes the writable serializer fields present in `in` onto rec.
func (s *Server) applyTaskFields(rec *taskRec, in map[string]any, errs map[string]any) {
	wo := &rec.wo
	if v, ok := in["ordre_value"]; ok {
		val, _ := str(v)
		if o := s.orderByValue(val); o != nil {
			wo.Ordre = o
		} else {
			errs["ordre_value"] = []string{fmt.Sprintf("Object with value=%s does not exist.", val)}
		}
	}
	if v, ok := in["type"]; ok {
		t, _ := str(v)
		switch model.TaskType(t) {
		case model.TypePreventive, model.TypeCorrective, model.TypeHierarchical:
			wo.Type = model.TaskType(t)
		default:
			errs["type"] = []string{fmt.Sprintf("%q is not a valid choice.", t)}
		}
	}
	if v, ok := in["tasks"]; ok {
		wo.Description, _ = str(v)
	}
	if v, ok := in["epi"]; ok {
		wo.RequiredPPE, _ = str(v)
	}
	if v, ok := in["pdr"]; ok {
		wo.RequiredParts, _ = str(v)
	}
	if v, ok := in["permis_de_travail"].(bool); ok {
		wo.PermitRequired = v
	}
	if v, ok := in["assigned_to_profile_id"]; ok {
		switch t := v.(type) {
		case nil:
			wo.AssignedToProfileID = nil
		case float64:
			id := int(t)
			if a := s.accountByProfile(id); a == nil || a.profile.Role != model.RoleChef {
				errs["assigned_to_profile_id"] = []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)}
			} else {
				wo.AssignedToProfileID = &id
			}
		default:
			errs["assigned_to_profile_id"] = []string{"Incorrect type."}
		}
	}
	if v, ok := in["technicien_ids"]; ok {
		ids := []string{}
		list, _ := v.([]any)
		for _, item := range list {
			id := fmt.Sprint(item)
			if _, known := s.technicians[id]; !known {
				errs["technicien_ids"] = []string{fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", id)}
				continue
			}
			ids = append(ids, id)
		}
		rec.techIDs = ids
	}
	for _, k := range []string{"start_date", "end_date"} {
		v, ok := in[k]
		if !ok {
			continue
		}
		d, err := dateValue(v)
		if err != nil {
			errs[k] = []string{err.Error()}
			continue
		}
		if k == "start_date" {
			wo.StartDate = d
		} else {
			wo.EndDate = d
		}
	}
	if v, ok := in["start_time"]; ok {
		switch t := v.(type) {
		case nil:
			wo.StartTime = nil
		case string:
			if len(t) == 5 {
				t += ":00"
			}
			wo.StartTime = &t
		}
	}
	for _, k := range []string{"hours_of_work", "estimated_hours"} {
		v, ok := in[k]
		if !ok {
			continue
		}
		h, err := hoursValue(v)
		if err != nil {
			errs[k] = []string{err.Error()}
			continue
		}
		if k == "hours_of_work" {
			wo.ReportedOperating = h
		} else {
			wo.EstimatedHours = h
		}
	}
	if wo.StartDate != nil && wo.EndDate != nil && string(*wo.EndDate) < string(*wo.StartDate) {
		errs["end_date"] = "End date cannot be before start date."
	}
}

func (s *Server) syncOrderHours(rec *taskRec, in map[string]any) {
	if _, ok := in["hours_of_work"]; !ok {
		return
	}
	if rec.wo.ReportedOperating == nil || rec.wo.Ordre == nil {
		return
	}
	if o, ok := s.orders[rec.wo.Ordre.ID]; ok {
		o.TotalHours = *rec.wo.ReportedOperating
	}
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request, a *account) {
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	errs := map[string]any{}
	if v, _ := str(in["ordre_value"]); strings.TrimSpace(v) == "" {
		errs["ordre_value"] = []string{"This field is required."}
	}
	rec := &taskRec{wo: model.WorkOrder{Notes: []model.AdvancementNote{}}}
	s.applyTaskFields(rec, in, errs)

	switch a.profile.Role {
	case model.RoleAdmin:
		if rec.wo.AssignedToProfileID == nil {
			errs["assigned_to_profile_id"] = "Admin must assign the task to a Chef de Parc."
		}
		rec.wo.Status = model.StatusAssigned
	case model.RoleChef:
		if rec.wo.Type != model.TypePreventive {
			if len(rec.techIDs) == 0 {
				errs["technicien_ids"] = "At least one technician is required."
			}
			if strings.TrimSpace(rec.wo.RequiredPPE) == "" {
				errs["epi"] = "EPI details are required."
			}
			if strings.TrimSpace(rec.wo.RequiredParts) == "" {
				errs["pdr"] = "PDR details are required."
			}
			if rec.wo.ReportedOperating == nil {
				errs["hours_of_work"] = "New total OI hours are required."
			}
		}
		pid := a.profile.ID
		rec.wo.AssignedToProfileID = &pid
		rec.wo.Status = model.StatusInProgress
	default:
		forbidden(w)
		return
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	rec.wo.ID = s.id()
	rec.wo.CreatedAt = s.Now()
	rec.wo.UpdatedAt = rec.wo.CreatedAt
	s.tasks[rec.wo.ID] = rec
	s.syncOrderHours(rec, in)

	label := fmt.Sprintf("ORDT-%d", rec.wo.ID)
	taskID := rec.wo.ID
	if a.profile.Role == model.RoleAdmin {
		if chef := s.accountByProfile(*rec.wo.AssignedToProfileID); chef != nil {
			nid := s.id()
			s.notifications[nid] = &notifRec{recipient: chef.username, n: model.Notification{
				ID:             model.FlexID(strconv.Itoa(nid)),
				Message:        fmt.Sprintf("Nouveau OT '%s' vous a été assigné par l'Admin.", label),
				Category:       model.CategoryTask,
				TaskRelated:    &taskID,
				TaskIdentifier: label,
				Timestamp:      s.Now(),
			}}
		}
	} else {
		s.notifyRole(model.RoleAdmin, model.Notification{
			Message:        fmt.Sprintf("Nouveau OT '%s' créé par %s est maintenant 'En Cours'.", label, a.profile.Name),
			Category:       model.CategoryTask,
			TaskRelated:    &taskID,
			TaskIdentifier: label,
		})
	}
	writeJSON(w, http.StatusCreated, s.render(rec))
}

func (s *Server) patchTask(w http.ResponseWriter, r *http.Request, a *account) {
	rec, ok := s.lookupTask(w, r, a)
	if !ok {
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	draft := &taskRec{wo: rec.wo, techIDs: append([]string(nil), rec.techIDs...)}
	errs := map[string]any{}
	s.applyTaskFields(draft, in, errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	original := rec.wo.Status
	next := original
	switch a.profile.Role {
	case model.RoleAdmin:
		if v, _ := str(in["status"]); v != "" && model.Status(v) != original {
			switch model.Status(v) {
			case model.StatusAssigned, model.StatusInProgress, model.StatusClosed:
				next = model.Status(v)
			}
		}
	case model.RoleChef:
		switch original {
		case model.StatusAssigned:
			next = model.StatusInProgress
		case model.StatusInProgress:
			if v, _ := str(in["status_update_for_chef"]); v == string(model.StatusClosed) {
				next = model.StatusClosed
			}
		}
	}
	if next != original {
		draft.wo.Status = next
		switch {
		case next == model.StatusClosed:
			draft.wo.ClosedAt = s.Now().Format(closedAtLayout)
		case original == model.StatusClosed:
			draft.wo.ClosedAt = ""
		}
	}
	draft.wo.UpdatedAt = s.Now()
	*rec = *draft
	s.syncOrderHours(rec, in)
	writeJSON(w, http.StatusOK, s.render(rec))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	rec, ok := s.lookupTask(w, r, a)
	if !ok {
		return
	}
	delete(s.tasks, rec.wo.ID)
	// Notes live on the task record; its notifications go with it.
	for id, nr := range s.notifications {
		if nr.n.TaskRelated != nil && *nr.n.TaskRelated == rec.wo.ID {
			delete(s.notifications, id)
		}
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) printTask(w http.ResponseWriter, r *http.Request, a *account) {
	rec, ok := s.lookupTask(w, r, a)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"tache_%d.pdf\"", rec.wo.ID))
	_, _ = fmt.Fprintf(w, "%%PDF-1.4\n%% ORDT-%d\n", rec.wo.ID)
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request, a *account) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Multipart form parse error - " + err.Error()})
		return
	}
	taskID, err := strconv.Atoi(r.FormValue("task"))
	rec, ok := s.tasks[taskID]
	if err != nil || !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"task": []string{fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", r.FormValue("task"))}})
		return
	}
	if a.profile.Role == model.RoleChef && !s.canTouchTask(a, rec) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You can only add notes to tasks assigned to you."})
		return
	}
	date, err := model.ParseDate(r.FormValue("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"date": []string{"Date has wrong format."}})
		return
	}
	note := model.AdvancementNote{
		ID:             s.id(),
		TaskID:         taskID,
		Date:           date,
		Text:           r.FormValue("note"),
		Images:         []model.NoteImage{},
		AuthorUsername: a.username,
		CreatedAt:      s.Now(),
	}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["image"] {
			note.Images = append(note.Images, model.NoteImage{
				ID:         s.id(),
				URL:        "/media/advancement_notes/" + filepath.Base(fh.Filename),
				UploadedAt: s.Now(),
			})
		}
	}
	rec.wo.Notes = append(rec.wo.Notes, note)
	note.TaskDisplayID = fmt.Sprintf("ORDT-%d", taskID)
	writeJSON(w, http.StatusCreated, note)
}
