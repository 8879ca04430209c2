package gatewaytest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"gmao-cli/internal/model"
)

// ---- technicians ----

func (s *Server) listTechnicians(w http.ResponseWriter, _ *http.Request, _ *account) {
	out := make([]model.Technician, 0, len(s.technicians))
	for _, t := range s.technicians {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTechnician(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	id, _ := str(in["id_technician"])
	name, _ := str(in["name"])
	errs := map[string]any{}
	if strings.TrimSpace(id) == "" {
		errs["id_technician"] = []string{"This field is required."}
	} else if _, dup := s.technicians[id]; dup {
		errs["id_technician"] = []string{"technician with this id technician already exists."}
	}
	if strings.TrimSpace(name) == "" {
		errs["name"] = []string{"This field may not be blank."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	t := model.Technician{ID: id, Name: name}
	s.technicians[id] = t
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) putTechnician(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	id := pathString(r, "id")
	t, ok := s.technicians[id]
	if !ok {
		notFound(w)
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	name, _ := str(in["name"])
	if strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"name": []string{"This field may not be blank."}})
		return
	}
	t.Name = name
	s.technicians[id] = t
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTechnician(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	id := pathString(r, "id")
	if _, ok := s.technicians[id]; !ok {
		notFound(w)
		return
	}
	delete(s.technicians, id)
	for _, rec := range s.tasks {
		kept := rec.techIDs[:0]
		for _, tid := range rec.techIDs {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		rec.techIDs = kept
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ---- cost allocation orders ----

func (s *Server) listOrders(w http.ResponseWriter, _ *http.Request, _ *account) {
	out := make([]model.CostAllocationOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookupOrder(w http.ResponseWriter, r *http.Request) (*model.CostAllocationOrder, bool) {
	o, ok := s.orders[pathString(r, "id")]
	if !ok {
		notFound(w)
		return nil, false
	}
	return o, true
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request, _ *account) {
	if o, ok := s.lookupOrder(w, r); ok {
		writeJSON(w, http.StatusOK, o)
	}
}

func (s *Server) orderFields(o *model.CostAllocationOrder, in map[string]any, errs map[string]any) {
	if v, ok := in["value"]; ok {
		val, _ := str(v)
		val = strings.TrimSpace(val)
		switch {
		case val == "":
			errs["value"] = []string{"This field may not be blank."}
		default:
			if other := s.orderByValue(val); other != nil && other.ID != o.ID {
				errs["value"] = []string{"ordre imputation with this value already exists."}
			} else {
				o.Value = val
			}
		}
	}
	if v, ok := in["date_prochain_cycle_visite"]; ok {
		d, err := dateValue(v)
		if err != nil {
			errs["date_prochain_cycle_visite"] = []string{err.Error()}
		} else {
			o.NextCycleVisit = d
		}
	}
	if v, ok := in["total_hours_of_work"]; ok {
		h, err := hoursValue(v)
		switch {
		case err != nil:
			errs["total_hours_of_work"] = []string{err.Error()}
		case h == nil || *h < 0:
			errs["total_hours_of_work"] = []string{"Ensure this value is greater than or equal to 0."}
		default:
			o.TotalHours = *h
		}
	}
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	id, _ := str(in["id_ordre"])
	id = strings.TrimSpace(id)
	errs := map[string]any{}
	if id == "" {
		errs["id_ordre"] = []string{"This field is required."}
	} else if _, dup := s.orders[id]; dup {
		errs["id_ordre"] = []string{"ordre imputation with this id ordre already exists."}
	}
	if _, ok := in["value"]; !ok {
		errs["value"] = []string{"This field is required."}
	}
	o := &model.CostAllocationOrder{ID: id}
	s.orderFields(o, in, errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	s.orders[id] = o
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) putOrder(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	o, ok := s.lookupOrder(w, r)
	if !ok {
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	errs := map[string]any{}
	if _, ok := in["value"]; !ok {
		errs["value"] = []string{"This field is required."}
	}
	draft := *o
	s.orderFields(&draft, in, errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	*o = draft
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) patchOrder(w http.ResponseWriter, r *http.Request, a *account) {
	o, ok := s.lookupOrder(w, r)
	if !ok {
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	if a.profile.Role == model.RoleChef {
		for k := range in {
			if k != "total_hours_of_work" {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "As a Chef de Parc, you can only update the 'total_hours_of_work' field."})
				return
			}
		}
	}
	errs := map[string]any{}
	draft := *o
	s.orderFields(&draft, in, errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	*o = draft
	if _, ok := in["total_hours_of_work"]; ok {
		s.triggerPreventive(o)
	}
	writeJSON(w, http.StatusOK, o)
}

// triggerPreventive warns chefs once per crossed template threshold with a bullet
// checklist built from the matching templates.
func (s *Server) triggerPreventive(o *model.CostAllocationOrder) {
	last := 0
	if o.LastNotifiedHoursAt != nil {
		last = *o.LastNotifiedHoursAt
	}
	var due []model.PreventiveTemplate
	highest := last
	for _, t := range s.templates {
		if t.OrdreID != o.ID || t.TriggerHours <= last || float64(o.TotalHours) < float64(t.TriggerHours) {
			continue
		}
		due = append(due, t)
		if t.TriggerHours > highest {
			highest = t.TriggerHours
		}
	}
	if len(due) == 0 {
		return
	}
	sort.Slice(due, func(i, j int) bool { return due[i].TriggerHours < due[j].TriggerHours })
	var b strings.Builder
	fmt.Fprintf(&b, "Maintenance préventive requise pour l'OI '%s' (%d heures).\n", o.Value, highest)
	for _, t := range due {
		fmt.Fprintf(&b, "- %s\n", t.Description)
	}
	o.LastNotifiedHoursAt = &highest
	id := o.ID
	s.notifyRole(model.RoleChef, model.Notification{
		Message:      strings.TrimRight(b.String(), "\n"),
		Category:     model.CategoryChecklist,
		OrdreRelated: &id,
		OrdreValue:   o.Value,
	})
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	o, ok := s.lookupOrder(w, r)
	if !ok {
		return
	}
	for _, rec := range s.tasks {
		if rec.wo.Ordre != nil && rec.wo.Ordre.ID == o.ID {
			rec.wo.Ordre = nil
		}
	}
	delete(s.orders, o.ID)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) cycleVisit(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleChef {
		forbidden(w)
		return
	}
	o, ok := s.orders[pathString(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ordre d'Imputation non trouvé."})
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	errs := map[string]any{}
	accepted, isBool := in["visite_acceptee"].(bool)
	if !isBool {
		errs["visite_acceptee"] = []string{"This field is required."}
	}
	today := model.DateOf(s.Now())
	next, nextErr := dateValue(in["date_prochaine_visite"])
	switch {
	case nextErr != nil:
		errs["date_prochaine_visite"] = []string{nextErr.Error()}
	case next == nil:
		errs["date_prochaine_visite"] = []string{"This field is required."}
	case string(*next) < string(today):
		errs["date_prochaine_visite"] = []string{"La date de la prochaine visite ne peut pas être dans le passé."}
	}
	done, doneErr := dateValue(in["date_visite_effectuee"])
	switch {
	case doneErr != nil:
		errs["date_visite_effectuee"] = []string{doneErr.Error()}
	case done == nil:
		errs["date_visite_effectuee"] = []string{"This field is required."}
	case string(*done) > string(today):
		errs["date_visite_effectuee"] = []string{"La date de la visite effectuée ne peut pas être dans le futur."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	o.LastVisitAccepted = &accepted
	o.NextCycleVisit = next
	o.LastVisitPerformed = done

	result := "échouée"
	if accepted {
		result = "acceptée"
	}
	id := o.ID
	s.notifyRole(model.RoleAdmin, model.Notification{
		Message: fmt.Sprintf("La visite de cycle pour l'OI '%s' a été enregistrée comme %s par %s. Prochaine visite le %s.",
			o.Value, result, a.profile.Name, *next),
		Category:     model.CategoryCycleVisit,
		OrdreRelated: &id,
		OrdreValue:   o.Value,
	})
	writeJSON(w, http.StatusOK, o)
}

// ---- notifications ----

func (s *Server) listNotifications(w http.ResponseWriter, _ *http.Request, a *account) {
	out := []model.Notification{}
	for _, rec := range s.notifications {
		if rec.recipient == a.username {
			out = append(out, rec.n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return string(out[i].ID) > string(out[j].ID)
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request, a *account) {
	id, ok := pathInt(r, "id")
	rec, found := s.notifications[id]
	if !ok || !found || rec.recipient != a.username {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Notification not found or not accessible."})
		return
	}
	rec.n.Read = true
	writeJSON(w, http.StatusOK, map[string]string{"status": "notification marked as read"})
}

func (s *Server) markAllRead(w http.ResponseWriter, _ *http.Request, a *account) {
	n := 0
	for _, rec := range s.notifications {
		if rec.recipient == a.username && !rec.n.Read {
			rec.n.Read = true
			n++
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": fmt.Sprintf("%d notifications marked as read", n)})
}

// ---- users and profiles ----

func (s *Server) profilesByRole(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	role := model.Role(pathString(r, "role"))
	if role != model.RoleAdmin && role != model.RoleChef {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid role specified. Valid roles are: Admin, Chef de Parc"})
		return
	}
	out := []model.UserProfile{}
	for _, acc := range s.accounts {
		if acc.profile.Role == role {
			out = append(out, acc.profile)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func userOf(a *account) model.AdminUser {
	name := a.profile.Name
	role := a.profile.Role
	return model.AdminUser{
		ID:          a.userID,
		Username:    a.username,
		Email:       a.email,
		ProfileName: &name,
		ProfileRole: &role,
		IsActive:    a.active,
	}
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	out := make([]model.AdminUser, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, userOf(acc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userFields(acc *account, in map[string]any, errs map[string]any) {
	if v, ok := in["email"]; ok {
		email, _ := str(v)
		if !strings.Contains(email, "@") {
			errs["email"] = []string{"Enter a valid email address."}
		} else {
			acc.email = email
		}
	}
	if v, ok := in["password"]; ok {
		pw, _ := str(v)
		if len(pw) < 8 {
			errs["password"] = []string{"Ensure this field has at least 8 characters."}
		} else {
			acc.password = pw
		}
	}
	if v, ok := in["profile_name"]; ok {
		acc.profile.Name, _ = str(v)
	}
	if v, ok := in["profile_role"]; ok {
		role, _ := str(v)
		switch model.Role(role) {
		case model.RoleAdmin, model.RoleChef:
			acc.profile.Role = model.Role(role)
		default:
			errs["profile_role"] = []string{fmt.Sprintf("%q is not a valid choice.", role)}
		}
	}
	if v, ok := in["is_active"].(bool); ok {
		acc.active = v
	}
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	errs := map[string]any{}
	username, _ := str(in["username"])
	username = strings.TrimSpace(username)
	if username == "" {
		errs["username"] = []string{"This field is required."}
	} else if s.accountByUsername(username) != nil {
		errs["username"] = []string{"A user with that username already exists."}
	}
	for _, k := range []string{"email", "password"} {
		if _, ok := in[k]; !ok {
			errs[k] = []string{"This field is required."}
		}
	}
	id := s.id()
	acc := &account{
		userID:   id,
		username: username,
		token:    "tok-" + username,
		active:   true,
		profile:  model.UserProfile{ID: id, User: model.ProfileUser{ID: id, Username: username}, Role: model.RoleChef},
	}
	s.userFields(acc, in, errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	s.accounts = append(s.accounts, acc)
	writeJSON(w, http.StatusCreated, userOf(acc))
}

func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request) (*account, bool) {
	id, ok := pathInt(r, "id")
	if ok {
		for _, acc := range s.accounts {
			if acc.userID == id {
				return acc, true
			}
		}
	}
	notFound(w)
	return nil, false
}

func (s *Server) patchUser(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	acc, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	draft := *acc
	errs := map[string]any{}
	s.userFields(&draft, in, errs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	*acc = draft
	writeJSON(w, http.StatusOK, userOf(acc))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	acc, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	if acc == a {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "You cannot delete your own account."})
		return
	}
	kept := s.accounts[:0]
	for _, other := range s.accounts {
		if other != acc {
			kept = append(kept, other)
		}
	}
	s.accounts = kept
	writeJSON(w, http.StatusNoContent, nil)
}

// ---- preventive templates ----

func (s *Server) listTemplates(w http.ResponseWriter, _ *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	out := make([]model.PreventiveTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrdreValue != out[j].OrdreValue {
			return out[i].OrdreValue < out[j].OrdreValue
		}
		return out[i].TriggerHours < out[j].TriggerHours
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) templateFrom(in map[string]any, t *model.PreventiveTemplate) map[string]any {
	errs := map[string]any{}
	t.Title, _ = str(in["title"])
	t.Description, _ = str(in["description"])
	if strings.TrimSpace(t.Title) == "" {
		errs["title"] = []string{"This field may not be blank."}
	}
	if strings.TrimSpace(t.Description) == "" {
		errs["description"] = []string{"This field may not be blank."}
	}
	switch h := in["trigger_hours"].(type) {
	case float64:
		if h <= 0 || h != float64(int(h)) {
			errs["trigger_hours"] = []string{"Ensure this value is a positive integer."}
		} else {
			t.TriggerHours = int(h)
		}
	default:
		errs["trigger_hours"] = []string{"A valid integer is required."}
	}
	oid, _ := str(in["ordre_imputation"])
	if o, ok := s.orders[oid]; ok {
		t.OrdreID = o.ID
		t.OrdreValue = o.Value
	} else {
		errs["ordre_imputation"] = []string{fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", oid)}
	}
	return errs
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	var t model.PreventiveTemplate
	if errs := s.templateFrom(in, &t); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	t.ID = s.id()
	s.templates[t.ID] = t
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) putTemplate(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	id, ok := pathInt(r, "id")
	if _, found := s.templates[id]; !ok || !found {
		notFound(w)
		return
	}
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	t := model.PreventiveTemplate{ID: id}
	if errs := s.templateFrom(in, &t); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	s.templates[id] = t
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	id, ok := pathInt(r, "id")
	if _, found := s.templates[id]; !ok || !found {
		notFound(w)
		return
	}
	delete(s.templates, id)
	writeJSON(w, http.StatusNoContent, nil)
}

// ---- checklist and reports ----

func (s *Server) submitChecklist(w http.ResponseWriter, r *http.Request, a *account) {
	in, err := decodeBody(r)
	if err != nil {
		badJSON(w, err)
		return
	}
	errs := map[string]any{}
	oid, _ := str(in["ordre_imputation_id"])
	o, ok := s.orders[oid]
	if !ok {
		errs["ordre_imputation_id"] = []string{fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", oid)}
	}
	items, _ := in["checklist_items"].([]any)
	if len(items) == 0 {
		errs["checklist_items"] = []string{"Ensure this field has at least 1 elements."}
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		m, _ := it.(map[string]any)
		desc, _ := str(m["description"])
		done, isBool := m["is_completed"].(bool)
		if strings.TrimSpace(desc) == "" || !isBool {
			errs["checklist_items"] = []string{"Each item needs a description and is_completed."}
			break
		}
		prefix := "[ ]"
		if done {
			prefix = "[X]"
		}
		lines = append(lines, prefix+" "+desc)
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	s.checklists = append(s.checklists, in)

	desc := "Maintenance Préventive Effectuée (Checklist):\n" + strings.Join(lines, "\n")
	if notes, _ := str(in["notes"]); strings.TrimSpace(notes) != "" {
		desc += "\n\nNotes: " + notes
	}
	rec := &taskRec{wo: model.WorkOrder{
		ID:          s.id(),
		Ordre:       o,
		Type:        model.TypePreventive,
		Status:      model.StatusClosed,
		ClosedAt:    s.Now().Format(closedAtLayout),
		Description: desc,
		Notes:       []model.AdvancementNote{},
		CreatedAt:   s.Now(),
	}}
	rec.wo.UpdatedAt = rec.wo.CreatedAt
	if a.profile.Role == model.RoleChef {
		pid := a.profile.ID
		rec.wo.AssignedToProfileID = &pid
	}
	if ids, ok := in["technicien_ids"].([]any); ok {
		for _, id := range ids {
			if _, known := s.technicians[fmt.Sprint(id)]; known {
				rec.techIDs = append(rec.techIDs, fmt.Sprint(id))
			}
		}
	}
	s.tasks[rec.wo.ID] = rec
	taskID := rec.wo.ID
	label := fmt.Sprintf("ORDT-%d", taskID)
	for _, acc := range s.accounts {
		if acc.profile.Role != model.RoleAdmin || acc == a {
			continue
		}
		nid := s.id()
		s.notifications[nid] = &notifRec{recipient: acc.username, n: model.Notification{
			ID:             model.FlexID(strconv.Itoa(nid)),
			Message:        fmt.Sprintf("Checklist préventive pour OI '%s' soumise par %s. Tâche: %s", o.Value, a.profile.Name, label),
			Category:       model.CategoryTask,
			TaskRelated:    &taskID,
			TaskIdentifier: label,
			Timestamp:      s.Now(),
		}}
	}
	writeJSON(w, http.StatusCreated, s.render(rec))
}

func (s *Server) taskReport(w http.ResponseWriter, r *http.Request, a *account) {
	if a.profile.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	q := r.URL.Query()
	start, end := q.Get("start_date"), q.Get("end_date")
	values := q["ordre_imputation_value"]
	techs := q["technicien_id"]
	if (start == "") != (end == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Both start date and end date are required for date range filtering, or neither for no date filter."})
		return
	}
	if start != "" {
		if _, err := model.ParseDate(start); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date format. Please use YYYY-MM-DD."})
			return
		}
		if _, err := model.ParseDate(end); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date format. Please use YYYY-MM-DD."})
			return
		}
	}
	pdf := q.Get("format") == "pdf"
	if pdf && start == "" && len(values) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Pour générer un PDF, veuillez spécifier une plage de dates ou au moins un Ordre d'Imputation."})
		return
	}

	var out []model.WorkOrder
	for _, rec := range s.tasks {
		wo := rec.wo
		if len(values) > 0 && (wo.Ordre == nil || !contains(values, wo.Ordre.Value)) {
			continue
		}
		if len(techs) > 0 && !overlaps(techs, rec.techIDs) {
			continue
		}
		if start != "" {
			if wo.StartDate != nil && string(*wo.StartDate) > end {
				continue
			}
			if wo.EndDate != nil && string(*wo.EndDate) < start {
				continue
			}
		}
		out = append(out, s.render(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrdreValue() != out[j].OrdreValue() {
			return out[i].OrdreValue() < out[j].OrdreValue()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if pdf {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = fmt.Fprintf(w, "%%PDF-1.4\n%% %d tasks\n", len(out))
		return
	}
	if out == nil {
		out = []model.WorkOrder{}
	}
	writeJSON(w, http.StatusOK, out)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}
