package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// parseTaskID accepts 12, ORDT-12 or ordt-12.
func parseTaskID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) > 5 && strings.EqualFold(s[:5], "ORDT-") {
		s = s[5:]
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q (want 12 or ORDT-12)", s)
	}
	return id, nil
}

func parseIntID(kind, s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}

// confirm returns true when yes is set or the user answers y on stdin. Without a
// terminal answer the action is not confirmed.
func confirm(cmd *cobra.Command, yes bool, prompt string) bool {
	if yes {
		return true
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "o", "oui":
		return true
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return false
}

// resolveAssignee maps a profile id, a display name or a username to a chef profile id.
func resolveAssignee(ctx context.Context, c *gateway.Client, s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if id, err := strconv.Atoi(s); err == nil {
		return &id, nil
	}
	chefs, err := c.ProfilesByRole(ctx, model.RoleChef)
	if err != nil {
		return nil, err
	}
	for _, p := range chefs {
		if strings.EqualFold(strings.TrimSpace(p.Name), s) || strings.EqualFold(p.User.Username, s) {
			id := p.ID
			return &id, nil
		}
	}
	return nil, errNotFound("chef", s)
}

func relTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func itoa(i int) string { return strconv.Itoa(i) }

func boolWord(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func validStatus(s model.Status) bool {
	switch s {
	case model.StatusAssigned, model.StatusInProgress, model.StatusClosed:
		return true
	}
	return false
}
