package employee

import "context"

type RosterFilter struct {
	Department *string
}

// RosterRepository provides the employees a template is generated for.
type RosterRepository interface {
	// ListRoster returns active employees ordered by department, then name
	ListRoster(ctx context.Context, filter RosterFilter) ([]RosterEntry, error)
}
