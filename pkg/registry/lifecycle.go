package registry

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// TransitionRule defines an allowed status transition.
type TransitionRule struct {
	From Status
	To   Status
}

// DefaultTransitions defines the allowed status transitions. Golden is
// entered only through the golden promotion (approved -> golden) and left
// only through the demotion inside a successor's promotion; archived is left
// only through Restore. Neither shows up as a From below.
var DefaultTransitions = []TransitionRule{
	{From: StatusDraft, To: StatusApproved},
	{From: StatusSilver, To: StatusApproved},
	{From: StatusApproved, To: StatusGolden},
	{From: StatusDraft, To: StatusArchived},
	{From: StatusSilver, To: StatusArchived},
	{From: StatusApproved, To: StatusArchived},
}

// StatusMachine validates configuration status transitions.
type StatusMachine struct {
	transitions []TransitionRule
}

// NewStatusMachine creates a machine with the default rules.
func NewStatusMachine() *StatusMachine {
	return &StatusMachine{transitions: DefaultTransitions}
}

// ValidateTransition checks if a transition from->to is allowed.
// Returns nil if allowed, an INVALID_TRANSITION error if not. Re-entering
// the current status is not a transition and is rejected like any other
// undefined edge.
func (m *StatusMachine) ValidateTransition(from, to Status) error {
	for _, t := range m.transitions {
		if t.From == from && t.To == to {
			return nil
		}
	}
	return InvalidTransition(from, to)
}

// AllowedTransitions returns the set of target statuses reachable from the
// given status.
func (m *StatusMachine) AllowedTransitions(from Status) mapset.Set[Status] {
	allowed := mapset.NewSet[Status]()
	for _, t := range m.transitions {
		if t.From == from {
			allowed.Add(t.To)
		}
	}
	return allowed
}

// sortedStatuses converts a status set to a sorted slice for stable API
// responses.
func sortedStatuses(set mapset.Set[Status]) []Status {
	out := set.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
