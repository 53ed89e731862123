package domain

import "github.com/recovahq/recova/internal/actorcontext"

// transitions is the full graph of permitted status moves. Reopening a
// terminal case is deliberately absent: it is a separate, separately-audited
// operation, not a transition.
var transitions = map[Status][]Status{
	StatusPending:    {StatusAllocated, StatusClosed},
	StatusAllocated:  {StatusInProgress, StatusEscalated, StatusReturned, StatusFailed, StatusClosed},
	StatusInProgress: {StatusContacted, StatusEscalated, StatusReturned, StatusFailed, StatusClosed},
	StatusContacted:  {StatusPromised, StatusInProgress, StatusEscalated, StatusReturned, StatusFailed, StatusClosed},
	StatusPromised:   {StatusRecovered, StatusResolved, StatusContacted, StatusEscalated, StatusFailed, StatusClosed},
	StatusEscalated:  {StatusInProgress, StatusContacted, StatusReturned, StatusRecovered, StatusResolved, StatusFailed, StatusClosed},
	StatusReturned:   {StatusAllocated, StatusClosed},
}

var terminal = map[Status]bool{
	StatusRecovered: true,
	StatusResolved:  true,
	StatusFailed:    true,
	StatusClosed:    true,
}

func IsTerminal(s Status) bool {
	return terminal[s]
}

func ValidStatus(s Status) bool {
	if terminal[s] {
		return true
	}
	_, ok := transitions[s]
	return ok
}

// TransitionDefined reports whether from -> to exists in the graph at all,
// independent of who is asking.
func TransitionDefined(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiresProof reports whether a transition into this status must carry
// proof_type and proof_reference.
func RequiresProof(to Status) bool {
	return to == StatusRecovered || to == StatusResolved
}

// CanTransition is the single authorization predicate for status moves.
// isOwner means the actor belongs to the agency currently assigned the case.
//
//   - super_admin reads everything and mutates nothing.
//   - enterprise_admin may perform any defined transition on its own cases.
//   - dca_user may work a case it owns, but handing a case to an agency
//     (-> allocated) is allocation-engine territory.
//   - system covers the scheduler: allocation and automatic escalation.
func CanTransition(role actorcontext.Role, from, to Status, isOwner bool) bool {
	if !TransitionDefined(from, to) {
		return false
	}

	switch role {
	case actorcontext.RoleSuperAdmin:
		return false
	case actorcontext.RoleEnterpriseAdmin:
		return true
	case actorcontext.RoleDCAUser:
		return isOwner && to != StatusAllocated
	case actorcontext.RoleSystem:
		return to == StatusAllocated || to == StatusEscalated
	default:
		return false
	}
}
