package models

// DraftPhase is the lifecycle state of a draft session.
type DraftPhase string

const (
	PhaseWaiting            DraftPhase = "waiting"
	PhaseCaptainVoting      DraftPhase = "captain_voting"
	PhaseServantBan         DraftPhase = "servant_ban"
	PhaseServantSelection   DraftPhase = "servant_selection"
	PhaseServantReselection DraftPhase = "servant_reselection"
	PhaseTeamSelection      DraftPhase = "team_selection"
	PhaseCompleted          DraftPhase = "completed"
)

// phaseTransitions is the single source of truth for phase legality.
// Reselection is optional: selection may jump straight to team selection
// when no conflicts exist.
var phaseTransitions = map[DraftPhase][]DraftPhase{
	PhaseWaiting:            {PhaseCaptainVoting},
	PhaseCaptainVoting:      {PhaseServantBan},
	PhaseServantBan:         {PhaseServantSelection},
	PhaseServantSelection:   {PhaseServantReselection, PhaseTeamSelection},
	PhaseServantReselection: {PhaseTeamSelection},
	PhaseTeamSelection:      {PhaseCompleted},
	PhaseCompleted:          {},
}

// NextPhases returns the legal successor phases.
func (p DraftPhase) NextPhases() []DraftPhase {
	return phaseTransitions[p]
}

// CanTransitionTo reports whether target is a legal successor of p.
func (p DraftPhase) CanTransitionTo(target DraftPhase) bool {
	for _, next := range phaseTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the phase represents a draft in progress.
func (p DraftPhase) IsActive() bool {
	return p != PhaseWaiting && p != PhaseCompleted
}

// RequiresUserInput reports whether the phase blocks on participant actions.
func (p DraftPhase) RequiresUserInput() bool {
	switch p {
	case PhaseCaptainVoting, PhaseServantBan, PhaseServantSelection,
		PhaseServantReselection, PhaseTeamSelection:
		return true
	}
	return false
}
