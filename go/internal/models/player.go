package models

import "fmt"

// Player is a participant in a draft.
type Player struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	SelectedServant string `json:"selected_servant,omitempty"`
	Team            int    `json:"team,omitempty"` // 1 or 2, 0 when unassigned
	IsCaptain       bool   `json:"is_captain"`
}

// AssignedToTeam reports whether the player has a team slot.
func (p *Player) AssignedToTeam() bool {
	return p.Team != 0
}

// HasSelectedServant reports whether the player has a pending servant choice.
func (p *Player) HasSelectedServant() bool {
	return p.SelectedServant != ""
}

// AssignToTeam places the player on team 1 or 2.
func (p *Player) AssignToTeam(teamNumber int) error {
	if teamNumber != 1 && teamNumber != 2 {
		return fmt.Errorf("team must be 1 or 2, got %d", teamNumber)
	}
	p.Team = teamNumber
	return nil
}

// SelectServant records a pending servant choice, replacing any previous one.
func (p *Player) SelectServant(name string) error {
	if name == "" {
		return fmt.Errorf("servant name cannot be empty")
	}
	p.SelectedServant = name
	return nil
}

// ClearServantSelection drops the pending choice, e.g. after losing a dice-off.
func (p *Player) ClearServantSelection() {
	p.SelectedServant = ""
}
