package models

import (
	"fmt"
	"sort"
)

// Team is one of the two sides being drafted.
type Team struct {
	Number    int            `json:"number"` // 1 or 2
	CaptainID int64          `json:"captain_id,omitempty"`
	PlayerIDs map[int64]bool `json:"player_ids"`
	MaxSize   int            `json:"max_size"`
}

// NewTeam creates an empty team with the given number and capacity.
func NewTeam(number, maxSize int) *Team {
	return &Team{
		Number:    number,
		PlayerIDs: make(map[int64]bool),
		MaxSize:   maxSize,
	}
}

func (t *Team) IsFull() bool {
	return len(t.PlayerIDs) >= t.MaxSize
}

func (t *Team) HasCaptain() bool {
	return t.CaptainID != 0
}

func (t *Team) PlayerCount() int {
	return len(t.PlayerIDs)
}

func (t *Team) Contains(playerID int64) bool {
	return t.PlayerIDs[playerID]
}

// Members returns the team's player IDs in ascending order.
func (t *Team) Members() []int64 {
	out := make([]int64, 0, len(t.PlayerIDs))
	for id := range t.PlayerIDs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddPlayer adds a player, rejecting duplicates and over-capacity.
func (t *Team) AddPlayer(playerID int64) error {
	if t.IsFull() {
		return fmt.Errorf("team %d is already full", t.Number)
	}
	if t.PlayerIDs[playerID] {
		return fmt.Errorf("player %d is already on team %d", playerID, t.Number)
	}
	t.PlayerIDs[playerID] = true
	return nil
}

// RemovePlayer drops a player; the captain slot is cleared when the captain
// leaves.
func (t *Team) RemovePlayer(playerID int64) error {
	if !t.PlayerIDs[playerID] {
		return fmt.Errorf("player %d is not on team %d", playerID, t.Number)
	}
	delete(t.PlayerIDs, playerID)
	if t.CaptainID == playerID {
		t.CaptainID = 0
	}
	return nil
}

// SetCaptain marks a member as captain. The captain must already be a member.
func (t *Team) SetCaptain(captainID int64) error {
	if !t.PlayerIDs[captainID] {
		return fmt.Errorf("captain %d must be a member of team %d", captainID, t.Number)
	}
	t.CaptainID = captainID
	return nil
}

// TeamComposition holds both team slots of a draft.
type TeamComposition struct {
	TeamOne *Team `json:"team_one"`
	TeamTwo *Team `json:"team_two"`
}

// NewTeamComposition builds two empty teams of the given size.
func NewTeamComposition(teamSize int) *TeamComposition {
	return &TeamComposition{
		TeamOne: NewTeam(1, teamSize),
		TeamTwo: NewTeam(2, teamSize),
	}
}

// ByNumber returns the team with the given number.
func (tc *TeamComposition) ByNumber(number int) (*Team, error) {
	switch number {
	case 1:
		return tc.TeamOne, nil
	case 2:
		return tc.TeamTwo, nil
	}
	return nil, fmt.Errorf("team number must be 1 or 2, got %d", number)
}

// PlayerTeam returns the team a player belongs to, or nil.
func (tc *TeamComposition) PlayerTeam(playerID int64) *Team {
	if tc.TeamOne.Contains(playerID) {
		return tc.TeamOne
	}
	if tc.TeamTwo.Contains(playerID) {
		return tc.TeamTwo
	}
	return nil
}

// CaptainIDs lists the captains that have been assigned so far.
func (tc *TeamComposition) CaptainIDs() []int64 {
	var ids []int64
	if tc.TeamOne.HasCaptain() {
		ids = append(ids, tc.TeamOne.CaptainID)
	}
	if tc.TeamTwo.HasCaptain() {
		ids = append(ids, tc.TeamTwo.CaptainID)
	}
	return ids
}

func (tc *TeamComposition) BothHaveCaptains() bool {
	return tc.TeamOne.HasCaptain() && tc.TeamTwo.HasCaptain()
}

func (tc *TeamComposition) IsComplete() bool {
	return tc.TeamOne.IsFull() && tc.TeamTwo.IsFull()
}

func (tc *TeamComposition) TotalAssigned() int {
	return tc.TeamOne.PlayerCount() + tc.TeamTwo.PlayerCount()
}
