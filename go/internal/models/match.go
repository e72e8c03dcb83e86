package models

import "time"

// MatchPlayer is the per-player payload stored with a match record.
type MatchPlayer struct {
	UserID    int64   `json:"user_id"`
	Username  string  `json:"username"`
	Servant   string  `json:"servant,omitempty"`
	IsCaptain bool    `json:"is_captain"`
	Rating    float64 `json:"rating,omitempty"`
}

// MatchRecord captures a completed draft for the history store. The prematch
// row is written at completion; winner and score are patched in when the
// outcome is reported.
type MatchRecord struct {
	MatchID   string        `json:"match_id"`
	GuildID   int64         `json:"guild_id"`
	ChannelID int64         `json:"channel_id"`
	TeamSize  int           `json:"team_size"`
	Captains  []int64       `json:"captains"`
	TeamOne   []MatchPlayer `json:"team_one"`
	TeamTwo   []MatchPlayer `json:"team_two"`
	Bans      []string      `json:"bans"`
	Winner    int           `json:"winner,omitempty"` // 1 or 2, 0 when unreported
	Score     string        `json:"score,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
