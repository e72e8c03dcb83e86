package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// Postgres persists match records. The prematch row is inserted when a draft
// completes; the winner and score are patched in when the result command
// arrives, possibly after the draft itself is gone.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const insertMatch = `
INSERT INTO matches (match_id, guild_id, channel_id, team_size, captains, team_one, team_two, bans, winner, score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, '', $9)
ON CONFLICT (match_id) DO NOTHING`

// RecordMatch writes the prematch row. Re-recording the same match is a
// no-op.
func (p *Postgres) RecordMatch(ctx context.Context, rec *models.MatchRecord) error {
	teamOne, err := teamJSON(rec.TeamOne)
	if err != nil {
		return fmt.Errorf("encode team one: %w", err)
	}
	teamTwo, err := teamJSON(rec.TeamTwo)
	if err != nil {
		return fmt.Errorf("encode team two: %w", err)
	}

	tag, err := p.pool.Exec(ctx, insertMatch,
		rec.MatchID,
		rec.GuildID,
		rec.ChannelID,
		rec.TeamSize,
		rec.Captains,
		teamOne,
		teamTwo,
		rec.Bans,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	log.Info().
		Str("match_id", rec.MatchID).
		Int64("channel_id", rec.ChannelID).
		Int64("rows", tag.RowsAffected()).
		Msg("prematch recorded")
	return nil
}

const updateOutcome = `
UPDATE matches SET winner = $1, score = $2
WHERE match_id = (
	SELECT match_id FROM matches
	WHERE match_id LIKE $3 AND winner = 0
	ORDER BY created_at DESC
	LIMIT 1
)`

// RecordMatchOutcome patches the winner onto the channel's most recent
// unreported match. Match ids embed the channel, so a prefix match finds it
// without the draft.
func (p *Postgres) RecordMatchOutcome(ctx context.Context, channelID int64, winner int, score string) error {
	prefix := fmt.Sprintf("draft-%d-%%", channelID)
	tag, err := p.pool.Exec(ctx, updateOutcome, winner, score, prefix)
	if err != nil {
		return fmt.Errorf("update match outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no unreported match found for channel %d", channelID)
	}
	log.Info().
		Int64("channel_id", channelID).
		Int("winner", winner).
		Str("score", score).
		Msg("match outcome recorded")
	return nil
}

const selectHistory = `
SELECT match_id, guild_id, channel_id, team_size, captains, team_one, team_two, bans, winner, score, created_at
FROM matches
WHERE channel_id = $1
ORDER BY created_at DESC
LIMIT $2`

// History returns the channel's most recent matches, newest first.
func (p *Postgres) History(ctx context.Context, channelID int64, limit int) ([]*models.MatchRecord, error) {
	rows, err := p.pool.Query(ctx, selectHistory, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query match history: %w", err)
	}
	defer rows.Close()

	var out []*models.MatchRecord
	for rows.Next() {
		rec := &models.MatchRecord{}
		var teamOne, teamTwo pqtype.NullRawMessage
		if err := rows.Scan(
			&rec.MatchID,
			&rec.GuildID,
			&rec.ChannelID,
			&rec.TeamSize,
			&rec.Captains,
			&teamOne,
			&teamTwo,
			&rec.Bans,
			&rec.Winner,
			&rec.Score,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		if teamOne.Valid {
			if err := json.Unmarshal(teamOne.RawMessage, &rec.TeamOne); err != nil {
				return nil, fmt.Errorf("decode team one: %w", err)
			}
		}
		if teamTwo.Valid {
			if err := json.Unmarshal(teamTwo.RawMessage, &rec.TeamTwo); err != nil {
				return nil, fmt.Errorf("decode team two: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func teamJSON(players []models.MatchPlayer) (pqtype.NullRawMessage, error) {
	data, err := json.Marshal(players)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}
