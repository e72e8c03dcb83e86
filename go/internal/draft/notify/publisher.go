package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/draft/events"
)

// JetStreamConfig configures the UI event publisher.
type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	MaxMsgs         int64
	Replicas        int
	DuplicateWindow time.Duration
	// ThreadSubject is the request/reply subject the chat adapter listens on
	// for thread management.
	ThreadSubject  string
	RequestTimeout time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "DRAFT_UI",
		SubjectPrefix:   "draft.ui",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		ThreadSubject:   "draft.threads",
		RequestTimeout:  5 * time.Second,
	}
}

// Publisher pushes UI envelopes onto JetStream for the chat adapter to
// render. It implements both the Presenter and ThreadService ports.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewPublisher(cfg JetStreamConfig) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Draft UI events for chat adapters",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		MaxMsgs:     p.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	if err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("created JetStream stream")
		return nil
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !streamConfigEqual(info.Config, sc) {
		if _, err = p.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

// publish sends one envelope. The message ID is the payload digest, so a
// republished envelope lands inside the stream's duplicate window as a
// duplicate rather than a double render.
func (p *Publisher) publish(ctx context.Context, env *events.Envelope) error {
	subject := fmt.Sprintf("%s.%d.%s", p.config.SubjectPrefix, env.ChannelID, env.Type)
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msgID := messageID(data)

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{env.Type},
			"Channel-ID": []string{strconv.FormatInt(env.ChannelID, 10)},
		},
	},
		jetstream.WithMsgID(msgID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Uint64("sequence", ack.Sequence).
		Msg("published UI event")
	return nil
}

// messageID derives the JetStream dedup ID from the payload digest.
func messageID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func (p *Publisher) snapshotEvent(ctx context.Context, eventType string, s *events.Snapshot) error {
	return p.publish(ctx, &events.Envelope{Type: eventType, ChannelID: s.ChannelID, Snapshot: s})
}

func (p *Publisher) ShowLobby(ctx context.Context, s *events.Snapshot) error {
	return p.snapshotEvent(ctx, events.TypeLobbyUpdated, s)
}

func (p *Publisher) ShowCaptainVoting(ctx context.Context, s *events.Snapshot) error {
	return p.snapshotEvent(ctx, events.TypeCaptainVoting, s)
}

func (p *Publisher) ShowBanPhase(ctx context.Context, s *events.Snapshot) error {
	return p.snapshotEvent(ctx, events.TypeBanPhase, s)
}

func (p *Publisher) ShowServantSelection(ctx context.Context, s *events.Snapshot) error {
	return p.snapshotEvent(ctx, events.TypeServantSelection, s)
}

func (p *Publisher) ShowSelectionProgress(ctx context.Context, channelID int64, pr *events.Progress) error {
	return p.publish(ctx, &events.Envelope{Type: events.TypeSelectionProgress, ChannelID: channelID, Progress: pr})
}

func (p *Publisher) ShowDiceReport(ctx context.Context, channelID int64, reports []events.Dice) error {
	for i := range reports {
		if err := p.publish(ctx, &events.Envelope{Type: events.TypeDiceReport, ChannelID: channelID, Dice: &reports[i]}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) ShowTeamSelection(ctx context.Context, s *events.Snapshot) error {
	return p.snapshotEvent(ctx, events.TypeTeamSelection, s)
}

func (p *Publisher) ShowResults(ctx context.Context, s *events.Snapshot) error {
	return p.snapshotEvent(ctx, events.TypeResults, s)
}

func (p *Publisher) UpdateStatus(ctx context.Context, channelID int64, message string) error {
	return p.publish(ctx, &events.Envelope{Type: events.TypeStatus, ChannelID: channelID, Message: message})
}

func (p *Publisher) CleanupChannel(ctx context.Context, channelID int64) error {
	return p.publish(ctx, &events.Envelope{Type: events.TypeCancelled, ChannelID: channelID})
}

// threadRequest is the request/reply payload for thread management. The chat
// adapter replies with threadReply.
type threadRequest struct {
	Action    string `json:"action"` // "create" or "archive"
	ChannelID int64  `json:"channel_id,omitempty"`
	ThreadID  int64  `json:"thread_id,omitempty"`
	Name      string `json:"name,omitempty"`
}

type threadReply struct {
	ThreadID int64  `json:"thread_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CreateThread asks the chat adapter to open a thread and returns its id.
func (p *Publisher) CreateThread(ctx context.Context, channelID int64, name string) (int64, error) {
	reply, err := p.threadCall(ctx, threadRequest{Action: "create", ChannelID: channelID, Name: name})
	if err != nil {
		return 0, err
	}
	return reply.ThreadID, nil
}

// ArchiveThread asks the chat adapter to archive a thread.
func (p *Publisher) ArchiveThread(ctx context.Context, threadID int64) error {
	_, err := p.threadCall(ctx, threadRequest{Action: "archive", ThreadID: threadID})
	return err
}

func (p *Publisher) threadCall(ctx context.Context, req threadRequest) (*threadReply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal thread request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()
	msg, err := p.nc.RequestWithContext(ctx, p.config.ThreadSubject, data)
	if err != nil {
		return nil, fmt.Errorf("thread %s request: %w", req.Action, err)
	}
	var reply threadReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("decode thread reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("thread %s: %s", req.Action, reply.Error)
	}
	return &reply, nil
}

func (p *Publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func streamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
