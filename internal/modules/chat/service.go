// README: Turn orchestrator; answers structured intents from the session snapshot and grounds general questions in it.
package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"prestige/internal/ai"
	"prestige/internal/modules/entity"
	"prestige/internal/modules/intent"
	"prestige/internal/modules/session"
	"prestige/internal/modules/snapshot"
	"prestige/internal/speech"
	"prestige/internal/types"
)

// Quota gates completion calls per identity. A nil Quota disables the check.
// A token taken for a completion that fails is handed back through Refund.
type Quota interface {
	UseToken(ctx context.Context, uid string) error
	Refund(ctx context.Context, uid string) error
}

type Config struct {
	// IncludeRole prefixes general replies with "(role: X) ".
	IncludeRole       bool
	Location          *time.Location
	CompletionTimeout time.Duration
	SpeechTimeout     time.Duration
	Now               func() time.Time
}

type Deps struct {
	Cache *session.Cache
	// Completer may be nil when no provider is configured.
	Completer ai.Completer
	Speech    speech.Synthesizer
	Quota     Quota
}

type Service struct {
	cache     *session.Cache
	completer ai.Completer
	speech    speech.Synthesizer
	quota     Quota
	cfg       Config
}

type Reply struct {
	Text     string
	Intent   intent.Intent
	Degraded bool
}

func NewService(deps Deps, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = 30 * time.Second
	}
	if cfg.SpeechTimeout <= 0 {
		cfg.SpeechTimeout = 20 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cache:     deps.Cache,
		completer: deps.Completer,
		speech:    deps.Speech,
		quota:     deps.Quota,
		cfg:       cfg,
	}
}

func (s *Service) Configured() bool {
	return s.completer != nil
}

// Model reports the completion model name, or "" when unconfigured.
func (s *Service) Model() string {
	if s.completer == nil {
		return ""
	}
	return s.completer.Model()
}

func (s *Service) SpeechEnabled() bool {
	return s.speech != nil && s.speech.Enabled()
}

// HandleTurn answers one user message. Structured intents never call the
// completion service.
func (s *Service) HandleTurn(ctx context.Context, id types.Identity, raw string) (Reply, error) {
	if s.completer == nil {
		return Reply{}, ErrNotConfigured
	}
	msg := cleanMessage(raw)
	if msg == "" {
		return Reply{}, ErrEmptyMessage
	}

	world, err := s.cache.Ensure(ctx, id)
	if err != nil {
		return Reply{}, err
	}

	now := s.cfg.Now().In(s.cfg.Location)
	res := intent.Classify(strings.ToLower(msg), now)
	reply := Reply{Intent: res.Intent, Degraded: world.Degraded}

	switch res.Intent {
	case intent.UpcomingEvents:
		reply.Text = upcomingReply(upcoming(world.Events, now, res), res.Range, s.cfg.Location)
	case intent.MyRsvps:
		reply.Text = rsvpReply(upcomingRSVPs(world.Events, now, res), res.Range, s.cfg.Location)
	case intent.MyOrganizing:
		var organizing []entity.Event
		if world.Snapshot != nil {
			organizing = take(world.Snapshot.Organizing, res.Limit)
		}
		reply.Text = organizingReply(organizing, s.cfg.Location)
	default:
		text, err := s.answer(ctx, id, world, msg)
		if err != nil {
			return Reply{}, err
		}
		reply.Text = text
	}
	return reply, nil
}

// answer runs a grounded completion and records the exchange. History is
// left untouched when the completion fails.
func (s *Service) answer(ctx context.Context, id types.Identity, world session.World, msg string) (string, error) {
	if s.quota != nil {
		if err := s.quota.UseToken(ctx, string(id.ID)); err != nil {
			return "", err
		}
	}

	history := s.cache.History(id)
	msgs := make([]ai.Message, 0, len(history)+2)
	if world.Snapshot != nil && world.Snapshot.Payload != "" {
		msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: world.Snapshot.Payload})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: msg})

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CompletionTimeout)
	defer cancel()

	text, err := s.completer.Complete(cctx, ai.Request{
		System:      systemPrompt,
		Temperature: temperature,
		TopP:        topP,
		Messages:    msgs,
	})
	switch {
	case errors.Is(err, ai.ErrEmptyReply):
		text = fallbackReply
	case err != nil:
		log.Printf("completion failed for %s: %v", id.ID, err)
		s.refund(ctx, id)
		return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}

	text = strings.TrimSpace(text)
	if s.cfg.IncludeRole {
		tag := "(role: " + id.RoleOrDefault() + ") "
		if !strings.HasPrefix(text, tag) {
			text = tag + text
		}
	}
	s.cache.AppendExchange(id, msg, text)
	return text, nil
}

func (s *Service) refund(ctx context.Context, id types.Identity) {
	if s.quota == nil {
		return
	}
	// The turn's context may already be done when the completion timed out.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.quota.Refund(rctx, string(id.ID)); err != nil {
		log.Printf("quota refund failed for %s: %v", id.ID, err)
	}
}

// Audio synthesizes text and returns it base64 encoded. Any failure yields
// "" so a reply is never lost to speech problems.
func (s *Service) Audio(ctx context.Context, text string) string {
	if !s.SpeechEnabled() || strings.TrimSpace(text) == "" {
		return ""
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SpeechTimeout)
	defer cancel()

	audio, err := s.speech.Synthesize(sctx, text)
	if err != nil {
		log.Printf("speech synthesis failed: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}

// Speak is the explicit text-to-speech operation; unlike Audio it reports errors.
func (s *Service) Speak(ctx context.Context, text string) (string, error) {
	if !s.SpeechEnabled() {
		return "", speech.ErrNotConfigured
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SpeechTimeout)
	defer cancel()

	audio, err := s.speech.Synthesize(sctx, text)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}

func cleanMessage(raw string) string {
	msg := strings.TrimSpace(raw)
	if r := []rune(msg); len(r) > MaxMessageRunes {
		msg = string(r[:MaxMessageRunes])
	}
	return msg
}

func upcoming(events []entity.Event, now time.Time, res intent.Result) []entity.Event {
	list, _ := snapshot.Split(events, now)
	if res.Range != nil {
		list = startsWithin(list, *res.Range)
	}
	return take(list, res.Limit)
}

func upcomingRSVPs(events []entity.Event, now time.Time, res intent.Result) []entity.Event {
	mine := snapshot.Registered(events)
	if res.Range != nil {
		mine = startsWithin(mine, *res.Range)
	}
	out := make([]entity.Event, 0, len(mine))
	for _, e := range mine {
		if e.Start == nil {
			continue
		}
		if !e.Start.Before(now) || (e.End != nil && !e.End.Before(now)) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i]).Before(sortKey(out[j]))
	})
	return take(out, res.Limit)
}

func startsWithin(events []entity.Event, r intent.DateRange) []entity.Event {
	out := make([]entity.Event, 0, len(events))
	for _, e := range events {
		if e.Start != nil && r.Contains(*e.Start) {
			out = append(out, e)
		}
	}
	return out
}

func sortKey(e entity.Event) time.Time {
	switch {
	case e.Start != nil:
		return *e.Start
	case e.End != nil:
		return *e.End
	}
	return time.UnixMilli(0)
}

func take(events []entity.Event, n int) []entity.Event {
	if n < len(events) {
		return events[:n]
	}
	return events
}
