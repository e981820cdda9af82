// Package intake implements the guided /add dialog as an explicit finite
// state machine. The machine itself has no transport dependency: the bot
// layer feeds it one admin reply at a time and delivers the resulting
// prompts.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"moviekotha/internal/domain"
	"moviekotha/internal/metadata"
	"moviekotha/internal/storage"
)

// State is one step of the intake dialog. States advance strictly in order;
// invalid input re-prompts the current state.
type State int

const (
	StateAwaitingID State = iota
	StateAwaiting480p
	StateAwaiting720p
	StateAwaiting1080p
	StateAwaitingX265
	StateAwaitingConfirm
	StateDone
)

// Confirmation tokens carried as callback data on the summary keyboard.
const (
	TokenConfirm = "confirm"
	TokenCancel  = "cancel"
)

// SkipToken is the literal reply that leaves a quality without a link.
const SkipToken = "skip"

// shortDescriptionLimit caps the cached overview stored with a record.
const shortDescriptionLimit = 200

// Session is the transient per-chat state of one intake dialog.
type Session struct {
	ChatID int64
	State  State
	Movie  domain.Movie
}

// Effect tells the caller what to do after a transition: which prompt to
// send, whether to attach the confirm/cancel keyboard, whether to commit the
// draft to the store, and whether the session is over.
type Effect struct {
	Prompt     string
	AskConfirm bool
	Commit     bool
	Done       bool
}

// Machine validates intake input against the store and the metadata
// provider. It holds no per-dialog state; that lives in Session.
type Machine struct {
	repo     storage.Repository
	metadata metadata.Client
	log      logrus.FieldLogger
}

// NewMachine creates an intake machine with its collaborators injected.
func NewMachine(repo storage.Repository, meta metadata.Client, logger logrus.FieldLogger) *Machine {
	return &Machine{
		repo:     repo,
		metadata: meta,
		log:      logger.WithField("component", "intake"),
	}
}

// Start returns a fresh session for a chat together with the first prompt.
func Start(chatID int64) (*Session, Effect) {
	s := &Session{ChatID: chatID, State: StateAwaitingID}
	return s, Effect{Prompt: "🎬 Adding a new movie.\n\nSend me the movie's TMDB id (e.g. `603`).\nUse /cancel to abort at any point."}
}

var stateQualities = map[State]domain.Quality{
	StateAwaiting480p:  domain.Quality480p,
	StateAwaiting720p:  domain.Quality720p,
	StateAwaiting1080p: domain.Quality1080p,
	StateAwaitingX265:  domain.QualityX265,
}

// Advance applies one admin reply to the session and returns the effect.
// It mutates the session in place; a Done effect means the caller must drop
// the session.
func (m *Machine) Advance(ctx context.Context, s *Session, input string) Effect {
	input = strings.TrimSpace(input)

	switch s.State {
	case StateAwaitingID:
		return m.advanceID(ctx, s, input)
	case StateAwaiting480p, StateAwaiting720p, StateAwaiting1080p, StateAwaitingX265:
		return m.advanceQuality(s, input)
	case StateAwaitingConfirm:
		return m.advanceConfirm(s, input)
	default:
		return Effect{Done: true}
	}
}

func (m *Machine) advanceID(ctx context.Context, s *Session, input string) Effect {
	log := m.log.WithField("chat_id", s.ChatID)

	tmdbID, err := strconv.Atoi(input)
	if err != nil || tmdbID <= 0 {
		return Effect{Prompt: "⚠️ That doesn't look like a TMDB id. Please send a positive number, e.g. `603`."}
	}

	exists, err := m.repo.Exists(ctx, tmdbID)
	if err != nil {
		log.WithError(err).Error("Existence check failed during intake")
		return Effect{Prompt: "❌ The database is unreachable right now. Send the id again to retry, or /cancel."}
	}
	if exists {
		return Effect{Prompt: fmt.Sprintf("🔵 A movie with TMDB id %d is already in the catalog. Send a different id, or /cancel.", tmdbID)}
	}

	meta, err := m.metadata.MovieByID(ctx, tmdbID)
	if errors.Is(err, metadata.ErrNotFound) {
		return Effect{Prompt: fmt.Sprintf("❌ TMDb has no movie with id %d. Please check the id and try again.", tmdbID)}
	}
	if err != nil {
		log.WithError(err).Error("Metadata lookup failed during intake")
		return Effect{Prompt: "❌ The metadata provider is unreachable right now. Send the id again to retry, or /cancel."}
	}

	s.Movie = domain.Movie{
		TMDBID:           tmdbID,
		Title:            meta.Title,
		ShortDescription: truncate(meta.Overview, shortDescriptionLimit),
		Links:            map[domain.Quality]string{},
	}
	s.State = StateAwaiting480p

	log.WithFields(logrus.Fields{"tmdb_id": tmdbID, "title": meta.Title}).Info("Intake resolved movie")
	return Effect{Prompt: fmt.Sprintf("✅ Found *%s*.\n\nNow send the *480p* download link, or `skip`.", meta.Title)}
}

func (m *Machine) advanceQuality(s *Session, input string) Effect {
	quality := stateQualities[s.State]

	if input == "" {
		return Effect{Prompt: fmt.Sprintf("⚠️ Send the *%s* link, or `skip`.", quality)}
	}
	if !strings.EqualFold(input, SkipToken) {
		s.Movie.Links[quality] = input
	}

	s.State++
	if next, ok := stateQualities[s.State]; ok {
		return Effect{Prompt: fmt.Sprintf("Now send the *%s* link, or `skip`.", next)}
	}

	// All qualities collected; summarize and ask for confirmation.
	return Effect{Prompt: m.summary(s), AskConfirm: true}
}

func (m *Machine) advanceConfirm(s *Session, input string) Effect {
	switch strings.ToLower(input) {
	case TokenConfirm:
		s.State = StateDone
		return Effect{Commit: true, Done: true}
	case TokenCancel:
		s.State = StateDone
		return Effect{Prompt: "🚫 Cancelled. Nothing was saved.", Done: true}
	default:
		return Effect{Prompt: m.summary(s), AskConfirm: true}
	}
}

func (m *Machine) summary(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Please review:*\n\n🎬 *%s* (TMDB id %d)\n", s.Movie.Title, s.Movie.TMDBID)
	for _, q := range domain.AllQualities {
		if link := s.Movie.Link(q); link != "" {
			fmt.Fprintf(&b, "• %s: %s\n", q, link)
		} else {
			fmt.Fprintf(&b, "• %s: —\n", q)
		}
	}
	b.WriteString("\nSave this movie to the catalog?")
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
