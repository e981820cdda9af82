package intake

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviekotha/internal/domain"
	"moviekotha/internal/metadata"
	"moviekotha/internal/storage"
)

// fakeMetadata resolves every id in its table and reports ErrNotFound for
// anything else.
type fakeMetadata struct {
	movies map[int]domain.MovieMetadata
}

func (f *fakeMetadata) MovieByID(ctx context.Context, tmdbID int) (domain.MovieMetadata, error) {
	if meta, ok := f.movies[tmdbID]; ok {
		return meta, nil
	}
	return domain.MovieMetadata{}, metadata.ErrNotFound
}

func (f *fakeMetadata) SearchByName(ctx context.Context, query string) (int, domain.MovieMetadata, error) {
	return 0, domain.MovieMetadata{}, metadata.ErrNotFound
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestMachine(repo storage.Repository) *Machine {
	meta := &fakeMetadata{movies: map[int]domain.MovieMetadata{
		603: {Title: "The Matrix", Overview: "A hacker discovers reality is a simulation.", ReleaseDate: "1999-03-30"},
	}}
	return NewMachine(repo, meta, testLogger())
}

func TestMachine_FullDialog(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := newTestMachine(repo)
	ctx := context.Background()

	s, eff := Start(42)
	assert.Equal(t, StateAwaitingID, s.State)
	assert.NotEmpty(t, eff.Prompt)

	eff = m.Advance(ctx, s, "603")
	assert.Equal(t, StateAwaiting480p, s.State)
	assert.Contains(t, eff.Prompt, "The Matrix")

	eff = m.Advance(ctx, s, "skip")
	assert.Equal(t, StateAwaiting720p, s.State)

	eff = m.Advance(ctx, s, "http://x/720.mkv")
	assert.Equal(t, StateAwaiting1080p, s.State)

	eff = m.Advance(ctx, s, "skip")
	assert.Equal(t, StateAwaitingX265, s.State)

	eff = m.Advance(ctx, s, "SKIP") // the token is case-insensitive
	assert.Equal(t, StateAwaitingConfirm, s.State)
	assert.True(t, eff.AskConfirm, "After the last quality the summary must ask for confirmation")
	assert.Contains(t, eff.Prompt, "The Matrix")
	assert.Contains(t, eff.Prompt, "http://x/720.mkv")

	eff = m.Advance(ctx, s, TokenConfirm)
	assert.True(t, eff.Commit)
	assert.True(t, eff.Done)

	// Only the 720p link was collected.
	assert.Equal(t, map[domain.Quality]string{domain.Quality720p: "http://x/720.mkv"}, s.Movie.Links)
	assert.Empty(t, s.Movie.Link(domain.Quality480p))
	assert.Empty(t, s.Movie.Link(domain.Quality1080p))
	assert.Empty(t, s.Movie.Link(domain.QualityX265))
	assert.Equal(t, 603, s.Movie.TMDBID)
	assert.Equal(t, "The Matrix", s.Movie.Title)
	assert.Equal(t, "A hacker discovers reality is a simulation.", s.Movie.ShortDescription)
}

func TestMachine_NonNumericIDReprompts(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := newTestMachine(repo)
	ctx := context.Background()

	s, _ := Start(42)
	for _, bad := range []string{"matrix", "", "-5", "12.5"} {
		eff := m.Advance(ctx, s, bad)
		assert.Equal(t, StateAwaitingID, s.State, "Input %q must not advance the dialog", bad)
		assert.False(t, eff.Done)
		assert.NotEmpty(t, eff.Prompt)
	}
	assert.Zero(t, s.Movie.TMDBID, "A rejected id must leave the draft empty")
}

func TestMachine_ExistingIDReprompts(t *testing.T) {
	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.Insert(context.Background(), domain.Movie{TMDBID: 603, Title: "The Matrix"}))
	m := newTestMachine(repo)

	s, _ := Start(42)
	eff := m.Advance(context.Background(), s, "603")
	assert.Equal(t, StateAwaitingID, s.State)
	assert.Contains(t, eff.Prompt, "already")
}

func TestMachine_UnknownIDReprompts(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := newTestMachine(repo)

	s, _ := Start(42)
	eff := m.Advance(context.Background(), s, "999999")
	assert.Equal(t, StateAwaitingID, s.State)
	assert.NotEmpty(t, eff.Prompt)
}

func TestMachine_BlankLinkReprompts(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := newTestMachine(repo)
	ctx := context.Background()

	s, _ := Start(42)
	m.Advance(ctx, s, "603")

	eff := m.Advance(ctx, s, "   ")
	assert.Equal(t, StateAwaiting480p, s.State, "Blank input must not advance a quality step")
	assert.Contains(t, eff.Prompt, "480p")
}

func TestMachine_ConfirmStateRejectsOtherInput(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := newTestMachine(repo)
	ctx := context.Background()

	s, _ := Start(42)
	m.Advance(ctx, s, "603")
	for range domain.AllQualities {
		m.Advance(ctx, s, "skip")
	}
	require.Equal(t, StateAwaitingConfirm, s.State)

	eff := m.Advance(ctx, s, "yes please")
	assert.Equal(t, StateAwaitingConfirm, s.State)
	assert.True(t, eff.AskConfirm, "Out-of-vocabulary input must re-present the summary")
	assert.False(t, eff.Commit)
	assert.False(t, eff.Done)

	eff = m.Advance(ctx, s, TokenCancel)
	assert.True(t, eff.Done)
	assert.False(t, eff.Commit, "Cancel must not commit")
}

func TestManager_CancelThenRestartIsFresh(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := newTestMachine(repo)
	mgr := NewManager()
	ctx := context.Background()

	s, _ := mgr.Start(42)
	m.Advance(ctx, s, "603")
	m.Advance(ctx, s, "http://x/480.mkv")
	require.Equal(t, StateAwaiting720p, s.State)

	// Global cancel mid-dialog.
	assert.True(t, mgr.Drop(42))
	assert.Nil(t, mgr.Get(42))
	assert.False(t, mgr.Drop(42), "Second drop should report no active session")

	// A new session carries no residual fields.
	s2, _ := mgr.Start(42)
	assert.Equal(t, StateAwaitingID, s2.State)
	assert.Zero(t, s2.Movie.TMDBID)
	assert.Empty(t, s2.Movie.Links)
}

func TestManager_StartReplacesActiveSession(t *testing.T) {
	repo := storage.NewMemoryRepository()
	m := newTestMachine(repo)
	mgr := NewManager()
	ctx := context.Background()

	s, _ := mgr.Start(42)
	m.Advance(ctx, s, "603")

	s2, _ := mgr.Start(42)
	assert.Same(t, s2, mgr.Get(42))
	assert.Equal(t, StateAwaitingID, s2.State)
}
