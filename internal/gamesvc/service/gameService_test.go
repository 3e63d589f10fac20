package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/game-services/internal/comm"
	"github.com/avvvet/game-services/internal/gamesvc/apperror"
	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/avvvet/game-services/internal/gamesvc/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = models.MustParseIdentity("alice")
	bob   = models.MustParseIdentity("bob")
	carol = models.MustParseIdentity("carol")

	chess = models.GamePayload{Title: "Chess", Description: "Classic game", Avatar: "a.png"}
	t0    = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []comm.Event
	err    error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subject != comm.EventTopic {
		return fmt.Errorf("unexpected subject %s", subject)
	}
	var ev comm.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for n, ev := range p.events {
		out[n] = ev.Type
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestService(t *testing.T, gameStore store.GameStore) (*GameService, *testClock, *recordingPublisher) {
	t.Helper()
	clock := &testClock{now: t0}
	pub := &recordingPublisher{}
	s := NewGameService(gameStore, pub)
	s.now = clock.Now

	var seq int
	s.newID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	return s, clock, pub
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), "error: %v", err)
}

func TestCreate(t *testing.T) {
	s, _, pub := newTestService(t, store.NewMemoryStore())

	game, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	assert.NotEmpty(t, game.ID)
	assert.Equal(t, "Chess", game.Title)
	assert.Equal(t, "Classic game", game.Description)
	assert.Equal(t, "a.png", game.Avatar)
	assert.True(t, game.Owner.Equal(alice))
	require.Len(t, game.Members, 1)
	assert.True(t, game.Members[0].Equal(alice))
	assert.Equal(t, t0, game.CreatedAt)
	assert.Nil(t, game.UpdatedAt)

	stored, err := s.Get(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, game, stored)

	assert.Equal(t, []string{comm.GameCreated}, pub.types())
}

func TestCreate_UniqueIDs(t *testing.T) {
	s := NewGameService(store.NewMemoryStore(), nil)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		game, err := s.Create(context.Background(), alice, chess)
		require.NoError(t, err)
		require.NotEmpty(t, game.ID)
		require.False(t, seen[game.ID], "duplicate id %s", game.ID)
		seen[game.ID] = true
	}
}

func TestCreate_InvalidCaller(t *testing.T) {
	s, _, pub := newTestService(t, store.NewMemoryStore())

	_, err := s.Create(context.Background(), models.Identity{}, chess)
	requireKind(t, err, apperror.InvalidCaller)

	games, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.Empty(t, pub.types())
}

func TestCreate_ValidationError(t *testing.T) {
	tests := []struct {
		name    string
		payload models.GamePayload
	}{
		{"missing title", models.GamePayload{Description: "x", Avatar: "a.png"}},
		{"missing description", models.GamePayload{Title: "Chess", Avatar: "a.png"}},
		{"missing avatar", models.GamePayload{Title: "Chess", Description: "x"}},
		{"all empty", models.GamePayload{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestService(t, store.NewMemoryStore())

			_, err := s.Create(context.Background(), alice, tt.payload)
			requireKind(t, err, apperror.ValidationError)

			games, err := s.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, games, "no game may be stored")
		})
	}
}

func TestCreate_CallerCheckedBeforePayload(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())

	_, err := s.Create(context.Background(), models.Identity{}, models.GamePayload{})
	requireKind(t, err, apperror.InvalidCaller)
}

func TestCreate_IDCollisionIsStorageFailure(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())
	s.newID = func() string { return "fixed" }

	_, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), bob, chess)
	requireKind(t, err, apperror.StorageFailure)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	game, err := s.Get(context.Background(), "fixed")
	require.NoError(t, err)
	assert.True(t, game.Owner.Equal(alice), "first record must survive")
}

func TestUpdate(t *testing.T) {
	s, clock, pub := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	clock.Set(t0.Add(time.Minute))
	updated, err := s.Update(context.Background(), alice, created.ID,
		models.GamePayload{Title: "Chess 2", Description: "Classic game v2", Avatar: "a.png"})
	require.NoError(t, err)

	assert.Equal(t, "Chess 2", updated.Title)
	assert.Equal(t, "Classic game v2", updated.Description)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, t0.Add(time.Minute), *updated.UpdatedAt)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.Owner.Equal(created.Owner))
	assert.Equal(t, created.Members, updated.Members)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	stored, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	assert.Equal(t, []string{comm.GameCreated, comm.GameUpdated}, pub.types())
}

func TestUpdate_TimestampNeverGoesBackwards(t *testing.T) {
	s, clock, _ := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	clock.Set(t0.Add(time.Hour))
	first, err := s.Update(context.Background(), alice, created.ID, chess)
	require.NoError(t, err)

	// clock steps back behind both the last update and the creation time
	clock.Set(t0.Add(-time.Hour))
	second, err := s.Update(context.Background(), alice, created.ID, chess)
	require.NoError(t, err)

	require.NotNil(t, second.UpdatedAt)
	assert.False(t, second.UpdatedAt.Before(*first.UpdatedAt))
	assert.False(t, second.UpdatedAt.Before(second.CreatedAt))
}

func TestUpdate_NotFound(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())

	_, err := s.Update(context.Background(), alice, "missing", chess)
	requireKind(t, err, apperror.NotFound)
}

func TestUpdate_Unauthorized(t *testing.T) {
	s, _, pub := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	for _, caller := range []models.Identity{bob, {}} {
		_, err = s.Update(context.Background(), caller, created.ID,
			models.GamePayload{Title: "Stolen", Description: "x", Avatar: "x.png"})
		requireKind(t, err, apperror.Unauthorized)
	}

	stored, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
	assert.Equal(t, []string{comm.GameCreated}, pub.types())
}

func TestUpdate_CheckOrder(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	// a missing game wins over a bad caller and a bad payload
	_, err = s.Update(context.Background(), bob, "missing", models.GamePayload{})
	requireKind(t, err, apperror.NotFound)

	// a bad caller wins over a bad payload
	_, err = s.Update(context.Background(), bob, created.ID, models.GamePayload{})
	requireKind(t, err, apperror.Unauthorized)
}

func TestUpdate_ValidationError(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	_, err = s.Update(context.Background(), alice, created.ID,
		models.GamePayload{Title: "", Description: "x", Avatar: "a.png"})
	requireKind(t, err, apperror.ValidationError)

	stored, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestGet_NotFound(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())

	_, err := s.Get(context.Background(), "missing")
	requireKind(t, err, apperror.NotFound)
}

func TestList(t *testing.T) {
	s, clock, _ := newTestService(t, store.NewMemoryStore())

	first, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)
	clock.Set(t0.Add(time.Second))
	second, err := s.Create(context.Background(), bob, chess)
	require.NoError(t, err)

	games, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, first.ID, games[0].ID)
	assert.Equal(t, second.ID, games[1].ID)
}

func TestAddMember(t *testing.T) {
	s, clock, pub := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	clock.Set(t0.Add(time.Minute))
	game, err := s.AddMember(context.Background(), alice, created.ID, bob)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, models.IdentityStrings(game.Members))
	require.NotNil(t, game.UpdatedAt)
	assert.Equal(t, t0.Add(time.Minute), *game.UpdatedAt)
	assert.True(t, game.Owner.Equal(alice))

	assert.Equal(t, []string{comm.GameCreated, comm.MemberAdded}, pub.types())
}

func TestAddMember_Errors(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)
	_, err = s.AddMember(context.Background(), alice, created.ID, bob)
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller models.Identity
		id     string
		member models.Identity
		want   apperror.Kind
	}{
		{"invalid caller", models.Identity{}, created.ID, carol, apperror.InvalidCaller},
		{"missing game", alice, "missing", carol, apperror.NotFound},
		{"member is not owner", bob, created.ID, carol, apperror.Unauthorized},
		{"invalid member", alice, created.ID, models.Identity{}, apperror.ValidationError},
		{"duplicate member", alice, created.ID, bob, apperror.ValidationError},
		{"owner again", alice, created.ID, alice, apperror.ValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddMember(context.Background(), tt.caller, tt.id, tt.member)
			requireKind(t, err, tt.want)
		})
	}

	stored, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, models.IdentityStrings(stored.Members))
}

func TestDelete(t *testing.T) {
	s, _, pub := newTestService(t, store.NewMemoryStore())
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)
	_, err = s.SendMessage(context.Background(), alice, created.ID, models.MessagePayload{Body: "gg"})
	require.NoError(t, err)

	_, err = s.Delete(context.Background(), bob, created.ID)
	requireKind(t, err, apperror.Unauthorized)

	_, err = s.Delete(context.Background(), models.Identity{}, created.ID)
	requireKind(t, err, apperror.InvalidCaller)

	deleted, err := s.Delete(context.Background(), alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = s.Get(context.Background(), created.ID)
	requireKind(t, err, apperror.NotFound)

	_, err = s.Delete(context.Background(), alice, created.ID)
	requireKind(t, err, apperror.NotFound)

	assert.Equal(t, []string{comm.GameCreated, comm.MessageSent, comm.GameDeleted}, pub.types())
}

type failingStore struct {
	*store.MemoryStore
	err error
}

func (f *failingStore) InsertGame(ctx context.Context, game models.Game) error {
	return f.err
}

func (f *failingStore) ReplaceGame(ctx context.Context, game models.Game) error {
	return f.err
}

func TestStorageFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	boom := errors.New("boom")
	s, _, pub := newTestService(t, &failingStore{MemoryStore: mem, err: boom})

	_, err := s.Create(context.Background(), alice, chess)
	requireKind(t, err, apperror.StorageFailure)
	assert.ErrorIs(t, err, boom)

	existing := models.Game{
		ID: "g1", Title: "Chess", Description: "Classic game", Avatar: "a.png",
		Owner: alice, Members: []models.Identity{alice}, CreatedAt: t0,
	}
	require.NoError(t, mem.InsertGame(context.Background(), existing))

	_, err = s.Update(context.Background(), alice, "g1", chess)
	requireKind(t, err, apperror.StorageFailure)

	assert.Empty(t, pub.types(), "failed mutations publish nothing")
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	s, _, pub := newTestService(t, store.NewMemoryStore())
	pub.err = errors.New("nats down")

	game, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), game.ID)
	assert.NoError(t, err)
}

func TestConcurrentUpdatesStayConsistent(t *testing.T) {
	s := NewGameService(store.NewMemoryStore(), nil)
	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := alice
			if i%2 == 1 {
				caller = bob
			}
			_, _ = s.Update(context.Background(), caller, created.ID,
				models.GamePayload{Title: fmt.Sprintf("Chess %d", i), Description: "x", Avatar: "a.png"})
		}(i)
	}
	wg.Wait()

	stored, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Owner.Equal(alice))
	assert.NotEmpty(t, stored.Title)
	require.NotNil(t, stored.UpdatedAt)
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))
}

// microStore keeps timestamps at microsecond resolution, as TIMESTAMPTZ does.
type microStore struct {
	*store.MemoryStore
}

func roundGame(g models.Game) models.Game {
	g.CreatedAt = g.CreatedAt.Round(time.Microsecond)
	if g.UpdatedAt != nil {
		u := g.UpdatedAt.Round(time.Microsecond)
		g.UpdatedAt = &u
	}
	return g
}

func (m *microStore) InsertGame(ctx context.Context, game models.Game) error {
	return m.MemoryStore.InsertGame(ctx, roundGame(game))
}

func (m *microStore) ReplaceGame(ctx context.Context, game models.Game) error {
	return m.MemoryStore.ReplaceGame(ctx, roundGame(game))
}

func TestTimestampsSurviveStorePrecision(t *testing.T) {
	s, clock, _ := newTestService(t, &microStore{MemoryStore: store.NewMemoryStore()})
	clock.Set(t0.Add(123456789 * time.Nanosecond))

	created, err := s.Create(context.Background(), alice, chess)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(123*time.Millisecond), created.CreatedAt)

	clock.Set(t0.Add(time.Second + 987654321*time.Nanosecond))
	updated, err := s.Update(context.Background(), alice, created.ID,
		models.GamePayload{Title: "Go", Description: "Board game", Avatar: "go.png"})
	require.NoError(t, err)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	stored, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(created.CreatedAt))
	require.NotNil(t, stored.UpdatedAt)
	assert.True(t, stored.UpdatedAt.Equal(*updated.UpdatedAt))
}

func TestSubscribe(t *testing.T) {
	s, _, _ := newTestService(t, store.NewMemoryStore())
	ctx := context.Background()

	game, err := s.Create(ctx, alice, chess)
	require.NoError(t, err)
	_, err = s.AddMember(ctx, alice, game.ID, bob)
	require.NoError(t, err)

	for _, member := range []models.Identity{alice, bob} {
		got, err := s.Subscribe(ctx, member, game.ID)
		require.NoError(t, err)
		assert.Equal(t, game.ID, got.ID)
	}

	_, err = s.Subscribe(ctx, carol, game.ID)
	requireKind(t, err, apperror.Unauthorized)

	_, err = s.Subscribe(ctx, carol, "missing")
	requireKind(t, err, apperror.NotFound)

	_, err = s.Subscribe(ctx, models.Identity{}, game.ID)
	requireKind(t, err, apperror.InvalidCaller)
}
