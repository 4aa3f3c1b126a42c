package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepository is an in-memory Repository that mirrors the storage layer's
// contract, including the canonical-pair uniqueness behavior of matches.
type fakeRepository struct {
	mu sync.Mutex

	profiles map[int64]*UserProfile
	trips    map[int64][]*Trip
	swipes   map[[2]int64]*Swipe
	matches  map[[2]int64]*Match
	nextID   int64

	candidates      []*Candidate
	candidateRoutes []*CandidateRoute

	lastSignal  *Signal
	lastExclude []int64
	lastPage    Page
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		profiles: make(map[int64]*UserProfile),
		trips:    make(map[int64][]*Trip),
		swipes:   make(map[[2]int64]*Swipe),
		matches:  make(map[[2]int64]*Match),
	}
}

func (r *fakeRepository) addUser(id int64, name string) {
	r.profiles[id] = &UserProfile{ID: id, Username: name, DisplayName: name, IsActive: true, IsPublic: true}
}

func (r *fakeRepository) CreateSwipe(ctx context.Context, swipe *Swipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[swipe.ActorID]; !ok {
		return ErrUserNotFound
	}
	if _, ok := r.profiles[swipe.TargetID]; !ok {
		return ErrUserNotFound
	}

	key := [2]int64{swipe.ActorID, swipe.TargetID}
	if _, exists := r.swipes[key]; exists {
		return ErrDuplicateSwipe
	}

	r.nextID++
	swipe.ID = r.nextID
	swipe.CreatedAt = time.Now()
	stored := *swipe
	r.swipes[key] = &stored
	return nil
}

func (r *fakeRepository) HasReciprocalLike(ctx context.Context, actorID, targetID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.swipes[[2]int64{targetID, actorID}]
	return ok && s.Action.Reciprocates(), nil
}

func (r *fakeRepository) CreateMatch(ctx context.Context, match *Match) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if match.User1ID > match.User2ID {
		match.User1ID, match.User2ID = match.User2ID, match.User1ID
	}

	key := [2]int64{match.User1ID, match.User2ID}
	if existing, ok := r.matches[key]; ok {
		match.ID = existing.ID
		match.MatchedAt = existing.MatchedAt
		return false, nil
	}

	r.nextID++
	match.ID = r.nextID
	match.MatchedAt = time.Now()
	stored := *match
	r.matches[key] = &stored
	return true, nil
}

func (r *fakeRepository) GetMatchByPair(ctx context.Context, user1ID, user2ID int64) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user1ID > user2ID {
		user1ID, user2ID = user2ID, user1ID
	}
	m, ok := r.matches[[2]int64{user1ID, user2ID}]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

func (r *fakeRepository) GetUserMatches(ctx context.Context, userID int64) ([]*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Match
	for _, m := range r.matches {
		if m.User1ID == userID || m.User2ID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepository) GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return p, nil
}

func (r *fakeRepository) GetUserTrips(ctx context.Context, userID int64) ([]*Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trips[userID], nil
}

func (r *fakeRepository) GetExclusionSet(ctx context.Context, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[int64]bool{userID: true}
	ids := []int64{}
	for key, s := range r.swipes {
		if key[0] == userID && s.Action.Reciprocates() && !seen[key[1]] {
			seen[key[1]] = true
			ids = append(ids, key[1])
		}
	}
	for _, m := range r.matches {
		if m.User1ID == userID || m.User2ID == userID {
			other := m.OtherUser(userID)
			if !seen[other] {
				seen[other] = true
				ids = append(ids, other)
			}
		}
	}
	return append(ids, userID), nil
}

func (r *fakeRepository) FindCandidates(ctx context.Context, signal *Signal, exclude []int64, page Page) ([]*Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastSignal = signal
	r.lastExclude = exclude
	r.lastPage = page
	return r.candidates, nil
}

func (r *fakeRepository) FindCandidateRoutes(ctx context.Context, exclude []int64, limit int) ([]*CandidateRoute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastExclude = exclude
	return r.candidateRoutes, nil
}

// fakeNotifier records events and simulates per-user connectivity
type fakeNotifier struct {
	mu     sync.Mutex
	online map[int64]bool
	events []notifyCall
}

type notifyCall struct {
	userID int64
	event  string
	data   interface{}
}

func newFakeNotifier(online ...int64) *fakeNotifier {
	n := &fakeNotifier{online: make(map[int64]bool)}
	for _, id := range online {
		n.online[id] = true
	}
	return n
}

func (n *fakeNotifier) Notify(userID int64, event string, data interface{}) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, notifyCall{userID: userID, event: event, data: data})
	return n.online[userID]
}

func (n *fakeNotifier) eventsFor(userID int64) []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []notifyCall
	for _, e := range n.events {
		if e.userID == userID {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(repo *fakeRepository, notifier Notifier) Service {
	return NewService(repo, notifier, NewStrategies(50), 20, 50)
}

// Swipe Ledger

func TestRecordSwipeRejectsInvalidAction(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	svc := newTestService(repo, newFakeNotifier())

	_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "wink"})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestRecordSwipeRejectsSelf(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	svc := newTestService(repo, newFakeNotifier())

	_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 1, Action: "like"})
	assert.ErrorIs(t, err, ErrSelfSwipe)
}

func TestRecordSwipeUnknownTarget(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	svc := newTestService(repo, newFakeNotifier())

	_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 99, Action: "like"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordSwipeIsSingleShot(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	svc := newTestService(repo, newFakeNotifier())

	swipe, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
	require.NoError(t, err)
	assert.NotZero(t, swipe.ID)
	assert.False(t, swipe.CreatedAt.IsZero())

	// Second attempt fails regardless of action
	_, err = svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "dislike"})
	assert.ErrorIs(t, err, ErrDuplicateSwipe)
}

// Match Detector

func TestOneSidedLikeCreatesNoMatch(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	svc := newTestService(repo, newFakeNotifier())

	_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
	require.NoError(t, err)

	assert.Empty(t, repo.matches)
}

func TestMutualLikeCreatesExactlyOneMatch(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	notifier := newFakeNotifier(1, 2)
	svc := newTestService(repo, notifier)

	_, err := svc.RecordSwipe(context.Background(), 2, &SwipeRequest{TargetID: 1, Action: "like"})
	require.NoError(t, err)
	_, err = svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
	require.NoError(t, err)

	require.Len(t, repo.matches, 1)
	m := repo.matches[[2]int64{1, 2}]
	require.NotNil(t, m)
	assert.Less(t, m.User1ID, m.User2ID)

	matches, err := svc.GetMatches(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].OtherUser(1))
}

func TestSuperswipeCountsTowardReciprocity(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	svc := newTestService(repo, newFakeNotifier())

	_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "superswipe"})
	require.NoError(t, err)
	_, err = svc.RecordSwipe(context.Background(), 2, &SwipeRequest{TargetID: 1, Action: "like"})
	require.NoError(t, err)

	assert.Len(t, repo.matches, 1)
}

func TestDislikeNeverMatches(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	svc := newTestService(repo, newFakeNotifier())

	_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
	require.NoError(t, err)
	_, err = svc.RecordSwipe(context.Background(), 2, &SwipeRequest{TargetID: 1, Action: "dislike"})
	require.NoError(t, err)

	assert.Empty(t, repo.matches)
}

func TestConcurrentMutualSwipesCreateOneMatch(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	notifier := newFakeNotifier(1, 2)
	svc := newTestService(repo, notifier)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.RecordSwipe(context.Background(), 2, &SwipeRequest{TargetID: 1, Action: "like"})
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Len(t, repo.matches, 1)

	// Exactly one creation fired the fan-out: one event per side
	assert.Len(t, notifier.eventsFor(1), 1)
	assert.Len(t, notifier.eventsFor(2), 1)
}

// Notification Router

func TestMatchNotifiesBothSidesWithCounterpartSummary(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	notifier := newFakeNotifier(1, 2)
	svc := newTestService(repo, notifier)

	_, err := svc.RecordSwipe(context.Background(), 2, &SwipeRequest{TargetID: 1, Action: "like"})
	require.NoError(t, err)
	_, err = svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
	require.NoError(t, err)

	events1 := notifier.eventsFor(1)
	require.Len(t, events1, 1)
	assert.Equal(t, "new-match", events1[0].event)
	payload1, ok := events1[0].data.(MatchNotification)
	require.True(t, ok)
	assert.Equal(t, int64(2), payload1.MatchedProfileID)
	assert.Equal(t, "ben", payload1.MatchedProfileName)

	events2 := notifier.eventsFor(2)
	require.Len(t, events2, 1)
	payload2, ok := events2[0].data.(MatchNotification)
	require.True(t, ok)
	assert.Equal(t, int64(1), payload2.MatchedProfileID)
	assert.Equal(t, "ada", payload2.MatchedProfileName)
}

func TestOfflineUserStillGetsMatched(t *testing.T) {
	repo := newFakeRepository()
	repo.addUser(1, "ada")
	repo.addUser(2, "ben")
	// Only user 1 has a live connection; delivery to 2 is dropped
	notifier := newFakeNotifier(1)
	svc := newTestService(repo, notifier)

	_, err := svc.RecordSwipe(context.Background(), 2, &SwipeRequest{TargetID: 1, Action: "like"})
	require.NoError(t, err)
	_, err = svc.RecordSwipe(context.Background(), 1, &SwipeRequest{TargetID: 2, Action: "like"})
	require.NoError(t, err)

	// The dropped notification does not undo the match
	require.Len(t, repo.matches, 1)

	matches, err := svc.GetMatches(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestGetMatchesUnknownUser(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, newFakeNotifier())

	_, err := svc.GetMatches(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
