// internal/matching/service.go

package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var (
	ErrInvalidAction   = errors.New("invalid swipe action")
	ErrSelfSwipe       = errors.New("cannot swipe on yourself")
	ErrDuplicateSwipe  = errors.New("already swiped on this user")
	ErrUserNotFound    = errors.New("user not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrNoTrips         = errors.New("user has no trips")
	ErrUnknownStrategy = errors.New("unknown matching strategy")
)

// Notifier is the real-time fan-out contract. Delivery is best-effort:
// false means the user had no live connection and the event was dropped.
type Notifier interface {
	Notify(userID int64, event string, data interface{}) bool
}

type Service interface {
	// Swipe Ledger
	RecordSwipe(ctx context.Context, actorID int64, dto *SwipeRequest) (*Swipe, error)

	// Match Detector
	TryCreateMatch(ctx context.Context, actorID, targetID int64) (*MatchResult, error)
	GetMatches(ctx context.Context, userID int64) ([]*Match, error)

	// Candidate Finder
	FindCandidates(ctx context.Context, userID int64, strategyName string, page Page) ([]*Candidate, error)
}

type service struct {
	repo       Repository
	notifier   Notifier
	strategies map[string]Strategy

	defaultLimit   int
	maxLimit       int
	routeScanLimit int
}

func NewService(repo Repository, notifier Notifier, strategies map[string]Strategy, defaultLimit, maxLimit int) Service {
	return &service{
		repo:           repo,
		notifier:       notifier,
		strategies:     strategies,
		defaultLimit:   defaultLimit,
		maxLimit:       maxLimit,
		routeScanLimit: 500,
	}
}

// RecordSwipe validates and persists a directional action. Swiping is
// single-shot per ordered pair; the second attempt fails. A like or
// superswipe triggers the reciprocity check synchronously, within the same
// request.
func (s *service) RecordSwipe(ctx context.Context, actorID int64, dto *SwipeRequest) (*Swipe, error) {
	action := SwipeAction(dto.Action)
	if !action.IsValid() {
		return nil, ErrInvalidAction
	}
	if actorID == dto.TargetID {
		return nil, ErrSelfSwipe
	}

	swipe := &Swipe{
		ActorID:  actorID,
		TargetID: dto.TargetID,
		Action:   action,
	}

	if err := s.repo.CreateSwipe(ctx, swipe); err != nil {
		if errors.Is(err, ErrDuplicateSwipe) || errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("record swipe: %w", err)
	}

	RecordSwipeMetric(string(action))

	if action.Reciprocates() {
		if _, err := s.TryCreateMatch(ctx, actorID, dto.TargetID); err != nil {
			// The swipe write is durable regardless; surface the failure
			return nil, fmt.Errorf("check reciprocity: %w", err)
		}
	}

	return swipe, nil
}

// TryCreateMatch creates a match exactly once when the target has already
// expressed interest in the actor. Concurrent mutual swipes are resolved by
// the storage layer's canonical-pair uniqueness constraint; losing that race
// is a normal outcome, not an error.
func (s *service) TryCreateMatch(ctx context.Context, actorID, targetID int64) (*MatchResult, error) {
	reciprocal, err := s.repo.HasReciprocalLike(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if !reciprocal {
		return &MatchResult{Created: false}, nil
	}

	match := &Match{User1ID: actorID, User2ID: targetID}
	created, err := s.repo.CreateMatch(ctx, match)
	if err != nil {
		return nil, err
	}

	if created {
		RecordMatchMetric()
		s.notifyMatch(ctx, match)
	}

	return &MatchResult{Created: created, Match: match}, nil
}

// notifyMatch fans out the new-match event to both sides. Each side receives
// the other party's public summary. Offline users are skipped silently; they
// discover the match from their match list on next login.
func (s *service) notifyMatch(ctx context.Context, match *Match) {
	profile1, err := s.repo.GetUserProfile(ctx, match.User1ID)
	if err != nil {
		log.Printf("match %d: failed to load profile %d: %v", match.ID, match.User1ID, err)
		return
	}
	profile2, err := s.repo.GetUserProfile(ctx, match.User2ID)
	if err != nil {
		log.Printf("match %d: failed to load profile %d: %v", match.ID, match.User2ID, err)
		return
	}

	s.sendMatchEvent(match.User1ID, profile2.Summary())
	s.sendMatchEvent(match.User2ID, profile1.Summary())
}

func (s *service) sendMatchEvent(userID int64, other *UserSummary) {
	payload := MatchNotification{
		MatchedProfileID:       other.ID,
		MatchedProfileName:     other.DisplayName,
		MatchedProfilePhotoURL: other.PhotoURL,
	}

	if s.notifier.Notify(userID, "new-match", payload) {
		RecordNotificationMetric("delivered")
	} else {
		RecordNotificationMetric("dropped")
		log.Printf("user %d offline, new-match event dropped", userID)
	}
}

func (s *service) GetMatches(ctx context.Context, userID int64) ([]*Match, error) {
	if _, err := s.repo.GetUserProfile(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetUserMatches(ctx, userID)
}

// FindCandidates runs one heuristic strategy for the subject user. An absent
// signal yields an empty feed. Destination/route strategies report ErrNoTrips
// for subjects without itinerary data.
func (s *service) FindCandidates(ctx context.Context, userID int64, strategyName string, page Page) ([]*Candidate, error) {
	strategy, ok := s.strategies[strategyName]
	if !ok {
		return nil, ErrUnknownStrategy
	}

	page = s.clampPage(page)

	profile, err := s.repo.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	subject := &Subject{Profile: profile}
	if strategy.NeedsTrips() {
		trips, err := s.repo.GetUserTrips(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(trips) == 0 {
			return nil, ErrNoTrips
		}
		subject.Trips = trips
	}

	signal := strategy.ComputeSignal(subject)
	if signal == nil {
		// No applicable signal is a valid, common outcome
		RecordCandidateQueryMetric(strategyName, 0)
		return []*Candidate{}, nil
	}

	var candidates []*Candidate
	if signal.Kind == SignalWaypoints {
		candidates, err = s.findByRouteIntersection(ctx, userID, signal, page)
	} else {
		var exclude []int64
		exclude, err = s.repo.GetExclusionSet(ctx, userID)
		if err == nil {
			candidates, err = s.repo.FindCandidates(ctx, signal, exclude, page)
		}
	}
	if err != nil {
		return nil, err
	}

	RecordCandidateQueryMetric(strategyName, len(candidates))
	return candidates, nil
}

// findByRouteIntersection filters candidate routes with the true geometric
// test and paginates the surviving users in scan order.
func (s *service) findByRouteIntersection(ctx context.Context, userID int64, signal *Signal, page Page) ([]*Candidate, error) {
	exclude, err := s.repo.GetExclusionSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	routes, err := s.repo.FindCandidateRoutes(ctx, exclude, s.routeScanLimit)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	matched := []*Candidate{}
	for _, cr := range routes {
		if seen[cr.Candidate.ID] || !RoutesIntersect(signal.Route, cr.Route) {
			continue
		}
		seen[cr.Candidate.ID] = true
		candidate := cr.Candidate
		matched = append(matched, &candidate)
	}

	start := page.Offset()
	if start >= len(matched) {
		return []*Candidate{}, nil
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *service) clampPage(page Page) Page {
	if page.Limit <= 0 {
		page.Limit = s.defaultLimit
	}
	if page.Limit > s.maxLimit {
		page.Limit = s.maxLimit
	}
	if page.Page < 1 {
		page.Page = 1
	}
	return page
}
