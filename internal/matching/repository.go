package matching

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	// Swipes
	CreateSwipe(ctx context.Context, swipe *Swipe) error
	HasReciprocalLike(ctx context.Context, actorID, targetID int64) (bool, error)

	// Matches
	CreateMatch(ctx context.Context, match *Match) (bool, error)
	GetMatchByPair(ctx context.Context, user1ID, user2ID int64) (*Match, error)
	GetUserMatches(ctx context.Context, userID int64) ([]*Match, error)

	// Profiles & trips (read-only views owned by other subsystems)
	GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error)
	GetUserTrips(ctx context.Context, userID int64) ([]*Trip, error)

	// Candidate queries
	GetExclusionSet(ctx context.Context, userID int64) ([]int64, error)
	FindCandidates(ctx context.Context, signal *Signal, exclude []int64, page Page) ([]*Candidate, error)
	FindCandidateRoutes(ctx context.Context, exclude []int64, limit int) ([]*CandidateRoute, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Swipe Methods

func (r *postgresRepository) CreateSwipe(ctx context.Context, swipe *Swipe) error {
	query := `
        INSERT INTO swipes (actor_id, target_id, action)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `

	err := r.db.QueryRowxContext(
		ctx, query,
		swipe.ActorID, swipe.TargetID, swipe.Action,
	).Scan(&swipe.ID, &swipe.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return ErrDuplicateSwipe
			case "foreign_key_violation":
				return ErrUserNotFound
			}
		}
		return err
	}

	return nil
}

func (r *postgresRepository) HasReciprocalLike(ctx context.Context, actorID, targetID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM swipes
            WHERE actor_id = $1 AND target_id = $2
                  AND action IN ('like', 'superswipe')
        )
    `

	err := r.db.GetContext(ctx, &exists, query, targetID, actorID)
	return exists, err
}

// Match Methods

// CreateMatch inserts the canonicalized pair. The uniqueness constraint on
// (user1_id, user2_id) is the only concurrency control: a conflicting insert
// means another request already created this match, which is reported as
// created=false, not an error.
func (r *postgresRepository) CreateMatch(ctx context.Context, match *Match) (bool, error) {
	// Ensure user1_id < user2_id for consistency
	if match.User1ID > match.User2ID {
		match.User1ID, match.User2ID = match.User2ID, match.User1ID
	}

	query := `
        INSERT INTO matches (user1_id, user2_id)
        VALUES ($1, $2)
        ON CONFLICT (user1_id, user2_id) DO NOTHING
        RETURNING id, matched_at
    `

	err := r.db.QueryRowxContext(
		ctx, query,
		match.User1ID, match.User2ID,
	).Scan(&match.ID, &match.MatchedAt)

	if err == sql.ErrNoRows {
		// Lost the race; load the row the winner created
		existing, lookupErr := r.GetMatchByPair(ctx, match.User1ID, match.User2ID)
		if lookupErr != nil {
			return false, lookupErr
		}
		*match = *existing
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *postgresRepository) GetMatchByPair(ctx context.Context, user1ID, user2ID int64) (*Match, error) {
	// Ensure consistent ordering
	if user1ID > user2ID {
		user1ID, user2ID = user2ID, user1ID
	}

	var match Match
	query := `
        SELECT id, user1_id, user2_id, matched_at
        FROM matches
        WHERE user1_id = $1 AND user2_id = $2
    `

	err := r.db.GetContext(ctx, &match, query, user1ID, user2ID)
	if err == sql.ErrNoRows {
		return nil, ErrMatchNotFound
	}

	return &match, err
}

func (r *postgresRepository) GetUserMatches(ctx context.Context, userID int64) ([]*Match, error) {
	matches := []*Match{}

	query := `
        SELECT m.id, m.user1_id, m.user2_id, m.matched_at,
               CASE WHEN m.user1_id = $1 THEN u2.id ELSE u1.id END as other_id,
               CASE WHEN m.user1_id = $1 THEN u2.username ELSE u1.username END as other_username,
               CASE WHEN m.user1_id = $1 THEN u2.display_name ELSE u1.display_name END as other_display_name,
               CASE WHEN m.user1_id = $1 THEN u2.photo_url ELSE u1.photo_url END as other_photo_url
        FROM matches m
        JOIN users u1 ON m.user1_id = u1.id
        JOIN users u2 ON m.user2_id = u2.id
        WHERE m.user1_id = $1 OR m.user2_id = $1
        ORDER BY m.matched_at DESC
    `

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var match Match
		var matchedUser UserSummary

		err := rows.Scan(
			&match.ID, &match.User1ID, &match.User2ID, &match.MatchedAt,
			&matchedUser.ID, &matchedUser.Username,
			&matchedUser.DisplayName, &matchedUser.PhotoURL,
		)
		if err != nil {
			return nil, err
		}

		match.MatchedUser = &matchedUser
		matches = append(matches, &match)
	}

	return matches, rows.Err()
}

// Profile & Trip Methods

func (r *postgresRepository) GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	var profile UserProfile
	query := `
        SELECT id, username, display_name, photo_url, bio, city, country,
               location_lat, location_lng, travel_mode, interests, languages,
               travel_styles, culinary_tags, is_active, is_public,
               created_at, updated_at
        FROM users
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return &profile, err
}

func (r *postgresRepository) GetUserTrips(ctx context.Context, userID int64) ([]*Trip, error) {
	query := `
        SELECT id, user_id, origin, destination, origin_lat, origin_lng,
               dest_lat, dest_lng, travel_mode, start_date, end_date,
               route, created_at
        FROM trips
        WHERE user_id = $1
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []*Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

func scanTrip(rows *sqlx.Rows) (*Trip, error) {
	var trip Trip
	var routeJSON []byte

	err := rows.Scan(
		&trip.ID, &trip.UserID, &trip.Origin, &trip.Destination,
		&trip.OriginLat, &trip.OriginLng, &trip.DestLat, &trip.DestLng,
		&trip.TravelMode, &trip.StartDate, &trip.EndDate,
		&routeJSON, &trip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &trip.Route); err != nil {
			return nil, fmt.Errorf("trip %d has malformed route: %w", trip.ID, err)
		}
	}

	return &trip, nil
}

// Candidate Methods

// GetExclusionSet returns self plus everyone the user already liked or
// matched. Every heuristic filters its result set with this.
func (r *postgresRepository) GetExclusionSet(ctx context.Context, userID int64) ([]int64, error) {
	query := `
        SELECT target_id FROM swipes
        WHERE actor_id = $1 AND action IN ('like', 'superswipe')
        UNION
        SELECT CASE WHEN user1_id = $1 THEN user2_id ELSE user1_id END
        FROM matches
        WHERE user1_id = $1 OR user2_id = $1
    `

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, err
	}

	return append(ids, userID), nil
}

const candidateColumns = `u.id, u.username, u.display_name, u.photo_url, u.bio,
       u.city, u.country, u.travel_mode`

func (r *postgresRepository) FindCandidates(ctx context.Context, signal *Signal, exclude []int64, page Page) ([]*Candidate, error) {
	where, args := buildSignalClause(signal, exclude)
	if where == "" {
		return []*Candidate{}, nil
	}

	order := "u.updated_at DESC"
	if signal.Kind == SignalNearby {
		// Closest first
		order = fmt.Sprintf("%s ASC", haversineSQL(len(args)-2))
	}

	query := fmt.Sprintf(`
        SELECT %s
        FROM users u
        WHERE u.is_active = TRUE AND u.is_public = TRUE
              AND NOT (u.id = ANY($1))
              AND %s
        ORDER BY %s
        LIMIT $%d OFFSET $%d
    `, candidateColumns, where, order, len(args)+1, len(args)+2)

	args = append(args, page.Limit, page.Offset())

	candidates := []*Candidate{}
	err := r.db.SelectContext(ctx, &candidates, query, args...)
	return candidates, err
}

// buildSignalClause translates a Signal into a WHERE fragment and the full
// positional argument list ($1 is always the exclusion array).
func buildSignalClause(signal *Signal, exclude []int64) (string, []interface{}) {
	args := []interface{}{pq.Array(exclude)}

	switch signal.Kind {
	case SignalSameDestination:
		args = append(args, pq.Array(signal.Destinations))
		return `EXISTS (
                SELECT 1 FROM trips t
                WHERE t.user_id = u.id AND t.destination = ANY($2))`, args

	case SignalDestinationMode:
		args = append(args, pq.Array(signal.Destinations), signal.TravelMode)
		return `EXISTS (
                SELECT 1 FROM trips t
                WHERE t.user_id = u.id AND t.destination = ANY($2)
                      AND t.travel_mode = $3)`, args

	case SignalExactRoute:
		// (origin, destination) tuple list built positionally
		tuples := make([]string, 0, len(signal.Pairs))
		for _, pair := range signal.Pairs {
			tuples = append(tuples, fmt.Sprintf("($%d, $%d)", len(args)+1, len(args)+2))
			args = append(args, pair.Origin, pair.Destination)
		}
		return fmt.Sprintf(`EXISTS (
                SELECT 1 FROM trips t
                WHERE t.user_id = u.id
                      AND (t.origin, t.destination) IN (%s))`,
			strings.Join(tuples, ", ")), args

	case SignalTravelMode:
		args = append(args, signal.TravelMode)
		return "u.travel_mode = $2", args

	case SignalTravelStyle:
		args = append(args, pq.Array(signal.Tags))
		return "u.travel_styles && $2", args

	case SignalInterestLanguage:
		args = append(args, pq.Array(signal.Tags), pq.Array(signal.Languages))
		return "u.interests && $2 AND u.languages && $3", args

	case SignalComplementary, SignalCulinaryContrast, SignalCulinaryNiche:
		args = append(args, pq.Array(signal.Tags))
		if signal.Kind == SignalComplementary {
			return "u.interests && $2", args
		}
		return "u.culinary_tags && $2", args

	case SignalNearby:
		args = append(args, signal.Center.Lat, signal.Center.Lng, signal.RadiusKm)
		return fmt.Sprintf("u.location_lat IS NOT NULL AND u.location_lng IS NOT NULL AND %s < $4",
			haversineSQL(2)), args
	}

	return "", nil
}

// haversineSQL renders the great-circle distance in kilometers between the
// user row and the point held in args latIdx (lat) and latIdx+1 (lng).
func haversineSQL(latIdx int) string {
	return fmt.Sprintf(`(6371 * acos(least(1.0,
        cos(radians($%d)) * cos(radians(u.location_lat)) *
        cos(radians(u.location_lng) - radians($%d)) +
        sin(radians($%d)) * sin(radians(u.location_lat)))))`,
		latIdx, latIdx+1, latIdx)
}

// FindCandidateRoutes loads recent candidate routes for the waypoint
// heuristic; the geometric intersection test happens in Go against the
// decoded waypoints.
func (r *postgresRepository) FindCandidateRoutes(ctx context.Context, exclude []int64, limit int) ([]*CandidateRoute, error) {
	query := fmt.Sprintf(`
        SELECT %s, t.id as trip_id, t.route
        FROM trips t
        JOIN users u ON t.user_id = u.id
        WHERE u.is_active = TRUE AND u.is_public = TRUE
              AND NOT (u.id = ANY($1))
              AND t.route IS NOT NULL
        ORDER BY t.created_at DESC
        LIMIT $2
    `, candidateColumns)

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(exclude), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := []*CandidateRoute{}
	for rows.Next() {
		var cr CandidateRoute
		var routeJSON []byte

		err := rows.Scan(
			&cr.Candidate.ID, &cr.Candidate.Username, &cr.Candidate.DisplayName,
			&cr.Candidate.PhotoURL, &cr.Candidate.Bio, &cr.Candidate.City,
			&cr.Candidate.Country, &cr.Candidate.TravelMode,
			&cr.TripID, &routeJSON,
		)
		if err != nil {
			return nil, err
		}

		if len(routeJSON) > 0 {
			if err := json.Unmarshal(routeJSON, &cr.Route); err != nil {
				continue
			}
		}
		routes = append(routes, &cr)
	}

	return routes, rows.Err()
}
