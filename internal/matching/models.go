package matching

import (
	"time"

	"github.com/lib/pq"
)

// SwipeAction is a directional preference expressed by one user toward another
type SwipeAction string

const (
	ActionLike       SwipeAction = "like"
	ActionDislike    SwipeAction = "dislike"
	ActionSuperswipe SwipeAction = "superswipe"
)

// IsValid reports whether the action is one of the recognized values
func (a SwipeAction) IsValid() bool {
	switch a {
	case ActionLike, ActionDislike, ActionSuperswipe:
		return true
	}
	return false
}

// Reciprocates reports whether the action counts toward a mutual match.
// A dislike can never create a match.
func (a SwipeAction) Reciprocates() bool {
	return a == ActionLike || a == ActionSuperswipe
}

// Swipe is a one-time directional action. At most one swipe exists per
// ordered (actor, target) pair; swipes are immutable once recorded.
type Swipe struct {
	ID        int64       `json:"id" db:"id"`
	ActorID   int64       `json:"actor_id" db:"actor_id"`
	TargetID  int64       `json:"target_id" db:"target_id"`
	Action    SwipeAction `json:"action" db:"action"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// Match is a mutual, unordered pairing. Rows are stored with
// user1_id < user2_id so the pair key is canonical.
type Match struct {
	ID        int64     `json:"id" db:"id"`
	User1ID   int64     `json:"user1_id" db:"user1_id"`
	User2ID   int64     `json:"user2_id" db:"user2_id"`
	MatchedAt time.Time `json:"matched_at" db:"matched_at"`

	// Joined fields
	MatchedUser *UserSummary `json:"matched_user,omitempty"`
}

// OtherUser returns the counterpart of userID in the pair
func (m *Match) OtherUser(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// UserSummary is the public profile shape exposed in candidate feeds,
// match lists and match notifications. Credentials never appear here.
type UserSummary struct {
	ID          int64   `json:"id" db:"id"`
	Username    string  `json:"username" db:"username"`
	DisplayName string  `json:"display_name" db:"display_name"`
	PhotoURL    *string `json:"photo_url,omitempty" db:"photo_url"`
}

// UserProfile carries the attributes the candidate heuristics filter on.
// The profile subsystem owns and mutates these rows; this engine reads them.
type UserProfile struct {
	ID          int64   `json:"id" db:"id"`
	Username    string  `json:"username" db:"username"`
	DisplayName string  `json:"display_name" db:"display_name"`
	PhotoURL    *string `json:"photo_url,omitempty" db:"photo_url"`
	Bio         *string `json:"bio,omitempty" db:"bio"`

	// Location. Lat/lng are nullable: absence of a location is distinct
	// from the (0, 0) coordinate.
	City      *string  `json:"city,omitempty" db:"city"`
	Country   *string  `json:"country,omitempty" db:"country"`
	Latitude  *float64 `json:"latitude,omitempty" db:"location_lat"`
	Longitude *float64 `json:"longitude,omitempty" db:"location_lng"`

	// Preference attributes
	TravelMode   string         `json:"travel_mode" db:"travel_mode"`
	Interests    pq.StringArray `json:"interests" db:"interests"`
	Languages    pq.StringArray `json:"languages" db:"languages"`
	TravelStyles pq.StringArray `json:"travel_styles" db:"travel_styles"`
	CulinaryTags pq.StringArray `json:"culinary_tags" db:"culinary_tags"`

	IsActive bool `json:"is_active" db:"is_active"`
	IsPublic bool `json:"is_public" db:"is_public"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Summary projects the profile into its public shape
func (p *UserProfile) Summary() *UserSummary {
	return &UserSummary{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
	}
}

// Point is a geographic coordinate on a stored route
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Trip is a read-only view of the itinerary subsystem's trip rows
type Trip struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	Origin      string     `json:"origin" db:"origin"`
	Destination string     `json:"destination" db:"destination"`
	OriginLat   float64    `json:"origin_lat" db:"origin_lat"`
	OriginLng   float64    `json:"origin_lng" db:"origin_lng"`
	DestLat     float64    `json:"dest_lat" db:"dest_lat"`
	DestLng     float64    `json:"dest_lng" db:"dest_lng"`
	TravelMode  string     `json:"travel_mode" db:"travel_mode"`
	StartDate   *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty" db:"end_date"`
	Route       []Point    `json:"route,omitempty"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Candidate is one entry in a recommendation feed
type Candidate struct {
	ID          int64   `json:"id" db:"id"`
	Username    string  `json:"username" db:"username"`
	DisplayName string  `json:"display_name" db:"display_name"`
	PhotoURL    *string `json:"photo_url,omitempty" db:"photo_url"`
	Bio         *string `json:"bio,omitempty" db:"bio"`
	City        *string `json:"city,omitempty" db:"city"`
	Country     *string `json:"country,omitempty" db:"country"`
	TravelMode  string  `json:"travel_mode" db:"travel_mode"`
}

// CandidateRoute pairs a candidate with one of their stored trip routes,
// used by the waypoint-intersection heuristic
type CandidateRoute struct {
	Candidate Candidate
	TripID    int64
	Route     []Point
}
