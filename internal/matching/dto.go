// internal/matching/dto.go
package matching

// DTOs for API requests/responses

type SwipeRequest struct {
	TargetID int64  `json:"target_id" validate:"required,gt=0"`
	Action   string `json:"action" validate:"required,oneof=like dislike superswipe"`
}

// Page holds pagination parameters for candidate feeds
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset returns the row offset for the page
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// MatchResult is the outcome of a reciprocity check
type MatchResult struct {
	Created bool   `json:"created"`
	Match   *Match `json:"match,omitempty"`
}

// MatchNotification is the per-side payload of a new-match event.
// Each side receives the other party's public summary.
type MatchNotification struct {
	MatchedProfileID       int64   `json:"matchedProfileId"`
	MatchedProfileName     string  `json:"matchedProfileName"`
	MatchedProfilePhotoURL *string `json:"matchedProfilePhotoUrl"`
}
