// internal/matching/candidates.go
// Candidate-finder heuristics. Every strategy reduces to a Signal plus the
// shared exclusion-set query; the strategy itself only extracts the signal
// from the subject's profile and trips.

package matching

type SignalKind string

const (
	SignalSameDestination  SignalKind = "same_destination"
	SignalNearby           SignalKind = "nearby"
	SignalWaypoints        SignalKind = "waypoints"
	SignalDestinationMode  SignalKind = "destination_mode"
	SignalExactRoute       SignalKind = "exact_route"
	SignalTravelMode       SignalKind = "travel_mode"
	SignalTravelStyle      SignalKind = "travel_style"
	SignalInterestLanguage SignalKind = "interest_language"
	SignalComplementary    SignalKind = "complementary"
	SignalCulinaryContrast SignalKind = "culinary_contrast"
	SignalCulinaryNiche    SignalKind = "culinary_niche"
)

// RoutePair is an exact origin+destination pair
type RoutePair struct {
	Origin      string
	Destination string
}

// Signal is the user-specific query input a strategy extracts. Only the
// fields relevant to its Kind are populated.
type Signal struct {
	Kind         SignalKind
	Destinations []string
	Pairs        []RoutePair
	TravelMode   string
	Tags         []string
	Languages    []string
	Center       Point
	RadiusKm     float64
	Route        []Point
}

// Subject bundles the requesting user's data available to strategies
type Subject struct {
	Profile *UserProfile
	Trips   []*Trip
}

// Strategy extracts a Signal from the subject. A nil Signal means the
// subject has no applicable signal and the feed is empty, not an error.
type Strategy interface {
	Name() string
	// NeedsTrips marks destination/route strategies, which 404 for
	// subjects with no trips instead of returning an empty feed.
	NeedsTrips() bool
	ComputeSignal(subject *Subject) *Signal
}

// Fixed pairing table for the complementary-interest heuristic
var complementaryInterests = map[string][]string{
	"wildlife":     {"photography"},
	"photography":  {"wildlife"},
	"hiking":       {"camping"},
	"camping":      {"hiking"},
	"surfing":      {"diving"},
	"diving":       {"surfing"},
	"history":      {"architecture"},
	"architecture": {"history"},
	"street-food":  {"cooking"},
	"cooking":      {"street-food"},
	"music":        {"festivals"},
	"festivals":    {"music"},
}

var (
	// plant-based tags that activate the culinary contrast heuristic
	plantBasedTags = []string{"vegan", "vegetarian"}
	// tags the contrast heuristic searches for on the candidate side
	meatTags = []string{"meat", "bbq", "steak", "seafood"}
	// rare culinary tags for the niche-overlap heuristic
	nicheCulinaryTags = []string{"fermentation", "foraging", "offal", "molecular", "raw", "wild-game"}
)

// NewStrategies returns the full strategy set keyed by route segment
func NewStrategies(nearbyRadiusKm float64) map[string]Strategy {
	strategies := []Strategy{
		sameDestinationStrategy{},
		nearbyStrategy{radiusKm: nearbyRadiusKm},
		waypointStrategy{},
		destinationModeStrategy{},
		exactRouteStrategy{},
		travelModeStrategy{},
		travelStyleStrategy{},
		interestLanguageStrategy{},
		complementaryInterestStrategy{},
		culinaryContrastStrategy{},
		culinaryNicheStrategy{},
	}

	byName := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	return byName
}

// sameDestinationStrategy surfaces users with trips to the same destinations
type sameDestinationStrategy struct{}

func (sameDestinationStrategy) Name() string     { return "same-destination" }
func (sameDestinationStrategy) NeedsTrips() bool { return true }

func (sameDestinationStrategy) ComputeSignal(subject *Subject) *Signal {
	destinations := tripDestinations(subject.Trips)
	if len(destinations) == 0 {
		return nil
	}
	return &Signal{Kind: SignalSameDestination, Destinations: destinations}
}

// nearbyStrategy surfaces users within a geodesic radius of the subject's
// current location
type nearbyStrategy struct {
	radiusKm float64
}

func (nearbyStrategy) Name() string     { return "nearby" }
func (nearbyStrategy) NeedsTrips() bool { return false }

func (s nearbyStrategy) ComputeSignal(subject *Subject) *Signal {
	p := subject.Profile
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &Signal{
		Kind:     SignalNearby,
		Center:   Point{Lat: *p.Latitude, Lng: *p.Longitude},
		RadiusKm: s.radiusKm,
	}
}

// waypointStrategy surfaces users whose stored routes geometrically
// intersect one of the subject's routes
type waypointStrategy struct{}

func (waypointStrategy) Name() string     { return "waypoints" }
func (waypointStrategy) NeedsTrips() bool { return true }

func (waypointStrategy) ComputeSignal(subject *Subject) *Signal {
	route := longestRoute(subject.Trips)
	if len(route) < 2 {
		return nil
	}
	return &Signal{Kind: SignalWaypoints, Route: route}
}

// destinationModeStrategy narrows same-destination by travel mode
type destinationModeStrategy struct{}

func (destinationModeStrategy) Name() string     { return "same-dest-mode" }
func (destinationModeStrategy) NeedsTrips() bool { return true }

func (destinationModeStrategy) ComputeSignal(subject *Subject) *Signal {
	destinations := tripDestinations(subject.Trips)
	if len(destinations) == 0 || subject.Profile.TravelMode == "" {
		return nil
	}
	return &Signal{
		Kind:         SignalDestinationMode,
		Destinations: destinations,
		TravelMode:   subject.Profile.TravelMode,
	}
}

// exactRouteStrategy matches exact origin+destination pairs
type exactRouteStrategy struct{}

func (exactRouteStrategy) Name() string     { return "exact-routes" }
func (exactRouteStrategy) NeedsTrips() bool { return true }

func (exactRouteStrategy) ComputeSignal(subject *Subject) *Signal {
	seen := make(map[RoutePair]bool)
	var pairs []RoutePair
	for _, t := range subject.Trips {
		if t.Origin == "" || t.Destination == "" {
			continue
		}
		pair := RoutePair{Origin: t.Origin, Destination: t.Destination}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return &Signal{Kind: SignalExactRoute, Pairs: pairs}
}

// travelModeStrategy surfaces users sharing the subject's travel mode
type travelModeStrategy struct{}

func (travelModeStrategy) Name() string     { return "travel-mode" }
func (travelModeStrategy) NeedsTrips() bool { return false }

func (travelModeStrategy) ComputeSignal(subject *Subject) *Signal {
	if subject.Profile.TravelMode == "" {
		return nil
	}
	return &Signal{Kind: SignalTravelMode, TravelMode: subject.Profile.TravelMode}
}

// travelStyleStrategy surfaces users with overlapping travel-style tags
type travelStyleStrategy struct{}

func (travelStyleStrategy) Name() string     { return "travel-style" }
func (travelStyleStrategy) NeedsTrips() bool { return false }

func (travelStyleStrategy) ComputeSignal(subject *Subject) *Signal {
	if len(subject.Profile.TravelStyles) == 0 {
		return nil
	}
	return &Signal{Kind: SignalTravelStyle, Tags: subject.Profile.TravelStyles}
}

// interestLanguageStrategy surfaces users sharing at least one interest and
// at least one spoken language
type interestLanguageStrategy struct{}

func (interestLanguageStrategy) Name() string     { return "language" }
func (interestLanguageStrategy) NeedsTrips() bool { return false }

func (interestLanguageStrategy) ComputeSignal(subject *Subject) *Signal {
	p := subject.Profile
	if len(p.Interests) == 0 || len(p.Languages) == 0 {
		return nil
	}
	return &Signal{
		Kind:      SignalInterestLanguage,
		Tags:      p.Interests,
		Languages: p.Languages,
	}
}

// complementaryInterestStrategy pairs interests from a fixed lookup table
// (wildlife with photography, hiking with camping, ...)
type complementaryInterestStrategy struct{}

func (complementaryInterestStrategy) Name() string     { return "complementary-interests" }
func (complementaryInterestStrategy) NeedsTrips() bool { return false }

func (complementaryInterestStrategy) ComputeSignal(subject *Subject) *Signal {
	seen := make(map[string]bool)
	var tags []string
	for _, interest := range subject.Profile.Interests {
		for _, partner := range complementaryInterests[interest] {
			if !seen[partner] {
				seen[partner] = true
				tags = append(tags, partner)
			}
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return &Signal{Kind: SignalComplementary, Tags: tags}
}

// culinaryContrastStrategy surfaces meat-eating candidates for plant-based
// subjects; anyone else gets an empty feed
type culinaryContrastStrategy struct{}

func (culinaryContrastStrategy) Name() string     { return "culinary-contrast" }
func (culinaryContrastStrategy) NeedsTrips() bool { return false }

func (culinaryContrastStrategy) ComputeSignal(subject *Subject) *Signal {
	if !hasAnyTag(subject.Profile.CulinaryTags, plantBasedTags) {
		return nil
	}
	return &Signal{Kind: SignalCulinaryContrast, Tags: meatTags}
}

// culinaryNicheStrategy surfaces users sharing rare culinary tags
type culinaryNicheStrategy struct{}

func (culinaryNicheStrategy) Name() string     { return "culinary-niche" }
func (culinaryNicheStrategy) NeedsTrips() bool { return false }

func (culinaryNicheStrategy) ComputeSignal(subject *Subject) *Signal {
	var shared []string
	for _, tag := range subject.Profile.CulinaryTags {
		if hasAnyTag(nicheCulinaryTags, []string{tag}) {
			shared = append(shared, tag)
		}
	}
	if len(shared) == 0 {
		return nil
	}
	return &Signal{Kind: SignalCulinaryNiche, Tags: shared}
}

// Helpers

func tripDestinations(trips []*Trip) []string {
	seen := make(map[string]bool)
	var destinations []string
	for _, t := range trips {
		if t.Destination == "" || seen[t.Destination] {
			continue
		}
		seen[t.Destination] = true
		destinations = append(destinations, t.Destination)
	}
	return destinations
}

// longestRoute picks the subject route with the most waypoints
func longestRoute(trips []*Trip) []Point {
	var route []Point
	for _, t := range trips {
		if len(t.Route) > len(route) {
			route = t.Route
		}
	}
	return route
}

func hasAnyTag(tags []string, wanted []string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}
