package listing

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ChakshuVerma/halfride/internal/distance"
	"github.com/ChakshuVerma/halfride/internal/flightdata"
	"github.com/ChakshuVerma/halfride/internal/observability"
	"github.com/ChakshuVerma/halfride/internal/store"
)

var (
	ErrInvalidAirport   = errors.New("airport code must be a three-letter IATA code")
	ErrMissingField     = errors.New("missing required field")
	ErrListingExists    = errors.New("user already has an active listing at this airport")
	ErrListingNotFound  = errors.New("listing not found")
	ErrListingInGroup   = errors.New("listing belongs to a group; leave the group first")
	ErrListingCompleted = errors.New("listing is completed")
)

var airportCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidAirportCode reports whether code is a well-formed IATA airport code.
func ValidAirportCode(code string) bool {
	return airportCodeRe.MatchString(code)
}

// Notifier receives listing lifecycle events after the storage write has
// committed.
type Notifier interface {
	NearbyListingCreated(ctx context.Context, recipients []string, actorUID, airportCode string)
}

type Service struct {
	repo     *Repository
	flights  flightdata.Lookup
	scorer   distance.Scorer
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds the listing service. flights, scorer, and notifier may
// be nil; the corresponding enrichment is skipped.
func NewService(repo *Repository, flights flightdata.Lookup, scorer distance.Scorer, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, flights: flights, scorer: scorer, notifier: notifier, logger: logger}
}

// Create registers the caller's listing at an airport. At most one active
// listing per (user, airport) pair exists; a second create returns
// ErrListingExists.
func (s *Service) Create(ctx context.Context, uid string, req *CreateListingRequest) (*TravelerListing, error) {
	if !ValidAirportCode(req.AirportCode) {
		return nil, ErrInvalidAirport
	}
	if strings.TrimSpace(req.DestinationAddress) == "" || strings.TrimSpace(req.FlightCarrier) == "" || strings.TrimSpace(req.FlightNumber) == "" {
		return nil, ErrMissingField
	}

	now := time.Now().UTC()
	l := &TravelerListing{
		UserID:             uid,
		AirportCode:        req.AirportCode,
		Terminal:           req.Terminal,
		DestinationAddress: req.DestinationAddress,
		DestinationLoc:     req.DestinationLoc,
		FlightCarrier:      strings.ToUpper(req.FlightCarrier),
		FlightNumber:       req.FlightNumber,
		ConnectionRequests: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if s.flights != nil {
		flight, err := s.flights.Lookup(ctx, l.FlightCarrier, l.FlightNumber)
		if err != nil {
			s.logger.Warn("flight lookup failed, creating listing without arrival times",
				"carrier", l.FlightCarrier, "number", l.FlightNumber, "error", err)
		} else {
			l.ScheduledArrival = flight.ScheduledArrival
			l.EstimatedArrival = flight.EstimatedArrival
		}
	}

	if err := s.repo.Create(ctx, l); err != nil {
		if errors.Is(err, store.ErrExists) {
			return nil, ErrListingExists
		}
		return nil, err
	}
	observability.ListingsCreatedTotal.Inc()

	if s.notifier != nil {
		others, err := s.repo.ListByAirport(ctx, l.AirportCode)
		if err != nil {
			s.logger.Error("failed to list airport peers for fan-out", "airport", l.AirportCode, "error", err)
		} else {
			recipients := make([]string, 0, len(others))
			for _, o := range others {
				if o.UserID != uid && !o.IsCompleted {
					recipients = append(recipients, o.UserID)
				}
			}
			if len(recipients) > 0 {
				s.notifier.NearbyListingCreated(ctx, recipients, uid, l.AirportCode)
			}
		}
	}

	return l, nil
}

// Active returns the caller's listing at an airport, or nil when none
// exists or the trip is completed.
func (s *Service) Active(ctx context.Context, uid, airportCode string) (*TravelerListing, error) {
	if !ValidAirportCode(airportCode) {
		return nil, ErrInvalidAirport
	}
	l, err := s.repo.Get(ctx, airportCode, uid)
	if err != nil {
		return nil, err
	}
	if l == nil || l.IsCompleted {
		return nil, nil
	}
	return l, nil
}

// Revoke deletes the caller's listing at an airport. A grouped listing
// cannot be revoked; the caller must leave the group first.
func (s *Service) Revoke(ctx context.Context, uid, airportCode string) error {
	if !ValidAirportCode(airportCode) {
		return ErrInvalidAirport
	}
	l, err := s.repo.Get(ctx, airportCode, uid)
	if err != nil {
		return err
	}
	if l == nil {
		return ErrListingNotFound
	}
	if l.GroupID != "" {
		return ErrListingInGroup
	}
	return s.repo.Delete(ctx, airportCode, uid)
}

// Search returns every other traveler's active listing at the airport,
// annotated with the caller-relative connection status and ordered
// nearest destination first. Listings with an unknown distance sort last.
func (s *Service) Search(ctx context.Context, callerUID, airportCode string) ([]*SearchResult, error) {
	if !ValidAirportCode(airportCode) {
		return nil, ErrInvalidAirport
	}
	all, err := s.repo.ListByAirport(ctx, airportCode)
	if err != nil {
		return nil, err
	}

	var own *TravelerListing
	for _, l := range all {
		if l.UserID == callerUID {
			own = l
			break
		}
	}

	results := make([]*SearchResult, 0, len(all))
	dists := make(map[string]float64, len(all))
	for _, l := range all {
		if l.UserID == callerUID || l.IsCompleted {
			continue
		}
		r := &SearchResult{
			UserID:             l.UserID,
			AirportCode:        l.AirportCode,
			Terminal:           l.Terminal,
			DestinationAddress: l.DestinationAddress,
			FlightCarrier:      l.FlightCarrier,
			FlightNumber:       l.FlightNumber,
			EstimatedArrival:   l.EstimatedArrival,
			ConnectionStatus:   s.statusFor(own, l, callerUID),
			CreatedAt:          l.CreatedAt,
		}
		d := s.scoreDistance(ctx, own, l)
		dists[l.UserID] = d
		if d != distance.Unknown {
			meters := d
			r.DistanceMeters = &meters
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		di, dj := dists[results[i].UserID], dists[results[j].UserID]
		if di == distance.Unknown {
			return false
		}
		if dj == distance.Unknown {
			return true
		}
		return di < dj
	})
	return results, nil
}

func (s *Service) statusFor(own, other *TravelerListing, callerUID string) ConnectionStatus {
	if other.GroupID != "" {
		return StatusInGroup
	}
	if other.HasRequestFrom(callerUID) {
		return StatusRequestSent
	}
	if own != nil && own.HasRequestFrom(other.UserID) {
		return StatusRequestReceived
	}
	return StatusSendRequest
}

func (s *Service) scoreDistance(ctx context.Context, own, other *TravelerListing) float64 {
	if s.scorer == nil || own == nil || own.DestinationLoc == "" || other.DestinationLoc == "" {
		return distance.Unknown
	}
	d, err := s.scorer.Score(ctx, own.DestinationLoc, other.DestinationLoc)
	if err != nil {
		s.logger.Warn("distance scoring failed", "from", own.UserID, "to", other.UserID, "error", err)
		return distance.Unknown
	}
	return d
}
