// Package connection implements the one-to-one matching flow: a traveler
// requests a connection on another traveler's listing, and the target's
// accept forms a new two-member group. All state transitions run inside
// store transactions so concurrent deciders cannot double-commit.
package connection

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChakshuVerma/halfride/internal/group"
	"github.com/ChakshuVerma/halfride/internal/listing"
	"github.com/ChakshuVerma/halfride/internal/observability"
	"github.com/ChakshuVerma/halfride/internal/store"
)

var (
	ErrSelfConnection   = errors.New("cannot request a connection with yourself")
	ErrListingNotFound  = errors.New("target listing not found or already grouped")
	ErrNoOwnListing     = errors.New("caller has no active listing at this airport")
	ErrCallerGrouped    = errors.New("caller already belongs to a group")
	ErrFlightMismatch   = errors.New("target listing no longer refers to the stated flight")
	ErrRequestNotFound  = errors.New("connection request not found")
	ErrRequesterGone    = errors.New("requester no longer has a listing at this airport")
	ErrAlreadyMatched   = errors.New("travelers were matched by a concurrent accept")
	ErrRequesterMatched = errors.New("requester was matched into another group")
)

// Notifier receives connection lifecycle events after the transaction has
// committed.
type Notifier interface {
	ConnectionRequested(ctx context.Context, recipientUID, actorUID, airportCode string)
	ConnectionAccepted(ctx context.Context, recipientUID, actorUID, airportCode, groupID string)
	ConnectionRejected(ctx context.Context, recipientUID, actorUID, airportCode string)
}

type Service struct {
	store       store.Store
	listings    *listing.Repository
	groups      *group.Repository
	notifier    Notifier
	logger      *slog.Logger
	maxAttempts int
}

func NewService(s store.Store, listings *listing.Repository, groups *group.Repository, notifier Notifier, logger *slog.Logger, maxAttempts int) *Service {
	return &Service{
		store:       s,
		listings:    listings,
		groups:      groups,
		notifier:    notifier,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Request records a connection request from the caller on the target's
// listing. The stated flight must still match the target's listing, which
// guards against stale client state. Duplicate requests are idempotent
// no-ops; only a newly recorded request produces a notification.
func (s *Service) Request(ctx context.Context, callerUID, targetUID, airportCode, flightCarrier, flightNumber string) error {
	if !listing.ValidAirportCode(airportCode) {
		return listing.ErrInvalidAirport
	}
	if callerUID == targetUID {
		return ErrSelfConnection
	}
	flightCarrier = strings.ToUpper(flightCarrier)

	var added bool
	keys := []string{
		listing.Key(airportCode, targetUID),
		listing.Key(airportCode, callerUID),
	}
	err := store.Retry(ctx, s.maxAttempts, func() error {
		added = false
		return s.store.RunTransaction(ctx, keys, func(tx store.Tx) error {
			target, err := s.listings.GetTx(ctx, tx, airportCode, targetUID)
			if err != nil {
				return err
			}
			if target == nil || target.IsCompleted || target.GroupID != "" {
				return ErrListingNotFound
			}
			if !target.FlightMatches(flightCarrier, flightNumber) {
				return ErrFlightMismatch
			}

			own, err := s.listings.GetTx(ctx, tx, airportCode, callerUID)
			if err != nil {
				return err
			}
			if own == nil || own.IsCompleted {
				return ErrNoOwnListing
			}
			if own.GroupID != "" {
				return ErrCallerGrouped
			}

			if !target.AddRequest(callerUID) {
				return nil // already requested, nothing to write
			}
			added = true
			target.UpdatedAt = time.Now().UTC()
			return s.listings.PutTx(tx, target)
		})
	})
	if err != nil {
		return err
	}

	if added {
		observability.ConnectionRequestsTotal.Inc()
		if s.notifier != nil {
			s.notifier.ConnectionRequested(ctx, targetUID, callerUID, airportCode)
		}
	}
	return nil
}

// Respond resolves a pending connection request on the caller's listing.
// Accepting forms a new two-member group and clears both travelers' open
// requests; declining removes the request. When two travelers accept each
// other concurrently exactly one accept commits; the other returns
// ErrAlreadyMatched.
func (s *Service) Respond(ctx context.Context, callerUID, requesterUID, airportCode string, accept bool) (string, error) {
	if !listing.ValidAirportCode(airportCode) {
		return "", listing.ErrInvalidAirport
	}
	if callerUID == requesterUID {
		return "", ErrSelfConnection
	}

	var (
		groupID       string
		requesterGone bool
	)
	err := store.Retry(ctx, s.maxAttempts, func() error {
		groupID = ""
		requesterGone = false
		// A fresh group id per attempt; an aborted attempt leaves no trace.
		candidateID := uuid.NewString()
		keys := []string{
			listing.Key(airportCode, callerUID),
			listing.Key(airportCode, requesterUID),
			group.Key(candidateID),
		}
		return s.store.RunTransaction(ctx, keys, func(tx store.Tx) error {
			own, err := s.listings.GetTx(ctx, tx, airportCode, callerUID)
			if err != nil {
				return err
			}
			if own == nil || own.IsCompleted {
				return ErrListingNotFound
			}
			// Checked before request membership: a winning mutual accept
			// clears both request sets, and its loser must see the race,
			// not a missing request.
			if own.GroupID != "" {
				return ErrAlreadyMatched
			}
			if !own.HasRequestFrom(requesterUID) {
				return ErrRequestNotFound
			}

			now := time.Now().UTC()
			requester, err := s.listings.GetTx(ctx, tx, airportCode, requesterUID)
			if err != nil {
				return err
			}
			if requester == nil || requester.IsCompleted {
				// The requester revoked their listing; drop the stale
				// request so it cannot be decided again.
				own.RemoveRequest(requesterUID)
				own.UpdatedAt = now
				if err := s.listings.PutTx(tx, own); err != nil {
					return err
				}
				requesterGone = true
				return nil
			}

			if !accept {
				own.RemoveRequest(requesterUID)
				own.UpdatedAt = now
				return s.listings.PutTx(tx, own)
			}

			if requester.GroupID != "" {
				return ErrRequesterMatched
			}

			g := &group.Group{
				ID:              candidateID,
				Name:            group.DefaultName,
				AirportCode:     airportCode,
				Members:         []string{callerUID, requesterUID},
				PendingRequests: []string{},
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.groups.PutTx(tx, g); err != nil {
				return err
			}

			// Grouped travelers are out of the one-to-one pool; clear
			// any other open requests on both listings.
			own.GroupID = candidateID
			own.ConnectionRequests = []string{}
			own.UpdatedAt = now
			if err := s.listings.PutTx(tx, own); err != nil {
				return err
			}
			requester.GroupID = candidateID
			requester.ConnectionRequests = []string{}
			requester.UpdatedAt = now
			if err := s.listings.PutTx(tx, requester); err != nil {
				return err
			}

			groupID = candidateID
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	if requesterGone {
		return "", ErrRequesterGone
	}

	if groupID != "" {
		observability.GroupsFormedTotal.Inc()
		if s.notifier != nil {
			s.notifier.ConnectionAccepted(ctx, requesterUID, callerUID, airportCode, groupID)
		}
	} else if !accept && s.notifier != nil {
		s.notifier.ConnectionRejected(ctx, requesterUID, callerUID, airportCode)
	}
	return groupID, nil
}
