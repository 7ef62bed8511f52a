package group

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ChakshuVerma/halfride/internal/listing"
	"github.com/ChakshuVerma/halfride/internal/observability"
	"github.com/ChakshuVerma/halfride/internal/store"
)

var (
	ErrGroupNotFound    = errors.New("group not found")
	ErrAlreadyMember    = errors.New("user is already a member of this group")
	ErrNoListing        = errors.New("user has no active listing at the group's airport")
	ErrAlreadyGrouped   = errors.New("user already belongs to a group")
	ErrGroupFull        = errors.New("group is at capacity")
	ErrRequestNotFound  = errors.New("join request not found")
	ErrNotMember        = errors.New("user is not a member of this group")
	ErrInvalidName      = errors.New("group name must be 1-50 letters and spaces")
	ErrRequesterGone    = errors.New("requester no longer has a listing at this airport")
	ErrRequesterMatched = errors.New("requester already joined another group")
)

// Notifier receives group lifecycle events after the transaction has
// committed. Broadcast recipients never include the acting user; the
// decider on a join decision gets a distinct echo notice instead.
type Notifier interface {
	JoinRequested(ctx context.Context, memberUIDs []string, actorUID, groupID, groupName string)
	JoinAccepted(ctx context.Context, recipientUID, deciderUID, groupID, groupName string)
	JoinRejected(ctx context.Context, recipientUID, deciderUID, groupID, groupName string)
	JoinDecisionBroadcast(ctx context.Context, memberUIDs []string, deciderUID, requesterUID, groupID, groupName string, accepted bool)
	MemberLeft(ctx context.Context, memberUIDs []string, actorUID, groupID, groupName string)
	GroupDisbanded(ctx context.Context, recipientUID, groupID, groupName string)
}

// NameResolver maps a user ID to a display name for member listings.
type NameResolver interface {
	DisplayName(ctx context.Context, uid string) (string, error)
}

// Service implements the group lifecycle: join requests, admissions,
// departures, disbands, and renames. Every conditional mutation runs in a
// store transaction so capacity and membership checks cannot race.
type Service struct {
	store       store.Store
	groups      *Repository
	listings    *listing.Repository
	notifier    Notifier
	names       NameResolver
	logger      *slog.Logger
	maxUsers    int
	maxAttempts int
}

func NewService(s store.Store, groups *Repository, listings *listing.Repository, notifier Notifier, names NameResolver, logger *slog.Logger, maxUsers, maxAttempts int) *Service {
	return &Service{
		store:       s,
		groups:      groups,
		listings:    listings,
		notifier:    notifier,
		names:       names,
		logger:      logger,
		maxUsers:    maxUsers,
		maxAttempts: maxAttempts,
	}
}

// RequestJoin records a pending join request. Duplicates are idempotent
// no-ops. Capacity is checked in the same transaction that writes.
func (s *Service) RequestJoin(ctx context.Context, uid, groupID string) error {
	pre, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if pre == nil {
		return ErrGroupNotFound
	}

	var (
		added   bool
		members []string
		name    string
	)
	keys := []string{Key(groupID), listing.Key(pre.AirportCode, uid)}
	err = store.Retry(ctx, s.maxAttempts, func() error {
		added = false
		return s.store.RunTransaction(ctx, keys, func(tx store.Tx) error {
			g, err := s.groups.GetTx(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if g == nil {
				return ErrGroupNotFound
			}
			if g.HasMember(uid) {
				return ErrAlreadyMember
			}
			if g.IsFull(s.maxUsers) {
				return ErrGroupFull
			}

			own, err := s.listings.GetTx(ctx, tx, g.AirportCode, uid)
			if err != nil {
				return err
			}
			if own == nil || own.IsCompleted {
				return ErrNoListing
			}
			if own.GroupID != "" {
				return ErrAlreadyGrouped
			}

			members = append([]string(nil), g.Members...)
			name = g.Name
			if !g.AddPending(uid) {
				return nil // already pending, nothing to write
			}
			added = true
			g.UpdatedAt = time.Now().UTC()
			return s.groups.PutTx(tx, g)
		})
	})
	if err != nil {
		return err
	}

	if added {
		observability.JoinRequestsTotal.Inc()
		if s.notifier != nil {
			s.notifier.JoinRequested(ctx, members, uid, groupID, name)
		}
	}
	return nil
}

// RespondToJoin resolves a pending join request. Any current member may
// decide; the transaction's re-check of pendingRequests is the sole
// arbiter, so a second decider on the same request gets ErrRequestNotFound.
// Capacity is re-checked inside the accepting transaction.
func (s *Service) RespondToJoin(ctx context.Context, deciderUID, groupID, requesterUID string, accept bool) error {
	pre, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if pre == nil {
		return ErrGroupNotFound
	}

	var (
		others           []string
		name             string
		requesterGone    bool
		requesterMatched bool
	)
	keys := []string{Key(groupID), listing.Key(pre.AirportCode, requesterUID)}
	err = store.Retry(ctx, s.maxAttempts, func() error {
		requesterGone = false
		requesterMatched = false
		return s.store.RunTransaction(ctx, keys, func(tx store.Tx) error {
			g, err := s.groups.GetTx(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if g == nil {
				return ErrGroupNotFound
			}
			if !g.HasMember(deciderUID) {
				return ErrNotMember
			}
			if !g.HasPending(requesterUID) {
				return ErrRequestNotFound
			}
			name = g.Name

			now := time.Now().UTC()
			if !accept {
				g.RemovePending(requesterUID)
				g.UpdatedAt = now
				others = broadcastRecipients(g.Members, deciderUID, requesterUID)
				return s.groups.PutTx(tx, g)
			}

			if g.IsFull(s.maxUsers) {
				return ErrGroupFull
			}

			requester, err := s.listings.GetTx(ctx, tx, g.AirportCode, requesterUID)
			if err != nil {
				return err
			}
			if requester == nil || requester.IsCompleted || requester.GroupID != "" {
				// The request is stale: the requester revoked their
				// listing or was admitted elsewhere. Consume it so it
				// cannot be decided again.
				g.RemovePending(requesterUID)
				g.UpdatedAt = now
				requesterGone = requester == nil || requester.IsCompleted
				requesterMatched = !requesterGone
				return s.groups.PutTx(tx, g)
			}

			g.RemovePending(requesterUID)
			g.Members = append(g.Members, requesterUID)
			g.UpdatedAt = now
			if err := s.groups.PutTx(tx, g); err != nil {
				return err
			}

			requester.GroupID = groupID
			requester.ConnectionRequests = []string{}
			requester.UpdatedAt = now
			if err := s.listings.PutTx(tx, requester); err != nil {
				return err
			}

			others = broadcastRecipients(g.Members, deciderUID, requesterUID)
			return nil
		})
	})
	if err != nil {
		return err
	}
	if requesterGone {
		return ErrRequesterGone
	}
	if requesterMatched {
		return ErrRequesterMatched
	}

	if s.notifier != nil {
		if accept {
			s.notifier.JoinAccepted(ctx, requesterUID, deciderUID, groupID, name)
		} else {
			s.notifier.JoinRejected(ctx, requesterUID, deciderUID, groupID, name)
		}
		s.notifier.JoinDecisionBroadcast(ctx, others, deciderUID, requesterUID, groupID, name, accept)
	}
	if accept {
		observability.JoinAcceptsTotal.Inc()
	}
	return nil
}

// Leave removes the caller from the group. A departure that would leave
// fewer than two members disbands the group: the remaining member's
// listing is ungrouped, the group document is deleted, and the remainder
// gets a disband notice instead of a member-left notice.
func (s *Service) Leave(ctx context.Context, uid, groupID string) error {
	var (
		disbanded bool
		remaining []string
		name      string
	)
	err := store.Retry(ctx, s.maxAttempts, func() error {
		disbanded = false
		// The member set determines which listing documents the
		// transaction touches, so derive the key set from a pre-read
		// and re-verify it inside the transaction.
		pre, err := s.groups.Get(ctx, groupID)
		if err != nil {
			return err
		}
		if pre == nil {
			return ErrGroupNotFound
		}
		keys := make([]string, 0, len(pre.Members)+1)
		keys = append(keys, Key(groupID))
		for _, m := range pre.Members {
			keys = append(keys, listing.Key(pre.AirportCode, m))
		}

		return s.store.RunTransaction(ctx, keys, func(tx store.Tx) error {
			g, err := s.groups.GetTx(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if g == nil {
				return ErrGroupNotFound
			}
			if !sameMembers(g.Members, pre.Members) {
				return store.ErrTxConflict
			}
			if !g.HasMember(uid) {
				return ErrNotMember
			}
			name = g.Name

			now := time.Now().UTC()
			g.RemoveMember(uid)

			if leaver, err := s.listings.GetTx(ctx, tx, g.AirportCode, uid); err != nil {
				return err
			} else if leaver != nil {
				leaver.GroupID = ""
				leaver.UpdatedAt = now
				if err := s.listings.PutTx(tx, leaver); err != nil {
					return err
				}
			}

			if len(g.Members) < 2 {
				for _, m := range g.Members {
					rem, err := s.listings.GetTx(ctx, tx, g.AirportCode, m)
					if err != nil {
						return err
					}
					if rem != nil {
						rem.GroupID = ""
						rem.UpdatedAt = now
						if err := s.listings.PutTx(tx, rem); err != nil {
							return err
						}
					}
				}
				s.groups.DeleteTx(tx, groupID)
				disbanded = true
				remaining = append([]string(nil), g.Members...)
				return nil
			}

			g.UpdatedAt = now
			remaining = append([]string(nil), g.Members...)
			return s.groups.PutTx(tx, g)
		})
	})
	if err != nil {
		return err
	}

	if disbanded {
		observability.GroupsDisbandedTotal.Inc()
		if s.notifier != nil {
			for _, m := range remaining {
				s.notifier.GroupDisbanded(ctx, m, groupID, name)
			}
		}
	} else if s.notifier != nil {
		s.notifier.MemberLeft(ctx, remaining, uid, groupID, name)
	}
	return nil
}

// UpdateName renames the group. Overwrite is unconditional; the last
// committed writer wins.
func (s *Service) UpdateName(ctx context.Context, uid, groupID, newName string) error {
	if !ValidName(newName) {
		return ErrInvalidName
	}

	keys := []string{Key(groupID)}
	return store.Retry(ctx, s.maxAttempts, func() error {
		return s.store.RunTransaction(ctx, keys, func(tx store.Tx) error {
			g, err := s.groups.GetTx(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if g == nil {
				return ErrGroupNotFound
			}
			if !g.HasMember(uid) {
				return ErrNotMember
			}
			g.Name = newName
			g.UpdatedAt = time.Now().UTC()
			return s.groups.PutTx(tx, g)
		})
	})
}

// ByAirport returns every group at the airport.
func (s *Service) ByAirport(ctx context.Context, airportCode string) ([]*GroupResponse, error) {
	if !listing.ValidAirportCode(airportCode) {
		return nil, listing.ErrInvalidAirport
	}
	groups, err := s.groups.ListByAirport(ctx, airportCode)
	if err != nil {
		return nil, err
	}
	out := make([]*GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	return out, nil
}

// Members returns the group's current members with display names when a
// resolver is configured.
func (s *Service) Members(ctx context.Context, groupID string) ([]MemberResponse, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return s.resolveMembers(ctx, g.Members), nil
}

// JoinRequests returns the group's pending join requests; only members
// may see them.
func (s *Service) JoinRequests(ctx context.Context, callerUID, groupID string) ([]MemberResponse, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	if !g.HasMember(callerUID) {
		return nil, ErrNotMember
	}
	return s.resolveMembers(ctx, g.PendingRequests), nil
}

func (s *Service) resolveMembers(ctx context.Context, uids []string) []MemberResponse {
	out := make([]MemberResponse, 0, len(uids))
	for _, uid := range uids {
		m := MemberResponse{UserID: uid}
		if s.names != nil {
			displayName, err := s.names.DisplayName(ctx, uid)
			if err != nil {
				s.logger.Warn("display name lookup failed", "uid", uid, "error", err)
			} else {
				m.DisplayName = displayName
			}
		}
		out = append(out, m)
	}
	return out
}

// broadcastRecipients filters the member list down to passive recipients
// of a join decision.
func broadcastRecipients(members []string, deciderUID, requesterUID string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m != deciderUID && m != requesterUID {
			out = append(out, m)
		}
	}
	return out
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, m := range a {
		seen[m] = true
	}
	for _, m := range b {
		if !seen[m] {
			return false
		}
	}
	return true
}
