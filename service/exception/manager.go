// Package exception manages temporary spend-cap increases. Requests form an
// append-only history per scope; a pointer record names the single current
// request, which is what effective caps are computed from.
package exception

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/fingov/internal/idgen"
	"github.com/viant/fingov/model/exception"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/policy"
	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/lock"
	"github.com/viant/fingov/service/notify"
	"go.uber.org/zap"
)

const entityType = "cap_exception"

// Cap is the effective spend cap of a scope.
type Cap struct {
	Scope       mpolicy.Scope `json:"scope"`
	Configured  bool          `json:"configured"`
	Base        int64         `json:"base"`
	Delta       int64         `json:"delta"`
	Effective   int64         `json:"effective"`
	ExceptionID string        `json:"exceptionId,omitempty"`
}

// Manager submits and decides cap exceptions.
type Manager struct {
	unit     *commit.Unit
	resolver policy.Resolver
	notifier notify.Notifier
	logger   *zap.Logger
}

// Option customises a Manager.
type Option func(*Manager)

// WithNotifier sets the notifier used after commits.
func WithNotifier(notifier notify.Notifier) Option {
	return func(m *Manager) { m.notifier = notifier }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a Manager.
func New(unit *commit.Unit, resolver policy.Resolver, opts ...Option) *Manager {
	ret := &Manager{unit: unit, resolver: resolver, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func validateScope(scope mpolicy.Scope) error {
	if strings.TrimSpace(scope.TeamID) == "" {
		return types.NewValidationError("scope.teamId", "is required")
	}
	return nil
}

// Submit appends a PENDING request for scope. The current PENDING or APPROVED
// request, if any, is superseded and stays in history.
func (m *Manager) Submit(ctx context.Context, scope mpolicy.Scope, delta int64, justification, requester string) (*exception.CapException, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	if delta <= 0 {
		return nil, types.NewValidationError("requestedDelta", "must be greater than 0, got %d", delta)
	}
	justification = strings.TrimSpace(justification)
	if justification == "" {
		return nil, types.NewValidationError("justification", "is required")
	}
	if strings.TrimSpace(requester) == "" {
		return nil, types.NewValidationError("requestedBy", "is required")
	}
	scopeKey := scope.Key()
	var ret *exception.CapException
	err := m.unit.Run(ctx, lock.Key("scope", scopeKey), func(ctx context.Context, s *commit.Scope) error {
		tx := s.Tx()
		history, err := tx.Exceptions().List(ctx, dao.NewParameter("ScopeKey", scopeKey))
		if err != nil {
			return err
		}
		pointer, err := tx.ExceptionPointers().Load(ctx, scopeKey)
		if err != nil {
			return err
		}
		if pointer == nil {
			pointer = &exception.Pointer{ScopeKey: scopeKey}
		}
		now := s.Now()
		ret = &exception.CapException{
			ID:             idgen.Prefixed("exc"),
			Scope:          scope,
			ScopeKey:       scopeKey,
			RequestedDelta: delta,
			Justification:  justification,
			Status:         exception.StatusPending,
			Sequence:       int64(len(history)) + 1,
			RequestedBy:    requester,
			CreatedAt:      now,
		}
		if pointer.CurrentID != "" {
			previous, err := dao.MustLoad(ctx, tx.Exceptions(), pointer.CurrentID)
			if err != nil {
				return err
			}
			if previous.Active() {
				before := previous.Status
				previous.Status = exception.StatusSuperseded
				previous.SupersededBy = ret.ID
				previous.SupersededAt = &now
				if err = tx.Exceptions().Save(ctx, previous); err != nil {
					return err
				}
				if err = s.Audit(ctx, "exception.supersede", entityType, previous.ID, requester,
					map[string]interface{}{"status": string(before)},
					map[string]interface{}{"status": string(previous.Status), "supersededBy": ret.ID}); err != nil {
					return err
				}
			}
		}
		if err = tx.Exceptions().Save(ctx, ret); err != nil {
			return err
		}
		pointer.CurrentID = ret.ID
		if err = tx.ExceptionPointers().Save(ctx, pointer); err != nil {
			return err
		}
		if err = s.Audit(ctx, "exception.submit", entityType, ret.ID, requester, nil, map[string]interface{}{
			"scope":          scopeKey,
			"requestedDelta": delta,
			"justification":  justification,
			"status":         string(ret.Status),
		}); err != nil {
			return err
		}
		reviewers, err := tx.Members().List(ctx,
			dao.NewParameter("TeamID", scope.TeamID),
			dao.NewParameter("Role", role.Treasurer.String()),
			dao.NewParameter("Active", "true"))
		if err != nil {
			return err
		}
		for _, reviewer := range reviewers {
			if reviewer.UserID == requester {
				continue
			}
			m.notify(s, &notify.Notification{
				Kind:           notify.KindExceptionSubmitted,
				RecipientID:    reviewer.UserID,
				RecipientEmail: reviewer.Email,
				CreatorID:      requester,
				TeamID:         scope.TeamID,
				EntityID:       ret.ID,
				Amount:         delta,
				Status:         string(ret.Status),
				Comment:        justification,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decide approves or denies the current PENDING request. A DENIED request
// stops being current immediately.
func (m *Manager) Decide(ctx context.Context, id string, decision exception.Decision, reviewer, reason string) (*exception.CapException, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewValidationError("id", "is required")
	}
	if decision != exception.DecisionApprove && decision != exception.DecisionDeny {
		return nil, types.NewValidationError("decision", "unsupported decision %q", decision)
	}
	if strings.TrimSpace(reviewer) == "" {
		return nil, types.NewValidationError("reviewedBy", "is required")
	}
	var scopeKey string
	err := m.unit.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		found, err := dao.MustLoad(ctx, tx.Exceptions(), id)
		if err != nil {
			return err
		}
		scopeKey = found.ScopeKey
		return nil
	})
	if err != nil {
		return nil, notFound(err, id)
	}

	var ret *exception.CapException
	err = m.unit.Run(ctx, lock.Key("scope", scopeKey), func(ctx context.Context, s *commit.Scope) error {
		tx := s.Tx()
		current, err := dao.MustLoad(ctx, tx.Exceptions(), id)
		if err != nil {
			return err
		}
		if current.Superseded() {
			return types.NewConflictError(entityType, id, string(current.Status), "superseded by "+current.SupersededBy)
		}
		if current.Status != exception.StatusPending {
			return types.NewConflictError(entityType, id, string(current.Status), "already decided")
		}
		if current.RequestedBy == reviewer {
			return types.NewValidationError("reviewedBy", "requester cannot review own exception")
		}
		pointer, err := tx.ExceptionPointers().Load(ctx, scopeKey)
		if err != nil {
			return err
		}
		if pointer == nil || pointer.CurrentID != id {
			return types.NewConflictError(entityType, id, string(current.Status), "not the current request of scope "+scopeKey)
		}
		now := s.Now()
		previous := current.Status
		current.Status = exception.StatusApproved
		if decision == exception.DecisionDeny {
			current.Status = exception.StatusDenied
			pointer.CurrentID = ""
			if err = tx.ExceptionPointers().Save(ctx, pointer); err != nil {
				return err
			}
		}
		current.ReviewedBy = reviewer
		current.ReviewReason = strings.TrimSpace(reason)
		current.DecidedAt = &now
		if err = tx.Exceptions().Save(ctx, current); err != nil {
			return err
		}
		if err = s.Audit(ctx, "exception.decide", entityType, id, reviewer,
			map[string]interface{}{"status": string(previous)},
			map[string]interface{}{"status": string(current.Status), "reason": current.ReviewReason}); err != nil {
			return err
		}
		requester, err := findMember(ctx, tx, current.Scope.TeamID, current.RequestedBy)
		if err != nil {
			return err
		}
		n := &notify.Notification{
			Kind:        notify.KindExceptionDecided,
			RecipientID: current.RequestedBy,
			TeamID:      current.Scope.TeamID,
			EntityID:    id,
			Amount:      current.RequestedDelta,
			Status:      string(current.Status),
			Comment:     current.ReviewReason,
		}
		if requester != nil {
			n.RecipientEmail = requester.Email
		}
		m.notify(s, n)
		ret = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Current returns the current PENDING or APPROVED request of scope, or nil.
func (m *Manager) Current(ctx context.Context, scope mpolicy.Scope) (*exception.CapException, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	var ret *exception.CapException
	err := m.unit.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		var err error
		ret, err = Current(ctx, tx, scope.Key())
		return err
	})
	return ret, err
}

// History returns every request of scope, oldest first.
func (m *Manager) History(ctx context.Context, scope mpolicy.Scope) ([]*exception.CapException, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	var ret []*exception.CapException
	err := m.unit.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		var err error
		ret, err = tx.Exceptions().List(ctx, dao.NewParameter("ScopeKey", scope.Key()))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Sequence < ret[j].Sequence })
	return ret, nil
}

// EffectiveCap returns the base cap of scope plus the delta of its current
// APPROVED request.
func (m *Manager) EffectiveCap(ctx context.Context, scope mpolicy.Scope) (*Cap, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	resolved, err := m.resolver.Resolve(scope.TeamID)
	if err != nil {
		return nil, err
	}
	var ret *Cap
	err = m.unit.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		ret, err = EffectiveCap(ctx, tx, resolved, scope.Dimension)
		return err
	})
	return ret, err
}

// Current returns the current request of scopeKey as seen by tx.
func Current(ctx context.Context, tx dao.Tx, scopeKey string) (*exception.CapException, error) {
	pointer, err := tx.ExceptionPointers().Load(ctx, scopeKey)
	if err != nil || pointer == nil || pointer.CurrentID == "" {
		return nil, err
	}
	return dao.MustLoad(ctx, tx.Exceptions(), pointer.CurrentID)
}

// EffectiveCap computes the effective cap of a team dimension inside tx.
// Configured is false when the policy defines no base cap for the scope.
func EffectiveCap(ctx context.Context, tx dao.Tx, resolved *mpolicy.Context, dimension string) (*Cap, error) {
	scope := mpolicy.Scope{TeamID: resolved.TeamID(), Dimension: dimension}
	ret := &Cap{Scope: scope}
	base, ok := resolved.SpendCap(dimension)
	if !ok {
		return ret, nil
	}
	ret.Configured = true
	ret.Base = base.Amount
	ret.Effective = base.Amount
	current, err := Current(ctx, tx, scope.Key())
	if err != nil {
		return nil, err
	}
	if current != nil && current.Active() && current.Status == exception.StatusApproved {
		ret.Delta = current.RequestedDelta
		ret.Effective += current.RequestedDelta
		ret.ExceptionID = current.ID
	}
	return ret, nil
}

func (m *Manager) notify(s *commit.Scope, n *notify.Notification) {
	if m.notifier == nil {
		return
	}
	s.AfterCommit(func(ctx context.Context) { m.notifier.Notify(ctx, n) })
}

func findMember(ctx context.Context, tx dao.Tx, teamID, userID string) (*role.Member, error) {
	members, err := tx.Members().List(ctx, dao.NewParameter("TeamID", teamID), dao.NewParameter("UserID", userID))
	if err != nil || len(members) == 0 {
		return nil, err
	}
	return members[0], nil
}

func notFound(err error, id string) error {
	if errors.Is(err, dao.ErrNotFound) {
		return fmt.Errorf("cap exception %s: %w", id, err)
	}
	return err
}
