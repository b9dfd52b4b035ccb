package quorum

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/policy"
	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/lock"
	"github.com/viant/fingov/service/notify"
	"go.uber.org/zap"
)

// ReasonQuorumNotMet is reported when a budget lock lacks acknowledgments.
const ReasonQuorumNotMet = "quorum_not_met"

const entityType = "budget"

// LockResult is the outcome of a successful budget lock.
type LockResult struct {
	Budget *ledger.Budget `json:"budget"`
	Quorum quorum.Result  `json:"quorum"`
}

// Service records acknowledgments and locks budgets.
type Service struct {
	unit     *commit.Unit
	resolver policy.Resolver
	notifier notify.Notifier
	logger   *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithNotifier sets the notifier used after commits.
func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service.
func New(unit *commit.Unit, resolver policy.Resolver, opts ...Option) *Service {
	ret := &Service{unit: unit, resolver: resolver, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// AcknowledgmentID returns the deterministic id of a family's acknowledgment.
func AcknowledgmentID(budgetID, familyID string) string {
	return budgetID + ":" + familyID
}

// Acknowledge records familyID's acknowledgment of budgetID. Repeated calls
// return the existing acknowledgment.
func (s *Service) Acknowledge(ctx context.Context, budgetID, familyID string) (*quorum.Acknowledgment, error) {
	if strings.TrimSpace(budgetID) == "" {
		return nil, types.NewValidationError("budgetId", "is required")
	}
	if strings.TrimSpace(familyID) == "" {
		return nil, types.NewValidationError("familyId", "is required")
	}
	var ret *quorum.Acknowledgment
	err := s.unit.Run(ctx, lock.Key(entityType, budgetID), func(ctx context.Context, scope *commit.Scope) error {
		tx := scope.Tx()
		budget, err := loadBudget(ctx, tx, budgetID)
		if err != nil {
			return err
		}
		if budget.Status == ledger.BudgetLocked {
			return types.NewPreconditionFailure(string(budget.Status), types.Reason{Code: "budget_locked", Message: "budget is already locked"})
		}
		family, err := tx.Families().Load(ctx, familyID)
		if err != nil {
			return err
		}
		if family == nil || family.TeamID != budget.TeamID || !family.Active {
			return types.NewValidationError("familyId", "%s is not an active family of team %s", familyID, budget.TeamID)
		}
		id := AcknowledgmentID(budgetID, familyID)
		existing, err := tx.Acknowledgments().Load(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil && existing.Acknowledged {
			ret = existing
			return nil
		}
		if existing == nil {
			existing = &quorum.Acknowledgment{ID: id, BudgetID: budgetID, FamilyID: familyID}
		}
		now := scope.Now()
		existing.Acknowledged = true
		existing.AcknowledgedAt = &now
		if err = tx.Acknowledgments().Save(ctx, existing); err != nil {
			return err
		}
		ret = existing
		return scope.Audit(ctx, "budget.acknowledge", entityType, budgetID, familyID, nil,
			map[string]interface{}{"familyId": familyID, "acknowledged": true})
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// LockBudget evaluates the team's quorum rules against the active roster and
// locks the budget when they are met.
func (s *Service) LockBudget(ctx context.Context, budgetID, actor string) (*LockResult, error) {
	if strings.TrimSpace(budgetID) == "" {
		return nil, types.NewValidationError("budgetId", "is required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, types.NewValidationError("actor", "is required")
	}
	var ret *LockResult
	err := s.unit.Run(ctx, lock.Key(entityType, budgetID), func(ctx context.Context, scope *commit.Scope) error {
		tx := scope.Tx()
		budget, err := loadBudget(ctx, tx, budgetID)
		if err != nil {
			return err
		}
		if budget.Status == ledger.BudgetLocked {
			return types.NewConflictError(entityType, budgetID, string(budget.Status), "already locked")
		}
		resolved, err := s.resolver.Resolve(budget.TeamID)
		if err != nil {
			return err
		}
		rules := resolved.Governance()
		families, err := tx.Families().List(ctx,
			dao.NewParameter("TeamID", budget.TeamID),
			dao.NewParameter("Active", "true"))
		if err != nil {
			return err
		}
		eligible := make([]string, 0, len(families))
		for _, family := range families {
			eligible = append(eligible, family.ID)
		}
		acks, err := tx.Acknowledgments().List(ctx, dao.NewParameter("BudgetID", budgetID))
		if err != nil {
			return err
		}
		result, err := Evaluate(rules.Mode, rules.Threshold, eligible, acks)
		if err != nil {
			return types.NewConfigurationError("team/"+budget.TeamID, "%v", err)
		}
		if !result.Met {
			message := fmt.Sprintf("%d of %d families acknowledged (%s%%), %s threshold %d",
				result.Count, result.Eligible, result.Percent.StringFixed(2), rules.Mode, rules.Threshold)
			return types.NewPreconditionFailure(string(budget.Status), types.Reason{Code: ReasonQuorumNotMet, Message: message})
		}
		previous := budget.Status
		now := scope.Now()
		budget.Status = ledger.BudgetLocked
		budget.LockedAt = &now
		budget.LockedBy = actor
		if err = tx.Budgets().Save(ctx, budget); err != nil {
			return err
		}
		if err = scope.Audit(ctx, "budget.lock", entityType, budgetID, actor,
			map[string]interface{}{"status": string(previous)},
			map[string]interface{}{
				"status":    string(budget.Status),
				"count":     result.Count,
				"eligible":  result.Eligible,
				"percent":   result.Percent.StringFixed(2),
				"mode":      string(rules.Mode),
				"threshold": rules.Threshold,
				"revision":  resolved.Revision(),
			}); err != nil {
			return err
		}
		if s.notifier != nil {
			n := &notify.Notification{
				Kind:        notify.KindBudgetLocked,
				RecipientID: actor,
				TeamID:      budget.TeamID,
				EntityID:    budgetID,
				Status:      string(budget.Status),
			}
			scope.AfterCommit(func(ctx context.Context) { s.notifier.Notify(ctx, n) })
		}
		ret = &LockResult{Budget: budget, Quorum: result}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("budget locked", zap.String("entity_id", budgetID), zap.String("actor", actor))
	return ret, nil
}

func loadBudget(ctx context.Context, tx dao.Tx, id string) (*ledger.Budget, error) {
	ret, err := dao.MustLoad(ctx, tx.Budgets(), id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("budget %s: %w", id, err)
	}
	return ret, err
}
