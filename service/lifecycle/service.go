// Package lifecycle moves transactions through their governed states.
//
// A transaction is IMPORTED on submission, then evaluated into VALIDATED (no
// approvals required and no severe violation) or EXCEPTION. An EXCEPTION is
// RESOLVED once its approvals are granted and every severe violation is fixed
// or overridden. Closing a season LOCKS every VALIDATED and RESOLVED
// transaction. IMPORTED and EXCEPTION transactions may be REJECTED.
//
// Every operation runs as one commit unit: the transaction lock is held, the
// gate is evaluated against fresh reads, and state, metadata and audit entries
// are written in one repository transaction. Notifications are sent only
// after the commit.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/fingov/internal/idgen"
	"github.com/viant/fingov/model/ledger"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/policy"
	"github.com/viant/fingov/service/approval"
	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/gate"
	"github.com/viant/fingov/service/lock"
	"github.com/viant/fingov/service/notify"
	"go.uber.org/zap"
)

const entityType = "transaction"

// Reason codes reported by lifecycle preconditions.
const (
	ReasonInstrumentRequired   = "instrument_required"
	ReasonNotAnApprover        = "not_an_approver"
	ReasonApprovalsIncomplete  = "approvals_incomplete"
	ReasonViolationsUnresolved = "violations_unresolved"
	ReasonNotEditable          = "not_editable"
	ReasonOpenTransactions     = "open_transactions"
)

// Service runs transaction lifecycle operations.
type Service struct {
	unit     *commit.Unit
	resolver policy.Resolver
	router   *approval.Router
	notifier notify.Notifier
	logger   *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithRouter sets the approver router.
func WithRouter(router *approval.Router) Option {
	return func(s *Service) {
		if router != nil {
			s.router = router
		}
	}
}

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
	if ret.router == nil {
		ret.router = approval.NewRouter(approval.WithLogger(ret.logger))
	}
	return ret
}

// snapshot returns a resolver that resolves a team's policy once per
// operation, preferring a snapshot already attached to ctx.
func (s *Service) snapshot(ctx context.Context) func(teamID string) (*mpolicy.Context, error) {
	var resolved *mpolicy.Context
	return func(teamID string) (*mpolicy.Context, error) {
		if resolved != nil && resolved.TeamID() == teamID {
			return resolved, nil
		}
		if attached := policy.FromContext(ctx); attached != nil && attached.TeamID() == teamID {
			resolved = attached
			return resolved, nil
		}
		var err error
		if resolved, err = s.resolver.Resolve(teamID); err != nil {
			return nil, err
		}
		return resolved, nil
	}
}

// Submit creates an IMPORTED transaction. Transactions not paid by cheque are
// evaluated in the same commit; cheques are evaluated on issuance.
func (s *Service) Submit(ctx context.Context, in *SubmitInput) (*Result, error) {
	if in == nil {
		return nil, types.NewValidationError("", "input is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id := in.ID
	if id == "" {
		id = idgen.Prefixed("txn")
	}
	resolve := s.snapshot(ctx)
	var ret *Result
	err := s.unit.Run(ctx, lock.Key(entityType, id), func(ctx context.Context, scope *commit.Scope) error {
		tx := scope.Tx()
		existing, err := tx.Transactions().Load(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			return types.NewConflictError(entityType, id, string(existing.Status), "already exists")
		}
		resolved, err := resolve(in.TeamID)
		if err != nil {
			return err
		}
		now := scope.Now()
		transaction := &ledger.Transaction{
			ID:            id,
			TeamID:        in.TeamID,
			CreatorID:     in.CreatorID,
			CategoryID:    strings.TrimSpace(in.CategoryID),
			Type:          in.Type,
			Amount:        in.Amount,
			Vendor:        in.Vendor,
			Description:   in.Description,
			PaymentMethod: in.PaymentMethod,
			Dimension:     in.Dimension,
			EvidenceIDs:   append([]string(nil), in.EvidenceIDs...),
			ManualReview:  in.ManualReview,
			Status:        ledger.StatusImported,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		requirement := approval.Evaluate(transaction.Amount, transaction.Type, resolved.Tiers())
		transaction.RequiredApprovals = requirement.RequiredApprovals
		if transaction.Violations, err = Violations(ctx, tx, resolved, transaction); err != nil {
			return err
		}
		if err = tx.Transactions().Save(ctx, transaction); err != nil {
			return err
		}
		if err = scope.Audit(ctx, "transaction.submit", entityType, id, in.CreatorID, nil, map[string]interface{}{
			"status":   string(transaction.Status),
			"type":     string(transaction.Type),
			"amount":   transaction.Amount,
			"revision": resolved.Revision(),
		}); err != nil {
			return err
		}
		ret = &Result{Transaction: transaction, NewState: transaction.Status, Requirement: &requirement}
		if transaction.PaymentMethod == ledger.PaymentCheque {
			return nil
		}
		ret, err = s.evaluate(ctx, scope, resolved, transaction, in.CreatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Transition applies action to transaction id on behalf of actor.
func (s *Service) Transition(ctx context.Context, id string, action Action, actor string, payload *Payload) (*Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, types.NewValidationError("actor", "is required")
	}
	if payload == nil {
		payload = &Payload{}
	}
	switch action {
	case ActionEvaluate, ActionApprove, ActionResolve:
	case ActionReject:
		if strings.TrimSpace(payload.Comment) == "" {
			return nil, types.NewValidationError("comment", "is required to reject")
		}
	case ActionIssue:
		if payload.Instrument == nil || strings.TrimSpace(payload.Instrument.Number) == "" {
			return nil, types.NewValidationError("instrument.number", "is required")
		}
	default:
		return nil, types.NewValidationError("action", "unsupported action %q", action)
	}
	resolve := s.snapshot(ctx)
	var ret *Result
	err := s.unit.Run(ctx, lock.Key(entityType, id), func(ctx context.Context, scope *commit.Scope) error {
		transaction, err := load(ctx, scope.Tx(), id)
		if err != nil {
			return err
		}
		resolved, err := resolve(transaction.TeamID)
		if err != nil {
			return err
		}
		switch action {
		case ActionEvaluate:
			ret, err = s.evaluateAction(ctx, scope, resolved, transaction, actor)
		case ActionIssue:
			ret, err = s.issue(ctx, scope, resolved, transaction, actor, payload.Instrument)
		case ActionApprove:
			ret, err = s.approve(ctx, scope, transaction, actor, payload)
		case ActionResolve:
			ret, err = s.resolve(ctx, scope, transaction, actor, payload)
		case ActionReject:
			ret, err = s.reject(ctx, scope, transaction, actor, payload)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("transaction transitioned",
		zap.String("entity_id", id),
		zap.String("action", string(action)),
		zap.String("state", string(ret.NewState)))
	return ret, nil
}

func (s *Service) evaluateAction(ctx context.Context, scope *commit.Scope, resolved *mpolicy.Context, transaction *ledger.Transaction, actor string) (*Result, error) {
	status := transaction.Status
	processed := status != ledger.StatusImported && status != ledger.StatusRejected
	if err := gate.New(gate.RequireState(entityType, transaction.ID, status, ledger.StatusImported, processed)).Check(ctx); err != nil {
		return nil, err
	}
	if transaction.PaymentMethod == ledger.PaymentCheque {
		return nil, types.NewPreconditionFailure(string(status), types.Reason{
			Code:    ReasonInstrumentRequired,
			Message: "cheque transactions are evaluated on instrument issuance",
		})
	}
	return s.evaluate(ctx, scope, resolved, transaction, actor)
}

// evaluate moves an IMPORTED transaction to VALIDATED or EXCEPTION and routes
// approvers when approvals are required.
func (s *Service) evaluate(ctx context.Context, scope *commit.Scope, resolved *mpolicy.Context, transaction *ledger.Transaction, actor string) (*Result, error) {
	tx := scope.Tx()
	previous := transaction.Status
	requirement := approval.Evaluate(transaction.Amount, transaction.Type, resolved.Tiers())
	transaction.RequiredApprovals = requirement.RequiredApprovals
	violations, err := Violations(ctx, tx, resolved, transaction)
	if err != nil {
		return nil, err
	}
	transaction.Violations = violations
	next := ledger.StatusValidated
	if transaction.RequiredApprovals > 0 || len(transaction.BlockingViolations()) > 0 {
		next = ledger.StatusException
	}
	if err = previous.Transition(next); err != nil {
		return nil, types.NewPreconditionFailure(string(previous), types.Reason{Code: gate.ReasonInvalidState, Message: err.Error()})
	}
	transaction.Status = next
	transaction.UpdatedAt = scope.Now()
	if err = tx.Transactions().Save(ctx, transaction); err != nil {
		return nil, err
	}
	ret := &Result{Transaction: transaction, PreviousState: previous, NewState: next, Requirement: &requirement}
	if next == ledger.StatusException && transaction.RequiredApprovals > 0 {
		if ret.Approvals, err = s.router.Route(ctx, tx, transaction, transaction.CreatorID, scope.Now()); err != nil {
			return nil, err
		}
		if err = s.notifyApprovers(ctx, scope, transaction, ret.Approvals); err != nil {
			return nil, err
		}
	}
	newValues := map[string]interface{}{
		"status":            string(next),
		"requiredApprovals": transaction.RequiredApprovals,
		"violations":        describe(transaction.Violations),
		"revision":          resolved.Revision(),
	}
	if requirement.Tier != nil {
		newValues["tier"] = requirement.Tier.String()
	}
	if err = scope.Audit(ctx, "transaction.evaluate", entityType, transaction.ID, actor,
		map[string]interface{}{"status": string(previous)}, newValues); err != nil {
		return nil, err
	}
	return ret, nil
}

// issue records the cheque of an IMPORTED transaction and evaluates it in the
// same commit.
func (s *Service) issue(ctx context.Context, scope *commit.Scope, resolved *mpolicy.Context, transaction *ledger.Transaction, actor string, input *InstrumentInput) (*Result, error) {
	tx := scope.Tx()
	existing, err := tx.Instruments().Load(ctx, transaction.ID)
	if err != nil {
		return nil, err
	}
	issued := 0
	if existing != nil {
		issued = 1
	}
	status := transaction.Status
	checklist := gate.New(
		gate.RequireSigners(input.Signers, resolved.RequiredSigners(), status),
		gate.RequirePaymentMethod(transaction.PaymentMethod, ledger.PaymentCheque, status),
		gate.RequireState(entityType, transaction.ID, status, ledger.StatusImported, issued > 0),
		gate.RequireUnique("instrument", transaction.ID, issued, status),
		gate.RequireEvidence(transaction, resolved.EvidenceThreshold()),
	)
	if err = checklist.Check(ctx); err != nil {
		return nil, err
	}
	instrument := &ledger.Instrument{
		TransactionID: transaction.ID,
		Number:        strings.TrimSpace(input.Number),
		Method:        ledger.PaymentCheque,
		Signers:       append([]ledger.Signer(nil), input.Signers...),
		IssuedBy:      actor,
		IssuedAt:      scope.Now(),
	}
	if err = tx.Instruments().Save(ctx, instrument); err != nil {
		return nil, err
	}
	if err = scope.Audit(ctx, "instrument.issue", "instrument", transaction.ID, actor, nil, map[string]interface{}{
		"number":  instrument.Number,
		"signers": len(instrument.Signers),
	}); err != nil {
		return nil, err
	}
	ret, err := s.evaluate(ctx, scope, resolved, transaction, actor)
	if err != nil {
		return nil, err
	}
	ret.Instrument = instrument
	return ret, nil
}

func (s *Service) approve(ctx context.Context, scope *commit.Scope, transaction *ledger.Transaction, actor string, payload *Payload) (*Result, error) {
	tx := scope.Tx()
	if actor == transaction.CreatorID {
		return nil, types.NewValidationError("actor", "creator cannot approve own transaction")
	}
	status := transaction.Status
	processed := status == ledger.StatusResolved || status == ledger.StatusLocked
	if err := gate.New(gate.RequireState(entityType, transaction.ID, status, ledger.StatusException, processed)).Check(ctx); err != nil {
		return nil, err
	}
	approvals, err := tx.Approvals().List(ctx, dao.NewParameter("TransactionID", transaction.ID))
	if err != nil {
		return nil, err
	}
	var mine *ledger.Approval
	for _, candidate := range approvals {
		if candidate.ApproverID == actor {
			mine = candidate
			break
		}
	}
	if mine == nil {
		return nil, types.NewPreconditionFailure(string(status), types.Reason{
			Code:    ReasonNotAnApprover,
			Message: fmt.Sprintf("%s is not a routed approver", actor),
		})
	}
	if mine.Status != ledger.ApprovalPending {
		return nil, types.NewConflictError("approval", mine.ID, string(mine.Status), "already decided")
	}
	if mine.ApproverID == mine.CreatorID {
		return nil, types.NewConfigurationError("team/"+transaction.TeamID, "approval %s routed to its creator", mine.ID)
	}
	now := scope.Now()
	mine.Status = ledger.ApprovalApproved
	mine.Comment = strings.TrimSpace(payload.Comment)
	mine.ApprovedAt = &now
	if err = tx.Approvals().Save(ctx, mine); err != nil {
		return nil, err
	}
	if err = scope.Audit(ctx, "approval.approve", "approval", mine.ID, actor,
		map[string]interface{}{"status": string(ledger.ApprovalPending)},
		map[string]interface{}{"status": string(mine.Status), "transactionId": transaction.ID, "comment": mine.Comment}); err != nil {
		return nil, err
	}
	override(transaction, payload.Justification)
	ret := &Result{Transaction: transaction, PreviousState: status, NewState: status, Approvals: approvals}
	if granted(approvals) >= transaction.RequiredApprovals && len(transaction.BlockingViolations()) == 0 {
		if err = s.markResolved(ctx, scope, transaction, actor, "transaction.approve"); err != nil {
			return nil, err
		}
		ret.NewState = transaction.Status
		return ret, nil
	}
	transaction.UpdatedAt = now
	if err = tx.Transactions().Save(ctx, transaction); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) resolve(ctx context.Context, scope *commit.Scope, transaction *ledger.Transaction, actor string, payload *Payload) (*Result, error) {
	tx := scope.Tx()
	if err := s.requireReviewer(ctx, tx, transaction, actor); err != nil {
		return nil, err
	}
	status := transaction.Status
	processed := status == ledger.StatusResolved || status == ledger.StatusLocked
	if err := gate.New(gate.RequireState(entityType, transaction.ID, status, ledger.StatusException, processed)).Check(ctx); err != nil {
		return nil, err
	}
	approvals, err := tx.Approvals().List(ctx, dao.NewParameter("TransactionID", transaction.ID))
	if err != nil {
		return nil, err
	}
	if count := granted(approvals); count < transaction.RequiredApprovals {
		return nil, types.NewPreconditionFailure(string(status), types.Reason{
			Code:    ReasonApprovalsIncomplete,
			Message: fmt.Sprintf("%d of %d approvals granted", count, transaction.RequiredApprovals),
		})
	}
	if blocking := transaction.BlockingViolations(); len(blocking) > 0 {
		if strings.TrimSpace(payload.Justification) == "" {
			return nil, types.NewPreconditionFailure(string(status), types.Reason{
				Code:    ReasonViolationsUnresolved,
				Message: "override justification required for " + describe(blocking),
			})
		}
		override(transaction, payload.Justification)
	}
	if err = s.markResolved(ctx, scope, transaction, actor, "transaction.resolve"); err != nil {
		return nil, err
	}
	return &Result{Transaction: transaction, PreviousState: status, NewState: transaction.Status, Approvals: approvals}, nil
}

func (s *Service) reject(ctx context.Context, scope *commit.Scope, transaction *ledger.Transaction, actor string, payload *Payload) (*Result, error) {
	tx := scope.Tx()
	if err := s.requireReviewer(ctx, tx, transaction, actor); err != nil {
		return nil, err
	}
	previous := transaction.Status
	if previous == ledger.StatusRejected {
		return nil, types.NewConflictError(entityType, transaction.ID, string(previous), "already rejected")
	}
	if err := previous.Transition(ledger.StatusRejected); err != nil {
		return nil, types.NewPreconditionFailure(string(previous), types.Reason{Code: gate.ReasonInvalidState, Message: err.Error()})
	}
	comment := strings.TrimSpace(payload.Comment)
	approvals, err := tx.Approvals().List(ctx, dao.NewParameter("TransactionID", transaction.ID))
	if err != nil {
		return nil, err
	}
	for _, candidate := range approvals {
		if candidate.ApproverID != actor || candidate.Status != ledger.ApprovalPending {
			continue
		}
		candidate.Status = ledger.ApprovalRejected
		candidate.Comment = comment
		if err = tx.Approvals().Save(ctx, candidate); err != nil {
			return nil, err
		}
	}
	transaction.Status = ledger.StatusRejected
	transaction.UpdatedAt = scope.Now()
	if err = tx.Transactions().Save(ctx, transaction); err != nil {
		return nil, err
	}
	if err = scope.Audit(ctx, "transaction.reject", entityType, transaction.ID, actor,
		map[string]interface{}{"status": string(previous)},
		map[string]interface{}{"status": string(transaction.Status), "comment": comment}); err != nil {
		return nil, err
	}
	if err = s.notifyCreator(ctx, scope, transaction, notify.KindTransactionRejected, comment); err != nil {
		return nil, err
	}
	return &Result{Transaction: transaction, PreviousState: previous, NewState: transaction.Status, Approvals: approvals}, nil
}

func (s *Service) markResolved(ctx context.Context, scope *commit.Scope, transaction *ledger.Transaction, actor, action string) error {
	previous := transaction.Status
	if err := previous.Transition(ledger.StatusResolved); err != nil {
		return types.NewPreconditionFailure(string(previous), types.Reason{Code: gate.ReasonInvalidState, Message: err.Error()})
	}
	transaction.Status = ledger.StatusResolved
	transaction.UpdatedAt = scope.Now()
	if err := scope.Tx().Transactions().Save(ctx, transaction); err != nil {
		return err
	}
	if err := scope.Audit(ctx, action, entityType, transaction.ID, actor,
		map[string]interface{}{"status": string(previous)},
		map[string]interface{}{
			"status":                string(transaction.Status),
			"overrideJustification": transaction.OverrideJustification,
			"violations":            describe(transaction.Violations),
		}); err != nil {
		return err
	}
	return s.notifyCreator(ctx, scope, transaction, notify.KindTransactionResolved, "")
}

// requireReviewer checks that actor is an active approver-eligible member of
// the transaction's team other than its creator.
func (s *Service) requireReviewer(ctx context.Context, tx dao.Tx, transaction *ledger.Transaction, actor string) error {
	if actor == transaction.CreatorID {
		return types.NewValidationError("actor", "creator cannot review own transaction")
	}
	members, err := tx.Members().List(ctx,
		dao.NewParameter("TeamID", transaction.TeamID),
		dao.NewParameter("UserID", actor),
		dao.NewParameter("Active", "true"))
	if err != nil {
		return err
	}
	for _, member := range members {
		if member.Role.CanApprove() {
			return nil
		}
	}
	return types.NewValidationError("actor", "%s is not an approver-eligible member of team %s", actor, transaction.TeamID)
}

// Amend edits an IMPORTED or EXCEPTION transaction and recomputes its
// violations.
func (s *Service) Amend(ctx context.Context, id, actor string, patch *Patch) (*Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, types.NewValidationError("actor", "is required")
	}
	if patch.Empty() {
		return nil, types.NewValidationError("patch", "no changes")
	}
	resolve := s.snapshot(ctx)
	var ret *Result
	err := s.unit.Run(ctx, lock.Key(entityType, id), func(ctx context.Context, scope *commit.Scope) error {
		tx := scope.Tx()
		transaction, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !transaction.Status.Editable() {
			return types.NewPreconditionFailure(string(transaction.Status), types.Reason{
				Code:    ReasonNotEditable,
				Message: fmt.Sprintf("transactions in state %s cannot be edited", transaction.Status),
			})
		}
		resolved, err := resolve(transaction.TeamID)
		if err != nil {
			return err
		}
		before := describe(transaction.Violations)
		changed := patch.apply(transaction)
		if transaction.Violations, err = Violations(ctx, tx, resolved, transaction); err != nil {
			return err
		}
		transaction.UpdatedAt = scope.Now()
		if err = tx.Transactions().Save(ctx, transaction); err != nil {
			return err
		}
		changed["violations"] = describe(transaction.Violations)
		if err = scope.Audit(ctx, "transaction.amend", entityType, id, actor,
			map[string]interface{}{"violations": before}, changed); err != nil {
			return err
		}
		ret = &Result{Transaction: transaction, PreviousState: transaction.Status, NewState: transaction.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Route (re)routes approvers of an EXCEPTION transaction, reusing approvals
// that already exist.
func (s *Service) Route(ctx context.Context, id, creatorID string) ([]*ledger.Approval, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewValidationError("id", "is required")
	}
	var ret []*ledger.Approval
	err := s.unit.Run(ctx, lock.Key(entityType, id), func(ctx context.Context, scope *commit.Scope) error {
		tx := scope.Tx()
		transaction, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if creatorID != "" && creatorID != transaction.CreatorID {
			return types.NewValidationError("creatorId", "%s did not create transaction %s", creatorID, id)
		}
		if transaction.Status != ledger.StatusException {
			return types.NewPreconditionFailure(string(transaction.Status), types.Reason{
				Code:    gate.ReasonInvalidState,
				Message: fmt.Sprintf("expected state %s, found %s", ledger.StatusException, transaction.Status),
			})
		}
		if ret, err = s.router.Route(ctx, tx, transaction, transaction.CreatorID, scope.Now()); err != nil {
			return err
		}
		var created []*ledger.Approval
		for _, routed := range ret {
			if routed.CreatedAt.Equal(scope.Now()) {
				created = append(created, routed)
			}
		}
		if len(created) == 0 {
			return nil
		}
		if err = s.notifyApprovers(ctx, scope, transaction, created); err != nil {
			return err
		}
		approverIDs := make([]string, 0, len(created))
		for _, routed := range created {
			approverIDs = append(approverIDs, routed.ApproverID)
		}
		return scope.Audit(ctx, "transaction.route", entityType, id, transaction.CreatorID, nil,
			map[string]interface{}{"approvers": strings.Join(approverIDs, ",")})
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// CloseSeason locks every VALIDATED and RESOLVED transaction of teamID. It
// fails without changes while any transaction is IMPORTED or EXCEPTION.
func (s *Service) CloseSeason(ctx context.Context, teamID, actor string) (*CloseResult, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, types.NewValidationError("teamId", "is required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, types.NewValidationError("actor", "is required")
	}
	var ret *CloseResult
	err := s.unit.Run(ctx, lock.Key("season", teamID), func(ctx context.Context, scope *commit.Scope) error {
		tx := scope.Tx()
		transactions, err := tx.Transactions().List(ctx, dao.NewParameter("TeamID", teamID))
		if err != nil {
			return err
		}
		var open []string
		for _, transaction := range transactions {
			if transaction.Status.Editable() {
				open = append(open, transaction.ID)
			}
		}
		if len(open) > 0 {
			sort.Strings(open)
			return types.NewPreconditionFailure("", types.Reason{
				Code:    ReasonOpenTransactions,
				Message: fmt.Sprintf("%d transaction(s) still open: %s", len(open), strings.Join(open, ", ")),
			})
		}
		ret = &CloseResult{TeamID: teamID, Locked: []string{}}
		for _, transaction := range transactions {
			if !transaction.Status.Closable() {
				continue
			}
			previous := transaction.Status
			transaction.Status = ledger.StatusLocked
			transaction.UpdatedAt = scope.Now()
			if err = tx.Transactions().Save(ctx, transaction); err != nil {
				return err
			}
			if err = scope.Audit(ctx, "transaction.lock", entityType, transaction.ID, actor,
				map[string]interface{}{"status": string(previous)},
				map[string]interface{}{"status": string(transaction.Status)}); err != nil {
				return err
			}
			ret.Locked = append(ret.Locked, transaction.ID)
		}
		sort.Strings(ret.Locked)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("season closed", zap.String("team_id", teamID), zap.Int("locked", len(ret.Locked)))
	return ret, nil
}

// Get returns transaction id.
func (s *Service) Get(ctx context.Context, id string) (*ledger.Transaction, error) {
	var ret *ledger.Transaction
	err := s.unit.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		var err error
		ret, err = load(ctx, tx, id)
		return err
	})
	return ret, err
}

// Approvals returns the approvals routed for transaction id.
func (s *Service) Approvals(ctx context.Context, id string) ([]*ledger.Approval, error) {
	var ret []*ledger.Approval
	err := s.unit.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		if _, err := load(ctx, tx, id); err != nil {
			return err
		}
		var err error
		ret, err = tx.Approvals().List(ctx, dao.NewParameter("TransactionID", id))
		return err
	})
	return ret, err
}

func (s *Service) notifyApprovers(ctx context.Context, scope *commit.Scope, transaction *ledger.Transaction, approvals []*ledger.Approval) error {
	if s.notifier == nil || len(approvals) == 0 {
		return nil
	}
	emails, err := rosterEmails(ctx, scope.Tx(), transaction.TeamID)
	if err != nil {
		return err
	}
	for _, routed := range approvals {
		if routed.Status != ledger.ApprovalPending {
			continue
		}
		n := &notify.Notification{
			Kind:           notify.KindApprovalRequested,
			RecipientID:    routed.ApproverID,
			RecipientEmail: emails[routed.ApproverID],
			CreatorID:      transaction.CreatorID,
			TeamID:         transaction.TeamID,
			EntityID:       transaction.ID,
			Amount:         transaction.Amount,
			Vendor:         transaction.Vendor,
			CategoryID:     transaction.CategoryID,
			Status:         string(transaction.Status),
		}
		scope.AfterCommit(func(ctx context.Context) { s.notifier.Notify(ctx, n) })
	}
	return nil
}

func (s *Service) notifyCreator(ctx context.Context, scope *commit.Scope, transaction *ledger.Transaction, kind, comment string) error {
	if s.notifier == nil {
		return nil
	}
	emails, err := rosterEmails(ctx, scope.Tx(), transaction.TeamID)
	if err != nil {
		return err
	}
	n := &notify.Notification{
		Kind:           kind,
		RecipientID:    transaction.CreatorID,
		RecipientEmail: emails[transaction.CreatorID],
		CreatorID:      transaction.CreatorID,
		TeamID:         transaction.TeamID,
		EntityID:       transaction.ID,
		Amount:         transaction.Amount,
		Vendor:         transaction.Vendor,
		CategoryID:     transaction.CategoryID,
		Status:         string(transaction.Status),
		Comment:        comment,
	}
	scope.AfterCommit(func(ctx context.Context) { s.notifier.Notify(ctx, n) })
	return nil
}

func rosterEmails(ctx context.Context, tx dao.Tx, teamID string) (map[string]string, error) {
	members, err := tx.Members().List(ctx, dao.NewParameter("TeamID", teamID))
	if err != nil {
		return nil, err
	}
	ret := make(map[string]string, len(members))
	for _, member := range members {
		if member.Email != "" {
			ret[member.UserID] = member.Email
		}
	}
	return ret, nil
}

func load(ctx context.Context, tx dao.Tx, id string) (*ledger.Transaction, error) {
	ret, err := dao.MustLoad(ctx, tx.Transactions(), id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", id, err)
	}
	return ret, err
}

func granted(approvals []*ledger.Approval) int {
	ret := 0
	for _, candidate := range approvals {
		if candidate.Status == ledger.ApprovalApproved {
			ret++
		}
	}
	return ret
}

// override marks blocking violations as overridden when justification is set.
func override(transaction *ledger.Transaction, justification string) {
	justification = strings.TrimSpace(justification)
	if justification == "" || len(transaction.BlockingViolations()) == 0 {
		return
	}
	for i := range transaction.Violations {
		if transaction.Violations[i].Blocking() {
			transaction.Violations[i].Overridden = true
		}
	}
	transaction.OverrideJustification = justification
}
