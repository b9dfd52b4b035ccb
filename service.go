package fingov

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/fingov/model/exception"
	"github.com/viant/fingov/model/ledger"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/policy"
	"github.com/viant/fingov/service/approval"
	"github.com/viant/fingov/service/audit"
	auditfs "github.com/viant/fingov/service/audit/fs"
	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/dao/sqlite"
	"github.com/viant/fingov/service/dao/store"
	svcexception "github.com/viant/fingov/service/exception"
	"github.com/viant/fingov/service/lifecycle"
	"github.com/viant/fingov/service/lock"
	lockredis "github.com/viant/fingov/service/lock/redis"
	"github.com/viant/fingov/service/meta"
	"github.com/viant/fingov/service/notify"
	svcquorum "github.com/viant/fingov/service/quorum"
	"go.uber.org/zap"

	goredislib "github.com/redis/go-redis/v9"
)

// Service is the engine facade. It wires the policy catalog, the commit unit
// and the domain services, and exposes every governance operation.
type Service struct {
	config        *Config
	logger        *zap.Logger
	repo          dao.Repository
	locker        lock.Locker
	sender        notify.Sender
	sink          audit.Sink
	catalog       *policy.Catalog
	metaService   *meta.Service
	metaFsOptions []storage.Option

	redis      goredislib.UniversalClient
	unit       *commit.Unit
	runtime    *Runtime
	lifecycle  *lifecycle.Service
	exceptions *svcexception.Manager
	quorum     *svcquorum.Service
}

// New creates a Service. Components not supplied through options are built
// from the configuration. The catalog document, when configured, is loaded with ctx.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig(), logger: zap.NewNop()}
	for _, option := range options {
		option(ret)
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	if err := ret.ensureBaseSetup(ctx); err != nil {
		_ = ret.closeResources()
		return nil, err
	}
	ret.init()
	return ret, nil
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.config.Policy.BaseURL, s.metaFsOptions...)
	}
	if s.catalog == nil {
		catalog, err := s.loadCatalog(ctx, s.config.Policy.URL)
		if err != nil {
			return err
		}
		s.catalog = catalog
	}
	if s.repo == nil {
		switch s.config.Store.Driver {
		case StoreSQLite:
			repo, err := sqlite.NewStore(s.config.Store.Path)
			if err != nil {
				return err
			}
			s.repo = repo
		default:
			s.repo = store.NewRepository()
		}
	}
	if s.locker == nil {
		switch s.config.Lock.Driver {
		case LockRedis:
			cfg := s.config.Lock.Redis
			s.redis = goredislib.NewClient(&goredislib.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
			s.locker = lockredis.New(s.redis, cfg.Options, lockredis.WithLogger(s.logger))
		default:
			s.locker = lock.NewMemory(s.config.Lock.Wait)
		}
	}
	if s.sink == nil {
		if URL := s.config.Audit.URL; URL != "" {
			sink, err := auditfs.New(afs.New(), URL)
			if err != nil {
				return err
			}
			s.sink = sink
		} else {
			s.sink = audit.NewMemorySink()
		}
	}
	if s.sender == nil {
		s.sender = &notify.LogSender{Logger: s.logger}
	}
	dispatcher, err := notify.NewDispatcher(s.config.Notification, s.sender, s.logger)
	if err != nil {
		return err
	}
	s.runtime = &Runtime{dispatcher: dispatcher, sweepInterval: s.config.Audit.SweepInterval, logger: s.logger}
	return nil
}

func (s *Service) init() {
	recorder := audit.NewRecorder(s.repo, s.sink, s.logger)
	s.unit = commit.New(s.repo, s.locker,
		commit.WithLogger(s.logger),
		commit.WithRetry(s.config.Retry),
		commit.WithRelay(recorder))
	s.runtime.unit = s.unit
	s.runtime.recorder = recorder
	dispatcher := s.runtime.dispatcher
	s.lifecycle = lifecycle.New(s.unit, s.catalog,
		lifecycle.WithRouter(approval.NewRouter(approval.WithLogger(s.logger))),
		lifecycle.WithNotifier(dispatcher),
		lifecycle.WithLogger(s.logger))
	s.exceptions = svcexception.New(s.unit, s.catalog,
		svcexception.WithNotifier(dispatcher),
		svcexception.WithLogger(s.logger))
	s.quorum = svcquorum.New(s.unit, s.catalog,
		svcquorum.WithNotifier(dispatcher),
		svcquorum.WithLogger(s.logger))
}

func (s *Service) loadCatalog(ctx context.Context, location string) (*policy.Catalog, error) {
	if location == "" {
		return policy.NewCatalog(policy.DefaultConfig())
	}
	data, err := s.metaService.Download(ctx, location)
	if err != nil {
		return nil, err
	}
	cfg, err := policy.Load(data)
	if err != nil {
		return nil, fmt.Errorf("invalid policy catalog %v: %w", s.metaService.URL(location), err)
	}
	return policy.NewCatalog(cfg)
}

// LoadCatalog reads and validates the catalog document at location without installing it.
func (s *Service) LoadCatalog(ctx context.Context, location string) (*policy.Catalog, error) {
	return s.loadCatalog(ctx, location)
}

// Config returns the engine configuration.
func (s *Service) Config() *Config { return s.config }

// Catalog returns the policy catalog.
func (s *Service) Catalog() *policy.Catalog { return s.catalog }

// Repository returns the repository.
func (s *Service) Repository() dao.Repository { return s.repo }

// Runtime returns the background runtime.
func (s *Service) Runtime() *Runtime { return s.runtime }

// Logger returns the logger.
func (s *Service) Logger() *zap.Logger { return s.logger }

// Start launches notification delivery and audit redelivery.
func (s *Service) Start(ctx context.Context) error {
	return s.runtime.Start(ctx)
}

// Close stops background work and releases the repository and lock backend.
func (s *Service) Close(ctx context.Context) error {
	err := s.runtime.Shutdown(ctx)
	return errors.Join(err, s.closeResources())
}

func (s *Service) closeResources() error {
	var errs []error
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}

// Policy resolves the policy context of teamID.
func (s *Service) Policy(teamID string) (*mpolicy.Context, error) {
	return s.catalog.Resolve(teamID)
}

// EvaluateApprovalRequirement returns the number of approvals amount requires under tiers.
func (s *Service) EvaluateApprovalRequirement(amount int64, txType ledger.Type, tiers mpolicy.Tiers) approval.Requirement {
	return approval.Evaluate(amount, txType, tiers)
}

// ApprovalRequirement evaluates amount against the resolved tiers of teamID.
func (s *Service) ApprovalRequirement(teamID string, amount int64, txType ledger.Type) (approval.Requirement, error) {
	resolved, err := s.catalog.Resolve(teamID)
	if err != nil {
		return approval.Requirement{}, err
	}
	return approval.Evaluate(amount, txType, resolved.Tiers()), nil
}

// Submit records a new transaction.
func (s *Service) Submit(ctx context.Context, in *lifecycle.SubmitInput) (*lifecycle.Result, error) {
	return s.lifecycle.Submit(ctx, in)
}

// RouteApproval (re)creates the approval records of a transaction.
func (s *Service) RouteApproval(ctx context.Context, transactionID, creatorID string) ([]*ledger.Approval, error) {
	return s.lifecycle.Route(ctx, transactionID, creatorID)
}

// TransitionState applies action to a transaction.
func (s *Service) TransitionState(ctx context.Context, transactionID string, action lifecycle.Action, actor string, payload *lifecycle.Payload) (*lifecycle.Result, error) {
	return s.lifecycle.Transition(ctx, transactionID, action, actor, payload)
}

// Amend edits an editable transaction and re-evaluates it.
func (s *Service) Amend(ctx context.Context, transactionID, actor string, patch *lifecycle.Patch) (*lifecycle.Result, error) {
	return s.lifecycle.Amend(ctx, transactionID, actor, patch)
}

// CloseSeason locks the settled transactions of teamID; it fails while any is still open.
func (s *Service) CloseSeason(ctx context.Context, teamID, actor string) (*lifecycle.CloseResult, error) {
	return s.lifecycle.CloseSeason(ctx, teamID, actor)
}

// Transaction returns a transaction.
func (s *Service) Transaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	return s.lifecycle.Get(ctx, id)
}

// Approvals returns the approvals of a transaction.
func (s *Service) Approvals(ctx context.Context, transactionID string) ([]*ledger.Approval, error) {
	return s.lifecycle.Approvals(ctx, transactionID)
}

// SubmitException files a cap exception request, superseding the active one.
func (s *Service) SubmitException(ctx context.Context, scope mpolicy.Scope, delta int64, justification, requester string) (*exception.CapException, error) {
	return s.exceptions.Submit(ctx, scope, delta, justification, requester)
}

// DecideException approves or denies the current request of a scope.
func (s *Service) DecideException(ctx context.Context, id string, decision exception.Decision, reviewer, reason string) (*exception.CapException, error) {
	return s.exceptions.Decide(ctx, id, decision, reviewer, reason)
}

// CurrentException returns the active request of scope or nil.
func (s *Service) CurrentException(ctx context.Context, scope mpolicy.Scope) (*exception.CapException, error) {
	return s.exceptions.Current(ctx, scope)
}

// ExceptionHistory returns every request of scope in submission order.
func (s *Service) ExceptionHistory(ctx context.Context, scope mpolicy.Scope) ([]*exception.CapException, error) {
	return s.exceptions.History(ctx, scope)
}

// EffectiveCap returns the configured cap of scope raised by its approved exception.
func (s *Service) EffectiveCap(ctx context.Context, scope mpolicy.Scope) (*svcexception.Cap, error) {
	return s.exceptions.EffectiveCap(ctx, scope)
}

// EvaluateQuorum decides whether acks meet the threshold among eligible families.
func (s *Service) EvaluateQuorum(mode quorum.Mode, threshold int, eligible []string, acks []*quorum.Acknowledgment) (quorum.Result, error) {
	return svcquorum.Evaluate(mode, threshold, eligible, acks)
}

// Acknowledge records a family's budget acknowledgment.
func (s *Service) Acknowledge(ctx context.Context, budgetID, familyID string) (*quorum.Acknowledgment, error) {
	return s.quorum.Acknowledge(ctx, budgetID, familyID)
}

// LockBudget locks a budget once its acknowledgment quorum is met.
func (s *Service) LockBudget(ctx context.Context, budgetID, actor string) (*svcquorum.LockResult, error) {
	return s.quorum.LockBudget(ctx, budgetID, actor)
}

// SetQuorumThreshold overrides the quorum threshold of teamID within configured bounds.
func (s *Service) SetQuorumThreshold(teamID string, threshold int) error {
	return s.catalog.SetTeamQuorumOverride(teamID, threshold)
}

// Wait blocks until pending post-commit hooks finished, bounded by timeout.
func (s *Service) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.unit.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
