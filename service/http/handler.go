// Package http exposes the governance engine as JSON endpoints.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viant/fingov"
	"github.com/viant/fingov/model/exception"
	"github.com/viant/fingov/model/ledger"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/approval"
	svcexception "github.com/viant/fingov/service/exception"
	"github.com/viant/fingov/service/lifecycle"
	svcquorum "github.com/viant/fingov/service/quorum"
	"go.uber.org/zap"
)

// Engine is the subset of fingov.Service served over HTTP.
type Engine interface {
	Policy(teamID string) (*mpolicy.Context, error)
	ApprovalRequirement(teamID string, amount int64, txType ledger.Type) (approval.Requirement, error)
	Submit(ctx context.Context, in *lifecycle.SubmitInput) (*lifecycle.Result, error)
	Transaction(ctx context.Context, id string) (*ledger.Transaction, error)
	Approvals(ctx context.Context, transactionID string) ([]*ledger.Approval, error)
	RouteApproval(ctx context.Context, transactionID, creatorID string) ([]*ledger.Approval, error)
	TransitionState(ctx context.Context, transactionID string, action lifecycle.Action, actor string, payload *lifecycle.Payload) (*lifecycle.Result, error)
	Amend(ctx context.Context, transactionID, actor string, patch *lifecycle.Patch) (*lifecycle.Result, error)
	CloseSeason(ctx context.Context, teamID, actor string) (*lifecycle.CloseResult, error)
	ImportRoster(ctx context.Context, roster *fingov.Roster) (*fingov.RosterResult, error)
	SetQuorumThreshold(teamID string, threshold int) error
	SubmitException(ctx context.Context, scope mpolicy.Scope, delta int64, justification, requester string) (*exception.CapException, error)
	DecideException(ctx context.Context, id string, decision exception.Decision, reviewer, reason string) (*exception.CapException, error)
	ExceptionHistory(ctx context.Context, scope mpolicy.Scope) ([]*exception.CapException, error)
	EffectiveCap(ctx context.Context, scope mpolicy.Scope) (*svcexception.Cap, error)
	EvaluateQuorum(mode quorum.Mode, threshold int, eligible []string, acks []*quorum.Acknowledgment) (quorum.Result, error)
	Acknowledge(ctx context.Context, budgetID, familyID string) (*quorum.Acknowledgment, error)
	LockBudget(ctx context.Context, budgetID, actor string) (*svcquorum.LockResult, error)
}

// Handler serves the engine endpoints.
type Handler struct {
	engine Engine
	logger *zap.Logger
}

// Option customises a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a Handler.
func New(engine Engine, opts ...Option) *Handler {
	ret := &Handler{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Router returns the chi router with every endpoint mounted.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(traced)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/requirements", h.requirement)
	r.Post("/quorum/evaluate", h.evaluateQuorum)
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.submit)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.transaction)
			r.Patch("/", h.amend)
			r.Get("/approvals", h.approvals)
			r.Post("/route", h.route)
			r.Post("/actions/{action}", h.transition)
		})
	})
	r.Route("/teams/{teamId}", func(r chi.Router) {
		r.Get("/policy", h.policy)
		r.Put("/roster", h.roster)
		r.Put("/quorum", h.quorumThreshold)
		r.Post("/close", h.closeSeason)
		r.Get("/caps", h.effectiveCap)
		r.Get("/exceptions", h.exceptionHistory)
	})
	r.Route("/exceptions", func(r chi.Router) {
		r.Post("/", h.submitException)
		r.Post("/{id}/decision", h.decideException)
	})
	r.Route("/budgets/{id}", func(r chi.Router) {
		r.Post("/acknowledgments", h.acknowledge)
		r.Post("/lock", h.lockBudget)
	})
	return r
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, details := classify(err)
	message := err.Error()
	if code == CodeInternal {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		message = http.StatusText(status)
	} else {
		h.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.String("code", code), zap.Error(err))
	}
	writeError(w, r, status, code, message, details)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

type requirementRequest struct {
	TeamID string      `json:"teamId"`
	Amount int64       `json:"amount"`
	Type   ledger.Type `json:"type"`
}

func (h *Handler) requirement(w http.ResponseWriter, r *http.Request) {
	req := &requirementRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !req.Type.Valid() {
		h.fail(w, r, types.NewValidationError("type", "unsupported transaction type %q", req.Type))
		return
	}
	ret, err := h.engine.ApprovalRequirement(req.TeamID, req.Amount, req.Type)
	h.respond(w, r, http.StatusOK, ret, err)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	in := &lifecycle.SubmitInput{}
	if err := readJSON(r, in); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.Submit(r.Context(), in)
	h.respond(w, r, http.StatusCreated, ret, err)
}

func (h *Handler) transaction(w http.ResponseWriter, r *http.Request) {
	ret, err := h.engine.Transaction(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, ret, err)
}

func (h *Handler) approvals(w http.ResponseWriter, r *http.Request) {
	ret, err := h.engine.Approvals(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, ret, err)
}

type amendRequest struct {
	Actor string           `json:"actor"`
	Patch *lifecycle.Patch `json:"patch"`
}

func (h *Handler) amend(w http.ResponseWriter, r *http.Request) {
	req := &amendRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.Amend(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Patch)
	h.respond(w, r, http.StatusOK, ret, err)
}

type routeRequest struct {
	CreatorID string `json:"creatorId"`
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	req := &routeRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.RouteApproval(r.Context(), chi.URLParam(r, "id"), req.CreatorID)
	h.respond(w, r, http.StatusOK, ret, err)
}

type transitionRequest struct {
	Actor   string             `json:"actor"`
	Payload *lifecycle.Payload `json:"payload,omitempty"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	action, err := lifecycle.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req := &transitionRequest{}
	if err = readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.TransitionState(r.Context(), chi.URLParam(r, "id"), action, req.Actor, req.Payload)
	h.respond(w, r, http.StatusOK, ret, err)
}

func (h *Handler) policy(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.engine.Policy(chi.URLParam(r, "teamId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved.Snapshot())
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	roster := &fingov.Roster{}
	if err := readJSON(r, roster); err != nil {
		h.fail(w, r, err)
		return
	}
	if teamID := chi.URLParam(r, "teamId"); roster.TeamID == "" {
		roster.TeamID = teamID
	} else if roster.TeamID != teamID {
		h.fail(w, r, types.NewValidationError("teamId", "body team %q does not match path team %q", roster.TeamID, teamID))
		return
	}
	ret, err := h.engine.ImportRoster(r.Context(), roster)
	h.respond(w, r, http.StatusOK, ret, err)
}

type quorumThresholdRequest struct {
	Threshold int `json:"threshold"`
}

func (h *Handler) quorumThreshold(w http.ResponseWriter, r *http.Request) {
	req := &quorumThresholdRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	teamID := chi.URLParam(r, "teamId")
	if err := h.engine.SetQuorumThreshold(teamID, req.Threshold); err != nil {
		h.fail(w, r, err)
		return
	}
	h.policy(w, r)
}

type actorRequest struct {
	Actor string `json:"actor"`
}

func (h *Handler) closeSeason(w http.ResponseWriter, r *http.Request) {
	req := &actorRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.CloseSeason(r.Context(), chi.URLParam(r, "teamId"), req.Actor)
	h.respond(w, r, http.StatusOK, ret, err)
}

func scopeOf(r *http.Request) mpolicy.Scope {
	return mpolicy.Scope{TeamID: chi.URLParam(r, "teamId"), Dimension: r.URL.Query().Get("dimension")}
}

func (h *Handler) effectiveCap(w http.ResponseWriter, r *http.Request) {
	ret, err := h.engine.EffectiveCap(r.Context(), scopeOf(r))
	h.respond(w, r, http.StatusOK, ret, err)
}

func (h *Handler) exceptionHistory(w http.ResponseWriter, r *http.Request) {
	ret, err := h.engine.ExceptionHistory(r.Context(), scopeOf(r))
	h.respond(w, r, http.StatusOK, ret, err)
}

type exceptionRequest struct {
	Scope         mpolicy.Scope `json:"scope"`
	Delta         int64         `json:"delta"`
	Justification string        `json:"justification"`
	Requester     string        `json:"requester"`
}

func (h *Handler) submitException(w http.ResponseWriter, r *http.Request) {
	req := &exceptionRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.SubmitException(r.Context(), req.Scope, req.Delta, req.Justification, req.Requester)
	h.respond(w, r, http.StatusCreated, ret, err)
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason,omitempty"`
}

func (h *Handler) decideException(w http.ResponseWriter, r *http.Request) {
	req := &decisionRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	decision, err := exception.ParseDecision(req.Decision)
	if err != nil {
		h.fail(w, r, types.NewValidationError("decision", "%v", err))
		return
	}
	ret, err := h.engine.DecideException(r.Context(), chi.URLParam(r, "id"), decision, req.Reviewer, req.Reason)
	h.respond(w, r, http.StatusOK, ret, err)
}

type quorumRequest struct {
	Mode         quorum.Mode `json:"mode"`
	Threshold    int         `json:"threshold"`
	Eligible     []string    `json:"eligible"`
	Acknowledged []string    `json:"acknowledged"`
}

func (h *Handler) evaluateQuorum(w http.ResponseWriter, r *http.Request) {
	req := &quorumRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	acks := make([]*quorum.Acknowledgment, 0, len(req.Acknowledged))
	for _, familyID := range req.Acknowledged {
		acks = append(acks, &quorum.Acknowledgment{FamilyID: familyID, Acknowledged: true})
	}
	ret, err := h.engine.EvaluateQuorum(req.Mode, req.Threshold, req.Eligible, acks)
	h.respond(w, r, http.StatusOK, ret, err)
}

type acknowledgeRequest struct {
	FamilyID string `json:"familyId"`
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	req := &acknowledgeRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.Acknowledge(r.Context(), chi.URLParam(r, "id"), req.FamilyID)
	h.respond(w, r, http.StatusOK, ret, err)
}

func (h *Handler) lockBudget(w http.ResponseWriter, r *http.Request) {
	req := &actorRequest{}
	if err := readJSON(r, req); err != nil {
		h.fail(w, r, err)
		return
	}
	ret, err := h.engine.LockBudget(r.Context(), chi.URLParam(r, "id"), req.Actor)
	h.respond(w, r, http.StatusOK, ret, err)
}
