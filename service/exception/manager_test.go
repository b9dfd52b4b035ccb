package exception

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/model/exception"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/policy"
	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/dao/store"
	"github.com/viant/fingov/service/notify"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n *notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ret []string
	for _, n := range r.sent {
		ret = append(ret, n.Kind+":"+n.RecipientID)
	}
	return ret
}

func newManager(t *testing.T) (*Manager, *commit.Unit, *recordingNotifier) {
	cfg := policy.DefaultConfig()
	cfg.Teams["team-1"] = policy.TeamConfig{SpendCaps: []policy.Cap{{Dimension: "travel", Amount: 100000}}}
	catalog, err := policy.NewCatalog(cfg)
	require.NoError(t, err)
	repo := store.NewRepository()
	require.NoError(t, repo.InTx(context.Background(), func(ctx context.Context, tx dao.Tx) error {
		for _, m := range []*role.Member{
			{ID: "m1", UserID: "coach", TeamID: "team-1", Role: role.Coach, Active: true},
			{ID: "m2", UserID: "treas", TeamID: "team-1", Role: role.Treasurer, Active: true},
		} {
			if err := tx.Members().Save(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}))
	unit := commit.New(repo, nil)
	notifier := &recordingNotifier{}
	return New(unit, catalog, WithNotifier(notifier)), unit, notifier
}

var travel = mpolicy.Scope{TeamID: "team-1", Dimension: "travel"}

func TestManager_SubmitValidation(t *testing.T) {
	type testCase struct {
		name          string
		scope         mpolicy.Scope
		delta         int64
		justification string
		field         string
	}
	tests := []testCase{
		{name: "zero delta", scope: travel, delta: 0, justification: "tournament", field: "requestedDelta"},
		{name: "negative delta", scope: travel, delta: -5, justification: "tournament", field: "requestedDelta"},
		{name: "blank justification", scope: travel, delta: 10, justification: "  ", field: "justification"},
		{name: "missing team", scope: mpolicy.Scope{Dimension: "travel"}, delta: 10, justification: "x", field: "scope.teamId"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			manager, _, _ := newManager(t)
			_, err := manager.Submit(context.Background(), tc.scope, tc.delta, tc.justification, "coach")
			var validationErr *types.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestManager_Supersession(t *testing.T) {
	ctx := context.Background()
	manager, unit, notifier := newManager(t)

	first, err := manager.Submit(ctx, travel, 20000, "regional tournament", "coach")
	require.NoError(t, err)
	_, err = manager.Decide(ctx, first.ID, exception.DecisionApprove, "treas", "ok")
	require.NoError(t, err)

	effective, err := manager.EffectiveCap(ctx, travel)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), effective.Effective)
	assert.Equal(t, first.ID, effective.ExceptionID)

	second, err := manager.Submit(ctx, travel, 50000, "provincial final", "coach")
	require.NoError(t, err)
	assert.Equal(t, exception.StatusPending, second.Status)

	current, err := manager.Current(ctx, travel)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	effective, err = manager.EffectiveCap(ctx, travel)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), effective.Effective, "superseded approval no longer applies")

	history, err := manager.History(ctx, travel)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[0].SupersededBy)
	assert.NotNil(t, history[0].SupersededAt)
	assert.Equal(t, exception.StatusSuperseded, history[0].Status)
	assert.False(t, history[0].Active())
	assert.False(t, history[1].Superseded())
	assert.True(t, history[1].Active())

	var active int
	require.NoError(t, unit.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		for _, status := range []exception.Status{exception.StatusPending, exception.StatusApproved} {
			rows, err := tx.Exceptions().List(ctx,
				dao.NewParameter("ScopeKey", travel.Key()),
				dao.NewParameter("Status", string(status)))
			if err != nil {
				return err
			}
			active += len(rows)
		}
		return nil
	}))
	assert.Equal(t, 1, active, "exactly one pending or approved record per scope")

	_, err = manager.Decide(ctx, first.ID, exception.DecisionApprove, "treas", "")
	var conflict *types.ConflictError
	assert.ErrorAs(t, err, &conflict)

	unit.Wait()
	assert.ElementsMatch(t, []string{
		notify.KindExceptionSubmitted + ":treas",
		notify.KindExceptionDecided + ":coach",
		notify.KindExceptionSubmitted + ":treas",
	}, notifier.kinds())
}

func TestManager_Decide(t *testing.T) {
	type testCase struct {
		name         string
		decision     exception.Decision
		reviewer     string
		expectStatus exception.Status
		expectErr    interface{}
		hasCurrent   bool
	}
	tests := []testCase{
		{name: "approve", decision: exception.DecisionApprove, reviewer: "treas", expectStatus: exception.StatusApproved, hasCurrent: true},
		{name: "deny clears current", decision: exception.DecisionDeny, reviewer: "treas", expectStatus: exception.StatusDenied},
		{name: "self review", decision: exception.DecisionApprove, reviewer: "coach", expectErr: &types.ValidationError{}, hasCurrent: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			manager, _, _ := newManager(t)
			submitted, err := manager.Submit(ctx, travel, 1000, "extra game", "coach")
			require.NoError(t, err)
			decided, err := manager.Decide(ctx, submitted.ID, tc.decision, tc.reviewer, "reason")
			if tc.expectErr != nil {
				var validationErr *types.ValidationError
				assert.ErrorAs(t, err, &validationErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectStatus, decided.Status)
				assert.NotNil(t, decided.DecidedAt)
			}
			current, err := manager.Current(ctx, travel)
			require.NoError(t, err)
			assert.Equal(t, tc.hasCurrent, current != nil)
		})
	}
}

func TestManager_DecideTwice(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newManager(t)
	submitted, err := manager.Submit(ctx, travel, 1000, "extra game", "coach")
	require.NoError(t, err)
	_, err = manager.Decide(ctx, submitted.ID, exception.DecisionDeny, "treas", "")
	require.NoError(t, err)
	_, err = manager.Decide(ctx, submitted.ID, exception.DecisionApprove, "treas", "")
	var conflict *types.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, string(exception.StatusDenied), conflict.CurrentState)

	_, err = manager.Decide(ctx, "missing", exception.DecisionApprove, "treas", "")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
}

func TestManager_EffectiveCapWithoutBase(t *testing.T) {
	manager, _, _ := newManager(t)
	effective, err := manager.EffectiveCap(context.Background(), mpolicy.Scope{TeamID: "team-1", Dimension: "gear"})
	require.NoError(t, err)
	assert.False(t, effective.Configured)
}
