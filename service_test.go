package fingov

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/fingov/model/exception"
	"github.com/viant/fingov/model/ledger"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/audit"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/lifecycle"
	"github.com/viant/fingov/service/notify"
)

const team = "u11"

var roster = &Roster{
	TeamID: team,
	Members: []RosterMember{
		{UserID: "coach", Role: role.Coach, Email: "coach@example.org"},
		{UserID: "treas", Role: role.Treasurer, Email: "treas@example.org"},
		{UserID: "asst", Role: role.AssistantTreasurer},
	},
	Families: []RosterFamily{{ID: "f1"}, {ID: "f2"}, {ID: "f3"}},
	Budgets:  []RosterBudget{{ID: "b1", Season: "2026"}},
}

type fixture struct {
	srv    *Service
	sender *notify.MemorySender
	sink   *audit.MemorySink
}

func newFixture(t *testing.T, options ...Option) *fixture {
	ctx := context.Background()
	ret := &fixture{sender: &notify.MemorySender{}, sink: audit.NewMemorySink()}
	options = append([]Option{WithSender(ret.sender), WithSink(ret.sink)}, options...)
	srv, err := New(ctx, options...)
	require.NoError(t, err)
	require.NoError(t, srv.Start(ctx))
	t.Cleanup(func() { _ = srv.Close(context.Background()) })
	_, err = srv.ImportRoster(ctx, roster)
	require.NoError(t, err)
	ret.srv = srv
	return ret
}

func TestService_ExpenseApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	requirement, err := f.srv.ApprovalRequirement(team, 30000, ledger.TypeExpense)
	require.NoError(t, err)
	assert.Equal(t, 1, requirement.RequiredApprovals)

	result, err := f.srv.Submit(ctx, &lifecycle.SubmitInput{
		ID:            "tx-1",
		TeamID:        team,
		CreatorID:     "coach",
		CategoryID:    "equipment",
		Type:          ledger.TypeExpense,
		Amount:        30000,
		PaymentMethod: ledger.PaymentEFT,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusException, result.NewState)
	require.Len(t, result.Approvals, 1)
	assert.Equal(t, "treas", result.Approvals[0].ApproverID)

	result, err = f.srv.TransitionState(ctx, "tx-1", lifecycle.ActionApprove, "treas", &lifecycle.Payload{Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusResolved, result.NewState)

	require.NoError(t, f.srv.Close(ctx))
	actions := map[string]bool{}
	for _, entry := range f.sink.Entries() {
		actions[entry.Action] = true
	}
	assert.True(t, actions["roster.import"])
	assert.True(t, actions["transaction.submit"])
	assert.True(t, actions["transaction.approve"])

	recipients := map[string]bool{}
	for _, message := range f.sender.Messages() {
		recipients[message.RecipientID] = true
	}
	assert.True(t, recipients["treas"], "approver notified")
	assert.True(t, recipients["coach"], "creator notified")
}

func TestService_Exception(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scope := mpolicy.Scope{TeamID: team, Dimension: "travel"}

	submitted, err := f.srv.SubmitException(ctx, scope, 20000, "tournament travel", "coach")
	require.NoError(t, err)
	assert.Equal(t, exception.StatusPending, submitted.Status)

	decided, err := f.srv.DecideException(ctx, submitted.ID, exception.DecisionApprove, "treas", "")
	require.NoError(t, err)
	assert.Equal(t, exception.StatusApproved, decided.Status)

	current, err := f.srv.CurrentException(ctx, scope)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, submitted.ID, current.ID)

	history, err := f.srv.ExceptionHistory(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestService_BudgetQuorum(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.srv.Acknowledge(ctx, "b1", "f1")
	require.NoError(t, err)
	_, err = f.srv.LockBudget(ctx, "b1", "treas")
	failure, ok := types.AsPrecondition(err)
	require.True(t, ok, "one of three families is below the threshold")
	assert.Equal(t, string(ledger.BudgetProposed), failure.CurrentState)

	_, err = f.srv.Acknowledge(ctx, "b1", "f2")
	require.NoError(t, err)
	locked, err := f.srv.LockBudget(ctx, "b1", "treas")
	require.NoError(t, err)
	assert.Equal(t, ledger.BudgetLocked, locked.Budget.Status)
	assert.True(t, locked.Quorum.Met)
	assert.Equal(t, "66.67", locked.Quorum.Percent.StringFixed(2))

	result, err := f.srv.EvaluateQuorum(quorum.ModeCount, 2, []string{"f1", "f2"}, []*quorum.Acknowledgment{{FamilyID: "f1", Acknowledged: true}})
	require.NoError(t, err)
	assert.False(t, result.Met)
}

func TestService_CatalogFromURL(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	baseURL := "mem://localhost/fingov/service"
	catalog := `
defaults:
  tiers:
    - min: 0
      max: 10000
      requiredApprovals: 1
    - min: 10001
      requiredApprovals: 2
teams:
  u11:
    evidenceThreshold: 25000
`
	require.NoError(t, fs.Upload(ctx, baseURL+"/policy.yaml", 0644, strings.NewReader(catalog)))
	cfg := DefaultConfig()
	cfg.Policy.BaseURL = baseURL
	cfg.Policy.URL = "policy.yaml"
	f := newFixture(t, WithConfig(cfg))

	requirement, err := f.srv.ApprovalRequirement(team, 20000, ledger.TypeExpense)
	require.NoError(t, err)
	assert.Equal(t, 2, requirement.RequiredApprovals)
	resolved, err := f.srv.Policy(team)
	require.NoError(t, err)
	assert.EqualValues(t, 25000, resolved.EvidenceThreshold())

	require.NoError(t, fs.Upload(ctx, baseURL+"/broken.yaml", 0644, strings.NewReader("defaults:\n  unknownKey: 1\n")))
	_, err = f.srv.LoadCatalog(ctx, "broken.yaml")
	assert.Error(t, err)
}

func TestService_LoadRoster(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	baseURL := "mem://localhost/fingov/roster"
	document := `
teamId: u13
members:
  - userId: coach13
    role: COACH
  - userId: treas13
    role: treasurer
families:
  - id: g1
`
	require.NoError(t, fs.Upload(ctx, baseURL+"/u13.yaml", 0644, strings.NewReader(document)))
	cfg := DefaultConfig()
	cfg.Policy.BaseURL = baseURL
	f := newFixture(t, WithConfig(cfg))

	result, err := f.srv.LoadRoster(ctx, "u13.yaml")
	require.NoError(t, err)
	assert.Equal(t, &RosterResult{TeamID: "u13", Members: 2, Families: 1}, result)

	require.NoError(t, f.srv.Repository().InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		member, err := dao.MustLoad(ctx, tx.Members(), MemberID("u13", "treas13"))
		require.NoError(t, err)
		assert.Equal(t, role.Treasurer, member.Role)
		assert.True(t, member.Active)
		return nil
	}))

	_, err = f.srv.ImportRoster(ctx, &Roster{TeamID: "u13", Families: []RosterFamily{{ID: "f1"}}})
	var conflict *types.ConflictError
	assert.True(t, errors.As(err, &conflict), "family f1 belongs to u11")
}

func TestRoster_Validate(t *testing.T) {
	type testCase struct {
		name      string
		roster    *Roster
		expectErr bool
	}
	tests := []testCase{
		{name: "valid", roster: roster},
		{name: "missing team", roster: &Roster{}, expectErr: true},
		{name: "missing role", roster: &Roster{TeamID: team, Members: []RosterMember{{UserID: "x"}}}, expectErr: true},
		{name: "duplicate user", roster: &Roster{TeamID: team, Members: []RosterMember{{UserID: "x", Role: role.Coach}, {UserID: "x", Role: role.TeamMember}}}, expectErr: true},
		{name: "missing budget id", roster: &Roster{TeamID: team, Budgets: []RosterBudget{{Season: "2026"}}}, expectErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.roster.Validate()
			if tc.expectErr {
				var validationErr *types.ValidationError
				assert.ErrorAs(t, err, &validationErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_Wait(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.srv.Wait(time.Second))
}
