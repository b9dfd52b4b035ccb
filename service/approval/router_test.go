package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/dao/store"
)

func member(userID string, r role.Role) *role.Member {
	return &role.Member{ID: "m-" + userID, UserID: userID, TeamID: "team-1", Role: r, Active: true}
}

func TestRouter_Route(t *testing.T) {
	type testCase struct {
		name        string
		roster      []*role.Member
		creatorID   string
		required    int
		expected    []string
		expectError bool
		errContains string
	}
	tests := []testCase{
		{
			name:      "coach routed to treasurer",
			roster:    []*role.Member{member("coach", role.Coach), member("treas", role.Treasurer), member("asst", role.AssistantTreasurer)},
			creatorID: "coach",
			required:  1,
			expected:  []string{"treas"},
		},
		{
			name:      "treasurer routed to assistant",
			roster:    []*role.Member{member("treas", role.Treasurer), member("asst", role.AssistantTreasurer)},
			creatorID: "treas",
			required:  1,
			expected:  []string{"asst"},
		},
		{
			name:      "assistant routed to treasurer",
			roster:    []*role.Member{member("treas", role.Treasurer), member("asst", role.AssistantTreasurer)},
			creatorID: "asst",
			required:  1,
			expected:  []string{"treas"},
		},
		{
			name: "extra approvers in ascending id order",
			roster: []*role.Member{
				member("mgr", role.Manager), member("treas", role.Treasurer),
				member("pres", role.President), member("asst", role.AssistantTreasurer),
			},
			creatorID: "mgr",
			required:  3,
			expected:  []string{"treas", "asst", "pres"},
		},
		{
			name:        "missing assistant treasurer",
			roster:      []*role.Member{member("treas", role.Treasurer), member("pres", role.President)},
			creatorID:   "treas",
			required:    1,
			expectError: true,
		},
		{
			name:        "two treasurers",
			roster:      []*role.Member{member("coach", role.Coach), member("t1", role.Treasurer), member("t2", role.Treasurer)},
			creatorID:   "coach",
			required:    1,
			expectError: true,
		},
		{
			name:        "not enough eligible approvers",
			roster:      []*role.Member{member("coach", role.Coach), member("treas", role.Treasurer), member("mbr", role.TeamMember)},
			creatorID:   "coach",
			required:    2,
			expectError: true,
		},
		{
			name: "only treasurer is the creator",
			roster: []*role.Member{
				{ID: "m-x-coach", UserID: "x", TeamID: "team-1", Role: role.Coach, Active: true},
				{ID: "m-x-treas", UserID: "x", TeamID: "team-1", Role: role.Treasurer, Active: true},
				member("asst", role.AssistantTreasurer),
			},
			creatorID:   "x",
			required:    1,
			expectError: true,
			errContains: "cannot approve own expense",
		},
		{
			name:        "creator off roster",
			roster:      []*role.Member{member("treas", role.Treasurer)},
			creatorID:   "ghost",
			required:    1,
			expectError: true,
		},
		{
			name:      "nothing to route",
			roster:    []*role.Member{member("coach", role.Coach)},
			creatorID: "coach",
			required:  0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := store.NewRepository()
			transaction := &ledger.Transaction{ID: "tx-1", TeamID: "team-1", CreatorID: tc.creatorID, RequiredApprovals: tc.required}
			var routed []*ledger.Approval
			err := repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
				for _, m := range tc.roster {
					require.NoError(t, tx.Members().Save(ctx, m))
				}
				var err error
				routed, err = NewRouter().Route(ctx, tx, transaction, "", time.Now())
				return err
			})
			if tc.expectError {
				var configErr *types.ConfigurationError
				assert.ErrorAs(t, err, &configErr)
				if tc.errContains != "" {
					assert.ErrorContains(t, err, tc.errContains)
				}
				assert.Empty(t, routed)
				return
			}
			require.NoError(t, err)
			var approverIDs []string
			for _, approval := range routed {
				assert.NotEqual(t, tc.creatorID, approval.ApproverID)
				assert.Equal(t, ledger.ApprovalPending, approval.Status)
				approverIDs = append(approverIDs, approval.ApproverID)
			}
			assert.Equal(t, tc.expected, approverIDs)
		})
	}
}

func TestRouter_RouteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository()
	transaction := &ledger.Transaction{ID: "tx-1", TeamID: "team-1", CreatorID: "coach", RequiredApprovals: 1}
	router := NewRouter()
	require.NoError(t, repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		for _, m := range []*role.Member{member("coach", role.Coach), member("treas", role.Treasurer)} {
			if err := tx.Members().Save(ctx, m); err != nil {
				return err
			}
		}
		_, err := router.Route(ctx, tx, transaction, "coach", time.Now())
		return err
	}))
	require.NoError(t, repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		again, err := router.Route(ctx, tx, transaction, "coach", time.Now())
		require.NoError(t, err)
		require.Len(t, again, 1)
		all, err := tx.Approvals().List(ctx, dao.NewParameter("TransactionID", "tx-1"))
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	}))
}
