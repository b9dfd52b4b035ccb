package approval

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/viant/fingov/internal/idgen"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/dao"
	"go.uber.org/zap"
)

// Router assigns approvers to expenses awaiting approval.
type Router struct {
	logger *zap.Logger
}

// NewRouter creates a Router.
func NewRouter(opts ...Option) *Router {
	ret := &Router{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Route creates one pending approval per required approver of transaction.
// The primary approver is the single active holder of the role paired with the
// creator's role; extra approvers are the remaining approver-eligible members
// in ascending user id order. Approvals already routed are reused. Roster
// reads and writes go through tx so they commit together.
func (r *Router) Route(ctx context.Context, tx dao.Tx, transaction *ledger.Transaction, creatorID string, now time.Time) ([]*ledger.Approval, error) {
	if creatorID == "" {
		creatorID = transaction.CreatorID
	}
	if transaction.RequiredApprovals <= 0 {
		return nil, nil
	}
	scope := "team/" + transaction.TeamID
	roster, err := tx.Members().List(ctx,
		dao.NewParameter("TeamID", transaction.TeamID),
		dao.NewParameter("Active", strconv.FormatBool(true)))
	if err != nil {
		return nil, err
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].UserID == roster[j].UserID {
			return roster[i].ID < roster[j].ID
		}
		return roster[i].UserID < roster[j].UserID
	})

	var creator *role.Member
	for _, member := range roster {
		if member.UserID == creatorID {
			creator = member
			break
		}
	}
	if creator == nil {
		return nil, types.NewConfigurationError(scope, "creator %s is not an active team member", creatorID)
	}
	paired := role.Pair(creator.Role)
	var holders []*role.Member
	for _, member := range roster {
		if member.Role == paired {
			holders = append(holders, member)
		}
	}
	switch {
	case len(holders) == 0:
		return nil, types.NewConfigurationError(scope, "no active %s to approve expenses of %s", paired, creator.Role)
	case len(holders) > 1:
		return nil, types.NewConfigurationError(scope, "%d active members hold role %s, expected exactly one", len(holders), paired)
	case holders[0].UserID == creatorID:
		return nil, types.NewConfigurationError(scope, "%s %s cannot approve own expense", paired, creatorID)
	}

	approverIDs := []string{holders[0].UserID}
	chosen := map[string]bool{creatorID: true, holders[0].UserID: true}
	for _, member := range roster {
		if len(approverIDs) >= transaction.RequiredApprovals {
			break
		}
		if chosen[member.UserID] || !member.Role.CanApprove() {
			continue
		}
		chosen[member.UserID] = true
		approverIDs = append(approverIDs, member.UserID)
	}
	if len(approverIDs) < transaction.RequiredApprovals {
		return nil, types.NewConfigurationError(scope, "%d approvals required but only %d eligible approvers", transaction.RequiredApprovals, len(approverIDs))
	}

	existing, err := tx.Approvals().List(ctx, dao.NewParameter("TransactionID", transaction.ID))
	if err != nil {
		return nil, err
	}
	routed := make(map[string]*ledger.Approval, len(existing))
	for _, approval := range existing {
		routed[approval.ApproverID] = approval
	}
	ret := make([]*ledger.Approval, 0, len(approverIDs))
	for _, approverID := range approverIDs {
		if approval, ok := routed[approverID]; ok {
			ret = append(ret, approval)
			continue
		}
		approval, err := ledger.NewApproval(idgen.Prefixed("apr"), transaction.ID, approverID, creatorID, now)
		if err != nil {
			return nil, err
		}
		if err = tx.Approvals().Save(ctx, approval); err != nil {
			return nil, err
		}
		ret = append(ret, approval)
	}
	r.logger.Debug("approvers routed",
		zap.String("transaction_id", transaction.ID),
		zap.Strings("approver_ids", approverIDs))
	return ret, nil
}
