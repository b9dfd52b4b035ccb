// Package fingov provides a financial governance and approval rule engine for
// team ledgers.
//
// The engine decides whether a transaction needs approvals or evidence, routes
// it to eligible approvers, gates every lifecycle transition behind its
// preconditions, manages spend-cap exceptions and decides budget locks by
// family acknowledgment quorum. Every state change commits under an entity
// lock together with its audit entries; notifications and audit delivery run
// after commit.
//
//	srv, _ := fingov.New(ctx, fingov.WithConfig(cfg))
//	_ = srv.Start(ctx)
//	defer srv.Close(ctx)
//	res, _ := srv.Submit(ctx, &lifecycle.SubmitInput{TeamID: "u11", CreatorID: "coach", Type: ledger.TypeExpense, Amount: 12500, PaymentMethod: ledger.PaymentEFT})
//	_, _ = srv.TransitionState(ctx, res.Transaction.ID, lifecycle.ActionApprove, "treasurer", nil)
package fingov
