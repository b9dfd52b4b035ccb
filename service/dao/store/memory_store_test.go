package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/service/dao"
)

func TestMemoryStore_Save(t *testing.T) {
	type testCase struct {
		name        string
		seed        []*ledger.Transaction
		input       *ledger.Transaction
		expectErr   error
		expectedVer int64
	}
	tests := []testCase{
		{
			name:        "create with zero version",
			input:       &ledger.Transaction{ID: "tx-1"},
			expectedVer: 1,
		},
		{
			name:        "update with current version",
			seed:        []*ledger.Transaction{{ID: "tx-1"}},
			input:       &ledger.Transaction{ID: "tx-1", Version: 1},
			expectedVer: 2,
		},
		{
			name:      "stale update",
			seed:      []*ledger.Transaction{{ID: "tx-1"}},
			input:     &ledger.Transaction{ID: "tx-1"},
			expectErr: dao.ErrStaleVersion,
		},
		{
			name:      "update of missing record",
			input:     &ledger.Transaction{ID: "tx-1", Version: 3},
			expectErr: dao.ErrStaleVersion,
		},
		{
			name:      "empty id",
			input:     &ledger.Transaction{},
			expectErr: dao.ErrInvalidID,
		},
		{
			name:      "nil entity",
			expectErr: dao.ErrNilEntity,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			srv := NewMemoryStore[string, ledger.Transaction](dao.TransactionKey)
			for _, s := range tc.seed {
				require.NoError(t, srv.Save(ctx, s))
			}
			err := srv.Save(ctx, tc.input)
			if tc.expectErr != nil {
				assert.True(t, errors.Is(err, tc.expectErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedVer, tc.input.Version)
			loaded, err := srv.Load(ctx, tc.input.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedVer, loaded.Version)
		})
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryStore[string, ledger.Transaction](dao.TransactionKey)
	tx := &ledger.Transaction{ID: "tx-1", EvidenceIDs: []string{"doc-1"}}
	require.NoError(t, srv.Save(ctx, tx))

	tx.EvidenceIDs[0] = "mutated"
	loaded, err := srv.Load(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", loaded.EvidenceIDs[0])

	loaded.Amount = 999
	again, err := srv.Load(ctx, "tx-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, again.Amount)

	missing, err := srv.Load(ctx, "tx-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryStore[string, ledger.Transaction](dao.TransactionKey)
	for _, tx := range []*ledger.Transaction{
		{ID: "c", TeamID: "t1", Status: ledger.StatusImported},
		{ID: "a", TeamID: "t1", Status: ledger.StatusException},
		{ID: "b", TeamID: "t2", Status: ledger.StatusImported},
	} {
		require.NoError(t, srv.Save(ctx, tx))
	}

	type testCase struct {
		name       string
		parameters []*dao.Parameter
		expected   []string
	}
	tests := []testCase{
		{name: "all ordered by key", expected: []string{"a", "b", "c"}},
		{name: "by team", parameters: []*dao.Parameter{dao.NewParameter("TeamID", "t1")}, expected: []string{"a", "c"}},
		{
			name: "by team and status",
			parameters: []*dao.Parameter{
				dao.NewParameter("TeamID", "t1"),
				dao.NewParameter("Status", string(ledger.StatusImported)),
			},
			expected: []string{"c"},
		},
		{name: "unknown field", parameters: []*dao.Parameter{dao.NewParameter("Nope", "x")}, expected: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, err := srv.List(ctx, tc.parameters...)
			require.NoError(t, err)
			ids := make([]string, 0, len(list))
			for _, item := range list {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestRepository_InTx(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	err := repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		if err := tx.Transactions().Save(ctx, &ledger.Transaction{ID: "tx-1", TeamID: "t1"}); err != nil {
			return err
		}
		loaded, err := tx.Transactions().Load(ctx, "tx-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		list, err := tx.Transactions().List(ctx, dao.NewParameter("TeamID", "t1"))
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	})
	require.NoError(t, err)

	failure := errors.New("boom")
	err = repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		current, err := dao.MustLoad(ctx, tx.Transactions(), "tx-1")
		if err != nil {
			return err
		}
		current.Amount = 500
		if err := tx.Transactions().Save(ctx, current); err != nil {
			return err
		}
		if err := tx.Approvals().Save(ctx, &ledger.Approval{ID: "ap-1", TransactionID: "tx-1"}); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)

	err = repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		current, err := dao.MustLoad(ctx, tx.Transactions(), "tx-1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, current.Amount)
		assert.EqualValues(t, 1, current.Version)
		approval, err := tx.Approvals().Load(ctx, "ap-1")
		require.NoError(t, err)
		assert.Nil(t, approval)

		require.NoError(t, tx.Transactions().Delete(ctx, "tx-1"))
		list, err := tx.Transactions().List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
		return nil
	})
	require.NoError(t, err)

	_ = repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error {
		_, err := dao.MustLoad(ctx, tx.Transactions(), "tx-1")
		assert.ErrorIs(t, err, dao.ErrNotFound)
		return nil
	})
}

func TestRepository_InTxCancelled(t *testing.T) {
	repo := NewRepository()
	hold := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = repo.InTx(context.Background(), func(ctx context.Context, tx dao.Tx) error {
			close(entered)
			<-hold
			return nil
		})
	}()
	<-entered
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.InTx(ctx, func(ctx context.Context, tx dao.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	close(hold)
}
