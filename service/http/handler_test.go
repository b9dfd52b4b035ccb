package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/dao"
	"github.com/viant/fingov/service/notify"
)

func newServer(t *testing.T) *httptest.Server {
	ctx := context.Background()
	srv, err := fingov.New(ctx, fingov.WithSender(&notify.MemorySender{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close(context.Background()) })
	_, err = srv.ImportRoster(ctx, &fingov.Roster{
		TeamID: "u11",
		Members: []fingov.RosterMember{
			{UserID: "coach", Role: role.Coach},
			{UserID: "treas", Role: role.Treasurer},
			{UserID: "asst", Role: role.AssistantTreasurer},
		},
		Families: []fingov.RosterFamily{{ID: "f1"}, {ID: "f2"}},
		Budgets:  []fingov.RosterBudget{{ID: "b1"}},
	})
	require.NoError(t, err)
	server := httptest.NewServer(New(srv).Router())
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, server *httptest.Server, method, path, body string) (int, map[string]interface{}) {
	req, err := http.NewRequest(method, server.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var ret map[string]interface{}
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&ret)
	}
	return resp.StatusCode, ret
}

func errorCode(body map[string]interface{}) string {
	detail, _ := body["error"].(map[string]interface{})
	code, _ := detail["code"].(string)
	return code
}

func TestHandler_TransactionFlow(t *testing.T) {
	server := newServer(t)
	type testCase struct {
		name         string
		method       string
		path         string
		body         string
		expectStatus int
		expectCode   string
	}
	tests := []testCase{
		{name: "health", method: http.MethodGet, path: "/health", expectStatus: http.StatusOK},
		{name: "requirement", method: http.MethodPost, path: "/requirements", body: `{"teamId":"u11","amount":30000,"type":"EXPENSE"}`, expectStatus: http.StatusOK},
		{name: "requirement bad type", method: http.MethodPost, path: "/requirements", body: `{"teamId":"u11","amount":1,"type":"GIFT"}`, expectStatus: http.StatusBadRequest, expectCode: CodeValidation},
		{name: "submit", method: http.MethodPost, path: "/transactions", body: `{"id":"tx-1","teamId":"u11","creatorId":"coach","categoryId":"gear","type":"EXPENSE","amount":30000,"paymentMethod":"EFT"}`, expectStatus: http.StatusCreated},
		{name: "submit duplicate", method: http.MethodPost, path: "/transactions", body: `{"id":"tx-1","teamId":"u11","creatorId":"coach","categoryId":"gear","type":"EXPENSE","amount":30000,"paymentMethod":"EFT"}`, expectStatus: http.StatusConflict, expectCode: CodeConflict},
		{name: "unknown field", method: http.MethodPost, path: "/transactions", body: `{"bogus":true}`, expectStatus: http.StatusBadRequest, expectCode: CodeValidation},
		{name: "self approval", method: http.MethodPost, path: "/transactions/tx-1/actions/approve", body: `{"actor":"coach"}`, expectStatus: http.StatusBadRequest, expectCode: CodeValidation},
		{name: "wrong approver", method: http.MethodPost, path: "/transactions/tx-1/actions/approve", body: `{"actor":"asst"}`, expectStatus: http.StatusUnprocessableEntity, expectCode: CodePrecondition},
		{name: "approve", method: http.MethodPost, path: "/transactions/tx-1/actions/approve", body: `{"actor":"treas","payload":{"comment":"ok"}}`, expectStatus: http.StatusOK},
		{name: "approve twice", method: http.MethodPost, path: "/transactions/tx-1/actions/approve", body: `{"actor":"treas"}`, expectStatus: http.StatusConflict, expectCode: CodeConflict},
		{name: "unknown action", method: http.MethodPost, path: "/transactions/tx-1/actions/explode", body: `{"actor":"treas"}`, expectStatus: http.StatusBadRequest, expectCode: CodeValidation},
		{name: "get", method: http.MethodGet, path: "/transactions/tx-1", expectStatus: http.StatusOK},
		{name: "approvals", method: http.MethodGet, path: "/transactions/tx-1/approvals", expectStatus: http.StatusOK},
		{name: "missing", method: http.MethodGet, path: "/transactions/nope", expectStatus: http.StatusNotFound, expectCode: CodeNotFound},
		{name: "close season", method: http.MethodPost, path: "/teams/u11/close", body: `{"actor":"treas"}`, expectStatus: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, server, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.expectStatus, status, "body: %v", body)
			if tc.expectCode != "" {
				assert.Equal(t, tc.expectCode, errorCode(body))
			}
		})
	}
}

func TestHandler_ExceptionsAndQuorum(t *testing.T) {
	server := newServer(t)

	status, body := call(t, server, http.MethodPost, "/exceptions", `{"scope":{"teamId":"u11","dimension":"travel"},"delta":5000,"justification":"tournament","requester":"coach"}`)
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	status, body = call(t, server, http.MethodPost, fmt.Sprintf("/exceptions/%s/decision", id), `{"decision":"maybe","reviewer":"treas"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, errorCode(body))

	status, body = call(t, server, http.MethodPost, fmt.Sprintf("/exceptions/%s/decision", id), `{"decision":"APPROVE","reviewer":"treas"}`)
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, "APPROVED", body["status"])

	status, body = call(t, server, http.MethodGet, "/teams/u11/exceptions?dimension=travel", "")
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, server, http.MethodPost, "/budgets/b1/lock", `{"actor":"treas"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, CodePrecondition, errorCode(body))

	status, _ = call(t, server, http.MethodPost, "/budgets/b1/acknowledgments", `{"familyId":"f1"}`)
	assert.Equal(t, http.StatusOK, status)
	status, body = call(t, server, http.MethodPost, "/budgets/b1/lock", `{"actor":"treas"}`)
	require.Equal(t, http.StatusOK, status, "body: %v", body)

	status, body = call(t, server, http.MethodPost, "/quorum/evaluate", `{"mode":"COUNT","threshold":2,"eligible":["f1","f2"],"acknowledged":["f1","f2"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["met"])

	status, body = call(t, server, http.MethodPost, "/quorum/evaluate", `{"mode":"PERCENT","threshold":0,"eligible":["f1"]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, server, http.MethodPut, "/teams/u11/quorum", `{"threshold":10}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, CodeConfiguration, errorCode(body))

	status, body = call(t, server, http.MethodPut, "/teams/u11/quorum", `{"threshold":75}`)
	require.Equal(t, http.StatusOK, status)
	governance, _ := body["governance"].(map[string]interface{})
	assert.EqualValues(t, 75, governance["threshold"])
}

func TestClassify(t *testing.T) {
	type testCase struct {
		name         string
		err          error
		expectStatus int
		expectCode   string
	}
	tests := []testCase{
		{name: "validation", err: types.NewValidationError("x", "bad"), expectStatus: http.StatusBadRequest, expectCode: CodeValidation},
		{name: "precondition", err: types.NewPreconditionFailure("EXCEPTION", types.Reason{Code: "x"}), expectStatus: http.StatusUnprocessableEntity, expectCode: CodePrecondition},
		{name: "conflict", err: types.NewConflictError("transaction", "1", "RESOLVED", "dup"), expectStatus: http.StatusConflict, expectCode: CodeConflict},
		{name: "configuration", err: types.NewConfigurationError("team/u11", "no treasurer"), expectStatus: http.StatusInternalServerError, expectCode: CodeConfiguration},
		{name: "retryable", err: &types.RetryableError{Op: "lock", Err: errors.New("timeout")}, expectStatus: http.StatusServiceUnavailable, expectCode: CodeRetryable},
		{name: "wrapped not found", err: fmt.Errorf("transaction 1: %w", dao.ErrNotFound), expectStatus: http.StatusNotFound, expectCode: CodeNotFound},
		{name: "internal", err: errors.New("boom"), expectStatus: http.StatusInternalServerError, expectCode: CodeInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, code, _ := classify(tc.err)
			assert.Equal(t, tc.expectStatus, status)
			assert.Equal(t, tc.expectCode, code)
		})
	}
}
