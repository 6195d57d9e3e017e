package main

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doControlRequest(t *testing.T, handler http.HandlerFunc, method, body string) (*httptest.ResponseRecorder, controlResponse) {
	t.Helper()
	req := httptest.NewRequest(method, "/control/whatever", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	var resp controlResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHandleAdvanceSlotDefaultsToOneAndAdvances(t *testing.T) {
	n := newTestNode(t)
	rec, resp := doControlRequest(t, handleAdvanceSlot(n), http.MethodPost, `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(1), resp.Slot)
}

func TestHandleAdvanceSlotHonorsCount(t *testing.T) {
	n := newTestNode(t)
	_, resp := doControlRequest(t, handleAdvanceSlot(n), http.MethodPost, `{"count":3}`)

	assert.Equal(t, uint64(3), resp.Slot)
}

func TestHandleAdvanceSlotRejectsWrongMethod(t *testing.T) {
	n := newTestNode(t)
	rec, resp := doControlRequest(t, handleAdvanceSlot(n), http.MethodGet, ``)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, resp.Success)
}

func TestHandleSetRootRequiresValidBody(t *testing.T) {
	n := newTestNode(t)
	n.AdvanceSlot()

	rec, _ := doControlRequest(t, handleSetRoot(n), http.MethodPost, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := doControlRequest(t, handleSetRoot(n), http.MethodPost, `{"slot":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(1), n.ledger.HighestConfirmedRoot())
}

func TestHandleReorgDiscardsAboveTarget(t *testing.T) {
	n := newTestNode(t)
	n.AdvanceSlot()
	n.AdvanceSlot()

	rec, resp := doControlRequest(t, handleReorg(n), http.MethodPost, `{"to_slot":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	_, ok := n.ledger.Get(2)
	assert.False(t, ok)
}

func TestHandleSetAccountDecodesBase64DataAndStages(t *testing.T) {
	n := newTestNode(t)
	data := base64.StdEncoding.EncodeToString([]byte("hello"))

	rec, resp := doControlRequest(t, handleSetAccount(n), http.MethodPost,
		`{"pubkey":"alice","owner":"prog","lamports":5,"data":"`+data+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	slot := n.AdvanceSlot()
	bank, ok := n.ledger.Get(slot)
	require.True(t, ok)
	acc, _, found := bank.GetAccountModifiedSlot("alice")
	require.True(t, found)
	assert.Equal(t, []byte("hello"), acc.Data)
	assert.Equal(t, uint64(5), acc.Lamports)
}

func TestHandleSetAccountRejectsInvalidBase64(t *testing.T) {
	n := newTestNode(t)
	rec, resp := doControlRequest(t, handleSetAccount(n), http.MethodPost,
		`{"pubkey":"alice","data":"not-base64!!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestHandleVoteSimulatesNotification(t *testing.T) {
	n := newTestNode(t)
	rec, resp := doControlRequest(t, handleVote(n), http.MethodPost, `{"slots":[1,2,3]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestHandleBlockConnectionsDefaultsDuration(t *testing.T) {
	rec, resp := doControlRequest(t, handleBlockConnections, http.MethodPost, `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}
