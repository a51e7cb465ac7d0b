package atm

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/dispenser"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	c := NewController(newTestLedger(t), newTestReader(), dispenser.NewInventory(10000))
	srv := httptest.NewServer(NewHandler(c).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandlerFullSession(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/card", map[string]string{"card_number": testCard})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/pin", map[string]string{"pin": testCardPIN})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/accounts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accounts []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accounts))
	assert.Len(t, accounts, 2)

	resp = postJSON(t, srv.URL+"/account", map[string]string{"account_number": "1001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/deposit", map[string]int64{"amount": 500})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tx Transaction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tx))
	assert.Equal(t, TransactionDeposit, tx.Type)
	assert.Equal(t, int64(1500), tx.BalanceAfter)

	resp = postJSON(t, srv.URL+"/withdraw", map[string]int64{"amount": 200})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/balance")
	require.NoError(t, err)
	defer resp.Body.Close()
	var balance map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&balance))
	assert.Equal(t, int64(1300), balance["balance"])

	resp, err = http.Get(srv.URL + "/transactions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var log []Transaction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&log))
	require.Len(t, log, 2)

	resp = postJSON(t, srv.URL+"/eject", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var state map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, string(StateIdle), state["state"])
}

func TestHandlerErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	// Deposit before any card: state violation.
	resp := postJSON(t, srv.URL+"/deposit", map[string]int64{"amount": 100})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown card.
	resp = postJSON(t, srv.URL+"/card", map[string]string{"card_number": "9999999999999999"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong PIN.
	resp = postJSON(t, srv.URL+"/card", map[string]string{"card_number": testCard})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, srv.URL+"/pin", map[string]string{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Foreign account after re-auth.
	resp = postJSON(t, srv.URL+"/card", map[string]string{"card_number": testCard})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, srv.URL+"/pin", map[string]string{"pin": testCardPIN})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, srv.URL+"/account", map[string]string{"account_number": "2001"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Non-positive amount.
	resp = postJSON(t, srv.URL+"/account", map[string]string{"account_number": "1001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, srv.URL+"/deposit", map[string]int64{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Withdrawal beyond the balance.
	resp = postJSON(t, srv.URL+"/withdraw", map[string]int64{"amount": 5000})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandlerPINThrottling(t *testing.T) {
	c := NewController(newTestLedger(t), newTestReader(), dispenser.NewInventory(10000))
	h := NewHandler(c)
	h.pinLimiter.SetBurst(1)
	h.pinLimiter.SetLimit(0)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/card", map[string]string{"card_number": testCard})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/pin", map[string]string{"pin": testCardPIN})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/pin", map[string]string{"pin": testCardPIN})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
