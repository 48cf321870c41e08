// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package module

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnsW3/core-lido/auth"
	"github.com/nnsW3/core-lido/eventdb"
	"github.com/nnsW3/core-lido/registry"
)

var (
	moduleAddr = common.BytesToAddress([]byte("module"))
	rewardAddr = common.BytesToAddress([]byte("reward"))
	admin      = common.BytesToAddress([]byte("admin"))
)

func newServer(t *testing.T, events *eventdb.EventDB) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.Config{
		ModuleType:    "curated-onchain-v1",
		ModuleAddress: moduleAddr,
	}, auth.AllowAll{}, nil)
	if events != nil {
		reg.OnChange(func(cs *registry.ChangeSet) {
			require.NoError(t, events.Append(cs))
		})
	}

	router := mux.NewRouter()
	New(reg, events).Mount(router, "/module")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, reg
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set(callerHeader, admin.Hex())
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, data
}

// seedOperator adds an operator with keys through the registry directly.
func seedOperator(t *testing.T, reg *registry.Registry, vetted uint64) uint64 {
	t.Helper()
	id, _, err := reg.AddOperator(admin, fmt.Sprintf("operator-%d", reg.Count()), rewardAddr)
	require.NoError(t, err)
	_, err = reg.AddKeys(admin, id, vetted+2)
	require.NoError(t, err)
	_, err = reg.SetVettedCount(admin, id, vetted)
	require.NoError(t, err)
	return id
}

func TestGetModule(t *testing.T) {
	srv, reg := newServer(t, nil)
	seedOperator(t, reg, 5)

	status, body := call(t, srv, http.MethodGet, "/module", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var out struct {
		Type          string `json:"type"`
		Nonce         uint64 `json:"nonce"`
		OperatorCount uint64 `json:"operatorCount"`
		ActiveCount   uint64 `json:"activeCount"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "curated-onchain-v1", out.Type)
	assert.Equal(t, uint64(3), out.Nonce)
	assert.Equal(t, uint64(1), out.OperatorCount)
	assert.Equal(t, uint64(1), out.ActiveCount)
}

func TestSummaryAndNonce(t *testing.T) {
	srv, reg := newServer(t, nil)
	seedOperator(t, reg, 5)

	status, body := call(t, srv, http.MethodGet, "/module/summary", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var sum struct {
		Depositable uint64 `json:"depositableValidatorsCount"`
	}
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, uint64(5), sum.Depositable)

	status, body = call(t, srv, http.MethodGet, "/module/nonce", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var nonce struct {
		Nonce uint64 `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(body, &nonce))
	assert.Equal(t, uint64(3), nonce.Nonce)
}

func TestConsumeDeposits(t *testing.T) {
	srv, reg := newServer(t, nil)
	a := seedOperator(t, reg, 5)
	b := seedOperator(t, reg, 3)

	status, body := call(t, srv, http.MethodPost, "/module/deposits", DepositsRequest{Count: 4})
	require.Equal(t, http.StatusOK, status, string(body))

	var out struct {
		Grants map[string]uint64 `json:"grants"`
		Nonce  uint64            `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	// both start empty so the four deposits alternate between them
	assert.Equal(t, uint64(2), out.Grants[fmt.Sprintf("%d", a)])
	assert.Equal(t, uint64(2), out.Grants[fmt.Sprintf("%d", b)])

	opA, err := reg.Operator(a)
	require.NoError(t, err)
	opB, err := reg.Operator(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), opA.Deposited)
	assert.Equal(t, uint64(2), opB.Deposited)

	// demanding more than the module can absorb maps to 400
	status, body = call(t, srv, http.MethodPost, "/module/deposits", DepositsRequest{Count: 100})
	assert.Equal(t, http.StatusBadRequest, status, string(body))
}

func TestRewardsPreviewAndDistribute(t *testing.T) {
	srv, reg := newServer(t, nil)
	a := seedOperator(t, reg, 5)
	b := seedOperator(t, reg, 15)
	_, _, err := reg.ConsumeDeposits(admin, 20)
	require.NoError(t, err)

	status, body := call(t, srv, http.MethodGet, "/module/rewards?total=10", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var shares []struct {
		OperatorID uint64   `json:"operatorId"`
		Shares     *big.Int `json:"shares"`
	}
	require.NoError(t, json.Unmarshal(body, &shares))
	require.Len(t, shares, 2)
	byID := map[uint64]*big.Int{}
	for _, s := range shares {
		byID[s.OperatorID] = s.Shares
	}
	assert.Equal(t, big.NewInt(3), byID[a])
	assert.Equal(t, big.NewInt(7), byID[b])

	nonceBefore := reg.Nonce()
	status, body = call(t, srv, http.MethodPost, "/module/rewards", RewardsRequest{Total: "10"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, nonceBefore, reg.Nonce())

	status, body = call(t, srv, http.MethodGet, "/module/rewards?total=oops", nil)
	assert.Equal(t, http.StatusBadRequest, status, string(body))
}

func TestSetPenaltyDelay(t *testing.T) {
	srv, reg := newServer(t, nil)

	status, body := call(t, srv, http.MethodPut, "/module/penalty-delay", PenaltyDelayRequest{Delay: 3600})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, uint64(3600), reg.StuckPenaltyDelay())

	// repeating the same value is a no-op, mapped to 400
	status, _ = call(t, srv, http.MethodPut, "/module/penalty-delay", PenaltyDelayRequest{Delay: 3600})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRecords(t *testing.T) {
	events, err := eventdb.NewMem()
	require.NoError(t, err)
	defer events.Close()

	srv, reg := newServer(t, events)
	seedOperator(t, reg, 5)

	status, body := call(t, srv, http.MethodGet, "/module/records", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var records []*eventdb.Record
	require.NoError(t, json.Unmarshal(body, &records))
	require.NotEmpty(t, records)
	assert.Equal(t, registry.ChangeOperatorAdded, records[0].Change.Kind)

	status, body = call(t, srv, http.MethodGet, "/module/records?kind=NonceChanged&order=desc&limit=2", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	records = records[:0]
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, registry.ChangeNonce, rec.Change.Kind)
	}
	assert.Greater(t, records[0].Seq, records[1].Seq)

	status, body = call(t, srv, http.MethodGet, "/module/records?limit=5000", nil)
	assert.Equal(t, http.StatusBadRequest, status, string(body))
}

func TestRecordsFromWithoutTo(t *testing.T) {
	events, err := eventdb.NewMem()
	require.NoError(t, err)
	defer events.Close()

	srv, reg := newServer(t, events)
	seedOperator(t, reg, 5)

	var all []*eventdb.Record
	status, body := call(t, srv, http.MethodGet, "/module/records", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &all))
	require.NotEmpty(t, all)

	// a lower bound with no upper bound matches up to the latest record
	var records []*eventdb.Record
	status, body = call(t, srv, http.MethodGet, "/module/records?from=1", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &records))
	assert.Len(t, records, len(all))
}

func TestRecordsDisabled(t *testing.T) {
	srv, _ := newServer(t, nil)

	status, body := call(t, srv, http.MethodGet, "/module/records", nil)
	assert.Equal(t, http.StatusNotFound, status, string(body))
}
