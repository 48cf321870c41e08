// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package module exposes module-wide state: summaries, the nonce, deposit
// allocation, reward distribution and the change-record history.
package module

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/nnsW3/core-lido/api/utils"
	"github.com/nnsW3/core-lido/eventdb"
	"github.com/nnsW3/core-lido/registry"
)

const callerHeader = "x-registry-caller"

const maxRecordsLimit = 1000

type Module struct {
	reg    *registry.Registry
	events *eventdb.EventDB
}

// New creates the module endpoints. events may be nil when no change
// history is kept; the records endpoint then responds 404.
func New(reg *registry.Registry, events *eventdb.EventDB) *Module {
	return &Module{reg, events}
}

func caller(req *http.Request) (common.Address, error) {
	raw := req.Header.Get(callerHeader)
	if !common.IsHexAddress(raw) {
		return common.Address{}, utils.BadRequest(errors.Errorf("header %s: expected hex address, got %q", callerHeader, raw))
	}
	return common.HexToAddress(raw), nil
}

func (m *Module) handleGet(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, utils.M{
		"type":              m.reg.ModuleType(),
		"nonce":             m.reg.Nonce(),
		"operatorCount":     m.reg.Count(),
		"activeCount":       m.reg.ActiveCount(),
		"stuckPenaltyDelay": m.reg.StuckPenaltyDelay(),
	})
}

func (m *Module) handleSummary(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, m.reg.ModuleSummary())
}

func (m *Module) handleNonce(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, utils.M{"nonce": m.reg.Nonce()})
}

func (m *Module) handleSetPenaltyDelay(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	var body PenaltyDelayRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := m.reg.SetStuckPenaltyDelay(addr, body.Delay)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (m *Module) handleConsumeDeposits(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	var body DepositsRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	grants, cs, err := m.reg.ConsumeDeposits(addr, body.Count)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{"grants": grants, "nonce": cs.Nonce})
}

func parseTotal(raw string) (*big.Int, error) {
	total, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, utils.BadRequest(errors.Errorf("total: expected decimal integer, got %q", raw))
	}
	return total, nil
}

func (m *Module) handlePreviewRewards(w http.ResponseWriter, req *http.Request) error {
	total, err := parseTotal(req.URL.Query().Get("total"))
	if err != nil {
		return err
	}
	shares, err := m.reg.RewardsDistribution(total)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, shares)
}

func (m *Module) handleDistributeRewards(w http.ResponseWriter, req *http.Request) error {
	var body RewardsRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	total, err := parseTotal(body.Total)
	if err != nil {
		return err
	}
	shares, cs, err := m.reg.DistributeRewards(total)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{"shares": shares, "seq": cs.Seq})
}

func (m *Module) handleRecords(w http.ResponseWriter, req *http.Request) error {
	if m.events == nil {
		return utils.NotFound(errors.New("change history not enabled"))
	}
	filter, err := parseRecordsQuery(req)
	if err != nil {
		return err
	}
	records, err := m.events.Query(req.Context(), filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*eventdb.Record{}
	}
	return utils.WriteJSON(w, records)
}

func parseRecordsQuery(req *http.Request) (*eventdb.Filter, error) {
	query := req.URL.Query()
	filter := &eventdb.Filter{
		Options: &eventdb.Options{Limit: 100},
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "offset"))
		}
		filter.Options.Offset = offset
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "limit"))
		}
		if limit > maxRecordsLimit {
			return nil, utils.BadRequest(errors.Errorf("limit: must not exceed %d", maxRecordsLimit))
		}
		filter.Options.Limit = limit
	}
	if raw := query.Get("operator"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "operator"))
		}
		filter.OperatorID = &id
	}
	for _, raw := range query["kind"] {
		filter.Kinds = append(filter.Kinds, registry.ChangeKind(raw))
	}
	if raw := query.Get("from"); raw != "" {
		from, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "from"))
		}
		filter.Range = &eventdb.SeqRange{From: from}
		if raw := query.Get("to"); raw != "" {
			to, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, utils.BadRequest(errors.WithMessage(err, "to"))
			}
			filter.Range.To = to
		}
	}
	if query.Get("order") == "desc" {
		filter.Order = eventdb.DESC
	}
	return filter, nil
}

func (m *Module) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(m.handleGet))
	sub.Path("/summary").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(m.handleSummary))
	sub.Path("/nonce").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(m.handleNonce))
	sub.Path("/penalty-delay").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(m.handleSetPenaltyDelay))
	sub.Path("/deposits").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(m.handleConsumeDeposits))
	sub.Path("/rewards").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(m.handlePreviewRewards))
	sub.Path("/rewards").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(m.handleDistributeRewards))
	sub.Path("/records").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(m.handleRecords))
}

type PenaltyDelayRequest struct {
	Delay uint64 `json:"delay"`
}

type DepositsRequest struct {
	Count uint64 `json:"count"`
}

type RewardsRequest struct {
	Total string `json:"total"`
}
