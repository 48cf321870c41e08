// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operators

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/nnsW3/core-lido/api/utils"
	"github.com/nnsW3/core-lido/registry"
	"github.com/nnsW3/core-lido/registry/operator"
)

// header naming the acting address, checked against the capability table
const callerHeader = "x-registry-caller"

type Operators struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Operators {
	return &Operators{reg}
}

func caller(req *http.Request) (common.Address, error) {
	raw := req.Header.Get(callerHeader)
	if !common.IsHexAddress(raw) {
		return common.Address{}, utils.BadRequest(errors.Errorf("header %s: expected hex address, got %q", callerHeader, raw))
	}
	return common.HexToAddress(raw), nil
}

func operatorID(req *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "id"))
	}
	return id, nil
}

func parsePage(req *http.Request) (offset, limit uint64, err error) {
	query := req.URL.Query()
	offset = 0
	limit = 100
	if raw := query.Get("offset"); raw != "" {
		if offset, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return 0, 0, utils.BadRequest(errors.WithMessage(err, "offset"))
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return 0, 0, utils.BadRequest(errors.WithMessage(err, "limit"))
		}
	}
	return offset, limit, nil
}

func convertOperator(op *operator.Operator) *Operator {
	return &Operator{
		ID:                op.ID,
		Name:              op.Name,
		RewardAddress:     op.RewardAddress,
		Active:            op.Active,
		TotalAdded:        op.TotalAdded,
		Vetted:            op.Vetted,
		Deposited:         op.Deposited,
		Exited:            op.Exited,
		Stuck:             op.Stuck,
		Refunded:          op.Refunded,
		StuckPenaltyEndAt: op.StuckPenaltyEndAt,
		TargetLimitMode:   op.TargetLimitMode.String(),
		TargetLimit:       op.TargetLimit,
	}
}

func (o *Operators) handleList(w http.ResponseWriter, req *http.Request) error {
	offset, limit, err := parsePage(req)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{
		"count":       o.reg.Count(),
		"activeCount": o.reg.ActiveCount(),
		"ids":         o.reg.IDs(offset, limit),
	})
}

func (o *Operators) handleAdd(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	var body AddOperatorRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	id, cs, err := o.reg.AddOperator(addr, body.Name, body.RewardAddress)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{"id": id, "nonce": cs.Nonce})
}

func (o *Operators) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	op, err := o.reg.Operator(id)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, convertOperator(&op))
}

func (o *Operators) handleSummary(w http.ResponseWriter, req *http.Request) error {
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	sum, err := o.reg.OperatorSummary(id)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, sum)
}

func (o *Operators) handleSetName(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body SetNameRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.SetName(addr, id, body.Name)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleSetRewardAddress(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body SetRewardAddressRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.SetRewardAddress(addr, id, body.RewardAddress)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleSetActive(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body SetActiveRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	var cs *registry.ChangeSet
	if body.Active {
		cs, err = o.reg.Activate(addr, id)
	} else {
		cs, err = o.reg.Deactivate(addr, id)
	}
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleAddKeys(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body CountRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.AddKeys(addr, id, body.Count)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleInvalidateKeys(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	var body InvalidateKeysRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.InvalidateKeysRange(addr, body.From, body.To)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleSetVetted(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body CountRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.SetVettedCount(addr, id, body.Count)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleUpdateStuck(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	var body BatchCountsRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.UpdateStuckCounts(addr, body.IDs, body.Counts)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleUpdateExited(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	var body BatchCountsRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.UpdateExitedCounts(addr, body.IDs, body.Counts)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleSetRefunded(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body CountRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.UpdateRefundedCount(addr, id, body.Count)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleUnsafeSetCounts(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body UnsafeCountsRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	cs, err := o.reg.UnsafeSetCounts(addr, id, body.Exited, body.Stuck)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) handleSetTargetLimit(w http.ResponseWriter, req *http.Request) error {
	addr, err := caller(req)
	if err != nil {
		return err
	}
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	var body TargetLimitRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	mode, err := parseTargetLimitMode(body.Mode)
	if err != nil {
		return err
	}
	cs, err := o.reg.SetTargetLimit(addr, id, mode, body.Limit)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func parseTargetLimitMode(raw string) (operator.TargetLimitMode, error) {
	switch raw {
	case "disabled":
		return operator.TargetLimitDisabled, nil
	case "soft":
		return operator.TargetLimitSoft, nil
	case "hard":
		return operator.TargetLimitHard, nil
	default:
		return 0, utils.BadRequest(errors.Errorf("mode: expected disabled|soft|hard, got %q", raw))
	}
}

func (o *Operators) handlePenalty(w http.ResponseWriter, req *http.Request) error {
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	penalized, err := o.reg.IsPenalized(id)
	if err != nil {
		return utils.RevertError(err)
	}
	cleared, err := o.reg.PenaltyCleared(id)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{"penalized": penalized, "cleared": cleared})
}

func (o *Operators) handleClearPenalty(w http.ResponseWriter, req *http.Request) error {
	id, err := operatorID(req)
	if err != nil {
		return err
	}
	cs, err := o.reg.ClearPenalty(id)
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, cs)
}

func (o *Operators) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handleList))
	sub.Path("").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(o.handleAdd))
	sub.Path("/keys/invalidate").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(o.handleInvalidateKeys))
	sub.Path("/stuck").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(o.handleUpdateStuck))
	sub.Path("/exited").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(o.handleUpdateExited))
	sub.Path("/{id}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handleGet))
	sub.Path("/{id}/summary").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handleSummary))
	sub.Path("/{id}/name").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(o.handleSetName))
	sub.Path("/{id}/reward-address").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(o.handleSetRewardAddress))
	sub.Path("/{id}/active").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(o.handleSetActive))
	sub.Path("/{id}/keys").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(o.handleAddKeys))
	sub.Path("/{id}/vetted").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(o.handleSetVetted))
	sub.Path("/{id}/refunded").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(o.handleSetRefunded))
	sub.Path("/{id}/counts").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(o.handleUnsafeSetCounts))
	sub.Path("/{id}/target-limit").Methods(http.MethodPut).HandlerFunc(utils.WrapHandlerFunc(o.handleSetTargetLimit))
	sub.Path("/{id}/penalty").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(o.handlePenalty))
	sub.Path("/{id}/penalty/clear").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(o.handleClearPenalty))
}
