// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb keeps the queryable history of registry change records.
package eventdb

import (
	"context"
	"database/sql"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nnsW3/core-lido/registry"
	"github.com/nnsW3/core-lido/registry/operator"
)

// Record is one persisted change with its change-set envelope.
type Record struct {
	Seq    uint64          `json:"seq"`
	Index  uint32          `json:"index"`
	Op     string          `json:"op"`
	Time   uint64          `json:"time"` // unix seconds
	Nonce  uint64          `json:"nonce"`
	Bumped bool            `json:"nonceBumped"`
	Change registry.Change `json:"change"`
}

// Order of returned records.
type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// SeqRange bounds a query by change-set sequence numbers, inclusive. A To
// of zero leaves the upper bound open; sequence numbers start at 1.
type SeqRange struct {
	From uint64
	To   uint64
}

// Options paginate a query.
type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects records. Zero-value fields do not constrain.
type Filter struct {
	Kinds      []registry.ChangeKind
	OperatorID *uint64
	Range      *SeqRange
	Order      Order
	Options    *Options
}

type EventDB struct {
	path string
	db   *sql.DB
}

// New creates or opens an event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	if _, err := db.Exec(recordTableSchema); err != nil {
		return nil, err
	}
	return &EventDB{path, db}, nil
}

// NewMem creates an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the event db.
func (db *EventDB) Close() {
	db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Append stores every change of the set in one transaction.
func (db *EventDB) Append(cs *registry.ChangeSet) (err error) {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for i, c := range cs.Changes {
		var (
			operatorID   any
			name         any
			address      []byte
			active       any
			count        any
			stuck        any
			refunded     any
			penaltyEndAt any
			targetMode   any
			targetLimit  any
			shares       []byte
		)
		if c.OperatorID != nil {
			operatorID = *c.OperatorID
		}
		if c.Name != "" {
			name = c.Name
		}
		if c.Address != nil {
			address = c.Address.Bytes()
		}
		if c.Active != nil {
			active = *c.Active
		}
		if c.Count != nil {
			count = *c.Count
		}
		if c.Penalty != nil {
			stuck, refunded, penaltyEndAt = c.Penalty.Stuck, c.Penalty.Refunded, c.Penalty.StuckPenaltyEndAt
		}
		if c.Target != nil {
			targetMode, targetLimit = uint8(c.Target.Mode), c.Target.Limit
		}
		if c.Shares != nil {
			shares = c.Shares.Bytes()
		}
		if _, err = tx.Exec(
			"INSERT INTO record(seq, recordIndex, op, ts, nonce, bumped, kind, operatorId, name, address, active, count, stuck, refunded, penaltyEndAt, targetMode, targetLimit, shares) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);",
			cs.Seq, uint32(i), cs.Op, uint64(cs.Time.Unix()), cs.Nonce, cs.Bumped, string(c.Kind),
			operatorID, name, address, active, count, stuck, refunded, penaltyEndAt, targetMode, targetLimit, shares,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query returns records matching the filter, ascending by default.
func (db *EventDB) Query(ctx context.Context, filter *Filter) ([]*Record, error) {
	if filter == nil {
		return db.query(ctx, "SELECT * FROM record ORDER BY seq ASC, recordIndex ASC")
	}
	var args []any
	stmt := "SELECT * FROM record WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND seq >= ? "
		if filter.Range.To > 0 {
			args = append(args, filter.Range.To)
			stmt += " AND seq <= ? "
		}
	}
	if filter.OperatorID != nil {
		args = append(args, *filter.OperatorID)
		stmt += " AND operatorId = ? "
	}
	for i, kind := range filter.Kinds {
		if i == 0 {
			stmt += " AND ( kind = ? "
		} else {
			stmt += " OR kind = ? "
		}
		args = append(args, string(kind))
	}
	if len(filter.Kinds) > 0 {
		stmt += ")"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC, recordIndex DESC "
	} else {
		stmt += " ORDER BY seq ASC, recordIndex ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

func (db *EventDB) query(ctx context.Context, stmt string, args ...any) ([]*Record, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq          uint64
			index        uint32
			op           string
			ts           uint64
			nonce        uint64
			bumped       bool
			kind         string
			operatorID   sql.NullInt64
			name         sql.NullString
			address      []byte
			active       sql.NullBool
			count        sql.NullInt64
			stuck        sql.NullInt64
			refunded     sql.NullInt64
			penaltyEndAt sql.NullInt64
			targetMode   sql.NullInt64
			targetLimit  sql.NullInt64
			shares       []byte
		)
		if err := rows.Scan(
			&seq,
			&index,
			&op,
			&ts,
			&nonce,
			&bumped,
			&kind,
			&operatorID,
			&name,
			&address,
			&active,
			&count,
			&stuck,
			&refunded,
			&penaltyEndAt,
			&targetMode,
			&targetLimit,
			&shares,
		); err != nil {
			return nil, err
		}
		record := &Record{
			Seq:    seq,
			Index:  index,
			Op:     op,
			Time:   ts,
			Nonce:  nonce,
			Bumped: bumped,
			Change: registry.Change{Kind: registry.ChangeKind(kind)},
		}
		if operatorID.Valid {
			v := uint64(operatorID.Int64)
			record.Change.OperatorID = &v
		}
		if name.Valid {
			record.Change.Name = name.String
		}
		if len(address) > 0 {
			a := common.BytesToAddress(address)
			record.Change.Address = &a
		}
		if active.Valid {
			v := active.Bool
			record.Change.Active = &v
		}
		if count.Valid {
			v := uint64(count.Int64)
			record.Change.Count = &v
		}
		if stuck.Valid {
			record.Change.Penalty = &registry.PenaltyState{
				Stuck:             uint64(stuck.Int64),
				Refunded:          uint64(refunded.Int64),
				StuckPenaltyEndAt: uint64(penaltyEndAt.Int64),
			}
		}
		if targetMode.Valid {
			record.Change.Target = &registry.TargetLimitState{
				Mode:  operator.TargetLimitMode(targetMode.Int64),
				Limit: uint64(targetLimit.Int64),
			}
		}
		if len(shares) > 0 {
			record.Change.Shares = new(big.Int).SetBytes(shares)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
