// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

// one row per change; a change set with n changes spans n rows sharing seq
const recordTableSchema = `
create table if not exists record (
	seq integer,
	recordIndex integer,
	op text,
	ts integer,
	nonce integer,
	bumped integer,
	kind text,
	operatorId integer,
	name text,
	address blob(20),
	active integer,
	count integer,
	stuck integer,
	refunded integer,
	penaltyEndAt integer,
	targetMode integer,
	targetLimit integer,
	shares blob
);

CREATE INDEX if not exists seqIndex on record(seq);
CREATE INDEX if not exists kindIndex on record(kind);
CREATE INDEX if not exists operatorIndex on record(operatorId);
`
