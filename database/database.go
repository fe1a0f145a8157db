// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/quantleaf/dca-backtest/data"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// queryable is the slice of pgxpool.Pool this package needs; it lets
// tests substitute a pgxmock connection without a live Postgres instance.
type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

var pool queryable

// Connect opens the connection pool used by LoadRateTable.
func Connect() error {
	p, err := pgxpool.Connect(context.Background(), viper.GetString("database.url"))
	if err != nil {
		return err
	}
	if err := p.Ping(context.Background()); err != nil {
		return err
	}
	pool = p
	return nil
}

// SetPool installs a queryable (e.g. a pgxmock connection) — used by
// tests to exercise LoadRateTable without a live database.
func SetPool(p queryable) {
	pool = p
}

// LoadRateTable reads the full (month_start, annual_rate_percent)
// observation table once and returns an explicitly constructed
// data.RateTable for the caller to own and pass into the driver. This
// replaces loading the table at process start into package-level global
// state: the pool is read once, here, and the result is a value the
// caller controls the lifetime of.
func LoadRateTable(ctx context.Context) (*data.RateTable, error) {
	rows, err := pool.Query(ctx, `
		SELECT month_start, annual_rate_percent
		FROM risk_free_rate_observation
		ORDER BY month_start ASC`)
	if err != nil {
		log.WithFields(log.Fields{
			"Error": err,
		}).Error("failed to query rate observation table")
		return nil, err
	}
	defer rows.Close()

	observations := make([]data.RateObservation, 0, 128)
	for rows.Next() {
		var obs data.RateObservation
		if err := rows.Scan(&obs.MonthStart, &obs.AnnualRatePercent); err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return data.NewRateTable(observations), nil
}
