// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"time"
)

// PriceProvider supplies a chronologically ordered, gap-free daily close
// series for a ticker. Implementations may retry transient failures with
// bounded backoff (§6) before returning ErrDataUnavailable.
type PriceProvider interface {
	Prices(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error)
}

// DividendProvider supplies a ticker's cash dividend history. An empty
// slice (no error) means the ticker has never paid a dividend.
type DividendProvider interface {
	Dividends(ctx context.Context, ticker string) ([]DividendPoint, error)
}

// RateProvider answers the monthly risk-free rate lookup of §4.6.
// *RateTable implements this.
type RateProvider interface {
	RateFor(date time.Time) float64
}
