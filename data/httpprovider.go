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
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// HTTPPriceProvider fetches daily close prices and dividends from a
// quote service reachable at BaseURL. It implements both PriceProvider
// and DividendProvider, retrying transient HTTP failures with bounded
// exponential backoff before surfacing ErrDataUnavailable, per the
// market-data provider contract in §6.
type HTTPPriceProvider struct {
	BaseURL string
	client  *resty.Client
}

// NewHTTPPriceProvider builds a provider against baseURL (e.g. an
// internal quote-service gateway). The resty client is shared across
// requests the way the teacher codebase shares a single http.Client.
func NewHTTPPriceProvider(baseURL string) *HTTPPriceProvider {
	return &HTTPPriceProvider{
		BaseURL: baseURL,
		client:  resty.New().SetTimeout(10 * time.Second),
	}
}

type quotePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

type dividendPoint struct {
	Date            string  `json:"date"`
	DividendPerShare float64 `json:"dividendPerShare"`
}

func (p *HTTPPriceProvider) Prices(ctx context.Context, ticker string, start, end time.Time) ([]PricePoint, error) {
	var body []byte

	op := func() error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ticker": ticker,
				"start":  start.Format("2006-01-02"),
				"end":    end.Format("2006-01-02"),
			}).
			Get(p.BaseURL + "/prices")
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("quote service returned %d", resp.StatusCode())
		}
		if resp.StatusCode() >= 400 {
			return backoff.Permanent(fmt.Errorf("quote service returned %d", resp.StatusCode()))
		}
		body = resp.Body()
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, policy); err != nil {
		log.WithFields(log.Fields{
			"Ticker": ticker,
			"Error":  err,
		}).Warn("price fetch failed after retries")
		return nil, ErrDataUnavailable
	}

	var raw []quotePoint
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return nil, ErrDataUnavailable
	}

	points := make([]PricePoint, 0, len(raw))
	for _, r := range raw {
		d, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, ErrDataUnavailable
		}
		points = append(points, PricePoint{Date: d, Close: r.Close})
	}
	return points, nil
}

func (p *HTTPPriceProvider) Dividends(ctx context.Context, ticker string) ([]DividendPoint, error) {
	var body []byte

	op := func() error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParam("ticker", ticker).
			Get(p.BaseURL + "/dividends")
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("quote service returned %d", resp.StatusCode())
		}
		if resp.StatusCode() >= 400 {
			return backoff.Permanent(fmt.Errorf("quote service returned %d", resp.StatusCode()))
		}
		body = resp.Body()
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, policy); err != nil {
		log.WithFields(log.Fields{
			"Ticker": ticker,
			"Error":  err,
		}).Warn("dividend fetch failed after retries")
		return nil, ErrDataUnavailable
	}

	var raw []dividendPoint
	if err := json.Unmarshal(body, &raw); err != nil {
		// an empty/unparseable dividend index means "no dividends", not failure (§4.9).
		return nil, nil
	}

	points := make([]DividendPoint, 0, len(raw))
	for _, r := range raw {
		d, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			continue
		}
		points = append(points, DividendPoint{Date: d, DividendPerShare: r.DividendPerShare})
	}
	return points, nil
}
