// Copyright 2021 JD Fergason
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

package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/quantleaf/dca-backtest/cache"
	"github.com/quantleaf/dca-backtest/data"
	"github.com/quantleaf/dca-backtest/simulate"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Deps bundles the collaborators RunSimulation needs to serve a request;
// the serve command wires a concrete instance at startup and passes it through to the
// route registration the way the teacher's router wires its handlers.
type Deps struct {
	Prices  data.PriceProvider
	Divs    data.DividendProvider
	Rates   data.RateProvider
	Results *cache.ResultCache
}

// scenarioRequest is the inbound shape of POST /v1/simulate.
type scenarioRequest struct {
	Ticker                  string   `json:"ticker"`
	Start                   string   `json:"start"`
	End                     string   `json:"end"`
	ContributionAmount      float64  `json:"contributionAmount"`
	InitialAmount           float64  `json:"initialAmount"`
	ReinvestDividends       bool     `json:"reinvestDividends"`
	AccountBalance          *float64 `json:"accountBalance"`
	MarginRatio             float64  `json:"marginRatio"`
	MaintenanceMargin       float64  `json:"maintenanceMargin"`
	WithdrawalThreshold     *float64 `json:"withdrawalThreshold"`
	MonthlyWithdrawalAmount float64  `json:"monthlyWithdrawalAmount"`
	Frequency               string   `json:"frequency"`
}

const dateLayout = "2006-01-02"

// RunSimulation handles POST /v1/simulate: it validates the request,
// runs the backtest (checking the result cache first), and returns the
// assembled result.
func (d *Deps) RunSimulation(c *fiber.Ctx) error {
	var req scenarioRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.WithFields(log.Fields{"Error": err}).Warn("could not deserialize simulate request")
		return fiber.ErrBadRequest
	}

	cfg, err := req.toConfig()
	if err != nil {
		log.WithFields(log.Fields{"Error": err}).Warn("invalid simulate request")
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.Context()

	hash, err := simulate.ScenarioHash(cfg)
	if err != nil {
		log.WithFields(log.Fields{"Error": err}).Error("could not hash scenario")
		return fiber.ErrInternalServerError
	}
	key := cache.Key(hash)

	if d.Results != nil {
		if cached, ok := d.Results.Get(ctx, key); ok {
			return c.JSON(cached)
		}
	}

	prices, err := d.Prices.Prices(ctx, cfg.Ticker, cfg.Start, cfg.End)
	if err != nil {
		log.WithFields(log.Fields{"Error": err, "Ticker": cfg.Ticker}).Warn("could not load prices")
		return fiber.ErrServiceUnavailable
	}

	dividends, err := d.Divs.Dividends(ctx, cfg.Ticker)
	if err != nil {
		log.WithFields(log.Fields{"Error": err, "Ticker": cfg.Ticker}).Warn("could not load dividends")
		return fiber.ErrServiceUnavailable
	}

	result, err := simulate.Run(cfg, prices, dividends, d.Rates)
	if err != nil {
		log.WithFields(log.Fields{"Error": err, "Ticker": cfg.Ticker}).Warn("backtest failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	assembled := result.Assemble(d.Rates)

	if d.Results != nil {
		if err := d.Results.Set(context.Background(), key, assembled); err != nil {
			log.WithFields(log.Fields{"Error": err}).Warn("could not cache assembled result")
		}
	}

	return c.JSON(assembled)
}

func (r scenarioRequest) toConfig() (simulate.Config, error) {
	start, err := time.Parse(dateLayout, r.Start)
	if err != nil {
		return simulate.Config{}, err
	}
	end, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return simulate.Config{}, err
	}

	balance := simulate.UnboundedCash()
	if r.AccountBalance != nil {
		balance = simulate.FiniteCash(*r.AccountBalance)
	}

	freq := simulate.Frequency(r.Frequency)
	switch freq {
	case simulate.FrequencyDaily, simulate.FrequencyWeekly, simulate.FrequencyMonthly:
	default:
		return simulate.Config{}, fmt.Errorf("frequency must be DAILY, WEEKLY or MONTHLY, got %q", r.Frequency)
	}

	switch {
	case r.ContributionAmount < 0 || r.InitialAmount < 0 || r.MonthlyWithdrawalAmount < 0:
		return simulate.Config{}, fmt.Errorf("contributionAmount, initialAmount and monthlyWithdrawalAmount must be non-negative")
	case (r.AccountBalance != nil && *r.AccountBalance < 0) || (r.WithdrawalThreshold != nil && *r.WithdrawalThreshold < 0):
		return simulate.Config{}, fmt.Errorf("accountBalance and withdrawalThreshold must be non-negative when set")
	case r.MarginRatio < 1 || r.MarginRatio > 2:
		return simulate.Config{}, fmt.Errorf("marginRatio must be between 1.0 and 2.0")
	case r.MaintenanceMargin <= 0 || r.MaintenanceMargin >= 1:
		return simulate.Config{}, fmt.Errorf("maintenanceMargin must be strictly between 0 and 1")
	}

	return simulate.Config{
		Ticker:                  r.Ticker,
		Start:                   start,
		End:                     end,
		ContributionAmount:      r.ContributionAmount,
		InitialAmount:           r.InitialAmount,
		ReinvestDividends:       r.ReinvestDividends,
		AccountBalance:          balance,
		MarginRatio:             r.MarginRatio,
		MaintenanceMargin:       r.MaintenanceMargin,
		WithdrawalThreshold:     r.WithdrawalThreshold,
		MonthlyWithdrawalAmount: r.MonthlyWithdrawalAmount,
		Frequency:               freq,
	}, nil
}
