// Copyright 2021-2022
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

package cmd

import (
	"context"
	"os"

	"github.com/quantleaf/dca-backtest/data"
	"github.com/quantleaf/dca-backtest/database"
	"github.com/quantleaf/dca-backtest/simulate"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	backtestCmd.Flags().String("quote-service-url", "", "Base URL of the quote service supplying prices and dividends")
	viper.BindPFlag("quote_service_url", backtestCmd.Flags().Lookup("quote-service-url"))

	rootCmd.AddCommand(backtestCmd)
}

var backtestCmd = &cobra.Command{
	Use:        "backtest [flags] ScenarioFile",
	Short:      "Run a dollar-cost-averaging backtest from a scenario file",
	Args:       cobra.ExactArgs(1),
	ArgAliases: []string{"ScenarioFile"},
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.WithFields(log.Fields{"Error": err, "File": args[0]}).Fatal("could not read scenario file")
		}

		var cfg simulate.Config
		if err := json.Unmarshal(raw, &cfg); err != nil {
			log.WithFields(log.Fields{"Error": err}).Fatal("could not parse scenario file")
		}

		quoteURL := viper.GetString("quote_service_url")
		if quoteURL == "" {
			log.Fatal("quote-service-url must be set")
		}
		provider := data.NewHTTPPriceProvider(quoteURL)

		ctx := context.Background()
		prices, err := provider.Prices(ctx, cfg.Ticker, cfg.Start, cfg.End)
		if err != nil {
			log.WithFields(log.Fields{"Error": err, "Ticker": cfg.Ticker}).Fatal("could not load prices")
		}

		dividends, err := provider.Dividends(ctx, cfg.Ticker)
		if err != nil {
			log.WithFields(log.Fields{"Error": err, "Ticker": cfg.Ticker}).Fatal("could not load dividends")
		}

		var rates data.RateProvider
		if viper.GetString("database.url") != "" {
			if err := database.Connect(); err != nil {
				log.WithFields(log.Fields{"Error": err}).Fatal("database connection failed")
			}
			table, err := database.LoadRateTable(ctx)
			if err != nil {
				log.WithFields(log.Fields{"Error": err}).Fatal("could not load risk-free rate table")
			}
			rates = table
		} else {
			rates = data.NewRateTable(nil)
		}

		result, err := simulate.Run(cfg, prices, dividends, rates)
		if err != nil {
			log.WithFields(log.Fields{"Error": err}).Fatal("backtest failed")
		}

		assembled := result.Assemble(rates)
		out, err := json.MarshalIndent(assembled, "", "  ")
		if err != nil {
			log.WithFields(log.Fields{"Error": err}).Fatal("could not serialize result")
		}

		os.Stdout.Write(out)
		os.Stdout.Write([]byte("\n"))
	},
}
