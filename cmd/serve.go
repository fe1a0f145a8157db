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
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/quantleaf/dca-backtest/cache"
	"github.com/quantleaf/dca-backtest/common"
	"github.com/quantleaf/dca-backtest/data"
	"github.com/quantleaf/dca-backtest/database"
	"github.com/quantleaf/dca-backtest/handler"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	serveCmd.Flags().String("quote-service-url", "", "Base URL of the quote service supplying prices and dividends")
	viper.BindPFlag("quote_service_url", serveCmd.Flags().Lookup("quote-service-url"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dca-backtest API server",
	Long:  `Run the HTTP server that exposes the dollar-cost-averaging backtest API`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Error().Err(err).Msg("could not create profile.out")
			}
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal().Err(err).Msg("failed to close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("failed to start trace")
			}
			defer trace.Stop()
		}

		common.SetupLogging()
		log.Info().Msg("initialized logging")

		quoteURL := viper.GetString("quote_service_url")
		if quoteURL == "" {
			log.Fatal().Msg("quote-service-url must be set")
		}
		provider := data.NewHTTPPriceProvider(quoteURL)

		var rates data.RateProvider
		if viper.GetString("database.url") != "" {
			if err := database.Connect(); err != nil {
				log.Fatal().Err(err).Msg("database connection failed")
			}
			log.Info().Msg("connected to database")

			table, err := database.LoadRateTable(context.Background())
			if err != nil {
				log.Fatal().Err(err).Msg("could not load risk-free rate table")
			}
			rates = table
		} else {
			rates = data.NewRateTable(nil)
		}

		redisURL := ""
		if viper.GetBool("cache.redis") {
			redisURL = viper.GetString("cache.redis_url")
		}
		resultCache, err := cache.New(cache.Config{
			LocalSize: viper.GetInt("cache.local_size"),
			RedisURL:  redisURL,
			TTL:       time.Duration(viper.GetInt("cache.ttl")) * time.Second,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("could not initialize result cache")
		}

		deps := &handler.Deps{
			Prices:  provider,
			Divs:    provider,
			Rates:   rates,
			Results: resultCache,
		}

		// Create new Fiber instance
		app := fiber.New()

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("app shutdown failed")
			}
		}()

		app.Use(cors.New())

		app.Post("/v1/simulate", deps.RunSimulation)

		// Start server on http://${host}:${port}
		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("app.Listen returned an error")
		}
	},
}
