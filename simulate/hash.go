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

package simulate

import (
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

var errShortDigest = errors.New("scenario hash: couldn't read 16 bytes from digest")

// ScenarioHash calculates a 16-byte blake3 hash over the fields of a
// configuration that determine its result, for use as a cache key (§8
// idempotence: identical configuration must yield an identical hash).
func ScenarioHash(cfg Config) ([16]byte, error) {
	h := blake3.New()

	write := func(b []byte) error {
		_, err := h.Write(b)
		return err
	}

	startText, err := cfg.Start.UTC().MarshalText()
	if err != nil {
		return [16]byte{}, err
	}
	endText, err := cfg.End.UTC().MarshalText()
	if err != nil {
		return [16]byte{}, err
	}

	if err := write([]byte(cfg.Ticker)); err != nil {
		return [16]byte{}, err
	}
	if err := write(startText); err != nil {
		return [16]byte{}, err
	}
	if err := write(endText); err != nil {
		return [16]byte{}, err
	}
	if err := write([]byte(cfg.Frequency)); err != nil {
		return [16]byte{}, err
	}
	if err := write(floatBytes(cfg.ContributionAmount)); err != nil {
		return [16]byte{}, err
	}
	if err := write(floatBytes(cfg.InitialAmount)); err != nil {
		return [16]byte{}, err
	}
	if err := write(boolBytes(cfg.ReinvestDividends)); err != nil {
		return [16]byte{}, err
	}
	if err := write(boolBytes(cfg.AccountBalance.Unbounded)); err != nil {
		return [16]byte{}, err
	}
	if err := write(floatBytes(cfg.AccountBalance.Amount)); err != nil {
		return [16]byte{}, err
	}
	if err := write(floatBytes(cfg.MarginRatio)); err != nil {
		return [16]byte{}, err
	}
	if err := write(floatBytes(cfg.MaintenanceMargin)); err != nil {
		return [16]byte{}, err
	}
	if cfg.WithdrawalThreshold != nil {
		if err := write(floatBytes(*cfg.WithdrawalThreshold)); err != nil {
			return [16]byte{}, err
		}
	}
	if err := write(floatBytes(cfg.MonthlyWithdrawalAmount)); err != nil {
		return [16]byte{}, err
	}

	digest := h.Digest()
	var buf [16]byte
	n, err := digest.Read(buf[:])
	if err != nil {
		return [16]byte{}, err
	}
	if n != 16 {
		return [16]byte{}, errShortDigest
	}
	return buf, nil
}

func floatBytes(f float64) []byte {
	return []byte(fmt.Sprintf("%.5f", f))
}

func boolBytes(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}
