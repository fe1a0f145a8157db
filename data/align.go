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
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// AlignToDates reindexes series onto targetDates: each target date takes
// the most recent prior observation (forward-fill); any leading dates
// that precede the first observation take the earliest observation
// (back-fill). series and targetDates must already be sorted ascending.
// If targetDates is non-empty and no observation can be produced for any
// of it, ErrNoAlignableData is returned.
func AlignToDates(series []PricePoint, targetDates []time.Time) ([]PricePoint, error) {
	if len(targetDates) == 0 {
		return nil, ErrNoAlignableData
	}
	if len(series) == 0 {
		return nil, ErrNoAlignableData
	}

	requested := &Interval{Begin: targetDates[0], End: targetDates[len(targetDates)-1]}
	if err := requested.Valid(); err != nil {
		return nil, err
	}

	available := &Interval{Begin: series[0].Date, End: series[len(series)-1].Date}
	if !available.Contains(requested) && !available.Contiguous(requested) {
		log.WithFields(log.Fields{
			"requestedBegin": requested.Begin, "requestedEnd": requested.End,
			"availableBegin": available.Begin, "availableEnd": available.End,
		}).Warn("requested date range falls outside the available price series; relying on back-fill/forward-fill")
	}

	aligned := make([]PricePoint, len(targetDates))
	seriesIdx := 0
	any := false

	for i, d := range targetDates {
		for seriesIdx+1 < len(series) && !series[seriesIdx+1].Date.After(d) {
			seriesIdx++
		}
		switch {
		case !series[seriesIdx].Date.After(d):
			aligned[i] = PricePoint{Date: d, Close: series[seriesIdx].Close}
			any = true
		default:
			// d precedes every observation: back-fill with the earliest.
			aligned[i] = PricePoint{Date: d, Close: series[0].Close}
			any = true
		}
	}

	if !any {
		return nil, ErrNoAlignableData
	}
	return aligned, nil
}

// CommonDateRange computes the intersection of two price series' date
// sets, restricted to [requestedStart, requestedEnd]. Used by the
// benchmark orchestrator (outside this core) to keep a strategy run and
// a benchmark run on a shared calendar. Returns ErrNoAlignableData if
// the intersection is empty.
func CommonDateRange(a, b []PricePoint, requestedStart, requestedEnd time.Time) (begin, end time.Time, err error) {
	window := &Interval{Begin: requestedStart, End: requestedEnd}
	if err := window.Valid(); err != nil {
		return time.Time{}, time.Time{}, err
	}

	setB := make(map[string]bool, len(b))
	for _, p := range b {
		setB[p.Date.Format("2006-01-02")] = true
	}

	var shared []time.Time
	for _, p := range a {
		if p.Date.Before(requestedStart) || p.Date.After(requestedEnd) {
			continue
		}
		if setB[p.Date.Format("2006-01-02")] {
			shared = append(shared, p.Date)
		}
	}

	if len(shared) == 0 {
		return time.Time{}, time.Time{}, ErrNoAlignableData
	}

	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })
	return shared[0], shared[len(shared)-1], nil
}
