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

import "errors"

// ErrUnavailable is returned by Run when the price series cannot
// support a simulation (empty, or yields nothing after alignment) —
// the "unavailable" outcome of §4.9 / §7.
var ErrUnavailable = errors.New("simulation unavailable: no usable price history")
