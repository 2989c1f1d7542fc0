/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"strconv"
	"time"
)

// IDGenerator hands out millisecond-timestamp ids. When the clock has not
// advanced, or the candidate is already taken, the value is bumped by one so
// ids stay unique for the lifetime of a store.
type IDGenerator struct {
	Now  func() time.Time
	last int64
}

// Next returns a fresh id not reported as taken.
func (g *IDGenerator) Next(taken func(string) bool) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	n := now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	for taken != nil && taken(strconv.FormatInt(n, 10)) {
		n++
	}
	g.last = n
	return strconv.FormatInt(n, 10)
}

// NextFor is Next checked against the ids in s.
func (g *IDGenerator) NextFor(s *Store) string {
	return g.Next(func(id string) bool { return s.IndexOf(id) >= 0 })
}
