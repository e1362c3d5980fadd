// This file is part of Timewarp.
//
// Timewarp is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Timewarp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Timewarp.  If not, see <https://www.gnu.org/licenses/>.

package test

import (
	"testing"
	"time"
)

// ExpectTimely waits for the condition function to return true, polling at
// short intervals up to the supplied duration. The test fails if the
// condition is still false when the duration expires.
//
// Useful for tests that observe state changed by another goroutine. The
// condition function is called from the test goroutine only, so it can safely
// use the testing.T instance.
func ExpectTimely(t *testing.T, wait time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(time.Millisecond)
	}

	if condition() {
		return true
	}

	t.Errorf("condition not satisfied within %v", wait)
	return false
}

// DemandTimely is the same as ExpectTimely except that the test is stopped
// immediately on failure.
func DemandTimely(t *testing.T, wait time.Duration, condition func() bool) {
	t.Helper()
	if !ExpectTimely(t, wait, condition) {
		t.FailNow()
	}
}
