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
)

// DemandEquality is the same as ExpectEquality except that the test is
// stopped immediately on failure.
func DemandEquality[T comparable](t *testing.T, v T, expectedValue T) {
	t.Helper()
	if v != expectedValue {
		t.Fatalf("equality test of type %T failed: '%v' does not equal '%v'", v, v, expectedValue)
	}
}

// DemandSuccess is the same as ExpectSuccess except that the test is stopped
// immediately on failure.
func DemandSuccess(t *testing.T, v any) {
	t.Helper()
	if !ExpectSuccess(t, v) {
		t.FailNow()
	}
}

// DemandFailure is the same as ExpectFailure except that the test is stopped
// immediately on failure.
func DemandFailure(t *testing.T, v any) {
	t.Helper()
	if !ExpectFailure(t, v) {
		t.FailNow()
	}
}
