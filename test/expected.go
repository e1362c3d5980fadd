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

// ExpectEquality is used to test equality between one value and another.
func ExpectEquality[T comparable](t *testing.T, v T, expectedValue T) bool {
	t.Helper()
	if v != expectedValue {
		t.Errorf("equality test of type %T failed: '%v' does not equal '%v'", v, v, expectedValue)
		return false
	}
	return true
}

// ExpectInequality is the inverse of ExpectEquality.
func ExpectInequality[T comparable](t *testing.T, v T, expectedValue T) bool {
	t.Helper()
	if v == expectedValue {
		t.Errorf("inequality test of type %T failed: '%v' equals '%v'", v, v, expectedValue)
		return false
	}
	return true
}

// ExpectSuccess tests the value of v for a success condition. How success is
// measured depends on the type of v:
//
//	bool      success if true
//	error     success if nil
//	nil       success
func ExpectSuccess(t *testing.T, v any) bool {
	t.Helper()

	switch v := v.(type) {
	case bool:
		if !v {
			t.Error("expected success (bool)")
			return false
		}
	case error:
		if v != nil {
			t.Errorf("expected success (error): %v", v)
			return false
		}
	case nil:
		return true
	default:
		t.Fatalf("unsupported type (%T) for ExpectSuccess()", v)
		return false
	}

	return true
}

// ExpectFailure tests the value of v for a failure condition. The failure
// condition is the inverse of the success condition described in the
// ExpectSuccess documentation.
func ExpectFailure(t *testing.T, v any) bool {
	t.Helper()

	switch v := v.(type) {
	case bool:
		if v {
			t.Error("expected failure (bool)")
			return false
		}
	case error:
		if v == nil {
			t.Error("expected failure (error)")
			return false
		}
	case nil:
		t.Error("expected failure (nil)")
		return false
	default:
		t.Fatalf("unsupported type (%T) for ExpectFailure()", v)
		return false
	}

	return true
}
