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

package frameclock_test

import (
	"math/rand"
	"testing"

	"github.com/splitframe/timewarp/frameclock"
	"github.com/splitframe/timewarp/test"
)

func TestPositiveMod(t *testing.T) {
	test.ExpectEquality(t, frameclock.PositiveMod(-5, 900), 895)
	test.ExpectEquality(t, frameclock.PositiveMod(0, 900), 0)
	test.ExpectEquality(t, frameclock.PositiveMod(900, 900), 0)
	test.ExpectEquality(t, frameclock.PositiveMod(901, 900), 1)
	test.ExpectEquality(t, frameclock.PositiveMod(-900, 900), 0)
	test.ExpectEquality(t, frameclock.PositiveMod(-901, 900), 899)

	// negative divisor. result is still in [0, |b|)
	test.ExpectEquality(t, frameclock.PositiveMod(-5, -900), 895)
	test.ExpectEquality(t, frameclock.PositiveMod(5, -900), 5)
}

func TestPositiveModRange(t *testing.T) {
	// result is in [0, b) for all integers a and all positive b
	for i := 0; i < 10000; i++ {
		a := rand.Int() - rand.Int()
		b := rand.Intn(10000) + 1
		r := frameclock.PositiveMod(a, b)
		if r < 0 || r >= b {
			t.Fatalf("PositiveMod(%d, %d) = %d, outside [0, %d)", a, b, r, b)
		}
	}
}

func TestNearestIntervalFrame(t *testing.T) {
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(50, 0, 900), 0)
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(500, 0, 900), 0)
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(900, 0, 900), 900)
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(1000, 0, 900), 900)
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(1799, 0, 900), 900)
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(1800, 0, 900), 1800)

	// a non-zero first frame shifts the boundaries. some recordings number
	// their frames from a negative value
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(0, -123, 900), -123)
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(777, -123, 900), 777)
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(800, -123, 900), 777)

	// frames before the first frame resolve to a boundary before them
	test.ExpectEquality(t, frameclock.NearestIntervalFrame(-500, 0, 900), -900)
}

func TestNearestIntervalFrameIdempotent(t *testing.T) {
	for i := 0; i < 10000; i++ {
		f := rand.Intn(2000000) - 1000000
		first := rand.Intn(1000) - 500
		interval := rand.Intn(1000) + 1

		once := frameclock.NearestIntervalFrame(f, first, interval)
		twice := frameclock.NearestIntervalFrame(once, first, interval)
		if once != twice {
			t.Fatalf("NearestIntervalFrame(%d, %d, %d) not idempotent: %d != %d", f, first, interval, once, twice)
		}
	}
}

func TestIsIntervalFrame(t *testing.T) {
	test.ExpectSuccess(t, frameclock.IsIntervalFrame(0, 0, 900))
	test.ExpectSuccess(t, frameclock.IsIntervalFrame(900, 0, 900))
	test.ExpectFailure(t, frameclock.IsIntervalFrame(899, 0, 900))
	test.ExpectSuccess(t, frameclock.IsIntervalFrame(-123, -123, 900))
	test.ExpectSuccess(t, frameclock.IsIntervalFrame(777, -123, 900))
}

func TestClamp(t *testing.T) {
	test.ExpectEquality(t, frameclock.Clamp(50, 0, 5000), 50)
	test.ExpectEquality(t, frameclock.Clamp(-50, 0, 5000), 0)
	test.ExpectEquality(t, frameclock.Clamp(6000, 0, 5000), 5000)
	test.ExpectEquality(t, frameclock.Clamp(0, 0, 5000), 0)
	test.ExpectEquality(t, frameclock.Clamp(5000, 0, 5000), 5000)

	// an empty range clamps to the first frame, never below it. a recording
	// that has announced its first frame but holds no frames yet presents
	// exactly this range
	test.ExpectEquality(t, frameclock.Clamp(50, 0, -1), 0)
	test.ExpectEquality(t, frameclock.Clamp(-50, 1, 0), 1)
	test.ExpectEquality(t, frameclock.Clamp(1, 1, 0), 1)
}
