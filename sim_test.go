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

package main

import (
	"testing"

	"github.com/splitframe/timewarp/test"
)

func TestDemoSimDeterminism(t *testing.T) {
	s := newDemoSim(60, nil)
	defer s.stop()

	for i := 0; i < 10; i++ {
		_, err := s.step()
		test.ExpectSuccess(t, err)
	}

	snap, err := s.CaptureFullState()
	test.DemandSuccess(t, err)

	// diverge, then restore
	for i := 0; i < 100; i++ {
		_, err := s.step()
		test.ExpectSuccess(t, err)
	}
	divergent, err := s.CaptureFullState()
	test.DemandSuccess(t, err)
	test.ExpectInequality(t, string(divergent), string(snap))

	test.ExpectSuccess(t, s.RestoreFullState(snap))

	roundTrip, err := s.CaptureFullState()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(roundTrip), string(snap))

	// a restored simulation replays the same states
	frame, err := s.step()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, frame, 11)
}

func TestDemoSimRejectsForeignSnapshot(t *testing.T) {
	s := newDemoSim(60, nil)
	defer s.stop()
	test.ExpectFailure(t, s.RestoreFullState([]byte{1, 2, 3}))
}
