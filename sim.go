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
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/splitframe/timewarp/fault"
	"github.com/splitframe/timewarp/pace"
	"github.com/splitframe/timewarp/playback"
	"github.com/splitframe/timewarp/stream"
)

// demoSim is the simulation wrapped by the demonstration binary. it is
// deterministic in the only sense the engine cares about: its full state is
// captured and restored exactly, so scrubbing it back and forth is
// observable. a real integration supplies its own playback.Host and
// playback.SnapshotStore.
//
// the state is a frame counter and a linear congruential generator stirred
// once per frame.
type demoSim struct {
	crit    sync.Mutex
	resumed *sync.Cond

	frame  int
	lcg    uint64
	paused bool
	halt   bool

	limiter *pace.Limiter
	rec     *stream.Recorder
}

// the lcg constants are the classic ones from Numerical Recipes.
const (
	lcgMul  = 1664525
	lcgInc  = 1013904223
	lcgSeed = 0x5eed
)

func newDemoSim(fps int, rec *stream.Recorder) *demoSim {
	s := &demoSim{
		lcg:     lcgSeed,
		limiter: pace.NewLimiter(fps),
		rec:     rec,
	}
	s.resumed = sync.NewCond(&s.crit)
	return s
}

// step advances the simulation by one frame and records it. returns the new
// frame number.
func (s *demoSim) step() (int, error) {
	s.crit.Lock()
	s.frame++
	s.lcg = s.lcg*lcgMul + lcgInc
	frame := s.frame
	lcg := s.lcg
	s.crit.Unlock()

	if s.rec != nil {
		if err := s.rec.AppendFrame(fmt.Sprintf("%016x", lcg)); err != nil {
			return frame, fault.Errorf("sim: %v", err)
		}
	}
	return frame, nil
}

// run is the simulation loop. it steps frames, records each one and yields
// to the engine once per frame. it returns when halted via stop().
func (s *demoSim) run(eng *playback.Engine) error {
	for {
		s.crit.Lock()
		for s.paused && !s.halt {
			s.resumed.Wait()
		}
		if s.halt {
			s.crit.Unlock()
			return nil
		}
		s.crit.Unlock()

		frame, err := s.step()
		if err != nil {
			return err
		}

		eng.OnFrameAdvance(frame)
		s.limiter.Wait()
	}
}

// stop halts the simulation loop. the engine must be Reset() first so that
// nothing is left waiting on a frame that will never come.
func (s *demoSim) stop() {
	s.crit.Lock()
	s.halt = true
	s.resumed.Broadcast()
	s.crit.Unlock()
	s.limiter.Stop()
}

// Pause implements the playback.Host interface.
func (s *demoSim) Pause() {
	s.crit.Lock()
	s.paused = true
	s.crit.Unlock()
}

// Resume implements the playback.Host interface.
func (s *demoSim) Resume() {
	s.crit.Lock()
	s.paused = false
	s.resumed.Broadcast()
	s.crit.Unlock()
}

// Paused implements the playback.Host interface.
func (s *demoSim) Paused() bool {
	s.crit.Lock()
	defer s.crit.Unlock()
	return s.paused
}

// SetUnthrottled implements the playback.Host interface.
func (s *demoSim) SetUnthrottled(enable bool) {
	s.limiter.SetUnthrottled(enable)
}

// CaptureFullState implements the playback.SnapshotStore interface.
func (s *demoSim) CaptureFullState() ([]byte, error) {
	s.crit.Lock()
	defer s.crit.Unlock()

	state := make([]byte, 16)
	binary.LittleEndian.PutUint64(state, uint64(s.frame))
	binary.LittleEndian.PutUint64(state[8:], s.lcg)
	return state, nil
}

// RestoreFullState implements the playback.SnapshotStore interface.
func (s *demoSim) RestoreFullState(state []byte) error {
	if len(state) != 16 {
		return fault.Errorf("sim: %v", "snapshot is not a demo simulation state")
	}

	s.crit.Lock()
	defer s.crit.Unlock()
	s.frame = int(binary.LittleEndian.Uint64(state))
	s.lcg = binary.LittleEndian.Uint64(state[8:])
	return nil
}
