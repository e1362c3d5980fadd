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

// Package pace provides a rough and ready way of limiting a frame loop to a
// fixed rate, with an unthrottled mode for fast-forwarding.
//
// A new Limiter can be created with:
//
//	lim := pace.NewLimiter(60)
//
// Operations can then be stalled with the Wait() function. For example:
//
//	for {
//		lim.Wait()
//		stepFrame()
//	}
//
// While the limiter is unthrottled, Wait() returns immediately.
package pace

import (
	"sync/atomic"
	"time"
)

// this is a fairly rough attempt at frame rate limiting. probably only any
// good if base performance of the machine is well above the required rate.

// Limiter will trigger at the requested number of frames per second.
type Limiter struct {
	// nanoseconds per frame
	period atomic.Int64

	unthrottled atomic.Bool

	tick chan struct{}
	quit chan struct{}
}

// NewLimiter is the preferred method of initialisation for the Limiter type.
func NewLimiter(framesPerSecond int) *Limiter {
	lim := &Limiter{
		tick: make(chan struct{}),
		quit: make(chan struct{}),
	}
	lim.SetLimit(framesPerSecond)

	// run ticker concurrently. the sleep duration is continually adjusted
	// by the measured drift so the rate stays honest over time
	go func() {
		adjusted := time.Duration(lim.period.Load())
		t := time.Now()
		for {
			select {
			case lim.tick <- struct{}{}:
			case <-lim.quit:
				return
			}

			time.Sleep(adjusted)

			nt := time.Now()
			adjusted -= nt.Sub(t) - time.Duration(lim.period.Load())
			if adjusted < 0 {
				adjusted = 0
			}
			t = nt
		}
	}()

	return lim
}

// SetLimit changes the rate at which the Limiter triggers.
func (lim *Limiter) SetLimit(framesPerSecond int) {
	if framesPerSecond < 1 {
		framesPerSecond = 1
	}
	lim.period.Store(int64(time.Second) / int64(framesPerSecond))
}

// SetUnthrottled causes Wait() to return immediately until throttling is
// restored.
func (lim *Limiter) SetUnthrottled(enable bool) {
	lim.unthrottled.Store(enable)
}

// Wait will block until the next trigger, or not at all when unthrottled.
func (lim *Limiter) Wait() {
	if lim.unthrottled.Load() {
		return
	}
	select {
	case <-lim.tick:
	case <-lim.quit:
	}
}

// Stop the limiter's ticker. Wait() never blocks after Stop.
func (lim *Limiter) Stop() {
	close(lim.quit)
}
