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

package stream

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/splitframe/timewarp/fault"
	"github.com/splitframe/timewarp/logger"
	"github.com/splitframe/timewarp/playback"
)

// magic line at the top of every recording file. the second header line is
// the number of the first recorded frame.
const magic = "timewarp recording v1"

const numHeaderLines = 2

// Reader follows a recording file, possibly one that is still being written
// to, and reports the frame window available for playback. it implements the
// playback.Source interface.
//
// the recording may grow while it is being read. a filesystem watcher absorbs
// appended frames as they arrive and the value returned by LatestFrame()
// advances accordingly.
type Reader struct {
	crit sync.Mutex

	mode    playback.Mode
	watches []Watch
	current int

	file   *os.File
	offset int64

	first  int
	latest int
	start  int
	end    int

	watcher *fsnotify.Watcher
	done    chan struct{}
	tailing sync.WaitGroup
}

// Open begins following the recording named by the comm file. the returned
// Reader must be closed when no longer required.
func Open(comm *Comm) (*Reader, error) {
	r := &Reader{
		mode:    comm.Mode,
		watches: comm.watches(),
		done:    make(chan struct{}),
	}

	if err := r.attach(r.watches[0]); err != nil {
		return nil, err
	}

	var err error
	r.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		_ = r.file.Close()
		return nil, fault.Errorf("stream: %v", err)
	}
	if err := r.watcher.Add(r.file.Name()); err != nil {
		_ = r.watcher.Close()
		_ = r.file.Close()
		return nil, fault.Errorf("stream: %v", err)
	}

	r.tailing.Add(1)
	go r.tail()

	return r, nil
}

// attach opens the recording named by the watch entry and scans what has been
// written of it so far.
func (r *Reader) attach(w Watch) error {
	f, err := os.Open(w.Path)
	if err != nil {
		return fault.Errorf("stream: %v", err)
	}

	data, err := os.ReadFile(w.Path)
	if err != nil {
		_ = f.Close()
		return fault.Errorf("stream: %v", err)
	}

	lines := strings.SplitN(string(data), "\n", numHeaderLines+1)
	if len(lines) < numHeaderLines+1 || lines[0] != magic {
		_ = f.Close()
		return fault.Errorf("stream: %v", "not a recording file")
	}

	first, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		_ = f.Close()
		return fault.Errorf("stream: bad recording header: %v", err)
	}

	r.file = f
	r.first = first
	r.latest = first + strings.Count(lines[2], "\n") - 1

	// scanning resumes after the last complete line. a partial trailing
	// line is left for the tail goroutine to pick up once it completes.
	headerLen := len(data) - len(lines[2])
	r.offset = int64(headerLen + strings.LastIndexByte(lines[2], '\n') + 1)

	r.start = w.StartFrame
	if r.start < first {
		r.start = first
	}
	r.end = w.EndFrame
	if r.end <= 0 {
		r.end = math.MaxInt
	}

	return nil
}

// tail absorbs frames appended to the recording as the filesystem reports
// them.
func (r *Reader) tail() {
	defer r.tailing.Done()

	for {
		select {
		case <-r.done:
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write == fsnotify.Write {
				r.absorb()
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logger.Logf("stream", "watcher: %v", err)
		}
	}
}

// absorb reads any bytes appended beyond the point last scanned and counts
// the completed frame records among them.
func (r *Reader) absorb() {
	r.crit.Lock()
	defer r.crit.Unlock()

	buf := make([]byte, 4096)
	for {
		n, err := r.file.ReadAt(buf, r.offset)
		if n > 0 {
			// only complete lines count as recorded frames. a partial
			// trailing line will be absorbed once its newline arrives.
			complete := bytes.LastIndexByte(buf[:n], '\n')
			if complete < 0 {
				break
			}
			r.latest += bytes.Count(buf[:complete+1], []byte("\n"))
			r.offset += int64(complete + 1)
		}
		if err != nil || n == 0 {
			break
		}
	}
}

// FirstFrame implements the playback.Source interface.
func (r *Reader) FirstFrame() int {
	r.crit.Lock()
	defer r.crit.Unlock()
	return r.first
}

// LatestFrame implements the playback.Source interface.
func (r *Reader) LatestFrame() int {
	r.crit.Lock()
	defer r.crit.Unlock()
	return r.latest
}

// Mode implements the playback.Source interface.
func (r *Reader) Mode() playback.Mode {
	return r.mode
}

// Bounds implements the playback.Source interface.
func (r *Reader) Bounds() (int, int) {
	r.crit.Lock()
	defer r.crit.Unlock()
	return r.start, r.end
}

// WidenBounds implements the playback.Source interface. bounds only ever
// widen. a target already inside the window leaves it untouched.
func (r *Reader) WidenBounds(target int) {
	r.crit.Lock()
	defer r.crit.Unlock()

	if target < r.start {
		r.start = target
	}
	if target > r.end {
		r.end = math.MaxInt
	}
}

// Close stops following the recording.
func (r *Reader) Close() error {
	select {
	case <-r.done:
		return nil
	default:
	}

	close(r.done)
	err := r.watcher.Close()
	r.tailing.Wait()

	if cerr := r.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fault.Errorf("stream: %v", err)
	}
	return nil
}

// Recorder appends to a recording file in the format Reader understands. it
// exists so a live session can be recorded and scrubbed at the same time.
type Recorder struct {
	crit sync.Mutex
	file *os.File
	next int
}

// NewRecorder creates a recording file, truncating any file already at the
// path. frames are numbered from firstFrame.
func NewRecorder(path string, firstFrame int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fault.Errorf("stream: %v", err)
	}

	if _, err := fmt.Fprintf(f, "%s\n%d\n", magic, firstFrame); err != nil {
		_ = f.Close()
		return nil, fault.Errorf("stream: %v", err)
	}

	return &Recorder{file: f, next: firstFrame}, nil
}

// AppendFrame writes one frame record. the payload is opaque to the stream
// package and must not contain a newline.
func (rec *Recorder) AppendFrame(payload string) error {
	rec.crit.Lock()
	defer rec.crit.Unlock()

	if _, err := fmt.Fprintf(rec.file, "%d %s\n", rec.next, payload); err != nil {
		return fault.Errorf("stream: %v", err)
	}
	rec.next++
	return nil
}

// Close flushes and closes the recording file.
func (rec *Recorder) Close() error {
	rec.crit.Lock()
	defer rec.crit.Unlock()

	if err := rec.file.Close(); err != nil {
		return fault.Errorf("stream: %v", err)
	}
	return nil
}
