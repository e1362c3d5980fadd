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
	"encoding/json"
	"os"

	"github.com/splitframe/timewarp/fault"
	"github.com/splitframe/timewarp/playback"
)

// Watch selects a recording and the frame window to play of it. A zero or
// negative EndFrame means "to the end of the recording".
type Watch struct {
	Path       string `json:"path"`
	StartFrame int    `json:"startFrame"`
	EndFrame   int    `json:"endFrame"`
}

// Comm is the communication file handed to the playback session by whatever
// launched it. In normal mode a single recording is named; in queue mode a
// list of Watch entries is played through in order.
type Comm struct {
	Mode       playback.Mode `json:"mode"`
	Replay     string        `json:"replay"`
	StartFrame int           `json:"startFrame"`
	EndFrame   int           `json:"endFrame"`
	Queue      []Watch       `json:"queue"`
}

// LoadComm reads and validates a comm file.
func LoadComm(path string) (*Comm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Errorf("comm: %v", err)
	}

	comm := &Comm{}
	if err := json.Unmarshal(data, comm); err != nil {
		return nil, fault.Errorf("comm: %v", err)
	}

	if comm.Mode == "" {
		comm.Mode = playback.ModeNormal
	}

	switch comm.Mode {
	case playback.ModeNormal:
		if comm.Replay == "" {
			return nil, fault.Errorf("comm: %v", "no replay named")
		}
	case playback.ModeQueue:
		if len(comm.Queue) == 0 {
			return nil, fault.Errorf("comm: %v", "queue mode with an empty queue")
		}
	default:
		return nil, fault.Errorf("comm: unsupported mode '%v'", comm.Mode)
	}

	return comm, nil
}

// watches flattens the comm file into the list of Watch entries to play.
func (c *Comm) watches() []Watch {
	if c.Mode == playback.ModeQueue {
		return c.Queue
	}
	return []Watch{{
		Path:       c.Replay,
		StartFrame: c.StartFrame,
		EndFrame:   c.EndFrame,
	}}
}
