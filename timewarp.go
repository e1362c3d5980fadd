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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitframe/timewarp/control"
	"github.com/splitframe/timewarp/delta"
	"github.com/splitframe/timewarp/fault"
	"github.com/splitframe/timewarp/logger"
	"github.com/splitframe/timewarp/playback"
	"github.com/splitframe/timewarp/stream"
	"github.com/splitframe/timewarp/version"
)

// config is read from the environment at launch.
type config struct {
	// address the websocket control and metrics endpoints are served on
	Addr string `env:"TIMEWARP_ADDR" envDefault:":8974"`

	// path to a comm file naming the recording to scrub. when empty the
	// demo simulation records itself into a temporary directory
	Comm string `env:"TIMEWARP_COMM"`

	SnapshotInterval int `env:"TIMEWARP_SNAPSHOT_INTERVAL" envDefault:"900"`
	JumpInterval     int `env:"TIMEWARP_JUMP_INTERVAL" envDefault:"300"`
	MaxInflightDiffs int `env:"TIMEWARP_MAX_INFLIGHT_DIFFS" envDefault:"3"`

	// frame rate of the demo simulation
	FPS int `env:"TIMEWARP_FPS" envDefault:"60"`

	// echo the log to stderr as it accumulates
	LogEcho bool `env:"TIMEWARP_LOG_ECHO" envDefault:"true"`
}

func main() {
	if err := launch(); err != nil {
		fmt.Fprintf(os.Stderr, "* %v\n", err)
		os.Exit(10)
	}
}

func launch() error {
	var conf config
	if err := env.Parse(&conf); err != nil {
		return fault.Errorf("config: %v", err)
	}

	if conf.LogEcho {
		logger.SetEcho(os.Stderr)
	}

	vrs, rev, release := version.Version()
	if release {
		logger.Logf("main", "%s %s", version.ApplicationName, vrs)
	} else {
		logger.Logf("main", "%s %s (%s)", version.ApplicationName, vrs, rev)
	}

	// the engine follows a recording. with no comm file the demo simulation
	// records itself and scrubbing happens against the live session
	var rec *stream.Recorder
	comm := &stream.Comm{Mode: playback.ModeNormal}

	if conf.Comm != "" {
		loaded, err := stream.LoadComm(conf.Comm)
		if err != nil {
			return err
		}
		comm = loaded
	} else {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("timewarp-%d.twr", os.Getpid()))
		var err error
		rec, err = stream.NewRecorder(path, 1)
		if err != nil {
			return err
		}
		defer rec.Close()
		defer os.Remove(path)

		comm.Replay = path
		logger.Logf("main", "recording demo session to %s", path)
	}

	sim := newDemoSim(conf.FPS, rec)

	// the reader attaches before the first frame is simulated. the reference
	// snapshot is captured at the first frame so the simulation must not
	// start until the engine is watching
	source, err := stream.Open(comm)
	if err != nil {
		return err
	}
	defer source.Close()

	codec, err := delta.NewCodec()
	if err != nil {
		return err
	}

	eng := playback.NewEngine(sim, sim, codec, source, playback.Options{
		Interval:         conf.SnapshotInterval,
		JumpInterval:     conf.JumpInterval,
		MaxInflightDiffs: conf.MaxInflightDiffs,
		Notify: func(n playback.Notice) {
			logger.Logf("main", "notice: %d", n)
		},
	})
	eng.Start()
	defer eng.Reset()

	simEnded := make(chan error, 1)
	go func() {
		simEnded <- sim.run(eng)
	}()
	defer sim.stop()

	ctrl := control.NewServer(eng)
	defer ctrl.Shutdown()

	mux := http.NewServeMux()
	mux.Handle("/ws", ctrl)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: conf.Addr, Handler: mux}
	served := make(chan error, 1)
	go func() {
		served <- srv.ListenAndServe()
	}()
	logger.Logf("main", "listening on %s", conf.Addr)

	intSig := make(chan os.Signal, 1)
	signal.Notify(intSig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-intSig:
		logger.Log("main", "interrupted")
	case err := <-simEnded:
		if err != nil {
			return err
		}
	case err := <-served:
		if err != nil && err != http.ErrServerClosed {
			return fault.Errorf("server: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logf("main", "shutdown: %v", err)
	}

	return nil
}
