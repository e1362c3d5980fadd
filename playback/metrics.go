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

package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	diffsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timewarp_diffs_computed_total",
		Help: "Number of snapshot diffs computed and stored in the archive.",
	})

	diffFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timewarp_diff_failures_total",
		Help: "Number of diff computations that failed. The archive entry is left absent.",
	})

	diffsInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timewarp_diffs_inflight",
		Help: "Number of diff computations currently in flight.",
	})

	seeksServiced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timewarp_seeks_serviced_total",
		Help: "Number of seek/jump requests resolved by the seek worker.",
	})

	seekFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timewarp_seek_failures_total",
		Help: "Number of seeks abandoned because a state restore failed.",
	})

	fastForwardSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timewarp_fast_forward_seconds",
		Help:    "Wall clock time spent fast-forwarding to close a seek gap.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
