/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChunksWritten counts audio chunks delivered to the output device.
	ChunksWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lyndj_playback_chunks_written_total",
		Help: "Audio chunks written to the output device.",
	})

	// ChunksDropped counts chunks skipped due to processing or device errors.
	ChunksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lyndj_playback_chunks_dropped_total",
		Help: "Audio chunks dropped due to errors.",
	})

	// DecodeFailures counts audio files that could not be decoded.
	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lyndj_decode_failures_total",
		Help: "Audio files that failed to decode.",
	})

	// TracksPlayed counts tracks that finished playing past the halfway mark.
	TracksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lyndj_tracks_played_total",
		Help: "Tracks counted as played.",
	})

	// TaskQueueDepth tracks the number of queued background tasks.
	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lyndj_background_tasks_queued",
		Help: "Background tasks waiting to run.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
