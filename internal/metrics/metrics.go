// Package metrics exposes Prometheus instrumentation for the dictation
// pipeline: capture, streaming, and transcription outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for dicta
type Metrics struct {
	// Capture metrics
	FramesCaptured   prometheus.Counter
	SamplesCaptured  prometheus.Counter
	RecordingSeconds prometheus.Counter

	// Streaming metrics
	SessionsOpened   prometheus.Counter
	ActiveSessions   prometheus.Gauge
	PCMBytesStreamed prometheus.Counter
	TurnsCompleted   prometheus.Counter
	ChannelErrors    prometheus.Counter

	// File transcription metrics
	FileTranscriptions *prometheus.CounterVec

	// Lifecycle metrics
	StopCleanupFailures prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_frames_captured_total",
			Help: "Total number of audio frames captured from the device",
		}),
		SamplesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_samples_captured_total",
			Help: "Total number of audio samples captured",
		}),
		RecordingSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_recording_seconds_total",
			Help: "Total seconds of active recording",
		}),
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_stream_sessions_opened_total",
			Help: "Total number of streaming transcription sessions opened",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dicta_stream_sessions_active",
			Help: "Current number of open streaming sessions",
		}),
		PCMBytesStreamed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_pcm_bytes_streamed_total",
			Help: "Total PCM bytes sent to the transcription channel",
		}),
		TurnsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_turns_completed_total",
			Help: "Total number of completed transcription turns",
		}),
		ChannelErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_channel_errors_total",
			Help: "Total number of fatal streaming channel errors",
		}),
		FileTranscriptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dicta_file_transcriptions_total",
			Help: "Total number of one-shot file transcriptions by outcome",
		}, []string{"outcome"}),
		StopCleanupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dicta_stop_cleanup_failures_total",
			Help: "Total number of non-fatal failures during stop cleanup",
		}),
	}
}
