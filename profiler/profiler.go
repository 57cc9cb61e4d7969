// Package profiler - Per-stage timings, process resource usage and periodic reports for the frame loop.
package profiler

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Stage names recorded by the frame loop.
const (
	StageDecode   = "decode"
	StageInfer    = "infer"
	StageAnnotate = "annotate"
	StageEncode   = "encode"
)

// RuntimeProfiler tracks operation timings and custom metrics and reports them through a logger.
//
// It runs no goroutines of its own: the caller drives it by calling
// MaybeReport from its loop, and reports are emitted synchronously.
type RuntimeProfiler struct {
	// Configuration
	reportInterval time.Duration
	maxSamples     int
	logger         *zap.Logger
	clock          func() time.Time

	// State management
	mu         sync.RWMutex
	startTime  time.Time
	lastReport time.Time
	proc       *process.Process

	// Custom metrics
	customMetrics map[string]*MetricTracker

	// Performance tracking
	operationTimes map[string]*TimeTracker
}

// MetricTracker tracks statistics for a custom metric.
type MetricTracker struct {
	name   string
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	name      string
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// ProfilingOptions configures the runtime profiler.
type ProfilingOptions struct {
	// ReportInterval specifies how often MaybeReport emits a report (default: 5s)
	ReportInterval time.Duration
	// MaxSamples specifies maximum number of samples kept per tracker (default: 600)
	MaxSamples int
	// Logger receives the reports (default: no-op)
	Logger *zap.Logger
}

// NewRuntimeProfiler creates a new runtime profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler
//
// Returns:
// - A configured RuntimeProfiler instance
func NewRuntimeProfiler(opts ProfilingOptions) *RuntimeProfiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 5 * time.Second
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	// Process stats are best effort; reports omit them when unavailable.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		opts.Logger.Debug("process stats unavailable", zap.Error(err))
		proc = nil
	}

	now := time.Now()
	return &RuntimeProfiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		clock:          time.Now,
		startTime:      now,
		lastReport:     now,
		proc:           proc,
		customMetrics:  make(map[string]*MetricTracker),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (rp *RuntimeProfiler) RecordMetric(name string, value float64) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{
			name:   name,
			values: make([]float64, 0, rp.maxSamples),
			min:    value,
			max:    value,
		}
		rp.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	if len(tracker.values) > rp.maxSamples {
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}

	tracker.sum += value
	tracker.count++

	if value < tracker.min {
		tracker.min = value
	}
	if value > tracker.max {
		tracker.max = value
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	start := rp.clock()
	return func() {
		rp.RecordOperation(name, rp.clock().Sub(start))
	}
}

// RecordOperation records the completion time of an operation.
func (rp *RuntimeProfiler) RecordOperation(name string, duration time.Duration) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		rp.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	if len(tracker.durations) > rp.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// MaybeReport emits a status report if the report interval has elapsed since the last one.
//
// Returns:
// - true if a report was emitted
func (rp *RuntimeProfiler) MaybeReport() bool {
	now := rp.clock()

	rp.mu.Lock()
	due := now.Sub(rp.lastReport) >= rp.reportInterval
	if due {
		rp.lastReport = now
	}
	rp.mu.Unlock()

	if due {
		rp.Report("profiler status")
	}
	return due
}

// Report emits a status report with the given message.
func (rp *RuntimeProfiler) Report(msg string) {
	rp.logger.Info(msg, rp.Fields()...)
}

// Fields returns the current statistics as structured log fields.
func (rp *RuntimeProfiler) Fields() []zap.Field {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	fields := []zap.Field{
		zap.Duration("uptime", rp.clock().Sub(rp.startTime).Truncate(time.Millisecond)),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fields = append(fields,
		zap.String("heap_alloc", formatBytes(mem.HeapAlloc)),
		zap.Uint32("gc_cycles", mem.NumGC),
	)

	if rp.proc != nil {
		if info, err := rp.proc.MemoryInfo(); err == nil {
			fields = append(fields, zap.String("rss", formatBytes(info.RSS)))
		}
		if cpu, err := rp.proc.CPUPercent(); err == nil {
			fields = append(fields, zap.Float64("cpu_percent", cpu))
		}
	}

	for _, name := range sortedKeys(rp.operationTimes) {
		tracker := rp.operationTimes[name]
		if len(tracker.durations) == 0 {
			continue
		}
		avg := tracker.totalTime / time.Duration(len(tracker.durations))
		fields = append(fields, zap.String(name, fmt.Sprintf("avg=%v min=%v max=%v count=%d",
			avg.Truncate(time.Microsecond),
			tracker.minTime.Truncate(time.Microsecond),
			tracker.maxTime.Truncate(time.Microsecond),
			tracker.count)))
	}

	for _, name := range sortedKeys(rp.customMetrics) {
		tracker := rp.customMetrics[name]
		if len(tracker.values) == 0 {
			continue
		}
		avg := tracker.sum / float64(len(tracker.values))
		fields = append(fields, zap.String(name, fmt.Sprintf("avg=%.2f min=%.2f max=%.2f samples=%d",
			avg, tracker.min, tracker.max, len(tracker.values))))
	}

	return fields
}

// GetCurrentStats returns the current profiling statistics as a snapshot.
//
// Returns:
// - A map containing operation timings and custom metrics
func (rp *RuntimeProfiler) GetCurrentStats() map[string]interface{} {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["uptime"] = rp.clock().Sub(rp.startTime)

	operations := make(map[string]interface{})
	for name, tracker := range rp.operationTimes {
		if len(tracker.durations) == 0 {
			continue
		}
		operations[name] = map[string]interface{}{
			"avg":   tracker.totalTime / time.Duration(len(tracker.durations)),
			"min":   tracker.minTime,
			"max":   tracker.maxTime,
			"count": tracker.count,
		}
	}
	stats["operations"] = operations

	customStats := make(map[string]interface{})
	for name, tracker := range rp.customMetrics {
		if len(tracker.values) == 0 {
			continue
		}
		customStats[name] = map[string]interface{}{
			"avg":     tracker.sum / float64(len(tracker.values)),
			"min":     tracker.min,
			"max":     tracker.max,
			"samples": len(tracker.values),
		}
	}
	stats["custom_metrics"] = customStats

	return stats
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
