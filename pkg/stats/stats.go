package stats

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// EnableMemoryStatistics enables go routine that periodically prints memory
// usage of the go process along with the swap counters. If dumpFile is set,
// the gathered metrics are written there when the context is done.
func EnableMemoryStatistics(
	ctx context.Context, interval time.Duration, dumpFile string,
) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PrintMemoryStatistics()
				PrintNumOfRoutines()
				PrintSwapStatistics()
			case <-ctx.Done():
				if len(dumpFile) <= 0 {
					return
				}
				if err := DumpPrometheusDefaults(dumpFile); err != nil {
					log.WithError(err).Warn("stats: failed to dump metrics")
				}
				return
			}
		}
	}()
}

// PrintMemoryStatistics prints memory statistics using go runtime library.
func PrintMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.Infof(
		"Total allocated: %s, Heap allocated: %s, "+
			"Allocated objects count: %v, Freed objects count: %v",
		humanize.Bytes(memStats.TotalAlloc),
		humanize.Bytes(memStats.HeapAlloc),
		memStats.Mallocs,
		memStats.Frees,
	)
}

// PrintSwapStatistics logs the current value of every zecswap counter.
func PrintSwapStatistics() {
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.WithError(err).Warn("stats: failed to gather metrics")
		return
	}

	fields := log.Fields{}
	for _, mf := range metricFamilies {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		fields[strings.TrimPrefix(mf.GetName(), namespace+"_")] = total
	}
	log.WithFields(fields).Info("swap statistics")
}

// DumpPrometheusDefaults write default Prometheus metrics to a file
func DumpPrometheusDefaults(filename string) error {
	file, err := os.OpenFile(
		filename,
		os.O_APPEND|os.O_CREATE|os.O_RDWR,
		0644,
	)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	metricFamily, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, v := range metricFamily {
		if _, err := writer.WriteString(v.String() + "\n"); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// PrintNumOfRoutines prints number of go routines currently running
func PrintNumOfRoutines() {
	log.Infof("Num of go routines: %v", runtime.NumGoroutine())
}
