package metrics

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

// PebbleCollector exports compaction, memtable and WAL statistics of the primary store.
type PebbleCollector struct {
	db *pebble.DB

	compactionCount         *prometheus.Desc
	compactionEstimatedDebt *prometheus.Desc
	compactionInProgress    *prometheus.Desc

	memtableSize  *prometheus.Desc
	memtableCount *prometheus.Desc

	walFiles        *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesIn      *prometheus.Desc
	walBytesWritten *prometheus.Desc
}

// NewPebbleCollector creates a collector reading db.Metrics() on every scrape.
func NewPebbleCollector(db *pebble.DB) *PebbleCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("zelastic", "pebble", name), help, nil, nil)
	}
	return &PebbleCollector{
		db: db,

		compactionCount:         desc("compaction_count_total", "Total number of compactions performed"),
		compactionEstimatedDebt: desc("compaction_estimated_debt_bytes", "Estimated bytes to compact to reach a stable state"),
		compactionInProgress:    desc("compaction_in_progress_bytes", "Bytes being compacted currently"),

		memtableSize:  desc("memtable_size_bytes", "Current size of the memtables in bytes"),
		memtableCount: desc("memtable_count", "Current count of memtables"),

		walFiles:        desc("wal_files", "Number of live WAL files"),
		walSize:         desc("wal_size_bytes", "Size of live WAL data in bytes"),
		walBytesIn:      desc("wal_bytes_in_total", "Total logical bytes written to the WAL"),
		walBytesWritten: desc("wal_bytes_written_total", "Total physical bytes written to the WAL"),
	}
}

// Describe implements prometheus.Collector.
func (pc *PebbleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.compactionCount
	ch <- pc.compactionEstimatedDebt
	ch <- pc.compactionInProgress
	ch <- pc.memtableSize
	ch <- pc.memtableCount
	ch <- pc.walFiles
	ch <- pc.walSize
	ch <- pc.walBytesIn
	ch <- pc.walBytesWritten
}

// Collect implements prometheus.Collector.
func (pc *PebbleCollector) Collect(ch chan<- prometheus.Metric) {
	m := pc.db.Metrics()

	ch <- prometheus.MustNewConstMetric(pc.compactionCount, prometheus.CounterValue, float64(m.Compact.Count))
	ch <- prometheus.MustNewConstMetric(pc.compactionEstimatedDebt, prometheus.GaugeValue, float64(m.Compact.EstimatedDebt))
	ch <- prometheus.MustNewConstMetric(pc.compactionInProgress, prometheus.GaugeValue, float64(m.Compact.InProgressBytes))

	ch <- prometheus.MustNewConstMetric(pc.memtableSize, prometheus.GaugeValue, float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(pc.memtableCount, prometheus.GaugeValue, float64(m.MemTable.Count))

	ch <- prometheus.MustNewConstMetric(pc.walFiles, prometheus.GaugeValue, float64(m.WAL.Files))
	ch <- prometheus.MustNewConstMetric(pc.walSize, prometheus.GaugeValue, float64(m.WAL.Size))
	ch <- prometheus.MustNewConstMetric(pc.walBytesIn, prometheus.CounterValue, float64(m.WAL.BytesIn))
	ch <- prometheus.MustNewConstMetric(pc.walBytesWritten, prometheus.CounterValue, float64(m.WAL.BytesWritten))
}
