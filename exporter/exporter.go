// Package exporter exposes device metrics as Prometheus collectors.
package exporter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/owacoder/devio"
)

type info struct {
	description *prometheus.Desc
	supplier    func(s devio.MetricsSnapshot, labelValues []string) prometheus.Metric
}

// DeviceCollector collects metrics from registered device handles.
type DeviceCollector struct {
	mu      sync.Mutex
	devices map[string]*devio.Metrics
	infos   []info
}

// NewDeviceCollector creates a collector with the given metric name prefix
// and constant labels.
func NewDeviceCollector(prefix string, constLabels prometheus.Labels) *DeviceCollector {
	variableLabels := []string{"device"}
	counter := func(name, help string, value func(devio.MetricsSnapshot) uint64) info {
		return info{
			description: prometheus.NewDesc(prefix+"_"+name, help, variableLabels, constLabels),
			supplier: func(s devio.MetricsSnapshot, labelValues []string) prometheus.Metric {
				return prometheus.MustNewConstMetric(
					prometheus.NewDesc(prefix+"_"+name, help, variableLabels, constLabels),
					prometheus.CounterValue, float64(value(s)), labelValues...)
			},
		}
	}

	return &DeviceCollector{
		devices: make(map[string]*devio.Metrics),
		infos: []info{
			counter("read_ops_total", "Total read operations.", func(s devio.MetricsSnapshot) uint64 { return s.ReadOps }),
			counter("write_ops_total", "Total write operations.", func(s devio.MetricsSnapshot) uint64 { return s.WriteOps }),
			counter("seek_ops_total", "Total seek operations.", func(s devio.MetricsSnapshot) uint64 { return s.SeekOps }),
			counter("flush_ops_total", "Total flush operations.", func(s devio.MetricsSnapshot) uint64 { return s.FlushOps }),
			counter("read_bytes_total", "Total bytes read.", func(s devio.MetricsSnapshot) uint64 { return s.ReadBytes }),
			counter("write_bytes_total", "Total bytes written.", func(s devio.MetricsSnapshot) uint64 { return s.WriteBytes }),
			counter("read_errors_total", "Read operation errors.", func(s devio.MetricsSnapshot) uint64 { return s.ReadErrors }),
			counter("write_errors_total", "Write operation errors.", func(s devio.MetricsSnapshot) uint64 { return s.WriteErrors }),
			counter("flush_errors_total", "Flush operation errors.", func(s devio.MetricsSnapshot) uint64 { return s.FlushErrors }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *DeviceCollector) Describe(descs chan<- *prometheus.Desc) {
	for _, i := range c.infos {
		descs <- i.description
	}
}

// Collect implements prometheus.Collector.
func (c *DeviceCollector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, m := range c.devices {
		s := m.Snapshot()
		for _, i := range c.infos {
			metrics <- i.supplier(s, []string{name})
		}
	}
}

// Add registers a metrics instance under a device name.
func (c *DeviceCollector) Add(name string, m *devio.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices[name] = m
}

// Remove drops a registered device.
func (c *DeviceCollector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.devices, name)
}
