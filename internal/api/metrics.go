package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "uploadsvc"

// Collector is a prometheus.Collector for the API process.
type Collector struct {
	controlOps     *prometheus.CounterVec
	uiLogEntries   prometheus.Counter
	uploads        *prometheus.CounterVec
	uploadFiles    *prometheus.CounterVec
	serviceRunning prometheus.Gauge
	uiConnected    prometheus.Gauge
}

func NewMetricsCollector() *Collector {
	return &Collector{
		controlOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "control_operations_total",
				Help:      "Service control requests by action and result.",
			}, []string{"action", "result"},
		),
		uiLogEntries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "ui_log_entries_total",
				Help:      "Messages appended to the UI log.",
			},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "folder_uploads_total",
				Help:      "Folder upload requests by result.",
			}, []string{"result"},
		),
		uploadFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "uploaded_files_total",
				Help:      "DICOM files processed by outcome.",
			}, []string{"outcome"},
		),
		serviceRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "service_running",
				Help:      "1 when the last status query reported RUNNING.",
			},
		),
		uiConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "ui_connected",
				Help:      "1 while a monitor UI is connected.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.controlOps.Describe(ch)
	c.uiLogEntries.Describe(ch)
	c.uploads.Describe(ch)
	c.uploadFiles.Describe(ch)
	c.serviceRunning.Describe(ch)
	c.uiConnected.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.controlOps.Collect(ch)
	c.uiLogEntries.Collect(ch)
	c.uploads.Collect(ch)
	c.uploadFiles.Collect(ch)
	c.serviceRunning.Collect(ch)
	c.uiConnected.Collect(ch)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
