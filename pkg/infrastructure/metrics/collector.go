// Package metrics exports planning run metrics for Prometheus.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Collector records the outcome of planning runs on its own registry
type Collector struct {
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	plannedOrders     *prometheus.GaugeVec
	requirements      *prometheus.GaugeVec
	lateOrders        *prometheus.GaugeVec
	overloadedBuckets *prometheus.GaugeVec
	exceptionsTotal   *prometheus.CounterVec
	capacityLoad      *prometheus.GaugeVec
}

// NewCollector creates a collector with a fresh registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,

		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mrp_plan_runs_total",
				Help: "Total number of plan runs by type and final status",
			},
			[]string{"type", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mrp_plan_run_duration_seconds",
				Help:    "Plan run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		plannedOrders: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mrp_planned_orders",
				Help: "Planned orders generated by the last run of a plan",
			},
			[]string{"plan"},
		),
		requirements: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mrp_requirements",
				Help: "Requirement buckets generated by the last run of a plan",
			},
			[]string{"plan"},
		),
		lateOrders: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mrp_late_orders",
				Help: "Planned orders flagged late by the last run of a plan",
			},
			[]string{"plan"},
		),
		overloadedBuckets: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crp_overloaded_buckets",
				Help: "Work center buckets at or above the overload threshold",
			},
			[]string{"plan"},
		),
		exceptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mrp_exceptions_total",
				Help: "Exceptions raised by plan runs",
			},
			[]string{"type", "severity"},
		),
		capacityLoad: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crp_work_center_peak_load_percent",
				Help: "Highest bucket load percent of a work center in the last run",
			},
			[]string{"plan", "work_center"},
		),
	}
}

// Registry exposes the underlying registry for export
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRun records a finished run of a plan
func (c *Collector) ObserveRun(plan entities.Plan, outputs entities.PlanOutputs) {
	planType := plan.Type.String()
	planID := string(plan.ID)

	c.runsTotal.WithLabelValues(planType, plan.Status.String()).Inc()
	if plan.Summary != nil {
		c.runDuration.WithLabelValues(planType).Observe(plan.Summary.Duration.Seconds())
		c.lateOrders.WithLabelValues(planID).Set(float64(plan.Summary.LateOrders))
		c.overloadedBuckets.WithLabelValues(planID).Set(float64(plan.Summary.OverloadedBuckets))
	}
	c.plannedOrders.WithLabelValues(planID).Set(float64(len(outputs.PlannedOrders)))
	c.requirements.WithLabelValues(planID).Set(float64(len(outputs.Requirements)))

	for _, ex := range outputs.Exceptions {
		c.exceptionsTotal.WithLabelValues(ex.Type.String(), ex.Severity.String()).Inc()
	}

	peaks := make(map[entities.WorkCenterID]float64)
	for _, req := range outputs.CapacityRequirements {
		load := req.LoadPercent.InexactFloat64()
		if load > peaks[req.WorkCenterID] {
			peaks[req.WorkCenterID] = load
		}
	}
	for wc, load := range peaks {
		c.capacityLoad.WithLabelValues(planID, string(wc)).Set(load)
	}
}

// WriteToTextfile writes the current metrics in the node exporter textfile format
func (c *Collector) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
