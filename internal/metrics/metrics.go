package metrics

import (
	"net/http"

	"grid_supervisor/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grid"

// Collector exports the grid's live state and command activity. It owns its
// registry so tests and multiple engines never collide on global state.
type Collector struct {
	registry *prometheus.Registry

	plantOutput   prometheus.Gauge
	cityLoad      prometheus.Gauge
	totalDemand   prometheus.Gauge
	frequency     prometheus.Gauge
	voltage       prometheus.Gauge
	temperature   prometheus.Gauge
	rocof         prometheus.Gauge
	online        prometheus.Gauge
	status        *prometheus.GaugeVec
	ticks         prometheus.Counter
	events        *prometheus.CounterVec
	commands      *prometheus.CounterVec
	persistErrors *prometheus.CounterVec
}

// New builds a Collector. dropped, when non-nil, is read at scrape time to
// export the number of feed items the engine discarded.
func New(dropped func() uint64) *Collector {
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}

	c := &Collector{
		registry:    prometheus.NewRegistry(),
		plantOutput: gauge("plant", "output_mw", "Plant electrical output in MW."),
		cityLoad:    gauge("demand", "city_load_mw", "City base load in MW."),
		totalDemand: gauge("demand", "total_mw", "Total demand in MW."),
		frequency:   gauge("system", "frequency_hz", "Grid frequency in Hz."),
		voltage:     gauge("system", "voltage_pu", "System voltage in per-unit."),
		temperature: gauge("plant", "temperature_celsius", "Plant temperature in °C."),
		rocof:       gauge("system", "rocof_hz_per_second", "Rate of change of frequency."),
		online:      gauge("substation", "online", "Number of ONLINE substations."),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "1 for the current operational state, 0 otherwise.",
		}, []string{"status"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Simulation ticks observed.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Operator log events segmented by kind.",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Operator commands segmented by command and outcome.",
		}, []string{"command", "outcome"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Failed writes to the audit journal, by feed.",
		}, []string{"feed"}),
	}

	c.registry.MustRegister(
		c.plantOutput, c.cityLoad, c.totalDemand, c.frequency, c.voltage,
		c.temperature, c.rocof, c.online, c.status, c.ticks, c.events,
		c.commands, c.persistErrors,
	)
	if dropped != nil {
		c.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_dropped_total",
			Help:      "Events and samples dropped because the recorder fell behind.",
		}, func() float64 { return float64(dropped()) }))
	}
	c.ObserveStatus(models.StatusOffline)
	return c
}

// ObserveSample publishes one tick.
func (c *Collector) ObserveSample(s models.TelemetrySample) {
	c.ticks.Inc()
	c.plantOutput.Set(s.Metrics.PlantOutput)
	c.cityLoad.Set(s.Metrics.CityLoad)
	c.totalDemand.Set(s.Metrics.TotalDemand)
	c.frequency.Set(s.Metrics.GridFrequency)
	c.voltage.Set(s.Metrics.SystemVoltage)
	c.temperature.Set(s.Metrics.Temperature)
	c.rocof.Set(s.Metrics.RoCoF)
	c.online.Set(float64(s.Online))
	c.ObserveStatus(s.Status)
}

// ObserveStatus sets the one-hot status gauge.
func (c *Collector) ObserveStatus(status models.SystemStatus) {
	for _, s := range models.AllStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		c.status.WithLabelValues(string(s)).Set(v)
	}
}

func (c *Collector) ObserveEvent(ev models.GridEvent) {
	c.events.WithLabelValues(ev.Kind).Inc()
	c.ObserveStatus(ev.Status)
}

// ObserveCommand counts an operator command. outcome is "ok", "rejected" or
// "invalid".
func (c *Collector) ObserveCommand(command, outcome string) {
	c.commands.WithLabelValues(command, outcome).Inc()
}

func (c *Collector) ObservePersistError(feed string) {
	c.persistErrors.WithLabelValues(feed).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
