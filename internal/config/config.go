package config

import (
	"errors"
	"fmt"

	apperr "github.com/stomp-org/stomp/internal/errors"
)

// ErrInvalidConfig wraps all configuration validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the fully built and validated simulator configuration.
type Config struct {
	Global     Global
	Simulation Simulation
	Servers    []ServerType

	// Warnings collected while resolving the configuration.
	Warnings []string

	// ConfigPath is the path of the file the configuration was read from,
	// empty when defaults were used.
	ConfigPath string
}

// Global holds settings that are not specific to one simulation run.
type Global struct {
	WorkingDir string
	Basename   string
	LogFormat  string
	Debug      bool
	Quiet      bool
}

// Simulation holds the parameters of the event-driven core.
type Simulation struct {
	RandomSeed        uint64
	MaxTasksSimulated int
	MaxQueueSize      int
	MeanArrivalTime   float64
	ArrivalTimeScale  int64
	StdevFactor       int
	BinSize           int
	PowerMgmtEnabled  bool
	SchedPolicy       string
	InputTraceFile    string
	InputsDir         string
}

// ServerType describes one pool of identical execution units. The slice
// order in Config.Servers is the declared order used for cost-table columns.
type ServerType struct {
	Name             string
	Count            int
	MeanServiceTime  float64
	StdevServiceTime float64
}

// ServerTypeNames returns the declared server type names in order.
func (c *Config) ServerTypeNames() []string {
	names := make([]string, len(c.Servers))
	for i, s := range c.Servers {
		names[i] = s.Name
	}
	return names
}

// StdevFor returns the configured stdev service time for a server type.
func (c *Config) StdevFor(serverType string) float64 {
	for _, s := range c.Servers {
		if s.Name == serverType {
			return s.StdevServiceTime
		}
	}
	return 0
}

// TotalServerCount returns the number of servers across all types.
func (c *Config) TotalServerCount() int {
	total := 0
	for _, s := range c.Servers {
		total += s.Count
	}
	return total
}

func (c *Config) validate() error {
	var errs apperr.ErrorList

	if c.Global.WorkingDir == "" {
		errs.Add(fmt.Errorf("global.working_dir must not be empty"))
	}
	if c.Global.Basename == "" {
		errs.Add(fmt.Errorf("global.basename must not be empty"))
	}
	if c.Simulation.MaxTasksSimulated < 0 {
		errs.Add(fmt.Errorf("simulation.max_tasks_simulated must be >= 0, got %d", c.Simulation.MaxTasksSimulated))
	}
	if c.Simulation.MaxQueueSize < 0 {
		errs.Add(fmt.Errorf("simulation.max_queue_size must be >= 0, got %d", c.Simulation.MaxQueueSize))
	}
	if c.Simulation.ArrivalTimeScale < 1 {
		errs.Add(fmt.Errorf("simulation.arrival_time_scale must be >= 1, got %d", c.Simulation.ArrivalTimeScale))
	}
	if c.Simulation.BinSize < 1 {
		errs.Add(fmt.Errorf("simulation.bin_size must be >= 1, got %d", c.Simulation.BinSize))
	}
	if c.Simulation.MeanArrivalTime < 0 {
		errs.Add(fmt.Errorf("simulation.mean_arrival_time must be >= 0, got %f", c.Simulation.MeanArrivalTime))
	}
	if c.Simulation.SchedPolicy == "" {
		errs.Add(fmt.Errorf("simulation.sched_policy must not be empty"))
	}
	if len(c.Servers) == 0 {
		errs.Add(fmt.Errorf("at least one server type must be configured"))
	}

	seen := map[string]struct{}{}
	for i, s := range c.Servers {
		if s.Name == "" {
			errs.Add(fmt.Errorf("servers[%d].name must not be empty", i))
			continue
		}
		if _, ok := seen[s.Name]; ok {
			errs.Add(fmt.Errorf("duplicate server type %q", s.Name))
		}
		seen[s.Name] = struct{}{}
		if s.Count < 0 {
			errs.Add(fmt.Errorf("servers[%s].count must be >= 0, got %d", s.Name, s.Count))
		}
		if s.MeanServiceTime < 0 {
			errs.Add(fmt.Errorf("servers[%s].mean_service_time must be >= 0", s.Name))
		}
		if s.StdevServiceTime < 0 {
			errs.Add(fmt.Errorf("servers[%s].stdev_service_time must be >= 0", s.Name))
		}
	}

	if errs.HasErrors() {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, errs.Error())
	}
	return nil
}
