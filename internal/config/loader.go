package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/stomp-org/stomp/internal/build"
)

// Load creates a new configuration by instantiating a ConfigLoader with the
// provided options and invoking its Load method.
func Load(opts ...ConfigLoaderOption) (*Config, error) {
	loader := NewConfigLoader(opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// ConfigLoader reads and merges configuration from file, environment and
// defaults. The mutex makes Load safe for concurrent use.
type ConfigLoader struct {
	lock       sync.Mutex
	configFile string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile sets an explicit configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// NewConfigLoader creates a new ConfigLoader and applies the given options.
func NewConfigLoader(options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{}
	for _, option := range options {
		option(loader)
	}
	return loader
}

// Definition is the raw configuration shape unmarshalled from viper before
// validation. Server types are a list so that the declared order survives.
type Definition struct {
	Global     globalDef     `mapstructure:"global"`
	Simulation simulationDef `mapstructure:"simulation"`
	Servers    []serverDef   `mapstructure:"servers"`
}

type globalDef struct {
	WorkingDir string `mapstructure:"working_dir"`
	Basename   string `mapstructure:"basename"`
	LogFormat  string `mapstructure:"log_format"`
	Debug      bool   `mapstructure:"debug"`
	Quiet      bool   `mapstructure:"quiet"`
}

type simulationDef struct {
	RandomSeed        uint64  `mapstructure:"random_seed"`
	MaxTasksSimulated int     `mapstructure:"max_tasks_simulated"`
	MaxQueueSize      int     `mapstructure:"max_queue_size"`
	MeanArrivalTime   float64 `mapstructure:"mean_arrival_time"`
	ArrivalTimeScale  int64   `mapstructure:"arrival_time_scale"`
	StdevFactor       int     `mapstructure:"stdev_factor"`
	BinSize           int     `mapstructure:"bin_size"`
	PowerMgmtEnabled  bool    `mapstructure:"power_mgmt_enabled"`
	SchedPolicy       string  `mapstructure:"sched_policy"`
	InputTraceFile    string  `mapstructure:"input_trace_file"`
	InputsDir         string  `mapstructure:"inputs_dir"`
}

type serverDef struct {
	Name             string  `mapstructure:"name"`
	Count            int     `mapstructure:"count"`
	MeanServiceTime  float64 `mapstructure:"mean_service_time"`
	StdevServiceTime float64 `mapstructure:"stdev_service_time"`
}

// Load initializes viper, reads the configuration file and returns a built
// and validated Config.
func (l *ConfigLoader) Load() (*Config, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	v := viper.New()
	l.setupViper(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, err
	}

	cfg.Warnings = l.warnings
	cfg.ConfigPath = v.ConfigFileUsed()
	return cfg, nil
}

func (l *ConfigLoader) setupViper(v *viper.Viper) {
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(build.Slug)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, build.Slug))
	}

	v.SetEnvPrefix(strings.ToUpper(build.Slug))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("global.working_dir", ".")
	v.SetDefault("global.basename", build.Slug)
	v.SetDefault("global.log_format", "text")
	v.SetDefault("simulation.arrival_time_scale", 1)
	v.SetDefault("simulation.bin_size", 1)
	v.SetDefault("simulation.sched_policy", "firstfit")
	v.SetDefault("simulation.input_trace_file", "trace.csv")
	v.SetDefault("simulation.inputs_dir", "inputs")
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := &Config{
		Global: Global{
			WorkingDir: def.Global.WorkingDir,
			Basename:   def.Global.Basename,
			LogFormat:  def.Global.LogFormat,
			Debug:      def.Global.Debug,
			Quiet:      def.Global.Quiet,
		},
		Simulation: Simulation{
			RandomSeed:        def.Simulation.RandomSeed,
			MaxTasksSimulated: def.Simulation.MaxTasksSimulated,
			MaxQueueSize:      def.Simulation.MaxQueueSize,
			MeanArrivalTime:   def.Simulation.MeanArrivalTime,
			ArrivalTimeScale:  def.Simulation.ArrivalTimeScale,
			StdevFactor:       def.Simulation.StdevFactor,
			BinSize:           def.Simulation.BinSize,
			PowerMgmtEnabled:  def.Simulation.PowerMgmtEnabled,
			SchedPolicy:       def.Simulation.SchedPolicy,
			InputTraceFile:    def.Simulation.InputTraceFile,
			InputsDir:         def.Simulation.InputsDir,
		},
	}

	for _, s := range def.Servers {
		cfg.Servers = append(cfg.Servers, ServerType{
			Name:             s.Name,
			Count:            s.Count,
			MeanServiceTime:  s.MeanServiceTime,
			StdevServiceTime: s.StdevServiceTime,
		})
	}

	if len(cfg.Servers) == 0 {
		// The canonical three-type platform when nothing is configured.
		l.warnings = append(l.warnings, "no server types configured; using defaults")
		cfg.Servers = defaultServers()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultServers() []ServerType {
	return []ServerType{
		{Name: "cpu_core", Count: 1, MeanServiceTime: 10, StdevServiceTime: 0},
		{Name: "gpu", Count: 1, MeanServiceTime: 10, StdevServiceTime: 0},
		{Name: "accel", Count: 1, MeanServiceTime: 10, StdevServiceTime: 0},
	}
}
