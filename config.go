package conveyor

import (
	"fmt"
	"time"

	"go-simpler.org/env"
)

// Config holds the harness tunables, loaded from environment variables with
// the documented defaults. Deadlines are relative to each job's release.
type Config struct {
	SamplerPeriod time.Duration `env:"CONVEYOR_SAMPLER_PERIOD" default:"5ms" usage:"encoder sampling period"`
	ReportPeriod  time.Duration `env:"CONVEYOR_REPORT_PERIOD" default:"1s" usage:"reporter tick period"`

	SamplerDeadline    time.Duration `env:"CONVEYOR_SAMPLER_DEADLINE" default:"5ms" usage:"sampler relative deadline"`
	ControllerDeadline time.Duration `env:"CONVEYOR_CONTROLLER_DEADLINE" default:"10ms" usage:"controller relative deadline"`
	SortDeadline       time.Duration `env:"CONVEYOR_SORT_DEADLINE" default:"10ms" usage:"sort actuator relative deadline"`
	SafetyDeadline     time.Duration `env:"CONVEYOR_SAFETY_DEADLINE" default:"5ms" usage:"safety task relative deadline"`

	SamplerWork    time.Duration `env:"CONVEYOR_SAMPLER_WORK" default:"200us" usage:"emulated sensor WCET"`
	ControllerWork time.Duration `env:"CONVEYOR_CONTROLLER_WORK" default:"500us" usage:"emulated control WCET"`
	SortWork       time.Duration `env:"CONVEYOR_SORT_WORK" default:"300us" usage:"emulated diverter WCET"`
	SafetyWork     time.Duration `env:"CONVEYOR_SAFETY_WORK" default:"100us" usage:"emulated e-stop WCET"`

	HMIWait time.Duration `env:"CONVEYOR_HMI_WAIT" default:"1ms" usage:"controller's bounded wait for a pending HMI event"`

	Window   uint    `env:"CONVEYOR_MK_WINDOW" default:"10" usage:"(m,k)-firm window size, at most 16"`
	Setpoint float64 `env:"CONVEYOR_SETPOINT" default:"120" usage:"initial belt setpoint in rpm"`

	QueueLimit   int `env:"CONVEYOR_QUEUE_LIMIT" default:"1024" usage:"aperiodic job queue bound; jobs over it are dropped"`
	JournalLimit int `env:"CONVEYOR_JOURNAL_LIMIT" default:"64" usage:"deadline-miss journal bound"`

	SafetyPriority     int `env:"CONVEYOR_SAFETY_PRIORITY" default:"90" usage:"SCHED_FIFO priority of the safety task"`
	SamplerPriority    int `env:"CONVEYOR_SAMPLER_PRIORITY" default:"80" usage:"SCHED_FIFO priority of the sampler"`
	ControllerPriority int `env:"CONVEYOR_CONTROLLER_PRIORITY" default:"70" usage:"SCHED_FIFO priority of the controller"`
	SortPriority       int `env:"CONVEYOR_SORT_PRIORITY" default:"70" usage:"SCHED_FIFO priority of the sort actuator"`
	ReporterPriority   int `env:"CONVEYOR_REPORTER_PRIORITY" default:"60" usage:"SCHED_FIFO priority of the reporter"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Load(cfg, nil); err != nil {
		return nil, fmt.Errorf("could not load configuration from the environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the documented defaults without touching the
// environment.
func DefaultConfig() *Config {
	return &Config{
		SamplerPeriod:      5 * time.Millisecond,
		ReportPeriod:       time.Second,
		SamplerDeadline:    5 * time.Millisecond,
		ControllerDeadline: 10 * time.Millisecond,
		SortDeadline:       10 * time.Millisecond,
		SafetyDeadline:     5 * time.Millisecond,
		SamplerWork:        200 * time.Microsecond,
		ControllerWork:     500 * time.Microsecond,
		SortWork:           300 * time.Microsecond,
		SafetyWork:         100 * time.Microsecond,
		HMIWait:            time.Millisecond,
		Window:             DefaultWindow,
		Setpoint:           120,
		QueueLimit:         1024,
		JournalLimit:       64,
		SafetyPriority:     90,
		SamplerPriority:    80,
		ControllerPriority: 70,
		SortPriority:       70,
		ReporterPriority:   60,
	}
}

func (c *Config) Validate() error {
	if c.SamplerPeriod <= 0 {
		return fmt.Errorf("sampler period must be positive, got %v", c.SamplerPeriod)
	}
	if c.ReportPeriod <= 0 {
		return fmt.Errorf("report period must be positive, got %v", c.ReportPeriod)
	}
	if c.Window == 0 || c.Window > maxWindow {
		return fmt.Errorf("(m,k) window must be in [1,%d], got %d", maxWindow, c.Window)
	}
	return nil
}
