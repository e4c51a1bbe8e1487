package agents

import (
	"errors"
	"fmt"
)

// Area is the inclusive integer rectangle agents live and move in.
type Area struct {
	XMin int `yaml:"x_min"`
	XMax int `yaml:"x_max"`
	YMin int `yaml:"y_min"`
	YMax int `yaml:"y_max"`
}

// Config holds every parameter of the agent model. Times are in hours.
type Config struct {
	NumAgents             int     `yaml:"num_agents"`
	InitialInfectious     int     `yaml:"initial_infectious"`
	ExposureRadiusSquared float64 `yaml:"exposure_radius_squared"`
	InfectionProbability  float64 `yaml:"infection_probability"`
	LifespanMean          float64 `yaml:"lifespan_mean"`
	LifespanStdDev        float64 `yaml:"lifespan_stddev"`
	RecoveryMean          float64 `yaml:"recovery_mean"`
	RecoveryStdDev        float64 `yaml:"recovery_stddev"`
	RecoveryMin           float64 `yaml:"recovery_min"`
	SleepMin              int     `yaml:"sleep_min"`
	SleepMax              int     `yaml:"sleep_max"`
	DayMin                int     `yaml:"day_min"`
	DayMax                int     `yaml:"day_max"`
	OutsideProbability    float64 `yaml:"outside_probability"`
	Area                  Area    `yaml:"area"`
	GroupSampleInterval   float64 `yaml:"group_sample_interval"`
	StatsWindow           float64 `yaml:"stats_window"`
	Horizon               float64 `yaml:"horizon"`
	Seed                  int64   `yaml:"seed"`
}

// DefaultConfig returns the reference parameterization: 500 agents on a 50×50 grid,
// three initially infectious, one-week lifespans and three-day infections.
func DefaultConfig() Config {
	return Config{
		NumAgents:             500,
		InitialInfectious:     3,
		ExposureRadiusSquared: 8 * 8,
		InfectionProbability:  0.1,
		LifespanMean:          24 * 7,
		LifespanStdDev:        24 * 2,
		RecoveryMean:          24 * 3,
		RecoveryStdDev:        24,
		RecoveryMin:           24,
		SleepMin:              4,
		SleepMax:              8,
		DayMin:                4,
		DayMax:                8,
		OutsideProbability:    0.5,
		Area:                  Area{XMin: 0, XMax: 50, YMin: 0, YMax: 50},
		GroupSampleInterval:   1,
		StatsWindow:           24,
		Horizon:               1000,
		Seed:                  42,
	}
}

// Validate reports every parameter outside its domain.
func (c Config) Validate() error {
	var errs []error
	if c.NumAgents < 1 {
		errs = append(errs, fmt.Errorf("num_agents must be >= 1, got %d", c.NumAgents))
	}
	if c.InitialInfectious < 1 {
		errs = append(errs, fmt.Errorf("initial_infectious must be >= 1, got %d", c.InitialInfectious))
	}
	if c.InitialInfectious > c.NumAgents {
		errs = append(errs, fmt.Errorf("initial_infectious (%d) exceeds num_agents (%d)", c.InitialInfectious, c.NumAgents))
	}
	if c.ExposureRadiusSquared < 0 {
		errs = append(errs, fmt.Errorf("exposure_radius_squared must be >= 0, got %g", c.ExposureRadiusSquared))
	}
	for name, p := range map[string]float64{"infection_probability": c.InfectionProbability, "outside_probability": c.OutsideProbability} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %g", name, p))
		}
	}
	if c.LifespanStdDev < 0 || c.RecoveryStdDev < 0 {
		errs = append(errs, errors.New("standard deviations must be >= 0"))
	}
	if c.SleepMin < 0 || c.SleepMax < c.SleepMin {
		errs = append(errs, fmt.Errorf("sleep range [%d, %d] is invalid", c.SleepMin, c.SleepMax))
	}
	if c.DayMin < 0 || c.DayMax < c.DayMin {
		errs = append(errs, fmt.Errorf("day range [%d, %d] is invalid", c.DayMin, c.DayMax))
	}
	if c.SleepMax+c.DayMax == 0 {
		errs = append(errs, errors.New("sleep_max and day_max cannot both be 0"))
	}
	if c.Area.XMax < c.Area.XMin || c.Area.YMax < c.Area.YMin {
		errs = append(errs, fmt.Errorf("area %+v is empty", c.Area))
	}
	if c.GroupSampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("group_sample_interval must be > 0, got %g", c.GroupSampleInterval))
	}
	if c.StatsWindow < c.GroupSampleInterval {
		errs = append(errs, fmt.Errorf("stats_window (%g) must be >= group_sample_interval (%g)", c.StatsWindow, c.GroupSampleInterval))
	}
	if c.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("horizon must be > 0, got %g", c.Horizon))
	}
	return errors.Join(errs...)
}
