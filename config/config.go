package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"time"
)

const (
	// MaxHardDeadline is the upper bound accepted for a per-probe deadline.
	MaxHardDeadline = 10 * time.Second

	DefaultProbeInterval  = 100 * time.Millisecond
	DefaultRTTThreshold   = 150 * time.Millisecond
	DefaultHardDeadline   = 500 * time.Millisecond
	DefaultRenderInterval = 500 * time.Millisecond
)

func Load(path string) (cfg *Config, err error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return
	}

	cfg = Default()
	err = json.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}

	return
}

// Default returns a configuration with every tunable at its documented
// default. Target is left empty and must be supplied by the caller.
func Default() *Config {
	return &Config{
		Family:         "any",
		Mechanism:      "exec",
		ProbeInterval:  Interval{DefaultProbeInterval},
		RTTThreshold:   Interval{DefaultRTTThreshold},
		HardDeadline:   Interval{DefaultHardDeadline},
		RenderInterval: Interval{DefaultRenderInterval},
	}
}

type Config struct {
	// Target is the host or address to probe.
	Target string `json:"target"`
	// Family selects address resolution: "any", "4" or "6".
	Family string `json:"family"`
	// Mechanism selects the prober backend: "exec" or "socket".
	Mechanism string `json:"mechanism"`

	ProbeInterval Interval `json:"probe_interval"`
	RTTThreshold  Interval `json:"rtt_threshold"`
	HardDeadline  Interval `json:"hard_deadline"`

	RenderInterval Interval `json:"render_interval"`
	// StatPath, when set, receives a JSON statistics report every refresh.
	StatPath string `json:"stat_path"`
}

func (c *Config) Validate() (err error) {
	if c.Target == "" {
		return errors.New("no probe target given")
	}
	if c.ProbeInterval.Duration <= 0 {
		return fmt.Errorf("probe interval %v must be positive", c.ProbeInterval.Duration)
	}
	if c.RTTThreshold.Duration <= 0 {
		return fmt.Errorf("rtt threshold %v must be positive", c.RTTThreshold.Duration)
	}
	if c.HardDeadline.Duration < c.RTTThreshold.Duration || c.HardDeadline.Duration > MaxHardDeadline {
		return fmt.Errorf("hard deadline %v must lie within [%v, %v]",
			c.HardDeadline.Duration, c.RTTThreshold.Duration, MaxHardDeadline)
	}
	if c.RenderInterval.Duration <= 0 {
		return fmt.Errorf("render interval %v must be positive", c.RenderInterval.Duration)
	}
	switch c.Family {
	case "any", "4", "6":
	default:
		return fmt.Errorf("unknown address family %q", c.Family)
	}
	switch c.Mechanism {
	case "exec", "socket":
	default:
		return fmt.Errorf("unknown probe mechanism %q", c.Mechanism)
	}

	return
}

type Interval struct {
	time.Duration
}

func (d *Interval) UnmarshalJSON(data []byte) (err error) {
	var pstr string
	err = json.Unmarshal(data, &pstr)
	if err != nil {
		return err
	}
	d.Duration, err = time.ParseDuration(pstr)
	return
}

func (d *Interval) MarshalJSON() (data []byte, err error) {
	s := d.Duration.String()
	data, err = json.Marshal(s)
	return
}
