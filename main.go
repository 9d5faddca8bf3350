package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thetooth/pinggraph/config"
	"github.com/thetooth/pinggraph/probe"
	"github.com/thetooth/pinggraph/render"
	"github.com/thetooth/pinggraph/session"
	"github.com/thetooth/pinggraph/statistics"
)

var (
	cfgPath   string
	statPath  string
	target    string
	family    string
	mechanism string
	interval  time.Duration
	threshold time.Duration
	deadline  time.Duration
	debug     bool
	trace     bool
)

func main() {
	flag.StringVar(&cfgPath, "config", "", "Path to configuration file")
	flag.StringVar(&statPath, "socket", "", "Path to statistics dump file")
	flag.StringVar(&target, "target", "", "Host to probe (may also be given as the first argument)")
	flag.StringVar(&family, "family", "any", "Address family: any, 4 or 6")
	flag.StringVar(&mechanism, "mechanism", "exec", "Probe mechanism: exec or socket")
	flag.DurationVar(&interval, "interval", config.DefaultProbeInterval, "Time between probe launches")
	flag.DurationVar(&threshold, "threshold", config.DefaultRTTThreshold, "RTT above which a reply is flagged slow")
	flag.DurationVar(&deadline, "deadline", config.DefaultHardDeadline, "Hard per-probe deadline")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&trace, "trace", false, "Enable trace logging")
	flag.Parse()

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if trace {
		logrus.SetLevel(logrus.TraceLevel)
	}

	cfg := buildConfig()
	if err := cfg.Validate(); err != nil {
		logrus.Fatal("[ CONFIG_FAIL ] ", err)
	}

	// Resolve once up front, name resolution failure is fatal before any
	// probing starts
	addr, err := probe.Resolve(cfg.Target, cfg.Family)
	if err != nil {
		logrus.Fatal("[ RESOLVE_FAIL ] ", cfg.Target, ": ", err)
	}
	logrus.Info("[ SESSION_START ] target: ", cfg.Target, " (", addr.IP, ") interval: ", cfg.ProbeInterval.Duration)

	var prober probe.Prober
	switch cfg.Mechanism {
	case "socket":
		prober = probe.NewSocketProber(os.Geteuid() == 0)
	default:
		prober = probe.NewExecProber(cfg.Family)
	}

	sess := session.New(addr.IP.String(), prober,
		cfg.ProbeInterval.Duration,
		float64(cfg.RTTThreshold.Duration)/float64(time.Millisecond),
		cfg.HardDeadline.Duration)

	visualizers := []render.Visualizer{render.NewTerminal(os.Stdout)}
	if cfg.StatPath != "" {
		visualizers = append(visualizers, render.NewStatSink(cfg.StatPath))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sess.Run(ctx); err != nil {
			logrus.Error("[ SESSION_FAIL ] ", err)
		}
	}()

	// Live retune of the slow threshold when the configuration file changes
	if cfgPath != "" {
		go func() {
			err := config.Watch(ctx, cfgPath, func(next *config.Config) {
				sess.SetThreshold(float64(next.RTTThreshold.Duration) / float64(time.Millisecond))
			})
			if err != nil {
				logrus.Error("[ CONFIG_RELOAD ] ", err)
			}
		}()
	}

	// Control signals
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	refresh := time.NewTicker(cfg.RenderInterval.Duration)
	defer refresh.Stop()

	for {
		select {
		case <-c: // Stop firing, drain in-flight probes, report and quit
			sess.Stop()
			<-sess.Done()

			records := sess.Store().Snapshot()
			report := statistics.Build(records, 0, sess.Elapsed(), cfg.Target)
			for _, v := range visualizers {
				v.Render(records, report)
			}
			logrus.Infof("[ SESSION_SUMMARY ] %d probes, rtt min/avg/max/stddev %.1f/%.1f/%.1f/%.1f ms, loss %.1f%%",
				report.Count, report.MinRTT, report.MeanRTT, report.MaxRTT, report.StdDevRTT, report.LossPct)
			return
		case <-refresh.C: // Repaint with a fresh snapshot
			records := sess.Store().Snapshot()
			report := statistics.Build(records, sess.Store().InFlight(), sess.Elapsed(), cfg.Target)
			for _, v := range visualizers {
				v.Render(records, report)
			}
		}
	}
}

// buildConfig merges the optional configuration file with command line
// flags, flags that were explicitly set win.
func buildConfig() *config.Config {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			logrus.Fatal("[ CONFIG_FAIL ] ", err)
		}
		cfg = loaded
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["target"] || cfg.Target == "" {
		cfg.Target = target
	}
	if flag.Arg(0) != "" {
		cfg.Target = flag.Arg(0)
	}
	if set["family"] {
		cfg.Family = family
	}
	if set["mechanism"] {
		cfg.Mechanism = mechanism
	}
	if set["interval"] {
		cfg.ProbeInterval = config.Interval{Duration: interval}
	}
	if set["threshold"] {
		cfg.RTTThreshold = config.Interval{Duration: threshold}
	}
	if set["deadline"] {
		cfg.HardDeadline = config.Interval{Duration: deadline}
	}
	if set["socket"] {
		cfg.StatPath = statPath
	}

	return cfg
}
