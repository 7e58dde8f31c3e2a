package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/saxstat/gopstat/pkg/config"
	"github.com/saxstat/gopstat/pkg/experiment"
	"github.com/saxstat/gopstat/pkg/technique"
	"github.com/saxstat/gopstat/pkg/transport"
)

func main() {
	var (
		portFlag      = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag      = flag.Bool("mock", false, "Use a mocked device instead of a serial port")
		listFlag      = flag.Bool("list", false, "List available serial ports and exit")
		techFlag      = flag.String("t", "cv", "Technique to run (name or code, see -techniques)")
		techListFlag  = flag.Bool("techniques", false, "List registered techniques and exit")
		calibrateFlag = flag.Bool("calibrate", false, "Measure the zero-current offset and exit")
	)
	flag.Parse()

	if *listFlag {
		ports, err := transport.Ports()
		if err != nil {
			log.Fatalf("Failed to enumerate serial ports: %v", err)
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
			return
		}
		for _, p := range ports {
			if p.Description != "" {
				fmt.Printf("%s\t%s\n", p.Name, p.Description)
			} else {
				fmt.Println(p.Name)
			}
		}
		return
	}

	reg := technique.NewRegistry()
	if *techListFlag {
		for _, name := range reg.Names() {
			t, _ := reg.Create(name)
			fmt.Printf("%-28s %s\n", name, t.Code())
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	tech, err := reg.Create(*techFlag)
	if err != nil {
		log.Fatalf("Unknown technique %q (use -techniques to list)", *techFlag)
	}

	params, err := parseParams(tech, flag.Args())
	if err != nil {
		log.Fatalf("Bad parameter: %v", err)
	}

	conn := openConn(cfg, tech, *mockFlag)
	if err := conn.Connect(); err != nil {
		log.Fatalf("Failed to open %s: %v", cfg.Serial.Port, err)
	}
	defer conn.Close()

	if *calibrateFlag {
		offset, err := experiment.Calibrate(conn, cfg.Calibration)
		if err != nil {
			log.Fatalf("Calibration failed: %v", err)
		}
		fmt.Printf("zero-current offset: %.4f uA\n", offset)
		fmt.Printf("set calibration.offset_current to this value in %s\n", *configFlag)
		return
	}

	run(tech, conn, cfg, params)
}

// parseParams merges key=value arguments over the technique defaults.
func parseParams(tech technique.Technique, args []string) (technique.Values, error) {
	params := technique.Defaults(tech)
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", key, err)
		}
		params[key] = f
	}
	return params, nil
}

func openConn(cfg *config.Config, tech technique.Technique, mock bool) transport.Conn {
	if !mock {
		return transport.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Acquisition.BufferSize)
	}
	// Scripted device: acknowledge every command and stream a short
	// synthetic run so the pipeline can be exercised without hardware.
	spec := tech.Decode()
	return transport.NewMock(func(command string, attempt int) []string {
		if command == "STOP" || command == "CALIBRATE" {
			lines := []string{}
			if command == "CALIBRATE" {
				for i := 0; i < 20; i++ {
					lines = append(lines, "16384")
				}
			}
			return lines
		}
		// The mock buffers up to transport.DefaultBufferSize lines per
		// exchange, so keep the synthetic run short of that.
		lines := []string{spec.ConfirmMarker}
		for i := 0; i < spec.SkipSamples+40; i++ {
			lines = append(lines, strconv.Itoa(15000+(i%40)*50))
		}
		return append(lines, spec.Sentinels...)
	})
}

func run(tech technique.Technique, conn transport.Conn, cfg *config.Config, params technique.Values) {
	exp := experiment.New(tech, conn, cfg)
	if err := exp.Configure(params); err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Printf("%s: %s = %g", tech.Code(), k, params[k])
	}

	events := exp.Events()
	if err := exp.Start(); err != nil {
		log.Fatalf("Failed to start %s: %v", tech.Name(), err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	hint := tech.PlotHint()
	fmt.Printf("# %s\n", hint.Title)
	fmt.Printf("# elapsed_s\t%s\t%s\n", hint.XLabel, hint.YLabel)

	// Points are drained by polling at a fixed cadence so display keeps
	// up regardless of the device's sample rate.
	poll := time.NewTicker(cfg.Acquisition.PollInterval)
	defer poll.Stop()

	printed := 0
	flush := func() {
		for _, pt := range exp.Data()[printed:] {
			fmt.Printf("%.3f\t%.4f\t%.6f\n", pt.Elapsed, pt.Voltage, pt.Current)
			printed++
		}
	}
	defer flush()

	for {
		select {
		case <-sig:
			log.Println("Interrupted, stopping experiment")
			if err := exp.Stop(); err != nil {
				log.Printf("Stop failed: %v", err)
			}
			return
		case <-poll.C:
			flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case experiment.RunError:
				flush()
				log.Fatalf("Experiment failed: %v", ev.Err)
			case experiment.StateChanged:
				log.Printf("State: %s", ev.State)
				if ev.State == experiment.Completed {
					flush()
					fmt.Printf("# %d points\n", printed)
					return
				}
			}
		}
	}
}
