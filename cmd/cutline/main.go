// Command cutline drives vinyl cutters and plotters attached over serial
// or USB.
//
// Without -job or -interactive it lists the attached devices and the
// driver each one would use.
//
// Usage:
//
//	cutline [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-capture string     File path for frame capture (CBOR format)
//	-materials string   YAML file with material preset overrides
//	-units string       Job coordinate units: in, mm (default "in")
//	-interactive        Enable interactive command mode
//	-job string         Cut this job file and exit
//	-device string      Device address for -job (default: first supported device)
//	-driver string      Driver id for -job (default: identified driver)
//
// Examples:
//
//	# List attached devices
//	cutline
//
//	# Cut a job on the first supported device and capture all frames
//	cutline -job sticker.yaml -capture sticker.clog
//
//	# Cut in millimeters on a specific plotter
//	cutline -job label.yaml -units mm -device /dev/ttyUSB0 -driver hpgl
//
//	# Interactive console with debug logging
//	cutline -interactive -log-level debug
//
// Interactive Commands:
//
//	scan                       - List attached devices
//	connect <n|address> [drv]  - Connect a scanned device
//	sessions                   - List open sessions
//	cut <session> <job.yaml>   - Cut a job in the background
//	pause|resume|cancel <s>    - Control the running job
//	status <session>           - Show driver status
//	disconnect <session>       - Close a session
//	drivers                    - List drivers
//	materials                  - List material presets
//	quit                       - Exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cutline-project/cutline-go/cmd/cutline/interactive"
	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/job"
	caplog "github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/manager"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.CaptureFile, "capture", "", "File path for frame capture (CBOR format)")
	flag.StringVar(&config.MaterialsFile, "materials", "", "YAML file with material preset overrides")
	flag.StringVar(&config.Units, "units", "in", "Job coordinate units: in, mm")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable interactive command mode")
	flag.StringVar(&config.JobFile, "job", "", "Cut this job file and exit")
	flag.StringVar(&config.Device, "device", "", "Device address for -job (default: first supported device)")
	flag.StringVar(&config.DriverID, "driver", "", "Driver id for -job (default: identified driver)")
}

func main() {
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if config.ConfigFile != "" {
		if err := loadConfigFile(config.ConfigFile, &config, explicit); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	log.SetFlags(log.Ltime)
	logger, err := setupLogging(config.LogLevel)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	units, err := driver.ParseUnits(config.Units)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	materials := material.Default()
	if config.MaterialsFile != "" {
		materials, err = material.LoadFile(config.MaterialsFile)
		if err != nil {
			log.Fatalf("Failed to load materials: %v", err)
		}
		log.Printf("Loaded %d material presets from %s", materials.Len(), config.MaterialsFile)
	}

	capture, closeCapture, err := setupCapture(config.CaptureFile, logger)
	if err != nil {
		log.Fatalf("Failed to create capture log: %v", err)
	}
	defer closeCapture()

	mgrConfig := manager.DefaultConfig()
	mgrConfig.Enumerator = transport.NewSystemEnumerator(logger)
	mgrConfig.Logger = logger
	mgrConfig.Capture = capture
	mgrConfig.Materials = materials
	mgrConfig.Units = units
	mgrConfig.Drivers = config.Drivers

	mgr, err := manager.New(mgrConfig)
	if err != nil {
		log.Fatalf("Failed to create device manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	switch {
	case config.Interactive:
		console, err := interactive.New(mgr, materials)
		if err != nil {
			log.Fatalf("Failed to create interactive console: %v", err)
		}
		// Keep log output from clobbering the prompt
		log.SetOutput(console.Stdout())
		console.Run(ctx, cancel)

	case config.JobFile != "":
		mgr.OnEvent(printEvent)
		if err := runJob(ctx, mgr); err != nil {
			log.Printf("Job failed: %v", err)
			shutdown(mgr)
			closeCapture()
			os.Exit(1)
		}

	default:
		if err := listDevices(ctx, mgr); err != nil {
			log.Printf("Scan incomplete: %v", err)
		}
	}

	shutdown(mgr)
}

func shutdown(mgr *manager.Manager) {
	if len(mgr.Sessions()) == 0 {
		return
	}
	log.Println("Disconnecting...")
	if err := mgr.DisconnectAll(); err != nil {
		log.Printf("Error during disconnect: %v", err)
	}
}

func setupLogging(level string) (*slog.Logger, error) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	case "info", "":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

// setupCapture returns the capture logger for the -capture file. At debug
// level every capture record is also written to the slog output.
func setupCapture(path string, logger *slog.Logger) (caplog.Logger, func(), error) {
	var loggers []caplog.Logger
	closer := func() {}

	if path != "" {
		fl, err := caplog.NewFileLogger(path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Capturing frames to: %s", path)
		loggers = append(loggers, fl)
		closer = func() {
			if n := fl.Dropped(); n > 0 {
				log.Printf("Capture dropped %d events", n)
			}
			fl.Close()
		}
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, caplog.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return nil, closer, nil
	case 1:
		return loggers[0], closer, nil
	default:
		return caplog.NewMultiLogger(loggers...), closer, nil
	}
}

func listDevices(ctx context.Context, mgr *manager.Manager) error {
	devices, err := mgr.Scan(ctx)
	if len(devices) == 0 {
		fmt.Println("No devices found")
		return err
	}
	fmt.Printf("Found %d device(s):\n", len(devices))
	for i, d := range devices {
		fmt.Printf("  %d. %s\n", i+1, interactive.FormatDevice(d))
	}
	return err
}

// runJob connects the selected device, cuts the job file and disconnects.
func runJob(ctx context.Context, mgr *manager.Manager) error {
	j, err := job.LoadFile(config.JobFile)
	if err != nil {
		return err
	}

	desc, err := pickDevice(ctx, mgr, config.Device)
	if err != nil {
		return err
	}

	id, err := mgr.Connect(ctx, desc, config.DriverID)
	if err != nil {
		return err
	}
	log.Printf("Connected %s (session %s)", desc, interactive.ShortID(id))

	if err := mgr.Submit(ctx, id, j); err != nil {
		return err
	}
	return mgr.Disconnect(id)
}

func pickDevice(ctx context.Context, mgr *manager.Manager, address string) (transport.DeviceDescriptor, error) {
	devices, err := mgr.Scan(ctx)
	if err != nil {
		log.Printf("Scan incomplete: %v", err)
	}
	for _, d := range devices {
		if address == "" && d.Supported {
			return d.Descriptor, nil
		}
		if address != "" && d.Descriptor.Address == address {
			return d.Descriptor, nil
		}
	}
	if address != "" {
		return transport.DeviceDescriptor{}, fmt.Errorf("%w: %s", transport.ErrDeviceNotFound, address)
	}
	return transport.DeviceDescriptor{}, errors.New("no supported device attached")
}

func printEvent(ev driver.Event) {
	log.Println(interactive.FormatEvent(ev))
}
