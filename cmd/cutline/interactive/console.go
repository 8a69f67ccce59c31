// Package interactive provides the interactive command-line interface
// for cutline.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/manager"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/registry"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// ErrAmbiguousSession is returned when a session prefix matches more than one session.
var ErrAmbiguousSession = errors.New("ambiguous session id")

// Console handles interactive mode for cutline.
type Console struct {
	mgr       *manager.Manager
	materials *material.Table
	rl        *readline.Instance
	out       io.Writer

	// Devices from the last scan, for "connect <n>".
	mu      sync.Mutex
	devices []manager.Device

	// Background cuts, awaited on quit.
	jobs sync.WaitGroup
}

// New creates a console reading from the terminal.
func New(mgr *manager.Manager, materials *material.Table) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cutline> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(mgr, materials, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(mgr *manager.Manager, materials *material.Table, out io.Writer) *Console {
	if materials == nil {
		materials = material.Default()
	}
	c := &Console{mgr: mgr, materials: materials, out: &lockedWriter{w: out}}
	mgr.OnEvent(c.handleEvent)
	return c
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("scan"),
		readline.PcItem("connect"),
		readline.PcItem("sessions"),
		readline.PcItem("cut"),
		readline.PcItem("pause"),
		readline.PcItem("resume"),
		readline.PcItem("cancel"),
		readline.PcItem("status"),
		readline.PcItem("disconnect"),
		readline.PcItem("drivers"),
		readline.PcItem("materials"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(ctx, line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It reports whether the console should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "scan":
		c.cmdScan(ctx)

	case "connect", "c":
		c.cmdConnect(ctx, args)

	case "sessions", "ls":
		c.cmdSessions()

	case "cut":
		c.cmdCut(ctx, args)

	case "pause":
		c.withSession(args, func(id string) error { return c.mgr.Pause(id) }, "Pause requested")

	case "resume":
		c.withSession(args, func(id string) error { return c.mgr.Resume(id) }, "Resume requested")

	case "cancel":
		c.withSession(args, func(id string) error { return c.mgr.Cancel(id) }, "Cancel requested")

	case "disconnect":
		c.withSession(args, func(id string) error { return c.mgr.Disconnect(id) }, "Disconnected")

	case "status", "st":
		c.cmdStatus(args)

	case "drivers":
		c.cmdDrivers()

	case "materials":
		c.cmdMaterials()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

// Wait blocks until background cuts have returned.
func (c *Console) Wait() {
	c.jobs.Wait()
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Cutline Commands:
  Devices:
    scan                          - List attached devices
    connect <n|address> [driver]  - Connect a scanned device
    sessions                      - List open sessions
    disconnect <session>          - Close a session

  Jobs:
    cut <session> <job.yaml>      - Cut a job file in the background
    pause <session>               - Pause the running job
    resume <session>              - Resume a paused job
    cancel <session>              - Cancel the running job
    status <session>              - Show driver status

  General:
    drivers                       - List available drivers
    materials                     - List material presets
    help                          - Show this help
    quit                          - Exit

  Sessions can be given by number, full id or a unique id prefix.`)
}

func (c *Console) cmdScan(ctx context.Context) {
	devices, err := c.mgr.Scan(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Scan incomplete: %v\n", err)
	}

	c.mu.Lock()
	c.devices = devices
	c.mu.Unlock()

	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No devices found")
		return
	}
	fmt.Fprintf(c.out, "Found %d device(s):\n", len(devices))
	for i, d := range devices {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, FormatDevice(d))
	}
}

func (c *Console) cmdConnect(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: connect <n|address> [driver]")
		return
	}
	desc, err := c.resolveDevice(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	driverID := ""
	if len(args) > 1 {
		driverID = args[1]
	}

	id, err := c.mgr.Connect(ctx, desc, driverID)
	if err != nil {
		fmt.Fprintf(c.out, "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Session %s open on %s\n", ShortID(id), desc.Address)
}

func (c *Console) cmdSessions() {
	sessions := c.mgr.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(c.out, "No open sessions")
		return
	}
	fmt.Fprintf(c.out, "\nOpen Sessions (%d):\n", len(sessions))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for i, s := range sessions {
		st := s.Driver.Status()
		fmt.Fprintf(c.out, "  %d. %s  %-7s %-10s %s\n", i+1, ShortID(s.ID), s.DriverID, st.State, s.Descriptor.Address)
	}
}

func (c *Console) cmdCut(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: cut <session> <job.yaml>")
		return
	}
	id, err := c.resolveSession(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	j, err := job.LoadFile(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "Cutting %s on %s (%d paths, %d points)\n", args[1], ShortID(id), len(j.Paths), j.PointCount())
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		if err := c.mgr.Submit(ctx, id, j); err != nil {
			fmt.Fprintf(c.out, "Job on %s ended: %v\n", ShortID(id), err)
		}
	}()
}

func (c *Console) cmdStatus(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: status <session>")
		return
	}
	id, err := c.resolveSession(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	st, err := c.mgr.Status(id)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "Session:   %s\n", id)
	fmt.Fprintf(c.out, "Device:    %s\n", st.Descriptor)
	fmt.Fprintf(c.out, "State:     %s\n", st.State)
	fmt.Fprintf(c.out, "Busy:      %t\n", st.Busy)
	if st.Progress.Total > 0 {
		fmt.Fprintf(c.out, "Progress:  %d/%d (%d%%, pass %d)\n", st.Progress.Current, st.Progress.Total, st.Progress.Percent, st.Progress.Pass)
		s := st.Settings
		fmt.Fprintf(c.out, "Settings:  material=%q pressure=%d speed=%d passes=%d\n", s.Material, s.Pressure, s.Speed, s.MultiCutPasses)
	}
}

func (c *Console) cmdDrivers() {
	for _, id := range registry.IDs() {
		name, _ := registry.Describe(id)
		fmt.Fprintf(c.out, "  %-8s %s\n", id, name)
	}
}

func (c *Console) cmdMaterials() {
	fmt.Fprintf(c.out, "  %-16s %8s %6s %6s\n", "MATERIAL", "PRESSURE", "SPEED", "PASSES")
	for _, name := range c.materials.Names() {
		p, _ := c.materials.Lookup(name)
		fmt.Fprintf(c.out, "  %-16s %8d %6d %6d\n", name, p.Pressure, p.Speed, p.MultiCutPasses)
	}
}

func (c *Console) withSession(args []string, fn func(id string) error, done string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: <command> <session>")
		return
	}
	id, err := c.resolveSession(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if err := fn(id); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s: %s\n", done, ShortID(id))
}

// resolveDevice accepts a 1-based index into the last scan or an address.
func (c *Console) resolveDevice(arg string) (transport.DeviceDescriptor, error) {
	c.mu.Lock()
	devices := c.devices
	c.mu.Unlock()

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(devices) {
			return transport.DeviceDescriptor{}, fmt.Errorf("no device %d (run 'scan' first)", n)
		}
		return devices[n-1].Descriptor, nil
	}
	for _, d := range devices {
		if d.Descriptor.Address == arg {
			return d.Descriptor, nil
		}
	}
	return transport.DeviceDescriptor{}, fmt.Errorf("%w: %s", transport.ErrDeviceNotFound, arg)
}

// resolveSession accepts a 1-based index, a full id or a unique id prefix.
func (c *Console) resolveSession(arg string) (string, error) {
	sessions := c.mgr.Sessions()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(sessions) {
		return sessions[n-1].ID, nil
	}

	match := ""
	for _, s := range sessions {
		if s.ID == arg {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("%w: %s", ErrAmbiguousSession, arg)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", manager.ErrSessionNotFound, arg)
	}
	return match, nil
}

func (c *Console) handleEvent(ev driver.Event) {
	if ev.Type == driver.EventProgress {
		// Progress is frequent; keep the line short.
		fmt.Fprintf(c.out, "[%s] %d%%\n", ShortID(ev.SessionID), ev.Progress.Percent)
		return
	}
	fmt.Fprintln(c.out, FormatEvent(ev))
}

// lockedWriter serializes writes from the prompt, background cuts and
// event handlers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ShortID returns the first eight characters of a session id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatDevice renders a scanned device on one line.
func FormatDevice(d manager.Device) string {
	drv := "unsupported"
	if d.Supported {
		drv = "driver " + d.DriverID
	}
	return fmt.Sprintf("%-28s %-6s %-16s %04x:%04x  %s",
		d.Name, d.Descriptor.Kind, d.Descriptor.Address, d.Descriptor.VendorID, d.Descriptor.ProductID, drv)
}

// FormatEvent renders a driver event on one line.
func FormatEvent(ev driver.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[EVENT] %s %s", ShortID(ev.SessionID), ev.Type)
	if ev.DriverID != "" {
		fmt.Fprintf(&b, " (%s)", ev.DriverID)
	}
	if p := ev.Progress; p != nil && p.Total > 0 {
		fmt.Fprintf(&b, " %d/%d %d%%", p.Current, p.Total, p.Percent)
	}
	if ev.Err != nil {
		fmt.Fprintf(&b, " %s: %s", ev.Err.Code, ev.Err.Message())
	}
	if ev.Reason != "" {
		fmt.Fprintf(&b, " reason=%q", ev.Reason)
	}
	return b.String()
}
