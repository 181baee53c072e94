package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/screenscout/screenscout/internal/brand"
	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/discovery"
	"github.com/screenscout/screenscout/internal/logging"
	"github.com/screenscout/screenscout/internal/registry"
	"github.com/screenscout/screenscout/internal/server"
	"github.com/screenscout/screenscout/internal/tui"
)

// Discovery command flags
var (
	scanTimeout  int
	outputFormat string
	registryPath string
	saveResults  bool
	plainOutput  bool
	sweepPorts   string
)

func init() {
	// Common flags for discovery commands (persistent on root)
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "timeout", 20, "Discovery timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "Device registry file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&saveResults, "save", false, "Save discovered devices to the registry")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(serveCmd)
}

// openRegistry opens the device registry honoring the --registry flag.
func openRegistry() (*registry.Registry, error) {
	if registryPath != "" {
		return registry.OpenAt(registryPath), nil
	}
	return registry.Open()
}

// scanCmd discovers devices on the whole network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the network for media devices",
	Long: `Scan the local network for media devices using SSDP, mDNS, and a
TCP port sweep.

SSDP and mDNS listen for multicast answers immediately; the port sweep
starts a few seconds later so devices the richer protocols can name are
never shown as bare addresses. Answers for the same address are merged
into a single record and each device's brand is classified from the
collected evidence.

When stdout is a terminal the scan renders as a live UI with incremental
results; otherwise each device prints as a line when found, followed by
a summary table.`,
	Example: `  # Live scan with the default 20 second timeout
  screenscout scan

  # Quick 5 second scan
  screenscout scan --timeout 5

  # Scan and save everything found to the registry
  screenscout scan --save

  # Scripted scan: line output, JSON summary
  screenscout scan --plain --format json

  # Sweep non-standard ports only
  screenscout scan --ports 8009,7676`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&plainOutput, "plain", false, "Line output instead of the live UI")
	scanCmd.Flags().StringVar(&sweepPorts, "ports", "", "Comma-separated port sweep override")
}

func runScan(cmd *cobra.Command, args []string) error {
	opts := discovery.Options{
		Mode:    discovery.ModeNetwork,
		Timeout: time.Duration(scanTimeout) * time.Second,
	}
	if sweepPorts != "" {
		ports, err := parsePorts(sweepPorts)
		if err != nil {
			return err
		}
		opts.Ports = ports
	}

	reg, err := openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}

	var found []*device.Device
	if !plainOutput && term.IsTerminal(int(os.Stdout.Fd())) {
		found, err = tui.Run(opts, reg)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	} else {
		found, err = streamScan(opts)
		if err != nil {
			return err
		}
	}

	if saveResults {
		for _, d := range found {
			if _, err := reg.Save(d); err != nil {
				return fmt.Errorf("failed to save %s: %w", d.Addr, err)
			}
		}
	}

	return printScanResults(found)
}

// streamScan drives a network scan without the live UI, printing each
// address as it first answers. Records for an address keep upgrading
// until the stream closes; the returned slice holds the final records in
// first-seen order.
func streamScan(opts discovery.Options) ([]*device.Device, error) {
	// Initialize logging from environment variable (silent by default)
	_ = logging.InitializeFromEnv()

	// Progress lines would corrupt a piped JSON document
	verbose := outputFormat != "json"

	if verbose {
		fmt.Printf("Scanning for media devices (timeout: %ds)...\n\n", scanTimeout)
	}

	disc := discovery.NewOrchestrator(opts)
	if err := disc.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	defer disc.Stop()

	classifier := brand.NewClassifier()
	seen := make(map[string]*device.Device)
	var order []string
	var probeErrs int

	for ev := range disc.Events() {
		if ev.Err != nil {
			probeErrs++
			if verbose {
				fmt.Fprintf(os.Stderr, "  probe error: %s\n", discovery.GetShortErrorMessage(ev.Err))
			}
			continue
		}
		d := classifier.Annotate(ev.Device)
		if _, ok := seen[d.Addr]; !ok {
			order = append(order, d.Addr)
			if verbose {
				fmt.Printf("  %-15s  %s\n", d.Addr, d.DisplayName())
			}
		}
		seen[d.Addr] = d
	}

	if verbose && probeErrs > 0 {
		fmt.Fprintf(os.Stderr, "\n%d address(es) did not answer cleanly\n", probeErrs)
	}

	devices := make([]*device.Device, 0, len(order))
	for _, addr := range order {
		devices = append(devices, seen[addr])
	}
	return devices, nil
}

func printScanResults(devices []*device.Device) error {
	if outputFormat == "json" {
		return printJSON(devices)
	}

	if len(devices) == 0 {
		fmt.Println("No media devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Check that this machine is on the same network as your devices")
		fmt.Println("  - Wake the TV or speaker; many only answer when powered on")
		fmt.Println("  - Guest Wi-Fi networks often isolate clients from devices")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use 'screenscout resolve <ip>' if you know the address")
		return nil
	}

	fmt.Printf("\nFound %d device(s):\n\n", len(devices))
	fmt.Println(renderTable(scanTableHeaders, scanTableRows(devices)))

	fmt.Println()
	fmt.Println("Use 'screenscout resolve <addr>' to probe a device directly")
	fmt.Println("Use 'screenscout devices' to manage saved devices")

	return nil
}

// resolveCmd identifies the device at one known address
var resolveCmd = &cobra.Command{
	Use:   "resolve <addr>",
	Short: "Identify the device at a known address",
	Long: `Probe a single address through the identification pipeline.

The address is probed protocol by protocol: PJLink first, then the
known UPnP/DIAL description endpoints, then Philips JointSpace, and
finally a bare reachability check. Useful when multicast discovery is
blocked or the device sits on another subnet.`,
	Example: `  # Identify a device by IP
  screenscout resolve 192.168.1.50

  # Identify and save to the registry
  screenscout resolve 192.168.1.50 --save

  # JSON output for scripting
  screenscout resolve 192.168.1.50 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	return runOneShot(discovery.Options{
		Mode:    discovery.ModeDirect,
		Addr:    args[0],
		Timeout: time.Duration(scanTimeout) * time.Second,
	})
}

// codeCmd ingests a pairing-code payload
var codeCmd = &cobra.Command{
	Use:   "code [payload]",
	Short: "Read a device from a pairing-code payload",
	Long: `Decode a captured pairing-code payload into a device record.

The payload is the versioned JSON document a device (or its first-party
app) renders as a QR code for pairing. It must carry at least a version,
an address, a port, and a name. Pass it as an argument or pipe it on
stdin.`,
	Example: `  # Decode a payload argument
  screenscout code '{"version":1,"address":"192.168.1.50","port":8080,"name":"Living Room TV"}'

  # Pipe a captured payload
  cat pairing.json | screenscout code

  # Decode and save
  screenscout code --save < pairing.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCode,
}

func runCode(cmd *cobra.Command, args []string) error {
	var payload []byte
	if len(args) == 1 && args[0] != "-" {
		payload = []byte(args[0])
	} else {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("no payload provided (pass it as an argument or pipe it on stdin)")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read payload from stdin: %w", err)
		}
		payload = data
	}

	return runOneShot(discovery.Options{
		Mode:    discovery.ModeCode,
		Payload: payload,
		Timeout: time.Duration(scanTimeout) * time.Second,
	})
}

// runOneShot drives a single-target discovery session and prints the
// resolved record.
func runOneShot(opts discovery.Options) error {
	// Initialize logging from environment variable (silent by default)
	_ = logging.InitializeFromEnv()

	disc := discovery.NewOrchestrator(opts)
	if err := disc.Start(context.Background()); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	defer disc.Stop()

	classifier := brand.NewClassifier()

	var resolved *device.Device
	var lastErr error
	for ev := range disc.Events() {
		if ev.Err != nil {
			lastErr = ev.Err
			continue
		}
		resolved = classifier.Annotate(ev.Device)
	}

	if resolved == nil {
		if lastErr != nil {
			fmt.Println(discovery.GetTroubleshootingHint(lastErr))
			fmt.Println()
			return fmt.Errorf("%s", discovery.GetShortErrorMessage(lastErr))
		}
		return fmt.Errorf("no device answered")
	}

	if saveResults {
		reg, err := openRegistry()
		if err != nil {
			return fmt.Errorf("failed to open registry: %w", err)
		}
		saved, err := reg.Save(resolved)
		if err != nil {
			return fmt.Errorf("failed to save device: %w", err)
		}
		resolved = saved
	}

	if err := printDevice(resolved); err != nil {
		return err
	}
	if saveResults && outputFormat != "json" {
		fmt.Println("\n✓ Saved to registry")
	}
	return nil
}

func printDevice(d *device.Device) error {
	if outputFormat == "json" {
		return printJSON(d)
	}

	fmt.Printf("%s\n", d.DisplayName())
	if d.Port > 0 {
		fmt.Printf("  Address:  %s:%d\n", d.Addr, d.Port)
	} else {
		fmt.Printf("  Address:  %s\n", d.Addr)
	}
	fmt.Printf("  Brand:    %s\n", d.Brand.Title())
	fmt.Printf("  Kind:     %s\n", device.KindOf(d.DisplayName(), d.ServiceType))
	if d.Manufacturer != "" {
		fmt.Printf("  Vendor:   %s\n", d.Manufacturer)
	}
	if d.Model != "" {
		fmt.Printf("  Model:    %s\n", d.Model)
	}
	if d.ServiceType != "" {
		fmt.Printf("  Service:  %s\n", d.ServiceType)
	}
	fmt.Printf("  Method:   %s\n", d.Method)

	return nil
}

// devicesCmd lists and manages the saved device registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List and manage saved devices",
	Long: `List devices saved in the local registry.

The registry lives in the user config directory and survives across
scans. Devices land there via 'scan --save', the live scan UI, or the
bridge API.`,
	Example: `  # List saved devices
  screenscout devices

  # JSON listing for scripting
  screenscout devices --format json

  # Rename and forget
  screenscout devices rename 192.168.1.50 "Den TV"
  screenscout devices forget 192.168.1.50`,
	RunE: runDevices,
}

func init() {
	devicesCmd.AddCommand(renameCmd)
	devicesCmd.AddCommand(forgetCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}

	devices, err := reg.List()
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(devices)
	}

	if len(devices) == 0 {
		fmt.Println("No saved devices.")
		fmt.Println("\nRun 'screenscout scan --save' to populate the registry,")
		fmt.Println("or save devices from the live scan UI.")
		return nil
	}

	fmt.Println(renderTable(registryTableHeaders, registryTableRows(devices)))

	return nil
}

// renameCmd sets or clears the custom name of a saved device
var renameCmd = &cobra.Command{
	Use:   "rename <addr> <name>",
	Short: "Set a custom name for a saved device",
	Long: `Assign a custom display name to a saved device.

The custom name overrides the discovered name everywhere the device is
shown and survives rescans. An empty name clears the override.`,
	Example: `  # Name the TV in the den
  screenscout devices rename 192.168.1.50 "Den TV"

  # Clear the custom name
  screenscout devices rename 192.168.1.50 ""`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}

	addr, name := args[0], args[1]
	if err := reg.Rename(addr, name); err != nil {
		return fmt.Errorf("failed to rename %s: %w", addr, err)
	}

	if name == "" {
		fmt.Printf("✓ Cleared custom name for %s\n", addr)
	} else {
		fmt.Printf("✓ Renamed %s to %q\n", addr, name)
	}
	return nil
}

// forgetCmd removes a device from the registry
var forgetCmd = &cobra.Command{
	Use:   "forget <addr>",
	Short: "Remove a device from the registry",
	Example: `  # Forget a device
  screenscout devices forget 192.168.1.50`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func runForget(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}

	addr := args[0]
	if err := reg.Forget(addr); err != nil {
		return fmt.Errorf("failed to forget %s: %w", addr, err)
	}

	fmt.Printf("✓ Forgot %s\n", addr)
	return nil
}

// Serve command flags
var (
	serveHost     string
	servePort     int
	serveLogLevel string
)

// serveCmd starts the discovery bridge server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the discovery bridge server",
	Long: `Start the HTTP bridge that exposes discovery to browser UIs.

The bridge serves the saved device registry over a small JSON API and
streams live scan sessions over WebSocket. Each connected client gets
its own scan session; closing the socket stops the session.`,
	Example: `  # Serve on the default port
  screenscout serve

  # Bind to localhost only, with debug logging
  screenscout serve --host 127.0.0.1 --port 8787 --log-level debug

  # Use an alternate registry file
  screenscout serve --registry ./devices.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", 8787, "Listen port")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	config := &server.Config{
		Host:         serveHost,
		Port:         servePort,
		LogLevel:     serveLogLevel,
		RegistryPath: registryPath,
	}

	srv, err := server.New(config)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// parsePorts parses a comma-separated port list.
func parsePorts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ports := make([]int, 0, len(parts))
	for _, part := range parts {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid port %q in --ports", part)
		}
		if p < 1 || p > 65535 {
			return nil, fmt.Errorf("port %d in --ports is out of range (1-65535)", p)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
