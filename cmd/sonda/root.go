package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/sonda/internal/config"
	"github.com/KilimcininKorOglu/sonda/internal/enrich"
	"github.com/KilimcininKorOglu/sonda/internal/output"
	"github.com/KilimcininKorOglu/sonda/internal/ping"
	"github.com/KilimcininKorOglu/sonda/internal/tui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Flags
	count         int
	interval      time.Duration
	timeout       time.Duration
	ttl           int
	dontFragment  bool
	payloadSize   int
	asyncMode     bool
	queueCapacity int
	concurrency   int
	forceIPv4     bool
	forceIPv6     bool
	sourceIP      string
	jsonOutput    bool
	csvOutput     bool
	tableOutput   bool
	outFile       string
	tuiMode       bool
	noColor       bool
	noRDNS        bool

	// Config file
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sonda [flags] <target>...",
	Short: "Modern ICMP echo prober",
	Long: `Sonda - A modern, cross-platform ICMP echo prober

Sonda sends ICMP echo requests to one or more hosts and reports
round-trip times, packet loss and the error class of every failed
probe (timeout, unreachable, TTL expired, fragmentation needed).

Features:
  • Blocking mode and a queued async mode sharing one submission worker
  • Concurrent probing of multiple targets
  • IPv4 and IPv6, raw-socket or unprivileged datagram ICMP
  • Reverse DNS enrichment
  • Multiple output formats: text, table, JSON, CSV
  • Interactive TUI mode
  • Configuration file support (~/.config/sonda/config.yaml)

Examples:
  sonda google.com                Ping with defaults (4 probes)
  sonda -c 10 -i 200ms host       10 probes, 200ms apart
  sonda --async host1 host2       Queued async submissions
  sonda -6 google.com             Force IPv6
  sonda --df -s 1472 host         Path MTU style probe
  sonda --json 8.8.8.8 1.1.1.1    JSON output for many targets
  sonda --tui host1 host2         Interactive TUI mode
  sonda config --init             Create default config file
  sonda                           Interactive mode (prompts for target)`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              runPing,
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/sonda/config.yaml)")

	// Probe parameters
	rootCmd.Flags().IntVarP(&count, "count", "c", 0, "Number of echo requests per target")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Delay between requests")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "W", 0, "Per-request timeout")
	rootCmd.Flags().IntVarP(&ttl, "ttl", "t", 0, "IP time to live")
	rootCmd.Flags().BoolVar(&dontFragment, "df", false, "Set the IP don't-fragment bit")
	rootCmd.Flags().IntVarP(&payloadSize, "size", "s", -1, "Echo payload size in bytes")

	// Mode settings
	rootCmd.Flags().BoolVar(&asyncMode, "async", false, "Issue requests through the shared async queue")
	rootCmd.Flags().IntVar(&queueCapacity, "queue-capacity", 0, "Async queue capacity (takes effect before first use)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrently probed targets")

	// Network settings
	rootCmd.Flags().BoolVarP(&forceIPv4, "ipv4", "4", false, "Use IPv4 only")
	rootCmd.Flags().BoolVarP(&forceIPv6, "ipv6", "6", false, "Use IPv6 only")
	rootCmd.Flags().StringVarP(&sourceIP, "source", "S", "", "Source IP address")

	// Output flags
	rootCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.Flags().BoolVar(&csvOutput, "csv", false, "Output in CSV format")
	rootCmd.Flags().BoolVar(&tableOutput, "table", false, "Summary table output")
	rootCmd.Flags().StringVarP(&outFile, "output", "o", "", "Write formatted output to file")
	rootCmd.Flags().BoolVar(&tuiMode, "tui", false, "Interactive TUI mode")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Enrichment flags
	rootCmd.Flags().BoolVar(&noRDNS, "no-rdns", false, "Disable reverse DNS lookups")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads configuration from file and applies defaults
// If no config file exists, it creates one automatically on first run
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error

	if cfgFile != "" {
		// Custom config file specified
		cfg, err = config.LoadFrom(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		// Try to load from default locations
		cfg, err = config.Load()
		if err != nil {
			// Config file doesn't exist or doesn't parse, fall back to defaults
			cfg = config.DefaultConfig()

			// Try to save default config (ignore errors - might not have write permission)
			if saveErr := cfg.Save(); saveErr == nil {
				fmt.Fprintf(os.Stderr, "Created default config: %s\n", config.GetConfigPath())
				fmt.Fprintf(os.Stderr, "Edit this file to customize defaults (e.g., set tui: true)\n\n")
			}
		}
	}

	// Apply config defaults if flags not explicitly set
	applyConfigDefaults(cmd)

	return nil
}

// applyConfigDefaults applies config file values for unset flags
func applyConfigDefaults(cmd *cobra.Command) {
	if cfg == nil {
		return
	}

	defaults := cfg.Defaults

	// Output mode from config (if no flag set)
	if !cmd.Flags().Changed("tui") && defaults.TUI {
		tuiMode = true
	}
	if !cmd.Flags().Changed("table") && defaults.Table {
		tableOutput = true
	}
	if !cmd.Flags().Changed("json") && defaults.JSON {
		jsonOutput = true
	}
	if !cmd.Flags().Changed("csv") && defaults.CSV {
		csvOutput = true
	}
	if !cmd.Flags().Changed("no-color") && defaults.NoColor {
		noColor = true
	}

	// Probe parameters from config
	if !cmd.Flags().Changed("count") {
		if defaults.Count > 0 {
			count = defaults.Count
		} else {
			count = 4
		}
	}
	if !cmd.Flags().Changed("interval") {
		if defaults.Interval > 0 {
			interval = defaults.Interval
		} else {
			interval = time.Second
		}
	}
	if !cmd.Flags().Changed("timeout") {
		if defaults.Timeout > 0 {
			timeout = defaults.Timeout
		} else {
			timeout = 2 * time.Second
		}
	}
	if !cmd.Flags().Changed("ttl") {
		if defaults.TTL > 0 {
			ttl = defaults.TTL
		} else {
			ttl = 64
		}
	}
	if !cmd.Flags().Changed("size") {
		if defaults.PayloadSize > 0 {
			payloadSize = defaults.PayloadSize
		} else {
			payloadSize = 56
		}
	}
	if !cmd.Flags().Changed("df") && defaults.DF {
		dontFragment = true
	}

	// Mode settings from config
	if !cmd.Flags().Changed("async") && defaults.Async {
		asyncMode = true
	}
	if !cmd.Flags().Changed("queue-capacity") && defaults.QueueCapacity > 0 {
		queueCapacity = defaults.QueueCapacity
	}
	if !cmd.Flags().Changed("concurrency") {
		if defaults.Concurrency > 0 {
			concurrency = defaults.Concurrency
		} else {
			concurrency = 8
		}
	}

	// Network settings from config
	if !cmd.Flags().Changed("ipv4") && defaults.IPv4 {
		forceIPv4 = true
	}
	if !cmd.Flags().Changed("ipv6") && defaults.IPv6 {
		forceIPv6 = true
	}
	if !cmd.Flags().Changed("source") && defaults.Source != "" {
		sourceIP = defaults.Source
	}

	// Enrichment from config
	if !cmd.Flags().Changed("no-rdns") && !defaults.RDNS {
		noRDNS = true
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Sonda %s\n", version)
		fmt.Printf("  Commit: %s\n", commit)
		fmt.Printf("  Built:  %s\n", date)
		fmt.Printf("  Config: %s\n", config.GetConfigPath())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage Sonda configuration file.

Commands:
  sonda config --init     Create default config file
  sonda config --show     Show current configuration
  sonda config --path     Show config file path`,
	RunE: runConfig,
}

var (
	configInit bool
	configShow bool
	configPath bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show current configuration")
	configCmd.Flags().BoolVar(&configPath, "path", false, "Show config file path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configPath {
		fmt.Println(config.GetConfigPath())
		return nil
	}

	if configInit {
		path := config.GetConfigPath()

		// Check if file already exists
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		// Create default config
		cfg := config.DefaultConfig()
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}

		fmt.Printf("Created config file: %s\n", path)
		fmt.Println("\nEdit this file to customize defaults.")
		fmt.Println("Example: Set 'tui: true' under 'defaults:' to always use TUI mode.")
		return nil
	}

	if configShow {
		fmt.Println(config.GenerateExample())
		return nil
	}

	// No flag specified, show help
	return cmd.Help()
}

// buildPingConfig assembles the session configuration from flags.
func buildPingConfig() (*ping.Config, error) {
	pingConfig := ping.DefaultConfig()
	pingConfig.Count = count
	pingConfig.Interval = interval
	pingConfig.Timeout = timeout
	pingConfig.TTL = ttl
	pingConfig.DF = dontFragment
	pingConfig.PayloadSize = payloadSize
	pingConfig.IPv4 = forceIPv4
	pingConfig.IPv6 = forceIPv6
	pingConfig.Async = asyncMode
	pingConfig.QueueCapacity = queueCapacity
	pingConfig.MaxConcurrency = concurrency
	pingConfig.EnableRDNS = !noRDNS

	if sourceIP != "" {
		ip := net.ParseIP(sourceIP)
		if ip == nil {
			return nil, fmt.Errorf("invalid source IP: %s", sourceIP)
		}
		pingConfig.SourceIP = ip
	}

	return pingConfig, nil
}

func runPing(cmd *cobra.Command, args []string) error {
	targets := args

	// If no target provided, prompt for it interactively
	if len(targets) == 0 {
		target, err := promptForTarget()
		if err != nil {
			return err
		}
		targets = []string{target}
	}

	// Check for aliases
	if cfg != nil {
		for i, target := range targets {
			targets[i] = cfg.Resolve(target)
		}
	}

	// Build session configuration
	pingConfig, err := buildPingConfig()
	if err != nil {
		return err
	}

	// Configure output
	outputConfig := output.Config{
		Colors:     !noColor,
		NoHostname: noRDNS,
	}

	// If TUI mode requested, run TUI
	if tuiMode {
		return tui.Run(targets, pingConfig)
	}

	// For streaming text output, set up OnProbe callback
	var textFormatter *output.TextFormatter
	streaming := !jsonOutput && !csvOutput && !tableOutput && len(targets) == 1
	if streaming {
		textFormatter = output.NewTextFormatter(outputConfig)
		pingConfig.OnProbe = func(p *ping.Probe) {
			fmt.Print(textFormatter.FormatProbe(p))
			os.Stdout.Sync() // Flush immediately
		}
	}

	// Create session
	session, err := ping.New(pingConfig)
	if err != nil {
		return fmt.Errorf("failed to create ping session: %w", err)
	}
	defer session.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Show header for streaming text output
	if streaming {
		fmt.Printf("PING %s: %d data bytes\n", targets[0], payloadSize)
	}

	results, runErr := session.RunMany(ctx, targets)
	if results == nil && runErr != nil {
		return fmt.Errorf("ping failed: %w", runErr)
	}

	// Reverse DNS enrichment of resolved addresses
	if !noRDNS {
		enrichResults(ctx, results)
	}

	switch {
	case jsonOutput || csvOutput || tableOutput:
		var format output.Format
		switch {
		case jsonOutput:
			format = output.FormatJSON
		case csvOutput:
			format = output.FormatCSV
		default:
			format = output.FormatTable
		}
		writer := output.NewWriter(format, outputConfig)
		if err := writer.Write(results); err != nil {
			return err
		}
	case streaming:
		// Probe lines already printed via OnProbe; print the stats block
		for _, result := range results {
			if result == nil {
				continue
			}
			data, _ := textFormatter.Format([]*ping.Result{result})
			// Drop the header and probe lines, keep the statistics
			text := string(data)
			if idx := strings.Index(text, "---"); idx >= 0 {
				fmt.Print(text[idx:])
			}
		}
	default:
		// Multiple targets without an explicit format: full text blocks
		writer := output.NewWriter(output.FormatText, outputConfig)
		if err := writer.Write(results); err != nil {
			return err
		}
	}

	// Write formatted output to file if requested
	if outFile != "" {
		format := output.FormatText
		switch {
		case jsonOutput:
			format = output.FormatJSON
		case csvOutput:
			format = output.FormatCSV
		case tableOutput:
			format = output.FormatTable
		}
		fileConfig := outputConfig
		fileConfig.Colors = false
		if err := output.WriteToFile(results, outFile, output.NewFormatter(format, fileConfig)); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\nOutput saved to: %s\n", outFile)
	}

	// Exit non-zero when nothing answered, like ping does
	if runErr != nil {
		return runErr
	}
	for _, result := range results {
		if result != nil && result.Reached {
			return nil
		}
	}
	return fmt.Errorf("no targets reachable")
}

// enrichResults fills in reverse DNS names for each result's resolved IP.
func enrichResults(ctx context.Context, results []*ping.Result) {
	resolver := enrich.NewRDNSResolver(enrich.DefaultRDNSConfig())
	defer resolver.Close()

	ips := make([]net.IP, 0, len(results))
	for _, result := range results {
		if result != nil && result.ResolvedIP != nil {
			ips = append(ips, result.ResolvedIP)
		}
	}
	names := resolver.LookupBatch(ctx, ips)

	for _, result := range results {
		if result == nil || result.ResolvedIP == nil {
			continue
		}
		result.Hostname = names[result.ResolvedIP.String()]
	}
}

// promptForTarget displays an interactive prompt for the user to enter a target
func promptForTarget() (string, error) {
	// Title
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("╔═══════════════════════════════════════════════════════════╗")
	cyan.Println("║              Sonda - Modern ICMP Echo Prober              ║")
	cyan.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	// Show some examples
	fmt.Println("  Examples:")
	yellow.Println("    • google.com      - Ping Google")
	yellow.Println("    • 8.8.8.8         - Ping Google DNS")
	yellow.Println("    • cloudflare.com  - Ping Cloudflare")
	fmt.Println()

	// Show aliases if any
	if cfg != nil && len(cfg.Aliases) > 0 {
		fmt.Println("  Aliases:")
		for alias, target := range cfg.Aliases {
			yellow.Printf("    • %s → %s\n", alias, target)
		}
		fmt.Println()
	}

	// Prompt
	reader := bufio.NewReader(os.Stdin)

	for {
		green.Print("  Enter target (IP or hostname): ")
		os.Stdout.Sync() // Flush stdout

		input, err := reader.ReadString('\n')
		if err != nil {
			// Check for EOF (Ctrl+D or piped input ended)
			if err.Error() == "EOF" {
				return "", fmt.Errorf("no input provided")
			}
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		// Clean input
		target := strings.TrimSpace(input)

		// Validate
		if target == "" {
			color.Red("  ✗ Target cannot be empty. Please try again.")
			fmt.Println()
			continue
		}

		// Check for quit commands
		if target == "q" || target == "quit" || target == "exit" {
			fmt.Println("  Goodbye!")
			os.Exit(0)
		}

		fmt.Println()
		return target, nil
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information for the CLI.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}
