package testctl

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type Config struct {
	URL    string
	LogLvl string
}

func defaultConfig() *Config {
	return &Config{
		URL:    envStr("LMGATE_URL", "http://127.0.0.1:8000"),
		LogLvl: envStr("TESTCTL_LOG_LEVEL", "info"),
	}
}

// buildRootCmd is a convenience for entry points without an explicit Config.
func buildRootCmd() *cobra.Command { return buildRootCmdWith(defaultConfig()) }

// buildRootCmdWith constructs the Cobra command tree wired to the fn* actions.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "testctl",
		Short:         "Dev utilities for working on the gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	root.PersistentFlags().String("url", cfg.URL, "Base URL of the gateway under test (defaults LMGATE_URL or http://127.0.0.1:8000)")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults TESTCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("url"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.URL = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		SetLogLevel(cfg.LogLvl)
	}

	// test group
	testCmd := &cobra.Command{Use: "test", Short: "Run test suites", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("test requires a subcommand: go|blackbox|all")
	}}
	testGo := &cobra.Command{Use: "go", Short: "Run Go unit tests", Example: "  testctl test go", RunE: func(cmd *cobra.Command, args []string) error { return fnRunGoTests() }}
	testBlackbox := &cobra.Command{Use: "blackbox", Short: "Build the binary and run the blackbox suite", RunE: func(cmd *cobra.Command, args []string) error { return fnRunBlackboxTests() }}
	testAll := &cobra.Command{Use: "all", Short: "Go unit tests, then blackbox", RunE: func(cmd *cobra.Command, args []string) error {
		if err := fnRunGoTests(); err != nil {
			return err
		}
		return fnRunBlackboxTests()
	}}
	testCmd.AddCommand(testGo, testBlackbox, testAll)
	root.AddCommand(testCmd)

	// smoke
	smokeCmd := &cobra.Command{Use: "smoke", Short: "Exercise a running gateway once end to end", Example: "  testctl smoke --url http://127.0.0.1:8000", RunE: func(cmd *cobra.Command, args []string) error { return fnSmoke(cfg) }}
	root.AddCommand(smokeCmd)

	// load
	loadCmd := &cobra.Command{Use: "load", Short: "Fire concurrent completions and report statuses and latency", Example: "  testctl load -n 50 -c 16\n  testctl load --stream -n 20 -c 8"}
	loadCmd.Flags().IntP("requests", "n", 20, "Total number of completion requests")
	loadCmd.Flags().IntP("concurrency", "c", 8, "Number of parallel workers")
	loadCmd.Flags().Bool("stream", false, "Request streamed completions")
	loadCmd.Flags().String("prompt", "Write one short sentence about queues.", "Prompt sent with every request")
	loadCmd.RunE = func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("requests")
		c, _ := cmd.Flags().GetInt("concurrency")
		stream, _ := cmd.Flags().GetBool("stream")
		prompt, _ := cmd.Flags().GetString("prompt")
		return fnLoad(cfg, loadOptions{Requests: n, Concurrency: c, Stream: stream, Prompt: prompt})
	}
	root.AddCommand(loadCmd)

	// dev
	devCmd := &cobra.Command{Use: "dev", Short: "Run the gateway against a built-in stub backend", Example: "  testctl dev --port 8000 --delay 2s"}
	devCmd.Flags().Int("port", envInt("LMGATE_DEV_PORT", 8000), "Port for the gateway (defaults LMGATE_DEV_PORT or 8000)")
	devCmd.Flags().Duration("delay", 750*time.Millisecond, "Stub backend reply delay (makes queueing observable)")
	devCmd.RunE = func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		delay, _ := cmd.Flags().GetDuration("delay")
		return fnDev(cfg, devOptions{Port: port, Delay: delay})
	}
	root.AddCommand(devCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}

// Main returns an exit code (0 for success, non-zero on error) for use by cmd/testctl.
func Main() int { return MainWithArgs(os.Args[1:]) }

// MainWithArgs is a testable variant of Main that accepts args explicitly.
func MainWithArgs(args []string) int {
	root := buildRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}
