package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/1broseidon/winhost/internal/ipc"
	"github.com/1broseidon/winhost/internal/pluginwin"
	"github.com/1broseidon/winhost/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "window":
		os.Exit(runWindow(os.Args[2:]))
	case "plugin":
		os.Exit(runPlugin(os.Args[2:], os.Stdin))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winhost <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the winhost daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon and window status")
	fmt.Fprintln(w, "  reload              Reload the daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  window show         Show the primary window")
	fmt.Fprintln(w, "  window hide         Hide the primary window")
	fmt.Fprintln(w, "  window toggle       Toggle the primary window")
	fmt.Fprintln(w, "  window resize W H   Resize the primary window (logical units)")
	fmt.Fprintln(w, "  window size         Print the primary window size")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  plugin show         Display a plugin result in the plugin window")
	fmt.Fprintln(w, "  plugin close        Close the plugin window")
	fmt.Fprintln(w, "  plugin ready        Signal that the plugin window content is listening")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "  tui                 Open the interactive window dashboard")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winhost <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print status as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winhost status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		data, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(data))
		return 0
	}
	fmt.Printf("primary_exists:  %v\n", status.PrimaryExists)
	fmt.Printf("primary_visible: %v\n", status.PrimaryVisible)
	if status.PrimarySize != nil {
		fmt.Printf("primary_size:    %gx%g\n", status.PrimarySize.Width, status.PrimarySize.Height)
	}
	fmt.Printf("plugin_window:   %s\n", status.PluginWindow.State)
	if status.PluginWindow.PluginName != "" {
		fmt.Printf("plugin_name:     %s\n", status.PluginWindow.PluginName)
	}
	fmt.Printf("delivery_mode:   %s\n", status.PluginWindow.Mode)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	return 0
}

func runReload(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "Usage: winhost reload")
		return 2
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

func printWindowUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  winhost window show")
	fmt.Fprintln(w, "  winhost window hide")
	fmt.Fprintln(w, "  winhost window toggle")
	fmt.Fprintln(w, "  winhost window resize <width> <height>")
	fmt.Fprintln(w, "  winhost window size")
}

func runWindow(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printWindowUsage(os.Stderr)
		return 2
	}

	client := ipc.NewClient()
	var err error
	switch args[0] {
	case "show":
		err = client.ShowWindow()
	case "hide":
		err = client.HideWindow()
	case "toggle":
		var visible bool
		visible, err = client.ToggleWindow()
		if err == nil {
			fmt.Printf("visible: %v\n", visible)
		}
	case "resize":
		if len(args) != 3 {
			printWindowUsage(os.Stderr)
			return 2
		}
		width, werr := strconv.ParseFloat(args[1], 64)
		height, herr := strconv.ParseFloat(args[2], 64)
		if werr != nil || herr != nil {
			fmt.Fprintf(os.Stderr, "invalid size %q x %q\n", args[1], args[2])
			return 2
		}
		err = client.SetWindowSize(width, height)
	case "size":
		var size *ipc.WindowSizePayload
		size, err = client.GetWindowSize()
		if err == nil {
			fmt.Printf("%gx%g\n", size.Width, size.Height)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown window subcommand: %s\n", args[0])
		printWindowUsage(os.Stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printPluginUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  winhost plugin show --name NAME [--id ID] [--input TEXT] [--result JSON|-]")
	fmt.Fprintln(w, "  winhost plugin close")
	fmt.Fprintln(w, "  winhost plugin ready")
}

func runPlugin(args []string, stdin io.Reader) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printPluginUsage(os.Stderr)
		return 2
	}

	client := ipc.NewClient()
	switch args[0] {
	case "show":
		payload, rc := parsePluginShow(args[1:], stdin)
		if rc >= 0 {
			return rc
		}
		if err := client.ShowPluginWindow(payload); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	case "close":
		if err := client.ClosePluginWindow(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	case "ready":
		if err := client.PluginWindowReady(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown plugin subcommand: %s\n", args[0])
		printPluginUsage(os.Stderr)
		return 2
	}
}

// parsePluginShow returns the payload and -1, or an exit code.
func parsePluginShow(args []string, stdin io.Reader) (pluginwin.Payload, int) {
	fs := flag.NewFlagSet("plugin show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "Plugin identifier")
	name := fs.String("name", "", "Plugin display name (window title)")
	input := fs.String("input", "", "User input the plugin ran with")
	result := fs.String("result", "", "Result JSON, or - to read it from stdin")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return pluginwin.Payload{}, 0
		}
		return pluginwin.Payload{}, 2
	}

	payload := pluginwin.Payload{PluginID: *id, PluginName: *name, Input: *input}
	raw := *result
	if raw == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read result: %v\n", err)
			return pluginwin.Payload{}, 1
		}
		raw = string(data)
	}
	if raw != "" {
		payload.Result = json.RawMessage(raw)
	}
	if err := payload.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return pluginwin.Payload{}, 2
	}
	return payload, -1
}

func runTUI(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "Usage: winhost tui")
		return 2
	}
	if err := tui.Run(ipc.NewClient()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
