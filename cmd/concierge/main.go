package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd := "serve"
	if len(os.Args) >= 2 && !strings.HasPrefix(os.Args[1], "-") {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe()
	case "ask":
		err = runAsk(positional())
	case "agents":
		err = runAgents()
	case "scenarios":
		err = runScenarios()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'marhaba --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`marhaba - Morocco travel concierge

USAGE:
    marhaba [COMMAND] [FLAGS]

COMMANDS:
    serve               Run the HTTP/WebSocket gateway (default)
    ask "<question>"    Ask the concierge once and print the reply
    agents              Probe every agent and print its availability
    scenarios           List the demo scenarios

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./config.yaml)
    --plain            Print replies without colour or markdown styling

CONFIGURATION:
    Config file: ./config.yaml (optional, defaults apply when missing)
    Environment: MARHABA_* variables override config

EXAMPLES:
    marhaba
    marhaba --config /etc/marhaba/config.yaml
    marhaba ask "Find me flights from Paris to Marrakech"
    marhaba agents`)
}

// configPath reads --config from os.Args, then MARHABA_CONFIG.
func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("MARHABA_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

// positional joins the non-flag arguments after the command.
func positional() string {
	var words []string
	for i := 2; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch {
		case arg == "--config":
			i++
		case strings.HasPrefix(arg, "-"):
		default:
			words = append(words, arg)
		}
	}
	return strings.Join(words, " ")
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, configPath())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
		defer a.scheduler.Stop()
		// First probe now so /api/agents has data before the first tick.
		go func() {
			if err := a.board.ProbeAll(ctx); err != nil {
				a.log.Debug("initial probe interrupted", "error", err)
			}
		}()
	}

	gw := a.gateway(ctx)
	a.log.Info("marhaba starting",
		"addr", a.cfg.Gateway.Addr,
		"agents", len(a.registry.All()),
		"demo", a.cfg.Mode.Demo,
		"agent_only", a.cfg.Mode.AgentOnly,
		"structured_source", a.cfg.Orchestrator.StructuredSource,
	)
	// Start returns once ctx is cancelled and the server has begun shutting down.
	return gw.Start(ctx)
}

func runAsk(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("usage: marhaba ask \"<question>\"")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, configPath())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.concierge.Respond(ctx, conciergeRequest(query))
	if err != nil {
		return err
	}
	r, err := a.renderer()
	if err != nil {
		return err
	}
	fmt.Print(r.Messages(resp.Messages))
	a.log.Debug("answered", "provider", resp.Provider, "conversation", resp.ConversationID)
	return nil
}

func runAgents() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, configPath())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.board.ProbeAll(ctx); err != nil {
		return err
	}
	r, err := a.renderer()
	if err != nil {
		return err
	}
	fmt.Print(r.AgentStatuses(a.board.Snapshot()))
	return nil
}

func runScenarios() error {
	for _, sc := range demoMatcher(nil).Scenarios() {
		fmt.Printf("%-36s %s\n", sc.Name, sc.Description)
	}
	return nil
}
