// Command agentcore runs the assistant execution core interactively.
//
// Usage:
//
//	agentcore chat                          # interactive dialog loop
//	agentcore chat -config agentcore.yaml   # with a config file
//	agentcore version
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eduflow/agentcore"
	"github.com/eduflow/agentcore/classifier"
	"github.com/eduflow/agentcore/config"
	"github.com/eduflow/agentcore/executor"
	"github.com/eduflow/agentcore/graph"
	"github.com/eduflow/agentcore/routing"
	"github.com/eduflow/agentcore/types"
	"github.com/eduflow/agentcore/wizard"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "chat":
		if err := runChat(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println("agentcore", version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: agentcore <chat|version> [flags]")
}

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		return err
	}

	rt, err := agentcore.NewRuntime(cfg, nil, nil, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				rt.Logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	driver, err := rt.NewDriver(buildGraph(rt.Logger))
	if err != nil {
		return err
	}

	fmt.Println("agentcore chat. Try \"query students\"; Ctrl-D to exit.")
	state := types.NewState()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		state[types.KeyUserInput] = line
		out, err := driver.Run(context.Background(), state)
		if err != nil {
			fmt.Println("! workflow failed:", err)
			state = types.NewState()
			continue
		}
		state = out
		if answer := state.Answer(); answer != "" {
			fmt.Println(answer)
		}
	}
}

// buildGraph wires the demo workflow: classify intent, walk the guided
// CRUD dialog, then answer from the collected request.
func buildGraph(logger *zap.Logger) *graph.Graph {
	query := executor.NewAgentFunc("data_query", func(_ context.Context, s types.State) (types.State, error) {
		for key, value := range s {
			if !strings.HasPrefix(key, "wizard_result:") {
				continue
			}
			payload, ok := value.(map[string]any)
			if !ok {
				continue
			}
			s[types.KeyAnswer] = fmt.Sprintf("Would run %v on table %v with: %v",
				payload["operation"], payload["table_name"], payload["details_text"])
			// Overwrite instead of delete so the consumption survives the
			// envelope's merge.
			s[key] = nil
			return s, nil
		}
		s[types.KeyAnswer] = "Nothing to query yet."
		return s, nil
	})

	fallback := executor.NewAgentFunc("answer_agent", func(_ context.Context, s types.State) (types.State, error) {
		s[types.KeyAnswer] = "I can help with students, teachers, grades, classes and schools."
		return s, nil
	})

	g := graph.New("intent_classifier").
		AddNode(classifier.NewAgent(nil, logger)).
		AddNode(wizard.NewAgent(logger)).
		AddNode(query).
		AddNode(fallback)
	g.SetRouter("intent_classifier",
		routing.AfterClassify(wizard.Owner, "crud_wizard", "answer_agent", logger))
	g.SetRouter("crud_wizard",
		routing.AfterWizard(wizard.Owner, "data_query", logger))
	return g
}
