package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/blobstore"
	"github.com/reinhart/mcpdemo/internal/configuration"
	"github.com/reinhart/mcpdemo/internal/history"
	"github.com/reinhart/mcpdemo/internal/logger"
	"github.com/reinhart/mcpdemo/internal/toolsession"
	"github.com/reinhart/mcpdemo/internal/ui"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to config.toml")
	conversationID := pflag.String("conversation", "", "resume a conversation by id (default: new id)")
	serverURL := pflag.String("mcp", "", "MCP endpoint: http(s)://, sse://, or stdio://command")
	prompt := pflag.StringP("prompt", "p", "", "run one message without the TUI and print events")
	scenario := pflag.Int("scenario", 0, "scenario index used with --prompt (0 = free chat)")
	debug := pflag.Bool("debug", false, "write debug logs to debug.log")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println("mcpdemo", version)
		return nil
	}

	cfg, loadedPath, err := configuration.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if *serverURL != "" {
		cfg.MCP.ServerURL = *serverURL
	}

	logger.Init()
	if cfg.Agent.Debug || *debug {
		logger.DebugMode = true
	}

	// Redirect logs to a file immediately so early init issues are caught
	// without drawing over the TUI.
	if logger.DebugMode {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			return fmt.Errorf("could not open debug.log: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
		logger.Debug("Logger initialized")
	}
	if loadedPath != "" {
		logger.Info("Loaded config from %s", loadedPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	if c, ok := llm.(io.Closer); ok {
		defer c.Close()
	}

	store, err := newHistoryStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing history store: %w", err)
	}

	toolsession.Version = version
	agent := assistant.NewAgent(llm, toolsession.NewDialer(cfg.MCP.ServerURL), assistant.Options{
		MaxRounds:     cfg.Agent.MaxRounds,
		ParallelTools: cfg.Agent.ParallelTools,
	})
	conversation := history.NewConversation(*conversationID, store, agent)
	logger.Info("Conversation %s using %s against %s", conversation.ID, cfg.LLM.Provider, cfg.MCP.ServerURL)

	if *prompt != "" {
		if *scenario < 0 || *scenario >= len(ui.Scenarios) {
			return fmt.Errorf("scenario must be between 0 and %d", len(ui.Scenarios)-1)
		}
		return runOnce(ctx, os.Stdout, conversation, *prompt, ui.Scenarios[*scenario].Context, cfg)
	}

	model := ui.NewModel(conversation, ui.Options{RequestTimeout: cfg.RequestTimeout()})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running mcpdemo: %w", err)
	}
	return nil
}

func newHistoryStore(ctx context.Context, cfg *configuration.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case "memory":
		return history.NewMemoryStore(), nil
	case "blob":
		if cfg.Storage.Backend == "memory" {
			return history.NewBlobStore(blobstore.NewMemoryStore()), nil
		}
		s3Store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:      cfg.Storage.Bucket,
			Region:      cfg.Storage.Region,
			EndpointURL: cfg.Storage.EndpointURL,
		})
		if err != nil {
			return nil, err
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return history.NewBlobStore(s3Store), nil
	default:
		return history.NewFileStore(cfg.History.Dir)
	}
}

// runOnce drives a single turn headlessly and prints one line per event.
func runOnce(ctx context.Context, w io.Writer, conversation *history.Conversation, message, scenarioContext string, cfg *configuration.Config) error {
	if timeout := cfg.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var runErr error
	var last assistant.Event
	for ev := range conversation.Send(ctx, message, scenarioContext) {
		last = ev
		switch ev.Type {
		case assistant.EventToolCallRequested:
			args, _ := json.Marshal(ev.Arguments)
			fmt.Fprintf(w, "[%d] %s %s %s\n", ev.Round, ev.Type, ev.ToolName, args)
		case assistant.EventToolResult:
			fmt.Fprintf(w, "[%d] %s %s\n%s\n", ev.Round, ev.Type, ev.ToolName, ev.Message)
		case assistant.EventConversationSnapshot:
			fmt.Fprintf(w, "[%d] %s (%d messages)\n", ev.Round, ev.Type, len(ev.Transcript))
		case assistant.EventError:
			fmt.Fprintf(w, "[%d] %s %s\n", ev.Round, ev.Type, ev.Message)
			runErr = ev.Err
			if runErr == nil {
				runErr = errors.New(ev.Message)
			}
		default:
			fmt.Fprintf(w, "[%d] %s %s\n", ev.Round, ev.Type, ev.Message)
		}
	}
	if runErr != nil {
		return runErr
	}
	if !last.Terminal() {
		return fmt.Errorf("run ended without a done event (last: %q)", last.Type)
	}
	fmt.Fprintf(w, "conversation: %s\n", conversation.ID)
	return nil
}
