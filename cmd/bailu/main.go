// Command bailu is an interactive terminal coding agent: a REPL loop
// mediating between the user and an LLM chat endpoint, dispatching the
// model's tool calls through a safety policy before touching the
// workspace.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"bailu/internal/agent"
	"bailu/internal/config"
	"bailu/internal/llm"
	"bailu/internal/mediator"
	"bailu/internal/session"
	"bailu/internal/telemetry"
	"bailu/internal/tools"
	"bailu/internal/ui"
)

var version = "dev"

func main() {
	var (
		modelFlag      string
		safetyModeFlag string
		workspaceFlag  string
		providerFlag   string
	)

	root := &cobra.Command{
		Use:   "bailu",
		Short: "An interactive terminal coding agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), replFlags{
				model:      modelFlag,
				safetyMode: safetyModeFlag,
				workspace:  workspaceFlag,
				provider:   providerFlag,
			})
		},
	}

	root.Flags().StringVar(&modelFlag, "model", "", "override the configured model name")
	root.Flags().StringVar(&safetyModeFlag, "safety-mode", "", "dry-run, review, or auto-apply")
	root.Flags().StringVar(&workspaceFlag, "workspace", "", "workspace root (default: current directory)")
	root.Flags().StringVar(&providerFlag, "provider", "", "anthropic or openai")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type replFlags struct {
	model      string
	safetyMode string
	workspace  string
	provider   string
}

func runREPL(ctx context.Context, flags replFlags) error {
	workDir := flags.workspace
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		workDir = wd
	}
	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolve workspace root: %w", err)
	}

	cfg, err := config.Load(flags.provider)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.safetyMode != "" {
		mode, err := tools.ParseSafetyMode(flags.safetyMode)
		if err != nil {
			return err
		}
		cfg.SafetyMode = mode
	}

	tel, err := telemetry.New(cfg.ConfigDir, cfg.Debug)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer tel.Shutdown(context.Background())

	watcher := config.WatchWorkspaceConfig(absWorkDir)
	defer watcher.Close()

	client, err := llm.New(llm.Config{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	registry := tools.NewRegistry(absWorkDir)

	taskList := agent.NewTaskList()
	registry.SetTaskCallbacks(taskList.Callbacks())

	term := ui.NewTerminal()
	raw := ui.NewRawMode()
	interrupter := ui.NewInterrupter(raw)
	defer interrupter.Stop()

	explorer := agent.NewExplorer(client, absWorkDir, term)
	registry.SetExploreFunc(explorer.Func())

	backups := mediator.NewBackupStore()
	med := mediator.New(registry, backups,
		mediator.WithRawModeController(raw),
		mediator.WithLogger(tel.Logger),
	)

	store, err := session.NewStore(mustProjectDir(cfg.ConfigDir, absWorkDir))
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	conv := agent.NewConversation(agent.BaseSystemPrompt(absWorkDir))
	checkpoints := agent.NewCheckpointTracker(conv)
	sessionRecord := session.New("")

	orch := agent.New(client, registry, med,
		agent.WithLogger(tel.Logger),
		agent.WithFileObserver(checkpoints.NoteWrite),
	)

	ec := tools.ExecutionContext{
		WorkspaceRoot: absWorkDir,
		SafetyMode:    cfg.SafetyMode,
	}

	term.PrintBanner(cfg.Model, absWorkDir, version)

	repl := &replSession{
		ctx:         ctx,
		term:        term,
		client:      client,
		registry:    registry,
		med:         med,
		orch:        orch,
		conv:        conv,
		checkpoints: checkpoints,
		taskList:    taskList,
		store:       store,
		record:      sessionRecord,
		ec:          ec,
		metrics:     tel.Metrics,
		interrupter: interrupter,
	}
	repl.loop()
	return nil
}

func mustProjectDir(configDir, workspaceRoot string) string {
	dir, err := session.ProjectDir(configDir, workspaceRoot)
	if err != nil {
		return filepath.Join(configDir, "sessions", "default")
	}
	return dir
}

// replSession holds everything the interactive loop needs across turns.
type replSession struct {
	ctx         context.Context
	term        *ui.Terminal
	client      llm.LLMClient
	registry    *tools.Registry
	med         *mediator.Mediator
	orch        *agent.Orchestrator
	conv        *agent.Conversation
	checkpoints *agent.CheckpointTracker
	taskList    *agent.TaskList
	store       *session.Store
	record      *session.Record
	ec          tools.ExecutionContext
	metrics     *telemetry.Metrics
	interrupter *ui.Interrupter

	iterations  int
	toolCalls   int
	activeFiles []string
}

func (r *replSession) loop() {
	for {
		r.term.PrintPrompt()
		line, err := r.term.ReadLine()
		if err != nil {
			fmt.Println()
			return
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if r.dispatchCommand(line) {
				return
			}
			continue
		}

		r.checkpoints.Create(line)
		r.conv.Append(llm.TextMessage("user", line))

		runCtx, cancel := context.WithCancel(r.ctx)
		go func() {
			select {
			case <-r.interrupter.Interrupt:
				cancel()
			case <-runCtx.Done():
			}
		}()

		result := r.orch.Run(runCtx, r.ec, r.conv, r.term)
		cancel()

		r.iterations += result.Iterations
		r.toolCalls += result.ToolCallsExecuted
		if len(result.ActiveFiles) > 0 {
			r.activeFiles = result.ActiveFiles
		}
		r.metrics.IterationsTotal.Add(float64(result.Iterations))

		if result.Err != nil {
			if errors.Is(result.Err, mediator.ErrQuit) {
				r.saveSession()
				return
			}
			r.term.PrintError(result.Err)
			continue
		}
		if result.FinalResponse != "" {
			fmt.Println(result.FinalResponse)
			fmt.Println()
		}

		r.saveSession()
	}
}

// saveSession persists the current conversation after every turn so a
// crash or Ctrl+D never loses more than the in-flight turn.
func (r *replSession) saveSession() {
	r.record.Messages = r.conv.Messages()
	r.record.Stats = session.Stats{
		MessageCount:      r.conv.Len(),
		ToolCallsExecuted: r.toolCalls,
		EstimatedTokens:   r.conv.EstimateTotal(),
	}
	r.record.ActiveFiles = r.activeFiles
	if err := r.store.Save(r.record); err != nil {
		r.term.PrintWarning("Failed to save session: " + err.Error())
	}
}

// dispatchCommand handles a slash command and reports whether the REPL
// should exit.
func (r *replSession) dispatchCommand(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		r.term.PrintHelp()
	case "/clear":
		r.conv.Clear()
		r.term.Warn("Conversation cleared.")
	case "/compact":
		ok, notice := r.conv.CompactManual()
		if !ok {
			r.term.Warn(notice)
		} else {
			r.term.Warn("Conversation compacted.")
		}
	case "/context":
		r.term.PrintContextUsage(ui.ContextStats{
			EstimatedTokens: r.conv.EstimateTotal(),
			TokenBudget:     8000,
			Threshold:       6400,
			MessageCount:    r.conv.Len(),
		})
	case "/tasks":
		items := make([]ui.TaskListItem, 0)
		for _, t := range r.taskList.Tasks() {
			items = append(items, ui.TaskListItem{ID: t.ID, Content: t.Content, Status: t.Status, ActiveForm: t.ActiveForm})
		}
		r.term.PrintTaskList(items)
	case "/stats":
		r.term.PrintStats(r.iterations, r.toolCalls, r.conv.EstimateTotal())
	case "/resume":
		r.resumeSession()
	case "/rewind":
		r.rewind(fields)
	default:
		r.term.PrintWarning("Unknown command: " + cmd)
	}
	return false
}

func (r *replSession) resumeSession() {
	records, err := r.store.List(10)
	if err != nil || len(records) == 0 {
		r.term.Warn("No saved sessions found.")
		return
	}
	items := make([]ui.SessionListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, ui.SessionListItem{
			ID:       rec.ID,
			Updated:  rec.LastUpdatedAt,
			Preview:  rec.Preview(),
			MsgCount: rec.Stats.MessageCount,
		})
	}
	r.term.PrintSessionList(items)

	choice, err := r.term.ReadLine()
	if err != nil {
		return
	}
	idx, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || idx < 1 || idx > len(records) {
		r.term.PrintWarning("Cancelled.")
		return
	}

	rec := records[idx-1]
	r.conv.Restore(rec.Messages)
	r.record = &rec
	r.toolCalls = rec.Stats.ToolCallsExecuted
	r.activeFiles = rec.ActiveFiles
	r.term.PrintSessionResumed(rec.ID)
	r.term.PrintConversationHistory(rec.Messages)
}

func (r *replSession) rewind(fields []string) {
	items := r.checkpoints.Items()
	if len(items) == 0 {
		r.term.Warn("No checkpoints recorded yet.")
		return
	}
	listItems := make([]ui.CheckpointListItem, 0, len(items))
	for _, it := range items {
		listItems = append(listItems, ui.CheckpointListItem{Turn: it.Turn, Timestamp: it.Timestamp, Preview: it.Preview})
	}
	r.term.PrintCheckpointList(listItems)

	choice, err := r.term.ReadLine()
	if err != nil {
		return
	}
	turn, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil {
		r.term.PrintWarning("Cancelled.")
		return
	}

	r.term.PrintRewindActions()
	action, err := r.term.ReadLine()
	if err != nil {
		return
	}

	var doErr error
	var label string
	switch strings.TrimSpace(action) {
	case "1":
		doErr = r.checkpoints.RewindAll(turn)
		label = "code and conversation"
	case "2":
		doErr = r.checkpoints.RewindConversation(turn)
		label = "conversation only"
	case "3":
		doErr = r.checkpoints.RewindFiles(turn)
		label = "code only"
	default:
		r.term.PrintWarning("Cancelled.")
		return
	}
	if doErr != nil {
		r.term.PrintError(doErr)
		return
	}
	r.term.PrintRewindComplete(label)
}
