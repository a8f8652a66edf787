// Command aegis runs the Director, Librarian, and Executor peer agents
// described in SPEC_FULL.md against a shared message bus, state store,
// and journal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/madhatter5501/aegis/internal/agentrt"
	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/calendar"
	"github.com/madhatter5501/aegis/internal/codingassistant"
	"github.com/madhatter5501/aegis/internal/config"
	"github.com/madhatter5501/aegis/internal/director"
	"github.com/madhatter5501/aegis/internal/executor"
	"github.com/madhatter5501/aegis/internal/journal"
	"github.com/madhatter5501/aegis/internal/librarian"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/scheduler"
	"github.com/madhatter5501/aegis/internal/store"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func banner() string {
	return `
╔═══════════════════════════════════════════════════════════╗
║                           aegis                            ║
║        Director / Librarian / Executor agent runtime       ║
╚═══════════════════════════════════════════════════════════╝
`
}

func main() {
	var (
		dbPath          = flag.String("db", "aegis.db", "State store SQLite path")
		busPath         = flag.String("bus", "message_bus.json", "Message bus file path")
		journalDir      = flag.String("journal-dir", "journal", "Journal entry directory")
		journalIndex    = flag.String("journal-index", "journal/index.json", "Journal index file path")
		configDir       = flag.String("config-dir", "configs", "Directory holding agents.toml and roots.yaml")
		calendarFixture = flag.String("calendar", "configs/calendar_fixture.yaml", "Calendar fixture YAML path (optional)")
		assistantBinary = flag.String("assistant-binary", "claude", "External coding-assistant CLI binary name")
		digestAt        = flag.String("digest-at", "06:30", "Daily wall-clock time to run the knowledge digest")
		showVersion     = flag.Bool("version", false, "Show version")
		onboardOnly     = flag.Bool("onboard", false, "Run Librarian onboarding once and exit")
		showStatus      = flag.Bool("status", false, "Print a status snapshot and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("aegis %s (commit: %s)\n", version, gitCommit)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	db, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open state store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.New(db)

	if *showStatus {
		runStatus(st)
		return
	}

	b, err := bus.Open(*busPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open message bus: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*journalDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create journal directory: %v\n", err)
		os.Exit(1)
	}
	jw, err := journal.NewWriter(*journalDir, *journalIndex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open journal: %v\n", err)
		os.Exit(1)
	}

	personas, err := config.LoadPersonas(filepath.Join(*configDir, "agents.toml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load persona config: %v\n", err)
		os.Exit(1)
	}
	roots, err := config.LoadRoots(filepath.Join(*configDir, "roots.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load roots config: %v\n", err)
		os.Exit(1)
	}

	var cal calendar.Calendar
	if fixture, err := calendar.LoadFixtureCalendar(*calendarFixture); err == nil {
		cal = fixture
	} else {
		logger.Warn("calendar fixture unavailable, meeting-prep features disabled", "path", *calendarFixture, "error", err)
	}

	factory := llm.NewFactory()
	librarianProvider, err := factory.GetProvider(firstNonEmpty(personas.Librarian.Provider, llm.DefaultProviderOrder[0]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve librarian llm provider: %v\n", err)
		os.Exit(1)
	}
	assistant := codingassistant.New(*assistantBinary)

	lib := librarian.New(b, st, jw, librarianProvider, roots, personas.Librarian, logger)
	dir := director.New(b, st, jw, factory, cal, personas.Director, logger)
	ex := executor.New(b, st, assistant, factory, personas.Executor, logger)

	fmt.Print(banner())
	fmt.Println("Onboarding: exploring roots and building the code routing index...")
	if err := lib.Onboard(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "onboarding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Onboarding complete.")

	if *onboardOnly {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	sched := scheduleDailyDigest(b, logger, *digestAt)
	defer sched.Stop()

	var wg sync.WaitGroup
	loops := []*agentrt.Loop{dir.Loop(), lib.Loop(), ex.Loop()}
	for _, l := range loops {
		wg.Add(1)
		go func(l *agentrt.Loop) {
			defer wg.Done()
			l.Run(ctx)
		}(l)
	}

	fmt.Println("Director, Librarian, and Executor running. Press Ctrl+C to stop.")
	wg.Wait()
	fmt.Println("Stopped.")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// scheduleDailyDigest wires internal/scheduler's daily-at-time registry to
// the knowledge digest feature (SPEC_FULL.md §5): once a day the system
// sends itself a knowledge_request the Librarian special-cases into
// CreateKnowledgeDigest, exactly as an interactive caller would.
func scheduleDailyDigest(b *bus.Bus, logger *slog.Logger, hhmm string) *scheduler.Scheduler {
	sched := scheduler.New(logger)
	body, _ := json.Marshal(map[string]any{"question": "digest"})
	if err := sched.RegisterDailyCheckin(hhmm, func() {
		if _, err := b.Send("system", "librarian", bus.TypeKnowledgeRequest, "knowledge_request", string(body), bus.PriorityLow, nil); err != nil {
			logger.Error("failed to send daily digest request", "error", err)
		}
	}); err != nil {
		logger.Error("failed to register daily digest", "error", err)
	}
	sched.RunInBackground()
	return sched
}

func runStatus(st *store.Store) {
	fmt.Println("=== aegis status ===")
	for _, agent := range []string{"director", "librarian", "executor"} {
		status, err := st.GetAgentStatus(agent)
		if err != nil {
			fmt.Printf("  %-10s %s\n", agent, color.YellowString("unknown"))
			continue
		}
		label := color.GreenString(string(status.Status))
		age := humanize.Time(status.LastHeartbeat)
		fmt.Printf("  %-10s %s (heartbeat %s)\n", agent, label, age)
	}

	pending, _ := st.GetTasks(store.TaskPending)
	inProgress, _ := st.GetTasks(store.TaskInProgress)
	blocked, _ := st.GetTasks(store.TaskBlocked)
	fmt.Printf("\nTasks: %s pending, %s in_progress, %s\n",
		color.CyanString("%d", len(pending)), color.CyanString("%d", len(inProgress)), blockedLabel(len(blocked)))

	unacked := false
	alerts, err := st.GetAlerts("", &unacked)
	if err == nil && len(alerts) > 0 {
		fmt.Println("\nOpen alerts:")
		for _, a := range alerts {
			fmt.Printf("  [%s] %s (%s, %s)\n", a.Level, a.Message, a.Source, humanize.Time(a.CreatedAt))
		}
	}
}

func blockedLabel(n int) string {
	if n == 0 {
		return fmt.Sprintf("%d blocked", n)
	}
	return color.RedString("%d blocked", n)
}
