package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)

	task := &Task{Title: "index repo", Owner: "librarian", Status: TaskPending, Priority: PriorityHigh}
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "index repo" || got.Status != TaskPending {
		t.Fatalf("unexpected task: %+v", got)
	}

	if err := s.UpdateTaskStatus(task.ID, TaskInProgress); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	got, _ = s.GetTask(task.ID)
	if got.Status != TaskInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}

	_, err = s.GetTask("nonexistent")
	if apperr.ClassifyOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGetTasksFiltersByStatus(t *testing.T) {
	s := newTestStore(t)
	mustCreateTask(t, s, "a", TaskPending)
	mustCreateTask(t, s, "b", TaskCompleted)
	mustCreateTask(t, s, "c", TaskPending)

	pending, err := s.GetTasks(TaskPending)
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", len(pending))
	}

	all, err := s.GetTasks("")
	if err != nil {
		t.Fatalf("GetTasks all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks total, got %d", len(all))
	}
}

func TestGetTasksOrderedNewestFirstRegardlessOfPriority(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC()

	// Deliberately alphabetize priority opposite of created_at order, so a
	// priority-first sort and a created_at-first sort disagree.
	oldest := &Task{Title: "oldest", Status: TaskPending, Priority: PriorityHigh, CreatedAt: base}
	middle := &Task{Title: "middle", Status: TaskPending, Priority: PriorityLow, CreatedAt: base.Add(time.Minute)}
	newest := &Task{Title: "newest", Status: TaskPending, Priority: PriorityMedium, CreatedAt: base.Add(2 * time.Minute)}
	for _, task := range []*Task{oldest, middle, newest} {
		if err := s.CreateTask(task); err != nil {
			t.Fatalf("CreateTask %s: %v", task.Title, err)
		}
	}

	got, err := s.GetTasks("")
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(got))
	}
	if got[0].Title != "newest" || got[1].Title != "middle" || got[2].Title != "oldest" {
		t.Fatalf("expected newest-first order, got [%s, %s, %s]", got[0].Title, got[1].Title, got[2].Title)
	}
}

func mustCreateTask(t *testing.T, s *Store, title string, status TaskStatus) {
	t.Helper()
	if err := s.CreateTask(&Task{Title: title, Status: status, Priority: PriorityMedium}); err != nil {
		t.Fatalf("CreateTask %s: %v", title, err)
	}
}

func TestAlertAcknowledgeIsMonotonicAndIdempotent(t *testing.T) {
	s := newTestStore(t)
	a := &Alert{Level: AlertWarning, Message: "disk low", Source: "executor"}
	if err := s.CreateAlert(a); err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}

	if err := s.AcknowledgeAlert(a.ID); err != nil {
		t.Fatalf("AcknowledgeAlert 1: %v", err)
	}
	if err := s.AcknowledgeAlert(a.ID); err != nil {
		t.Fatalf("AcknowledgeAlert 2: %v", err)
	}

	ackTrue := true
	alerts, err := s.GetAlerts("", &ackTrue)
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 acknowledged alert, got %d", len(alerts))
	}
}

func TestKPIHistoryOrderedNewestFirst(t *testing.T) {
	s := newTestStore(t)
	for _, v := range []float64{1, 2, 3} {
		if err := s.RecordKPISample("throughput", v); err != nil {
			t.Fatalf("RecordKPISample: %v", err)
		}
	}
	history, err := s.GetKPIHistory("throughput", 10)
	if err != nil {
		t.Fatalf("GetKPIHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(history))
	}
	if history[0].Value != 3 || history[2].Value != 1 {
		t.Fatalf("expected newest-first order, got %+v", history)
	}
}

func TestContextRoundTrip(t *testing.T) {
	s := newTestStore(t)
	type payload struct {
		Repo   string   `json:"repo"`
		Topics []string `json:"topics"`
	}
	want := payload{Repo: "aegis", Topics: []string{"bus", "journal"}}
	if err := s.SetContext("focus", want); err != nil {
		t.Fatalf("SetContext: %v", err)
	}

	var got payload
	if err := s.GetContext("focus", &got); err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if got.Repo != want.Repo || len(got.Topics) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Upsert overwrites rather than duplicating.
	if err := s.SetContext("focus", payload{Repo: "aegis2"}); err != nil {
		t.Fatalf("SetContext overwrite: %v", err)
	}
	if err := s.GetContext("focus", &got); err != nil {
		t.Fatalf("GetContext after overwrite: %v", err)
	}
	if got.Repo != "aegis2" {
		t.Fatalf("expected overwrite, got %+v", got)
	}
}

func TestMeetingPrepLatestWins(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddMeetingPrep(&MeetingPrep{EventID: "evt-1", Brief: "first draft", CreatedBy: "librarian"}); err != nil {
		t.Fatalf("AddMeetingPrep 1: %v", err)
	}
	if err := s.AddMeetingPrep(&MeetingPrep{EventID: "evt-1", Brief: "revised", CreatedBy: "librarian"}); err != nil {
		t.Fatalf("AddMeetingPrep 2: %v", err)
	}

	latest, err := s.GetLatestMeetingPrep("evt-1")
	if err != nil {
		t.Fatalf("GetLatestMeetingPrep: %v", err)
	}
	if latest.Brief != "revised" {
		t.Fatalf("expected latest brief, got %q", latest.Brief)
	}
}

func TestFileIndexUpsertByPath(t *testing.T) {
	s := newTestStore(t)
	e := &FileIndexEntry{Path: "journal/writer.go", Extension: ".go", Size: 100, Tags: []string{"journal"}}
	if err := s.AddFileToIndex(e); err != nil {
		t.Fatalf("AddFileToIndex 1: %v", err)
	}
	firstID := e.ID

	e2 := &FileIndexEntry{Path: "journal/writer.go", Extension: ".go", Size: 200, Tags: []string{"journal", "writer"}}
	if err := s.AddFileToIndex(e2); err != nil {
		t.Fatalf("AddFileToIndex 2: %v", err)
	}

	entries, err := s.SearchFileIndex("", "", "journal", 10)
	if err != nil {
		t.Fatalf("SearchFileIndex: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected upsert to avoid duplicate rows, got %d entries", len(entries))
	}
	if entries[0].Size != 200 {
		t.Fatalf("expected updated size 200, got %d", entries[0].Size)
	}
	_ = firstID
}

func TestCodeRouteReindexIsClearThenInsert(t *testing.T) {
	s := newTestStore(t)
	path := "internal/bus/bus.go"
	if err := s.AddCodeRoute(&CodeRoute{FilePath: path, RouteType: RouteFunction, Name: "Send", LineNumber: 10}); err != nil {
		t.Fatalf("AddCodeRoute: %v", err)
	}
	if err := s.AddCodeRoute(&CodeRoute{FilePath: path, RouteType: RouteFunction, Name: "GetPending", LineNumber: 40}); err != nil {
		t.Fatalf("AddCodeRoute: %v", err)
	}

	n, err := s.ClearRoutesForFile(path)
	if err != nil {
		t.Fatalf("ClearRoutesForFile: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 routes cleared, got %d", n)
	}

	if err := s.AddCodeRoute(&CodeRoute{FilePath: path, RouteType: RouteFunction, Name: "Send", LineNumber: 12}); err != nil {
		t.Fatalf("AddCodeRoute after clear: %v", err)
	}

	routes, err := s.GetRoutesForFile(path)
	if err != nil {
		t.Fatalf("GetRoutesForFile: %v", err)
	}
	if len(routes) != 1 || routes[0].LineNumber != 12 {
		t.Fatalf("expected re-indexed single route, got %+v", routes)
	}
}

func TestSearchCodeRoutesByType(t *testing.T) {
	s := newTestStore(t)
	_ = s.AddCodeRoute(&CodeRoute{FilePath: "a.go", RouteType: RouteFunction, Name: "retrieve_notes"})
	_ = s.AddCodeRoute(&CodeRoute{FilePath: "a.go", RouteType: RouteStruct, Name: "retrieveOptions"})

	found, err := s.SearchCodeRoutes("retrieve", RouteFunction, 10)
	if err != nil {
		t.Fatalf("SearchCodeRoutes: %v", err)
	}
	if len(found) != 1 || found[0].Name != "retrieve_notes" {
		t.Fatalf("expected only the function match, got %+v", found)
	}
}

func TestAgentStatusHeartbeatAndUpsert(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateAgentStatus("director", AgentRunning, "ask-user"); err != nil {
		t.Fatalf("UpdateAgentStatus: %v", err)
	}
	if err := s.AgentHeartbeat("director"); err != nil {
		t.Fatalf("AgentHeartbeat: %v", err)
	}

	got, err := s.GetAgentStatus("director")
	if err != nil {
		t.Fatalf("GetAgentStatus: %v", err)
	}
	if got.Status != AgentRunning || got.CurrentTask != "ask-user" {
		t.Fatalf("unexpected status: %+v", got)
	}

	// Heartbeat for an unknown agent registers it rather than failing.
	if err := s.AgentHeartbeat("executor"); err != nil {
		t.Fatalf("AgentHeartbeat for new agent: %v", err)
	}
	all, err := s.GetAllAgentStatus()
	if err != nil {
		t.Fatalf("GetAllAgentStatus: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 agent rows, got %d", len(all))
	}
}

func TestConfigDefaultsSeededByMigration(t *testing.T) {
	s := newTestStore(t)
	v, err := s.GetConfigValue("daily_checkin_time")
	if err != nil {
		t.Fatalf("GetConfigValue: %v", err)
	}
	if v != "09:00" {
		t.Fatalf("expected seeded default 09:00, got %q", v)
	}

	if err := s.SetConfigValue("daily_checkin_time", "08:30"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	v, _ = s.GetConfigValue("daily_checkin_time")
	if v != "08:30" {
		t.Fatalf("expected overwritten value, got %q", v)
	}
}

func TestAuditEntryRecordAndFilterByAgent(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddAuditEntry(&AuditEntry{
		Agent:        "librarian",
		EventType:    AuditLLMCall,
		PromptSize:   120,
		ResponseSize: 480,
		DurationMS:   42,
	}); err != nil {
		t.Fatalf("AddAuditEntry: %v", err)
	}
	if err := s.AddAuditEntry(&AuditEntry{
		Agent:      "executor",
		EventType:  AuditToolCall,
		PromptSize: 30,
		Error:      "tool unavailable",
	}); err != nil {
		t.Fatalf("AddAuditEntry: %v", err)
	}

	all, err := s.GetRecentAuditEntries("", 10)
	if err != nil {
		t.Fatalf("GetRecentAuditEntries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}

	librarianOnly, err := s.GetRecentAuditEntries("librarian", 10)
	if err != nil {
		t.Fatalf("GetRecentAuditEntries filtered: %v", err)
	}
	if len(librarianOnly) != 1 || librarianOnly[0].EventType != AuditLLMCall {
		t.Fatalf("unexpected filtered entries: %+v", librarianOnly)
	}
	if librarianOnly[0].ID == "" {
		t.Fatal("expected generated ID")
	}

	executorOnly, err := s.GetRecentAuditEntries("executor", 10)
	if err != nil {
		t.Fatalf("GetRecentAuditEntries filtered: %v", err)
	}
	if len(executorOnly) != 1 || executorOnly[0].Error != "tool unavailable" {
		t.Fatalf("expected error recorded, got %+v", executorOnly)
	}
}
