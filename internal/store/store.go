package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// Store implements the State Store CRUD surface on top of a DB connection.
type Store struct {
	db *DB
}

// New wraps a DB connection in a Store.
func New(db *DB) *Store {
	return &Store{db: db}
}

// --- Tasks ---

// CreateTask inserts a new task, generating an ID if none is set.
func (s *Store) CreateTask(t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, title, description, owner, status, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.Owner, t.Status, t.Priority, t.DueDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "create task")
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`
		SELECT id, title, description, owner, status, priority, due_date, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "task %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "get task")
	}
	return t, nil
}

// GetTasks returns tasks, optionally filtered by status. Pass "" for all.
func (s *Store) GetTasks(status TaskStatus) ([]Task, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query(`
			SELECT id, title, description, owner, status, priority, due_date, created_at, updated_at
			FROM tasks ORDER BY created_at DESC
		`)
	} else {
		rows, err = s.db.Query(`
			SELECT id, title, description, owner, status, priority, due_date, created_at, updated_at
			FROM tasks WHERE status = ? ORDER BY created_at DESC
		`, status)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "query tasks")
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan task row")
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus transitions a task's status. The store does not enforce
// the DAG shape; callers are responsible for not driving completed tasks
// backward.
func (s *Store) UpdateTaskStatus(id string, status TaskStatus) error {
	res, err := s.db.Exec(`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "update task status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "task %s not found", id)
	}
	return nil
}

// UpdateTask persists all mutable fields of a task.
func (s *Store) UpdateTask(t *Task) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE tasks SET title = ?, description = ?, owner = ?, status = ?,
			priority = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, t.Owner, t.Status, t.Priority, t.DueDate, t.UpdatedAt, t.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "update task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "task %s not found", t.ID)
	}
	return nil
}

func scanTask(row *sql.Row) (*Task, error)   { return scanTaskGeneric(row) }
func scanTaskRows(rows *sql.Rows) (*Task, error) { return scanTaskGeneric(rows) }

func scanTaskGeneric(sc scanner) (*Task, error) {
	var t Task
	var description, owner sql.NullString
	var dueDate sql.NullTime
	err := sc.Scan(&t.ID, &t.Title, &description, &owner, &t.Status, &t.Priority,
		&dueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Owner = owner.String
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}

// scanner lets row-scan helpers work against both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// --- Alerts ---

// CreateAlert inserts a new unacknowledged alert.
func (s *Store) CreateAlert(a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO alerts (id, level, message, source, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Level, a.Message, a.Source, a.Acknowledged, a.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "create alert")
	}
	return nil
}

// GetAlerts returns alerts, optionally filtered by level and/or
// acknowledgement state. Pass "" for level and nil for acknowledged to skip
// a filter.
func (s *Store) GetAlerts(level AlertLevel, acknowledged *bool) ([]Alert, error) {
	query := `SELECT id, level, message, source, acknowledged, created_at FROM alerts WHERE 1=1`
	var args []any
	if level != "" {
		query += " AND level = ?"
		args = append(args, level)
	}
	if acknowledged != nil {
		query += " AND acknowledged = ?"
		args = append(args, *acknowledged)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "query alerts")
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var source sql.NullString
		if err := rows.Scan(&a.ID, &a.Level, &a.Message, &source, &a.Acknowledged, &a.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan alert row")
		}
		a.Source = source.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert acknowledged. Acknowledgement is
// monotonic: calling it again is a no-op, never an error.
func (s *Store) AcknowledgeAlert(id string) error {
	_, err := s.db.Exec(`UPDATE alerts SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "acknowledge alert")
	}
	return nil
}

// --- Decisions ---

// RecordDecision appends a decision record. Decisions are never updated or
// deleted once written.
func (s *Store) RecordDecision(d *Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO decisions (id, title, rationale, decision_maker, impact, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.Title, d.Rationale, d.DecisionMaker, d.Impact, d.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "record decision")
	}
	return nil
}

// GetRecentDecisions returns the most recent decisions, newest first.
func (s *Store) GetRecentDecisions(limit int) ([]Decision, error) {
	rows, err := s.db.Query(`
		SELECT id, title, rationale, decision_maker, impact, created_at
		FROM decisions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "query decisions")
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.Title, &d.Rationale, &d.DecisionMaker, &d.Impact, &d.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan decision row")
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// --- KPI samples ---

// RecordKPISample appends a metric sample.
func (s *Store) RecordKPISample(metric string, value float64) error {
	_, err := s.db.Exec(`
		INSERT INTO kpi_samples (metric, value, timestamp) VALUES (?, ?, ?)
	`, metric, value, time.Now().UTC())
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "record kpi sample")
	}
	return nil
}

// GetKPIHistory returns the most recent samples for a metric, newest first.
func (s *Store) GetKPIHistory(metric string, limit int) ([]KPISample, error) {
	rows, err := s.db.Query(`
		SELECT id, metric, value, timestamp FROM kpi_samples
		WHERE metric = ? ORDER BY timestamp DESC LIMIT ?
	`, metric, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "query kpi history")
	}
	defer rows.Close()

	var samples []KPISample
	for rows.Next() {
		var k KPISample
		if err := rows.Scan(&k.ID, &k.Metric, &k.Value, &k.Timestamp); err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan kpi row")
		}
		samples = append(samples, k)
	}
	return samples, rows.Err()
}

// --- Context entries ---

// SetContext upserts a context entry, JSON-encoding value.
func (s *Store) SetContext(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "encode context value")
	}
	_, err = s.db.Exec(`
		INSERT INTO context_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(encoded), time.Now().UTC())
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "set context")
	}
	return nil
}

// GetContext reads a context entry and decodes it into out. Returns
// apperr.KindNotFound if the key is unset.
func (s *Store) GetContext(key string, out any) error {
	var value string
	err := s.db.QueryRow(`SELECT value FROM context_entries WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return apperr.New(apperr.KindNotFound, "context key %s not found", key)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "get context")
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return apperr.Wrap(apperr.KindCorruptState, err, "decode context value for %s", key)
	}
	return nil
}

// --- Meeting preps ---

// AddMeetingPrep stores a generated meeting brief.
func (s *Store) AddMeetingPrep(p *MeetingPrep) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO meeting_preps (id, event_id, brief, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.EventID, p.Brief, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "add meeting prep")
	}
	return nil
}

// GetLatestMeetingPrep returns the most recently generated brief for an
// event, or apperr.KindNotFound if none exists yet.
func (s *Store) GetLatestMeetingPrep(eventID string) (*MeetingPrep, error) {
	row := s.db.QueryRow(`
		SELECT id, event_id, brief, created_by, created_at
		FROM meeting_preps WHERE event_id = ? ORDER BY created_at DESC LIMIT 1
	`, eventID)
	var p MeetingPrep
	err := row.Scan(&p.ID, &p.EventID, &p.Brief, &p.CreatedBy, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "no meeting prep for event %s", eventID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "get meeting prep")
	}
	return &p, nil
}

// --- File index ---

// AddFileToIndex upserts a file index entry by path.
func (s *Store) AddFileToIndex(e *FileIndexEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.IndexedAt.IsZero() {
		e.IndexedAt = time.Now().UTC()
	}
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "encode tags")
	}
	_, err = s.db.Exec(`
		INSERT INTO file_index (id, path, extension, size, modified_at, indexed_at, summary, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			extension = excluded.extension, size = excluded.size,
			modified_at = excluded.modified_at, indexed_at = excluded.indexed_at,
			summary = excluded.summary, tags = excluded.tags
	`, e.ID, e.Path, e.Extension, e.Size, e.ModifiedAt, e.IndexedAt, e.Summary, string(tags))
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "upsert file index entry")
	}
	return nil
}

// SearchFileIndex filters by extension, containment of tag, and a path
// substring pattern; any of the three may be left zero-valued to skip it.
func (s *Store) SearchFileIndex(extension, tag, pathPattern string, limit int) ([]FileIndexEntry, error) {
	query := `SELECT id, path, extension, size, modified_at, indexed_at, summary, tags FROM file_index WHERE 1=1`
	var args []any
	if extension != "" {
		query += " AND extension = ?"
		args = append(args, extension)
	}
	if tag != "" {
		query += " AND tags LIKE ?"
		args = append(args, "%\""+tag+"\"%")
	}
	if pathPattern != "" {
		query += " AND path LIKE ?"
		args = append(args, "%"+pathPattern+"%")
	}
	query += " ORDER BY indexed_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "search file index")
	}
	defer rows.Close()

	var entries []FileIndexEntry
	for rows.Next() {
		var e FileIndexEntry
		var summary sql.NullString
		var tagsJSON string
		if err := rows.Scan(&e.ID, &e.Path, &e.Extension, &e.Size, &e.ModifiedAt, &e.IndexedAt, &summary, &tagsJSON); err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan file index row")
		}
		e.Summary = summary.String
		_ = json.Unmarshal([]byte(tagsJSON), &e.Tags)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Code routes ---

// AddCodeRoute inserts a single route record.
func (s *Store) AddCodeRoute(r *CodeRoute) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.IndexedAt.IsZero() {
		r.IndexedAt = time.Now().UTC()
	}
	keywords, err := json.Marshal(r.Keywords)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "encode keywords")
	}
	_, err = s.db.Exec(`
		INSERT INTO code_routes (id, file_path, route_type, name, line_number, signature, docstring, keywords, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.FilePath, r.RouteType, r.Name, r.LineNumber, r.Signature, r.Docstring, string(keywords), r.IndexedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "add code route")
	}
	return nil
}

// ClearRoutesForFile deletes all routes indexed for a file and returns the
// number removed, so re-indexing a file is a clear-then-insert operation.
func (s *Store) ClearRoutesForFile(path string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM code_routes WHERE file_path = ?`, path)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreUnavailable, err, "clear routes for file")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetRoutesForFile returns all routes currently indexed for a file.
func (s *Store) GetRoutesForFile(path string) ([]CodeRoute, error) {
	rows, err := s.db.Query(`
		SELECT id, file_path, route_type, name, line_number, signature, docstring, keywords, indexed_at
		FROM code_routes WHERE file_path = ? ORDER BY line_number
	`, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "get routes for file")
	}
	defer rows.Close()
	return scanCodeRoutes(rows)
}

// SearchCodeRoutes does a substring search over name, signature and
// docstring, optionally restricted to one route type, newest indexed first.
func (s *Store) SearchCodeRoutes(query string, routeType RouteType, limit int) ([]CodeRoute, error) {
	sqlQuery := `
		SELECT id, file_path, route_type, name, line_number, signature, docstring, keywords, indexed_at
		FROM code_routes WHERE (name LIKE ? OR signature LIKE ? OR docstring LIKE ?)
	`
	like := "%" + query + "%"
	args := []any{like, like, like}
	if routeType != "" {
		sqlQuery += " AND route_type = ?"
		args = append(args, routeType)
	}
	sqlQuery += " ORDER BY indexed_at DESC"
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "search code routes")
	}
	defer rows.Close()
	return scanCodeRoutes(rows)
}

func scanCodeRoutes(rows *sql.Rows) ([]CodeRoute, error) {
	var routes []CodeRoute
	for rows.Next() {
		var r CodeRoute
		var signature, docstring sql.NullString
		var keywordsJSON string
		err := rows.Scan(&r.ID, &r.FilePath, &r.RouteType, &r.Name, &r.LineNumber,
			&signature, &docstring, &keywordsJSON, &r.IndexedAt)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan code route row")
		}
		r.Signature = signature.String
		r.Docstring = docstring.String
		_ = json.Unmarshal([]byte(keywordsJSON), &r.Keywords)
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// --- Discoveries ---

// RecordDiscovery appends a discovery, JSON-encoding details.
func (s *Store) RecordDiscovery(d *Discovery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.DiscoveredAt.IsZero() {
		d.DiscoveredAt = time.Now().UTC()
	}
	if d.Details == "" {
		d.Details = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO discoveries (id, agent, discovery_type, description, details, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.Agent, d.DiscoveryType, d.Description, d.Details, d.DiscoveredAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "record discovery")
	}
	return nil
}

// GetRecentDiscoveries returns the most recent discoveries, optionally
// filtered to a single agent.
func (s *Store) GetRecentDiscoveries(agent string, limit int) ([]Discovery, error) {
	query := `SELECT id, agent, discovery_type, description, details, discovered_at FROM discoveries WHERE 1=1`
	var args []any
	if agent != "" {
		query += " AND agent = ?"
		args = append(args, agent)
	}
	query += " ORDER BY discovered_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "query discoveries")
	}
	defer rows.Close()

	var discoveries []Discovery
	for rows.Next() {
		var d Discovery
		if err := rows.Scan(&d.ID, &d.Agent, &d.DiscoveryType, &d.Description, &d.Details, &d.DiscoveredAt); err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan discovery row")
		}
		discoveries = append(discoveries, d)
	}
	return discoveries, rows.Err()
}

// --- Agent status ---

// UpdateAgentStatus upserts the liveness row for an agent.
func (s *Store) UpdateAgentStatus(agent string, status AgentStatusValue, currentTask string) error {
	_, err := s.db.Exec(`
		INSERT INTO agent_status (agent_name, status, last_heartbeat, current_task)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent_name) DO UPDATE SET
			status = excluded.status, last_heartbeat = excluded.last_heartbeat, current_task = excluded.current_task
	`, agent, status, time.Now().UTC(), currentTask)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "update agent status")
	}
	return nil
}

// AgentHeartbeat refreshes only the last_heartbeat column for an agent
// that is already registered.
func (s *Store) AgentHeartbeat(agent string) error {
	res, err := s.db.Exec(`UPDATE agent_status SET last_heartbeat = ? WHERE agent_name = ?`,
		time.Now().UTC(), agent)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "agent heartbeat")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.UpdateAgentStatus(agent, AgentRunning, "")
	}
	return nil
}

// GetAgentStatus returns the current status row for an agent.
func (s *Store) GetAgentStatus(agent string) (*AgentStatus, error) {
	row := s.db.QueryRow(`
		SELECT agent_name, status, last_heartbeat, current_task FROM agent_status WHERE agent_name = ?
	`, agent)
	var a AgentStatus
	var currentTask sql.NullString
	var heartbeat sql.NullTime
	err := row.Scan(&a.AgentName, &a.Status, &heartbeat, &currentTask)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "no status for agent %s", agent)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "get agent status")
	}
	if heartbeat.Valid {
		a.LastHeartbeat = heartbeat.Time
	}
	a.CurrentTask = currentTask.String
	return &a, nil
}

// GetAllAgentStatus returns status rows for every known agent.
func (s *Store) GetAllAgentStatus() ([]AgentStatus, error) {
	rows, err := s.db.Query(`SELECT agent_name, status, last_heartbeat, current_task FROM agent_status ORDER BY agent_name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "query agent status")
	}
	defer rows.Close()

	var all []AgentStatus
	for rows.Next() {
		var a AgentStatus
		var currentTask sql.NullString
		var heartbeat sql.NullTime
		if err := rows.Scan(&a.AgentName, &a.Status, &heartbeat, &currentTask); err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan agent status row")
		}
		if heartbeat.Valid {
			a.LastHeartbeat = heartbeat.Time
		}
		a.CurrentTask = currentTask.String
		all = append(all, a)
	}
	return all, rows.Err()
}

// --- Config ---

// GetConfigValue reads a config value, returning "" if the key is unset.
func (s *Store) GetConfigValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindStoreUnavailable, err, "get config value")
	}
	return value, nil
}

// SetConfigValue upserts a config value.
func (s *Store) SetConfigValue(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "set config value")
	}
	return nil
}

// --- Audit log ---

// AddAuditEntry records one LLM call or tool invocation.
func (s *Store) AddAuditEntry(e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO agent_audit_log (id, agent, event_type, prompt_size, response_size, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Agent, e.EventType, e.PromptSize, e.ResponseSize, e.DurationMS, e.Error, e.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "add audit entry")
	}
	return nil
}

// GetRecentAuditEntries returns the most recent audit entries, optionally
// filtered to a single agent.
func (s *Store) GetRecentAuditEntries(agent string, limit int) ([]AuditEntry, error) {
	query := `SELECT id, agent, event_type, prompt_size, response_size, duration_ms, error, created_at FROM agent_audit_log WHERE 1=1`
	var args []any
	if agent != "" {
		query += " AND agent = ?"
		args = append(args, agent)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "query audit entries")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Agent, &e.EventType, &e.PromptSize, &e.ResponseSize, &e.DurationMS, &errMsg, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindCorruptState, err, "scan audit entry row")
		}
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
