// Package librarian implements the Librarian peer agent (spec.md §4.6):
// startup exploration of configured root directories, building the code
// routing index, and a service loop handling search/index/knowledge/status
// requests.
package librarian

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/madhatter5501/aegis/internal/agentrt"
	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/config"
	"github.com/madhatter5501/aegis/internal/journal"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/router"
	"github.com/madhatter5501/aegis/internal/store"
)

// Name is the agent_name used in the bus and state store.
const Name = "librarian"

// Librarian is the knowledge/discovery peer agent.
type Librarian struct {
	bus       *bus.Bus
	store     *store.Store
	journal   *journal.Writer
	retriever *journal.Retriever
	router    *router.Router
	llm       llm.Provider
	logger    *slog.Logger
	roots     *config.RootsConfig
	persona   config.AgentPersona

	explorationComplete bool
}

// New wires a Librarian from its collaborators.
func New(b *bus.Bus, st *store.Store, jw *journal.Writer, llmProvider llm.Provider, roots *config.RootsConfig, persona config.AgentPersona, logger *slog.Logger) *Librarian {
	return &Librarian{
		bus:       b,
		store:     st,
		journal:   jw,
		retriever: journal.NewRetriever(jw.Index()),
		router:    router.New(st),
		llm:       llmProvider,
		roots:     roots,
		persona:   persona,
		logger:    logger,
	}
}

// Loop builds the shared agentrt.Loop for this agent, wiring the service
// dispatch table and maintenance cadence.
func (l *Librarian) Loop() *agentrt.Loop {
	return &agentrt.Loop{
		Name:             Name,
		Bus:              l.bus,
		Store:            l.store,
		Logger:           l.logger,
		MaintenanceEvery: 30,
		Dispatch: map[bus.Type]agentrt.Handler{
			bus.TypeSearchRequest:      l.handleSearchRequest,
			bus.TypeIndexRequest:       l.handleIndexRequest,
			bus.TypeKnowledgeRequest:   l.handleKnowledgeRequest,
			bus.TypeStatusRequest:      l.handleStatusRequest,
			bus.TypeMeetingPrepRequest: l.handleMeetingPrepRequest,
		},
		Maintenance: l.maintenance,
	}
}

// Onboard runs the startup choreography: explore roots, build the routing
// system, then mark exploration complete. Each phase updates agent status
// and broadcasts a discovery, per spec.md §4.6.
func (l *Librarian) Onboard(ctx context.Context) error {
	if err := l.store.UpdateAgentStatus(Name, store.AgentExploring, "exploring roots"); err != nil {
		l.logger.Error("set exploring status failed", "error", err)
	}
	filesIndexed, err := l.exploreRoots()
	if err != nil {
		return err
	}
	l.broadcastDiscovery("exploration_complete", map[string]any{"files_indexed": filesIndexed})

	if err := l.store.UpdateAgentStatus(Name, store.AgentRouting, "building routing system"); err != nil {
		l.logger.Error("set routing status failed", "error", err)
	}
	result, err := l.router.BuildRoutingSystem()
	if err != nil {
		return err
	}
	l.broadcastDiscovery("routing_built", map[string]any{
		"files_scanned": result.FilesScanned,
		"routes_found":  result.RoutesFound,
	})

	l.explorationComplete = true
	return l.store.UpdateAgentStatus(Name, store.AgentRunning, "")
}

func (l *Librarian) broadcastDiscovery(kind string, details map[string]any) {
	detailsJSON, _ := json.Marshal(details)
	if err := l.store.RecordDiscovery(&store.Discovery{
		Agent:         Name,
		DiscoveryType: kind,
		Description:   kind,
		Details:       string(detailsJSON),
		DiscoveredAt:  time.Now().UTC(),
	}); err != nil {
		l.logger.Error("record discovery failed", "error", err)
	}
	if _, err := l.bus.ShareDiscovery(Name, "director", kind, details, bus.PriorityLow); err != nil {
		l.logger.Error("broadcast discovery failed", "error", err)
	}
}

// exploreRoots walks the configured roots up to max_depth, skipping
// skip_dirs, indexing files whose extension is in the closed set, up to
// per_extension_cap files per extension.
func (l *Librarian) exploreRoots() (int, error) {
	skip := make(map[string]bool, len(l.roots.SkipDirs))
	for _, d := range l.roots.SkipDirs {
		skip[d] = true
	}
	wanted := make(map[string]bool, len(l.roots.Extensions))
	for _, e := range l.roots.Extensions {
		wanted[e] = true
	}
	counts := make(map[string]int)

	indexed := 0
	for _, root := range l.roots.Roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if path != root && skip[info.Name()] {
					return filepath.SkipDir
				}
				if depthOf(root, path) > l.roots.MaxDepth {
					return filepath.SkipDir
				}
				return nil
			}
			ext := router.ExtensionOf(path)
			if !wanted[ext] {
				return nil
			}
			if counts[ext] >= l.roots.PerExtensionCap {
				return nil
			}
			counts[ext]++
			if err := l.store.AddFileToIndex(&store.FileIndexEntry{
				Path:       path,
				Extension:  ext,
				Size:       info.Size(),
				ModifiedAt: info.ModTime(),
			}); err != nil {
				return err
			}
			indexed++
			return nil
		})
		if err != nil {
			return indexed, err
		}
	}
	return indexed, nil
}

func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	if rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

// maintenance re-verifies the journal index against its files on disk and
// raises an alert to the Director when entries have gone stale, mirroring
// the upstream periodic index-repair pass.
func (l *Librarian) maintenance(ctx context.Context) error {
	removed, err := l.journal.Reindex()
	if err != nil {
		l.logger.Error("journal reindex failed", "error", err)
		alertBody, _ := json.Marshal(map[string]any{
			"level": string(store.AlertWarning), "message": "journal reindex failed: " + err.Error(),
		})
		if _, sendErr := l.bus.Send(Name, "director", bus.TypeAlert, "alert", string(alertBody), bus.PriorityHigh, nil); sendErr != nil {
			l.logger.Error("send alert failed", "error", sendErr)
		}
		return err
	}
	if removed > 0 {
		l.logger.Warn("removed stale journal index entries", "count", removed)
		if err := l.store.CreateAlert(&store.Alert{
			Level:     store.AlertInfo,
			Message:   fmt.Sprintf("removed %d stale journal index entries", removed),
			Source:    Name,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			l.logger.Error("record alert failed", "error", err)
		}
	}
	return nil
}

func (l *Librarian) replyErr(msg bus.Message, typ bus.Type, stage string, err error) error {
	payload := map[string]any{"success": false, "error": err.Error()}
	if _, sendErr := l.bus.SendResult(Name, msg.From, typ, payload, bus.PriorityMedium, msg.ID); sendErr != nil {
		l.logger.Error("send result failed", "stage", stage, "error", sendErr)
	}
	return err
}

