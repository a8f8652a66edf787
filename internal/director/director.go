// Package director implements the Director peer agent (spec.md §4.6): the
// user-facing agent that answers questions by classifying intent,
// optionally delegating to a peer over the bus, and synthesising a
// response from LLM plus project context.
package director

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/madhatter5501/aegis/internal/agentrt"
	"github.com/madhatter5501/aegis/internal/bus"
	"github.com/madhatter5501/aegis/internal/calendar"
	"github.com/madhatter5501/aegis/internal/config"
	"github.com/madhatter5501/aegis/internal/journal"
	"github.com/madhatter5501/aegis/internal/llm"
	"github.com/madhatter5501/aegis/internal/store"
)

// Name is the agent_name used in the bus and state store.
const Name = "director"

// defaultPeerTimeout is the bound on a peer-delegated wait_for_response,
// per spec.md §4.6's "default 15-30s".
const defaultPeerTimeout = 20 * time.Second

// Director is the user-facing peer agent.
type Director struct {
	bus       *bus.Bus
	store     *store.Store
	retriever *journal.Retriever
	llm       *llm.Factory
	calendar  calendar.Calendar
	logger    *slog.Logger
	persona   config.AgentPersona

	mu      sync.Mutex
	pending map[string]chan bus.Message

	peerTimeout time.Duration
}

// New wires a Director from its collaborators.
func New(b *bus.Bus, st *store.Store, jw *journal.Writer, factory *llm.Factory, cal calendar.Calendar, persona config.AgentPersona, logger *slog.Logger) *Director {
	return &Director{
		bus:         b,
		store:       st,
		retriever:   journal.NewRetriever(jw.Index()),
		llm:         factory,
		calendar:    cal,
		persona:     persona,
		logger:      logger,
		pending:     make(map[string]chan bus.Message),
		peerTimeout: defaultPeerTimeout,
	}
}

// Loop builds the shared agentrt.Loop for this agent.
func (d *Director) Loop() *agentrt.Loop {
	return &agentrt.Loop{
		Name:             Name,
		Bus:              d.bus,
		Store:            d.store,
		Logger:           d.logger,
		MaintenanceEvery: 60,
		Dispatch: map[bus.Type]agentrt.Handler{
			bus.TypeSearchResult:     d.handlePeerResult,
			bus.TypeExecuteResult:    d.handlePeerResult,
			bus.TypeFileComplete:     d.handlePeerResult,
			bus.TypeKnowledgeResult:  d.handlePeerResult,
			bus.TypeIndexComplete:    d.handlePeerResult,
			bus.TypeClaudeCodeResult: d.handlePeerResult,
			bus.TypeDiscovery:        d.handleDiscovery,
			bus.TypeBlocker:          d.handleBlocker,
			bus.TypeReviewRequest:    d.handleReviewRequest,
		},
		Maintenance: d.maintenance,
	}
}

// awaitReply registers requestID for correlation and blocks until the
// agent loop's dispatch delivers a matching reply, ctx is cancelled, or
// the peer timeout elapses — whichever comes first. Returns nil, nil on
// timeout, matching spec.md §8 scenario F's "returns null".
func (d *Director) awaitReply(ctx context.Context, requestID string) (*bus.Message, error) {
	ch := make(chan bus.Message, 1)
	d.mu.Lock()
	d.pending[requestID] = ch
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.pending, requestID)
		d.mu.Unlock()
	}()

	select {
	case msg := <-ch:
		return &msg, nil
	case <-time.After(d.peerTimeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handlePeerResult satisfies an outstanding awaitReply call keyed by
// reply_to, or simply acknowledges the message when nothing is waiting
// (e.g. it arrived after its requester already timed out).
func (d *Director) handlePeerResult(ctx context.Context, msg bus.Message) error {
	defer func() {
		if err := d.bus.MarkRead(msg.ID); err != nil {
			d.logger.Error("mark read failed", "error", err)
		}
	}()
	if msg.ReplyTo == nil {
		return nil
	}
	d.mu.Lock()
	ch, ok := d.pending[*msg.ReplyTo]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case ch <- msg:
	default:
	}
	return nil
}

func (d *Director) handleDiscovery(ctx context.Context, msg bus.Message) error {
	if err := d.store.RecordDiscovery(&store.Discovery{
		Agent:         msg.From,
		DiscoveryType: "peer_discovery",
		Description:   msg.Subject,
		Details:       msg.Body,
		DiscoveredAt:  time.Now().UTC(),
	}); err != nil {
		d.logger.Error("record discovery failed", "error", err)
	}
	return d.bus.MarkRead(msg.ID)
}

func (d *Director) handleBlocker(ctx context.Context, msg bus.Message) error {
	if err := d.store.CreateAlert(&store.Alert{
		Level:     store.AlertWarning,
		Message:   fmt.Sprintf("%s reported a blocker: %s", msg.From, msg.Body),
		Source:    msg.From,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		d.logger.Error("create alert failed", "error", err)
	}
	return d.bus.MarkRead(msg.ID)
}

// handleReviewRequest handles the legacy review_request message by
// reviewing the named task and replying with the review text.
func (d *Director) handleReviewRequest(ctx context.Context, msg bus.Message) error {
	var body struct {
		TaskID string `json:"task_id"`
	}
	if err := decodeJSON(msg.Body, &body); err != nil {
		return err
	}
	review, err := d.ReviewTask(ctx, body.TaskID)
	if err != nil {
		_, sendErr := d.bus.SendResult(Name, msg.From, bus.TypeReviewRequest,
			map[string]any{"success": false, "error": err.Error()}, bus.PriorityMedium, msg.ID)
		if sendErr != nil {
			d.logger.Error("send review error failed", "error", sendErr)
		}
		return d.bus.MarkRead(msg.ID)
	}
	if _, err := d.bus.SendResult(Name, msg.From, bus.TypeReviewRequest,
		map[string]any{"success": true, "review": review}, bus.PriorityMedium, msg.ID); err != nil {
		d.logger.Error("send review result failed", "error", err)
	}
	return d.bus.MarkRead(msg.ID)
}

func (d *Director) maintenance(ctx context.Context) error {
	return d.checkUpcomingMeetings(ctx)
}
