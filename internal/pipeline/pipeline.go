// Package pipeline runs one utterance through the command state machine:
// gate, parse, map, resolve, execute, refresh, synthesize. A pass either
// completes or fails; no stage is ever retried. Concurrent passes are
// independent: the registry and cache they share are internally locked,
// and last write wins.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reevehome/reeve/internal/command"
	"github.com/reevehome/reeve/internal/entity"
	"github.com/reevehome/reeve/internal/events"
	"github.com/reevehome/reeve/internal/memory"
	"github.com/reevehome/reeve/internal/prompts"
	"github.com/reevehome/reeve/internal/runtime"
	"github.com/reevehome/reeve/internal/smartthings"
	"github.com/reevehome/reeve/internal/statecache"
)

// Stage names a pipeline state for logging and failure events.
type Stage string

const (
	StageGating       Stage = "gating"
	StageParsing      Stage = "parsing"
	StageMapping      Stage = "mapping"
	StageResolving    Stage = "resolving"
	StageExecuting    Stage = "executing"
	StageSynthesizing Stage = "synthesizing"
)

// ExecError wraps a gateway execution failure. The original transport
// error is preserved for propagation, never swallowed.
type ExecError struct {
	Cause error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("command execution failed: %v", e.Cause)
}

func (e *ExecError) Unwrap() error {
	return e.Cause
}

// Result is what a completed pass returns. A nil Result with a nil
// error means the intent gate decided the message was not for us.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Gateway is the device cloud surface the pipeline needs: execute one
// command, then re-read that device's state for the refresh step.
type Gateway interface {
	ExecuteCommand(ctx context.Context, deviceID string, cmd smartthings.Command) error
	GetDeviceStatus(ctx context.Context, deviceID string) (*smartthings.DeviceStatus, error)
}

// Config wires the pipeline's collaborators. Everything is injected;
// the pipeline owns no connections of its own.
type Config struct {
	// Gate decides whether an utterance is addressed to the agent.
	Gate runtime.IntentOracle

	// Completer turns execution results into user-facing confirmations.
	Completer runtime.Completer

	// Registry is the device directory used for target resolution and
	// the post-command state summary.
	Registry *entity.Registry

	// Gateway executes device commands.
	Gateway Gateway

	// Cache holds the textual state snapshot the gate sees, and
	// receives the post-command state update.
	Cache *statecache.Store

	// Memory, when non-nil, receives the utterance and confirmation
	// after a successful pass. Writes are fire-and-forget.
	Memory *memory.Store

	// Bus receives per-pass outcome events. Optional.
	Bus *events.Bus

	// Logger for structured logging.
	Logger *slog.Logger

	// CallTimeout bounds each external call (oracle, gateway). Zero or
	// negative selects 30 seconds. A hung collaborator fails that pass
	// instead of blocking it forever.
	CallTimeout time.Duration

	// AgentID and RoomID identify memory records written by this
	// pipeline.
	AgentID string
	RoomID  string
}

// Pipeline is the command orchestrator.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Pipeline{cfg: cfg}
}

// Run takes an utterance through every stage. It returns a nil Result
// and nil error when the gate rules the message out; otherwise either a
// completed Result or the error of the stage that failed, cause intact.
func (p *Pipeline) Run(ctx context.Context, text, userID string) (*Result, error) {
	start := time.Now()

	// Gating. The oracle sees the cached state snapshot, not a live
	// read; staleness here is acceptable since the gate only decides
	// whether to engage.
	decision, err := p.gate(ctx, text)
	if err != nil {
		return nil, p.fail(StageGating, text, err)
	}
	if decision != runtime.Respond {
		p.cfg.Logger.Info("gate declined message", "decision", decision.String())
		p.cfg.Bus.Publish(events.Event{
			Timestamp: time.Now(),
			Source:    events.SourcePipeline,
			Kind:      events.KindGateIgnored,
			Data:      map[string]any{"decision": decision.String()},
		})
		return nil, nil
	}

	// Parsing.
	parsed, err := command.Parse(text)
	if err != nil {
		return nil, p.fail(StageParsing, text, err)
	}

	// Mapping.
	devCmd, err := command.MapCommand(parsed.Name, parsed.Value)
	if err != nil {
		return nil, p.fail(StageMapping, text, err)
	}

	// Resolving. The mapper never picks a device; the resolver binds
	// the utterance to exactly one target or fails.
	target, err := entity.Resolve(text, devCmd.Capability, p.cfg.Registry.List())
	if err != nil {
		return nil, p.fail(StageResolving, text, err)
	}

	// Executing.
	if err := p.execute(ctx, target.ID, devCmd); err != nil {
		return nil, p.fail(StageExecuting, text, &ExecError{Cause: err})
	}

	// Refresh the executed device's state. Best-effort: the command
	// already succeeded, a failed read just leaves the stores stale
	// until the next poll.
	p.refresh(ctx, target)

	// Synthesizing.
	execResult := fmt.Sprintf("%s/%s on %s: accepted", devCmd.Capability, devCmd.Command, target.Name)
	confirmation := p.synthesize(ctx, text, execResult)

	result := &Result{
		Success: true,
		Message: confirmation,
		Data: map[string]any{
			"device_id":  target.ID,
			"device":     target.Name,
			"capability": devCmd.Capability,
			"command":    devCmd.Command,
		},
	}

	p.cfg.Logger.Info("command completed",
		"device", target.Name,
		"capability", devCmd.Capability,
		"command", devCmd.Command,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	p.cfg.Bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourcePipeline,
		Kind:      events.KindCommandExecuted,
		Data: map[string]any{
			"device":     target.Name,
			"capability": devCmd.Capability,
			"command":    devCmd.Command,
			"elapsed_ms": time.Since(start).Milliseconds(),
		},
	})

	p.remember(text, userID, confirmation)

	return result, nil
}

// gate asks the intent oracle for a verdict under a bounded timeout.
func (p *Pipeline) gate(ctx context.Context, text string) (runtime.Decision, error) {
	gctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.cfg.Gate.ShouldRespond(gctx, p.cfg.Cache.Snapshot(), text)
}

// execute sends the device command under a bounded timeout.
func (p *Pipeline) execute(ctx context.Context, deviceID string, cmd smartthings.Command) error {
	ectx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.cfg.Gateway.ExecuteCommand(ectx, deviceID, cmd)
}

// refresh re-reads the device's state and pushes it into both stores.
func (p *Pipeline) refresh(ctx context.Context, target entity.Entity) {
	rctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	status, err := p.cfg.Gateway.GetDeviceStatus(rctx, target.ID)
	if err != nil {
		p.cfg.Logger.Warn("post-command state refresh failed",
			"device", target.Name,
			"error", err,
		)
		return
	}
	state := status.Flatten()
	p.cfg.Registry.UpdateState(target.ID, state)
	p.cfg.Cache.Update(target.ID, target.Name, state)
}

// synthesize asks the completion oracle for the confirmation sentence.
// When the oracle fails or returns nothing, the mechanical result text
// stands in: the command already ran, and the reply must say so.
func (p *Pipeline) synthesize(ctx context.Context, text, execResult string) string {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	reply, err := p.cfg.Completer.Complete(sctx, prompts.Confirmation(text, execResult, p.stateSummary()))
	if err != nil {
		p.cfg.Logger.Warn("confirmation synthesis failed", "error", err)
		return "Done: " + execResult
	}
	if strings.TrimSpace(reply) == "" {
		return "Done: " + execResult
	}
	return reply
}

// stateSummary concatenates every registry entity as a "name: state"
// line for the confirmation prompt.
func (p *Pipeline) stateSummary() string {
	entities := p.cfg.Registry.List()
	lines := make([]string, 0, len(entities))
	for _, e := range entities {
		lines = append(lines, e.Name+": "+e.StateString())
	}
	return strings.Join(lines, "\n")
}

// fail logs and publishes a stage failure, then hands the original
// error back for propagation.
func (p *Pipeline) fail(stage Stage, text string, err error) error {
	timeout := smartthings.IsTimeout(err)
	p.cfg.Logger.Warn("pipeline stage failed",
		"stage", string(stage),
		"text", text,
		"error", err,
		"timeout", timeout,
	)
	p.cfg.Bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourcePipeline,
		Kind:      events.KindCommandFailed,
		Data: map[string]any{
			"stage":   string(stage),
			"error":   err.Error(),
			"timeout": timeout,
		},
	})
	return err
}

// remember appends the utterance and its confirmation to the memory
// store. Fire-and-forget: a slow disk never delays the reply, and
// failures only warn.
func (p *Pipeline) remember(text, userID, confirmation string) {
	if p.cfg.Memory == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		records := []memory.Record{
			{
				UserID:  userID,
				AgentID: p.cfg.AgentID,
				RoomID:  p.cfg.RoomID,
				Content: memory.Content{Text: text, Source: "user"},
			},
			{
				UserID:  userID,
				AgentID: p.cfg.AgentID,
				RoomID:  p.cfg.RoomID,
				Content: memory.Content{Text: confirmation, Source: "smartthings"},
			},
		}
		for _, rec := range records {
			if err := p.cfg.Memory.CreateMemory(ctx, rec); err != nil {
				p.cfg.Logger.Warn("memory append failed", "error", err)
			}
		}
	}()
}
