package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/reevehome/reeve/internal/command"
	"github.com/reevehome/reeve/internal/entity"
	"github.com/reevehome/reeve/internal/prompts"
	"github.com/reevehome/reeve/internal/runtime"
	"github.com/reevehome/reeve/internal/smartthings"
)

// sourceName tags every response envelope with the device cloud that
// served it.
const sourceName = "smartthings"

// controlKeywords make CanHandle cheap. Presence of any one keyword is
// enough to route the message here; the intent gate inside the pipeline
// makes the real decision.
var controlKeywords = []string{
	"turn", "switch", "dim", "brighten", "set",
	"lock", "unlock", "open", "close",
	"brightness", "temperature", "color",
}

// ControlAction routes device-control utterances through the pipeline.
// It always produces a user-facing envelope for messages it engages
// with: confirmations on success, an apology naming the reason on
// failure.
type ControlAction struct {
	pipeline *Pipeline
}

// NewControlAction creates the control action.
func NewControlAction(p *Pipeline) *ControlAction {
	return &ControlAction{pipeline: p}
}

// Name identifies the action in envelopes and logs.
func (a *ControlAction) Name() string {
	return "device_control"
}

// CanHandle reports whether the text looks like a device command.
func (a *ControlAction) CanHandle(text string) bool {
	t := strings.ToLower(text)
	for _, kw := range controlKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Handle runs the pipeline. A nil Response with nil error means the
// gate ruled the message out; everything else gets an envelope, failed
// commands included.
func (a *ControlAction) Handle(ctx context.Context, text, userID string) (*runtime.Response, error) {
	result, err := a.pipeline.Run(ctx, text, userID)
	if err != nil {
		return &runtime.Response{
			Text:   prompts.Failure(failureReason(err)),
			Action: a.Name(),
			Source: sourceName,
		}, nil
	}
	if result == nil {
		return nil, nil
	}
	return &runtime.Response{
		Text:   result.Message,
		Action: a.Name(),
		Source: sourceName,
	}, nil
}

// failureReason turns a pipeline error into text fit for the apology
// template. Known failures get plain words; everything else surfaces
// verbatim so the cause is never hidden.
func failureReason(err error) string {
	var ambiguous *entity.AmbiguousTargetError
	switch {
	case errors.As(err, &ambiguous):
		return ambiguous.Error()
	case errors.Is(err, command.ErrNoCommand):
		return "I didn't recognize a device command in that"
	case errors.Is(err, command.ErrBadArgument):
		return err.Error()
	case errors.Is(err, entity.ErrNoTarget):
		return err.Error()
	case smartthings.IsTimeout(err):
		return "the device hub took too long to answer"
	default:
		return err.Error()
	}
}

// discoveryKeywords route inventory requests.
var discoveryKeywords = []string{
	"discover", "scan", "list devices", "show devices", "what devices",
}

// DiscoveryAction re-runs device discovery on demand and renders the
// inventory.
type DiscoveryAction struct {
	registry *entity.Registry
}

// NewDiscoveryAction creates the discovery action.
func NewDiscoveryAction(r *entity.Registry) *DiscoveryAction {
	return &DiscoveryAction{registry: r}
}

// Name identifies the action in envelopes and logs.
func (a *DiscoveryAction) Name() string {
	return "device_discovery"
}

// CanHandle reports whether the text asks for the device inventory.
func (a *DiscoveryAction) CanHandle(text string) bool {
	t := strings.ToLower(text)
	for _, kw := range discoveryKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Handle re-discovers and summarizes the registry. Discovery failure
// still answers the user; the registry keeps its previous contents.
func (a *DiscoveryAction) Handle(ctx context.Context, _, _ string) (*runtime.Response, error) {
	if err := a.registry.Discover(ctx); err != nil {
		return &runtime.Response{
			Text:   prompts.Failure("device discovery failed"),
			Action: a.Name(),
			Source: sourceName,
		}, nil
	}
	return &runtime.Response{
		Text:   a.registry.Summary(),
		Action: a.Name(),
		Source: sourceName,
	}, nil
}
