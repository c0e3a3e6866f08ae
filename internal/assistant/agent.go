package assistant

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reinhart/mcpdemo/internal/logger"
)

// DefaultMaxRounds bounds the number of model calls in one run.
const DefaultMaxRounds = 25

// ToolSession is a connection to the tool-provider scoped to one run.
type ToolSession interface {
	ListTools(ctx context.Context) ([]ToolDefinition, error)
	// Call never fails; tool errors come back as text for the model to read.
	Call(ctx context.Context, name string, args map[string]any) string
	Close() error
}

// SessionOpener opens a fresh ToolSession for every run.
type SessionOpener interface {
	Open(ctx context.Context) (ToolSession, error)
}

// Options tune a single Agent.
type Options struct {
	// MaxRounds caps model calls per run. Zero means unbounded.
	MaxRounds int
	// ParallelTools executes same-batch tool calls concurrently.
	ParallelTools bool
}

// Agent manages the conversation flow between the user, the LLM, and the tools.
// It holds no per-conversation state and is safe to share between runs.
type Agent struct {
	provider LLMProvider
	sessions SessionOpener
	opts     Options
}

// NewAgent creates a new agent instance
func NewAgent(provider LLMProvider, sessions SessionOpener, opts Options) *Agent {
	return &Agent{
		provider: provider,
		sessions: sessions,
		opts:     opts,
	}
}

// Run processes one user message and streams every step as an Event. The
// sequence ends with either done or error and cannot be restarted. prior is
// the transcript of earlier runs; its system messages are replaced by one built
// from scenarioContext. Stopping iteration early aborts the run without a snapshot.
func (a *Agent) Run(ctx context.Context, userMessage, scenarioContext string, prior Transcript) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		r := &run{
			agent: a,
			yield: yield,
		}
		r.execute(ctx, userMessage, scenarioContext, prior)
	}
}

// run is the state of one orchestration run.
type run struct {
	agent      *Agent
	yield      func(Event) bool
	stopped    bool
	round      int
	transcript Transcript
}

func (r *run) emit(ev Event) bool {
	if r.stopped {
		return false
	}
	ev.Round = r.round
	if !r.yield(ev) {
		r.stopped = true
		logger.Debug("Event consumer stopped at %s", ev.Type)
		return false
	}
	return true
}

func (r *run) fail(span trace.Span, err error) {
	logger.Error("Agent run failed: %v", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.emit(Event{Type: EventError, Message: err.Error(), Err: err})
}

func (r *run) execute(ctx context.Context, userMessage, scenarioContext string, prior Transcript) {
	ctx, span := tracer.Start(ctx, "agent run")
	defer span.End()

	logger.Info("Processing user input: %s", userMessage)

	r.transcript = make(Transcript, 0, len(prior)+2)
	r.transcript = append(r.transcript, Message{Role: RoleSystem, Content: SystemPrompt(scenarioContext)})
	r.transcript = append(r.transcript, prior.WithoutSystem().Clone()...)
	r.transcript = append(r.transcript, Message{Role: RoleUser, Content: userMessage})

	session, err := r.agent.sessions.Open(ctx)
	if err != nil {
		r.fail(span, asSessionError("open", err))
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Closing tool session: %v", err)
			span.RecordError(asSessionError("close", err))
		}
	}()

	tools, err := session.ListTools(ctx)
	if err != nil {
		r.fail(span, asSessionError("list tools", err))
		return
	}
	span.SetAttributes(attribute.Int("agent.tools", len(tools)))
	if !r.emit(Event{Type: EventInfo, Message: fmt.Sprintf("Connected to MCP (%d tools)", len(tools))}) {
		return
	}

	maxRounds := r.agent.opts.MaxRounds
	for {
		r.round++
		if maxRounds > 0 && r.round > maxRounds {
			r.fail(span, fmt.Errorf("%w (%d)", ErrMaxRoundsExceeded, maxRounds))
			return
		}
		if err := ctx.Err(); err != nil {
			r.fail(span, fmt.Errorf("run cancelled: %w", err))
			return
		}

		logger.Debug("Agent Loop Turn: %d", r.round)
		if !r.emit(Event{Type: EventLLMStart, Message: fmt.Sprintf("Thinking (turn %d)...", r.round)}) {
			return
		}

		resp, err := r.generate(ctx, tools)
		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("run cancelled: %w", err)
			}
			r.fail(span, err)
			return
		}
		logger.Debug("Received response from LLM (Content len: %d, ToolCalls: %d)", len(resp.Content), len(resp.ToolCalls))
		r.transcript = append(r.transcript, resp)

		// No tool calls is the only way a run finishes successfully.
		if len(resp.ToolCalls) == 0 {
			logger.Info("Final response received after %d rounds", r.round)
			span.SetAttributes(attribute.Int("agent.rounds", r.round))
			if !r.emit(Event{Type: EventFinalAnswer, Message: resp.Content}) {
				return
			}
			if !r.emit(Event{Type: EventConversationSnapshot, Transcript: r.transcript.Clone()}) {
				return
			}
			r.emit(Event{Type: EventDone})
			return
		}

		if resp.Content != "" {
			if !r.emit(Event{Type: EventLLMStreamChunk, Message: resp.Content}) {
				return
			}
		}

		var ok bool
		if r.agent.opts.ParallelTools && len(resp.ToolCalls) > 1 {
			ok = r.executeParallel(ctx, session, resp.ToolCalls)
		} else {
			ok = r.executeSequential(ctx, session, resp.ToolCalls)
		}
		if !ok {
			return
		}
	}
}

func (r *run) generate(ctx context.Context, tools []ToolDefinition) (Message, error) {
	ctx, span := tracer.Start(ctx, "generate response", trace.WithAttributes(attribute.Int("agent.round", r.round)))
	defer span.End()

	resp, err := r.agent.provider.Generate(ctx, r.transcript.Clone(), tools)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Message{}, err
	}
	if resp.Role == "" {
		resp.Role = RoleAssistant
	}
	if resp.Role != RoleAssistant {
		err := &GenerationError{Provider: "agent", Err: &UnsupportedRoleError{Role: resp.Role}}
		span.RecordError(err)
		return Message{}, err
	}

	names := make([]string, 0, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		// results are correlated by id, so every call needs one
		if tc.ID == "" {
			resp.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
		names = append(names, tc.Name)
	}
	span.SetAttributes(attribute.StringSlice("assistant_turn.tool_calls", names))
	return CloneMessage(resp), nil
}

func (r *run) executeSequential(ctx context.Context, session ToolSession, calls []ToolCall) bool {
	for _, tc := range calls {
		if !r.emitRequested(tc) {
			return false
		}
		result := r.callTool(ctx, session, tc)
		r.transcript = append(r.transcript, result)
		if !r.emitResult(tc, result) {
			return false
		}
	}
	return true
}

// executeParallel forks every call of the batch, joins them all, then appends
// results in request order.
func (r *run) executeParallel(ctx context.Context, session ToolSession, calls []ToolCall) bool {
	for _, tc := range calls {
		if !r.emitRequested(tc) {
			return false
		}
	}

	results := make([]Message, len(calls))
	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(i int, tc ToolCall) {
			defer wg.Done()
			results[i] = r.callTool(ctx, session, tc)
		}(i, tc)
	}
	wg.Wait()

	r.transcript = append(r.transcript, results...)
	for i, tc := range calls {
		if !r.emitResult(tc, results[i]) {
			return false
		}
	}
	return true
}

func (r *run) emitRequested(tc ToolCall) bool {
	logger.Info("Tool Call Request: %s", tc.Name)
	return r.emit(Event{
		Type:       EventToolCallRequested,
		Message:    fmt.Sprintf("Calling %s", tc.Name),
		ToolName:   tc.Name,
		ToolCallID: tc.ID,
		Arguments:  cloneArguments(tc.Arguments),
	})
}

func (r *run) emitResult(tc ToolCall, result Message) bool {
	return r.emit(Event{
		Type:       EventToolResult,
		Message:    result.Content,
		ToolName:   tc.Name,
		ToolCallID: tc.ID,
	})
}

func (r *run) callTool(ctx context.Context, session ToolSession, tc ToolCall) Message {
	ctx, span := tracer.Start(ctx, "call tool", trace.WithAttributes(attribute.String("tool.name", tc.Name)))
	defer span.End()

	output := session.Call(ctx, tc.Name, cloneArguments(tc.Arguments))
	logger.Debug("Tool Output (%s): %s", tc.Name, output)

	return Message{
		Role:       RoleTool,
		ToolCallID: tc.ID,
		Name:       tc.Name,
		Content:    output,
	}
}

func asSessionError(op string, err error) error {
	if _, ok := err.(*SessionError); ok {
		return err
	}
	return &SessionError{Op: op, Err: err}
}
