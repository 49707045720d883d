// Package executor runs one agent against the external language model under
// its schema contract: validate input, build a bounded request, call with
// retry and backoff, parse and validate the structured output, and record
// the exchange. Failures never escape the Execute boundary; callers always
// receive a Result.
package executor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/contextmgr"
	"github.com/fyrsmithlabs/workflowd/internal/contract"
	"github.com/fyrsmithlabs/workflowd/internal/llm"
	"github.com/fyrsmithlabs/workflowd/internal/logging"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/workflowd/internal/executor"

// Request describes one agent invocation.
type Request struct {
	Agent   workflow.Agent `json:"agent"`
	Input   map[string]any `json:"input"`
	Timeout time.Duration  `json:"timeout,omitempty"`
	Retries int            `json:"retries"`

	// Workflow, when set, contributes the compacted context to the prompt.
	Workflow *workflow.Workflow `json:"-"`
}

// Result is the in-band outcome of an invocation. Execute never returns an
// error; failures carry a schema-shaped Output with success=false.
type Result struct {
	Agent    workflow.Agent `json:"agent"`
	Success  bool           `json:"success"`
	Output   map[string]any `json:"output"`
	Duration time.Duration  `json:"duration"`
	Attempts int            `json:"attempts"`
	Error    string         `json:"error,omitempty"`
}

// Config tunes retry behavior and defaults.
type Config struct {
	DefaultTimeout time.Duration
	DefaultRetries int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
}

// DefaultConfig returns the executor defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 120 * time.Second,
		DefaultRetries: 2,
		BackoffBase:    500 * time.Millisecond,
		BackoffMax:     15 * time.Second,
	}
}

// Executor drives agent invocations.
type Executor struct {
	cfg          Config
	client       llm.Client
	registry     *contract.Registry
	history      HistoryStore
	instructions InstructionSource
	contexts     *contextmgr.Manager
	logger       *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	execCounter  metric.Int64Counter
	execDuration metric.Float64Histogram
}

// New creates an executor. client and registry are required; history falls
// back to an in-memory store, instructions to the static fallback, and
// contexts may be nil to skip context enrichment.
func New(cfg Config, client llm.Client, registry *contract.Registry, history HistoryStore, instructions InstructionSource, contexts *contextmgr.Manager, logger *logging.Logger) (*Executor, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("contract registry is required")
	}
	if history == nil {
		history = NewMemoryHistoryStore()
	}
	if instructions == nil {
		instructions = StaticInstructions{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultConfig().BackoffMax
	}

	e := &Executor{
		cfg:          cfg,
		client:       client,
		registry:     registry,
		history:      history,
		instructions: instructions,
		contexts:     contexts,
		logger:       logger,
		tracer:       otel.Tracer(instrumentationName),
		meter:        otel.Meter(instrumentationName),
	}
	e.initMetrics()
	return e, nil
}

func (e *Executor) initMetrics() {
	var err error

	e.execCounter, err = e.meter.Int64Counter(
		"workflowd.executor.executions_total",
		metric.WithDescription("Total number of agent executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		e.logger.Zap().Warn("failed to create execution counter", zap.Error(err))
	}

	e.execDuration, err = e.meter.Float64Histogram(
		"workflowd.executor.execution_duration_seconds",
		metric.WithDescription("Agent execution duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		e.logger.Zap().Warn("failed to create duration histogram", zap.Error(err))
	}
}

// Execute runs one agent invocation to completion. Input validation fails
// fast without a network call or retry; transport and parse failures retry
// with exponential backoff until the budget is exhausted, then produce a
// typed failure output.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	ctx = logging.WithAgent(ctx, string(req.Agent))
	ctx, span := e.tracer.Start(ctx, "executor.execute")
	defer span.End()
	span.SetAttributes(attribute.String("agent", string(req.Agent)))

	res := e.execute(ctx, req)
	res.Duration = time.Since(start)

	outcome := "success"
	if !res.Success {
		outcome = "failure"
		span.SetStatus(codes.Error, res.Error)
	}
	if e.execCounter != nil {
		e.execCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("agent", string(req.Agent)), attribute.String("outcome", outcome)))
	}
	if e.execDuration != nil {
		e.execDuration.Record(ctx, res.Duration.Seconds(),
			metric.WithAttributes(attribute.String("agent", string(req.Agent))))
	}
	return res
}

func (e *Executor) execute(ctx context.Context, req Request) Result {
	if !req.Agent.Valid() {
		return Result{
			Agent:  req.Agent,
			Output: e.registry.FailureOutput(req.Agent, fmt.Sprintf("unknown agent type %q", req.Agent)),
			Error:  fmt.Sprintf("unknown agent type %q", req.Agent),
		}
	}

	input, err := e.registry.ValidateInput(req.Agent, req.Input)
	if err != nil {
		// Validation errors are terminal: no network call, no retry.
		e.logger.Warn(ctx, "input validation failed", zap.Error(err))
		return Result{
			Agent:  req.Agent,
			Output: e.registry.FailureOutput(req.Agent, err.Error()),
			Error:  err.Error(),
		}
	}

	system, err := e.instructions.Instructions(req.Agent)
	if err != nil {
		return Result{
			Agent:  req.Agent,
			Output: e.registry.FailureOutput(req.Agent, err.Error()),
			Error:  err.Error(),
		}
	}

	prompt := buildTaskPrompt(req.Agent, input)
	if e.contexts != nil && req.Workflow != nil {
		ac := e.contexts.ForAgent(ctx, req.Workflow, req.Agent)
		prompt = renderContext(ac) + "\n" + prompt
	}

	key := historyKeyFor(req.Agent, input)
	request := llm.Message{Role: llm.RoleUser, Content: prompt}
	messages := CompactMessages(append(e.history.Get(key), request))

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	retries := req.Retries
	if retries < 0 {
		retries = e.cfg.DefaultRetries
	}

	attempts := 0
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := e.backoff(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}
		attempts++

		output, err := e.attempt(ctx, req.Agent, system, messages, timeout)
		if err == nil {
			e.history.Append(key, request, llm.Message{Role: llm.RoleAssistant, Content: mustJSON(output)})
			success, _ := output["success"].(bool)
			return Result{Agent: req.Agent, Success: success, Output: output, Attempts: attempts}
		}

		lastErr = err
		if _, isValidation := contract.AsValidationError(err); isValidation {
			// A schema-violating response could succeed on a retry, but an
			// invalid input never recurs here; output validation failures
			// consume the retry budget like parse errors.
			e.logger.Warn(ctx, "output validation failed", zap.Error(err), zap.Int("attempt", attempts))
			continue
		}
		if !llm.IsRetryable(err) && !IsParseError(err) {
			break
		}
		e.logger.Warn(ctx, "attempt failed", zap.Error(err), zap.Int("attempt", attempts))
	}

	msg := "execution failed"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return Result{
		Agent:    req.Agent,
		Output:   e.registry.FailureOutput(req.Agent, msg),
		Attempts: attempts,
		Error:    msg,
	}
}

// attempt performs one external call with its own timeout. A timed-out
// attempt leaves no side effects; history is only appended by the caller on
// success.
func (e *Executor) attempt(ctx context.Context, agent workflow.Agent, system string, messages []llm.Message, timeout time.Duration) (map[string]any, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := e.client.Complete(callCtx, system, messages)
	if err != nil {
		return nil, err
	}

	payload, err := parseStructuredOutput(text)
	if err != nil {
		return nil, err
	}

	return e.registry.ValidateOutput(agent, payload)
}

// backoff sleeps for an exponentially growing, jittered interval capped at
// BackoffMax. The context cancels the wait.
func (e *Executor) backoff(ctx context.Context, attempt int) error {
	// Double iteratively rather than shifting by attempt-1: a retry budget
	// large enough to shift past 63 bits would wrap negative and bypass the
	// cap. Doubling stops as soon as the cap is reached.
	d := e.cfg.BackoffBase
	for i := 1; i < attempt && d < e.cfg.BackoffMax; i++ {
		d <<= 1
	}
	if d > e.cfg.BackoffMax || d <= 0 {
		d = e.cfg.BackoffMax
	}
	d += time.Duration(rand.Int63n(int64(d)/2 + 1))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExecuteParallel fans out independent invocations and returns results in
// input order regardless of completion order. Callers must not submit two
// requests for the same (agent, issue) key; history appends for the same
// key are not serialized here.
func (e *Executor) ExecuteParallel(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			results[i] = e.Execute(ctx, req)
		}(i, req)
	}
	wg.Wait()
	return results
}

func historyKeyFor(agent workflow.Agent, input map[string]any) HistoryKey {
	issue := 0
	switch n := input["issue_number"].(type) {
	case int:
		issue = n
	case int64:
		issue = int(n)
	case float64:
		issue = int(n)
	}
	return HistoryKey{Agent: agent, Issue: issue}
}
