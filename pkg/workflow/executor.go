package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/log"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrCycle is returned when a walk reaches a node that is already on its own path.
	ErrCycle = errors.New("workflow graph contains a cycle")

	// ErrNoRoots is returned for graphs where every node has an incoming edge.
	ErrNoRoots = errors.New("workflow has no root nodes")
)

// Dispatcher performs the side effects of action and notification nodes.
type Dispatcher interface {
	ExecuteAction(ctx context.Context, req *NodeRequest) (*NodeOutcome, error)
	ExecuteNotification(ctx context.Context, req *NodeRequest) (*NodeOutcome, error)
}

// NodeRequest is the input of one action or notification node.
type NodeRequest struct {
	Node   *models.Node
	UserID string

	// TriggerData is the payload of the first trigger recorded in Results, if any.
	TriggerData map[string]any
	Results     *models.Results
}

// NodeOutcome is the recorded data of a completed node.
type NodeOutcome struct {
	Data map[string]any

	// Variables are stored as separate results entries after the node's own entry.
	Variables []Variable
}

// Variable is a named value stored in the results next to node entries.
type Variable struct {
	Name  string
	Value any
}

// ActionExecutionError is a node handler failure. Message is recorded as the node's message.
type ActionExecutionError struct {
	NodeID  string
	Message string
	Err     error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ActionExecutionError) Unwrap() error {
	return e.Err
}

// NewActionError wraps err with the message recorded for the failed node.
func NewActionError(message string, err error) *ActionExecutionError {
	return &ActionExecutionError{Message: message, Err: err}
}

// TraversalPolicy decides what happens when a walk reaches a node it already executed
// through another path.
type TraversalPolicy int

const (
	// RevisitEveryPath executes a shared downstream node once per incoming path.
	RevisitEveryPath TraversalPolicy = iota

	// VisitOnce executes each node at most once per walk.
	VisitOnce
)

// Executor walks workflow graphs depth-first from their root nodes.
type Executor struct {
	dispatcher Dispatcher
	ai         *AIConditionEvaluator
	tracer     trace.Tracer
	logger     *slog.Logger
	traversal  TraversalPolicy
	now        func() time.Time
}

type ExecutorOption func(*Executor)

func WithTraversalPolicy(policy TraversalPolicy) ExecutorOption {
	return func(e *Executor) {
		e.traversal = policy
	}
}

func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.now = now
	}
}

func NewExecutor(dispatcher Dispatcher, aiEvaluator *AIConditionEvaluator, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if dispatcher == nil {
		dispatcher = NoopDispatcher{}
	}

	e := &Executor{
		dispatcher: dispatcher,
		ai:         aiEvaluator,
		tracer:     otelhelper.Tracer("flowforge/workflow"),
		logger:     logger.With("module", "workflow_executor"),
		traversal:  RevisitEveryPath,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs every root of the graph in declaration order. Node failures are recorded in the
// results; only ErrNoTriggerData, ErrCycle and context cancellation stop the walk, in which case the
// results gathered so far are returned with the error.
func (e *Executor) Execute(ctx context.Context, graph *models.Graph, userID string, triggerData map[string]any) (*models.Results, error) {
	results := models.NewResults()

	roots := graph.Roots()
	if len(roots) == 0 {
		return results, ErrNoRoots
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.UserIDKey, userID),
		attribute.Int("flowforge.roots", len(roots)),
	)
	defer span.End()

	w := &walk{
		executor: e,
		graph:    graph,
		results:  results,
		userID:   userID,
		onPath:   map[string]bool{},
		visited:  map[string]bool{},
	}

	for _, root := range roots {
		if err := w.visit(ctx, root, triggerData); err != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, root.ID))

			return results, err
		}
	}

	return results, nil
}

// walk is the state of one graph traversal.
type walk struct {
	executor *Executor
	graph    *models.Graph
	results  *models.Results
	userID   string

	onPath  map[string]bool
	visited map[string]bool
}

// shouldVisit applies the traversal policy to a node reached again through another path.
func (w *walk) shouldVisit(nodeID string) bool {
	if w.executor.traversal == VisitOnce && w.visited[nodeID] {
		return false
	}

	w.visited[nodeID] = true

	return true
}

func (w *walk) visit(ctx context.Context, node *models.Node, triggerData map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.onPath[node.ID] {
		return fmt.Errorf("%w: node %s is reachable from itself", ErrCycle, node.ID)
	}

	if !w.shouldVisit(node.ID) {
		return nil
	}

	w.onPath[node.ID] = true
	defer delete(w.onPath, node.ID)

	ctx, span := otelhelper.StartSpan(ctx, w.executor.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
	)
	defer span.End()

	logger := log.FromContext(ctx, w.executor.logger).With("node_id", node.ID, "node_kind", node.Kind)

	var (
		branch    string
		branching bool
	)

	switch node.Kind {
	case models.NodeKindTrigger:
		triggerData = w.runTrigger(node, triggerData)
	case models.NodeKindCondition:
		outcome, err := w.runCondition(ctx, node, logger)
		if err != nil {
			otelhelper.SetError(span, err)

			return err
		}

		branching = true
		branch = strconv.FormatBool(outcome)
	case models.NodeKindAction, models.NodeKindNotification:
		w.runHandler(ctx, node, logger)
	default:
		w.results.Set(node.ID, &models.NodeResult{
			Kind:   string(node.Kind),
			Status: models.NodeStatusCompleted,
			Data:   map[string]any{"message": "Node executed"},
		})
	}

	if result, ok := w.results.Get(node.ID); ok {
		var errText string
		if data, ok := result.Data.(map[string]any); ok {
			errText, _ = data["error"].(string)
		}

		otelhelper.RecordNodeStatus(span, string(result.Status), errText)
	}

	for _, edge := range w.graph.Outgoing(node.ID) {
		if branching && edge.Label != branch {
			continue
		}

		next, ok := w.graph.Node(edge.Target)
		if !ok {
			logger.WarnContext(ctx, "edge target not found", "target", edge.Target)

			continue
		}

		if err := w.visit(ctx, next, triggerData); err != nil {
			return err
		}
	}

	return nil
}

func (w *walk) runTrigger(node *models.Node, triggerData map[string]any) map[string]any {
	if triggerData == nil {
		triggerData = node.Config.Trigger.SampleData(w.executor.now())
	}

	w.results.Set(node.ID, &models.NodeResult{
		Kind:   string(models.NodeKindTrigger),
		Status: models.NodeStatusCompleted,
		Data: map[string]any{
			"message":     "Trigger executed",
			"triggerData": triggerData,
		},
	})

	return triggerData
}

// runCondition records the condition result and returns the branch to follow.
// Only ErrNoTriggerData is returned as an error.
func (w *walk) runCondition(ctx context.Context, node *models.Node, logger *slog.Logger) (bool, error) {
	cfg := node.Config.Condition
	data := map[string]any{
		"message": "Condition evaluated",
		"config":  cfg,
	}

	var outcome bool

	if cfg != nil && cfg.AI != nil {
		triggerData, ok := w.results.TriggerData()
		if !ok {
			return false, fmt.Errorf("condition %s: %w", node.ID, ErrNoTriggerData)
		}

		evaluation, err := w.evaluateAI(ctx, cfg.AI, triggerData)
		if err != nil {
			logger.WarnContext(ctx, "AI condition failed", "error", err)
			data["error"] = err.Error()
		} else {
			outcome = evaluation.Result
			data["aiEvaluation"] = evaluation
			data["message"] = "AI condition evaluated: " + evaluation.AIResponse
		}
	} else {
		var err error

		outcome, err = Evaluate(cfg, w.results)
		if err != nil {
			logger.WarnContext(ctx, "condition evaluation failed closed", "error", err)

			outcome = false
			data["error"] = err.Error()
		}
	}

	data["result"] = outcome

	w.results.Set(node.ID, &models.NodeResult{
		Kind:   string(models.NodeKindCondition),
		Status: models.NodeStatusCompleted,
		Data:   data,
	})

	return outcome, nil
}

func (w *walk) evaluateAI(ctx context.Context, cfg *models.AICondition, triggerData map[string]any) (*AIEvaluation, error) {
	if w.executor.ai == nil {
		return nil, &AIEvaluationError{AIType: cfg.AIType, Err: errors.New("no AI provider configured")}
	}

	return w.executor.ai.Evaluate(ctx, cfg, triggerData)
}

// runHandler dispatches an action or notification node and records its outcome.
func (w *walk) runHandler(ctx context.Context, node *models.Node, logger *slog.Logger) {
	triggerData, _ := w.results.TriggerData()

	req := &NodeRequest{
		Node:        node,
		UserID:      w.userID,
		TriggerData: triggerData,
		Results:     w.results,
	}

	outcome, err := w.dispatch(ctx, node.Kind, req)
	if err != nil {
		message := string(node.Kind) + " failed"

		var actionErr *ActionExecutionError
		if errors.As(err, &actionErr) && actionErr.Message != "" {
			message = actionErr.Message
		}

		logger.WarnContext(ctx, "node failed", "error", err)
		otelhelper.SetError(trace.SpanFromContext(ctx), err)

		w.results.Set(node.ID, &models.NodeResult{
			Kind:   string(node.Kind),
			Status: models.NodeStatusFailed,
			Data: map[string]any{
				"message": message,
				"error":   errorText(err),
			},
		})

		return
	}

	w.results.Set(node.ID, &models.NodeResult{
		Kind:   string(node.Kind),
		Status: models.NodeStatusCompleted,
		Data:   outcome.Data,
	})

	for _, variable := range outcome.Variables {
		w.results.Set(variable.Name, &models.NodeResult{
			Kind:   models.ResultKindVariable,
			Status: models.NodeStatusCompleted,
			Data:   variable.Value,
		})
	}
}

// dispatch calls the handler and turns a panic into a node failure.
func (w *walk) dispatch(ctx context.Context, kind models.NodeKind, req *NodeRequest) (outcome *NodeOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if kind == models.NodeKindNotification {
		outcome, err = w.executor.dispatcher.ExecuteNotification(ctx, req)
	} else {
		outcome, err = w.executor.dispatcher.ExecuteAction(ctx, req)
	}

	if err == nil && outcome == nil {
		outcome = &NodeOutcome{Data: map[string]any{}}
	}

	return outcome, err
}

// errorText is the underlying cause without the message prefix added by ActionExecutionError.
func errorText(err error) string {
	var actionErr *ActionExecutionError
	if errors.As(err, &actionErr) && actionErr.Err != nil {
		return actionErr.Err.Error()
	}

	return err.Error()
}

// NoopDispatcher records every action and notification as done without side effects.
type NoopDispatcher struct{}

func (NoopDispatcher) ExecuteAction(context.Context, *NodeRequest) (*NodeOutcome, error) {
	return &NodeOutcome{Data: map[string]any{"message": "Action executed"}}, nil
}

func (NoopDispatcher) ExecuteNotification(context.Context, *NodeRequest) (*NodeOutcome, error) {
	return &NodeOutcome{Data: map[string]any{"message": "Notification sent"}}, nil
}
