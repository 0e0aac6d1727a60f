package guard

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/Chative-Drift-Guard/agent/nodes"
)

func (g *Guard) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateTurn(in, g.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	steps := []struct {
		name string
		fn   func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
	}{
		{"load_or_create_session", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateSession(ctx, in, g.store, g.trackerCfg)
		}},
		{"classify_intent", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, g.classifier)
		}},
		{"apply_user_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyUserTurn(in)
		}},
		{"diff_objects", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DiffObjects(in)
		}},
		{"apply_ai_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyAITurn(in)
		}},
		{"resolve_focus", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveFocus(in)
		}},
		{"detect_drift", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DetectDrift(in)
		}},
		{"decide_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DecideTurn(in, g.controller)
		}},
		{"validate_and_save_session", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ValidateAndSaveSession(ctx, in, g.store)
		}},
		{"record_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RecordTurn(ctx, in, g.sink, g.observers)
		}},
	}

	for _, step := range steps {
		if err := graph.AddLambdaNode(step.name, compose.InvokableLambda(step.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", step.name, err)
		}
	}

	if err := graph.AddLambdaNode("finalize_result",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeResult(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_result: %w", err)
	}

	edges := [][2]string{{compose.START, "validate_turn"}}
	prev := "validate_turn"
	for _, step := range steps {
		edges = append(edges, [2]string{prev, step.name})
		prev = step.name
	}
	edges = append(edges,
		[2]string{prev, "finalize_result"},
		[2]string{"finalize_result", compose.END},
	)

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("guard.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile guard graph: %w", err)
	}
	return runner, nil
}
