package workflow

import "context"

// StateMachine tracks the current stage of a document and validates moves
type StateMachine interface {
	// Stage returns the current stage
	Stage() Stage

	// CanFire reports whether trigger may move from the current stage to the target
	CanFire(trigger Trigger, to Stage) bool

	// Fire moves to the target stage if the transition is permitted
	Fire(ctx context.Context, trigger Trigger, to Stage) error

	// Targets returns the stages reachable from the current stage by trigger
	Targets(trigger Trigger) []Stage
}
