package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured stage machine
type StateMachineBuilder interface {
	// Configure returns a stage configuration for the given stage
	Configure(stage Stage) StateConfiguration

	// Build creates a new machine instance positioned at the given stage
	Build(initial Stage) StateMachine
}

// StateConfiguration configures transitions out of a specific stage
type StateConfiguration interface {
	// Permit allows a trigger to move to the target stage
	Permit(trigger Trigger, to Stage) StateConfiguration

	// PermitIf allows a trigger to move to the target stage if the guard passes
	PermitIf(trigger Trigger, to Stage, guard GuardFunc) StateConfiguration
}

type transition struct {
	to    Stage
	guard GuardFunc
}

type stateConfig struct {
	from        Stage
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[Stage]*stateConfig
}

type stateMachine struct {
	current        Stage
	configurations map[Stage]*stateConfig
}

// NewBuilder creates a new stage machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Stage]*stateConfig),
	}
}

// NewLinearMachine builds a machine over an ordered stage sequence where each
// stage may move forward to its successor and backward to its predecessor.
func NewLinearMachine(stages []Stage, current Stage) StateMachine {
	b := NewBuilder()
	for i, s := range stages {
		cfg := b.Configure(s)
		if i+1 < len(stages) {
			cfg.Permit(TriggerForward, stages[i+1])
		}
		if i > 0 {
			cfg.Permit(TriggerBackward, stages[i-1])
		}
	}
	return b.Build(current)
}

// Configure returns a stage configuration for the given stage
func (b *stateMachineBuilder) Configure(stage Stage) StateConfiguration {
	if !stage.IsValid() {
		panic(fmt.Sprintf("invalid stage: %s", stage))
	}

	config, exists := b.configurations[stage]
	if !exists {
		config = &stateConfig{
			from:        stage,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[stage] = config
	}

	return config
}

// Build creates a new machine instance positioned at the given stage.
// The machine starts at initial even when initial has no configuration.
func (b *stateMachineBuilder) Build(initial Stage) StateMachine {
	configsCopy := make(map[Stage]*stateConfig, len(b.configurations))
	for stage, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[stage] = &stateConfig{
			from:        stage,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to move to the target stage
func (c *stateConfig) Permit(trigger Trigger, to Stage) StateConfiguration {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows a trigger to move to the target stage if the guard passes
func (c *stateConfig) PermitIf(trigger Trigger, to Stage, guard GuardFunc) StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target stage: %s", to))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		to:    to,
		guard: guard,
	})

	return c
}

// Stage returns the current stage
func (m *stateMachine) Stage() Stage {
	return m.current
}

// CanFire reports whether the trigger may move from the current stage to the
// target. Guards are not evaluated.
func (m *stateMachine) CanFire(trigger Trigger, to Stage) bool {
	for _, t := range m.transitions(trigger) {
		if t.to == to {
			return true
		}
	}
	return false
}

// Fire moves to the target stage if a permitted transition with a passing guard exists
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger, to Stage) error {
	transitions := m.transitions(trigger)
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	matched := false
	for _, t := range transitions {
		if t.to != to {
			continue
		}
		matched = true
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	if matched {
		return fmt.Errorf("%w: %s from %s to %s", ErrGuardFailed, trigger, m.current, to)
	}
	return fmt.Errorf("%w: %s from %s to %s is not permitted", ErrInvalidTransition, trigger, m.current, to)
}

// Targets returns the stages reachable from the current stage by trigger, in configuration order
func (m *stateMachine) Targets(trigger Trigger) []Stage {
	transitions := m.transitions(trigger)
	targets := make([]Stage, 0, len(transitions))
	for _, t := range transitions {
		targets = append(targets, t.to)
	}
	return targets
}

func (m *stateMachine) transitions(trigger Trigger) []transition {
	config, exists := m.configurations[m.current]
	if !exists {
		return nil
	}
	return config.transitions[trigger]
}
