package workflow

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var embeddedStages []byte

// Side effects and gates a stage may declare
const (
	SideEffectDefaultPaymentDue = "default_payment_due"
	SideEffectGeneratePONumber  = "generate_po_number"
	GateBillingTotals           = "billing_totals_match_and_paid"
)

var (
	knownSideEffects = map[string]bool{SideEffectDefaultPaymentDue: true, SideEffectGeneratePONumber: true}
	knownGates       = map[string]bool{GateBillingTotals: true}
)

// StageDefinition is the static metadata of one stage
type StageDefinition struct {
	Key                       Stage             `yaml:"key"`
	Label                     string            `yaml:"label"`
	ForwardRoles              []Role            `yaml:"forward_roles"`
	BackwardRoles             []Role            `yaml:"backward_roles"`
	ApproverRoles             []Role            `yaml:"approver_roles"`
	DeclinerRoles             []Role            `yaml:"decliner_roles"`
	RequiredFieldsToEnter     []string          `yaml:"required_fields_to_enter"`
	RequiredBeforeForward     []string          `yaml:"required_before_forward"`
	StatusMapping             map[string]string `yaml:"status_mapping"`
	ApprovalOnEnterForward    bool              `yaml:"approval_on_enter_forward"`
	AutoApproveOnEnterForward bool              `yaml:"auto_approve_on_enter_forward"`
	RequiresApproval          bool              `yaml:"requires_approval"`
	OnApprove                 Stage             `yaml:"on_approve"`
	SideEffect                string            `yaml:"side_effect"`
	Gate                      string            `yaml:"gate"`
}

// Forward returns the roles allowed to move the document forward from this stage
func (d StageDefinition) Forward() RoleSet { return NewRoleSet(d.ForwardRoles...) }

// Backward returns the roles allowed to move the document backward from this stage
func (d StageDefinition) Backward() RoleSet { return NewRoleSet(d.BackwardRoles...) }

// Approvers returns the roles allowed to approve in this stage
func (d StageDefinition) Approvers() RoleSet { return NewRoleSet(d.ApproverRoles...) }

// Decliners returns the roles allowed to decline in this stage
func (d StageDefinition) Decliners() RoleSet { return NewRoleSet(d.DeclinerRoles...) }

func (d StageDefinition) clone() StageDefinition {
	c := d
	c.ForwardRoles = append([]Role(nil), d.ForwardRoles...)
	c.BackwardRoles = append([]Role(nil), d.BackwardRoles...)
	c.ApproverRoles = append([]Role(nil), d.ApproverRoles...)
	c.DeclinerRoles = append([]Role(nil), d.DeclinerRoles...)
	c.RequiredFieldsToEnter = append([]string(nil), d.RequiredFieldsToEnter...)
	c.RequiredBeforeForward = append([]string(nil), d.RequiredBeforeForward...)
	c.StatusMapping = make(map[string]string, len(d.StatusMapping))
	for k, v := range d.StatusMapping {
		c.StatusMapping[k] = v
	}
	return c
}

type registryDocument struct {
	Version  int               `yaml:"version"`
	Delivery []StageDefinition `yaml:"delivery"`
	Purchase []StageDefinition `yaml:"purchase"`
}

// Registry is the validated, read-only stage metadata table
type Registry struct {
	version int
	stages  map[Stage]StageDefinition
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry built from the embedded stage document.
// It panics if the embedded document is invalid.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg, err := LoadRegistry(embeddedStages)
		if err != nil {
			panic(fmt.Sprintf("embedded stage registry is invalid: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// LoadRegistryFile reads and validates a stage document from disk
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage file: %w", err)
	}
	return LoadRegistry(data)
}

// LoadRegistry parses and validates a YAML stage document
func LoadRegistry(data []byte) (*Registry, error) {
	var doc registryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse stage document: %w", err)
	}

	reg := &Registry{
		version: doc.Version,
		stages:  make(map[Stage]StageDefinition),
	}

	add := func(family Family, defs []StageDefinition) error {
		for _, def := range defs {
			if !def.Key.IsValid() {
				return fmt.Errorf("%w: %q", ErrUnknownStage, def.Key)
			}
			if def.Key.Family() != family {
				return fmt.Errorf("stage %s declared under %s but belongs to %s", def.Key, family, def.Key.Family())
			}
			if _, dup := reg.stages[def.Key]; dup {
				return fmt.Errorf("duplicate stage key %s", def.Key)
			}
			if err := validateDefinition(def); err != nil {
				return err
			}
			reg.stages[def.Key] = def.clone()
		}
		return nil
	}

	if err := add(FamilyDelivery, doc.Delivery); err != nil {
		return nil, err
	}
	if err := add(FamilyPurchase, doc.Purchase); err != nil {
		return nil, err
	}

	for _, lifecycle := range allLifecycles() {
		for _, stage := range lifecycle {
			if _, ok := reg.stages[stage]; !ok {
				return nil, fmt.Errorf("%w: lifecycle stage %s has no definition", ErrUnknownStage, stage)
			}
		}
	}

	for key, def := range reg.stages {
		if def.OnApprove == "" {
			continue
		}
		if _, ok := reg.stages[def.OnApprove]; !ok {
			return nil, fmt.Errorf("%w: stage %s approves into undefined %s", ErrUnknownStage, key, def.OnApprove)
		}
	}

	return reg, nil
}

func validateDefinition(def StageDefinition) error {
	for _, roles := range [][]Role{def.ForwardRoles, def.BackwardRoles, def.ApproverRoles, def.DeclinerRoles} {
		for _, r := range roles {
			if !r.IsValid() {
				return fmt.Errorf("stage %s references unknown role %q", def.Key, r)
			}
		}
	}
	if def.SideEffect != "" && !knownSideEffects[def.SideEffect] {
		return fmt.Errorf("stage %s declares unknown side effect %q", def.Key, def.SideEffect)
	}
	if def.Gate != "" && !knownGates[def.Gate] {
		return fmt.Errorf("stage %s declares unknown gate %q", def.Key, def.Gate)
	}
	if len(def.StatusMapping) == 0 {
		return fmt.Errorf("stage %s has no status mapping", def.Key)
	}
	return nil
}

// Version returns the version declared by the stage document
func (r *Registry) Version() int {
	return r.version
}

// Lookup returns a copy of the definition for stage
func (r *Registry) Lookup(stage Stage) (StageDefinition, error) {
	def, ok := r.stages[stage]
	if !ok {
		return StageDefinition{}, fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	return def.clone(), nil
}

// Label returns the display label of stage, or the key itself when undefined
func (r *Registry) Label(stage Stage) string {
	if def, ok := r.stages[stage]; ok && def.Label != "" {
		return def.Label
	}
	return string(stage)
}
