package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Loads(t *testing.T) {
	reg := DefaultRegistry()
	require.NotNil(t, reg)
	assert.Equal(t, 3, reg.Version())
	assert.Same(t, reg, DefaultRegistry())

	for _, lifecycle := range allLifecycles() {
		for _, stage := range lifecycle {
			_, err := reg.Lookup(stage)
			assert.NoError(t, err, "stage %s", stage)
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg := DefaultRegistry()

	def, err := reg.Lookup(StageForDeposit)
	require.NoError(t, err)
	assert.Equal(t, "For Deposit", def.Label)
	assert.Equal(t, []string{"payment_details", "deposit_slip_no"}, def.RequiredBeforeForward)
	assert.True(t, def.Forward().Has(RoleAccountingOfficer))
	assert.False(t, def.Forward().Has(RoleLogisticsOfficer))
	assert.Equal(t, map[string]string{"payment_status": "FOR_DEPOSIT"}, def.StatusMapping)

	po, err := reg.Lookup(StagePurchaseOrderApproval)
	require.NoError(t, err)
	assert.True(t, po.RequiresApproval)
	assert.Equal(t, StageBilling, po.OnApprove)
	assert.Equal(t, SideEffectGeneratePONumber, po.SideEffect)
	assert.True(t, po.Decliners().Has(RoleJGG))

	delivered, err := reg.Lookup(StageDelivered)
	require.NoError(t, err)
	assert.True(t, delivered.AutoApproveOnEnterForward)
	assert.Empty(t, delivered.DeclinerRoles)
}

func TestRegistry_LookupReturnsCopies(t *testing.T) {
	reg := DefaultRegistry()

	def, err := reg.Lookup(StageNewDR)
	require.NoError(t, err)
	def.StatusMapping["delivery_status"] = "TAMPERED"
	def.ForwardRoles[0] = RoleJGG
	def.RequiredFieldsToEnter = nil

	again, err := reg.Lookup(StageNewDR)
	require.NoError(t, err)
	assert.Equal(t, "NEW_DR", again.StatusMapping["delivery_status"])
	assert.Equal(t, RoleSalesAgent, again.ForwardRoles[0])
	assert.Len(t, again.RequiredFieldsToEnter, 4)
}

func TestRegistry_LookupUnknownStage(t *testing.T) {
	_, err := DefaultRegistry().Lookup(Stage("NOWHERE"))
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestRegistry_Label(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, "Request for Payment Approval", reg.Label(StageRequestForPaymentApproval))
	assert.Equal(t, "NOWHERE", reg.Label(Stage("NOWHERE")))
}

func TestLoadRegistry_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "malformed yaml",
			doc:  "delivery: [",
			want: "failed to parse stage document",
		},
		{
			name: "unknown stage key",
			doc: `
delivery:
  - key: WAREHOUSE
    status_mapping: {delivery_status: NEW_DR}
`,
			want: "unknown stage",
		},
		{
			name: "duplicate key",
			doc: `
delivery:
  - key: NEW_DR
    status_mapping: {delivery_status: NEW_DR}
  - key: NEW_DR
    status_mapping: {delivery_status: NEW_DR}
`,
			want: "duplicate stage key NEW_DR",
		},
		{
			name: "wrong family",
			doc: `
purchase:
  - key: NEW_DR
    status_mapping: {delivery_status: NEW_DR}
`,
			want: "declared under purchase",
		},
		{
			name: "unknown role",
			doc: `
delivery:
  - key: NEW_DR
    forward_roles: [Janitor]
    status_mapping: {delivery_status: NEW_DR}
`,
			want: "unknown role",
		},
		{
			name: "missing lifecycle stage",
			doc: `
delivery:
  - key: NEW_DR
    status_mapping: {delivery_status: NEW_DR}
`,
			want: "has no definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRegistry_OnApproveTargetMustExist(t *testing.T) {
	broken := strings.Replace(string(embeddedStages), "on_approve: BILLING", "on_approve: BILLING_ARCHIVE", 1)
	_, err := LoadRegistry([]byte(broken))
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestLoadRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, embeddedStages, 0o644))

	reg, err := LoadRegistryFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRegistry().Version(), reg.Version())

	_, err = LoadRegistryFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
