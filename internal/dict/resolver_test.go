package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string       { return &s }
func keyTypePtr(k KeyType) *KeyType { return &k }
func boolPtr(b bool) *bool          { return &b }

func TestNormalizePayerID(t *testing.T) {
	assert.Equal(t, "12345678901", NormalizePayerID("123.456.789-01"))
	assert.Equal(t, "12345678000190", NormalizePayerID("12.345.678/0001-90"))
	assert.Equal(t, "", NormalizePayerID("abc"))
}

func TestResolveFinalUserCategory(t *testing.T) {
	category, err := ResolveFinalUserCategory("123.456.789-01")
	require.NoError(t, err)
	assert.Equal(t, FinalUserPF, category)

	category, err = ResolveFinalUserCategory("12.345.678/0001-90")
	require.NoError(t, err)
	assert.Equal(t, FinalUserPJ, category)

	_, err = ResolveFinalUserCategory("no digits")
	assert.True(t, IsValidationError(err))

	_, err = ResolveFinalUserCategory("12345")
	assert.True(t, IsValidationError(err))
}

func TestResolveUserAntiScanPolicy(t *testing.T) {
	assert.Equal(t, PolicyEntriesReadUserAntiscan, ResolveUserAntiScanPolicy(KeyTypeEMAIL))
	assert.Equal(t, PolicyEntriesReadUserAntiscan, ResolveUserAntiScanPolicy(KeyTypePHONE))
	assert.Equal(t, PolicyEntriesReadUserAntiscanV2, ResolveUserAntiScanPolicy(KeyTypeCPF))
	assert.Equal(t, PolicyEntriesReadUserAntiscanV2, ResolveUserAntiScanPolicy(KeyTypeCNPJ))
	assert.Equal(t, PolicyEntriesReadUserAntiscanV2, ResolveUserAntiScanPolicy(KeyTypeEVP))
}

func TestResolvePoliciesGetEntry(t *testing.T) {
	policies, err := ResolvePolicies(SimulateOperationInput{
		Operation:           OpGetEntry,
		SimulatedStatusCode: 200,
		PayerID:             strPtr("12345678901"),
		KeyType:             keyTypePtr(KeyTypeEMAIL),
		EndToEndID:          strPtr("E123"),
	})
	require.NoError(t, err)
	assert.Equal(t, []PolicyCode{PolicyEntriesReadUserAntiscan, PolicyEntriesReadParticipantAntiscan}, policies)
}

func TestResolvePoliciesGetEntryMissingFields(t *testing.T) {
	_, err := ResolvePolicies(SimulateOperationInput{
		Operation:           OpGetEntry,
		SimulatedStatusCode: 200,
	})
	assert.True(t, IsValidationError(err))

	_, err = ResolvePolicies(SimulateOperationInput{
		Operation:           OpGetEntry,
		SimulatedStatusCode: 200,
		PayerID:             strPtr("12345678901"),
		KeyType:             keyTypePtr(KeyTypeEMAIL),
	})
	assert.True(t, IsValidationError(err), "endToEndId is required")
}

func TestResolvePoliciesRoleFilterLists(t *testing.T) {
	cases := []struct {
		op          Operation
		withRole    PolicyCode
		withoutRole PolicyCode
	}{
		{OpListClaims, PolicyClaimsListWithRole, PolicyClaimsListWithoutRole},
		{OpListInfractionReports, PolicyInfractionReportsListWithRole, PolicyInfractionReportsListNoRole},
		{OpListRefunds, PolicyRefundListWithRole, PolicyRefundListWithoutRole},
	}

	for _, tc := range cases {
		_, err := ResolvePolicies(SimulateOperationInput{Operation: tc.op, SimulatedStatusCode: 200})
		assert.True(t, IsValidationError(err), "%s requires hasRoleFilter", tc.op)

		policies, err := ResolvePolicies(SimulateOperationInput{
			Operation: tc.op, SimulatedStatusCode: 200, HasRoleFilter: boolPtr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, []PolicyCode{tc.withRole}, policies)

		policies, err = ResolvePolicies(SimulateOperationInput{
			Operation: tc.op, SimulatedStatusCode: 200, HasRoleFilter: boolPtr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, []PolicyCode{tc.withoutRole}, policies)
	}
}

func TestResolvePoliciesEveryOperationResolves(t *testing.T) {
	for _, op := range Operations {
		input := SimulateOperationInput{Operation: op, SimulatedStatusCode: 200}
		if op == OpGetEntry {
			input.PayerID = strPtr("12345678901")
			input.KeyType = keyTypePtr(KeyTypeCPF)
			input.EndToEndID = strPtr("E123")
		}
		if requiresRoleFilter(op) {
			input.HasRoleFilter = boolPtr(true)
		}

		policies, err := ResolvePolicies(input)
		require.NoError(t, err, "operation %s", op)
		assert.NotEmpty(t, policies, "operation %s", op)
	}
}

func TestResolvePoliciesUnsupportedOperation(t *testing.T) {
	_, err := ResolvePolicies(SimulateOperationInput{Operation: "TRANSMOGRIFY", SimulatedStatusCode: 200})
	assert.True(t, IsValidationError(err))
}
