package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDefinitionsCoverEveryCode(t *testing.T) {
	codes := []PolicyCode{
		PolicyEntriesReadUserAntiscan, PolicyEntriesReadUserAntiscanV2,
		PolicyEntriesReadParticipantAntiscan, PolicyEntriesStatisticsRead,
		PolicyEntriesWrite, PolicyEntriesUpdate, PolicyClaimsRead, PolicyClaimsWrite,
		PolicyClaimsListWithRole, PolicyClaimsListWithoutRole, PolicySyncVerificationsWrite,
		PolicyCidsFilesWrite, PolicyCidsFilesRead, PolicyCidsEventsList, PolicyCidsEntriesRead,
		PolicyInfractionReportsRead, PolicyInfractionReportsWrite,
		PolicyInfractionReportsListWithRole, PolicyInfractionReportsListNoRole,
		PolicyKeysCheck, PolicyRefundsRead, PolicyRefundsWrite, PolicyRefundListWithRole,
		PolicyRefundListWithoutRole, PolicyFraudMarkersRead, PolicyFraudMarkersWrite,
		PolicyFraudMarkersList, PolicyPersonsStatisticsRead, PolicyPoliciesRead,
		PolicyPoliciesList, PolicyEventList,
	}
	assert.Len(t, codes, 31)

	for _, code := range codes {
		def, err := GetPolicyDefinition(code)
		require.NoError(t, err, "missing definition for %s", code)
		assert.Equal(t, code, def.Code)
	}
}

func TestGetPolicyDefinitionUnknownCode(t *testing.T) {
	_, err := GetPolicyDefinition("NO_SUCH_POLICY")
	assert.ErrorIs(t, err, ErrPolicyContract)
}

func TestResolveRateConfigFixed(t *testing.T) {
	rate, err := ResolveRateConfig(PolicyEntriesWrite, RateContext{})
	require.NoError(t, err)
	assert.Equal(t, 36000.0, rate.Capacity)
	assert.InDelta(t, 1200.0/60.0, rate.RefillPerSecond, 1e-9)
}

func TestResolveRateConfigUserCategory(t *testing.T) {
	rate, err := ResolveRateConfig(PolicyEntriesReadUserAntiscan, RateContext{FinalUserCategory: FinalUserPF})
	require.NoError(t, err)
	assert.Equal(t, 100.0, rate.Capacity)
	assert.InDelta(t, 2.0/60.0, rate.RefillPerSecond, 1e-9)

	rate, err = ResolveRateConfig(PolicyEntriesReadUserAntiscanV2, RateContext{FinalUserCategory: FinalUserPJ})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, rate.Capacity)
	assert.InDelta(t, 20.0/60.0, rate.RefillPerSecond, 1e-9)
}

func TestResolveRateConfigUserCategoryMissing(t *testing.T) {
	_, err := ResolveRateConfig(PolicyEntriesReadUserAntiscan, RateContext{})
	assert.ErrorIs(t, err, ErrPolicyContract)
}

func TestResolveRateConfigParticipantCategory(t *testing.T) {
	cases := map[ParticipantCategory]struct {
		capacity float64
		perMin   float64
	}{
		ParticipantCategoryA: {50000, 25000},
		ParticipantCategoryB: {40000, 20000},
		ParticipantCategoryC: {30000, 15000},
		ParticipantCategoryD: {16000, 8000},
		ParticipantCategoryE: {5000, 2500},
		ParticipantCategoryF: {500, 250},
		ParticipantCategoryG: {250, 25},
		ParticipantCategoryH: {50, 2},
	}

	for category, expected := range cases {
		rate, err := ResolveRateConfig(PolicyEntriesReadParticipantAntiscan, RateContext{ParticipantCategory: category})
		require.NoError(t, err, "category %s", category)
		assert.Equal(t, expected.capacity, rate.Capacity, "category %s", category)
		assert.InDelta(t, expected.perMin/60.0, rate.RefillPerSecond, 1e-9, "category %s", category)
	}
}

func TestResolveRateConfigParticipantCategoryMissing(t *testing.T) {
	_, err := ResolveRateConfig(PolicyEntriesReadParticipantAntiscan, RateContext{})
	assert.ErrorIs(t, err, ErrPolicyContract)
}
