package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyCostUserAntiScan(t *testing.T) {
	for _, code := range []PolicyCode{PolicyEntriesReadUserAntiscan, PolicyEntriesReadUserAntiscanV2} {
		assert.Equal(t, 1, PolicyCost(code, 200))
		assert.Equal(t, 20, PolicyCost(code, 404))
		assert.Equal(t, 0, PolicyCost(code, 403))
		assert.Equal(t, 0, PolicyCost(code, 500))
	}
}

func TestPolicyCostParticipantAntiScan(t *testing.T) {
	assert.Equal(t, 1, PolicyCost(PolicyEntriesReadParticipantAntiscan, 200))
	assert.Equal(t, 3, PolicyCost(PolicyEntriesReadParticipantAntiscan, 404))
	assert.Equal(t, 0, PolicyCost(PolicyEntriesReadParticipantAntiscan, 422))
}

func TestPolicyCostDefault(t *testing.T) {
	assert.Equal(t, 1, PolicyCost(PolicyEntriesWrite, 200))
	assert.Equal(t, 1, PolicyCost(PolicyEntriesWrite, 404))
	assert.Equal(t, 0, PolicyCost(PolicyEntriesWrite, 500), "server faults are free")
}

func TestCreditAmounts(t *testing.T) {
	assert.Equal(t, 1, UserCreditAmount(FinalUserPF))
	assert.Equal(t, 2, UserCreditAmount(FinalUserPJ))
	assert.Equal(t, 1, ParticipantCreditAmount())
}
