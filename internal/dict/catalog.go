package dict

import (
	"errors"
	"fmt"
)

// ErrPolicyContract marks catalog misuse: resolving a rate without the
// category its strategy requires, or referencing an unknown policy. These are
// programming errors, not caller input problems.
var ErrPolicyContract = errors.New("policy contract violation")

// rateStrategy selects how a policy's capacity and refill rate are derived.
type rateStrategy int

const (
	strategyFixed rateStrategy = iota
	strategyUserCategory
	strategyParticipantCategory
)

// PolicyDefinition is one catalog row: the scope a policy charges and the
// strategy that sizes its buckets.
type PolicyDefinition struct {
	Code      PolicyCode
	ScopeType ScopeType
	strategy  rateStrategy
	fixed     RateConfig
}

// RateContext carries the dynamic inputs rate resolution may need.
// FinalUserCategory is only required by USER_CATEGORY policies.
type RateContext struct {
	FinalUserCategory   FinalUserCategory
	ParticipantCategory ParticipantCategory
}

func perMinute(tokens float64) float64 {
	return tokens / 60
}

func perDay(tokens float64) float64 {
	return tokens / (24 * 60 * 60)
}

var userCategoryConfig = map[FinalUserCategory]RateConfig{
	FinalUserPF: {Capacity: 100, RefillPerSecond: perMinute(2)},
	FinalUserPJ: {Capacity: 1000, RefillPerSecond: perMinute(20)},
}

var participantCategoryConfig = map[ParticipantCategory]RateConfig{
	ParticipantCategoryA: {Capacity: 50000, RefillPerSecond: perMinute(25000)},
	ParticipantCategoryB: {Capacity: 40000, RefillPerSecond: perMinute(20000)},
	ParticipantCategoryC: {Capacity: 30000, RefillPerSecond: perMinute(15000)},
	ParticipantCategoryD: {Capacity: 16000, RefillPerSecond: perMinute(8000)},
	ParticipantCategoryE: {Capacity: 5000, RefillPerSecond: perMinute(2500)},
	ParticipantCategoryF: {Capacity: 500, RefillPerSecond: perMinute(250)},
	ParticipantCategoryG: {Capacity: 250, RefillPerSecond: perMinute(25)},
	ParticipantCategoryH: {Capacity: 50, RefillPerSecond: perMinute(2)},
}

func fixed(code PolicyCode, capacity, refillPerSecond float64) PolicyDefinition {
	return PolicyDefinition{
		Code:      code,
		ScopeType: ScopePSP,
		strategy:  strategyFixed,
		fixed:     RateConfig{Capacity: capacity, RefillPerSecond: refillPerSecond},
	}
}

// policyDefinitions is the static catalog, loaded once and never mutated;
// safe to share across goroutines without locking.
var policyDefinitions = map[PolicyCode]PolicyDefinition{
	PolicyEntriesReadUserAntiscan: {
		Code:      PolicyEntriesReadUserAntiscan,
		ScopeType: ScopeUser,
		strategy:  strategyUserCategory,
	},
	PolicyEntriesReadUserAntiscanV2: {
		Code:      PolicyEntriesReadUserAntiscanV2,
		ScopeType: ScopeUser,
		strategy:  strategyUserCategory,
	},
	PolicyEntriesReadParticipantAntiscan: {
		Code:      PolicyEntriesReadParticipantAntiscan,
		ScopeType: ScopePSP,
		strategy:  strategyParticipantCategory,
	},
	PolicyEntriesStatisticsRead: {
		Code:      PolicyEntriesStatisticsRead,
		ScopeType: ScopePSP,
		strategy:  strategyParticipantCategory,
	},
	PolicyEntriesWrite:                  fixed(PolicyEntriesWrite, 36000, perMinute(1200)),
	PolicyEntriesUpdate:                 fixed(PolicyEntriesUpdate, 600, perMinute(600)),
	PolicyClaimsRead:                    fixed(PolicyClaimsRead, 18000, perMinute(600)),
	PolicyClaimsWrite:                   fixed(PolicyClaimsWrite, 36000, perMinute(1200)),
	PolicyClaimsListWithRole:            fixed(PolicyClaimsListWithRole, 200, perMinute(40)),
	PolicyClaimsListWithoutRole:         fixed(PolicyClaimsListWithoutRole, 50, perMinute(10)),
	PolicySyncVerificationsWrite:        fixed(PolicySyncVerificationsWrite, 50, perMinute(10)),
	PolicyCidsFilesWrite:                fixed(PolicyCidsFilesWrite, 200, perDay(40)),
	PolicyCidsFilesRead:                 fixed(PolicyCidsFilesRead, 50, perMinute(10)),
	PolicyCidsEventsList:                fixed(PolicyCidsEventsList, 100, perMinute(20)),
	PolicyCidsEntriesRead:               fixed(PolicyCidsEntriesRead, 36000, perMinute(1200)),
	PolicyInfractionReportsRead:         fixed(PolicyInfractionReportsRead, 18000, perMinute(600)),
	PolicyInfractionReportsWrite:        fixed(PolicyInfractionReportsWrite, 36000, perMinute(1200)),
	PolicyInfractionReportsListWithRole: fixed(PolicyInfractionReportsListWithRole, 200, perMinute(40)),
	PolicyInfractionReportsListNoRole:   fixed(PolicyInfractionReportsListNoRole, 50, perMinute(10)),
	PolicyKeysCheck:                     fixed(PolicyKeysCheck, 70, perMinute(70)),
	PolicyRefundsRead:                   fixed(PolicyRefundsRead, 36000, perMinute(1200)),
	PolicyRefundsWrite:                  fixed(PolicyRefundsWrite, 72000, perMinute(2400)),
	PolicyRefundListWithRole:            fixed(PolicyRefundListWithRole, 200, perMinute(40)),
	PolicyRefundListWithoutRole:         fixed(PolicyRefundListWithoutRole, 50, perMinute(10)),
	PolicyFraudMarkersRead:              fixed(PolicyFraudMarkersRead, 18000, perMinute(600)),
	PolicyFraudMarkersWrite:             fixed(PolicyFraudMarkersWrite, 36000, perMinute(1200)),
	PolicyFraudMarkersList:              fixed(PolicyFraudMarkersList, 18000, perMinute(600)),
	PolicyPersonsStatisticsRead:         fixed(PolicyPersonsStatisticsRead, 36000, perMinute(12000)),
	PolicyPoliciesRead:                  fixed(PolicyPoliciesRead, 200, perMinute(60)),
	PolicyPoliciesList:                  fixed(PolicyPoliciesList, 20, perMinute(6)),
	PolicyEventList:                     fixed(PolicyEventList, 200, perMinute(40)),
}

// GetPolicyDefinition returns the catalog row for code.
func GetPolicyDefinition(code PolicyCode) (PolicyDefinition, error) {
	def, ok := policyDefinitions[code]
	if !ok {
		return PolicyDefinition{}, fmt.Errorf("%w: unknown policy %s", ErrPolicyContract, code)
	}
	return def, nil
}

// ResolveRateConfig derives the effective capacity and refill rate for a
// policy given the caller context. USER_CATEGORY policies require
// ctx.FinalUserCategory; PARTICIPANT_CATEGORY policies require
// ctx.ParticipantCategory.
func ResolveRateConfig(code PolicyCode, ctx RateContext) (RateConfig, error) {
	def, err := GetPolicyDefinition(code)
	if err != nil {
		return RateConfig{}, err
	}

	switch def.strategy {
	case strategyFixed:
		return def.fixed, nil

	case strategyUserCategory:
		cfg, ok := userCategoryConfig[ctx.FinalUserCategory]
		if !ok {
			return RateConfig{}, fmt.Errorf("%w: policy %s requires final user category", ErrPolicyContract, code)
		}
		return cfg, nil

	case strategyParticipantCategory:
		cfg, ok := participantCategoryConfig[ctx.ParticipantCategory]
		if !ok {
			return RateConfig{}, fmt.Errorf("%w: policy %s requires participant category", ErrPolicyContract, code)
		}
		return cfg, nil

	default:
		return RateConfig{}, fmt.Errorf("%w: policy %s has no rate strategy", ErrPolicyContract, code)
	}
}
