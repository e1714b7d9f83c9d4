package dict

// PolicyCost returns how many tokens a policy charges for a simulated HTTP
// status. Anti-scan policies penalize not-found lookups to deter key
// enumeration; every other policy charges 1 unless the failure is the
// server's own (500).
func PolicyCost(code PolicyCode, statusCode int) int {
	switch code {
	case PolicyEntriesReadUserAntiscan, PolicyEntriesReadUserAntiscanV2:
		switch statusCode {
		case 200:
			return 1
		case 404:
			return 20
		default:
			return 0
		}

	case PolicyEntriesReadParticipantAntiscan:
		switch statusCode {
		case 200:
			return 1
		case 404:
			return 3
		default:
			return 0
		}

	default:
		if statusCode == 500 {
			return 0
		}
		return 1
	}
}

// UserCreditAmount is the refund applied to the user anti-scan bucket when a
// payment follows a successful lookup: 1 token for PF, 2 for PJ.
func UserCreditAmount(category FinalUserCategory) int {
	if category == FinalUserPJ {
		return 2
	}
	return 1
}

// ParticipantCreditAmount is the refund applied to the participant anti-scan
// bucket, always 1.
func ParticipantCreditAmount() int {
	return 1
}
