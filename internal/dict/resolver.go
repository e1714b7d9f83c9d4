package dict

import "strings"

// NormalizePayerID strips every non-digit character from a payer identifier.
// Normalization happens before any length check or scope-key construction.
func NormalizePayerID(payerID string) string {
	var b strings.Builder
	b.Grow(len(payerID))
	for _, r := range payerID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveFinalUserCategory classifies a payer id: 11 digits is PF (CPF),
// 14 digits is PJ (CNPJ), anything else is invalid input.
func ResolveFinalUserCategory(payerID string) (FinalUserCategory, error) {
	normalized := NormalizePayerID(payerID)

	switch len(normalized) {
	case 0:
		return "", NewValidationError("payerId must contain digits")
	case 11:
		return FinalUserPF, nil
	case 14:
		return FinalUserPJ, nil
	default:
		return "", NewValidationError("payerId must be a valid CPF (11) or CNPJ (14)")
	}
}

// ResolveUserAntiScanPolicy selects the user-scoped anti-scan policy variant
// for a key type: EMAIL and PHONE lookups charge the original policy, every
// other key type charges the V2 policy.
func ResolveUserAntiScanPolicy(keyType KeyType) PolicyCode {
	if keyType == KeyTypeEMAIL || keyType == KeyTypePHONE {
		return PolicyEntriesReadUserAntiscan
	}
	return PolicyEntriesReadUserAntiscanV2
}

func requiresRoleFilter(op Operation) bool {
	return op == OpListClaims || op == OpListRefunds || op == OpListInfractionReports
}

func requireString(value *string, field string, op Operation) (string, error) {
	if value == nil || *value == "" {
		return "", NewValidationError("field %s is required for operation %s", field, op)
	}
	return *value, nil
}

func requireKeyType(value *KeyType, field string, op Operation) (KeyType, error) {
	if value == nil || *value == "" {
		return "", NewValidationError("field %s is required for operation %s", field, op)
	}
	return *value, nil
}

func requireBool(value *bool, field string, op Operation) (bool, error) {
	if value == nil {
		return false, NewValidationError("field %s is required for operation %s", field, op)
	}
	return *value, nil
}

// ValidateOperationInput checks that the fields an operation depends on are
// present. It does not validate field contents beyond presence.
func ValidateOperationInput(input SimulateOperationInput) error {
	if input.Operation == OpGetEntry {
		if _, err := requireString(input.PayerID, "payerId", input.Operation); err != nil {
			return err
		}
		if _, err := requireKeyType(input.KeyType, "keyType", input.Operation); err != nil {
			return err
		}
		if _, err := requireString(input.EndToEndID, "endToEndId", input.Operation); err != nil {
			return err
		}
	}

	if requiresRoleFilter(input.Operation) {
		if _, err := requireBool(input.HasRoleFilter, "hasRoleFilter", input.Operation); err != nil {
			return err
		}
	}

	return nil
}

// ResolvePolicies maps an operation to the ordered list of policy codes it
// must charge, validating required fields first. An operation missing from
// the switch is a validation failure, never silently ignored.
func ResolvePolicies(input SimulateOperationInput) ([]PolicyCode, error) {
	if err := ValidateOperationInput(input); err != nil {
		return nil, err
	}

	switch input.Operation {
	case OpGetEntry:
		keyType, err := requireKeyType(input.KeyType, "keyType", input.Operation)
		if err != nil {
			return nil, err
		}
		return []PolicyCode{ResolveUserAntiScanPolicy(keyType), PolicyEntriesReadParticipantAntiscan}, nil

	case OpGetEntryStatistics:
		return []PolicyCode{PolicyEntriesStatisticsRead}, nil

	case OpCreateEntry, OpDeleteEntry:
		return []PolicyCode{PolicyEntriesWrite}, nil

	case OpUpdateEntry:
		return []PolicyCode{PolicyEntriesUpdate}, nil

	case OpGetClaim:
		return []PolicyCode{PolicyClaimsRead}, nil

	case OpCreateClaim, OpAcknowledgeClaim, OpCancelClaim, OpConfirmClaim, OpCompleteClaim:
		return []PolicyCode{PolicyClaimsWrite}, nil

	case OpListClaims:
		hasRole, err := requireBool(input.HasRoleFilter, "hasRoleFilter", input.Operation)
		if err != nil {
			return nil, err
		}
		if hasRole {
			return []PolicyCode{PolicyClaimsListWithRole}, nil
		}
		return []PolicyCode{PolicyClaimsListWithoutRole}, nil

	case OpCreateSyncVerification:
		return []PolicyCode{PolicySyncVerificationsWrite}, nil

	case OpCreateCidSetFile:
		return []PolicyCode{PolicyCidsFilesWrite}, nil

	case OpGetCidSetFile:
		return []PolicyCode{PolicyCidsFilesRead}, nil

	case OpListCidSetEvents:
		return []PolicyCode{PolicyCidsEventsList}, nil

	case OpGetEntryByCid:
		return []PolicyCode{PolicyCidsEntriesRead}, nil

	case OpGetInfractionReport:
		return []PolicyCode{PolicyInfractionReportsRead}, nil

	case OpCreateInfractionReport, OpAcknowledgeInfractionReport, OpCancelInfractionReport,
		OpCloseInfractionReport, OpUpdateInfractionReport:
		return []PolicyCode{PolicyInfractionReportsWrite}, nil

	case OpListInfractionReports:
		hasRole, err := requireBool(input.HasRoleFilter, "hasRoleFilter", input.Operation)
		if err != nil {
			return nil, err
		}
		if hasRole {
			return []PolicyCode{PolicyInfractionReportsListWithRole}, nil
		}
		return []PolicyCode{PolicyInfractionReportsListNoRole}, nil

	case OpCheckKeys:
		return []PolicyCode{PolicyKeysCheck}, nil

	case OpGetRefund:
		return []PolicyCode{PolicyRefundsRead}, nil

	case OpCreateRefund, OpCancelRefund, OpCloseRefund:
		return []PolicyCode{PolicyRefundsWrite}, nil

	case OpListRefunds:
		hasRole, err := requireBool(input.HasRoleFilter, "hasRoleFilter", input.Operation)
		if err != nil {
			return nil, err
		}
		if hasRole {
			return []PolicyCode{PolicyRefundListWithRole}, nil
		}
		return []PolicyCode{PolicyRefundListWithoutRole}, nil

	case OpGetFraudMarker:
		return []PolicyCode{PolicyFraudMarkersRead}, nil

	case OpCreateFraudMarker, OpCancelFraudMarker:
		return []PolicyCode{PolicyFraudMarkersWrite}, nil

	case OpListFraudMarkers:
		return []PolicyCode{PolicyFraudMarkersList}, nil

	case OpGetPersonStatistics:
		return []PolicyCode{PolicyPersonsStatisticsRead}, nil

	case OpGetBucketState:
		return []PolicyCode{PolicyPoliciesRead}, nil

	case OpListBucketStates:
		return []PolicyCode{PolicyPoliciesList}, nil

	case OpListEventNotifications:
		return []PolicyCode{PolicyEventList}, nil

	default:
		return nil, NewValidationError("unsupported operation: %s", input.Operation)
	}
}
