package dict

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dict-gateway/go/internal/clock"
)

// RateLimitService is the DICT admission-control engine: it resolves the
// policies an operation charges, locks every touched bucket, refills and
// evaluates them, and applies an all-or-nothing debit with a full audit
// trail. It also owns the idempotent payment-credit flow and the read-only
// bucket projections.
type RateLimitService struct {
	repo   Repository
	logger *zap.Logger
	clock  clock.Clock
}

// NewRateLimitService wires the engine. A nil clock defaults to system time.
func NewRateLimitService(repo Repository, logger *zap.Logger, clk clock.Clock) *RateLimitService {
	if clk == nil {
		clk = clock.System{}
	}
	return &RateLimitService{repo: repo, logger: logger, clock: clk}
}

func ensureScopeOwnership(caller Caller, scopeType ScopeType, scopeKey string) error {
	if scopeType == ScopePSP && scopeKey != caller.TenantID {
		return NewValidationError("scopeKey is not allowed for authenticated tenant")
	}
	if scopeType == ScopeUser && !hasTenantPrefix(scopeKey, caller.TenantID) {
		return NewValidationError("scopeKey is not allowed for authenticated tenant")
	}
	return nil
}

func hasTenantPrefix(scopeKey, tenantID string) bool {
	prefix := tenantID + ":"
	return len(scopeKey) > len(prefix) && scopeKey[:len(prefix)] == prefix
}

func locksForCharges(charges []Charge) []BucketLock {
	locks := make([]BucketLock, 0, len(charges))
	for _, charge := range charges {
		locks = append(locks, BucketLock{
			BucketIdentity: charge.BucketIdentity,
			InitialTokens:  charge.Capacity,
		})
	}
	return locks
}

func bucketMap(buckets []BucketSnapshot) map[BucketIdentity]BucketSnapshot {
	m := make(map[BucketIdentity]BucketSnapshot, len(buckets))
	for _, b := range buckets {
		m[b.BucketIdentity] = b
	}
	return m
}

// SimulateOperation decides whether the caller may perform the operation
// under currently available quota, debiting every charged bucket atomically
// when allowed. A denial is a normal result (allowed=false, httpStatus 429)
// with no debit anywhere; refill progress is persisted either way.
func (s *RateLimitService) SimulateOperation(ctx context.Context, caller Caller, input SimulateOperationInput) (*SimulateOperationResult, error) {
	now := s.clock.Now()

	var normalizedPayerID string
	var finalUserCategory FinalUserCategory
	if input.PayerID != nil && *input.PayerID != "" {
		normalizedPayerID = NormalizePayerID(*input.PayerID)
		category, err := ResolveFinalUserCategory(normalizedPayerID)
		if err != nil {
			return nil, err
		}
		finalUserCategory = category
		input.PayerID = &normalizedPayerID
	}

	policies, err := ResolvePolicies(input)
	if err != nil {
		return nil, err
	}

	// Merge charges landing on the same bucket: costs add up instead of the
	// bucket being locked twice.
	var charges []*Charge
	chargeIndex := make(map[BucketIdentity]*Charge)

	for _, policyCode := range policies {
		def, err := GetPolicyDefinition(policyCode)
		if err != nil {
			return nil, err
		}

		scopeKey := caller.TenantID
		if def.ScopeType == ScopeUser {
			scopeKey = caller.TenantID + ":" + normalizedPayerID
		}

		rate, err := ResolveRateConfig(policyCode, RateContext{
			FinalUserCategory:   finalUserCategory,
			ParticipantCategory: caller.ParticipantCategory,
		})
		if err != nil {
			return nil, err
		}

		identity := BucketIdentity{PolicyCode: policyCode, ScopeType: def.ScopeType, ScopeKey: scopeKey}
		cost := float64(PolicyCost(policyCode, input.SimulatedStatusCode))

		if existing, ok := chargeIndex[identity]; ok {
			existing.Cost += cost
			continue
		}

		charge := &Charge{
			BucketIdentity:  identity,
			Capacity:        rate.Capacity,
			RefillPerSecond: rate.RefillPerSecond,
			Cost:            cost,
		}
		charges = append(charges, charge)
		chargeIndex[identity] = charge
	}

	chargeValues := make([]Charge, len(charges))
	for i, c := range charges {
		chargeValues[i] = *c
	}

	var result *SimulateOperationResult
	err = s.repo.WithLockedBuckets(ctx, locksForCharges(chargeValues), func(ctx context.Context, tx Tx) error {
		locked, err := tx.LockedBuckets(ctx)
		if err != nil {
			return err
		}
		current := bucketMap(locked)

		impacts := make([]PolicyImpact, 0, len(chargeValues))
		updates := make([]BucketSnapshot, 0, len(chargeValues))
		blocked := make(map[PolicyCode]struct{})

		for _, charge := range chargeValues {
			bucket, ok := current[charge.BucketIdentity]
			if !ok {
				return fmt.Errorf("missing locked bucket for %s", charge.CanonicalKey())
			}

			refilled := ApplyContinuousRefill(bucket.Tokens, bucket.LastRefillAt, RateConfig{
				Capacity:        charge.Capacity,
				RefillPerSecond: charge.RefillPerSecond,
			}, now)

			if charge.Cost > 0 && !HasEnoughTokens(refilled.Tokens, charge.Cost) {
				blocked[charge.PolicyCode] = struct{}{}
			}

			impacts = append(impacts, PolicyImpact{
				PolicyCode:      charge.PolicyCode,
				ScopeType:       charge.ScopeType,
				ScopeKey:        charge.ScopeKey,
				CostApplied:     charge.Cost,
				TokensBefore:    refilled.Tokens,
				TokensAfter:     refilled.Tokens,
				Capacity:        charge.Capacity,
				RefillPerSecond: charge.RefillPerSecond,
			})
			updates = append(updates, BucketSnapshot{
				BucketIdentity: charge.BucketIdentity,
				Tokens:         refilled.Tokens,
				LastRefillAt:   refilled.LastRefillAt,
			})
		}

		allowed := len(blocked) == 0
		if allowed {
			for i := range impacts {
				impacts[i].TokensAfter = DebitTokens(impacts[i].TokensBefore, impacts[i].CostApplied)
				updates[i].Tokens = impacts[i].TokensAfter
			}
		}

		if err := tx.SaveBuckets(ctx, updates); err != nil {
			return err
		}

		httpStatus := input.SimulatedStatusCode
		if !allowed {
			httpStatus = 429
		}

		blockedByPolicies := make([]PolicyCode, 0, len(blocked))
		for code := range blocked {
			blockedByPolicies = append(blockedByPolicies, code)
		}
		sort.Slice(blockedByPolicies, func(i, j int) bool {
			return blockedByPolicies[i] < blockedByPolicies[j]
		})

		auditPayload := input
		if input.PayerID != nil {
			auditPayload.PayerID = &normalizedPayerID
		}
		attemptID, err := tx.CreateOperationAttempt(ctx, OperationAttempt{
			TenantID:            caller.TenantID,
			Operation:           input.Operation,
			SimulatedStatusCode: input.SimulatedStatusCode,
			Allowed:             allowed,
			HTTPStatus:          httpStatus,
			RequestPayload:      auditPayload,
		})
		if err != nil {
			return err
		}
		if err := tx.CreateOperationImpacts(ctx, attemptID, impacts); err != nil {
			return err
		}

		if allowed && input.Operation == OpGetEntry &&
			normalizedPayerID != "" && input.KeyType != nil && input.EndToEndID != nil {
			if err := tx.CreateEntryLookupTrace(ctx, EntryLookupTrace{
				TenantID:            caller.TenantID,
				PayerID:             normalizedPayerID,
				KeyType:             *input.KeyType,
				EndToEndID:          *input.EndToEndID,
				SimulatedStatusCode: input.SimulatedStatusCode,
				EligibleForCredit:   input.SimulatedStatusCode == 200,
			}); err != nil {
				return err
			}
		}

		s.logger.Info("DICT rate limit evaluated",
			zap.String("tenantId", caller.TenantID),
			zap.String("operation", string(input.Operation)),
			zap.Int("simulatedStatusCode", input.SimulatedStatusCode),
			zap.Int("httpStatus", httpStatus),
			zap.Bool("allowed", allowed),
		)

		result = &SimulateOperationResult{
			Allowed:           allowed,
			HTTPStatus:        httpStatus,
			BlockedByPolicies: blockedByPolicies,
			Impacts:           impacts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RegisterPaymentSent refunds the anti-scan buckets charged for a previous
// successful GET_ENTRY lookup. The payment-credit row is claimed inside the
// same lock as the credit, so concurrent registrations for one payment yield
// exactly one CREDIT_APPLIED.
func (s *RateLimitService) RegisterPaymentSent(ctx context.Context, caller Caller, input RegisterPaymentSentInput) (*RegisterPaymentSentResult, error) {
	normalizedPayerID := NormalizePayerID(input.PayerID)
	finalUserCategory, err := ResolveFinalUserCategory(normalizedPayerID)
	if err != nil {
		return nil, err
	}

	eligible, err := s.repo.HasEligibleEntryLookupTrace(ctx, EntryLookupTraceQuery{
		TenantID:   caller.TenantID,
		PayerID:    normalizedPayerID,
		KeyType:    input.KeyType,
		EndToEndID: input.EndToEndID,
	})
	if err != nil {
		return nil, err
	}
	if !eligible {
		return &RegisterPaymentSentResult{
			Credited: false,
			Reason:   ReasonEntryLookupNotEligible,
			Impacts:  []PolicyImpact{},
		}, nil
	}

	now := s.clock.Now()
	userPolicy := ResolveUserAntiScanPolicy(input.KeyType)
	rateCtx := RateContext{
		FinalUserCategory:   finalUserCategory,
		ParticipantCategory: caller.ParticipantCategory,
	}

	userRate, err := ResolveRateConfig(userPolicy, rateCtx)
	if err != nil {
		return nil, err
	}
	pspRate, err := ResolveRateConfig(PolicyEntriesReadParticipantAntiscan, rateCtx)
	if err != nil {
		return nil, err
	}

	charges := []Charge{
		{
			BucketIdentity: BucketIdentity{
				PolicyCode: userPolicy,
				ScopeType:  ScopeUser,
				ScopeKey:   caller.TenantID + ":" + normalizedPayerID,
			},
			Capacity:        userRate.Capacity,
			RefillPerSecond: userRate.RefillPerSecond,
			Cost:            -float64(UserCreditAmount(finalUserCategory)),
		},
		{
			BucketIdentity: BucketIdentity{
				PolicyCode: PolicyEntriesReadParticipantAntiscan,
				ScopeType:  ScopePSP,
				ScopeKey:   caller.TenantID,
			},
			Capacity:        pspRate.Capacity,
			RefillPerSecond: pspRate.RefillPerSecond,
			Cost:            -float64(ParticipantCreditAmount()),
		},
	}

	var result *RegisterPaymentSentResult
	err = s.repo.WithLockedBuckets(ctx, locksForCharges(charges), func(ctx context.Context, tx Tx) error {
		locked, err := tx.LockedBuckets(ctx)
		if err != nil {
			return err
		}
		current := bucketMap(locked)

		impacts := make([]PolicyImpact, 0, len(charges))
		updates := make([]BucketSnapshot, 0, len(charges))

		for _, charge := range charges {
			bucket, ok := current[charge.BucketIdentity]
			if !ok {
				return fmt.Errorf("missing locked bucket for %s", charge.CanonicalKey())
			}

			refilled := ApplyContinuousRefill(bucket.Tokens, bucket.LastRefillAt, RateConfig{
				Capacity:        charge.Capacity,
				RefillPerSecond: charge.RefillPerSecond,
			}, now)

			tokensAfter := CreditTokens(refilled.Tokens, -charge.Cost, charge.Capacity)

			impacts = append(impacts, PolicyImpact{
				PolicyCode:      charge.PolicyCode,
				ScopeType:       charge.ScopeType,
				ScopeKey:        charge.ScopeKey,
				CostApplied:     charge.Cost,
				TokensBefore:    refilled.Tokens,
				TokensAfter:     tokensAfter,
				Capacity:        charge.Capacity,
				RefillPerSecond: charge.RefillPerSecond,
			})
			updates = append(updates, BucketSnapshot{
				BucketIdentity: charge.BucketIdentity,
				Tokens:         tokensAfter,
				LastRefillAt:   refilled.LastRefillAt,
			})
		}

		created, err := tx.CreatePaymentCredit(ctx, PaymentCredit{
			TenantID:      caller.TenantID,
			PayerID:       normalizedPayerID,
			KeyType:       input.KeyType,
			EndToEndID:    input.EndToEndID,
			ImpactPayload: impacts,
		})
		if err != nil {
			return err
		}
		if !created {
			result = &RegisterPaymentSentResult{
				Credited: false,
				Reason:   ReasonPaymentAlreadyRegistered,
				Impacts:  []PolicyImpact{},
			}
			return nil
		}

		if err := tx.SaveBuckets(ctx, updates); err != nil {
			return err
		}

		s.logger.Info("DICT payment credit applied",
			zap.String("tenantId", caller.TenantID),
			zap.String("payerId", normalizedPayerID),
			zap.String("keyType", string(input.KeyType)),
			zap.String("endToEndId", input.EndToEndID),
		)

		result = &RegisterPaymentSentResult{
			Credited: true,
			Reason:   ReasonCreditApplied,
			Impacts:  impacts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetBucketState projects one bucket to "now" without persisting the refill.
// The caller must own the requested scope key.
func (s *RateLimitService) GetBucketState(ctx context.Context, caller Caller, identity BucketIdentity) (*BucketState, error) {
	if err := ensureScopeOwnership(caller, identity.ScopeType, identity.ScopeKey); err != nil {
		return nil, err
	}

	bucket, err := s.repo.BucketState(ctx, identity)
	if err != nil {
		return nil, err
	}
	if bucket == nil {
		return nil, nil
	}

	rate, err := s.rateConfigForStoredBucket(caller, bucket.BucketIdentity)
	if err != nil {
		return nil, err
	}
	state := projectBucketState(*bucket, rate, s.clock.Now())
	return &state, nil
}

// ListBucketStates projects every bucket owned by the caller's tenant.
func (s *RateLimitService) ListBucketStates(ctx context.Context, caller Caller, filter BucketListFilter) ([]BucketState, error) {
	buckets, err := s.repo.ListBucketStates(ctx, caller.TenantID, filter)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	states := make([]BucketState, 0, len(buckets))
	for _, bucket := range buckets {
		rate, err := s.rateConfigForStoredBucket(caller, bucket.BucketIdentity)
		if err != nil {
			return nil, err
		}
		states = append(states, projectBucketState(bucket, rate, now))
	}
	return states, nil
}

// rateConfigForStoredBucket re-derives a stored bucket's effective rate from
// the catalog and the caller's current context. For USER-scoped buckets the
// payer id is recovered from the scope key.
func (s *RateLimitService) rateConfigForStoredBucket(caller Caller, identity BucketIdentity) (RateConfig, error) {
	def, err := GetPolicyDefinition(identity.PolicyCode)
	if err != nil {
		return RateConfig{}, err
	}

	rateCtx := RateContext{ParticipantCategory: caller.ParticipantCategory}
	if def.ScopeType == ScopeUser {
		prefix := caller.TenantID + ":"
		if !hasTenantPrefix(identity.ScopeKey, caller.TenantID) {
			return RateConfig{}, NewValidationError("invalid USER scope key for this tenant")
		}
		category, err := ResolveFinalUserCategory(identity.ScopeKey[len(prefix):])
		if err != nil {
			return RateConfig{}, err
		}
		rateCtx.FinalUserCategory = category
	}

	return ResolveRateConfig(identity.PolicyCode, rateCtx)
}

func projectBucketState(bucket BucketSnapshot, rate RateConfig, now time.Time) BucketState {
	refilled := ApplyContinuousRefill(bucket.Tokens, bucket.LastRefillAt, rate, now)
	return BucketState{
		BucketIdentity:  bucket.BucketIdentity,
		Tokens:          refilled.Tokens,
		Capacity:        rate.Capacity,
		RefillPerSecond: rate.RefillPerSecond,
		LastRefillAt:    refilled.LastRefillAt,
	}
}
