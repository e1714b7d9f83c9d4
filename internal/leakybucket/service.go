package leakybucket

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dict-gateway/go/internal/clock"
)

// LookupResult is what a key lookup reports back to the quota gate.
type LookupResult struct {
	Success       bool
	PixKeyFound   bool
	OwnerName     string
	BankName      string
	FailureReason string
	Message       string
}

// KeyLookup resolves a Pix key inside the quota transaction.
type KeyLookup interface {
	QueryPixKey(ctx context.Context, tx Tx, pixKey string) (LookupResult, error)
}

// Service is the PIX query-quota gate: one bucket per tenant, hourly
// discrete refill, and a token consumed only when a lookup fails. An empty
// bucket rejects the query without performing the lookup.
type Service struct {
	repo   Repository
	lookup KeyLookup
	logger *zap.Logger
	clock  clock.Clock
}

// NewService wires the quota gate. A nil clock defaults to system time.
func NewService(repo Repository, lookup KeyLookup, logger *zap.Logger, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, lookup: lookup, logger: logger, clock: clk}
}

func refillChanged(current, next BucketSnapshot) bool {
	return current.AvailableTokens != next.AvailableTokens ||
		!current.LastRefillAt.Equal(next.LastRefillAt)
}

// normalizeAmount records amounts as fixed two-decimal strings.
func normalizeAmount(amountCents int64) string {
	return fmt.Sprintf("%d.%02d", amountCents/100, amountCents%100)
}

// GetBucketState refills (persisting the result) and returns the bucket.
func (s *Service) GetBucketState(ctx context.Context, tenantID string) (*BucketStateResult, error) {
	var result *BucketStateResult
	err := s.repo.WithTenantLock(ctx, tenantID, func(ctx context.Context, tx Tx) error {
		bucket, err := tx.GetBucket(ctx)
		if err != nil {
			return err
		}

		refilled := ApplyHourlyRefill(bucket, s.clock.Now())
		if refillChanged(bucket, refilled) {
			bucket, err = tx.SaveBucket(ctx, refilled.AvailableTokens, refilled.LastRefillAt)
			if err != nil {
				return err
			}
		}

		result = &BucketStateResult{
			AvailableTokens: bucket.AvailableTokens,
			MaxTokens:       bucket.MaxTokens,
			LastRefillAt:    bucket.LastRefillAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryPixKey runs one quota-gated lookup:
// empty bucket rejects without lookup or debit; a successful lookup is free;
// a failed lookup (missing or inactive key) debits exactly one token,
// floored at zero. Every path records an attempt.
func (s *Service) QueryPixKey(ctx context.Context, tenantID string, input QueryPixKeyInput) (*QueryResult, error) {
	requestedAt := s.clock.Now()

	var result *QueryResult
	err := s.repo.WithTenantLock(ctx, tenantID, func(ctx context.Context, tx Tx) error {
		bucket, err := tx.GetBucket(ctx)
		if err != nil {
			return err
		}

		refilled := ApplyHourlyRefill(bucket, requestedAt)
		if refillChanged(bucket, refilled) {
			bucket, err = tx.SaveBucket(ctx, refilled.AvailableTokens, refilled.LastRefillAt)
			if err != nil {
				return err
			}
		}

		tokensBefore := bucket.AvailableTokens

		if tokensBefore <= 0 {
			if err := tx.CreateAttempt(ctx, QueryAttempt{
				TenantID:      tenantID,
				PixKey:        input.PixKey,
				Amount:        normalizeAmount(input.AmountCents),
				Result:        StatusRateLimited,
				FailureReason: ReasonNoAvailableTokens,
				TokensBefore:  tokensBefore,
				TokensAfter:   tokensBefore,
				CreatedAt:     requestedAt,
			}); err != nil {
				return err
			}

			s.logger.Info("Pix query rate limited",
				zap.String("tenantId", tenantID),
				zap.Int("tokensBefore", tokensBefore),
			)

			result = &QueryResult{
				Status:          StatusRateLimited,
				Message:         "No query tokens available. Try again later.",
				PixKeyFound:     false,
				AvailableTokens: tokensBefore,
				MaxTokens:       bucket.MaxTokens,
				ConsumedToken:   false,
				RequestedAt:     requestedAt,
			}
			return nil
		}

		lookup, err := s.lookup.QueryPixKey(ctx, tx, input.PixKey)
		if err != nil {
			return err
		}

		if lookup.Success {
			if err := tx.CreateAttempt(ctx, QueryAttempt{
				TenantID:     tenantID,
				PixKey:       input.PixKey,
				Amount:       normalizeAmount(input.AmountCents),
				Result:       StatusSuccess,
				TokensBefore: tokensBefore,
				TokensAfter:  tokensBefore,
				CreatedAt:    requestedAt,
			}); err != nil {
				return err
			}

			s.logger.Info("Pix query processed successfully",
				zap.String("tenantId", tenantID),
				zap.Int("tokensBefore", tokensBefore),
			)

			result = &QueryResult{
				Status:          StatusSuccess,
				Message:         lookup.Message,
				PixKeyFound:     true,
				OwnerName:       lookup.OwnerName,
				BankName:        lookup.BankName,
				AvailableTokens: tokensBefore,
				MaxTokens:       bucket.MaxTokens,
				ConsumedToken:   false,
				RequestedAt:     requestedAt,
			}
			return nil
		}

		tokensAfter := tokensBefore - 1
		if tokensAfter < 0 {
			tokensAfter = 0
		}

		bucket, err = tx.SaveBucket(ctx, tokensAfter, bucket.LastRefillAt)
		if err != nil {
			return err
		}

		if err := tx.CreateAttempt(ctx, QueryAttempt{
			TenantID:      tenantID,
			PixKey:        input.PixKey,
			Amount:        normalizeAmount(input.AmountCents),
			Result:        StatusFailed,
			FailureReason: lookup.FailureReason,
			TokensBefore:  tokensBefore,
			TokensAfter:   bucket.AvailableTokens,
			CreatedAt:     requestedAt,
		}); err != nil {
			return err
		}

		s.logger.Info("Pix query failed and consumed one token",
			zap.String("tenantId", tenantID),
			zap.String("failureReason", lookup.FailureReason),
			zap.Int("tokensBefore", tokensBefore),
			zap.Int("tokensAfter", bucket.AvailableTokens),
		)

		result = &QueryResult{
			Status:          StatusFailed,
			Message:         lookup.Message,
			PixKeyFound:     lookup.PixKeyFound,
			OwnerName:       lookup.OwnerName,
			BankName:        lookup.BankName,
			AvailableTokens: bucket.AvailableTokens,
			MaxTokens:       bucket.MaxTokens,
			ConsumedToken:   true,
			RequestedAt:     requestedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
