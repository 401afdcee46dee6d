// Package fees looks up court fees from the fees-and-payments service and
// attaches them to a step render.
package fees

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Fee codes displayed by the respondent journey.
const (
	CodePetitionIssue           = "petition-issue-fee"
	CodeGeneralApplication      = "general-application-fee"
	CodeFinancialOrder          = "application-financial-order-fee"
	CodeAmend                   = "amend-fee"
	CodeDefendedPetition        = "defended-petition-fee"
	CodeDefendDivorcePayService = "DefendDivorcePayService"
)

// Fee is one fee as returned by the fee service.
type Fee struct {
	FeeCode     string  `json:"feeCode"`
	Version     int     `json:"version"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// DisplayAmount renders the amount without a currency symbol, dropping the
// pence when the amount is whole.
func (f Fee) DisplayAmount() string {
	if f.Amount == float64(int64(f.Amount)) {
		return strconv.FormatInt(int64(f.Amount), 10)
	}
	return strconv.FormatFloat(f.Amount, 'f', 2, 64)
}

// Lookup fetches a single fee by code.
type Lookup interface {
	Get(ctx context.Context, code string) (Fee, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, code string) (Fee, error)

// Get calls f.
func (f LookupFunc) Get(ctx context.Context, code string) (Fee, error) {
	return f(ctx, code)
}

// Annotations are the fees fetched for one render, keyed by code.
type Annotations map[string]Fee

// Amount returns the display amount for code, or "" when it was not fetched.
func (a Annotations) Amount(code string) string {
	f, ok := a[code]
	if !ok {
		return ""
	}
	return f.DisplayAmount()
}

// Annotate fetches every distinct code concurrently and waits for all of
// them. The first failure cancels the outstanding lookups and is returned;
// no partial result is ever produced.
func Annotate(ctx context.Context, lookup Lookup, codes []string) (Annotations, error) {
	distinct := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if !seen[code] {
			seen[code] = true
			distinct = append(distinct, code)
		}
	}
	if len(distinct) == 0 {
		return Annotations{}, nil
	}

	results := make([]Fee, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	for i, code := range distinct {
		g.Go(func() error {
			fee, err := lookup.Get(gctx, code)
			if err != nil {
				return fmt.Errorf("fee %s: %w", code, err)
			}
			results[i] = fee
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(Annotations, len(distinct))
	for i, code := range distinct {
		out[code] = results[i]
	}
	return out, nil
}
