// Package enrich adapts firmographic providers to the pipeline's enrichment
// contract.
package enrich

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/pkg/clearbit"
)

// Clearbit enriches leads with the Clearbit company and person APIs.
type Clearbit struct {
	client clearbit.Client
}

// NewClearbit wraps a Clearbit client.
func NewClearbit(c clearbit.Client) *Clearbit {
	return &Clearbit{client: c}
}

// Enrich fetches company data by domain and person data by email
// concurrently. Missing records are not errors; the corresponding map stays
// nil.
func (e *Clearbit) Enrich(ctx context.Context, domain, email string) (model.Enrichment, error) {
	var out model.Enrichment

	g, gctx := errgroup.WithContext(ctx)
	if domain != "" {
		g.Go(func() error {
			company, err := e.client.FindCompany(gctx, domain)
			if err != nil && !isMiss(err) {
				return err
			}
			out.Company = company
			return nil
		})
	}
	if email != "" {
		g.Go(func() error {
			person, err := e.client.FindPerson(gctx, email)
			if err != nil && !isMiss(err) {
				return err
			}
			out.Person = person
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.Enrichment{}, err
	}

	zap.L().Debug("enrich: clearbit lookup complete",
		zap.String("domain", domain),
		zap.Bool("company", len(out.Company) > 0),
		zap.Bool("person", len(out.Person) > 0),
	)
	return out, nil
}

func isMiss(err error) bool {
	return errors.Is(err, clearbit.ErrNotFound) || errors.Is(err, clearbit.ErrPending)
}
