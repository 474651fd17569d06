package businessflow

import (
	"context"
	"log"

	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/repository"
	"github.com/lib/pq"
)

// Audience targeting is an optimization, not a correctness requirement of
// publishing, so resolution failures degrade to an empty result.
const maxResolvedIdentifiers = 1000000

// AudienceResolver maps internal segment identifiers to the external-facing
// identifiers handed to custom-audience creation
type AudienceResolver interface {
	Resolve(ctx context.Context, segmentIDs []int64) []string
}

// AudienceResolverImpl implements AudienceResolver against the candidate store
type AudienceResolverImpl struct {
	candidateRepo repository.CandidateRepository
	logger        *log.Logger
}

// NewAudienceResolver creates a new audience resolver instance
func NewAudienceResolver(candidateRepo repository.CandidateRepository, logger *log.Logger) AudienceResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &AudienceResolverImpl{candidateRepo: candidateRepo, logger: logger}
}

// Resolve returns the de-duplicated external identifiers of candidates
// belonging to any of the given segments. It never returns an error: an
// empty list is the answer both for unconfigured segments and for lookup
// failures.
func (r *AudienceResolverImpl) Resolve(ctx context.Context, segmentIDs []int64) []string {
	if len(segmentIDs) == 0 {
		return nil
	}

	segments := pq.Int64Array(segmentIDs)
	filter := models.CandidateFilter{SegmentIDs: &segments}

	rows, err := r.candidateRepo.ByFilter(ctx, filter, "id ASC", maxResolvedIdentifiers, 0)
	if err != nil {
		r.logger.Printf("audience: segment lookup failed for segments=%v: %v", segmentIDs, err)
		return nil
	}

	seen := make(map[string]bool, len(rows))
	identifiers := make([]string, 0, len(rows))
	for _, c := range rows {
		if c == nil || c.ExternalIdentifier == nil || *c.ExternalIdentifier == "" {
			continue
		}
		if seen[*c.ExternalIdentifier] {
			continue
		}
		seen[*c.ExternalIdentifier] = true
		identifiers = append(identifiers, *c.ExternalIdentifier)
	}
	return identifiers
}
