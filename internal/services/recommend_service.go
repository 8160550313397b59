// Package services – RecommendationService
//
// This file implements the RecommendationService, which proposes books to a
// user based on purchase overlap with other users. For every other user with
// purchase history it computes the Jaccard similarity between owned-book
// sets, walks neighbours from most to least similar, and accumulates books
// the user does not already own.
//
// The computation is purely read-time: it never mutates inventory or
// purchase state, may run concurrently with itself and with checkouts, and
// tolerates a slightly stale view of the history.
package services

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pvidalis/go-bookstore-backend/internal/repo"
)

// DefaultMaxRecommendations caps the result size when the caller does not
// supply a positive limit.
const DefaultMaxRecommendations = 10

// RecommendationService computes purchase-history similarity recommendations.
type RecommendationService struct {
	// DB is the GORM handle passed through to the store collaborators.
	DB *gorm.DB
	// Users resolves the requesting user.
	Users UserStore
	// History is the purchase history store the profiles are derived from.
	History PurchaseHistoryStore

	// MaxResults bounds the result size when the caller passes n <= 0.
	MaxResults int
}

// NewRecommendationService constructs a RecommendationService with the
// default result cap.
func NewRecommendationService(db *gorm.DB, users UserStore, history PurchaseHistoryStore) *RecommendationService {
	return &RecommendationService{
		DB:         db,
		Users:      users,
		History:    history,
		MaxResults: DefaultMaxRecommendations,
	}
}

// neighbour pairs another user's owned-book set with its similarity score.
type neighbour struct {
	userID     string
	books      map[string]struct{}
	similarity float64
}

// Recommend returns up to n book ids the user has not purchased, drawn from
// the most similar other users. A user with no purchase history is maximally
// dissimilar to everyone, so the result is empty. An empty result is success,
// never an error.
//
// Determinism: neighbours with equal similarity are ordered by ascending
// user id, and each neighbour's contribution is added in ascending book id
// order. The same histories always produce the same result.
func (s *RecommendationService) Recommend(ctx context.Context, userID string, n int) ([]string, error) {
	tr := otel.Tracer("services/RecommendationService")
	ctx, span := tr.Start(ctx, "Recommend",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("limit", n),
		),
	)
	defer span.End()

	if _, err := s.Users.Get(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeUnavailable("user lookup", err)
	}
	if n <= 0 {
		n = s.MaxResults
		if n <= 0 {
			n = DefaultMaxRecommendations
		}
	}

	owned, err := s.History.DistinctBookIDs(ctx, s.DB, userID)
	if err != nil {
		return nil, storeUnavailable("history read", err)
	}
	// Jaccard against an empty set is 0 for every neighbour: nobody is
	// similar, nobody contributes.
	if len(owned) == 0 {
		return []string{}, nil
	}

	candidates, err := s.History.ListUserIDsWithHistory(ctx, s.DB)
	if err != nil {
		return nil, storeUnavailable("history read", err)
	}

	neighbours := make([]neighbour, 0, len(candidates))
	for _, other := range candidates {
		if other == userID {
			continue
		}
		books, err := s.History.DistinctBookIDs(ctx, s.DB, other)
		if err != nil {
			return nil, storeUnavailable("history read", err)
		}
		neighbours = append(neighbours, neighbour{
			userID:     other,
			books:      books,
			similarity: jaccard(owned, books),
		})
	}

	// Most similar first; equal scores break by ascending user id.
	sort.Slice(neighbours, func(i, j int) bool {
		if neighbours[i].similarity != neighbours[j].similarity {
			return neighbours[i].similarity > neighbours[j].similarity
		}
		return neighbours[i].userID < neighbours[j].userID
	})

	// Accumulate unseen books. The cap is checked between neighbours, not
	// mid-neighbour: the neighbour that reaches the cap contributes all of
	// its unseen books, and the final slice is then trimmed to n.
	result := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for _, nb := range neighbours {
		if len(result) >= n {
			break
		}
		fresh := make([]string, 0, len(nb.books))
		for id := range nb.books {
			if _, own := owned[id]; own {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			fresh = append(fresh, id)
		}
		sort.Strings(fresh)
		for _, id := range fresh {
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}
	if len(result) > n {
		result = result[:n]
	}
	return result, nil
}

// jaccard computes |A ∩ B| / |A ∪ B| for two owned-book sets. Two empty sets
// score 0.0 rather than dividing by zero: users who purchased nothing are
// maximally dissimilar to everyone.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	inter := 0
	for id := range a {
		if _, ok := b[id]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
