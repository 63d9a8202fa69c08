package services

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/internal/models"
	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

// RecommendationService turns the rules of a finished analysis into cart suggestions.
type RecommendationService struct {
	log *logger.Logger
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(log *logger.Logger) *RecommendationService {
	return &RecommendationService{log: logger.OrNop(log).With("service", "RecommendationService")}
}

// RecommendForCart answers: "Once these items are in the cart, what else is bought with them?"
// A rule applies when the cart holds its whole antecedent. Every consequent item not already
// in the cart is scored by confidence x lift of the best applying rule.
func (s *RecommendationService) RecommendForCart(result *models.AnalysisResult, cart []string, limit int) []models.Recommendation {
	inCart := eclat.NewItemset(cart...)
	if result == nil || len(inCart) == 0 {
		return []models.Recommendation{}
	}

	best := make(map[string]models.Recommendation)
	for _, r := range result.Rules {
		if !inCart.ContainsAll(eclat.NewItemset(r.AntecedentItems...)) {
			continue
		}
		score := r.Confidence * r.Lift
		for _, item := range r.ConsequentItems {
			if inCart.Contains(item) {
				continue
			}
			if cur, ok := best[item]; ok && cur.Score >= score {
				continue
			}
			best[item] = models.Recommendation{
				Item:        item,
				Score:       score,
				Confidence:  r.Confidence,
				Lift:        r.Lift,
				Explanation: fmt.Sprintf("Customers who buy %s also buy %s", r.Antecedent, item),
				Rule:        r.Rule,
			}
		}
	}

	recommendations := make([]models.Recommendation, 0, len(best))
	for _, rec := range best {
		recommendations = append(recommendations, rec)
	}
	slices.SortFunc(recommendations, func(a, b models.Recommendation) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Item, b.Item)
	})
	if limit > 0 && len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	s.log.Debug("cart recommendations", "analysis_id", result.Summary.ID, "cart", inCart, "results", len(recommendations))
	return recommendations
}
