package models

// Recommendation is an item suggested for a cart, with the rule that produced it.
type Recommendation struct {
	Item        string  `json:"item"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Lift        float64 `json:"lift"`
	Explanation string  `json:"explanation"`
	Rule        string  `json:"rule"`
}
