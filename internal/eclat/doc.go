// Package eclat mines frequent itemsets from order transactions and turns them into
// bundle association rules.
//
// The pipeline is strictly forward:
//
//	Miner.Mine           transactions -> Lattice (one Level per itemset size, TID-list indexed)
//	Synthesizer.Synthesize  Lattice -> []AssociationRule (support, confidence, lift)
//	FilterRules / DeduplicateRules / SortRules
//	Validator.Enhance    two-item rules + unsold items + HistoricalLog -> []EnhancedRule
//
// Nothing in this package performs I/O or keeps state between runs. Every value is built
// fresh for one analysis and is not mutated after construction.
package eclat
