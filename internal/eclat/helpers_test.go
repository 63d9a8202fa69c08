package eclat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
)

// buildTransactions numbers raw baskets T1..Tn.
func buildTransactions(baskets ...[]string) []eclat.Transaction {
	out := make([]eclat.Transaction, 0, len(baskets))
	for i, b := range baskets {
		out = append(out, eclat.NewTransaction(i+1, b...))
	}
	return out
}

// distinctItems lists every item present in the baskets.
func distinctItems(txs []eclat.Transaction) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tx := range txs {
		for _, it := range tx.Items {
			if _, ok := seen[it]; !ok {
				seen[it] = struct{}{}
				out = append(out, it)
			}
		}
	}
	return out
}

func mine(t *testing.T, txs []eclat.Transaction, minSupport float64) *eclat.Lattice {
	t.Helper()
	m := eclat.NewMiner(nil, eclat.MinerConfig{})
	lat, err := m.Mine(context.Background(), txs, distinctItems(txs), minSupport)
	require.NoError(t, err)
	require.NotNil(t, lat)
	return lat
}

func findRule(rules []eclat.AssociationRule, antecedent, consequent eclat.Itemset) (eclat.AssociationRule, bool) {
	for _, r := range rules {
		if r.Antecedent.Equal(antecedent) && r.Consequent.Equal(consequent) {
			return r, true
		}
	}
	return eclat.AssociationRule{}, false
}

// groceryBaskets is a small dataset deep enough to produce 3- and 4-itemsets.
func groceryBaskets() []eclat.Transaction {
	return buildTransactions(
		[]string{"bread", "milk", "eggs", "butter"},
		[]string{"bread", "milk", "eggs"},
		[]string{"bread", "milk", "butter"},
		[]string{"milk", "eggs", "butter"},
		[]string{"bread", "eggs", "butter", "jam"},
		[]string{"bread", "milk", "eggs", "butter", "jam"},
		[]string{"milk", "jam"},
		[]string{"bread", "milk"},
		[]string{"eggs"},
		[]string{"bread", "milk", "eggs", "butter"},
	)
}
