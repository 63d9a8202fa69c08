package database

import (
	"context"
	"fmt"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

const defaultBatchSize = 500

// Runner is the query surface GraphStore needs; *Neo4jClient implements it.
type Runner interface {
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// GraphStore keeps historical orders and published bundle rules in Neo4j.
//
// Graph shape:
//
//	(:Order {order_id, source})-[:HAS_ITEM]->(:Item {sku})
//	(:Item)-[:BUNDLES_WITH {analysis_id, rule, confidence, lift, support}]->(:Item)
type GraphStore struct {
	client    Runner
	log       *logger.Logger
	batchSize int
}

func NewGraphStore(client Runner, log *logger.Logger) *GraphStore {
	return &GraphStore{
		client:    client,
		log:       logger.OrNop(log).With("component", "GraphStore"),
		batchSize: defaultBatchSize,
	}
}

// EnsureSchema creates the uniqueness constraints the MERGE statements rely on.
func (s *GraphStore) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{
		`CREATE CONSTRAINT order_id_unique IF NOT EXISTS FOR (o:Order) REQUIRE o.order_id IS UNIQUE`,
		`CREATE CONSTRAINT item_sku_unique IF NOT EXISTS FOR (i:Item) REQUIRE i.sku IS UNIQUE`,
	} {
		if _, err := s.client.ExecuteWrite(ctx, q, nil); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// ImportHistoricalLog merges every order of h and its items, tagging orders with source.
// It returns the number of orders written.
func (s *GraphStore) ImportHistoricalLog(ctx context.Context, h *eclat.HistoricalLog, source string) (int, error) {
	query := `
		UNWIND $rows AS r
		MERGE (o:Order {order_id: r.order_id})
		SET o.source = $source
		WITH o, r
		UNWIND r.items AS sku
		MERGE (i:Item {sku: sku})
		MERGE (o)-[:HAS_ITEM]->(i)
		RETURN count(DISTINCT o) AS imported_orders
	`

	orders := h.Orders()
	imported := 0
	for start := 0; start < len(orders); start += s.batchSize {
		end := min(start+s.batchSize, len(orders))
		rows := make([]map[string]any, 0, end-start)
		for _, o := range orders[start:end] {
			rows = append(rows, map[string]any{
				"order_id": o.OrderID,
				"items":    []string(o.Items),
			})
		}

		results, err := s.client.ExecuteWrite(ctx, query, map[string]any{"rows": rows, "source": source})
		if err != nil {
			return imported, fmt.Errorf("failed to import orders %d-%d: %w", start, end, err)
		}
		if len(results) > 0 {
			imported += asInt(results[0]["imported_orders"])
		}
	}

	s.log.Info("historical orders imported", "source", source, "orders", imported)
	return imported, nil
}

// LoadOrderHistory rebuilds a historical log from the graph. An empty source loads every order.
func (s *GraphStore) LoadOrderHistory(ctx context.Context, source string) (*eclat.HistoricalLog, error) {
	query := `
		MATCH (o:Order)-[:HAS_ITEM]->(i:Item)
		WHERE $source = '' OR o.source = $source
		RETURN o.order_id AS order_id, collect(i.sku) AS items
		ORDER BY order_id
	`

	results, err := s.client.ExecuteRead(ctx, query, map[string]any{"source": source})
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}

	h := eclat.NewHistoricalLog()
	for _, r := range results {
		id, _ := r["order_id"].(string)
		if id == "" {
			continue
		}
		h.Add(id, asStrings(r["items"])...)
	}
	s.log.Info("order history loaded", "source", source, "orders", h.Len())
	return h, nil
}

// PublishRules writes one BUNDLES_WITH edge per antecedent item and consequent item of every
// rule, scoped by analysisID. It returns the number of edges written.
func (s *GraphStore) PublishRules(ctx context.Context, analysisID string, rules []eclat.AssociationRule) (int, error) {
	query := `
		UNWIND $rows AS r
		MERGE (a:Item {sku: r.from})
		MERGE (b:Item {sku: r.to})
		MERGE (a)-[e:BUNDLES_WITH {analysis_id: $analysis_id, rule: r.rule}]->(b)
		SET e.confidence = r.confidence,
		    e.lift = r.lift,
		    e.support = r.support
		RETURN count(e) AS published
	`

	var rows []map[string]any
	for _, r := range rules {
		for _, from := range r.Antecedent {
			for _, to := range r.Consequent {
				rows = append(rows, map[string]any{
					"from":       from,
					"to":         to,
					"rule":       r.Rule(),
					"confidence": r.Confidence,
					"lift":       r.Lift,
					"support":    r.ItemsetSupport,
				})
			}
		}
	}

	published := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		results, err := s.client.ExecuteWrite(ctx, query, map[string]any{
			"rows":        rows[start:end],
			"analysis_id": analysisID,
		})
		if err != nil {
			return published, fmt.Errorf("failed to publish rules: %w", err)
		}
		if len(results) > 0 {
			published += asInt(results[0]["published"])
		}
	}

	s.log.Info("rules published", "analysis_id", analysisID, "rules", len(rules), "edges", published)
	return published, nil
}

// ImportStatus returns the current state of the database
func (s *GraphStore) ImportStatus(ctx context.Context) (map[string]int, error) {
	query := `
		RETURN COUNT { MATCH (o:Order) } AS orders,
		       COUNT { MATCH (i:Item) } AS items,
		       COUNT { MATCH ()-[:HAS_ITEM]->() } AS has_item,
		       COUNT { MATCH ()-[:BUNDLES_WITH]->() } AS bundles_with
	`

	results, err := s.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read import status: %w", err)
	}

	status := map[string]int{"orders": 0, "items": 0, "has_item": 0, "bundles_with": 0}
	if len(results) == 0 {
		return status, nil
	}
	for k := range status {
		status[k] = asInt(results[0][k])
	}
	return status, nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asStrings(v any) []string {
	switch xs := v.(type) {
	case []string:
		return xs
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
