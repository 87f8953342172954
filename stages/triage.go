package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmalone87/gatepipe/pipeline"
)

// Triage buckets. Summary output lists them in this order.
var triageBuckets = []string{"urgent", "unread", "read"}

// Triage returns a stage that classifies mail-like records (maps with a
// "subject" string and an "unread" boolean) into buckets: a subject
// containing "urgent" (case-insensitive) wins over everything, otherwise
// unread records go to "unread" and the rest to "read". The bucket name is
// written to the record's "bucket" field.
func Triage() pipeline.Stage {
	return Transform(func(ctx context.Context, it pipeline.Item) (pipeline.Item, error) {
		rec, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("triage: expected map record, got %T", it)
		}
		out := make(map[string]any, len(rec)+1)
		for k, v := range rec {
			out[k] = v
		}
		out["bucket"] = classify(rec)
		return out, nil
	})
}

func classify(rec map[string]any) string {
	subject, _ := rec["subject"].(string)
	if strings.Contains(strings.ToLower(subject), "urgent") {
		return "urgent"
	}
	if unread, _ := rec["unread"].(bool); unread {
		return "unread"
	}
	return "read"
}

// BucketSummary returns an aggregation stage that appends a summary record
// after the classified records: per-bucket membership plus a
// human-readable count line with buckets in fixed order, e.g.
// "urgent: 1, unread: 1, read: 1".
func BucketSummary() pipeline.Stage {
	return Aggregate(func(ctx context.Context, items []pipeline.Item) ([]pipeline.Item, error) {
		counts := map[string]int{}
		members := map[string][]pipeline.Item{}
		for _, it := range items {
			rec, ok := it.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("bucket summary: expected map record, got %T", it)
			}
			bucket, _ := rec["bucket"].(string)
			if bucket == "" {
				bucket = classify(rec)
			}
			counts[bucket]++
			members[bucket] = append(members[bucket], it)
		}
		parts := make([]string, 0, len(triageBuckets))
		buckets := make(map[string]any, len(triageBuckets))
		for _, b := range triageBuckets {
			parts = append(parts, fmt.Sprintf("%s: %d", b, counts[b]))
			buckets[b] = members[b]
		}
		summary := map[string]any{
			"summary": strings.Join(parts, ", "),
			"buckets": buckets,
		}
		return append(items, summary), nil
	})
}
