package tenantdb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// sampleSize bounds the offending-document ids included per audit issue.
const sampleSize = 5

// BackfillTenant assigns defaultTenant to every document in every
// tenant-scoped collection that lacks a tenant_id, stamping updated_at, and
// returns the number of documents changed per collection. It runs under
// system mode internally; it is by definition a cross-tenant operation.
// Running it twice backfills nothing the second time.
func (db *DB) BackfillTenant(ctx context.Context, defaultTenant string) (map[string]int64, error) {
	if defaultTenant == "" {
		return nil, errors.New("backfill: default tenant id is empty")
	}
	counts := make(map[string]int64)
	err := RunAsSystem(ctx, func(ctx context.Context) error {
		missing := bson.M{TenantField: bson.M{"$exists": false}}
		for _, name := range db.registry.TenantCollections() {
			update := bson.M{"$set": bson.M{
				TenantField:  defaultTenant,
				UpdatedField: db.clock.Now(),
			}}
			res, err := db.store.UpdateMany(ctx, name, missing, update)
			if err != nil {
				return err
			}
			counts[name] = res.ModifiedCount
			db.log.Info().
				Str("collection", name).
				Str("tenant", defaultTenant).
				Int64("backfilled", res.ModifiedCount).
				Msg("tenant backfill")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// IssueKind classifies an isolation defect found by Audit.
type IssueKind string

const (
	// IssueMismatch marks documents tagged with a tenant other than the one
	// audited. Informational for a per-tenant view; a defect only if those
	// documents were reachable from this tenant's queries.
	IssueMismatch IssueKind = "mismatch"
	// IssueMissing marks documents with no tenant_id at all. Always a defect.
	IssueMissing IssueKind = "missing"
)

// IsolationIssue is one finding within an IsolationReport.
type IsolationIssue struct {
	Collection string
	Kind       IssueKind
	Count      int64
	// SampleIDs holds up to five offending _id values for triage.
	SampleIDs []any
}

// IsolationReport is the result of scanning every tenant-scoped collection
// for documents that cross or escape the audited tenant's boundary.
type IsolationReport struct {
	Tenant string
	Issues []IsolationIssue
}

// Clean reports whether the audit found nothing at all.
func (r *IsolationReport) Clean() bool { return len(r.Issues) == 0 }

// Audit scans every tenant-scoped collection for documents whose tenant_id
// differs from tenantID or is missing entirely, under system mode. The
// report carries a bounded sample of offending ids per issue.
func (db *DB) Audit(ctx context.Context, tenantID string) (*IsolationReport, error) {
	report := &IsolationReport{Tenant: tenantID}
	err := RunAsSystem(ctx, func(ctx context.Context) error {
		filters := []struct {
			kind   IssueKind
			filter bson.M
		}{
			{IssueMismatch, bson.M{TenantField: bson.M{"$exists": true, "$ne": tenantID}}},
			{IssueMissing, bson.M{TenantField: bson.M{"$exists": false}}},
		}
		for _, name := range db.registry.TenantCollections() {
			for _, f := range filters {
				issue, err := db.auditCollection(ctx, name, f.kind, f.filter)
				if err != nil {
					return err
				}
				if issue != nil {
					report.Issues = append(report.Issues, *issue)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (db *DB) auditCollection(ctx context.Context, name string, kind IssueKind, filter bson.M) (*IsolationIssue, error) {
	count, err := db.store.Count(ctx, name, filter)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	sample, err := db.store.Find(ctx, name, filter, FindOptions{Limit: sampleSize})
	if err != nil {
		return nil, err
	}
	ids := make([]any, 0, len(sample))
	for _, doc := range sample {
		ids = append(ids, doc["_id"])
	}
	db.log.Warn().
		Str("collection", name).
		Str("kind", string(kind)).
		Int64("count", count).
		Msg("isolation audit finding")
	return &IsolationIssue{Collection: name, Kind: kind, Count: count, SampleIDs: ids}, nil
}
