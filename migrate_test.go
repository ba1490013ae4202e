package tenantdb_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pagelens/tenantdb"
)

func TestBackfillTenantIsIdempotent(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 5; i++ {
		env.store.Seed("pages", bson.M{"url": fmt.Sprintf("/page-%d", i)})
	}
	env.store.Seed("pages", bson.M{"url": "/tagged", "tenant_id": "T1"})

	counts, err := env.db.BackfillTenant(context.Background(), "default")
	require.NoError(t, err)
	assert.EqualValues(t, 5, counts["pages"])
	assert.EqualValues(t, 0, counts["projects"])

	for _, doc := range env.store.Dump("pages") {
		require.Contains(t, doc, "tenant_id")
		if doc["url"] == "/tagged" {
			assert.Equal(t, "T1", doc["tenant_id"])
		} else {
			assert.Equal(t, "default", doc["tenant_id"])
			assert.Equal(t, env.clock.Now(), doc["updated_at"])
		}
	}

	counts, err = env.db.BackfillTenant(context.Background(), "default")
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts["pages"])
}

func TestBackfillRejectsEmptyTenant(t *testing.T) {
	env := newTestEnv()
	_, err := env.db.BackfillTenant(context.Background(), "")
	assert.Error(t, err)
}

func TestAuditReportsMismatchAndMissing(t *testing.T) {
	env := newTestEnv()
	env.store.Seed("projects",
		bson.M{"_id": "a", "tenant_id": "T2"},
		bson.M{"_id": "b", "tenant_id": "T2"},
		bson.M{"_id": "c", "tenant_id": "T2"},
		bson.M{"_id": "d"},
		bson.M{"_id": "e"},
	)

	report, err := env.db.Audit(context.Background(), "T1")
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, "T1", report.Tenant)
	require.Len(t, report.Issues, 2)

	byKind := map[tenantdb.IssueKind]tenantdb.IsolationIssue{}
	for _, issue := range report.Issues {
		assert.Equal(t, "projects", issue.Collection)
		byKind[issue.Kind] = issue
	}
	assert.EqualValues(t, 3, byKind[tenantdb.IssueMismatch].Count)
	assert.ElementsMatch(t, []any{"a", "b", "c"}, byKind[tenantdb.IssueMismatch].SampleIDs)
	assert.EqualValues(t, 2, byKind[tenantdb.IssueMissing].Count)
	assert.ElementsMatch(t, []any{"d", "e"}, byKind[tenantdb.IssueMissing].SampleIDs)
}

func TestAuditSampleIsBounded(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 9; i++ {
		env.store.Seed("results", bson.M{"rule": fmt.Sprintf("r%d", i)})
	}

	report, err := env.db.Audit(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)

	issue := report.Issues[0]
	assert.Equal(t, tenantdb.IssueMissing, issue.Kind)
	assert.EqualValues(t, 9, issue.Count)
	assert.Len(t, issue.SampleIDs, 5)
}

func TestAuditCleanStore(t *testing.T) {
	env := newTestEnv()
	env.store.Seed("projects", bson.M{"tenant_id": "T1"})

	report, err := env.db.Audit(context.Background(), "T1")
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestAuditMatchingTenantIsNotAnIssue(t *testing.T) {
	env := newTestEnv()
	env.store.Seed("projects",
		bson.M{"tenant_id": "T1"},
		bson.M{"tenant_id": "T2"},
	)

	report, err := env.db.Audit(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, tenantdb.IssueMismatch, report.Issues[0].Kind)
	assert.EqualValues(t, 1, report.Issues[0].Count)
}
