package audit

import (
	"context"
	"testing"
	"time"

	"github.com/securebank/sentinel/internal/idgen"
	"github.com/securebank/sentinel/internal/testutil"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	entries := []Entry{
		{ID: idgen.WithPrefix("adt_"), Level: LevelCritical, Action: "session_escalated", Detail: "blocked", SessionRef: "sess-1", Timestamp: base},
		{ID: idgen.WithPrefix("adt_"), Level: LevelWarn, Action: "alert_sent", Detail: "sms", SessionRef: "sess-1", Timestamp: base.Add(time.Second)},
		{ID: idgen.WithPrefix("adt_"), Level: LevelInfo, Action: "session_reset", SessionRef: "sess-2", Timestamp: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := store.Query(ctx, Filter{Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("query returned %d entries, want 3", len(got))
	}
	if got[0].Action != "session_reset" {
		t.Errorf("newest first: got %s", got[0].Action)
	}

	got, err = store.Query(ctx, Filter{SessionRef: "sess-1", Level: LevelWarn, Limit: 10})
	if err != nil {
		t.Fatalf("filtered query: %v", err)
	}
	if len(got) != 1 || got[0].Detail != "sms" {
		t.Fatalf("filtered query = %v, want one sms entry", got)
	}

	purged, err := store.Purge(ctx, base.Add(1500*time.Millisecond))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}
}
