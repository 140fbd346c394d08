package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/selftest-engine/internal/logging"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
)

func TestRunDeleteRemovesSession(t *testing.T) {
	ctx := context.Background()
	store, err := results.OpenSQLite(filepath.Join(t.TempDir(), "selftest.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sess, err := store.Session(ctx, "old-run")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := results.Save(ctx, sess, results.SpeechResult{Similarity: 90, Pass: true, Reason: results.ReasonScored}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := logging.LogVerdict(ctx, store.DB(), logging.VerdictEntry{SessionID: "old-run", Tier: "low"}); err != nil {
		t.Fatalf("log verdict: %v", err)
	}

	if err := runDelete(ctx, store, []string{"old-run"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, err := store.Existing(ctx, "old-run"); err != nil || found {
		t.Fatalf("session still present: found=%v err=%v", found, err)
	}
	entries, err := logging.ListVerdicts(ctx, store.DB(), "old-run")
	if err != nil {
		t.Fatalf("list verdicts: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("verdict log kept %d rows", len(entries))
	}
}

func TestRunDeleteUnknownSession(t *testing.T) {
	store, err := results.OpenSQLite(filepath.Join(t.TempDir(), "selftest.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := runDelete(context.Background(), store, []string{"ghost"}); err == nil {
		t.Fatal("expected an error for a missing session")
	}
}
