package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/cache"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

func openTestDB(t *testing.T, ttl time.Duration) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sub", "test.db"), ttl)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCache_GetPut(t *testing.T) {
	db := openTestDB(t, 0)
	ctx := context.Background()

	if _, err := db.Get(ctx, "k"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
	if err := db.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, err := db.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("Get = %q, want two", got)
	}
}

func TestCache_Expiry(t *testing.T) {
	db := openTestDB(t, time.Hour)
	ctx := context.Background()
	if _, err := db.db.Exec("insert into stage_cache (key, value, created_at) values ('old', 'x', $1)",
		time.Now().Add(-2*time.Hour).Unix()); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get(ctx, "old"); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expired entry returned, err = %v", err)
	}
}

func TestRuns(t *testing.T) {
	db := openTestDB(t, 0)
	ctx := context.Background()

	first := model.NewPipelineRun("run-1", "notes", time.Unix(1000, 0))
	first.Audio = &model.LectureAudio{Path: "a.wav", Hash: "abc"}
	first.State = model.StateCompleted
	if err := db.SaveRun(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := model.NewPipelineRun("run-2", "quiz", time.Unix(2000, 0))
	if err := db.SaveRun(ctx, second); err != nil {
		t.Fatal(err)
	}
	second.State = model.StateFailed
	if err := db.SaveRun(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != model.StateCompleted || got.Audio.Hash != "abc" || len(got.Stages) != len(model.Stages) {
		t.Errorf("GetRun = %+v", got)
	}

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[0].State != model.StateFailed {
		t.Errorf("ListRuns = %+v", runs)
	}

	if _, err := db.GetRun(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
