package database

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetaRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMetaRepository(newTestDB(t))

	for _, value := range []string{"red", "green"} {
		if err := repo.AddMeta(ctx, "post", 1, "color", value); err != nil {
			t.Fatalf("AddMeta() error = %v", err)
		}
	}
	if err := repo.AddMeta(ctx, "post", 1, "size", "L"); err != nil {
		t.Fatalf("AddMeta() error = %v", err)
	}
	if err := repo.AddMeta(ctx, "user", 1, "color", "blue"); err != nil {
		t.Fatalf("AddMeta() error = %v", err)
	}

	t.Run("single returns first value", func(t *testing.T) {
		got, err := repo.GetMeta(ctx, "post", 1, "color", true)
		if err != nil {
			t.Fatalf("GetMeta() error = %v", err)
		}
		if got != "red" {
			t.Errorf("Expected red, got %v", got)
		}
	})

	t.Run("multi returns every value", func(t *testing.T) {
		got, err := repo.GetMeta(ctx, "post", 1, "color", false)
		if err != nil {
			t.Fatalf("GetMeta() error = %v", err)
		}
		if diff := cmp.Diff([]string{"red", "green"}, got); diff != "" {
			t.Errorf("GetMeta() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("absent key", func(t *testing.T) {
		single, _ := repo.GetMeta(ctx, "post", 1, "missing", true)
		if single != "" {
			t.Errorf("Expected empty string, got %v", single)
		}
		multi, _ := repo.GetMeta(ctx, "post", 1, "missing", false)
		if diff := cmp.Diff([]string{}, multi); diff != "" {
			t.Errorf("GetMeta() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("all keys scoped to namespace", func(t *testing.T) {
		got, err := repo.GetAllMeta(ctx, "post", 1)
		if err != nil {
			t.Fatalf("GetAllMeta() error = %v", err)
		}
		want := map[string][]string{"color": {"red", "green"}, "size": {"L"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetAllMeta() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("set replaces values", func(t *testing.T) {
		if err := repo.SetMeta(ctx, "post", 1, "color", "black"); err != nil {
			t.Fatalf("SetMeta() error = %v", err)
		}
		got, _ := repo.GetMeta(ctx, "post", 1, "color", false)
		if diff := cmp.Diff([]string{"black"}, got); diff != "" {
			t.Errorf("GetMeta() mismatch (-want +got):\n%s", diff)
		}
	})
}
