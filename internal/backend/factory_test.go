package backend

import (
	"context"
	"testing"
)

func TestTypeIsValid(t *testing.T) {
	if !SQLiteBackend.IsValid() || !MemoryBackend.IsValid() {
		t.Error("expected built-in backend types to be valid")
	}
	if Type("redis").IsValid() {
		t.Error("unknown backend type reported valid")
	}
}

func TestCreateMemoryKV(t *testing.T) {
	factory := NewFactory(nil)
	result, err := factory.CreateKV(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateKV = %v", err)
	}
	if result.KV == nil {
		t.Fatal("expected KV instance")
	}
	if result.Cleanup != nil {
		t.Error("memory backend needs no cleanup")
	}
}

func TestCreateInvalidBackend(t *testing.T) {
	factory := NewFactory(nil)
	if _, err := factory.CreateKV(context.Background(), Config{Type: "redis"}); err == nil {
		t.Fatal("expected error for invalid backend type")
	}
}
