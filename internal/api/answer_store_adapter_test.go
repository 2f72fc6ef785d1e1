package api

import (
	"errors"
	"testing"

	"github.com/kurataraku/survey-app/internal/services"
)

type failingDescriptorStore struct {
	Store
}

func (f *failingDescriptorStore) ListFieldDescriptors() ([]*FieldDescriptor, error) {
	return nil, errors.New("registry query failed")
}

func TestAnswerAdapterPropagatesRegistryFailure(t *testing.T) {
	adapter := newAnswerStoreAdapter(&failingDescriptorStore{Store: newMemoryStore()})
	if _, err := adapter.ListFieldDescriptors(); err == nil {
		t.Fatalf("expected store failure to propagate through the adapter")
	}
	// The submission flow wired over this adapter must hit the registry
	// degrade path, not treat the failure as an empty registry silently.
	svc := services.NewAnswerService(adapter)
	if descs := svc.LoadDescriptors(); descs != nil {
		t.Fatalf("expected nil descriptor set on registry failure, got %#v", descs)
	}
}

func TestAnswerAdapterRoundTripsDescriptors(t *testing.T) {
	adapter := newAnswerStoreAdapter(newMemoryStore())
	in := &services.FieldDescriptor{
		Key:        "commute",
		Type:       services.FieldString,
		Required:   true,
		EnumValues: []string{"walk", "bus"},
		AliasKeys:  []string{"commute_mode"},
	}
	if err := adapter.UpsertFieldDescriptor(in); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	descs, err := adapter.ListFieldDescriptors()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(descs) != 1 || descs[0].Key != "commute" || descs[0].Type != services.FieldString || !descs[0].Required {
		t.Fatalf("unexpected descriptors: %#v", descs)
	}
}
