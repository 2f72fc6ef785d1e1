package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kurataraku/survey-app/internal/api"
	"github.com/kurataraku/survey-app/internal/services"
)

type fieldManifest struct {
	Fields []struct {
		Key        string   `yaml:"key"`
		Type       string   `yaml:"type"`
		Required   bool     `yaml:"required"`
		EnumValues []string `yaml:"enum_values"`
		AliasKeys  []string `yaml:"alias_keys"`
	} `yaml:"fields"`
}

// seedFieldDescriptors loads the answer-field manifest on first start. A
// store that already has descriptors is left alone so admin edits survive
// restarts.
func seedFieldDescriptors(store api.Store, path string) error {
	if store.CountFieldDescriptors() > 0 {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m fieldManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	for i, f := range m.Fields {
		if f.Key == "" {
			return fmt.Errorf("manifest field %d: key required", i)
		}
		if !services.ValidFieldType(services.FieldType(f.Type)) {
			return fmt.Errorf("manifest field %q: unknown type %q", f.Key, f.Type)
		}
		store.UpsertFieldDescriptor(&api.FieldDescriptor{
			Key:        f.Key,
			Type:       f.Type,
			Required:   f.Required,
			EnumValues: f.EnumValues,
			AliasKeys:  f.AliasKeys,
		})
	}
	return nil
}
