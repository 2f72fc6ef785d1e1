package api

import "github.com/kurataraku/survey-app/internal/services"

type answerStoreAdapter struct {
	store Store
}

func newAnswerStoreAdapter(store Store) services.AnswerStore {
	return &answerStoreAdapter{store: store}
}

func (a *answerStoreAdapter) ListFieldDescriptors() ([]*services.FieldDescriptor, error) {
	descs, err := a.store.ListFieldDescriptors()
	if err != nil {
		return nil, err
	}
	out := make([]*services.FieldDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, convertAPIDescriptor(d))
	}
	return out, nil
}

func (a *answerStoreAdapter) UpsertFieldDescriptor(d *services.FieldDescriptor) error {
	if d == nil {
		return services.NewInvalidError("descriptor required")
	}
	a.store.UpsertFieldDescriptor(convertServiceDescriptor(d))
	return nil
}

func (a *answerStoreAdapter) DeleteFieldDescriptor(key string) error {
	if ok := a.store.DeleteFieldDescriptor(key); !ok {
		return services.NewNotFoundError("descriptor not found")
	}
	return nil
}

func (a *answerStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(AuditEntry{Time: entry.Time, Actor: entry.Actor, Action: entry.Action, Target: entry.Target, Note: entry.Note})
}

func convertServiceDescriptor(d *services.FieldDescriptor) *FieldDescriptor {
	if d == nil {
		return nil
	}
	return &FieldDescriptor{
		Key:        d.Key,
		Type:       string(d.Type),
		Required:   d.Required,
		EnumValues: d.EnumValues,
		AliasKeys:  d.AliasKeys,
	}
}

func convertAPIDescriptor(d *FieldDescriptor) *services.FieldDescriptor {
	if d == nil {
		return nil
	}
	return &services.FieldDescriptor{
		Key:        d.Key,
		Type:       services.FieldType(d.Type),
		Required:   d.Required,
		EnumValues: d.EnumValues,
		AliasKeys:  d.AliasKeys,
	}
}
