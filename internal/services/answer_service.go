package services

import (
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldType is the closed set of value kinds a descriptor may declare.
// Coercion switches over it exhaustively; there is no dynamic fallback.
type FieldType string

const (
	FieldString     FieldType = "string"
	FieldNumber     FieldType = "number"
	FieldStringList FieldType = "string-list"
	FieldNumberList FieldType = "number-list"
	FieldBoolean    FieldType = "boolean"
)

// ValidFieldType reports whether t is one of the five declared kinds.
func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldString, FieldNumber, FieldStringList, FieldNumberList, FieldBoolean:
		return true
	}
	return false
}

// FieldDescriptor declares one canonical answer field. A canonical key is
// always a valid alias of itself, so AliasKeys never needs to repeat it.
type FieldDescriptor struct {
	Key        string    `json:"key"`
	Type       FieldType `json:"type"`
	Required   bool      `json:"required"`
	EnumValues []string  `json:"enum_values,omitempty"`
	AliasKeys  []string  `json:"alias_keys,omitempty"`
}

// CanonicalAnswers holds only canonical keys with values already coerced to
// their descriptor's declared type. This is the only persisted answer form.
// Values are string, float64, []string, []float64, or bool.
type CanonicalAnswers map[string]any

// DiscardReason classifies why a raw pair was dropped during normalization.
type DiscardReason string

const (
	DiscardUnknownField  DiscardReason = "unknown_field"
	DiscardEmptyValue    DiscardReason = "empty_value"
	DiscardTypeMismatch  DiscardReason = "type_mismatch"
	DiscardEnumViolation DiscardReason = "enum_violation"
)

// Discard is one dropped raw pair with its reason, collected so the caller
// can log or inspect what normalization threw away.
type Discard struct {
	Key    string
	Reason DiscardReason
}

// AnswerStore is the registry access required by AnswerService. The registry
// is ordinary stored data edited through admin CRUD.
type AnswerStore interface {
	ListFieldDescriptors() ([]*FieldDescriptor, error)
	UpsertFieldDescriptor(d *FieldDescriptor) error
	DeleteFieldDescriptor(key string) error
	AddAudit(entry AuditEntry)
}

// AnswerService loads the answer schema registry and shapes raw submissions
// into canonical answer maps.
type AnswerService struct {
	store AnswerStore
}

func NewAnswerService(store AnswerStore) *AnswerService {
	return &AnswerService{store: store}
}

// LoadDescriptors reads the registry, degrading to an empty set when the
// store is unreachable. A partially validated review is worse than a
// held-back one, so the failure is logged rather than returned.
func (s *AnswerService) LoadDescriptors() []*FieldDescriptor {
	descs, err := s.store.ListFieldDescriptors()
	if err != nil {
		log.Printf("ERROR answer registry unavailable, dropping all raw answers: %v", err)
		return nil
	}
	return descs
}

// ListDescriptors exposes the registry for the admin UI, sorted by key.
func (s *AnswerService) ListDescriptors() ([]*FieldDescriptor, error) {
	descs, err := s.store.ListFieldDescriptors()
	if err != nil {
		return nil, err
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Key < descs[j].Key })
	return descs, nil
}

// SaveDescriptor validates and upserts one registry row.
func (s *AnswerService) SaveDescriptor(actor string, d *FieldDescriptor) error {
	if d == nil || strings.TrimSpace(d.Key) == "" {
		return NewInvalidError("descriptor key required")
	}
	if !ValidFieldType(d.Type) {
		return NewInvalidError("unknown field type: " + string(d.Type))
	}
	d.Key = strings.TrimSpace(d.Key)
	if err := s.store.UpsertFieldDescriptor(d); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: nowUTC(), Actor: actor, Action: "save_descriptor", Target: d.Key})
	return nil
}

// DeleteDescriptor removes one registry row.
func (s *AnswerService) DeleteDescriptor(actor, key string) error {
	if err := s.store.DeleteFieldDescriptor(key); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: nowUTC(), Actor: actor, Action: "delete_descriptor", Target: key})
	return nil
}

// MissingRequired returns the required canonical keys absent from answers,
// sorted. Completeness is checked here, outside the shaping fold, and is the
// only answer problem that blocks a submission.
func MissingRequired(answers CanonicalAnswers, descs []*FieldDescriptor) []string {
	var missing []string
	for _, d := range descs {
		if !d.Required {
			continue
		}
		if _, ok := answers[d.Key]; !ok {
			missing = append(missing, d.Key)
		}
	}
	sort.Strings(missing)
	return missing
}

// NormalizeAnswers folds a raw key/value map into a canonical map plus the
// list of discarded pairs. It never fails: unknown keys, empty values, and
// coercion or enum violations each drop the single offending pair.
func NormalizeAnswers(raw map[string]any, descs []*FieldDescriptor) (CanonicalAnswers, []Discard) {
	out := CanonicalAnswers{}
	var discards []Discard

	byAlias := map[string]*FieldDescriptor{}
	for _, d := range descs {
		byAlias[d.Key] = d
		for _, a := range d.AliasKeys {
			byAlias[a] = d
		}
	}

	// Deterministic iteration keeps discard order stable for logs and tests.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		d, ok := byAlias[k]
		if !ok {
			discards = append(discards, Discard{Key: k, Reason: DiscardUnknownField})
			continue
		}
		v := raw[k]
		if isEmptyValue(v) {
			discards = append(discards, Discard{Key: k, Reason: DiscardEmptyValue})
			continue
		}
		coerced, ok := coerceValue(d.Type, v)
		if !ok {
			discards = append(discards, Discard{Key: k, Reason: DiscardTypeMismatch})
			continue
		}
		if !enumAllows(d.EnumValues, coerced) {
			discards = append(discards, Discard{Key: k, Reason: DiscardEnumViolation})
			continue
		}
		out[d.Key] = coerced
	}
	return out, discards
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

// coerceValue converts a raw JSON-decoded value into the descriptor's
// declared kind. The bool return is false when the pair must be dropped.
func coerceValue(ft FieldType, v any) (any, bool) {
	switch ft {
	case FieldString:
		return stringify(v)
	case FieldNumber:
		return toNumber(v)
	case FieldStringList:
		return toStringList(v)
	case FieldNumberList:
		return toNumberList(v)
	case FieldBoolean:
		// Anything that is not a native true or an affirmative string is
		// false; boolean coercion never drops the pair.
		return toBool(v), true
	}
	return nil, false
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// toNumber rejects NaN and infinities along with unparsable input: canonical
// values must stay JSON-encodable all the way to the store.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toStringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			s, ok := stringify(el)
			if !ok {
				return nil, false
			}
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, strings.TrimSpace(s))
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false
		}
		return []string{strings.TrimSpace(t)}, true
	}
	return nil, false
}

func toNumberList(v any) ([]float64, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]float64, 0, len(t))
		for _, el := range t {
			n, ok := toNumber(el)
			if !ok {
				// One unparsable element poisons the whole pair.
				return nil, false
			}
			out = append(out, n)
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []float64:
		if len(t) == 0 {
			return nil, false
		}
		return t, true
	default:
		n, ok := toNumber(v)
		if !ok {
			return nil, false
		}
		return []float64{n}, true
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}

// enumAllows checks the coerced value (every element for list kinds) against
// the descriptor's permitted string representations.
func enumAllows(enum []string, coerced any) bool {
	if len(enum) == 0 {
		return true
	}
	member := func(s string) bool {
		for _, e := range enum {
			if e == s {
				return true
			}
		}
		return false
	}
	switch t := coerced.(type) {
	case string:
		return member(t)
	case float64:
		return member(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		return member(strconv.FormatBool(t))
	case []string:
		for _, s := range t {
			if !member(s) {
				return false
			}
		}
		return true
	case []float64:
		for _, n := range t {
			if !member(strconv.FormatFloat(n, 'f', -1, 64)) {
				return false
			}
		}
		return true
	}
	return false
}
