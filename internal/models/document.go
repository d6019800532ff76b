package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// TimeLayout формат updatedAt: UTC с миллисекундами, как Date.toISOString().
// Строки в этом формате сравниваются лексикографически в хронологическом порядке.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Зарезервированные ключи wire-формата документа
const (
	FieldID        = "id"
	FieldUpdatedAt = "updatedAt"
	FieldDeleted   = "deleted"
)

// internalFields никогда не попадают в Fields: идентификаторы хранилищ
// и служебные поля RxDB-клиентов.
var internalFields = []string{"_id", "_rev", "_meta", "_attachments", "_deleted"}

// ErrMissingID indicates that a document has no id
var ErrMissingID = errors.New("document id is required")

// Document представляет запись коллекции, участвующую в репликации.
// ID неизменяем после создания, UpdatedAt выставляется при каждой мутации.
// Fields содержит произвольные доменные поля.
type Document struct {
	Fields    map[string]any
	ID        string
	UpdatedAt string
	Deleted   bool
}

// FormatTime converts t to the updatedAt representation
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NormalizeTime converts an RFC 3339 timestamp to TimeLayout.
// Смещения и разная точность долей секунды ломают строковый порядок,
// поэтому все метки хранятся в одном формате.
func NormalizeTime(s string) (string, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", err
	}
	return FormatTime(t), nil
}

// Now returns the current time in updatedAt representation
func Now() string {
	return FormatTime(time.Now())
}

// Checkpoint returns the cursor position of the document
func (d Document) Checkpoint() Checkpoint {
	return Checkpoint{UpdatedAt: d.UpdatedAt, ID: d.ID}
}

// Validate checks the invariants required before a document is stored
func (d Document) Validate() error {
	if d.ID == "" {
		return ErrMissingID
	}
	if d.UpdatedAt != "" {
		if _, err := time.Parse(time.RFC3339Nano, d.UpdatedAt); err != nil {
			return fmt.Errorf("document %s: invalid updatedAt %q: %w", d.ID, d.UpdatedAt, err)
		}
	}
	return nil
}

// Tombstone returns the deletion marker for the document.
// Доменные поля у tombstone не сохраняются.
func (d Document) Tombstone() Document {
	return Document{ID: d.ID, UpdatedAt: d.UpdatedAt, Deleted: true}
}

// Clone returns a copy of the document with its own Fields map
func (d Document) Clone() Document {
	d.Fields = maps.Clone(d.Fields)
	return d
}

// Get returns a domain field value
func (d Document) Get(key string) (any, bool) {
	v, ok := d.Fields[key]
	return v, ok
}

// MarshalJSON serializes the document as a flat JSON object
func (d Document) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		obj[k] = v
	}
	obj[FieldID] = d.ID
	obj[FieldUpdatedAt] = d.UpdatedAt
	if d.Deleted {
		obj[FieldDeleted] = true
	} else {
		delete(obj, FieldDeleted)
	}
	return json.Marshal(obj)
}

// UnmarshalJSON parses a flat JSON object.
// Accepts the RxDB push row envelope {"newDocumentState": {...}} and the
// "_deleted" tombstone flag; internal storage identifiers are dropped.
func (d *Document) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj == nil {
		return fmt.Errorf("document must be a JSON object")
	}

	if nested, ok := obj["newDocumentState"].(map[string]any); ok {
		obj = nested
	}

	doc, err := FromMap(obj)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// FromMap builds a document from a decoded object (JSON or BSON).
// The map is not modified.
func FromMap(obj map[string]any) (Document, error) {
	var doc Document

	switch id := obj[FieldID].(type) {
	case nil:
	case string:
		doc.ID = id
	default:
		return Document{}, fmt.Errorf("document id must be a string, got %T", id)
	}

	switch ts := obj[FieldUpdatedAt].(type) {
	case nil:
	case string:
		doc.UpdatedAt = ts
	default:
		return Document{}, fmt.Errorf("document %s: updatedAt must be a string, got %T", doc.ID, ts)
	}

	doc.Deleted = truthy(obj[FieldDeleted]) || truthy(obj["_deleted"])

	fields := make(map[string]any, len(obj))
	for k, v := range obj {
		fields[k] = v
	}
	delete(fields, FieldID)
	delete(fields, FieldUpdatedAt)
	delete(fields, FieldDeleted)
	for _, k := range internalFields {
		delete(fields, k)
	}
	if len(fields) > 0 {
		doc.Fields = fields
	}

	return doc, nil
}

// ToMap returns the flat representation used by document databases
func (d Document) ToMap() map[string]any {
	obj := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		obj[k] = v
	}
	obj[FieldID] = d.ID
	obj[FieldUpdatedAt] = d.UpdatedAt
	if d.Deleted {
		obj[FieldDeleted] = true
	}
	return obj
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
