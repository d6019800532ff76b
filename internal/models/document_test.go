package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Document
		wantErr bool
	}{
		{
			name:  "plain document",
			input: `{"id":"b1","name":"Acme","updatedAt":"2024-01-01T00:00:00.000Z"}`,
			want: Document{
				ID:        "b1",
				UpdatedAt: "2024-01-01T00:00:00.000Z",
				Fields:    map[string]any{"name": "Acme"},
			},
		},
		{
			name:  "tombstone without fields",
			input: `{"id":"b1","deleted":true}`,
			want:  Document{ID: "b1", Deleted: true},
		},
		{
			name:  "rxdb envelope with _deleted",
			input: `{"newDocumentState":{"id":"a1","qty":3,"_deleted":true,"_meta":{"lwt":1}},"assumedMasterState":null}`,
			want: Document{
				ID:      "a1",
				Deleted: true,
				Fields:  map[string]any{"qty": float64(3)},
			},
		},
		{
			name:  "storage identifier dropped",
			input: `{"_id":"65f0","id":"b2","updatedAt":"2024-01-01T00:00:00.000Z"}`,
			want:  Document{ID: "b2", UpdatedAt: "2024-01-01T00:00:00.000Z"},
		},
		{
			name:    "numeric id rejected",
			input:   `{"id":42}`,
			wantErr: true,
		},
		{
			name:    "numeric updatedAt rejected",
			input:   `{"id":"x","updatedAt":1}`,
			wantErr: true,
		},
		{
			name:    "array rejected",
			input:   `[1,2]`,
			wantErr: true,
		},
		{
			name:    "null rejected",
			input:   `null`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc Document
			err := json.Unmarshal([]byte(tt.input), &doc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc)
		})
	}
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc := Document{
		ID:        "b1",
		UpdatedAt: "2024-01-01T00:00:00.000Z",
		Fields: map[string]any{
			"name":    "Acme",
			"deleted": "shadowed",
		},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))

	assert.Equal(t, "b1", obj["id"])
	assert.Equal(t, "Acme", obj["name"])
	assert.Equal(t, "2024-01-01T00:00:00.000Z", obj["updatedAt"])
	// Доменное поле не может подменить флаг удаления
	assert.NotContains(t, obj, "deleted")

	tomb, err := json.Marshal(doc.Tombstone())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"b1","updatedAt":"2024-01-01T00:00:00.000Z","deleted":true}`, string(tomb))
}

func TestDocument_Validate(t *testing.T) {
	assert.ErrorIs(t, Document{}.Validate(), ErrMissingID)
	assert.NoError(t, Document{ID: "a"}.Validate())
	assert.NoError(t, Document{ID: "a", UpdatedAt: "2024-01-01T00:00:00Z"}.Validate())
	assert.Error(t, Document{ID: "a", UpdatedAt: "yesterday"}.Validate())
}

func TestDocument_Clone(t *testing.T) {
	original := Document{ID: "a", Fields: map[string]any{"name": "x"}}
	clone := original.Clone()
	clone.Fields["name"] = "y"

	assert.Equal(t, "x", original.Fields["name"])
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.FixedZone("X", 3*3600))
	assert.Equal(t, "2024-01-02T00:04:05.006Z", FormatTime(ts))

	earlier := FormatTime(ts)
	later := FormatTime(ts.Add(time.Millisecond))
	assert.Less(t, earlier, later)
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2024-01-01T00:00:00Z", want: "2024-01-01T00:00:00.000Z"},
		{in: "2024-01-01T00:00:00.5Z", want: "2024-01-01T00:00:00.500Z"},
		{in: "2024-01-01T09:00:00+09:00", want: "2024-01-01T00:00:00.000Z"},
		{in: "2024-01-01T00:00:00.123456789Z", want: "2024-01-01T00:00:00.123Z"},
		{in: "2024-01-01T00:00:00.000Z", want: "2024-01-01T00:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeTime("yesterday")
	assert.Error(t, err)

	// После приведения строковый порядок совпадает с хронологическим
	a, _ := NormalizeTime("2024-01-01T00:00:00Z")
	c, _ := NormalizeTime("2024-01-01T00:00:00.500Z")
	assert.Less(t, a, c)
}

func TestFromMap_ToMap(t *testing.T) {
	doc := Document{ID: "a", UpdatedAt: "2024-01-01T00:00:00.000Z", Fields: map[string]any{"qty": int32(2)}}

	back, err := FromMap(doc.ToMap())
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}
