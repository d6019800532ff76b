package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/iudanet/docsync/internal/models"
)

var reservedFields = []string{models.FieldID, models.FieldUpdatedAt, models.FieldDeleted}

// ParseFields разбирает аргументы key=value.
// Значение, являющееся корректным JSON (число, bool, объект, строка в кавычках),
// сохраняется с типом, иначе как строка.
func ParseFields(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", pair)
		}
		if slices.Contains(reservedFields, key) {
			return nil, fmt.Errorf("field %q is managed by replication", key)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[key] = value
	}
	return fields, nil
}

// formatFields компактный JSON с отсортированными ключами
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "{}"
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprintf("%v", fields)
	}
	return string(data)
}
