package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// CollectionPattern определяет допустимый формат имени коллекции
// Латинские буквы, цифры, нижнее подчеркивание и дефис
// Длина: 1-64 символа
var CollectionPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// MaxCollectionLen максимальная длина имени коллекции
const MaxCollectionLen = 64

// ErrInvalidCollection indicates that a collection name is rejected
var ErrInvalidCollection = errors.New("invalid collection name")

// reservedCollections совпадают с путями служебных эндпоинтов
var reservedCollections = map[string]bool{
	"health":  true,
	"metrics": true,
	"debug":   true,
}

// ValidateCollection проверяет имя коллекции из URL
// Формат: латинские буквы (a-z, A-Z), цифры (0-9), "_" и "-"
// Длина: 1-64 символа
func ValidateCollection(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidCollection)
	}

	if len(name) > MaxCollectionLen {
		return fmt.Errorf("%w: name must not exceed %d characters", ErrInvalidCollection, MaxCollectionLen)
	}

	if !CollectionPattern.MatchString(name) {
		return fmt.Errorf("%w: name can only contain letters, numbers, underscores and dashes", ErrInvalidCollection)
	}

	if reservedCollections[strings.ToLower(name)] {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidCollection, name)
	}

	return nil
}
