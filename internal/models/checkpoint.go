package models

import (
	"cmp"
	"slices"
)

// Checkpoint курсор репликации коллекции.
// Задает полный порядок документов: updatedAt по возрастанию, при равенстве id.
type Checkpoint struct {
	UpdatedAt string `json:"updatedAt"`
	ID        string `json:"id"`
}

// IsZero reports whether the checkpoint points before the first document
func (c Checkpoint) IsZero() bool {
	return c.UpdatedAt == "" && c.ID == ""
}

// Compare orders two checkpoints by (updatedAt, id)
func Compare(a, b Checkpoint) int {
	if c := cmp.Compare(a.UpdatedAt, b.UpdatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Less reports whether c sorts before other
func (c Checkpoint) Less(other Checkpoint) bool {
	return Compare(c, other) < 0
}

// Admits reports whether doc lies strictly past the checkpoint:
// updatedAt > c.updatedAt OR (updatedAt = c.updatedAt AND id > c.id).
// A checkpoint without updatedAt admits every document.
func (c Checkpoint) Admits(doc Document) bool {
	if c.UpdatedAt == "" {
		return true
	}
	if doc.UpdatedAt != c.UpdatedAt {
		return doc.UpdatedAt > c.UpdatedAt
	}
	return doc.ID > c.ID
}

// SortDocuments sorts docs in checkpoint order
func SortDocuments(docs []Document) {
	slices.SortFunc(docs, func(a, b Document) int {
		return Compare(a.Checkpoint(), b.Checkpoint())
	})
}

// Advance returns the checkpoint after docs were applied.
// An empty batch leaves the checkpoint unchanged.
func (c Checkpoint) Advance(docs []Document) Checkpoint {
	if len(docs) == 0 {
		return c
	}
	return docs[len(docs)-1].Checkpoint()
}

// Coalesce keeps only the final state per id, preserving the position of
// that final state in the batch.
func Coalesce(docs []Document) []Document {
	last := make(map[string]int, len(docs))
	for i, d := range docs {
		last[d.ID] = i
	}
	if len(last) == len(docs) {
		return docs
	}

	out := make([]Document, 0, len(last))
	for i, d := range docs {
		if last[d.ID] == i {
			out = append(out, d)
		}
	}
	return out
}
