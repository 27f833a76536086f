package core

import (
	"fmt"

	"github.com/google/uuid"
)

// NewResourceName returns a unique debug name for a GPU resource, prefixed by
// its kind (for example "buffer-6f1c2a90").
func NewResourceName(kind string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%s", kind, id.String()[:8])
}
