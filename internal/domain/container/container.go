package container

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/zelastic/internal/domain"
)

// MaxIDLength bounds record identities in bytes.
const MaxIDLength = 512

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Container is the container metadata aggregate (immutable value object).
type Container struct {
	name      string
	createdAt int64
}

// ValidateName checks a container name.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: container name is required", domain.ErrInvalidName)
	}
	if len(name) > 64 {
		return fmt.Errorf("%w: container name too long (max 64)", domain.ErrInvalidName)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: container name must be alphanumeric with underscores and hyphens",
			domain.ErrInvalidName)
	}
	return nil
}

// ValidateID checks a record identity: non-empty, at most MaxIDLength bytes, no NUL.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidName)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: record id too long (max %d)", domain.ErrInvalidName, MaxIDLength)
	}
	if strings.IndexByte(id, 0) >= 0 {
		return fmt.Errorf("%w: record id contains NUL byte", domain.ErrInvalidName)
	}
	return nil
}

// New validates and creates a Container.
func New(name string) (Container, error) {
	if err := ValidateName(name); err != nil {
		return Container{}, err
	}
	return Container{name: name, createdAt: time.Now().UnixMilli()}, nil
}

// Reconstruct creates a Container without validation (storage hydration).
func Reconstruct(name string, createdAt int64) Container {
	return Container{name: name, createdAt: createdAt}
}

// Name returns the container name.
func (c Container) Name() string { return c.name }

// CreatedAt returns the creation timestamp (unix millis).
func (c Container) CreatedAt() int64 { return c.createdAt }
