package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which table an entity link endpoint refers to.
type EntityType string

// Possible entity types
const (
	EntityTypeTask    EntityType = "task"
	EntityTypeGoal    EntityType = "goal"
	EntityTypeProblem EntityType = "problem"
)

// LinkType classifies the relationship an entity link expresses.
type LinkType string

// Possible link types
const (
	LinkTypeDependsOn         LinkType = "depends_on"
	LinkTypeBlocks            LinkType = "blocks"
	LinkTypeSupportsGoal      LinkType = "supports_goal"
	LinkTypeRelated           LinkType = "related"
	LinkTypeAddressesProblems LinkType = "addresses_problem"
)

// Common validation errors for EntityLink
var (
	ErrEmptyLinkID       = errors.New("link ID cannot be empty")
	ErrEmptyLinkUserID   = errors.New("link user ID cannot be empty")
	ErrEmptyLinkEndpoint = errors.New("link endpoints cannot be empty")
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrInvalidLinkType   = errors.New("invalid link type")
)

// EntityLink is a directed, typed edge between two entities. depends_on
// and blocks edges drive blocking detection; supports_goal edges drive
// goal-alignment scoring.
type EntityLink struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	FromEntityType EntityType `json:"from_entity_type"`
	FromEntityID   string     `json:"from_entity_id"`
	ToEntityType   EntityType `json:"to_entity_type"`
	ToEntityID     string     `json:"to_entity_id"`
	LinkType       LinkType   `json:"link_type"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewEntityLink creates a link between two entities with a generated ID.
func NewEntityLink(userID string, fromType EntityType, fromID string, toType EntityType, toID string, linkType LinkType) (*EntityLink, error) {
	link := &EntityLink{
		ID:             uuid.New().String(),
		UserID:         userID,
		FromEntityType: fromType,
		FromEntityID:   fromID,
		ToEntityType:   toType,
		ToEntityID:     toID,
		LinkType:       linkType,
		CreatedAt:      time.Now().UTC(),
	}

	if err := link.Validate(); err != nil {
		return nil, err
	}

	return link, nil
}

// Validate checks if the EntityLink has valid data.
func (l *EntityLink) Validate() error {
	if l.ID == "" {
		return ErrEmptyLinkID
	}

	if l.UserID == "" {
		return ErrEmptyLinkUserID
	}

	if l.FromEntityID == "" || l.ToEntityID == "" {
		return ErrEmptyLinkEndpoint
	}

	if !isValidEntityType(l.FromEntityType) || !isValidEntityType(l.ToEntityType) {
		return ErrInvalidEntityType
	}

	if !isValidLinkType(l.LinkType) {
		return ErrInvalidLinkType
	}

	return nil
}

// ParseEntityType converts a stored string into an EntityType, failing on
// unknown values.
func ParseEntityType(s string) (EntityType, error) {
	et := EntityType(s)
	if !isValidEntityType(et) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}
	return et, nil
}

// ParseLinkType converts a stored string into a LinkType, failing on
// unknown values.
func ParseLinkType(s string) (LinkType, error) {
	lt := LinkType(s)
	if !isValidLinkType(lt) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLinkType, s)
	}
	return lt, nil
}

func isValidEntityType(et EntityType) bool {
	switch et {
	case EntityTypeTask, EntityTypeGoal, EntityTypeProblem:
		return true
	default:
		return false
	}
}

func isValidLinkType(lt LinkType) bool {
	switch lt {
	case LinkTypeDependsOn, LinkTypeBlocks, LinkTypeSupportsGoal,
		LinkTypeRelated, LinkTypeAddressesProblems:
		return true
	default:
		return false
	}
}
