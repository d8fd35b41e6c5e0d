package types

import "time"

// Entity carries the timestamps every stored Depot record has.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity stamps both fields with now.
func NewEntity() Entity {
	return NewEntityAt(time.Now())
}

// NewEntityAt stamps both fields with t, normalized to UTC.
func NewEntityAt(t time.Time) Entity {
	t = t.UTC()
	return Entity{CreatedAt: t, UpdatedAt: t}
}

// Touch sets UpdatedAt to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}

// SinceUpdate returns how long before now the entity was last updated.
func (e Entity) SinceUpdate(now time.Time) time.Duration {
	return now.Sub(e.UpdatedAt)
}
