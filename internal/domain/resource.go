package domain

import "time"

type ResourceStatus string

const (
	ResourceDraft     ResourceStatus = "draft"
	ResourcePublished ResourceStatus = "published"
	ResourceArchived  ResourceStatus = "archived"
)

type Resource struct {
	ID               string `gorm:"primaryKey"`
	OwnerID          string `gorm:"index"` // staff principal from JWT
	Title            string
	Description      string
	Category         string `gorm:"index"`
	Location         string
	Capacity         int32
	RequiresApproval bool
	Status           ResourceStatus `gorm:"index;check:status IN ('draft','published','archived')"`
	CreatedAt        time.Time
}
