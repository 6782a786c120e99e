package models

import "time"

// ActivationStatus is the activation state shared by environments and
// service data records.
type ActivationStatus string

const (
	StatusActive   ActivationStatus = "Active"
	StatusInactive ActivationStatus = "Inactive"
)

/**
 * Environment groups configured service instances under one name
 * @property {string} id - Opaque identifier (8 hex chars + unix timestamp)
 * @property {string} name - Display name
 * @property {ActivationStatus} status - Active/Inactive
 * @property {int} sort - Sort key, smaller floats to the top
 * @property {map} metadata - Free-form metadata bag
 */
type Environment struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    ActivationStatus       `json:"status"`
	Sort      int                    `json:"sort"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

/**
 * ServiceData is the per-environment configured instance of a service
 * at a specific version. Type and version are locked once created.
 */
type ServiceData struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	ServiceType ServiceType            `json:"service_type"`
	Version     string                 `json:"version"`
	Status      ActivationStatus       `json:"status"`
	Sort        int                    `json:"sort"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
