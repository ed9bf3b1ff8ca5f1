package domain

import "time"

// RunStatus is the outcome of a conversion run
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is the history record of one conversion
type Run struct {
	ID              string           `json:"id"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	Status          RunStatus        `json:"status"`
	Error           string           `json:"error,omitempty"`
	H5MFilename     string           `json:"h5m_filename"`
	Options         Options          `json:"options"`
	Entries         []GeometryEntry  `json:"entries"`
	VolumeMaterials []VolumeMaterial `json:"volume_materials,omitempty"`
	WedgeVolumes    []int            `json:"wedge_volumes,omitempty"`
}

// Duration is how long the run took
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
