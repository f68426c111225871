package storage

import "time"

// ApplicationSubmittedMessage is published after a job application row is
// written. Consumers (notification workers, analytics) are external.
type ApplicationSubmittedMessage struct {
	ApplicationUUID string    `json:"application_uuid"`
	JobID           uint64    `json:"job_id"`
	ApplicantEmail  string    `json:"applicant_email"`
	ResumePathOSS   string    `json:"resume_path_oss,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// JobRemovedMessage is published when an admin deletes a job posting.
type JobRemovedMessage struct {
	JobID      uint64    `json:"job_id"`
	EmployerID string    `json:"employer_id"`
	RemovedAt  time.Time `json:"removed_at"`
}
