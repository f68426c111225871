package models

import (
	"time"

	"gorm.io/datatypes"
)

// Employer profile row. The primary key is the user id assigned by the
// hosted auth service at registration.
type Employer struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyName string    `gorm:"type:varchar(255);not null" json:"company_name"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex:idx_employers_email_unique" json:"email"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (Employer) TableName() string {
	return "employers"
}

// Employee (job seeker) profile row.
type Employee struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex:idx_employees_email_unique" json:"email"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (Employee) TableName() string {
	return "employees"
}

// Job is the read-side view of a job posting. The jobs table is managed
// outside this service and is never migrated from here; this struct lists
// only the columns every deployment is known to have. Writes go through
// the schema-tolerant insert path instead of this model.
type Job struct {
	ID              uint64         `gorm:"column:id;primaryKey" json:"id"`
	EmployerID      string         `gorm:"type:char(36);index:idx_jobs_employer_id" json:"employer_id"`
	Title           string         `gorm:"type:varchar(255)" json:"title"`
	CompanyName     string         `gorm:"type:varchar(255)" json:"company_name"`
	Openings        int            `json:"openings"`
	JobCity         string         `gorm:"type:varchar(255)" json:"job_city"`
	TotalExperience string         `gorm:"type:varchar(100)" json:"total_experience"`
	SalaryMin       float64        `json:"salary_min"`
	SalaryMax       float64        `json:"salary_max"`
	OffersBonus     bool           `json:"offers_bonus"`
	RequiredSkills  datatypes.JSON `gorm:"type:json" json:"required_skills"`
	ContactEmail    string         `gorm:"type:varchar(255)" json:"contact_email"`
	ContactPhone    string         `gorm:"type:varchar(50)" json:"contact_phone"`
	HiringSpeed     string         `gorm:"type:varchar(50)" json:"hiring_speed"`
	HiringFrequency string         `gorm:"type:varchar(50)" json:"hiring_frequency"`
	CreatedAt       time.Time      `gorm:"type:datetime(6)" json:"created_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobApplication links an applicant to a job posting. The (job_id, email)
// pair is unique; the duplicate-application pre-check relies on it.
type JobApplication struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationUUID string    `gorm:"type:char(36);uniqueIndex:idx_ja_application_uuid" json:"application_uuid"`
	JobID           uint64    `gorm:"not null;index:idx_ja_job_id;uniqueIndex:idx_ja_job_email_unique,priority:1" json:"job_id"`
	FullName        string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email           string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_ja_job_email_unique,priority:2" json:"email"`
	Phone           string    `gorm:"type:varchar(50)" json:"phone"`
	CoverNote       string    `gorm:"type:text" json:"cover_note"`
	ResumePathOSS   string    `gorm:"type:varchar(1024)" json:"resume_path,omitempty"`
	AppliedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_ja_applied_at" json:"applied_at"`
}

func (JobApplication) TableName() string {
	return "job_applications"
}
