package processor

import (
	"encoding/json"
	"fmt"
)

// JobPostingRequest is the validated input for creating a job posting.
// Coordinates are optional; when present they take precedence over
// anything the geocoder resolves for JobCity.
type JobPostingRequest struct {
	Title           string   `json:"title"`
	CompanyName     string   `json:"company_name"`
	Openings        int      `json:"openings"`
	JobCity         string   `json:"job_city"`
	TotalExperience string   `json:"total_experience"`
	SalaryMin       float64  `json:"salary_min"`
	SalaryMax       float64  `json:"salary_max"`
	OffersBonus     bool     `json:"offers_bonus"`
	RequiredSkills  []string `json:"required_skills"`
	ContactEmail    string   `json:"contact_email"`
	ContactPhone    string   `json:"contact_phone"`
	HiringSpeed     string   `json:"hiring_speed"`
	HiringFrequency string   `json:"hiring_frequency"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

// FieldEntry is one candidate column of a pending insert. Removable marks
// entries that were included speculatively because the target schema is
// not known in advance.
type FieldEntry struct {
	Column    string
	Value     interface{}
	Removable bool
}

// CandidateRecord is an ordered list of candidate columns. It only ever
// shrinks: the insert engine removes one entry per rejected attempt and
// entries are never re-added.
type CandidateRecord struct {
	entries []FieldEntry
}

// Len reports the number of remaining columns.
func (r *CandidateRecord) Len() int {
	return len(r.entries)
}

// Columns returns the remaining column names in order.
func (r *CandidateRecord) Columns() []string {
	cols := make([]string, len(r.entries))
	for i, e := range r.entries {
		cols[i] = e.Column
	}
	return cols
}

// Values returns the remaining values, parallel to Columns.
func (r *CandidateRecord) Values() []interface{} {
	vals := make([]interface{}, len(r.entries))
	for i, e := range r.entries {
		vals[i] = e.Value
	}
	return vals
}

// Remove drops the entry for column and reports whether it was present.
func (r *CandidateRecord) Remove(column string) bool {
	for i, e := range r.entries {
		if e.Column == column {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *CandidateRecord) add(column string, value interface{}, removable bool) {
	r.entries = append(r.entries, FieldEntry{Column: column, Value: value, Removable: removable})
}

// NormalizeJobRecord flattens a posting request into candidate columns.
// When coordinates are known it over-supplies every plausible geo column
// spelling and lets the insert engine prune down to what the backend
// actually defines. No I/O.
func NormalizeJobRecord(req *JobPostingRequest, ownerID string, resolvedLat, resolvedLng *float64) *CandidateRecord {
	rec := &CandidateRecord{}

	rec.add("employer_id", ownerID, false)
	rec.add("title", req.Title, false)
	rec.add("company_name", req.CompanyName, false)
	rec.add("openings", req.Openings, false)
	rec.add("job_city", req.JobCity, false)
	rec.add("total_experience", req.TotalExperience, false)
	rec.add("salary_min", req.SalaryMin, false)
	rec.add("salary_max", req.SalaryMax, false)
	rec.add("offers_bonus", req.OffersBonus, false)
	rec.add("required_skills", encodeSkills(req.RequiredSkills), false)
	rec.add("contact_email", req.ContactEmail, false)
	rec.add("contact_phone", req.ContactPhone, false)
	rec.add("hiring_speed", req.HiringSpeed, false)
	rec.add("hiring_frequency", req.HiringFrequency, false)

	lat, lng := req.Latitude, req.Longitude
	if lat == nil || lng == nil {
		lat, lng = resolvedLat, resolvedLng
	}
	if lat != nil && lng != nil {
		rec.add("location", fmt.Sprintf("POINT(%f %f)", *lng, *lat), true)
		rec.add("lat", *lat, true)
		rec.add("lng", *lng, true)
		rec.add("latitude", *lat, true)
		rec.add("longitude", *lng, true)
	}

	return rec
}

func encodeSkills(skills []string) string {
	if skills == nil {
		skills = []string{}
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return "[]"
	}
	return string(b)
}
