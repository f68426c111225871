package constants

import "time"

const (
	// MaxInsertAttempts is the hard ceiling for the schema-tolerant job
	// insert loop. It is a fixed constant, not derived from record size.
	MaxInsertAttempts = 15

	// JobsTable is the externally managed table the adaptive insert
	// writes to. Its real column set is not known at build time.
	JobsTable = "jobs"

	// Pagination defaults shared by the public and admin list endpoints.
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// AdminSearchMinLength is the minimum query length for /admin/search.
	AdminSearchMinLength = 2

	// ResumeLinkExpiry bounds the lifetime of presigned resume download
	// links handed out on applicant listings.
	ResumeLinkExpiry = 15 * time.Minute
)

// Redis cache keys and TTLs.
const (
	GeocodeCachePrefix   = "geo:place:"
	GeocodeCacheDuration = 7 * 24 * time.Hour

	DashboardStatsKey    = "admin:dashboard:stats"
	DashboardStatsExpiry = 30 * time.Second
)

// RabbitMQ topology for platform events.
const (
	JobEventsExchange       = "job.events.exchange"
	ApplicationSubmittedKey = "application.submitted"
	JobRemovedKey           = "job.removed"
)
