package handler

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"

	"laborgrow/internal/api/middleware"
	"laborgrow/internal/config"
	"laborgrow/internal/constants"
	"laborgrow/internal/geo"
	"laborgrow/internal/processor"
	"laborgrow/internal/storage"
	"laborgrow/internal/storage/models"
)

// JobHandler serves the public job endpoints and the schema-tolerant
// create path.
type JobHandler struct {
	cfg      *config.Config
	storage  *storage.Storage
	geocoder geo.Geocoder
	inserter *processor.AdaptiveInserter
	logger   *log.Logger
}

func NewJobHandler(cfg *config.Config, storage *storage.Storage, geocoder geo.Geocoder, inserter *processor.AdaptiveInserter) *JobHandler {
	return &JobHandler{
		cfg:      cfg,
		storage:  storage,
		geocoder: geocoder,
		inserter: inserter,
		logger:   log.New(os.Stdout, "[JobHandler] ", log.LstdFlags|log.Lshortfile),
	}
}

// HandleCreateJob validates a posting, geocodes its city and writes it
// through the adaptive insert engine.
// POST /api/v1/jobs
func (h *JobHandler) HandleCreateJob(ctx context.Context, c *app.RequestContext) {
	employerID := c.GetString(middleware.UserIDKey)
	if employerID == "" {
		c.JSON(consts.StatusUnauthorized, utils.H{"error": "not authenticated"})
		return
	}

	var req processor.JobPostingRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}
	if msg := validateJobPosting(&req); msg != "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": msg})
		return
	}

	// Geocoding is best effort. Explicit request coordinates win; with
	// neither, the posting simply carries no geo columns.
	var resolvedLat, resolvedLng *float64
	if (req.Latitude == nil || req.Longitude == nil) && h.geocoder != nil {
		lat, lng, err := h.geocoder.Resolve(ctx, req.JobCity)
		switch {
		case err == nil:
			resolvedLat, resolvedLng = &lat, &lng
		case errors.Is(err, geo.ErrPlaceNotFound):
			h.logger.Printf("no geocode match for city %q", req.JobCity)
		default:
			h.logger.Printf("geocoding failed for city %q: %v", req.JobCity, err)
		}
	}

	rec := processor.NormalizeJobRecord(&req, employerID, resolvedLat, resolvedLng)
	outcome := h.inserter.Insert(ctx, constants.JobsTable, rec, constants.MaxInsertAttempts)
	if !outcome.Succeeded() {
		h.logger.Printf("job insert failed (%s) after %d attempts: %v", outcome.Class, outcome.Attempts, outcome.Err)
		c.JSON(consts.StatusBadRequest, utils.H{"error": outcome.Err.Error()})
		return
	}

	c.JSON(consts.StatusCreated, utils.H{"status": "success", "job_id": outcome.ID})
}

// HandleListJobs lists postings with optional title search and city
// filter, newest first.
// GET /api/v1/jobs?search=&city=&limit=&offset=
func (h *JobHandler) HandleListJobs(ctx context.Context, c *app.RequestContext) {
	limit, offset := paginationParams(c)

	filtered := func() *gorm.DB {
		q := h.storage.MySQL.DB().WithContext(ctx).Model(&models.Job{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		if city := strings.TrimSpace(c.Query("city")); city != "" {
			q = q.Where("job_city = ?", city)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		h.logger.Printf("job count failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list jobs"})
		return
	}

	var jobs []models.Job
	if err := filtered().Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		h.logger.Printf("job list failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list jobs"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"status": "success",
		"jobs":   jobs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// HandleGetJob returns a single posting.
// GET /api/v1/jobs/:job_id
func (h *JobHandler) HandleGetJob(ctx context.Context, c *app.RequestContext) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	var job models.Job
	err := h.storage.MySQL.DB().WithContext(ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "job not found"})
		return
	}
	if err != nil {
		h.logger.Printf("job fetch failed for %d: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to fetch job"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "job": job})
}

// HandleNearbyJobs runs the server-side distance query.
// GET /api/v1/jobs/nearby?lat=&lng=&radius_km=
func (h *JobHandler) HandleNearbyJobs(ctx context.Context, c *app.RequestContext) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "lat and lng are required numeric parameters"})
		return
	}

	radiusKM, err := strconv.ParseFloat(c.Query("radius_km"), 64)
	if err != nil || radiusKM <= 0 {
		radiusKM = 25
	}

	jobs, err := h.storage.MySQL.SearchJobsNearby(ctx, lat, lng, radiusKM, 50)
	if err != nil {
		h.logger.Printf("nearby search failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "nearby search failed"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "jobs": jobs, "radius_km": radiusKM})
}

// HandleListApplicants returns the applications for a posting owned by
// the caller, each with a presigned resume link when one is stored.
// GET /api/v1/jobs/:job_id/applicants
func (h *JobHandler) HandleListApplicants(ctx context.Context, c *app.RequestContext) {
	employerID := c.GetString(middleware.UserIDKey)
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	var job models.Job
	err := h.storage.MySQL.DB().WithContext(ctx).Select("id", "employer_id").First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "job not found"})
		return
	}
	if err != nil {
		h.logger.Printf("job fetch failed for %d: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to fetch job"})
		return
	}
	if job.EmployerID != employerID {
		c.JSON(consts.StatusForbidden, utils.H{"error": "you do not own this job posting"})
		return
	}

	var applications []models.JobApplication
	if err := h.storage.MySQL.DB().WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("applied_at DESC").
		Find(&applications).Error; err != nil {
		h.logger.Printf("applicant list failed for job %d: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list applicants"})
		return
	}

	views := presentApplications(ctx, h.storage.ObjectStorage(), applications, h.logger)
	c.JSON(consts.StatusOK, utils.H{"status": "success", "applications": views, "total": len(views)})
}

// HandleGeoAutocomplete suggests place names for a prefix.
// GET /api/v1/geo/autocomplete?q=
func (h *JobHandler) HandleGeoAutocomplete(ctx context.Context, c *app.RequestContext) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "q parameter is required"})
		return
	}
	if h.geocoder == nil {
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "geocoding unavailable"})
		return
	}

	suggestions, err := h.geocoder.Autocomplete(ctx, q, 5)
	if err != nil {
		h.logger.Printf("autocomplete failed for %q: %v", q, err)
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "geocoding unavailable"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "suggestions": suggestions})
}

func validateJobPosting(req *processor.JobPostingRequest) string {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return "title is required"
	case req.Openings <= 0:
		return "openings must be a positive integer"
	case strings.TrimSpace(req.JobCity) == "":
		return "job_city is required"
	case (req.Latitude == nil) != (req.Longitude == nil):
		return "latitude and longitude must be provided together"
	default:
		return ""
	}
}

func paginationParams(c *app.RequestContext) (limit, offset int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = constants.DefaultPageLimit
	}
	if limit > constants.MaxPageLimit {
		limit = constants.MaxPageLimit
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func jobIDParam(c *app.RequestContext) (uint64, bool) {
	jobID, err := strconv.ParseUint(c.Param("job_id"), 10, 64)
	if err != nil || jobID == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid job id"})
		return 0, false
	}
	return jobID, true
}
