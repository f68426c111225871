package handler

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"

	"laborgrow/internal/authsvc"
	"laborgrow/internal/config"
	"laborgrow/internal/constants"
	"laborgrow/internal/storage"
	"laborgrow/internal/storage/models"
)

// AdminHandler serves the back-office CRUD surface behind the shared
// admin key.
type AdminHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	auth    authsvc.Provider
	logger  *log.Logger
}

func NewAdminHandler(cfg *config.Config, storage *storage.Storage, auth authsvc.Provider) *AdminHandler {
	return &AdminHandler{
		cfg:     cfg,
		storage: storage,
		auth:    auth,
		logger:  log.New(os.Stdout, "[AdminHandler] ", log.LstdFlags|log.Lshortfile),
	}
}

type dashboardStats struct {
	TotalJobs         int64 `json:"total_jobs"`
	TotalEmployers    int64 `json:"total_employers"`
	TotalEmployees    int64 `json:"total_employees"`
	TotalApplications int64 `json:"total_applications"`
}

// HandleDashboard returns totals plus the most recent activity. Totals
// are cached briefly; the recent lists are always fresh.
// GET /api/v1/admin/dashboard
func (h *AdminHandler) HandleDashboard(ctx context.Context, c *app.RequestContext) {
	db := h.storage.MySQL.DB().WithContext(ctx)

	var stats dashboardStats
	cached := false
	if h.storage.Redis != nil {
		err := h.storage.Redis.GetJSON(ctx, constants.DashboardStatsKey, &stats)
		switch {
		case err == nil:
			cached = true
		case !errors.Is(err, storage.ErrNotFound):
			h.logger.Printf("dashboard stats cache read failed: %v", err)
		}
	}
	if !cached {
		counts := []struct {
			model interface{}
			dest  *int64
		}{
			{&models.Job{}, &stats.TotalJobs},
			{&models.Employer{}, &stats.TotalEmployers},
			{&models.Employee{}, &stats.TotalEmployees},
			{&models.JobApplication{}, &stats.TotalApplications},
		}
		for _, cnt := range counts {
			if err := db.Model(cnt.model).Count(cnt.dest).Error; err != nil {
				h.logger.Printf("dashboard count failed: %v", err)
				c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load dashboard"})
				return
			}
		}
		if h.storage.Redis != nil {
			if err := h.storage.Redis.SetJSON(ctx, constants.DashboardStatsKey, stats, constants.DashboardStatsExpiry); err != nil {
				h.logger.Printf("failed to cache dashboard stats: %v", err)
			}
		}
	}

	var recentJobs []models.Job
	if err := db.Order("created_at DESC").Limit(5).Find(&recentJobs).Error; err != nil {
		h.logger.Printf("recent jobs query failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load dashboard"})
		return
	}
	var recentApplications []models.JobApplication
	if err := db.Order("applied_at DESC").Limit(5).Find(&recentApplications).Error; err != nil {
		h.logger.Printf("recent applications query failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load dashboard"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"status":              "success",
		"stats":               stats,
		"recent_jobs":         recentJobs,
		"recent_applications": recentApplications,
	})
}

type employerRow struct {
	models.Employer
	JobCount int64 `json:"job_count" gorm:"column:job_count"`
}

// HandleListEmployers lists employers with per-row job counts.
// GET /api/v1/admin/users/employers?search=&limit=&offset=
func (h *AdminHandler) HandleListEmployers(ctx context.Context, c *app.RequestContext) {
	limit, offset := paginationParams(c)
	db := h.storage.MySQL.DB().WithContext(ctx)

	filtered := func() *gorm.DB {
		q := db.Model(&models.Employer{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			q = q.Where("LOWER(company_name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		h.logger.Printf("employer count failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list employers"})
		return
	}

	var rows []employerRow
	if err := filtered().
		Select("employers.*, (SELECT COUNT(*) FROM jobs WHERE jobs.employer_id = employers.id) AS job_count").
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		h.logger.Printf("employer list failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list employers"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "employers": rows, "total": total, "limit": limit, "offset": offset})
}

// HandleGetEmployer returns one employer with their postings.
// GET /api/v1/admin/users/employers/:id
func (h *AdminHandler) HandleGetEmployer(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	db := h.storage.MySQL.DB().WithContext(ctx)

	var employer models.Employer
	err := db.First(&employer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "employer not found"})
		return
	}
	if err != nil {
		h.logger.Printf("employer fetch failed for %s: %v", id, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to fetch employer"})
		return
	}

	var jobs []models.Job
	if err := db.Where("employer_id = ?", id).Order("created_at DESC").Find(&jobs).Error; err != nil {
		h.logger.Printf("employer jobs query failed for %s: %v", id, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to fetch employer"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "employer": employer, "jobs": jobs})
}

// HandlePatchEmployer partially updates an employer profile.
// PATCH /api/v1/admin/users/employers/:id
func (h *AdminHandler) HandlePatchEmployer(ctx context.Context, c *app.RequestContext) {
	var body struct {
		CompanyName *string `json:"company_name"`
		Email       *string `json:"email"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if body.CompanyName != nil {
		updates["company_name"] = strings.TrimSpace(*body.CompanyName)
	}
	if body.Email != nil {
		updates["email"] = normalizeEmail(*body.Email)
	}

	h.applyPatch(ctx, c, &models.Employer{}, "employer", updates)
}

type employeeApplicationRow struct {
	models.JobApplication
	JobTitle string `json:"job_title" gorm:"column:job_title"`
}

// HandleListEmployees lists job seekers.
// GET /api/v1/admin/users/employees?search=&limit=&offset=
func (h *AdminHandler) HandleListEmployees(ctx context.Context, c *app.RequestContext) {
	limit, offset := paginationParams(c)
	db := h.storage.MySQL.DB().WithContext(ctx)

	filtered := func() *gorm.DB {
		q := db.Model(&models.Employee{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			q = q.Where("LOWER(full_name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		h.logger.Printf("employee count failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list employees"})
		return
	}

	var employees []models.Employee
	if err := filtered().Order("created_at DESC").Limit(limit).Offset(offset).Find(&employees).Error; err != nil {
		h.logger.Printf("employee list failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list employees"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "employees": employees, "total": total, "limit": limit, "offset": offset})
}

// HandleGetEmployee returns one job seeker and their application history.
// GET /api/v1/admin/users/employees/:id
func (h *AdminHandler) HandleGetEmployee(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	db := h.storage.MySQL.DB().WithContext(ctx)

	var employee models.Employee
	err := db.First(&employee, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "employee not found"})
		return
	}
	if err != nil {
		h.logger.Printf("employee fetch failed for %s: %v", id, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to fetch employee"})
		return
	}

	// Applications are keyed by email, not user id: applying does not
	// require an account.
	var applications []employeeApplicationRow
	if err := db.Model(&models.JobApplication{}).
		Select("job_applications.*, jobs.title AS job_title").
		Joins("LEFT JOIN jobs ON jobs.id = job_applications.job_id").
		Where("job_applications.email = ?", employee.Email).
		Order("job_applications.applied_at DESC").
		Find(&applications).Error; err != nil {
		h.logger.Printf("employee applications query failed for %s: %v", id, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to fetch employee"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "employee": employee, "applications": applications})
}

// HandlePatchEmployee partially updates a job-seeker profile.
// PATCH /api/v1/admin/users/employees/:id
func (h *AdminHandler) HandlePatchEmployee(ctx context.Context, c *app.RequestContext) {
	var body struct {
		FullName *string `json:"full_name"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if body.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*body.FullName)
	}
	if body.Email != nil {
		updates["email"] = normalizeEmail(*body.Email)
	}
	if body.Phone != nil {
		updates["phone"] = strings.TrimSpace(*body.Phone)
	}

	h.applyPatch(ctx, c, &models.Employee{}, "employee", updates)
}

// HandleDeleteUser removes a user and everything hanging off them: the
// applications on their jobs, the jobs, both profile rows, then the
// account at the auth service.
// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) HandleDeleteUser(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	db := h.storage.MySQL.DB().WithContext(ctx)

	err := db.Transaction(func(tx *gorm.DB) error {
		var jobIDs []uint64
		if err := tx.Model(&models.Job{}).Where("employer_id = ?", id).Pluck("id", &jobIDs).Error; err != nil {
			return err
		}
		if len(jobIDs) > 0 {
			if err := tx.Where("job_id IN ?", jobIDs).Delete(&models.JobApplication{}).Error; err != nil {
				return err
			}
			if err := tx.Where("employer_id = ?", id).Delete(&models.Job{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", id).Delete(&models.Employer{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Employee{}).Error
	})
	if err != nil {
		h.logger.Printf("cascade delete failed for user %s: %v", id, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to delete user"})
		return
	}

	if err := h.auth.DeleteUser(ctx, id); err != nil {
		// Local rows are gone; report success but keep a trace for cleanup.
		h.logger.Printf("auth service delete failed for user %s: %v", id, err)
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success"})
}

type adminJobRow struct {
	models.Job
	ApplicantCount int64 `json:"applicant_count" gorm:"column:applicant_count"`
}

// HandleListJobs lists postings with applicant counts.
// GET /api/v1/admin/jobs?search=&employer_id=&limit=&offset=
func (h *AdminHandler) HandleListJobs(ctx context.Context, c *app.RequestContext) {
	limit, offset := paginationParams(c)
	db := h.storage.MySQL.DB().WithContext(ctx)

	filtered := func() *gorm.DB {
		q := db.Model(&models.Job{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		if employerID := strings.TrimSpace(c.Query("employer_id")); employerID != "" {
			q = q.Where("employer_id = ?", employerID)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		h.logger.Printf("admin job count failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list jobs"})
		return
	}

	var rows []adminJobRow
	if err := filtered().
		Select("jobs.*, (SELECT COUNT(*) FROM job_applications WHERE job_applications.job_id = jobs.id) AS applicant_count").
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		h.logger.Printf("admin job list failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list jobs"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "jobs": rows, "total": total, "limit": limit, "offset": offset})
}

// HandlePatchJob partially updates a posting's core columns.
// PATCH /api/v1/admin/jobs/:id
func (h *AdminHandler) HandlePatchJob(ctx context.Context, c *app.RequestContext) {
	var body struct {
		Title           *string  `json:"title"`
		Openings        *int     `json:"openings"`
		JobCity         *string  `json:"job_city"`
		TotalExperience *string  `json:"total_experience"`
		SalaryMin       *float64 `json:"salary_min"`
		SalaryMax       *float64 `json:"salary_max"`
		OffersBonus     *bool    `json:"offers_bonus"`
		HiringSpeed     *string  `json:"hiring_speed"`
		HiringFrequency *string  `json:"hiring_frequency"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if body.Title != nil {
		updates["title"] = strings.TrimSpace(*body.Title)
	}
	if body.Openings != nil {
		if *body.Openings <= 0 {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "openings must be a positive integer"})
			return
		}
		updates["openings"] = *body.Openings
	}
	if body.JobCity != nil {
		updates["job_city"] = strings.TrimSpace(*body.JobCity)
	}
	if body.TotalExperience != nil {
		updates["total_experience"] = strings.TrimSpace(*body.TotalExperience)
	}
	if body.SalaryMin != nil {
		updates["salary_min"] = *body.SalaryMin
	}
	if body.SalaryMax != nil {
		updates["salary_max"] = *body.SalaryMax
	}
	if body.OffersBonus != nil {
		updates["offers_bonus"] = *body.OffersBonus
	}
	if body.HiringSpeed != nil {
		updates["hiring_speed"] = strings.TrimSpace(*body.HiringSpeed)
	}
	if body.HiringFrequency != nil {
		updates["hiring_frequency"] = strings.TrimSpace(*body.HiringFrequency)
	}

	h.applyPatch(ctx, c, &models.Job{}, "job", updates)
}

// HandleDeleteJob removes a posting and its applications.
// DELETE /api/v1/admin/jobs/:id
func (h *AdminHandler) HandleDeleteJob(ctx context.Context, c *app.RequestContext) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || jobID == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid job id"})
		return
	}
	db := h.storage.MySQL.DB().WithContext(ctx)

	var job models.Job
	lookupErr := db.Select("id", "employer_id").First(&job, "id = ?", jobID).Error
	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "job not found"})
		return
	}
	if lookupErr != nil {
		h.logger.Printf("job lookup failed for %d: %v", jobID, lookupErr)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to delete job"})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&models.JobApplication{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", jobID).Delete(&models.Job{}).Error
	})
	if err != nil {
		h.logger.Printf("job delete failed for %d: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to delete job"})
		return
	}

	if h.storage.RabbitMQ != nil {
		message := storage.JobRemovedMessage{JobID: jobID, EmployerID: job.EmployerID, RemovedAt: time.Now()}
		if err := h.storage.RabbitMQ.PublishJSON(ctx, constants.JobEventsExchange, constants.JobRemovedKey, message, true); err != nil {
			h.logger.Printf("failed to publish job.removed for %d: %v", jobID, err)
		}
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success"})
}

// HandleListApplications lists applications with optional filters.
// GET /api/v1/admin/applications?job_id=&email=&limit=&offset=
func (h *AdminHandler) HandleListApplications(ctx context.Context, c *app.RequestContext) {
	limit, offset := paginationParams(c)
	db := h.storage.MySQL.DB().WithContext(ctx)

	if jobIDStr := strings.TrimSpace(c.Query("job_id")); jobIDStr != "" {
		if _, err := strconv.ParseUint(jobIDStr, 10, 64); err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid job_id filter"})
			return
		}
	}

	filtered := func() *gorm.DB {
		q := db.Model(&models.JobApplication{})
		if jobIDStr := strings.TrimSpace(c.Query("job_id")); jobIDStr != "" {
			q = q.Where("job_id = ?", jobIDStr)
		}
		if email := strings.TrimSpace(c.Query("email")); email != "" {
			q = q.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(email)+"%")
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		h.logger.Printf("application count failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list applications"})
		return
	}

	var applications []models.JobApplication
	if err := filtered().Order("applied_at DESC").Limit(limit).Offset(offset).Find(&applications).Error; err != nil {
		h.logger.Printf("application list failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to list applications"})
		return
	}

	views := presentApplications(ctx, h.storage.ObjectStorage(), applications, h.logger)
	c.JSON(consts.StatusOK, utils.H{"status": "success", "applications": views, "total": total, "limit": limit, "offset": offset})
}

// HandleDeleteApplication removes one application and its stored resume.
// DELETE /api/v1/admin/applications/:id
func (h *AdminHandler) HandleDeleteApplication(ctx context.Context, c *app.RequestContext) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid application id"})
		return
	}
	db := h.storage.MySQL.DB().WithContext(ctx)

	var application models.JobApplication
	lookupErr := db.First(&application, "id = ?", id).Error
	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "application not found"})
		return
	}
	if lookupErr != nil {
		h.logger.Printf("application lookup failed for %d: %v", id, lookupErr)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to delete application"})
		return
	}

	if err := db.Delete(&models.JobApplication{}, "id = ?", id).Error; err != nil {
		h.logger.Printf("application delete failed for %d: %v", id, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to delete application"})
		return
	}

	if application.ResumePathOSS != "" && h.storage.MinIO != nil {
		if err := h.storage.MinIO.DeleteFile(ctx, application.ResumePathOSS); err != nil {
			h.logger.Printf("failed to delete resume %s: %v", application.ResumePathOSS, err)
		}
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success"})
}

// HandleGlobalSearch searches jobs, employers and employees at once.
// GET /api/v1/admin/search?q=
func (h *AdminHandler) HandleGlobalSearch(ctx context.Context, c *app.RequestContext) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < constants.AdminSearchMinLength {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "search query must be at least 2 characters"})
		return
	}
	pattern := "%" + strings.ToLower(q) + "%"
	db := h.storage.MySQL.DB().WithContext(ctx)

	var jobs []models.Job
	if err := db.Where("LOWER(title) LIKE ?", pattern).Order("created_at DESC").Limit(5).Find(&jobs).Error; err != nil {
		h.logger.Printf("global job search failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "search failed"})
		return
	}
	var employers []models.Employer
	if err := db.Where("LOWER(company_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).Limit(5).Find(&employers).Error; err != nil {
		h.logger.Printf("global employer search failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "search failed"})
		return
	}
	var employees []models.Employee
	if err := db.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).Limit(5).Find(&employees).Error; err != nil {
		h.logger.Printf("global employee search failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "search failed"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"status":    "success",
		"jobs":      jobs,
		"employers": employers,
		"employees": employees,
	})
}

// applyPatch runs a partial update, rejecting empty patches with 422 and
// missing rows with 404.
func (h *AdminHandler) applyPatch(ctx context.Context, c *app.RequestContext, model interface{}, name string, updates map[string]interface{}) {
	if len(updates) == 0 {
		c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "no updatable fields provided"})
		return
	}

	id := c.Param("id")
	result := h.storage.MySQL.DB().WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		h.logger.Printf("%s update failed for %s: %v", name, id, result.Error)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to update " + name})
		return
	}
	if result.RowsAffected == 0 {
		var count int64
		h.storage.MySQL.DB().WithContext(ctx).Model(model).Where("id = ?", id).Count(&count)
		if count == 0 {
			c.JSON(consts.StatusNotFound, utils.H{"error": name + " not found"})
			return
		}
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success"})
}
