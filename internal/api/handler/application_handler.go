package handler

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"laborgrow/internal/config"
	"laborgrow/internal/constants"
	"laborgrow/internal/storage"
	"laborgrow/internal/storage/models"
)

// ApplicationHandler handles job applications.
type ApplicationHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	logger  *log.Logger
}

func NewApplicationHandler(cfg *config.Config, storage *storage.Storage) *ApplicationHandler {
	return &ApplicationHandler{
		cfg:     cfg,
		storage: storage,
		logger:  log.New(os.Stdout, "[ApplicationHandler] ", log.LstdFlags|log.Lshortfile),
	}
}

// HandleApplyToJob records an application. Multipart form with
// full_name, email, phone, cover_note and an optional resume file.
// POST /api/v1/jobs/:job_id/apply
func (h *ApplicationHandler) HandleApplyToJob(ctx context.Context, c *app.RequestContext) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	fullName := strings.TrimSpace(c.PostForm("full_name"))
	email := normalizeEmail(c.PostForm("email"))
	phone := strings.TrimSpace(c.PostForm("phone"))
	coverNote := strings.TrimSpace(c.PostForm("cover_note"))
	if fullName == "" || email == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "full_name and email are required"})
		return
	}

	db := h.storage.MySQL.DB().WithContext(ctx)

	var job models.Job
	err := db.Select("id", "employer_id").First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "job not found"})
		return
	}
	if err != nil {
		h.logger.Printf("job lookup failed for %d: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to apply"})
		return
	}

	// Duplicate pre-check: one application per (job, email). Runs before
	// any write, so a conflict never consumes insert attempts.
	var count int64
	if err := db.Model(&models.JobApplication{}).
		Where("job_id = ? AND email = ?", jobID, email).
		Count(&count).Error; err != nil {
		h.logger.Printf("duplicate application pre-check failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to apply"})
		return
	}
	if count > 0 {
		c.JSON(consts.StatusConflict, utils.H{"error": "you have already applied to this job"})
		return
	}

	applicationUUID := uuid.NewString()

	// Resume upload is optional and best effort.
	resumePath := ""
	if fileHeader, err := c.FormFile("resume"); err == nil && fileHeader != nil {
		resumePath = h.storeResume(ctx, applicationUUID, fileHeader)
	}

	application := models.JobApplication{
		ApplicationUUID: applicationUUID,
		JobID:           jobID,
		FullName:        fullName,
		Email:           email,
		Phone:           phone,
		CoverNote:       coverNote,
		ResumePathOSS:   resumePath,
		AppliedAt:       time.Now(),
	}
	if err := db.Create(&application).Error; err != nil {
		h.logger.Printf("application insert failed for job %d: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to apply"})
		return
	}

	h.publishSubmitted(ctx, &application)

	c.JSON(consts.StatusCreated, utils.H{
		"status":           "success",
		"application_uuid": applicationUUID,
	})
}

func (h *ApplicationHandler) storeResume(ctx context.Context, applicationUUID string, fileHeader *multipart.FileHeader) string {
	if h.storage.MinIO == nil {
		h.logger.Printf("resume attached but object storage is unavailable, skipping upload")
		return ""
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Printf("failed to open uploaded resume: %v", err)
		return ""
	}
	defer file.Close()

	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".pdf"
	}

	objectName, err := h.storage.MinIO.UploadResumeFile(ctx, applicationUUID, ext, file, fileHeader.Size)
	if err != nil {
		h.logger.Printf("resume upload failed for %s: %v", applicationUUID, err)
		return ""
	}
	return objectName
}

func (h *ApplicationHandler) publishSubmitted(ctx context.Context, application *models.JobApplication) {
	if h.storage.RabbitMQ == nil {
		return
	}
	message := storage.ApplicationSubmittedMessage{
		ApplicationUUID: application.ApplicationUUID,
		JobID:           application.JobID,
		ApplicantEmail:  application.Email,
		ResumePathOSS:   application.ResumePathOSS,
		SubmittedAt:     application.AppliedAt,
	}
	if err := h.storage.RabbitMQ.PublishJSON(ctx, constants.JobEventsExchange, constants.ApplicationSubmittedKey, message, true); err != nil {
		// Fire and forget: the application row is already committed.
		h.logger.Printf("failed to publish application.submitted for %s: %v", application.ApplicationUUID, err)
	}
}

// applicationView is an application row extended with a short-lived
// download link for its stored resume.
type applicationView struct {
	models.JobApplication
	ResumeURL string `json:"resume_url,omitempty"`
}

// presentApplications attaches presigned resume links where an attachment
// exists and object storage is reachable. Presign failures drop the link,
// never the row.
func presentApplications(ctx context.Context, objects storage.ObjectStorage, applications []models.JobApplication, logger *log.Logger) []applicationView {
	views := make([]applicationView, 0, len(applications))
	for _, application := range applications {
		view := applicationView{JobApplication: application}
		if objects != nil && application.ResumePathOSS != "" {
			link, err := objects.GetPresignedURL(ctx, application.ResumePathOSS, constants.ResumeLinkExpiry)
			if err != nil {
				logger.Printf("failed to presign resume %s: %v", application.ResumePathOSS, err)
			} else {
				view.ResumeURL = link
			}
		}
		views = append(views, view)
	}
	return views
}
