package handler

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laborgrow/internal/config"
	"laborgrow/internal/storage"
	"laborgrow/internal/storage/models"
)

// setupTestStorage connects to the MySQL instance from the default test
// config, skipping the test when it is unreachable.
func setupTestStorage(t *testing.T) (*config.Config, *storage.Storage) {
	t.Helper()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	mysql, err := storage.NewMySQL(&cfg.MySQL)
	if err != nil {
		t.Skipf("MySQL not available, skipping: %v", err)
	}
	t.Cleanup(func() { mysql.Close() })

	// The jobs table is externally managed in deployments; test databases
	// need a minimal version of it.
	err = mysql.DB().Exec(`CREATE TABLE IF NOT EXISTS jobs (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		employer_id CHAR(36),
		title VARCHAR(255),
		company_name VARCHAR(255),
		openings INT,
		job_city VARCHAR(255),
		total_experience VARCHAR(100),
		salary_min DOUBLE,
		salary_max DOUBLE,
		offers_bonus BOOLEAN,
		required_skills JSON,
		contact_email VARCHAR(255),
		contact_phone VARCHAR(50),
		hiring_speed VARCHAR(50),
		hiring_frequency VARCHAR(50),
		created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
	)`).Error
	require.NoError(t, err)

	return cfg, &storage.Storage{MySQL: mysql}
}

func seedJob(t *testing.T, st *storage.Storage, employerID string) uint64 {
	t.Helper()
	job := models.Job{
		EmployerID: employerID,
		Title:      fmt.Sprintf("test-job-%d", time.Now().UnixNano()),
		JobCity:    "Pune",
		Openings:   1,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, st.MySQL.DB().Create(&job).Error)
	t.Cleanup(func() {
		st.MySQL.DB().Where("job_id = ?", job.ID).Delete(&models.JobApplication{})
		st.MySQL.DB().Delete(&models.Job{}, "id = ?", job.ID)
	})
	return job.ID
}

func newStringReader(s string) io.Reader {
	return strings.NewReader(s)
}

func applyForm(jobID uint64, email string) (string, *ut.Body, ut.Header) {
	body := fmt.Sprintf("full_name=Test+Applicant&email=%s&phone=%%2B91-1234567890&cover_note=hi", email)
	return fmt.Sprintf("/api/v1/jobs/%d/apply", jobID),
		&ut.Body{Body: newStringReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/x-www-form-urlencoded"}
}

func TestApplyDuplicatePreCheck(t *testing.T) {
	cfg, st := setupTestStorage(t)

	h := server.Default()
	applicationHandler := NewApplicationHandler(cfg, st)
	h.POST("/api/v1/jobs/:job_id/apply", applicationHandler.HandleApplyToJob)

	jobID := seedJob(t, st, "employer-test-1")
	email := fmt.Sprintf("dup-%d@example.com", time.Now().UnixNano())

	path, body, header := applyForm(jobID, email)
	resp := ut.PerformRequest(h.Engine, "POST", path, body, header)
	require.Equal(t, consts.StatusCreated, resp.Result().StatusCode(), string(resp.Result().Body()))

	// The same (job_id, email) pair must be rejected before any insert.
	path, body, header = applyForm(jobID, email)
	resp = ut.PerformRequest(h.Engine, "POST", path, body, header)
	assert.Equal(t, consts.StatusConflict, resp.Result().StatusCode())

	var count int64
	require.NoError(t, st.MySQL.DB().WithContext(context.Background()).
		Model(&models.JobApplication{}).
		Where("job_id = ? AND email = ?", jobID, email).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplyUnknownJob(t *testing.T) {
	cfg, st := setupTestStorage(t)

	h := server.Default()
	applicationHandler := NewApplicationHandler(cfg, st)
	h.POST("/api/v1/jobs/:job_id/apply", applicationHandler.HandleApplyToJob)

	path, body, header := applyForm(999999999, "nobody@example.com")
	resp := ut.PerformRequest(h.Engine, "POST", path, body, header)
	assert.Equal(t, consts.StatusNotFound, resp.Result().StatusCode())
}

func TestApplyMissingRequiredFields(t *testing.T) {
	cfg, st := setupTestStorage(t)

	h := server.Default()
	applicationHandler := NewApplicationHandler(cfg, st)
	h.POST("/api/v1/jobs/:job_id/apply", applicationHandler.HandleApplyToJob)

	jobID := seedJob(t, st, "employer-test-2")

	body := "phone=123"
	resp := ut.PerformRequest(h.Engine, "POST", fmt.Sprintf("/api/v1/jobs/%d/apply", jobID),
		&ut.Body{Body: newStringReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/x-www-form-urlencoded"})
	assert.Equal(t, consts.StatusBadRequest, resp.Result().StatusCode())
}

type fakeObjectStorage struct {
	err error
}

func (f *fakeObjectStorage) UploadResumeFile(ctx context.Context, applicationUUID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	return "", f.err
}

func (f *fakeObjectStorage) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://files.example.com/" + objectName, nil
}

func (f *fakeObjectStorage) DeleteFile(ctx context.Context, objectName string) error {
	return f.err
}

func TestPresentApplicationsAttachesResumeLinks(t *testing.T) {
	applications := []models.JobApplication{
		{ID: 1, Email: "a@example.com", ResumePathOSS: "resume/u-1/original.pdf"},
		{ID: 2, Email: "b@example.com"},
	}
	testLogger := log.New(io.Discard, "", 0)

	views := presentApplications(context.Background(), &fakeObjectStorage{}, applications, testLogger)
	require.Len(t, views, 2)
	assert.Equal(t, "https://files.example.com/resume/u-1/original.pdf", views[0].ResumeURL)
	assert.Empty(t, views[1].ResumeURL)
}

func TestPresentApplicationsToleratesStorageFailures(t *testing.T) {
	applications := []models.JobApplication{
		{ID: 1, Email: "a@example.com", ResumePathOSS: "resume/u-1/original.pdf"},
	}
	testLogger := log.New(io.Discard, "", 0)

	// A presign failure drops the link, never the row.
	views := presentApplications(context.Background(), &fakeObjectStorage{err: fmt.Errorf("endpoint down")}, applications, testLogger)
	require.Len(t, views, 1)
	assert.Empty(t, views[0].ResumeURL)

	// No object storage at all behaves the same way.
	views = presentApplications(context.Background(), nil, applications, testLogger)
	require.Len(t, views, 1)
	assert.Empty(t, views[0].ResumeURL)
}
