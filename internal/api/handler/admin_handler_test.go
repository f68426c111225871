package handler

import (
	"fmt"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laborgrow/internal/config"
	"laborgrow/internal/storage"
	"laborgrow/internal/storage/models"
)

func newAdminEngine(cfg *config.Config, st *storage.Storage) *server.Hertz {
	h := server.Default()
	adminHandler := NewAdminHandler(cfg, st, nil)
	h.PATCH("/api/v1/admin/jobs/:id", adminHandler.HandlePatchJob)
	h.PATCH("/api/v1/admin/users/employers/:id", adminHandler.HandlePatchEmployer)
	h.PATCH("/api/v1/admin/users/employees/:id", adminHandler.HandlePatchEmployee)
	return h
}

func jsonBody(s string) (*ut.Body, ut.Header) {
	return &ut.Body{Body: newStringReader(s), Len: len(s)},
		ut.Header{Key: "Content-Type", Value: "application/json"}
}

// An empty patch is rejected up front, before any database access.
func TestAdminPatchRejectsEmptyBody(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	h := newAdminEngine(cfg, &storage.Storage{})

	for _, path := range []string{
		"/api/v1/admin/jobs/1",
		"/api/v1/admin/users/employers/u-1",
		"/api/v1/admin/users/employees/u-1",
	} {
		body, header := jsonBody(`{}`)
		resp := ut.PerformRequest(h.Engine, "PATCH", path, body, header)
		assert.Equal(t, consts.StatusUnprocessableEntity, resp.Result().StatusCode(), path)
	}
}

// A body carrying only fields the endpoint does not know is an empty patch.
func TestAdminPatchRejectsUnknownFieldsOnly(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	h := newAdminEngine(cfg, &storage.Storage{})

	body, header := jsonBody(`{"unrelated_field":"x"}`)
	resp := ut.PerformRequest(h.Engine, "PATCH", "/api/v1/admin/jobs/1", body, header)
	assert.Equal(t, consts.StatusUnprocessableEntity, resp.Result().StatusCode())
}

func TestAdminPatchJobHiringFields(t *testing.T) {
	cfg, st := setupTestStorage(t)
	h := newAdminEngine(cfg, st)

	jobID := seedJob(t, st, "employer-admin-1")

	body, header := jsonBody(`{"total_experience":"2-4 years","hiring_speed":"urgent","hiring_frequency":"weekly"}`)
	resp := ut.PerformRequest(h.Engine, "PATCH", fmt.Sprintf("/api/v1/admin/jobs/%d", jobID), body, header)
	require.Equal(t, consts.StatusOK, resp.Result().StatusCode(), string(resp.Result().Body()))

	var job models.Job
	require.NoError(t, st.MySQL.DB().First(&job, "id = ?", jobID).Error)
	assert.Equal(t, "2-4 years", job.TotalExperience)
	assert.Equal(t, "urgent", job.HiringSpeed)
	assert.Equal(t, "weekly", job.HiringFrequency)
}

func TestAdminPatchJobNotFound(t *testing.T) {
	cfg, st := setupTestStorage(t)
	h := newAdminEngine(cfg, st)

	body, header := jsonBody(`{"title":"ghost"}`)
	resp := ut.PerformRequest(h.Engine, "PATCH", "/api/v1/admin/jobs/999999999", body, header)
	assert.Equal(t, consts.StatusNotFound, resp.Result().StatusCode())
}

func TestAdminPatchJobRejectsNonPositiveOpenings(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	h := newAdminEngine(cfg, &storage.Storage{})

	body, header := jsonBody(`{"openings":0}`)
	resp := ut.PerformRequest(h.Engine, "PATCH", "/api/v1/admin/jobs/1", body, header)
	assert.Equal(t, consts.StatusBadRequest, resp.Result().StatusCode())
}
