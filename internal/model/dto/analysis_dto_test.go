package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prsnl/codemirror-client/internal/model"
)

func intPtr(n int) *int { return &n }

func TestJobStatusResponse_ToUpdate(t *testing.T) {
	t.Run("passes fields through", func(t *testing.T) {
		r := &JobStatusResponse{
			Status:             "processing",
			ProgressPercentage: intPtr(40),
			CurrentStage:       "scanning",
		}
		u := r.ToUpdate()
		assert.Equal(t, model.StatusProcessing, u.Status)
		assert.Equal(t, 40, u.ProgressPercent)
		assert.Equal(t, "scanning", u.Stage)
	})

	t.Run("clamps out-of-range progress", func(t *testing.T) {
		assert.Equal(t, 100, (&JobStatusResponse{Status: "processing", ProgressPercentage: intPtr(250)}).ToUpdate().ProgressPercent)
		assert.Equal(t, 0, (&JobStatusResponse{Status: "processing", ProgressPercentage: intPtr(-3)}).ToUpdate().ProgressPercent)
	})

	t.Run("falls back to nominal stage progress", func(t *testing.T) {
		r := &JobStatusResponse{Status: "processing", CurrentStage: model.StageScanning}
		assert.Equal(t, model.StageProgress[model.StageScanning], r.ToUpdate().ProgressPercent)
	})

	t.Run("unknown stage without percentage stays at zero", func(t *testing.T) {
		r := &JobStatusResponse{Status: "processing", CurrentStage: "meditating"}
		assert.Zero(t, r.ToUpdate().ProgressPercent)
	})

	t.Run("carries error message", func(t *testing.T) {
		r := &JobStatusResponse{Status: "failed", ErrorMessage: "clone failed"}
		u := r.ToUpdate()
		assert.Equal(t, model.StatusFailed, u.Status)
		assert.Equal(t, "clone failed", u.Error)
	})
}
