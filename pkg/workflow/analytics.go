package workflow

import "github.com/campaignhq/automation/pkg/models"

// Analytics aggregates execution outcomes. Rates are fractions of the total and 0 when
// there are no executions.
func Analytics(workflowID string, executions []*models.WorkflowExecution) models.ExecutionStats {
	stats := models.ExecutionStats{WorkflowID: workflowID}

	for _, execution := range executions {
		stats.Total++

		switch execution.Status {
		case models.ExecutionStatusRunning:
			stats.Running++
		case models.ExecutionStatusCompleted:
			stats.Completed++
		case models.ExecutionStatusFailed:
			stats.Failed++
		case models.ExecutionStatusPaused:
			stats.Paused++
		case models.ExecutionStatusCancelled:
			stats.Cancelled++
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(stats.Total)
		stats.FailureRate = float64(stats.Failed) / float64(stats.Total)
	}

	return stats
}
