package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"pending", "in_progress", "completed"} {
		status, err := ParseStatus(raw)
		require.NoError(t, err)
		require.Equal(t, ReportStatus(raw), status)
	}

	_, err := ParseStatus("archived")
	require.Error(t, err)
	_, err = ParseStatus("")
	require.Error(t, err)
	_, err = ParseStatus("Pending")
	require.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	valid := []string{"problem_facility", "problem_education", "problem_staff", "suggestion", "feedback"}
	for _, raw := range valid {
		category, err := ParseCategory(raw)
		require.NoError(t, err)
		require.Equal(t, ReportCategory(raw), category)
		require.NotEmpty(t, category.Label())
	}

	_, err := ParseCategory("complaint")
	require.Error(t, err)
	_, err = ParseCategory("")
	require.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	statuses := []ReportStatus{ReportStatusPending, ReportStatusInProgress, ReportStatusCompleted}

	allowed := map[[2]ReportStatus]bool{
		{ReportStatusPending, ReportStatusInProgress}:   true,
		{ReportStatusInProgress, ReportStatusCompleted}: true,
	}

	for _, current := range statuses {
		for _, next := range statuses {
			want := allowed[[2]ReportStatus{current, next}]
			require.Equal(t, want, CanTransition(current, next),
				"transition %s -> %s", current, next)
		}
	}

	require.False(t, CanTransition(ReportStatusCompleted, ReportStatusPending))
	require.False(t, CanTransition("unknown", ReportStatusInProgress))
}
