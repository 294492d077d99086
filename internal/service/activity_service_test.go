package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/escola-digital/escola-api/internal/dto"
	"github.com/escola-digital/escola-api/internal/repository"
)

func TestActivityRecordNormalizesFields(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    7,
		ActorRole:  " Teacher ",
		Action:     " Grade.Launched ",
		EntityType: "Grade",
		Metadata:   map[string]interface{}{"trimester": 1},
	})
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
	require.Equal(t, "teacher", entry.ActorRole)
	require.Equal(t, "grade.launched", entry.Action)
	require.Equal(t, "grade", entry.EntityType)
}

func TestActivityRecordDefaultsRoleToSystem(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		Action:     "attendance.recorded",
		EntityType: "attendance",
	})
	require.NoError(t, err)
	require.Equal(t, "system", entry.ActorRole)
}

func TestActivityRecordRequiresActionAndEntityType(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "grade"})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), ActivityEntry{Action: "grade.launched"})
	require.Error(t, err)
}

func TestActivityListPaginatesAndFilters(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewActivityService(repository.NewActivityLogRepository(db), testLogger())

	for i := 0; i < 5; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{
			ActorID:    uint(i%2 + 1),
			Action:     fmt.Sprintf("action.%d", i%2),
			EntityType: "grade",
		})
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(5), page.Pagination.TotalItems)
	require.Equal(t, 3, page.Pagination.TotalPages)

	filtered, err := svc.List(context.Background(), dto.ActivityListRequest{Action: "action.0", PageSize: 10})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 3)
	for _, item := range filtered.Items {
		require.Equal(t, "action.0", item.Action)
	}
}
