package dao

import (
	"context"
	"testing"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ecodeclub/ekit/sqlx"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestNotificationDAO_Create(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "created",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO `notifications`").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "duplicate key",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO `notifications`").
					WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			},
			wantErr: errs.ErrNotificationDuplicate,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			db, mock := newMockDB(t)
			tc.mock(mock)
			d := NewNotificationDAO(db)
			res, err := d.Create(context.Background(), Notification{
				ID:          1,
				Key:         "evt-1:s-1:email",
				Channel:     "email",
				Destination: "a@b.c",
				Template:    "labour-begun",
				Data:        sqlx.JsonColumn[map[string]string]{Val: map[string]string{"name": "A"}, Valid: true},
				Status:      "created",
			})
			assert.ErrorIs(t, err, tc.wantErr)
			if tc.wantErr == nil {
				assert.NotZero(t, res.Ctime)
				assert.Equal(t, res.Ctime, res.Utime)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNotificationDAO_GetByID(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	d := NewNotificationDAO(db)

	mock.ExpectQuery("SELECT \\* FROM `notifications` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := d.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, errs.ErrNotificationNotFoundByID)

	mock.ExpectQuery("SELECT \\* FROM `notifications` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "channel", "status", "metadata"}).
			AddRow(42, "k", "sms", "failure", `{"error":"boom"}`))
	n, err := d.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n.ID)
	assert.Equal(t, "failure", n.Status)
	assert.Equal(t, "boom", n.Metadata.Val["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationDAO_UpdateStatus(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	d := NewNotificationDAO(db)

	mock.ExpectExec("UPDATE `notifications` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	err := d.UpdateStatus(context.Background(), Notification{ID: 7, Status: "sent"})
	assert.ErrorIs(t, err, errs.ErrNotificationNotFoundByID)

	mock.ExpectExec("UPDATE `notifications` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	err = d.UpdateStatus(context.Background(), Notification{ID: 7, Status: "sent", ExternalID: "ext"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabourDAO_FindByID(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	d := NewLabourDAO(db)

	mock.ExpectQuery("SELECT \\* FROM `labours` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := d.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrLabourNotFound)

	mock.ExpectQuery("SELECT \\* FROM `labours` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "birthing_person_id", "current_phase"}).
			AddRow("l-1", "bp-1", "early"))
	mock.ExpectQuery("SELECT \\* FROM `contractions` WHERE labour_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "labour_id", "start_time", "end_time", "intensity"}).
			AddRow("c-1", "l-1", int64(1000), int64(61000), int64(5)).
			AddRow("c-2", "l-1", int64(120000), nil, nil))
	mock.ExpectQuery("SELECT \\* FROM `labour_updates` WHERE labour_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	agg, err := d.FindByID(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, "early", agg.Labour.CurrentPhase)
	require.Len(t, agg.Contractions, 2)
	assert.True(t, agg.Contractions[0].EndTime.Valid)
	assert.False(t, agg.Contractions[1].EndTime.Valid)
	assert.Empty(t, agg.LabourUpdates)
	assert.NoError(t, mock.ExpectationsWereMet())
}
