package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/repository"
)

func setupMockDB(t *testing.T) (BaseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewBaseRepository(sqlx.NewDb(db, "postgres"), nil), mock
}

func TestCountWhereBuildsConjunction(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM appointments WHERE doctor_id = $1 AND status = $2")).
		WithArgs("d-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.CountWhere(context.Background(), "appointments",
		model.Filter{model.Eq("doctor_id", "d-1"), model.Eq("status", "pending")})

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCountWhereColumnComparison(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM inventory WHERE quantity < reorder_level")).
		WithoutArgs().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := repo.CountWhere(context.Background(), "inventory", model.Filter{model.LtColumn("quantity", "reorder_level")})

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCountWhereNoFilter(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM patients")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := repo.CountWhere(context.Background(), "patients", nil)

	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestQueryManyOrdersAndLimits(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM notifications WHERE user_id = $1 AND read = $2 ORDER BY created_at DESC LIMIT 5")).
		WithArgs("u-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "read"}).
			AddRow([]byte("n-1"), []byte("u-1"), []byte("Lab ready"), false))

	rows, err := repo.QueryMany(context.Background(), "notifications",
		model.Filter{model.Eq("user_id", "u-1"), model.Eq("read", false)}, model.NewestFirst, 5)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "n-1", rows[0]["id"])
	assert.Equal(t, "Lab ready", rows[0]["title"])
	assert.Equal(t, false, rows[0]["read"])
}

func TestQueryOneNoRow(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM user_profiles WHERE user_id = $1 LIMIT 1")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role"}))

	row, err := repo.QueryOne(context.Background(), "user_profiles", model.Filter{model.Eq("user_id", "u-1")})

	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestRejectsUnknownNames(t *testing.T) {
	base, _ := setupMockDB(t)
	repo := NewRecordRepository(base)
	ctx := context.Background()

	_, err := repo.CountWhere(ctx, "identities", nil)
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)

	_, err = repo.CountWhere(ctx, "patients", model.Filter{model.Eq("password_hash", "x")})
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)

	_, err = repo.CountWhere(ctx, "inventory", model.Filter{model.LtColumn("quantity", "1; DROP TABLE inventory")})
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)

	_, err = repo.QueryMany(ctx, "patients", nil, &model.Order{Column: "nope"}, 0)
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)

	_, err = repo.Insert(ctx, "patients", model.Row{"ssn": "123"})
	assert.ErrorIs(t, err, repository.ErrInvalidQuery)
}

func TestRejectsUnboundSubject(t *testing.T) {
	base, _ := setupMockDB(t)
	repo := NewRecordRepository(base)

	_, err := repo.CountWhere(context.Background(), "patients", model.Filter{model.EqSubject("doctor_id")})

	assert.ErrorIs(t, err, repository.ErrInvalidQuery)
}

func TestInsertSortsColumnsAndSkipsStoreAssigned(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO appointments (patient_id, status) VALUES ($1, $2) RETURNING *")).
		WithArgs("p-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "status"}).
			AddRow([]byte("a-1"), []byte("p-1"), []byte("pending")))

	row, err := repo.Insert(context.Background(), "appointments",
		model.Row{"status": "pending", "patient_id": "p-1", "id": "ignored"})

	require.NoError(t, err)
	assert.Equal(t, "a-1", row["id"])
}

func TestInsertEncodesAndDecodesJSONB(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO doctors (available_days, first_name) VALUES ($1, $2) RETURNING *")).
		WithArgs([]byte(`["Mon","Tue"]`), "Ada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "available_days"}).
			AddRow([]byte("d-1"), []byte("Ada"), []byte(`["Mon","Tue"]`)))

	row, err := repo.Insert(context.Background(), "doctors",
		model.Row{"first_name": "Ada", "available_days": []string{"Mon", "Tue"}})

	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Mon", "Tue"}, row["available_days"])
}

func TestUpdateNotFound(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bills SET status = $1 WHERE id = $2 RETURNING *")).
		WithArgs("paid", "b-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Update(context.Background(), "bills", "b-1", model.Row{"status": "paid"})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateRejectsEmptyPayload(t *testing.T) {
	base, _ := setupMockDB(t)
	repo := NewRecordRepository(base)

	_, err := repo.Update(context.Background(), "bills", "b-1", model.Row{"id": "b-2"})

	assert.ErrorIs(t, err, repository.ErrInvalidQuery)
}

func TestDelete(t *testing.T) {
	base, mock := setupMockDB(t)
	repo := NewRecordRepository(base)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lab_tests WHERE id = $1")).
		WithArgs("l-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lab_tests WHERE id = $1")).
		WithArgs("l-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "lab_tests", "l-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "lab_tests", "l-2"), repository.ErrNotFound)
}
