package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/model"
)

func setupMockAssignmentDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AssignmentRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewAssignmentRepository(db)
	return db, mock, repo
}

func sampleAssignment(t *testing.T) *model.Assignment {
	t.Helper()
	hotels := []*model.Hotel{{ID: "h1", Name: "海景酒店", RoomConfig: []model.RoomTypeConfig{{RoomType: model.RoomDouble, Count: 1}}}}
	clients := []*model.Client{{ID: "c1", FirstName: "Ann", Gender: model.GenderFemale, ClientType: model.ClientSolo}}
	a := model.NewAssignment(hotels, clients)
	a, err := a.Assign("c1", model.RoomRef{HotelID: "h1", RoomID: "h1-double-1"}, model.AssignmentManual, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return a
}

var snapshotRowColumns = []string{"id", "assignment_id", "version", "name", "labels", "quality_score", "payload", "created_at"}

func TestSave_Success(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	a := sampleAssignment(t)
	snap := &Snapshot{Name: "初稿", Labels: []string{"draft"}, QualityScore: 80, Assignment: a}

	mock.ExpectExec(`INSERT INTO assignment_snapshots`).
		WithArgs(sqlmock.AnyArg(), a.ID, a.Version, "初稿", sqlmock.AnyArg(), 80, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Save(context.Background(), snap)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, a.ID, snap.AssignmentID)
	assert.Equal(t, 1, snap.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_NilAssignment(t *testing.T) {
	db, _, repo := setupMockAssignmentDB(t)
	defer db.Close()

	err := repo.Save(context.Background(), &Snapshot{Name: "空"})
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestSave_DatabaseError(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO assignment_snapshots`).WillReturnError(sql.ErrConnDone)

	err := repo.Save(context.Background(), &Snapshot{Assignment: sampleAssignment(t)})
	assert.True(t, errors.Is(err, errors.CodeDatabaseError))
}

func TestLoad_Success(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	a := sampleAssignment(t)
	payload, err := json.Marshal(a)
	require.NoError(t, err)
	id := uuid.New()
	createdAt := time.Now()

	rows := sqlmock.NewRows(snapshotRowColumns).
		AddRow(id.String(), a.ID.String(), 1, "初稿", "{draft,final}", 80, payload, createdAt)
	mock.ExpectQuery(`SELECT (.+) FROM assignment_snapshots WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	snap, err := repo.Load(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, []string{"draft", "final"}, snap.Labels)
	require.NotNil(t, snap.Assignment)
	ref, ok := snap.Assignment.Locate("c1")
	assert.True(t, ok)
	assert.Equal(t, "h1-double-1", ref.RoomID)
	assert.Equal(t, "Ann", snap.Assignment.Clients["c1"].FirstName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_NotFound(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnError(sql.ErrNoRows)

	snap, err := repo.Load(context.Background(), id)

	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_CorruptPayload(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	id := uuid.New()
	rows := sqlmock.NewRows(snapshotRowColumns).
		AddRow(id.String(), uuid.New().String(), 1, "", "{}", 0, []byte("{broken"), time.Now())
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnRows(rows)

	_, err := repo.Load(context.Background(), id)
	assert.True(t, errors.Is(err, errors.CodeInternal))
}

func TestLoadLatest(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	a := sampleAssignment(t)
	payload, _ := json.Marshal(a)
	rows := sqlmock.NewRows(snapshotRowColumns).
		AddRow(uuid.New().String(), a.ID.String(), 3, "v3", "{}", 90, payload, time.Now())
	mock.ExpectQuery(`ORDER BY version DESC`).WithArgs(a.ID).WillReturnRows(rows)

	snap, err := repo.LoadLatest(context.Background(), a.ID)

	require.NoError(t, err)
	assert.Equal(t, 3, snap.Version)
	assert.Empty(t, snap.Labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_WithFilters(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	assignmentID := uuid.New()
	filter := DefaultListFilter().WithAssignmentID(assignmentID).WithLabels("final").WithLimit(10)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assignment_snapshots WHERE assignment_id = \$1 AND labels && \$2`).
		WithArgs(assignmentID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	listRows := sqlmock.NewRows([]string{"id", "assignment_id", "version", "name", "labels", "quality_score", "created_at"}).
		AddRow(uuid.New().String(), assignmentID.String(), 2, "v2", "{final}", 85, time.Now()).
		AddRow(uuid.New().String(), assignmentID.String(), 1, "v1", "{final,draft}", 60, time.Now())
	mock.ExpectQuery(`ORDER BY created_at desc\s+LIMIT \$3 OFFSET \$4`).
		WithArgs(assignmentID, sqlmock.AnyArg(), 10, 0).
		WillReturnRows(listRows)

	snapshots, total, err := repo.List(context.Background(), filter)

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, snapshots, 2)
	assert.Equal(t, 2, snapshots[0].Version)
	assert.Nil(t, snapshots[0].Assignment)
	assert.Equal(t, []string{"final", "draft"}, snapshots[1].Labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{OrderBy: "id; DROP TABLE x", OrderDir: "sideways", Limit: 1000, Offset: -1}.normalize()

	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "desc", f.OrderDir)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 0, f.Offset)
}

func TestDelete(t *testing.T) {
	db, mock, repo := setupMockAssignmentDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM assignment_snapshots`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), id))

	missing := uuid.New()
	mock.ExpectExec(`DELETE FROM assignment_snapshots`).WithArgs(missing).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Delete(context.Background(), missing)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}
