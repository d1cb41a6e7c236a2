package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/model"
)

// Snapshot 已保存的方案快照
type Snapshot struct {
	ID           uuid.UUID         `json:"id"`
	AssignmentID uuid.UUID         `json:"assignment_id"`
	Version      int               `json:"version"`
	Name         string            `json:"name"`
	Labels       []string          `json:"labels"`
	QualityScore int               `json:"quality_score"`
	Assignment   *model.Assignment `json:"assignment,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AssignmentRepositoryInterface 方案仓储接口
type AssignmentRepositoryInterface interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	LoadLatest(ctx context.Context, assignmentID uuid.UUID) (*Snapshot, error)
	List(ctx context.Context, filter ListFilter) ([]*Snapshot, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AssignmentRepository 方案仓储实现（PostgreSQL，方案以 JSONB 保存）
type AssignmentRepository struct {
	db  DB
	now func() time.Time
}

// NewAssignmentRepository 创建方案仓储
func NewAssignmentRepository(db DB) *AssignmentRepository {
	return &AssignmentRepository{db: db, now: time.Now}
}

const snapshotColumns = `id, assignment_id, version, name, labels, quality_score, payload, created_at`

// Save 保存方案快照
func (r *AssignmentRepository) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Assignment == nil {
		return errors.InvalidInput("assignment", "不能为空")
	}
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	snap.AssignmentID = snap.Assignment.ID
	snap.Version = snap.Assignment.Version
	snap.CreatedAt = r.now()
	if snap.Labels == nil {
		snap.Labels = []string{}
	}

	payload, err := json.Marshal(snap.Assignment)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "序列化方案失败")
	}

	query := `
		INSERT INTO assignment_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		snap.ID, snap.AssignmentID, snap.Version, snap.Name, pq.Array(snap.Labels),
		snap.QualityScore, payload, snap.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存方案快照失败")
	}
	return nil
}

// Load 按快照ID读取
func (r *AssignmentRepository) Load(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM assignment_snapshots WHERE id = $1`
	snap, err := r.scanSnapshot(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("snapshot", id.String())
	}
	return snap, err
}

// LoadLatest 读取方案的最新版本
func (r *AssignmentRepository) LoadLatest(ctx context.Context, assignmentID uuid.UUID) (*Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM assignment_snapshots
		WHERE assignment_id = $1
		ORDER BY version DESC, created_at DESC
		LIMIT 1
	`
	snap, err := r.scanSnapshot(r.db.QueryRowContext(ctx, query, assignmentID))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("assignment", assignmentID.String())
	}
	return snap, err
}

// List 列出快照（不含方案内容）
func (r *AssignmentRepository) List(ctx context.Context, filter ListFilter) ([]*Snapshot, int, error) {
	filter = filter.normalize()

	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.AssignmentID != nil {
		conditions = append(conditions, fmt.Sprintf("assignment_id = $%d", argNum))
		args = append(args, *filter.AssignmentID)
		argNum++
	}
	if len(filter.Labels) > 0 {
		conditions = append(conditions, fmt.Sprintf("labels && $%d", argNum))
		args = append(args, pq.Array(filter.Labels))
		argNum++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM assignment_snapshots %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "统计快照数量失败")
	}

	query := fmt.Sprintf(`
		SELECT id, assignment_id, version, name, labels, quality_score, created_at
		FROM assignment_snapshots %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, filter.OrderBy, filter.OrderDir, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询快照列表失败")
	}
	defer rows.Close()

	snapshots := make([]*Snapshot, 0)
	for rows.Next() {
		s := &Snapshot{}
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.Version, &s.Name,
			pq.Array(&s.Labels), &s.QualityScore, &s.CreatedAt); err != nil {
			return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "扫描快照失败")
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "遍历快照失败")
	}

	return snapshots, total, nil
}

// Delete 删除快照
func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM assignment_snapshots WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除快照失败")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("snapshot", id.String())
	}
	return nil
}

// scanSnapshot 扫描完整快照
func (r *AssignmentRepository) scanSnapshot(row Scanner) (*Snapshot, error) {
	s := &Snapshot{}
	var payload []byte
	err := row.Scan(&s.ID, &s.AssignmentID, &s.Version, &s.Name,
		pq.Array(&s.Labels), &s.QualityScore, &payload, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描快照失败")
	}

	s.Assignment = &model.Assignment{}
	if err := json.Unmarshal(payload, s.Assignment); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "解析方案内容失败")
	}
	return s, nil
}
