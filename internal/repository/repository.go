// Package repository 提供方案快照的持久化
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// ListFilter 列表查询过滤器
type ListFilter struct {
	AssignmentID *uuid.UUID `json:"assignment_id,omitempty"`
	Labels       []string   `json:"labels,omitempty"` // 任一标签匹配
	Search       string     `json:"search,omitempty"` // 名称模糊匹配
	Offset       int        `json:"offset"`
	Limit        int        `json:"limit"`
	OrderBy      string     `json:"order_by,omitempty"`
	OrderDir     string     `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithAssignmentID 只查询指定方案的快照
func (f ListFilter) WithAssignmentID(id uuid.UUID) ListFilter {
	f.AssignmentID = &id
	return f
}

// WithLabels 设置标签过滤
func (f ListFilter) WithLabels(labels ...string) ListFilter {
	f.Labels = labels
	return f
}

// orderColumns 允许排序的列
var orderColumns = map[string]bool{
	"created_at":    true,
	"version":       true,
	"quality_score": true,
	"name":          true,
}

// normalize 修正非法的排序和分页参数
func (f ListFilter) normalize() ListFilter {
	if !orderColumns[f.OrderBy] {
		f.OrderBy = "created_at"
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
