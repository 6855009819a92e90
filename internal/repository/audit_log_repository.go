package repository

import (
	"context"

	"cartkeeper/internal/domain/model"
)

//監査ログの絞り込み条件。

type AuditLogFilter struct {
	CartID *int64
	Action *model.AuditAction
	RunID  string
	Limit  int
}

// 監査ログの保存・一覧取得の約束。
type AuditLogRepository interface {
	//監査ログを1件保存
	Create(ctx context.Context, log model.AuditLog) error

	//古い順で一覧取得
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
