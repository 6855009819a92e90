package model

import "time"

// カートの状態遷移の種類
type AuditAction string

const (
	//active → abandoned
	AuditActionCartAbandoned AuditAction = "CART_ABANDONED"
	//abandoned → active（操作で復帰）
	AuditActionCartReactivated AuditAction = "CART_REACTIVATED"
	//abandoned → deleted
	AuditActionCartSoftDeleted AuditAction = "CART_SOFT_DELETED"
	//物理削除
	AuditActionCartHardDeleted AuditAction = "CART_HARD_DELETED"
)

// 誰が遷移させたか
type AuditActor string

const (
	AuditActorSweeper AuditActor = "sweeper"
	AuditActorShopper AuditActor = "shopper"
)

// 監査ログ（カートの状態遷移ログ）。
// 遷移と同じトランザクションで保存する。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`
	Actor  AuditActor  `gorm:"type:varchar(20);not null" json:"actor"`

	//hard deleteの後も残すのでFKは張らない
	CartID int64 `gorm:"not null;index" json:"cart_id"`

	//sweeperの実行ID（uuid）。ユーザー操作は空。
	RunID string `gorm:"type:varchar(36);index" json:"run_id"`

	BeforeStatus CartStatus `gorm:"type:varchar(20);not null" json:"before_status"`
	AfterStatus  CartStatus `gorm:"type:varchar(20);not null" json:"after_status"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
