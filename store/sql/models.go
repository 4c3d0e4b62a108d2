package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

const messageTrackingTable = "customer_message_tracking"

type messageTrackingRecord struct {
	bun.BaseModel `bun:"table:customer_message_tracking,alias:cmt"`

	ID            string    `bun:"id,pk"`
	OrderID       string    `bun:"order_id,notnull"`
	AccountCode   string    `bun:"account_code,notnull"`
	MessageStatus string    `bun:"message_status,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
