package journal

import (
	"context"
	"time"

	"gorm.io/gorm"

	"main/internal/account"
	"main/internal/codec"
	"main/pkg/conn"
	"main/pkg/exception"
)

// eventRecord is one persisted event row. The (account_id, seq) unique index
// is what makes appends atomic and ordered per identifier.
type eventRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"size:190;not null;uniqueIndex:idx_account_seq,priority:1"`
	Seq       uint64 `gorm:"not null;uniqueIndex:idx_account_seq,priority:2"`
	Payload   []byte `gorm:"not null"`
	CreatedAt time.Time
}

func (eventRecord) TableName() string {
	return "account_events"
}

// PgLog stores the event journal in a PostgreSQL table.
type PgLog struct {
	client *conn.Client
}

// NewPgLog migrates the journal table and returns a database-backed log.
func NewPgLog(client *conn.Client) (*PgLog, error) {
	if client == nil || client.DB() == nil {
		return nil, exception.ErrJournalClosed
	}
	if err := client.DB().AutoMigrate(&eventRecord{}); err != nil {
		return nil, err
	}
	return &PgLog{client: client}, nil
}

// Append inserts the event with the next per-account sequence inside one
// transaction; the unique index rejects concurrent writers for the same
// identifier.
func (l *PgLog) Append(ctx context.Context, accountID string, evt account.Event) error {
	if accountID == "" {
		return exception.ErrJournalEmptyAccount
	}
	if evt == nil {
		return exception.ErrJournalNilEvent
	}

	payload, err := codec.EncodeEvent(nil, evt)
	if err != nil {
		return err
	}

	return l.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lastSeq uint64
		err := tx.Model(&eventRecord{}).
			Where("account_id = ?", accountID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&lastSeq).Error
		if err != nil {
			return err
		}
		return tx.Create(&eventRecord{
			AccountID: accountID,
			Seq:       lastSeq + 1,
			Payload:   payload,
		}).Error
	})
}

// ReadAll returns the decoded events for the identifier in sequence order.
func (l *PgLog) ReadAll(ctx context.Context, accountID string) ([]account.Event, error) {
	if accountID == "" {
		return nil, exception.ErrJournalEmptyAccount
	}

	var records []eventRecord
	err := l.client.DB().WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("seq ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	events := make([]account.Event, 0, len(records))
	for i, record := range records {
		if record.Seq != uint64(i)+1 {
			return nil, exception.ErrJournalSequenceGap
		}
		evt, err := codec.DecodeEvent(record.Payload)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, nil
}

// Identifiers lists every account with at least one persisted event.
func (l *PgLog) Identifiers(ctx context.Context) ([]string, error) {
	var ids []string
	err := l.client.DB().WithContext(ctx).
		Model(&eventRecord{}).
		Distinct().
		Order("account_id ASC").
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Close closes the underlying connection pool.
func (l *PgLog) Close() error {
	return l.client.Close()
}
