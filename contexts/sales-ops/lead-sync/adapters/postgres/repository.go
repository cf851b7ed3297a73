package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	"leadsync/contexts/sales-ops/lead-sync/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	leadsTable      = "leads"
	upsertBatchSize = 500
)

var leadUpdateColumns = []string{
	"client_name",
	"lead_status",
	"assigned_sales_rep",
	"expected_value",
	"close_date",
}

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WithSession pins one pooled connection for the duration of fn and returns
// it to the pool afterwards, including when fn fails.
func (r *Repository) WithSession(
	ctx context.Context,
	fn func(ctx context.Context, repo ports.LeadRepository) error,
) error {
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(ctx, &Repository{db: conn, logger: r.logger})
	})
}

func (r *Repository) FetchAllLeads(ctx context.Context) ([]entities.Lead, error) {
	var rows []leadModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		if isUndefinedTable(err) {
			return nil, r.logError("lead_repository_table_missing", err, "table", leadsTable)
		}
		return nil, r.logError("lead_repository_fetch_failed", err)
	}
	items := make([]entities.Lead, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// UpsertLeads inserts new leads and overwrites existing ones by id in a single
// transaction, so a failure leaves none of the batch applied.
func (r *Repository) UpsertLeads(ctx context.Context, leads []entities.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	rows := make([]leadModel, 0, len(leads))
	for _, lead := range leads {
		rows = append(rows, leadModelFromEntity(lead))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(leadUpdateColumns),
		}).CreateInBatches(&rows, upsertBatchSize).Error; err != nil {
			return err
		}
		// Explicit ids bypass the serial sequence; keep it ahead of them.
		return tx.Exec(syncSequenceSQL).Error
	})
	if err != nil {
		return r.logError("lead_repository_upsert_failed", err, "leads", len(rows))
	}
	r.logger.Debug("leads upserted",
		"event", "lead_repository_upserted",
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"leads", len(rows),
	)
	return nil
}

func (r *Repository) DeleteLeads(ctx context.Context, leadIDs []int64) error {
	if len(leadIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ?", leadIDs).
		Delete(&leadModel{})
	if result.Error != nil {
		return r.logError("lead_repository_delete_failed", result.Error, "leads", len(leadIDs))
	}
	if result.RowsAffected != int64(len(leadIDs)) {
		r.logger.Warn("fewer leads deleted than requested",
			"event", "lead_repository_delete_partial",
			"module", "sales-ops/lead-sync",
			"layer", "adapter",
			"requested", len(leadIDs),
			"deleted", result.RowsAffected,
		)
	}
	return nil
}

// EnsureSchema creates the leads table and the trigger that announces every
// row change on channel. It is safe to run repeatedly.
func (r *Repository) EnsureSchema(ctx context.Context, channel string) error {
	statements, err := SchemaStatements(channel)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, statement := range statements {
			if err := tx.Exec(statement).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.logError("lead_repository_schema_failed", err, "channel", channel)
	}
	r.logger.Info("lead schema ensured",
		"event", "lead_repository_schema_ready",
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"table", leadsTable,
		"channel", channel,
	)
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"error", err.Error(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields = append(fields, "sqlstate", pgErr.Code)
	}
	fields = append(fields, attrs...)
	r.logger.Error("lead repository operation failed", fields...)
	return err
}

type leadModel struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement:false"`
	ClientName       *string    `gorm:"column:client_name"`
	LeadStatus       *string    `gorm:"column:lead_status"`
	AssignedSalesRep *string    `gorm:"column:assigned_sales_rep"`
	ExpectedValue    *string    `gorm:"column:expected_value;type:numeric"`
	CloseDate        *time.Time `gorm:"column:close_date;type:date"`
}

func (leadModel) TableName() string {
	return leadsTable
}

func leadModelFromEntity(item entities.Lead) leadModel {
	row := leadModel{
		ID:               item.LeadID,
		ClientName:       nullableText(item.ClientName),
		LeadStatus:       nullableText(item.LeadStatus),
		AssignedSalesRep: nullableText(item.AssignedSalesRep),
	}
	if item.ExpectedValue != nil {
		value := strings.TrimSpace(*item.ExpectedValue)
		row.ExpectedValue = &value
	}
	if item.CloseDate != nil {
		day := time.Date(item.CloseDate.Year(), item.CloseDate.Month(), item.CloseDate.Day(), 0, 0, 0, 0, time.UTC)
		row.CloseDate = &day
	}
	return row
}

func (m leadModel) toEntity() entities.Lead {
	item := entities.Lead{
		LeadID:           m.ID,
		ClientName:       textValue(m.ClientName),
		LeadStatus:       textValue(m.LeadStatus),
		AssignedSalesRep: textValue(m.AssignedSalesRep),
	}
	if m.ExpectedValue != nil {
		value := trimDecimal(*m.ExpectedValue)
		item.ExpectedValue = &value
	}
	if m.CloseDate != nil {
		day := time.Date(m.CloseDate.Year(), m.CloseDate.Month(), m.CloseDate.Day(), 0, 0, 0, 0, time.UTC)
		item.CloseDate = &day
	}
	return item
}

func nullableText(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func textValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// trimDecimal drops the scale padding NUMERIC can carry ("100.00" -> "100").
func trimDecimal(value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, ".") || strings.ContainsAny(value, "eE") {
		return value
	}
	value = strings.TrimRight(value, "0")
	return strings.TrimSuffix(value, ".")
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

var syncSequenceSQL = fmt.Sprintf(
	`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT MAX(id) FROM %[1]s), 1))`,
	leadsTable,
)

var _ ports.LeadSessions = (*Repository)(nil)
var _ ports.LeadRepository = (*Repository)(nil)
