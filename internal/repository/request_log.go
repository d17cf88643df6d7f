package repository

import (
	"strings"

	"aiproxy/internal/database"
	"aiproxy/internal/model"

	"github.com/google/uuid"
)

type RequestLogRepositoryInterface interface {
	BatchInsert(logs []*model.RequestLog) error
	Query(q model.RequestLogQuery) ([]*model.RequestLog, error)
	GetByID(id string) (*model.RequestLog, error)
	Summary(q model.RequestLogQuery) ([]*model.UsageSummaryRow, error)
	DeleteBefore(cutoff string) (int64, error)
}

var _ RequestLogRepositoryInterface = (*RequestLogRepository)(nil)

type RequestLogRepository struct{}

func NewRequestLogRepository() *RequestLogRepository {
	return &RequestLogRepository{}
}

// BatchInsert 在单个事务中写入一批日志
func (r *RequestLogRepository) BatchInsert(logs []*model.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}
	db := database.GetDB()
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO request_logs (id, created_at, request_id, alias, provider_name, original_model, mapped_model, dialect, status_code, duration_ms, is_streaming, error_type, input_tokens, output_tokens, request_json, response_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range logs {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		_, err := stmt.Exec(
			l.ID, l.CreatedAt, l.RequestID, l.Alias, l.ProviderName, l.OriginalModel, l.MappedModel,
			l.Dialect, l.StatusCode, l.DurationMs, l.IsStreaming, nullable(l.ErrorType),
			l.InputTokens, l.OutputTokens, nullable(l.RequestJSON), nullable(l.ResponseJSON),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *RequestLogRepository) Query(q model.RequestLogQuery) ([]*model.RequestLog, error) {
	db := database.GetDB()

	var conds []string
	var args []any
	if q.ProviderName != "" {
		conds = append(conds, "provider_name = ?")
		args = append(args, q.ProviderName)
	}
	if q.Model != "" {
		conds = append(conds, "mapped_model = ?")
		args = append(args, q.Model)
	}
	if q.ErrorsOnly {
		conds = append(conds, "error_type IS NOT NULL")
	}
	if !q.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, q.Since)
	}

	query := `SELECT id, created_at, request_id, alias, provider_name, original_model, mapped_model, dialect, status_code, duration_ms, is_streaming, COALESCE(error_type, ''), COALESCE(input_tokens, 0), COALESCE(output_tokens, 0), COALESCE(request_json, ''), COALESCE(response_json, '')
	 FROM request_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*model.RequestLog
	for rows.Next() {
		l := &model.RequestLog{}
		err := rows.Scan(
			&l.ID, &l.CreatedAt, &l.RequestID, &l.Alias, &l.ProviderName, &l.OriginalModel, &l.MappedModel,
			&l.Dialect, &l.StatusCode, &l.DurationMs, &l.IsStreaming, &l.ErrorType,
			&l.InputTokens, &l.OutputTokens, &l.RequestJSON, &l.ResponseJSON,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetByID 返回单条日志详情，含原始请求与响应正文
func (r *RequestLogRepository) GetByID(id string) (*model.RequestLog, error) {
	db := database.GetDB()
	l := &model.RequestLog{}
	err := db.QueryRow(
		`SELECT id, created_at, request_id, alias, provider_name, original_model, mapped_model, dialect, status_code, duration_ms, is_streaming, COALESCE(error_type, ''), COALESCE(input_tokens, 0), COALESCE(output_tokens, 0), COALESCE(request_json, ''), COALESCE(response_json, '')
		 FROM request_logs WHERE id = ?`, id,
	).Scan(
		&l.ID, &l.CreatedAt, &l.RequestID, &l.Alias, &l.ProviderName, &l.OriginalModel, &l.MappedModel,
		&l.Dialect, &l.StatusCode, &l.DurationMs, &l.IsStreaming, &l.ErrorType,
		&l.InputTokens, &l.OutputTokens, &l.RequestJSON, &l.ResponseJSON,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Summary 按供应商与模型聚合用量
func (r *RequestLogRepository) Summary(q model.RequestLogQuery) ([]*model.UsageSummaryRow, error) {
	db := database.GetDB()

	var conds []string
	var args []any
	if q.ProviderName != "" {
		conds = append(conds, "provider_name = ?")
		args = append(args, q.ProviderName)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, q.Since)
	}

	query := `SELECT provider_name, mapped_model,
		COUNT(*),
		SUM(CASE WHEN error_type IS NOT NULL THEN 1 ELSE 0 END),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER)
	 FROM request_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " GROUP BY provider_name, mapped_model ORDER BY COUNT(*) DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summary []*model.UsageSummaryRow
	for rows.Next() {
		row := &model.UsageSummaryRow{}
		err := rows.Scan(
			&row.ProviderName, &row.Model, &row.RequestCount, &row.ErrorCount,
			&row.InputTokens, &row.OutputTokens, &row.AvgDurationMs,
		)
		if err != nil {
			return nil, err
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

func (r *RequestLogRepository) DeleteBefore(cutoff string) (int64, error) {
	db := database.GetDB()
	res, err := db.Exec(`DELETE FROM request_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
