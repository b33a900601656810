// Package audit journals Flickr API calls to the database
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexbotov/flickrapi/internal/domain"
	"github.com/alexbotov/flickrapi/pkg/flickr"
	"github.com/google/uuid"
)

// Service records every observed call in the api_calls table
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ flickr.Observer = (*Service)(nil)

// New creates a new audit service
func New(db *sql.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// Record stores a call
func (s *Service) Record(ctx context.Context, call *domain.APICall) error {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.RequestedAt.IsZero() {
		call.RequestedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_calls (id, method, outcome, http_status, error_code, cached, duration_ms, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, call.ID, call.Method, call.Outcome, call.HTTPStatus, call.ErrorCode, call.Cached,
		call.DurationMS, call.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	return nil
}

// ObserveCall implements flickr.Observer. Journal failures are logged and
// never fail the call itself.
func (s *Service) ObserveCall(ctx context.Context, call flickr.CallInfo) {
	err := s.Record(ctx, &domain.APICall{
		Method:      call.Method,
		Outcome:     call.Outcome.String(),
		HTTPStatus:  call.HTTPStatus,
		ErrorCode:   call.ErrorCode,
		Cached:      call.Cached,
		DurationMS:  call.Duration.Milliseconds(),
		RequestedAt: call.StartedAt.UTC(),
	})
	if err != nil {
		s.logger.Warn("call journal write failed", "method", call.Method, "error", err)
	}
}

// CallFilter defines criteria for filtering journaled calls
type CallFilter struct {
	Method  string
	Outcome string
	From    time.Time
	To      time.Time
	Limit   int
}

// Calls retrieves journaled calls, newest first
func (s *Service) Calls(ctx context.Context, filter *CallFilter) ([]*domain.APICall, error) {
	query, args := callsQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []*domain.APICall
	for rows.Next() {
		var call domain.APICall
		err := rows.Scan(&call.ID, &call.Method, &call.Outcome, &call.HTTPStatus,
			&call.ErrorCode, &call.Cached, &call.DurationMS, &call.RequestedAt)
		if err != nil {
			return nil, err
		}
		calls = append(calls, &call)
	}

	return calls, rows.Err()
}

// callsQuery builds the filtered journal query. Time bounds are compared in
// UTC, the zone calls are recorded in.
func callsQuery(filter *CallFilter) (string, []interface{}) {
	query := `SELECT id, method, outcome, http_status, error_code, cached, duration_ms, requested_at
			  FROM api_calls WHERE 1=1`
	args := []interface{}{}
	paramIdx := 1

	if filter != nil {
		if filter.Method != "" {
			query += fmt.Sprintf(" AND method = $%d", paramIdx)
			args = append(args, filter.Method)
			paramIdx++
		}
		if filter.Outcome != "" {
			query += fmt.Sprintf(" AND outcome = $%d", paramIdx)
			args = append(args, filter.Outcome)
			paramIdx++
		}
		if !filter.From.IsZero() {
			query += fmt.Sprintf(" AND requested_at >= $%d", paramIdx)
			args = append(args, filter.From.UTC())
			paramIdx++
		}
		if !filter.To.IsZero() {
			query += fmt.Sprintf(" AND requested_at <= $%d", paramIdx)
			args = append(args, filter.To.UTC())
			paramIdx++
		}
	}

	query += " ORDER BY requested_at DESC"

	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", paramIdx)
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100"
	}
	return query, args
}
