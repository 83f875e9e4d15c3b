// Package sqlite implements store.Store on SQLite through the Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("streamledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("streamledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Streams ====================

func (s *Store) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	m := new(streamModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", int64(streamID)). //nolint:gosec // stream ids are sequential from 1
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %d", streamledger.ErrStreamNotFound, streamID)
		}
		return nil, err
	}
	return fromStreamModel(m)
}

func (s *Store) PutStream(ctx context.Context, st *stream.Stream) error {
	m, err := toStreamModel(st)
	if err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	m.UpdatedAt = now()

	_, err = s.sdb.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("sender = EXCLUDED.sender").
		Set("recipient = EXCLUDED.recipient").
		Set("asset = EXCLUDED.asset").
		Set("rate_per_second = EXCLUDED.rate_per_second").
		Set("deposited_amount = EXCLUDED.deposited_amount").
		Set("withdrawn_amount = EXCLUDED.withdrawn_amount").
		Set("refunded_amount = EXCLUDED.refunded_amount").
		Set("duration = EXCLUDED.duration").
		Set("start_time = EXCLUDED.start_time").
		Set("last_update_time = EXCLUDED.last_update_time").
		Set("is_active = EXCLUDED.is_active").
		Set("cancelled = EXCLUDED.cancelled").
		Set("settlement = EXCLUDED.settlement").
		Set("withdrawal = EXCLUDED.withdrawal").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) RemoveStream(ctx context.Context, streamID uint64) error {
	_, err := s.sdb.NewDelete((*streamModel)(nil)).
		Where("id = ?", int64(streamID)). //nolint:gosec // stream ids are sequential from 1
		Exec(ctx)
	return err
}

func (s *Store) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	var models []streamModel
	q := s.sdb.NewSelect(&models)

	if opts.Party != "" {
		switch opts.Role {
		case stream.RoleSender:
			q = q.Where("sender = ?", string(opts.Party))
		case stream.RoleRecipient:
			q = q.Where("recipient = ?", string(opts.Party))
		default:
			q = q.Where("(sender = ? OR recipient = ?)", string(opts.Party), string(opts.Party))
		}
	}
	if opts.Asset != "" {
		q = q.Where("asset = ?", string(opts.Asset))
	}
	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.Settling {
		q = q.Where("(settlement IS NOT NULL OR withdrawal IS NOT NULL)")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*stream.Stream, len(models))
	for i := range models {
		st, err := fromStreamModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

func (s *Store) NextStreamID(ctx context.Context) (uint64, error) {
	var n int64
	err := s.sdb.NewRaw(`
		INSERT INTO streamledger_counters (name, value) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET value = streamledger_counters.value + 1
		RETURNING value
	`, store.CounterKey.String()).Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil //nolint:gosec // counter starts at 1
}

// ==================== Governance ====================

func (s *Store) GetAdmin(ctx context.Context) (types.Address, bool, error) {
	m, err := s.getState(ctx, store.AdminKey)
	if err != nil || m == nil {
		return "", false, err
	}
	return types.Address(m.Value), true, nil
}

func (s *Store) InitAdmin(ctx context.Context, admin types.Address) error {
	m := &stateModel{
		Key:       store.AdminKey.String(),
		Value:     string(admin),
		UpdatedAt: now(),
	}
	res, err := s.sdb.NewInsert(m).
		OnConflict("(key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return streamledger.ErrAlreadyInitialized
	}
	return nil
}

func (s *Store) GetEmergencyStop(ctx context.Context) (bool, error) {
	m, err := s.getState(ctx, store.EmergencyStopKey)
	if err != nil || m == nil {
		return false, err
	}
	return strconv.ParseBool(m.Value)
}

func (s *Store) SetEmergencyStop(ctx context.Context, enabled bool) error {
	m := &stateModel{
		Key:       store.EmergencyStopKey.String(),
		Value:     strconv.FormatBool(enabled),
		UpdatedAt: now(),
	}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// getState returns nil, nil when the row is absent.
func (s *Store) getState(ctx context.Context, k store.Key) (*stateModel, error) {
	m := new(stateModel)
	err := s.sdb.NewSelect(m).
		Where("key = ?", k.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
