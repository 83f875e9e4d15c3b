// Package mongo implements store.Store on MongoDB through the Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Collection name constants.
const (
	colStreams  = "streamledger_streams"
	colState    = "streamledger_state"
	colCounters = "streamledger_counters"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all streamledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("streamledger/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m streamModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(streamID)}). //nolint:gosec // stream ids are sequential from 1
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %d", streamledger.ErrStreamNotFound, streamID)
		}
		return nil, fmt.Errorf("streamledger/mongo: get stream: %w", err)
	}
	return fromStreamModel(&m)
}

func (s *Store) PutStream(ctx context.Context, st *stream.Stream) error {
	m := toStreamModel(st)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	m.UpdatedAt = now()

	set := bson.M{
		"sender":           m.Sender,
		"recipient":        m.Recipient,
		"asset":            m.Asset,
		"rate_per_second":  m.RatePerSecond,
		"deposited_amount": m.DepositedAmount,
		"withdrawn_amount": m.WithdrawnAmount,
		"refunded_amount":  m.RefundedAmount,
		"duration":         m.Duration,
		"start_time":       m.StartTime,
		"last_update_time": m.LastUpdateTime,
		"is_active":        m.IsActive,
		"cancelled":        m.Cancelled,
		"updated_at":       m.UpdatedAt,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": m.CreatedAt},
	}
	unset := bson.M{}
	if m.Settlement != nil {
		set["settlement"] = m.Settlement
	} else {
		unset["settlement"] = ""
	}
	if m.Withdrawal != nil {
		set["withdrawal"] = m.Withdrawal
	} else {
		unset["withdrawal"] = ""
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(update).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: put stream: %w", err)
	}
	return nil
}

func (s *Store) RemoveStream(ctx context.Context, streamID uint64) error {
	_, err := s.mdb.NewDelete((*streamModel)(nil)).
		Filter(bson.M{"_id": int64(streamID)}). //nolint:gosec // stream ids are sequential from 1
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: remove stream: %w", err)
	}
	return nil
}

func (s *Store) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	var models []streamModel

	filter := bson.M{}
	if opts.Party != "" {
		party := string(opts.Party)
		switch opts.Role {
		case stream.RoleSender:
			filter["sender"] = party
		case stream.RoleRecipient:
			filter["recipient"] = party
		default:
			filter["$or"] = bson.A{bson.M{"sender": party}, bson.M{"recipient": party}}
		}
	}
	if opts.Asset != "" {
		filter["asset"] = string(opts.Asset)
	}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}
	if opts.Settling {
		filter["$and"] = bson.A{bson.M{"$or": bson.A{
			bson.M{"settlement": bson.M{"$exists": true}},
			bson.M{"withdrawal": bson.M{"$exists": true}},
		}}}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamledger/mongo: list streams: %w", err)
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
	var c counterModel
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": store.CounterKey.String()},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("streamledger/mongo: next stream id: %w", err)
	}
	return uint64(c.Value), nil //nolint:gosec // counter starts at 1
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return streamledger.ErrAlreadyInitialized
		}
		return fmt.Errorf("streamledger/mongo: init admin: %w", err)
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
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"value":      m.Value,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamledger/mongo: set emergency stop: %w", err)
	}
	return nil
}

func (s *Store) getState(ctx context.Context, k store.Key) (*stateModel, error) {
	var m stateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": k.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("streamledger/mongo: get %s: %w", k, err)
	}
	return &m, nil
}

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all streamledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colStreams: {
			{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "asset", Value: 1}}},
			{
				Keys:    bson.D{{Key: "settlement.id", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		colState: {},
	}
}
