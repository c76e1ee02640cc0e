package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/fardannozami/flowcare/internal/domain"
)

const (
	collPreferences = "period_preferences"
	collCycles      = "period_cycles"
	collDailyLogs   = "daily_logs"
	collReminders   = "reminders"
	collUsers       = "users"
)

// Store keeps each record type in its own collection. Dates are BSON
// datetimes at UTC midnight.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger
	now    func() time.Time

	preferences *mongo.Collection
	cycles      *mongo.Collection
	dailyLogs   *mongo.Collection
	reminders   *mongo.Collection
	users       *mongo.Collection
}

var _ domain.Store = (*Store)(nil)

// Connect dials the server and pings it so a bad URI fails here rather than
// on the first write.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewStore(client *mongo.Client, database string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := client.Database(database)
	return &Store{
		client:      client,
		db:          db,
		log:         logger,
		now:         time.Now,
		preferences: db.Collection(collPreferences),
		cycles:      db.Collection(collCycles),
		dailyLogs:   db.Collection(collDailyLogs),
		reminders:   db.Collection(collReminders),
		users:       db.Collection(collUsers),
	}
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

var userIDType = bson.A{"string", "int", "long", "objectId"}

var validators = []struct {
	name   string
	schema bson.M
}{
	{collPreferences, bson.M{
		"bsonType": "object",
		"required": bson.A{"user_id"},
		"properties": bson.M{
			"user_id":                bson.M{"bsonType": userIDType},
			"avg_cycle_length_days":  bson.M{"bsonType": bson.A{"int", "null"}, "minimum": 15, "maximum": 90},
			"avg_period_length_days": bson.M{"bsonType": bson.A{"int", "null"}, "minimum": 1, "maximum": 10},
			"luteal_phase_days":      bson.M{"bsonType": bson.A{"int", "null"}, "minimum": 8, "maximum": 20},
			"updated_at":             bson.M{"bsonType": "date"},
		},
	}},
	{collCycles, bson.M{
		"bsonType": "object",
		"required": bson.A{"user_id", "start_date"},
		"properties": bson.M{
			"user_id":            bson.M{"bsonType": userIDType},
			"start_date":         bson.M{"bsonType": "date"},
			"end_date":           bson.M{"bsonType": bson.A{"date", "null"}},
			"cycle_length_days":  bson.M{"bsonType": bson.A{"int", "null"}, "minimum": 10, "maximum": 120},
			"period_length_days": bson.M{"bsonType": bson.A{"int", "null"}, "minimum": 1, "maximum": 15},
			"notes":              bson.M{"bsonType": bson.A{"string", "null"}},
			"created_at":         bson.M{"bsonType": "date"},
			"updated_at":         bson.M{"bsonType": "date"},
		},
	}},
	{collDailyLogs, bson.M{
		"bsonType": "object",
		"required": bson.A{"user_id", "log_date"},
		"properties": bson.M{
			"user_id":    bson.M{"bsonType": userIDType},
			"log_date":   bson.M{"bsonType": "date"},
			"mood":       bson.M{"bsonType": bson.A{"string", "null"}},
			"flow":       bson.M{"enum": bson.A{domain.FlowNone, domain.FlowLight, domain.FlowMedium, domain.FlowHeavy, nil}},
			"symptoms":   bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "string"}},
			"notes":      bson.M{"bsonType": bson.A{"string", "null"}},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	}},
	{collReminders, bson.M{
		"bsonType": "object",
		"required": bson.A{"user_id", "remind_at", "type"},
		"properties": bson.M{
			"user_id":    bson.M{"bsonType": userIDType},
			"type":       bson.M{"bsonType": "string"},
			"remind_at":  bson.M{"bsonType": "date"},
			"payload":    bson.M{"bsonType": bson.A{"object", "null"}},
			"sent":       bson.M{"bsonType": "bool"},
			"created_at": bson.M{"bsonType": "date"},
		},
	}},
	{collUsers, bson.M{
		"bsonType": "object",
		"required": bson.A{"user_id"},
		"properties": bson.M{
			"user_id":   bson.M{"bsonType": userIDType},
			"last_seen": bson.M{"bsonType": "date"},
		},
	}},
}

type indexSpec struct {
	coll     string
	name     string
	keys     bson.D
	unique   bool
	critical bool
}

// Unique indexes carry the uniqueness rules, so losing one is fatal.
var indexSpecs = []indexSpec{
	{collPreferences, "uniq_user_prefs", bson.D{{Key: "user_id", Value: 1}}, true, true},
	{collCycles, "uniq_user_start", bson.D{{Key: "user_id", Value: 1}, {Key: "start_date", Value: 1}}, true, true},
	{collUsers, "uniq_user", bson.D{{Key: "user_id", Value: 1}}, true, true},
	{collCycles, "by_user_created", bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}, false, false},
	{collDailyLogs, "by_user_logdate", bson.D{{Key: "user_id", Value: 1}, {Key: "log_date", Value: 1}}, false, false},
	{collReminders, "by_user_remind_at", bson.D{{Key: "user_id", Value: 1}, {Key: "remind_at", Value: 1}}, false, false},
	{collReminders, "by_sent", bson.D{{Key: "sent", Value: 1}}, false, false},
}

// EnsureSchema creates missing collections with their $jsonSchema validator,
// re-applies validators to existing ones and builds the indexes. collMod and
// secondary indexes are optional on restricted hosts.
func (s *Store) EnsureSchema(ctx context.Context) (domain.SetupReport, error) {
	var report domain.SetupReport

	existing, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return report, domain.Unavailable("list collections", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for _, v := range validators {
		validator := bson.M{"$jsonSchema": v.schema}
		if !have[v.name] {
			opts := options.CreateCollection().SetValidator(validator)
			if err := s.db.CreateCollection(ctx, v.name, opts); err != nil {
				return report, domain.Unavailable("create collection "+v.name, err)
			}
			continue
		}
		cmd := bson.D{
			{Key: "collMod", Value: v.name},
			{Key: "validator", Value: validator},
			{Key: "validationLevel", Value: "moderate"},
		}
		if err := s.db.RunCommand(ctx, cmd).Err(); err != nil {
			s.log.Warn("validator update failed, continuing without it", zap.String("collection", v.name), zap.Error(err))
			report.Fail("validator "+v.name, err)
		}
	}

	for _, idx := range indexSpecs {
		model := mongo.IndexModel{
			Keys:    idx.keys,
			Options: options.Index().SetName(idx.name).SetUnique(idx.unique),
		}
		if _, err := s.db.Collection(idx.coll).Indexes().CreateOne(ctx, model); err != nil {
			if idx.critical {
				return report, domain.Unavailable("create index "+idx.name, err)
			}
			s.log.Warn("index setup failed, continuing without it", zap.String("index", idx.name), zap.Error(err))
			report.Fail(idx.name, err)
		}
	}
	return report, nil
}
