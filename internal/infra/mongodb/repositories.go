package mongodb

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fardannozami/flowcare/internal/domain"
)

func (s *Store) GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	var doc preferencesDoc
	err := s.preferences.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("get preferences", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) UpsertPreferences(ctx context.Context, prefs *domain.Preferences) (*domain.Preferences, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = s.now().UTC()
	}

	update := bson.M{
		"$set": bson.M{
			"avg_cycle_length_days":  prefs.AvgCycleLengthDays,
			"avg_period_length_days": prefs.AvgPeriodLengthDays,
			"luteal_phase_days":      prefs.LutealPhaseDays,
			"updated_at":             prefs.UpdatedAt,
		},
		"$setOnInsert": bson.M{"user_id": prefs.UserID},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc preferencesDoc
	if err := s.preferences.FindOneAndUpdate(ctx, bson.M{"user_id": prefs.UserID}, update, opts).Decode(&doc); err != nil {
		return nil, domain.Unavailable("upsert preferences", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) InsertCycle(ctx context.Context, cycle *domain.Cycle) error {
	if err := cycle.Validate(); err != nil {
		return err
	}
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if cycle.CreatedAt.IsZero() {
		cycle.CreatedAt = now
	}
	if cycle.UpdatedAt.IsZero() {
		cycle.UpdatedAt = now
	}

	_, err := s.cycles.InsertOne(ctx, newCycleDoc(cycle))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateEntry
	}
	return domain.Unavailable("insert cycle", err)
}

func (s *Store) findCycle(ctx context.Context, op string, filter bson.M, opts ...*options.FindOneOptions) (*domain.Cycle, error) {
	var doc cycleDoc
	err := s.cycles.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable(op, err)
	}
	return doc.toDomain(), nil
}

func (s *Store) GetCycle(ctx context.Context, userID string, start civil.Date) (*domain.Cycle, error) {
	return s.findCycle(ctx, "get cycle", bson.M{"user_id": userID, "start_date": domain.ToCanonical(start)})
}

func (s *Store) UpdateCycleEnd(ctx context.Context, userID string, start, end civil.Date, periodLength int, at time.Time) (*domain.Cycle, error) {
	if end.Before(start) {
		return nil, &domain.ValidationError{Field: "end_date", Reason: "before start_date"}
	}
	if err := domain.ValidatePeriodLength(periodLength); err != nil {
		return nil, err
	}

	filter := bson.M{"user_id": userID, "start_date": domain.ToCanonical(start)}
	update := bson.M{"$set": bson.M{
		"end_date":           domain.ToCanonical(end),
		"period_length_days": periodLength,
		"updated_at":         at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc cycleDoc
	err := s.cycles.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.Unavailable("update cycle end", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) PrecedingCycle(ctx context.Context, userID string, before civil.Date) (*domain.Cycle, error) {
	filter := bson.M{"user_id": userID, "start_date": bson.M{"$lt": domain.ToCanonical(before)}}
	opts := options.FindOne().SetSort(bson.D{{Key: "start_date", Value: -1}})
	return s.findCycle(ctx, "find preceding cycle", filter, opts)
}

func (s *Store) SetCycleLength(ctx context.Context, id string, days int, at time.Time) error {
	if err := domain.ValidateCycleLength(days); err != nil {
		return err
	}
	res, err := s.cycles.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"cycle_length_days": days, "updated_at": at}},
	)
	if err != nil {
		return domain.Unavailable("set cycle length", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) RecentCycles(ctx context.Context, userID string, limit int) ([]*domain.Cycle, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.cycles.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, domain.Unavailable("list cycles", err)
	}
	var docs []cycleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Unavailable("list cycles", err)
	}

	cycles := make([]*domain.Cycle, 0, len(docs))
	for _, d := range docs {
		cycles = append(cycles, d.toDomain())
	}
	return cycles, nil
}

func (s *Store) RecentCycleLengths(ctx context.Context, userID string, limit int) ([]int, error) {
	filter := bson.M{"user_id": userID, "cycle_length_days": bson.M{"$ne": nil}}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: -1}}).
		SetProjection(bson.M{"cycle_length_days": 1}).
		SetLimit(int64(limit))
	cur, err := s.cycles.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.Unavailable("list cycle lengths", err)
	}
	var docs []struct {
		CycleLengthDays int `bson:"cycle_length_days"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Unavailable("list cycle lengths", err)
	}

	lengths := make([]int, 0, len(docs))
	for _, d := range docs {
		lengths = append(lengths, d.CycleLengthDays)
	}
	return lengths, nil
}

func (s *Store) InsertDailyLog(ctx context.Context, log *domain.DailyLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Symptoms == nil {
		log.Symptoms = []string{}
	}
	now := s.now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	if log.UpdatedAt.IsZero() {
		log.UpdatedAt = now
	}

	_, err := s.dailyLogs.InsertOne(ctx, newDailyLogDoc(log))
	return domain.Unavailable("insert daily log", err)
}

func (s *Store) DailyLogsBetween(ctx context.Context, userID string, from, to civil.Date) ([]*domain.DailyLog, error) {
	filter := bson.M{
		"user_id":  userID,
		"log_date": bson.M{"$gte": domain.ToCanonical(from), "$lte": domain.ToCanonical(to)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "log_date", Value: 1}, {Key: "created_at", Value: 1}})
	return s.findDailyLogs(ctx, filter, opts)
}

func (s *Store) RecentDailyLogs(ctx context.Context, userID string, limit int) ([]*domain.DailyLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "log_date", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return s.findDailyLogs(ctx, bson.M{"user_id": userID}, opts)
}

func (s *Store) findDailyLogs(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.DailyLog, error) {
	cur, err := s.dailyLogs.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.Unavailable("list daily logs", err)
	}
	var docs []dailyLogDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Unavailable("list daily logs", err)
	}

	logs := make([]*domain.DailyLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, d.toDomain())
	}
	return logs, nil
}

func (s *Store) InsertReminder(ctx context.Context, reminder *domain.Reminder) error {
	if err := reminder.Validate(); err != nil {
		return err
	}
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = s.now().UTC()
	}

	_, err := s.reminders.InsertOne(ctx, reminderDoc{
		ID:        reminder.ID,
		UserID:    reminder.UserID,
		Type:      reminder.Type,
		RemindAt:  reminder.RemindAt,
		Payload:   reminder.Payload,
		Sent:      reminder.Sent,
		CreatedAt: reminder.CreatedAt,
	})
	return domain.Unavailable("insert reminder", err)
}

func (s *Store) DueReminders(ctx context.Context, asOf time.Time) ([]*domain.Reminder, error) {
	filter := bson.M{"sent": false, "remind_at": bson.M{"$lte": asOf}}
	opts := options.Find().SetSort(bson.D{{Key: "remind_at", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := s.reminders.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.Unavailable("list due reminders", err)
	}
	var docs []reminderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Unavailable("list due reminders", err)
	}

	reminders := make([]*domain.Reminder, 0, len(docs))
	for _, d := range docs {
		reminders = append(reminders, d.toDomain())
	}
	return reminders, nil
}

func (s *Store) MarkReminderSent(ctx context.Context, id string) error {
	res, err := s.reminders.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"sent": true}})
	if err != nil {
		return domain.Unavailable("mark reminder sent", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) TouchUser(ctx context.Context, userID string, activity domain.Activity) error {
	if userID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	update := bson.M{"$set": bson.M{
		"user_id":   userID,
		"last_seen": activity.Timestamp,
		"latest_activity": activityDoc{
			Type:      activity.Type,
			Timestamp: activity.Timestamp,
			RefDate:   domain.ToCanonical(activity.RefDate),
		},
	}}
	_, err := s.users.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	return domain.Unavailable("touch user", err)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("get user", err)
	}
	return doc.toDomain(), nil
}
