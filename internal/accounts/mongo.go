package accounts

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	databaseName   = "rabbitkey"
	usersColl      = "users"
	opTimeout      = 10 * time.Second
	readRetries    = 2
	readRetryDelay = 500 * time.Millisecond
)

// MongoStore implements Store on the users collection.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

func Connect(ctx context.Context, uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &MongoStore{client: client, users: client.Database(databaseName).Collection(usersColl)}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) FindOne(ctx context.Context, telegramID int64) (*UserAccount, error) {
	var account UserAccount
	err := s.withReadRetry(ctx, func(ctx context.Context) error {
		return s.users.FindOne(ctx, bson.M{"telegram_id": telegramID}).Decode(&account)
	})
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// PushKey appends an issued key to the user's embedded history, creating the
// document if absent.
func (s *MongoStore) PushKey(ctx context.Context, telegramID int64, keyValue string, date time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	entry := KeyEntry{Key: keyValue, Date: date, Active: true}
	_, err := s.users.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$push": bson.M{"key_history": entry}},
		options.Update().SetUpsert(true),
	)
	return err
}

// EnsureAccount upserts the user document. referredBy is only written on
// insert, so the attribution can never be rewritten later.
func (s *MongoStore) EnsureAccount(ctx context.Context, telegramID int64, referredBy int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	setOnInsert := bson.M{"telegram_id": telegramID, "wallet": int64(0)}
	if referredBy != 0 {
		setOnInsert["referred_by"] = referredBy
	}
	res, err := s.users.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) CreditWallet(ctx context.Context, telegramID int64, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.users.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$inc": bson.M{"wallet": amount}},
		options.Update().SetUpsert(true),
	)
	return err
}

// DebitWallet decrements the wallet only when the balance covers the amount,
// so the balance can never go negative.
func (s *MongoStore) DebitWallet(ctx context.Context, telegramID int64, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := s.users.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID, "wallet": bson.M{"$gte": amount}},
		bson.M{"$inc": bson.M{"wallet": -amount}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *MongoStore) AllTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.withReadRetry(ctx, func(ctx context.Context) error {
		cursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"telegram_id": 1}))
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		ids = ids[:0]
		for cursor.Next(ctx) {
			var doc struct {
				TelegramID int64 `bson:"telegram_id"`
			}
			if err := cursor.Decode(&doc); err != nil {
				return err
			}
			ids = append(ids, doc.TelegramID)
		}
		return cursor.Err()
	})
	return ids, err
}

// withReadRetry retries transient read failures with a short backoff. Writes
// are never retried here: the issuance path must report, not repeat.
func (s *MongoStore) withReadRetry(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= readRetries; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		err = op(opCtx)
		cancel()
		if err == nil || err == mongo.ErrNoDocuments {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readRetryDelay << attempt):
		}
	}
	return err
}
