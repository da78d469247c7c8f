package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection        = "users"
	doubtsCollection       = "doubts"
	chatMessagesCollection = "chat_messages"
	statusChecksCollection = "status_checks"

	connectTimeout = 10 * time.Second
	queryTimeout   = 5 * time.Second
)

// MongoStore is the MongoDB-backed Store
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// InitMongoDB connects, pings and prepares indexes
func InitMongoDB(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{client: client, db: client.Database(dbName)}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("database", dbName).Msg("✅ Connected to MongoDB successfully!")
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		doubtsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		chatMessagesCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return err
	}
	log.Info().Msg("MongoDB connection closed")
	return nil
}

// CreateUser inserts a user; the email index enforces uniqueness
func (s *MongoStore) CreateUser(ctx context.Context, user *User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Collection(usersCollection).InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// FindUserByEmail returns ErrNotFound when no user has the email
func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

// FindUserByID returns ErrNotFound when the id is unknown
func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, bson.M{"id": id})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) InsertDoubt(ctx context.Context, doubt *Doubt) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Collection(doubtsCollection).InsertOne(ctx, doubt)
	return err
}

func (s *MongoStore) UpdateDoubtAnswer(ctx context.Context, id string, answer *DoubtAnswer, updatedAt time.Time) error {
	return s.updateDoubt(ctx, id, bson.M{
		"answer":     answer,
		"status":     StatusAnswered,
		"updated_at": updatedAt,
	})
}

func (s *MongoStore) UpdateDoubtStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	return s.updateDoubt(ctx, id, bson.M{"status": status, "updated_at": updatedAt})
}

func (s *MongoStore) updateDoubt(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.Collection(doubtsCollection).UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update doubt: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindDoubts(ctx context.Context, userID string, skip, limit int) ([]Doubt, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetSkip(int64(max(skip, 0)))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(doubtsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find doubts: %w", err)
	}
	defer cursor.Close(ctx)

	doubts := []Doubt{}
	if err := cursor.All(ctx, &doubts); err != nil {
		return nil, fmt.Errorf("failed to decode doubts: %w", err)
	}
	return doubts, nil
}

func (s *MongoStore) FindDoubt(ctx context.Context, id, userID string) (*Doubt, error) {
	return s.findDoubt(ctx, bson.M{"id": id, "user_id": userID})
}

func (s *MongoStore) FindDoubtByID(ctx context.Context, id string) (*Doubt, error) {
	return s.findDoubt(ctx, bson.M{"id": id})
}

func (s *MongoStore) findDoubt(ctx context.Context, filter bson.M) (*Doubt, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doubt Doubt
	err := s.db.Collection(doubtsCollection).FindOne(ctx, filter).Decode(&doubt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find doubt: %w", err)
	}
	return &doubt, nil
}

func (s *MongoStore) DeleteDoubt(ctx context.Context, id, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.Collection(doubtsCollection).DeleteOne(ctx, bson.M{"id": id, "user_id": userID})
	if err != nil {
		return false, fmt.Errorf("failed to delete doubt: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) InsertChatMessage(ctx context.Context, msg *ChatMessage) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Collection(chatMessagesCollection).InsertOne(ctx, msg)
	return err
}

// chatFilter matches the user's own messages plus every tutor message
func chatFilter(userID, doubtID string) bson.M {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"user_id": userID},
			bson.M{"sender_type": SenderTutor},
		},
	}
	if doubtID != "" {
		filter["doubt_id"] = doubtID
	}
	return filter
}

func (s *MongoStore) FindChatMessages(ctx context.Context, userID, doubtID string, limit int) ([]ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(chatMessagesCollection).Find(ctx, chatFilter(userID, doubtID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find chat messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode chat messages: %w", err)
	}
	return messages, nil
}

func (s *MongoStore) InsertStatusCheck(ctx context.Context, check *StatusCheck) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Collection(statusChecksCollection).InsertOne(ctx, check)
	return err
}

func (s *MongoStore) ListStatusChecks(ctx context.Context) ([]StatusCheck, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.db.Collection(statusChecksCollection).Find(ctx, bson.M{}, options.Find().SetLimit(statusCheckListLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to find status checks: %w", err)
	}
	defer cursor.Close(ctx)

	checks := []StatusCheck{}
	if err := cursor.All(ctx, &checks); err != nil {
		return nil, fmt.Errorf("failed to decode status checks: %w", err)
	}
	return checks, nil
}
