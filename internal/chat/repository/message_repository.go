package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"recruit_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message persistence
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	// Remove physical delete, only used to compensate a failed append
	Remove(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Message, error)
	// ListVisible non-deleted messages newest first
	ListVisible(ctx context.Context, conversationID string, page, limit int) ([]*domain.Message, int64, error)
	Search(ctx context.Context, conversationID, term string, limit int) ([]*domain.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	LatestVisible(ctx context.Context, conversationID string) (*domain.Message, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	CountUnreadByConversation(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection(MessageCollection),
	}
}

func visible(conversationID string) bson.M {
	return bson.M{"conversation_id": conversationID, "is_deleted": false}
}

// newestFirst _id 為 ulid，排序即建立順序
var newestFirst = bson.D{{Key: "_id", Value: -1}}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) Remove(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMessageAbsent
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Message, error) {
	out := make(map[string]*domain.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var msgs []*domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ID] = m
	}
	return out, nil
}

func (r *messageRepository) ListVisible(ctx context.Context, conversationID string, page, limit int) ([]*domain.Message, int64, error) {
	filter := visible(conversationID)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	msgs := make([]*domain.Message, 0, limit)
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *messageRepository) Search(ctx context.Context, conversationID, term string, limit int) ([]*domain.Message, error) {
	filter := visible(conversationID)
	filter["content"] = bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}

	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	msgs := []*domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	filter := bson.M{"conversation_id": conversationID, "receiver_id": readerID, "is_read": false}
	update := bson.M{"$set": bson.M{"is_read": true, "updated_at": at}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	filter := bson.M{"_id": id, "is_deleted": false}
	update := bson.M{"$set": bson.M{"is_deleted": true, "updated_at": at}}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

func (r *messageRepository) LatestVisible(ctx context.Context, conversationID string) (*domain.Message, error) {
	opts := options.FindOne().SetSort(newestFirst)
	var msg domain.Message
	err := r.coll.FindOne(ctx, visible(conversationID), opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"receiver_id": userID, "is_read": false, "is_deleted": false})
}

func (r *messageRepository) CountUnreadByConversation(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	pipeline := mongo.Pipeline{
		// 1. 過濾出該使用者的未讀訊息
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "conversation_id", Value: bson.D{{Key: "$in", Value: conversationIDs}}},
			{Key: "receiver_id", Value: userID},
			{Key: "is_read", Value: false},
			{Key: "is_deleted", Value: false},
		}}},
		// 2. 按 conversation_id 分組計數
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	var results []struct {
		ConversationID string `bson:"_id"`
		UnreadCount    int64  `bson:"unread_count"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	for _, row := range results {
		out[row.ConversationID] = row.UnreadCount
	}
	return out, nil
}
