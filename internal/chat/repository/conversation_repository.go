package repository

import (
	"context"
	"errors"
	"time"

	"recruit_chat_service/internal/chat/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotModified conditional update matched no document
var ErrNotModified = errors.New("conversation state precondition failed")

// ConversationRepository definition conversation persistence
type ConversationRepository interface {
	// GetOrCreate return the pair's conversation, creating it at most once
	GetOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, bool, error)
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	// FindByParticipant newest activity first
	FindByParticipant(ctx context.Context, userID string, page, limit int) ([]*domain.Conversation, int64, error)
	FindBlockedBy(ctx context.Context, userID string) ([]*domain.Conversation, error)
	// UpdateBlockState ErrNotModified when the current state forbids the transition
	UpdateBlockState(ctx context.Context, id, actingUserID string, blocked bool, at time.Time) (*domain.Conversation, error)
	// AdvanceLatest move the pointer forward, never back to an older message
	AdvanceLatest(ctx context.Context, id, messageID string, at time.Time) error
	// ReplaceLatest compare-and-set of the pointer
	ReplaceLatest(ctx context.Context, id string, expected string, next *string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection(ConversationCollection),
	}
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, bool, error) {
	fresh := domain.NewConversation(uuid.NewString(), userA, userB, time.Now().UTC())

	// 以 pair_key 唯一索引保證同一對使用者只會有一個對話
	filter := bson.M{"pair_key": fresh.PairKey}
	update := bson.M{"$setOnInsert": fresh}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv domain.Conversation
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		// 同時 upsert 的另一方已建立
		err = r.coll.FindOne(ctx, filter).Decode(&conv)
		if err != nil {
			return nil, false, err
		}
		return &conv, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &conv, conv.ID == fresh.ID, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrConversationAbsent
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string, page, limit int) ([]*domain.Conversation, int64, error) {
	filter := bson.M{"participants": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	convs := make([]*domain.Conversation, 0, limit)
	if err := cur.All(ctx, &convs); err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (r *conversationRepository) FindBlockedBy(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	filter := bson.M{"blocked": true, "blocked_by": userID}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	convs := []*domain.Conversation{}
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *conversationRepository) UpdateBlockState(ctx context.Context, id, actingUserID string, blocked bool, at time.Time) (*domain.Conversation, error) {
	var filter, update bson.M
	if blocked {
		// 未封鎖，或本人重複封鎖
		filter = bson.M{
			"_id":          id,
			"participants": actingUserID,
			"$or": bson.A{
				bson.M{"blocked": false},
				bson.M{"blocked_by": actingUserID},
			},
		}
		update = bson.M{"$set": bson.M{"blocked": true, "blocked_by": actingUserID, "updated_at": at}}
	} else {
		filter = bson.M{"_id": id, "blocked": true, "blocked_by": actingUserID}
		update = bson.M{
			"$set":   bson.M{"blocked": false, "updated_at": at},
			"$unset": bson.M{"blocked_by": ""},
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var conv domain.Conversation
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotModified
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) AdvanceLatest(ctx context.Context, id, messageID string, at time.Time) error {
	// ulid 字典序即時間序，較舊的訊息不會覆蓋較新的指標
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"latest_message_id": nil},
			bson.M{"latest_message_id": bson.M{"$lt": messageID}},
		},
	}
	update := bson.M{"$set": bson.M{"latest_message_id": messageID, "updated_at": at}}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

func (r *conversationRepository) ReplaceLatest(ctx context.Context, id string, expected string, next *string, at time.Time) error {
	filter := bson.M{"_id": id, "latest_message_id": expected}
	update := bson.M{"$set": bson.M{"updated_at": at}}
	if next != nil {
		update["$set"].(bson.M)["latest_message_id"] = *next
	} else {
		update["$unset"] = bson.M{"latest_message_id": ""}
	}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrConversationAbsent
	}
	return nil
}
