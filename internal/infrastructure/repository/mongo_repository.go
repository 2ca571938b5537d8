package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-auth-layer/internal/domain"
	"shopify-auth-layer/internal/infrastructure/repository/entity"
	"shopify-auth-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	usersCollection         *mongo.Collection
	installationsCollection *mongo.Collection
	scriptTagsCollection    *mongo.Collection
	webhooksCollection      *mongo.Collection
}

// NewMongoRepository creates a new MongoDB repository. The unique indexes are
// created up front: the conditional upserts rely on them to stay
// single-record under concurrency, so a failed index build must abort startup
// rather than silently weaken the writes.
func NewMongoRepository(ctx context.Context, db *mongo.Database) (ports.Repository, error) {
	r := &MongoRepository{
		usersCollection:         db.Collection("shop_users"),
		installationsCollection: db.Collection("app_installations"),
		scriptTagsCollection:    db.Collection("script_tags"),
		webhooksCollection:      db.Collection("webhooks"),
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	userAppKeys := bson.D{{Key: "userId", Value: 1}, {Key: "appName", Value: 1}}
	indexes := []struct {
		collection *mongo.Collection
		model      mongo.IndexModel
	}{
		{r.usersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "shopUrl", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{r.scriptTagsCollection, mongo.IndexModel{
			Keys:    userAppKeys,
			Options: options.Index().SetUnique(true),
		}},
		{r.webhooksCollection, mongo.IndexModel{
			Keys:    userAppKeys,
			Options: options.Index().SetUnique(true),
		}},
	}

	for _, idx := range indexes {
		if _, err := idx.collection.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.collection.Name(), err)
		}
	}
	return nil
}

// GetUserByShop retrieves a user by storefront URL
func (r *MongoRepository) GetUserByShop(ctx context.Context, shopURL string) (*domain.ShopUser, error) {
	var doc entity.MongoShopUserDoc
	filter := bson.M{"shopUrl": shopURL}

	err := r.usersCollection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return doc.ToDomain(), nil
}

// UpsertUser creates the user if absent and returns the stored record.
// Name and domain fields are written only on insert, so a repeat exchange
// cannot overwrite them.
func (r *MongoRepository) UpsertUser(ctx context.Context, user *domain.ShopUser) (*domain.ShopUser, error) {
	now := time.Now()
	filter := bson.M{"shopUrl": user.ShopURL}
	update := bson.M{
		"$setOnInsert": bson.M{
			"shopUrl":    user.ShopURL,
			"shopName":   user.ShopName,
			"shopDomain": user.ShopDomain,
			"createdAt":  now,
		},
		"$set": bson.M{"updatedAt": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc entity.MongoShopUserDoc
	if err := r.usersCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListInstallations retrieves all installations for a (user, app) pair
func (r *MongoRepository) ListInstallations(ctx context.Context, userID string, appName string) ([]*domain.AppInstallation, error) {
	filter := bson.M{"userId": userID, "appName": appName}
	cursor, err := r.installationsCollection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list installations: %w", err)
	}
	defer cursor.Close(ctx)

	var installs []*domain.AppInstallation
	for cursor.Next(ctx) {
		var doc entity.MongoInstallationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode installation: %w", err)
		}
		installs = append(installs, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return installs, nil
}

// SaveInstallation creates the installation unless an identical
// (user, app, token, scope) record already exists.
func (r *MongoRepository) SaveInstallation(ctx context.Context, inst *domain.AppInstallation) error {
	doc := entity.MongoInstallationDocFromDomain(inst)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	filter := bson.M{
		"userId":      inst.UserID,
		"appName":     inst.AppName,
		"accessToken": inst.AccessToken,
		"scope":       inst.Scope,
	}
	update := bson.M{"$setOnInsert": doc}
	opts := options.Update().SetUpsert(true)

	_, err := r.installationsCollection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save installation: %w", err)
	}

	return nil
}

// DeleteInstallations deletes all installations for a (user, app) pair
func (r *MongoRepository) DeleteInstallations(ctx context.Context, userID string, appName string) error {
	filter := bson.M{"userId": userID, "appName": appName}
	_, err := r.installationsCollection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete installations: %w", err)
	}
	return nil
}

// ListScriptTags retrieves all script tag markers for a user
func (r *MongoRepository) ListScriptTags(ctx context.Context, userID string) ([]*domain.ScriptTagRecord, error) {
	cursor, err := r.scriptTagsCollection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list script tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []*domain.ScriptTagRecord
	for cursor.Next(ctx) {
		var doc entity.MongoScriptTagDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode script tag: %w", err)
		}
		tags = append(tags, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return tags, nil
}

// SaveScriptTag records a script tag marker. The write is a conditional
// upsert backed by a unique index on (user, app), so concurrent provisioning
// calls cannot produce duplicates.
func (r *MongoRepository) SaveScriptTag(ctx context.Context, rec *domain.ScriptTagRecord) error {
	doc := entity.MongoScriptTagDoc{
		UserID:      rec.UserID,
		ShopURL:     rec.ShopURL,
		AppName:     rec.AppName,
		ScriptTagID: rec.ScriptTagID,
		CreatedAt:   time.Now(),
	}

	filter := bson.M{"userId": rec.UserID, "appName": rec.AppName}
	update := bson.M{"$setOnInsert": doc}
	opts := options.Update().SetUpsert(true)

	_, err := r.scriptTagsCollection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save script tag: %w", err)
	}

	return nil
}

// DeleteScriptTags deletes all script tag markers for a (user, app) pair
func (r *MongoRepository) DeleteScriptTags(ctx context.Context, userID string, appName string) error {
	filter := bson.M{"userId": userID, "appName": appName}
	_, err := r.scriptTagsCollection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete script tags: %w", err)
	}
	return nil
}

// ListWebhooks retrieves all webhook markers for a user
func (r *MongoRepository) ListWebhooks(ctx context.Context, userID string) ([]*domain.WebhookRecord, error) {
	cursor, err := r.webhooksCollection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer cursor.Close(ctx)

	var hooks []*domain.WebhookRecord
	for cursor.Next(ctx) {
		var doc entity.MongoWebhookDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode webhook: %w", err)
		}
		hooks = append(hooks, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return hooks, nil
}

// SaveWebhook records a webhook marker with the same conditional upsert as
// SaveScriptTag.
func (r *MongoRepository) SaveWebhook(ctx context.Context, rec *domain.WebhookRecord) error {
	doc := entity.MongoWebhookDoc{
		UserID:    rec.UserID,
		ShopURL:   rec.ShopURL,
		AppName:   rec.AppName,
		Topic:     rec.Topic,
		WebhookID: rec.WebhookID,
		CreatedAt: time.Now(),
	}

	filter := bson.M{"userId": rec.UserID, "appName": rec.AppName}
	update := bson.M{"$setOnInsert": doc}
	opts := options.Update().SetUpsert(true)

	_, err := r.webhooksCollection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save webhook: %w", err)
	}

	return nil
}

// DeleteWebhooks deletes all webhook markers for a (user, app) pair
func (r *MongoRepository) DeleteWebhooks(ctx context.Context, userID string, appName string) error {
	filter := bson.M{"userId": userID, "appName": appName}
	_, err := r.webhooksCollection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete webhooks: %w", err)
	}
	return nil
}
