package entity

import (
	"time"

	"shopify-auth-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoScriptTagDoc represents a script tag idempotency marker in MongoDB
type MongoScriptTagDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	ShopURL     string             `bson:"shopUrl"`
	AppName     string             `bson:"appName"`
	ScriptTagID int64              `bson:"scriptTagId"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoScriptTagDoc) ToDomain() *domain.ScriptTagRecord {
	return &domain.ScriptTagRecord{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		ShopURL:     d.ShopURL,
		AppName:     d.AppName,
		ScriptTagID: d.ScriptTagID,
		CreatedAt:   d.CreatedAt,
	}
}

// MongoWebhookDoc represents a webhook idempotency marker in MongoDB
type MongoWebhookDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	ShopURL   string             `bson:"shopUrl"`
	AppName   string             `bson:"appName"`
	Topic     string             `bson:"topic"`
	WebhookID int64              `bson:"webhookId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoWebhookDoc) ToDomain() *domain.WebhookRecord {
	return &domain.WebhookRecord{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		ShopURL:   d.ShopURL,
		AppName:   d.AppName,
		Topic:     d.Topic,
		WebhookID: d.WebhookID,
		CreatedAt: d.CreatedAt,
	}
}
