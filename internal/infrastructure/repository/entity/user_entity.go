package entity

import (
	"time"

	"shopify-auth-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopUserDoc represents a shop user in MongoDB
type MongoShopUserDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ShopURL    string             `bson:"shopUrl"`
	ShopName   string             `bson:"shopName"`
	ShopDomain string             `bson:"shopDomain"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopUserDoc) ToDomain() *domain.ShopUser {
	return &domain.ShopUser{
		ID:         d.ID.Hex(),
		ShopURL:    d.ShopURL,
		ShopName:   d.ShopName,
		ShopDomain: d.ShopDomain,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
