package entity

import (
	"time"

	"shopify-auth-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoInstallationDoc represents an app installation in MongoDB
type MongoInstallationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	AppName     string             `bson:"appName"`
	AccessToken string             `bson:"accessToken"`
	Scope       []string           `bson:"scope"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoInstallationDoc) ToDomain() *domain.AppInstallation {
	return &domain.AppInstallation{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		AppName:     d.AppName,
		AccessToken: d.AccessToken,
		Scope:       d.Scope,
		CreatedAt:   d.CreatedAt,
	}
}

// MongoInstallationDocFromDomain converts a domain entity to a MongoDB document
func MongoInstallationDocFromDomain(inst *domain.AppInstallation) *MongoInstallationDoc {
	return &MongoInstallationDoc{
		UserID:      inst.UserID,
		AppName:     inst.AppName,
		AccessToken: inst.AccessToken,
		Scope:       inst.Scope,
		CreatedAt:   inst.CreatedAt,
	}
}
