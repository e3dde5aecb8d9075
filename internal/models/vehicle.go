package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle represents a fleet vehicle and its service schedule.
type Vehicle struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Registration  string             `bson:"registration" json:"registration"`
	Model         string             `bson:"model" json:"model"`
	TotalKM       int                `bson:"totalKM" json:"totalKM"`             // odometer, km
	NextServiceKM int                `bson:"nextServiceKM" json:"nextServiceKM"` // odometer reading the next service is due at
}
