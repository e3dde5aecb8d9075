package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverStatus is the employment status of a driver record.
type DriverStatus string

const (
	DriverActive   DriverStatus = "active"
	DriverInactive DriverStatus = "inactive"
)

// Driver is a driver record from the drivers collection.
type Driver struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone" json:"phone"`
	Status    DriverStatus       `bson:"status" json:"status"`
	VehicleID string             `bson:"vehicleId" json:"vehicleId"`
}

// FirstName returns the first space-separated word of the driver's name.
func (d Driver) FirstName() string {
	name, _, _ := strings.Cut(d.Name, " ")
	return name
}
