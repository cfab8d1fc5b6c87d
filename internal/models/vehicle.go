package models

// Vehicle represents a fleet vehicle identified by its license plate.
type Vehicle struct {
	ID           int64  `gorm:"column:vehicle_id;primaryKey;autoIncrement" bson:"_id" json:"vehicle_id"`
	LicensePlate string `gorm:"column:license_plate;not null" bson:"license_plate" json:"license_plate"`

	Trips []Trip `gorm:"foreignKey:VehicleID;references:ID" bson:"-" json:"-"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}
