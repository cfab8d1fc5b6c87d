package models

// Driver is the person behind the wheel for a trip. Drivers are not
// deduplicated: every ingestion creates a new row.
type Driver struct {
	ID   int64  `gorm:"column:driver_id;primaryKey;autoIncrement" bson:"_id" json:"driver_id"`
	Name string `gorm:"column:name;not null" bson:"name" json:"name"`

	// Trips declares the trips.driver_id foreign key; it is never loaded.
	Trips []Trip `gorm:"foreignKey:DriverID;references:ID" bson:"-" json:"-"`
}

func (Driver) TableName() string {
	return "drivers"
}
