package models

// PushSubscription stores one browser's Web Push registration.
//
// The endpoint URL is globally unique: re-registering the same endpoint
// replaces the stored keys instead of creating a second row. A subscription
// always belongs to exactly one owner and never changes hands.
type PushSubscription struct {
	BaseModel

	OwnerID  string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Endpoint string `gorm:"type:text;not null;uniqueIndex:idx_push_subscriptions_endpoint,length:255" json:"endpoint"`

	// P256dh is the browser's public key, Auth the shared secret. Both are
	// opaque here; the delivery engine hands them to the payload encryption.
	P256dh string `gorm:"type:text;not null" json:"p256dh"`
	Auth   string `gorm:"type:text;not null" json:"auth"`
}

// TableName keeps the table name aligned with the original schema.
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
