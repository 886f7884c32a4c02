package apiv1

// Pong defines the ping response
type Pong struct {
	Ping string `json:"ping"`
}

// Error defines the error response body
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PurchaseRequest defines the body of POST /purchases
type PurchaseRequest struct {
	UserID    uint `json:"user_id" validate:"required"`
	PackageID uint `json:"package_id" validate:"required"`
	DryRun    bool `json:"dry_run"`
}

// SettingRequest defines the body of PUT /settings/:key
type SettingRequest struct {
	Value string `json:"value" validate:"required"`
}
