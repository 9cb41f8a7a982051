package models

import "time"

type GenerationType string

const (
	TypeTextToImage  GenerationType = "text_to_image"
	TypeImageToImage GenerationType = "image_to_image"
)

type ModelID string

const (
	ModelNanoBanana    ModelID = "nano-banana"
	ModelNanoBananaPro ModelID = "nano-banana-pro"
	ModelSeedream4     ModelID = "seedream-4"
)

// KnownModel reports whether id is one of the models the product exposes.
func KnownModel(id ModelID) bool {
	switch id {
	case ModelNanoBanana, ModelNanoBananaPro, ModelSeedream4:
		return true
	}
	return false
}

type RechargeStatus string

const (
	RechargePending   RechargeStatus = "pending"
	RechargeCompleted RechargeStatus = "completed"
	RechargeFailed    RechargeStatus = "failed"
	RechargeCancelled RechargeStatus = "cancelled"
)

// Profile mirrors the identity provider's user plus the credit balance this
// system owns. The id and email come from the provider and are never mutated
// here.
type Profile struct {
	ID             string
	Email          string
	FullName       string
	AvatarURL      string
	CreditsBalance int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UsageRecord is an append-only entry written once per successful generation.
type UsageRecord struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        GenerationType `json:"type"`
	Model       string         `json:"model"`
	Prompt      string         `json:"prompt,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	CreditsUsed int            `json:"credits_used"`
	CreatedAt   time.Time      `json:"created_at"`
}

// RechargeRecord tracks one credit purchase from checkout to completion.
type RechargeRecord struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Amount        int            `json:"amount"`
	Credits       int            `json:"credits"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	PaymentID     string         `json:"payment_id,omitempty"`
	Status        RechargeStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}
