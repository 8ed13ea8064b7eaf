package dto

import "time"

type SubscribeRequest struct {
	Plan string `json:"plan"`
}

// SubscribeResponse carries the provider's confirmation URL; the merchant
// must approve the charge there before the subscription leaves PENDING.
type SubscribeResponse struct {
	SubscriptionID  string `json:"subscription_id"`
	ConfirmationURL string `json:"confirmation_url"`
	Status          string `json:"status"`
}

type SubscriptionResponse struct {
	ID               string     `json:"id"`
	ShopifyID        string     `json:"shopify_id"`
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	Price            float64    `json:"price"`
	Currency         string     `json:"currency"`
	Interval         string     `json:"interval"`
	TrialEndsAt      *time.Time `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	Test             bool       `json:"test"`
	CreatedAt        time.Time  `json:"created_at"`
}

type PlanResponse struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Interval  string  `json:"interval"`
	TrialDays int     `json:"trial_days"`
}

type AuditLogResponse struct {
	ID           string                 `json:"id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs       []AuditLogResponse `json:"logs"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}
