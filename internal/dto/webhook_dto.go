package dto

import (
	"encoding/json"
	"strconv"
	"time"
)

// Webhook topics this app subscribes to.
const (
	TopicAppUninstalled     = "app/uninstalled"
	TopicShopUpdate         = "shop/update"
	TopicThemePublish       = "themes/publish"
	TopicSubscriptionUpdate = "app_subscriptions/update"
)

// WebhookEvent is the tagged union of inbound webhook payloads. Handlers
// dispatch on the concrete type; UnknownEvent covers unrecognized topics and
// malformed bodies and always takes the acknowledge-and-discard path.
type WebhookEvent interface {
	Topic() string
	Shop() string
}

type AppUninstalledEvent struct {
	ShopDomain string
}

func (AppUninstalledEvent) Topic() string  { return TopicAppUninstalled }
func (e AppUninstalledEvent) Shop() string { return e.ShopDomain }

type ShopUpdateEvent struct {
	ShopDomain string
	Name       string
	Email      string
	Locale     string
	Timezone   string
	Currency   string
	PlanName   string
}

func (ShopUpdateEvent) Topic() string  { return TopicShopUpdate }
func (e ShopUpdateEvent) Shop() string { return e.ShopDomain }

type ThemePublishEvent struct {
	ShopDomain string
	ThemeID    string
	ThemeName  string
	Role       string
}

func (ThemePublishEvent) Topic() string  { return TopicThemePublish }
func (e ThemePublishEvent) Shop() string { return e.ShopDomain }

type SubscriptionUpdateEvent struct {
	ShopDomain string
	ShopifyID  string
	Name       string
	// Status carries the provider's raw vocabulary; the reconciler maps it
	// onto the local status set.
	Status           string
	CurrentPeriodEnd *time.Time
	TrialEndsAt      *time.Time
}

func (SubscriptionUpdateEvent) Topic() string  { return TopicSubscriptionUpdate }
func (e SubscriptionUpdateEvent) Shop() string { return e.ShopDomain }

type UnknownEvent struct {
	ShopDomain string
	RawTopic   string
	Reason     string
}

func (e UnknownEvent) Topic() string { return e.RawTopic }
func (e UnknownEvent) Shop() string  { return e.ShopDomain }

// ParseWebhookEvent is the single parsing-and-validation boundary for inbound
// webhooks. It never fails: anything it cannot type lands in UnknownEvent.
func ParseWebhookEvent(topic, shopDomain string, body []byte) WebhookEvent {
	switch topic {
	case TopicAppUninstalled:
		return AppUninstalledEvent{ShopDomain: shopDomain}

	case TopicShopUpdate:
		var p struct {
			Name            string `json:"name"`
			Email           string `json:"email"`
			PrimaryLocale   string `json:"primary_locale"`
			IanaTimezone    string `json:"iana_timezone"`
			Currency        string `json:"currency"`
			PlanDisplayName string `json:"plan_display_name"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return UnknownEvent{ShopDomain: shopDomain, RawTopic: topic, Reason: "malformed payload"}
		}
		return ShopUpdateEvent{
			ShopDomain: shopDomain,
			Name:       p.Name,
			Email:      p.Email,
			Locale:     p.PrimaryLocale,
			Timezone:   p.IanaTimezone,
			Currency:   p.Currency,
			PlanName:   p.PlanDisplayName,
		}

	case TopicThemePublish:
		var p struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
			Role string `json:"role"`
		}
		if err := json.Unmarshal(body, &p); err != nil || p.ID == 0 {
			return UnknownEvent{ShopDomain: shopDomain, RawTopic: topic, Reason: "malformed payload"}
		}
		return ThemePublishEvent{
			ShopDomain: shopDomain,
			ThemeID:    strconv.FormatInt(p.ID, 10),
			ThemeName:  p.Name,
			Role:       p.Role,
		}

	case TopicSubscriptionUpdate:
		var p struct {
			AppSubscription struct {
				AdminGraphqlAPIID string     `json:"admin_graphql_api_id"`
				Name              string     `json:"name"`
				Status            string     `json:"status"`
				CurrentPeriodEnd  *time.Time `json:"current_period_end"`
				TrialEndsOn       *time.Time `json:"trial_ends_on"`
			} `json:"app_subscription"`
		}
		if err := json.Unmarshal(body, &p); err != nil || p.AppSubscription.AdminGraphqlAPIID == "" {
			return UnknownEvent{ShopDomain: shopDomain, RawTopic: topic, Reason: "malformed payload"}
		}
		return SubscriptionUpdateEvent{
			ShopDomain:       shopDomain,
			ShopifyID:        p.AppSubscription.AdminGraphqlAPIID,
			Name:             p.AppSubscription.Name,
			Status:           p.AppSubscription.Status,
			CurrentPeriodEnd: p.AppSubscription.CurrentPeriodEnd,
			TrialEndsAt:      p.AppSubscription.TrialEndsOn,
		}
	}

	return UnknownEvent{ShopDomain: shopDomain, RawTopic: topic, Reason: "unrecognized topic"}
}
