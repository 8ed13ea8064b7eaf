package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/consentpop/consentpop-backend/internal/config"
)

// ProviderError carries user-facing validation errors reported by the
// billing API (e.g. "subscription is already cancelled"). Handlers surface
// the joined messages verbatim; operational failures use plain errors.
type ProviderError struct {
	Messages []string
}

func (e *ProviderError) Error() string {
	return strings.Join(e.Messages, "; ")
}

type ShopProfile struct {
	Name     string
	Email    string
	Domain   string
	Locale   string
	Timezone string
	Currency string
	PlanName string
}

type SubscriptionInput struct {
	Name      string
	Price     float64
	Currency  string
	Interval  string
	TrialDays int
	Test      bool
	ReturnURL string
}

type CreatedSubscription struct {
	ID              string
	Status          string
	ConfirmationURL string
}

type ProviderSubscription struct {
	ID               string
	Name             string
	Status           string
	Test             bool
	CurrentPeriodEnd *time.Time
}

// Client is the outbound Admin API surface. Each call is a single round
// trip with no internal retry; errors propagate to the caller.
type Client interface {
	GetShop(ctx context.Context, shop, token string) (*ShopProfile, error)
	CreateSubscription(ctx context.Context, shop, token string, input SubscriptionInput) (*CreatedSubscription, error)
	CancelSubscription(ctx context.Context, shop, token, subscriptionID string) error
	ListSubscriptions(ctx context.Context, shop, token string) ([]ProviderSubscription, error)
	RegisterWebhooks(ctx context.Context, shop, token, callbackURL string, topics []string) error
}

type clientImpl struct {
	httpClient *http.Client
	apiVersion string
}

func NewClient(cfg *config.Config) Client {
	return &clientImpl{
		httpClient: &http.Client{
			Timeout: cfg.ShopifyTimeout,
		},
		apiVersion: cfg.ShopifyAPIVersion,
	}
}

func (c *clientImpl) restURL(shop, resource string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/%s", shop, c.apiVersion, resource)
}

func (c *clientImpl) graphqlURL(shop string) string {
	return c.restURL(shop, "graphql.json")
}

type graphqlUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func (c *clientImpl) graphql(ctx context.Context, shop, token, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL(shop), bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("shopify error %d: %s", resp.StatusCode, string(b))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode shopify response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("shopify graphql error: %s", strings.Join(msgs, "; "))
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode shopify data: %w", err)
		}
	}
	return nil
}

func userErrorsToProviderError(userErrors []graphqlUserError) error {
	if len(userErrors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(userErrors))
	for _, ue := range userErrors {
		msgs = append(msgs, ue.Message)
	}
	return &ProviderError{Messages: msgs}
}

func (c *clientImpl) GetShop(ctx context.Context, shop, token string) (*ShopProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL(shop, "shop.json"), nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("shopify error %d: %s", resp.StatusCode, string(b))
	}

	var result struct {
		Shop struct {
			Name            string `json:"name"`
			Email           string `json:"email"`
			MyshopifyDomain string `json:"myshopify_domain"`
			PrimaryLocale   string `json:"primary_locale"`
			IanaTimezone    string `json:"iana_timezone"`
			Currency        string `json:"currency"`
			PlanDisplayName string `json:"plan_display_name"`
		} `json:"shop"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode shop response: %w", err)
	}

	return &ShopProfile{
		Name:     result.Shop.Name,
		Email:    result.Shop.Email,
		Domain:   result.Shop.MyshopifyDomain,
		Locale:   result.Shop.PrimaryLocale,
		Timezone: result.Shop.IanaTimezone,
		Currency: result.Shop.Currency,
		PlanName: result.Shop.PlanDisplayName,
	}, nil
}

const createSubscriptionMutation = `
mutation appSubscriptionCreate($name: String!, $returnUrl: URL!, $test: Boolean, $trialDays: Int, $lineItems: [AppSubscriptionLineItemInput!]!) {
  appSubscriptionCreate(name: $name, returnUrl: $returnUrl, test: $test, trialDays: $trialDays, lineItems: $lineItems) {
    userErrors { field message }
    confirmationUrl
    appSubscription { id status }
  }
}`

func (c *clientImpl) CreateSubscription(ctx context.Context, shop, token string, input SubscriptionInput) (*CreatedSubscription, error) {
	variables := map[string]interface{}{
		"name":      input.Name,
		"returnUrl": input.ReturnURL,
		"test":      input.Test,
		"trialDays": input.TrialDays,
		"lineItems": []map[string]interface{}{
			{
				"plan": map[string]interface{}{
					"appRecurringPricingDetails": map[string]interface{}{
						"price": map[string]interface{}{
							"amount":       input.Price,
							"currencyCode": input.Currency,
						},
						"interval": input.Interval,
					},
				},
			},
		},
	}

	var data struct {
		AppSubscriptionCreate struct {
			UserErrors      []graphqlUserError `json:"userErrors"`
			ConfirmationURL string             `json:"confirmationUrl"`
			AppSubscription *struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"appSubscription"`
		} `json:"appSubscriptionCreate"`
	}
	if err := c.graphql(ctx, shop, token, createSubscriptionMutation, variables, &data); err != nil {
		return nil, err
	}
	if err := userErrorsToProviderError(data.AppSubscriptionCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.AppSubscriptionCreate.AppSubscription == nil {
		return nil, fmt.Errorf("shopify returned no subscription")
	}

	return &CreatedSubscription{
		ID:              data.AppSubscriptionCreate.AppSubscription.ID,
		Status:          data.AppSubscriptionCreate.AppSubscription.Status,
		ConfirmationURL: data.AppSubscriptionCreate.ConfirmationURL,
	}, nil
}

const cancelSubscriptionMutation = `
mutation appSubscriptionCancel($id: ID!) {
  appSubscriptionCancel(id: $id) {
    userErrors { field message }
    appSubscription { id status }
  }
}`

func (c *clientImpl) CancelSubscription(ctx context.Context, shop, token, subscriptionID string) error {
	var data struct {
		AppSubscriptionCancel struct {
			UserErrors []graphqlUserError `json:"userErrors"`
		} `json:"appSubscriptionCancel"`
	}
	if err := c.graphql(ctx, shop, token, cancelSubscriptionMutation, map[string]interface{}{"id": subscriptionID}, &data); err != nil {
		return err
	}
	return userErrorsToProviderError(data.AppSubscriptionCancel.UserErrors)
}

const listSubscriptionsQuery = `
query {
  currentAppInstallation {
    activeSubscriptions {
      id
      name
      status
      test
      currentPeriodEnd
    }
  }
}`

func (c *clientImpl) ListSubscriptions(ctx context.Context, shop, token string) ([]ProviderSubscription, error) {
	var data struct {
		CurrentAppInstallation struct {
			ActiveSubscriptions []struct {
				ID               string     `json:"id"`
				Name             string     `json:"name"`
				Status           string     `json:"status"`
				Test             bool       `json:"test"`
				CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
			} `json:"activeSubscriptions"`
		} `json:"currentAppInstallation"`
	}
	if err := c.graphql(ctx, shop, token, listSubscriptionsQuery, nil, &data); err != nil {
		return nil, err
	}

	subs := make([]ProviderSubscription, 0, len(data.CurrentAppInstallation.ActiveSubscriptions))
	for _, s := range data.CurrentAppInstallation.ActiveSubscriptions {
		subs = append(subs, ProviderSubscription{
			ID:               s.ID,
			Name:             s.Name,
			Status:           s.Status,
			Test:             s.Test,
			CurrentPeriodEnd: s.CurrentPeriodEnd,
		})
	}
	return subs, nil
}

// RegisterWebhooks subscribes the app to the given topics. A 422 means the
// subscription already exists and is not an error.
func (c *clientImpl) RegisterWebhooks(ctx context.Context, shop, token, callbackURL string, topics []string) error {
	for _, topic := range topics {
		body, err := json.Marshal(map[string]interface{}{
			"webhook": map[string]interface{}{
				"topic":   topic,
				"address": callbackURL,
				"format":  "json",
			},
		})
		if err != nil {
			return fmt.Errorf("marshal webhook payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL(shop, "webhooks.json"), bytes.NewBuffer(body))
		if err != nil {
			return fmt.Errorf("http new request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http client do: %w", err)
		}
		status := resp.StatusCode
		var respBody []byte
		if status < 200 || status >= 300 {
			respBody, _ = io.ReadAll(resp.Body)
		}
		resp.Body.Close()

		if status == http.StatusUnprocessableEntity {
			continue
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("shopify error %d registering %s: %s", status, topic, string(respBody))
		}
	}
	return nil
}
