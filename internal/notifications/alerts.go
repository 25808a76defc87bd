package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/angelmondragon/premiumcity-backend/pkg/config"
	"github.com/angelmondragon/premiumcity-backend/pkg/db/models"
	"github.com/angelmondragon/premiumcity-backend/pkg/logger"
	"github.com/angelmondragon/premiumcity-backend/pkg/money"
)

// Alerts renders storefront emails and hands them to a Notifier. Every method
// is fire-and-forget.
type Alerts struct {
	notifier   Notifier
	logg       *logger.Logger
	adminEmail string
	baseURL    string
}

func NewAlerts(n Notifier, cfg config.NotificationsConfig, logg *logger.Logger) *Alerts {
	return &Alerts{
		notifier:   n,
		logg:       logg,
		adminEmail: strings.TrimSpace(cfg.AdminEmail),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}
}

// ManualOrderPlaced tells the admin a manual order is waiting.
func (a *Alerts) ManualOrderPlaced(ctx context.Context, order *models.Order, item *models.OrderItem) {
	if a == nil || order == nil || item == nil {
		return
	}
	link := fmt.Sprintf("%s/admin/orders/%s", a.baseURL, order.ID)
	SafeSend(ctx, a.logg, a.notifier, Email{
		To:      a.adminEmail,
		Subject: fmt.Sprintf("Manual fulfillment required: Order #%s", order.OrderNumber),
		Text: fmt.Sprintf("A new manual order requires attention.\nProduct: %s\nVariant: %s\nQuantity: %d\nOpen admin panel: %s",
			item.ProductName, item.VariantName, item.Quantity, link),
		HTML: fmt.Sprintf(`A new manual order requires attention.<br/>Product: %s<br/>Variant: %s<br/>Quantity: %d<br/><a href="%s">Open admin panel</a>`,
			html.EscapeString(item.ProductName), html.EscapeString(item.VariantName), item.Quantity, link),
	})
}

// TopupSubmitted tells the admin a bank transfer needs review.
func (a *Alerts) TopupSubmitted(ctx context.Context, topup *models.TopupRequest) {
	if a == nil || topup == nil {
		return
	}
	note := "n/a"
	if topup.Note != nil && strings.TrimSpace(*topup.Note) != "" {
		note = *topup.Note
	}
	link := fmt.Sprintf("%s/admin/topups/%s", a.baseURL, topup.ID)
	SafeSend(ctx, a.logg, a.notifier, Email{
		To:      a.adminEmail,
		Subject: "New wallet top-up pending review",
		Text: fmt.Sprintf("Customer %s submitted a top-up of %s via %s.\nReference hint: %s\nNote: %s\nReview request: %s",
			topup.UserID, money.Format(topup.Amount), topup.BankName, topup.ReferenceHint, note, link),
		HTML: fmt.Sprintf(`Customer %s submitted a top-up of %s via %s.<br/>Reference hint: %s<br/>Note: %s<br/><a href="%s">Review request</a>`,
			topup.UserID, money.Format(topup.Amount), html.EscapeString(topup.BankName),
			html.EscapeString(topup.ReferenceHint), html.EscapeString(note), link),
	})
}

// TopupDecided tells the customer how their request was processed.
func (a *Alerts) TopupDecided(ctx context.Context, user *models.User, topup *models.TopupRequest) {
	if a == nil || user == nil || topup == nil {
		return
	}
	comment := ""
	if topup.AdminComment != nil {
		comment = *topup.AdminComment
	}
	subject := fmt.Sprintf("Your wallet top-up of %s was %s", money.Format(topup.Amount), strings.ToLower(string(topup.Status)))
	text := fmt.Sprintf("%s\n%s\nCurrent balance: %s", subject, comment, money.Format(user.WalletBalance))
	SafeSend(ctx, a.logg, a.notifier, Email{
		To:      user.Email,
		Subject: subject,
		Text:    text,
	})
}

// OrderDelivered sends the customer their manually fulfilled order.
func (a *Alerts) OrderDelivered(ctx context.Context, user *models.User, order *models.Order, payload, note string) {
	if a == nil || user == nil || order == nil {
		return
	}
	SafeSend(ctx, a.logg, a.notifier, Email{
		To:      user.Email,
		Subject: fmt.Sprintf("Your PremiumCity order #%s has been delivered", order.OrderNumber),
		Text:    fmt.Sprintf("Your order is now ready.\n\n%s\n\n%s", payload, note),
		HTML: fmt.Sprintf("Your order is now ready.<br/><pre>%s</pre><br/>%s",
			html.EscapeString(payload), html.EscapeString(note)),
	})
}

// OrderCancelled tells the customer the order was refunded.
func (a *Alerts) OrderCancelled(ctx context.Context, user *models.User, order *models.Order, reason string) {
	if a == nil || user == nil || order == nil {
		return
	}
	SafeSend(ctx, a.logg, a.notifier, Email{
		To:      user.Email,
		Subject: fmt.Sprintf("Your PremiumCity order #%s was cancelled", order.OrderNumber),
		Text: fmt.Sprintf("Order #%s was cancelled and %s was returned to your wallet.\n%s",
			order.OrderNumber, money.Format(order.Total), reason),
	})
}
