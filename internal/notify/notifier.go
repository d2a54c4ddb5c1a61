// Package notify sends order confirmations to customers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/polkiloo/storefront/internal/domain/model"
)

var ErrNoRecipient = errors.New("account has no email address")

// Notifier delivers the confirmation for a committed order.
type Notifier interface {
	OrderConfirmation(ctx context.Context, account model.Account, order model.Order) error
}

// SMTPNotifier sends plain text mail through an SMTP relay.
type SMTPNotifier struct {
	addr   string
	from   string
	auth   smtp.Auth
	send   func(e *email.Email, addr string, auth smtp.Auth) error
	logger *slog.Logger
}

func NewSMTPNotifier(addr, user, password, from string, logger *slog.Logger) *SMTPNotifier {
	var auth smtp.Auth
	if user != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPNotifier{
		addr:   addr,
		from:   from,
		auth:   auth,
		send:   func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
		logger: logger,
	}
}

func (n *SMTPNotifier) OrderConfirmation(ctx context.Context, account model.Account, order model.Order) error {
	if account.Email == "" {
		return fmt.Errorf("order %s: %w", order.OrderNumber, ErrNoRecipient)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.from
	e.To = []string{account.Email}
	e.Subject = fmt.Sprintf("Order %s received", order.OrderNumber)
	e.Text = []byte(confirmationText(order))

	if err := n.send(e, n.addr, n.auth); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", order.OrderNumber, err)
	}
	n.logger.Info("order confirmation sent",
		slog.String("order_number", order.OrderNumber),
		slog.Int64("user_id", account.UserID),
	)
	return nil
}

func confirmationText(order model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%d x %s (%s)  %s\n", item.Quantity, item.ProductName, item.SKU, item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", order.SubtotalAmount.StringFixed(2))
	if order.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "Discount: -%s\n", order.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Status: %s\n", order.Status)
	if order.PointsEarned > 0 {
		fmt.Fprintf(&b, "Loyalty points earned: %d\n", order.PointsEarned)
	}
	return b.String()
}

// LogNotifier only logs; used when no SMTP relay is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderConfirmation(_ context.Context, account model.Account, order model.Order) error {
	n.logger.Info("order confirmation",
		slog.String("order_number", order.OrderNumber),
		slog.Int64("user_id", account.UserID),
		slog.String("email", account.Email),
		slog.String("total", order.TotalAmount.StringFixed(2)),
	)
	return nil
}
