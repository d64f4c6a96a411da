package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/repo"
)

// Payment methods accepted at the till.
const (
	PaymentCash = "cash"
	PaymentUPI  = "upi"
)

// ErrValidation marks a checkout rejected before anything is mutated.
var ErrValidation = errors.New("checkout: validation failed")

// Input is the checkout form state accompanying a cart.
type Input struct {
	OrgClientID    string
	OutletClientID string
	CustomerID     *string
	CustomerName   string
	CustomerMobile string
	PaymentMethod  string
	CashGiven      *float64
}

// Assemble converts the cart and form state into the order row and item
// snapshots. Totals are recomputed here from the cart lines; client-supplied
// figures are never trusted. All rejections leave the cart untouched.
func Assemble(ownerID uuid.UUID, c cart.Cart, in Input) (repo.Order, []repo.OrderItem, error) {
	if len(c.Items) == 0 {
		return repo.Order{}, nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if strings.TrimSpace(in.OrgClientID) == "" || strings.TrimSpace(in.OutletClientID) == "" {
		return repo.Order{}, nil, fmt.Errorf("%w: organization and outlet identifiers are required", ErrValidation)
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method != PaymentCash && method != PaymentUPI {
		return repo.Order{}, nil, fmt.Errorf("%w: payment method must be cash or upi", ErrValidation)
	}

	totals := c.Totals()
	order := repo.Order{
		OwnerID:        ownerID,
		OrgClientID:    strings.TrimSpace(in.OrgClientID),
		OutletClientID: strings.TrimSpace(in.OutletClientID),
		CustomerID:     in.CustomerID,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		CustomerMobile: strings.TrimSpace(in.CustomerMobile),
		TotalAmount:    totals.Subtotal,
		TotalDiscount:  totals.Discount,
		FinalAmount:    totals.Final,
		PaymentMethod:  method,
		PaymentStatus:  "completed",
	}
	if order.CustomerName == "" {
		order.CustomerName = c.CustomerName
	}
	if order.CustomerMobile == "" {
		order.CustomerMobile = c.CustomerMobile
	}

	if method == PaymentCash {
		if in.CashGiven == nil {
			return repo.Order{}, nil, fmt.Errorf("%w: cash given is required for cash payment", ErrValidation)
		}
		if *in.CashGiven < totals.Final {
			return repo.Order{}, nil, fmt.Errorf("%w: insufficient cash", ErrValidation)
		}
		change := pricing.ChangeDue(*in.CashGiven, totals.Final)
		cash := *in.CashGiven
		order.CashGiven = &cash
		order.ChangeAmount = &change
	}

	items := make([]repo.OrderItem, 0, len(c.Items))
	for _, line := range c.Items {
		item := repo.OrderItem{
			Name:     line.Name,
			Price:    line.Price,
			Discount: line.Discount,
			Quantity: line.Quantity,
			Total:    pricing.LineTotal(line.Price, int(line.Quantity), line.Discount),
		}
		if id, err := uuid.Parse(line.ProductID); err == nil {
			pid := id
			item.ProductID = &pid
		}
		items = append(items, item)
	}
	return order, items, nil
}
