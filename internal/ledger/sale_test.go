package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"urban-store/internal/metrics"
	"urban-store/internal/repo"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSaleRegisterCash(t *testing.T) {
	store := newMemStore()
	shirt := store.addProduct("Playera", 10, money("250.00"))
	hat := store.addProduct("Gorra", 4, money("180.50"))

	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())
	sale, err := c.Register(context.Background(), SaleRequest{
		PaymentMethod: repo.PaymentCash,
		Items: []SaleLine{
			{ProductID: shirt.ID, Quantity: 2, UnitPrice: money("250.00"), Size: "M"},
			{ProductID: hat.ID, Quantity: 1, UnitPrice: money("180.50")},
		},
	})
	require.NoError(t, err)

	assert.True(t, sale.Total.Equal(money("680.50")), "total %s", sale.Total)
	require.Len(t, sale.Items, 2)
	assert.True(t, sale.Items[0].Subtotal.Equal(money("500.00")))
	assert.Equal(t, "Playera", sale.Items[0].ProductName)
	assert.Equal(t, repo.SaleCompleted, sale.Status)
	assert.Nil(t, sale.CustomerID)

	assert.Equal(t, 8, store.products[shirt.ID].Stock)
	assert.Equal(t, 3, store.products[hat.ID].Stock)
}

func TestSaleRegisterCreditIncreasesBalance(t *testing.T) {
	store := newMemStore()
	shirt := store.addProduct("Playera", 10, money("250.00"))
	cust := store.addCustomer("Ana", money("100.00"))

	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())
	sale, err := c.Register(context.Background(), SaleRequest{
		PaymentMethod: repo.PaymentCredit,
		IsCredit:      true,
		CustomerID:    cust.ID,
		Items: []SaleLine{
			{ProductID: shirt.ID, Quantity: 3, UnitPrice: money("250.00")},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, sale.CustomerID)
	assert.Equal(t, cust.ID, *sale.CustomerID)
	assert.True(t, store.customers[cust.ID].Balance.Equal(money("850.00")),
		"balance %s", store.customers[cust.ID].Balance)
}

func TestSaleRegisterValidation(t *testing.T) {
	store := newMemStore()
	shirt := store.addProduct("Playera", 10, money("250.00"))
	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())

	cases := []struct {
		name string
		req  SaleRequest
	}{
		{"credit without customer", SaleRequest{
			PaymentMethod: repo.PaymentCredit,
			IsCredit:      true,
			Items:         []SaleLine{{ProductID: shirt.ID, Quantity: 1, UnitPrice: money("1")}},
		}},
		{"unknown method", SaleRequest{
			PaymentMethod: "cheque",
			Items:         []SaleLine{{ProductID: shirt.ID, Quantity: 1, UnitPrice: money("1")}},
		}},
		{"credit flag mismatch", SaleRequest{
			PaymentMethod: repo.PaymentCash,
			IsCredit:      true,
			CustomerID:    "x",
			Items:         []SaleLine{{ProductID: shirt.ID, Quantity: 1, UnitPrice: money("1")}},
		}},
		{"no items", SaleRequest{PaymentMethod: repo.PaymentCash}},
		{"zero quantity", SaleRequest{
			PaymentMethod: repo.PaymentCash,
			Items:         []SaleLine{{ProductID: shirt.ID, Quantity: 0, UnitPrice: money("1")}},
		}},
		{"negative price", SaleRequest{
			PaymentMethod: repo.PaymentCash,
			Items:         []SaleLine{{ProductID: shirt.ID, Quantity: 1, UnitPrice: money("-1")}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Register(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	assert.Equal(t, 10, store.products[shirt.ID].Stock, "no validation failure may touch stock")
	assert.Empty(t, store.sales)
}

func TestSaleRegisterUnknownProduct(t *testing.T) {
	store := newMemStore()
	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())

	_, err := c.Register(context.Background(), SaleRequest{
		PaymentMethod: repo.PaymentCash,
		Items:         []SaleLine{{ProductID: "missing", Quantity: 1, UnitPrice: money("10")}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaleRegisterInsufficientStock(t *testing.T) {
	store := newMemStore()
	shirt := store.addProduct("Playera", 10, money("250.00"))
	hat := store.addProduct("Gorra", 1, money("180.50"))

	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())
	_, err := c.Register(context.Background(), SaleRequest{
		PaymentMethod: repo.PaymentCash,
		Items: []SaleLine{
			{ProductID: shirt.ID, Quantity: 2, UnitPrice: money("250.00")},
			{ProductID: hat.ID, Quantity: 3, UnitPrice: money("180.50")},
		},
	})
	require.Error(t, err)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Gorra", stockErr.ProductName)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Equal(t, 10, store.products[shirt.ID].Stock, "first line must roll back too")
	assert.Empty(t, store.sales)
}

func TestSaleRegisterDuplicateProductLines(t *testing.T) {
	store := newMemStore()
	shirt := store.addProduct("Playera", 5, money("250.00"))

	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())

	// Two lines of the same product whose combined quantity exceeds stock:
	// the second line must fail against the remaining stock, not the
	// original level.
	_, err := c.Register(context.Background(), SaleRequest{
		PaymentMethod: repo.PaymentCash,
		Items: []SaleLine{
			{ProductID: shirt.ID, Quantity: 3, UnitPrice: money("250.00")},
			{ProductID: shirt.ID, Quantity: 3, UnitPrice: money("250.00")},
		},
	})
	require.Error(t, err)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Playera", stockErr.ProductName)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	assert.Equal(t, 5, store.products[shirt.ID].Stock)
	assert.Empty(t, store.sales)

	// Duplicate lines that fit commit as distinct items with the decrements
	// summed.
	sale, err := c.Register(context.Background(), SaleRequest{
		PaymentMethod: repo.PaymentCash,
		Items: []SaleLine{
			{ProductID: shirt.ID, Quantity: 3, UnitPrice: money("250.00")},
			{ProductID: shirt.ID, Quantity: 2, UnitPrice: money("250.00")},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)
	assert.True(t, sale.Total.Equal(money("1250.00")))
	assert.Equal(t, 0, store.products[shirt.ID].Stock)
}

func TestSaleRegisterRollbackOnCommitFailure(t *testing.T) {
	store := newMemStore()
	shirt := store.addProduct("Playera", 10, money("250.00"))
	cust := store.addCustomer("Ana", decimal.Zero)
	store.commitErr = errors.New("connection reset")

	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())
	_, err := c.Register(context.Background(), SaleRequest{
		PaymentMethod: repo.PaymentCredit,
		IsCredit:      true,
		CustomerID:    cust.ID,
		Items:         []SaleLine{{ProductID: shirt.ID, Quantity: 1, UnitPrice: money("250.00")}},
	})
	require.Error(t, err)

	assert.Equal(t, 10, store.products[shirt.ID].Stock)
	assert.True(t, store.customers[cust.ID].Balance.IsZero())
	assert.Empty(t, store.sales)
}

func TestSaleRegisterConcurrentNeverOversells(t *testing.T) {
	store := newMemStore()
	shirt := store.addProduct("Playera", 5, money("250.00"))

	c := NewSaleCoordinator(store, metrics.Registry("test"), testLogger())

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Register(context.Background(), SaleRequest{
				PaymentMethod: repo.PaymentCash,
				Items:         []SaleLine{{ProductID: shirt.ID, Quantity: 1, UnitPrice: money("250.00")}},
			})
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, 5, committed)
	assert.Equal(t, 0, store.products[shirt.ID].Stock)
	assert.GreaterOrEqual(t, store.products[shirt.ID].Stock, 0, "stock must never go negative")
}
