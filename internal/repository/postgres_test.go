package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dairydirect/api/internal/domain"
)

// startPostgres spins up a throwaway Postgres with the schema applied.
func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithInitScripts(filepath.Join("..", "..", "migrations", "001_init.sql")),
		tcpostgres.WithDatabase("marketplace"),
		tcpostgres.WithUsername("app"),
		tcpostgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", fmt.Errorf("connection string: %w", err)
	}
	return container, connStr, nil
}

func randomUser() domain.User {
	return domain.User{
		Username:     gofakeit.Username() + gofakeit.DigitN(4),
		Email:        gofakeit.Email(),
		PasswordHash: gofakeit.UUID(),
		FirstName:    gofakeit.FirstName(),
		LastName:     gofakeit.LastName(),
		PhoneNumber:  gofakeit.Phone(),
		IsConsumer:   true,
	}
}

func randomFarm(ownerID uuid.UUID) domain.Farm {
	return domain.Farm{
		OwnerID:       ownerID,
		Name:          gofakeit.Company(),
		Description:   gofakeit.Sentence(6),
		Location:      gofakeit.City(),
		Region:        gofakeit.State(),
		DailyCapacity: gofakeit.Number(0, 50),
	}
}

func randomProduct(farmID uuid.UUID) domain.Product {
	price, _ := domain.NewMoney(decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2), "SAR")
	return domain.Product{
		FarmID:        farmID,
		Name:          gofakeit.Fruit(),
		Description:   gofakeit.Sentence(4),
		Price:         price,
		StockQuantity: gofakeit.Number(1, 100),
		Unit:          "kg",
		IsAvailable:   true,
	}
}

func randomOrder(consumerID, farmID uuid.UUID, products ...domain.Product) domain.Order {
	var items []domain.OrderItem
	total := decimal.Zero
	for _, p := range products {
		qty := gofakeit.Number(1, 3)
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Quantity:  qty,
			Price:     p.Price,
		})
		total = total.Add(p.Price.Amount.Mul(decimal.NewFromInt(int64(qty))))
	}

	money, _ := domain.NewMoney(total, "SAR")
	return domain.Order{
		ConsumerID:  consumerID,
		FarmID:      farmID,
		Status:      domain.OrderStatusPending,
		TotalAmount: money,
		Items:       items,
		Delivery: domain.DeliveryInfo{
			Name:    gofakeit.Name(),
			Phone:   gofakeit.Phone(),
			Address: gofakeit.Street(),
			City:    gofakeit.City(),
		},
	}
}
