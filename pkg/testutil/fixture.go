package testutil

import (
	"context"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/repository"
)

// CreateFixtureDb inserts the standard fixture rows most tests need: two
// users and one item.
func CreateFixtureDb(ctx context.Context) {
	InsertUsers(ctx)
	InsertItems(ctx)
}

func InsertUsers(ctx context.Context) {
	userRepo := repository.NewUserRepository()

	err := userRepo.Create(ctx, &entity.User{
		Base: entity.Base{ID: "user1"},
		Name: "User One",
	})
	if err != nil {
		panic(err)
	}

	err = userRepo.Create(ctx, &entity.User{
		Base: entity.Base{ID: "user2"},
		Name: "User Two",
	})
	if err != nil {
		panic(err)
	}
}

func InsertItems(ctx context.Context) {
	itemRepo := repository.NewItemRepository()

	err := itemRepo.Create(ctx, &entity.Item{
		Base:      entity.Base{ID: "item1"},
		Name:      "Limited Sneaker",
		CreatedBy: "user1",
	})
	if err != nil {
		panic(err)
	}
}
