// Command user wires the User aggregate end to end: an in-memory store,
// a JSON serializer, and the two User commands run against a freshly
// generated aggregate id.
package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/defense-allies/eventcore"
	"github.com/defense-allies/eventcore/examples/user/domain"
	"github.com/defense-allies/eventcore/stores/mem"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	ctx := context.Background()

	registry := eventcore.NewEventTypeRegistry()
	if err := domain.Register(registry); err != nil {
		return err
	}
	serializer := eventcore.NewJSONSerializer(registry)
	repo := domain.NewRepository(mem.New(), serializer, serializer)

	id := eventcore.NewId()
	logger.Info("creating user", zap.String("aggregate_id", id.String()))

	root := domain.New(id)
	if _, err := eventcore.Execute[domain.State, domain.Event, *domain.State, domain.CreateUser, struct{}](
		ctx, root, domain.CreateUserHandler{}, domain.CreateUser{UserID: id, Email: "joel@tixlys.com"}, nil,
	); err != nil {
		return err
	}
	if err := repo.Save(ctx, root); err != nil {
		return err
	}

	loaded, err := repo.Load(ctx, id)
	if err != nil {
		return err
	}

	logger.Info("activating user", zap.String("aggregate_id", id.String()))
	if _, err := eventcore.Execute[domain.State, domain.Event, *domain.State, domain.ActivateUser, struct{}](
		ctx, loaded, domain.ActivateUserHandler{}, domain.ActivateUser{UserID: id}, nil,
	); err != nil {
		return err
	}
	if err := repo.Save(ctx, loaded); err != nil {
		return err
	}

	final, err := repo.Load(ctx, id)
	if err != nil {
		return err
	}
	logger.Info("final state",
		zap.String("aggregate_id", id.String()),
		zap.Int("version", final.Version()),
		zap.Bool("is_active", final.State().IsActive),
	)
	return nil
}
