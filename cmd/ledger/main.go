// Command ledger wires the Account worked example against a store
// chosen at startup via LEDGER_STORE (mem, redis, mongo), read from the
// environment instead of a config file or flag parser.
package main

import (
	"context"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/defense-allies/eventcore"
	"github.com/defense-allies/eventcore/examples/ledger/domain"
	"github.com/defense-allies/eventcore/stores/mem"
	eventredis "github.com/defense-allies/eventcore/stores/redis"
	eventmongo "github.com/defense-allies/eventcore/stores/mongo"
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

	store, cleanup, err := buildStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := eventcore.NewEventTypeRegistry()
	if err := domain.Register(registry); err != nil {
		return err
	}
	serializer := eventcore.NewJSONSerializer(registry)
	repo := domain.NewRepository(store, serializer, serializer)

	id := eventcore.NewId()
	logger.Info("opening account", zap.String("aggregate_id", id.String()))

	root := domain.New(id)
	if _, err := eventcore.Execute[domain.State, domain.Event, *domain.State, domain.OpenAccount, struct{}](
		ctx, root, domain.OpenAccountHandler{}, domain.OpenAccount{
			AccountID: id, OwnerName: "Joel", InitialBalance: decimal.RequireFromString("100.00"),
		}, nil,
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
	if _, err := eventcore.Execute[domain.State, domain.Event, *domain.State, domain.Deposit, struct{}](
		ctx, loaded, domain.DepositHandler{}, domain.Deposit{AccountID: id, Amount: decimal.RequireFromString("25.00")}, nil,
	); err != nil {
		return err
	}
	if err := repo.Save(ctx, loaded); err != nil {
		return err
	}

	withdrawn, err := repo.Load(ctx, id)
	if err != nil {
		return err
	}
	if _, err := eventcore.Execute[domain.State, domain.Event, *domain.State, domain.Withdraw, struct{}](
		ctx, withdrawn, domain.WithdrawHandler{}, domain.Withdraw{AccountID: id, Amount: decimal.RequireFromString("10.00")}, nil,
	); err != nil {
		return err
	}
	if err := repo.Save(ctx, withdrawn); err != nil {
		return err
	}

	final, err := repo.Load(ctx, id)
	if err != nil {
		return err
	}
	logger.Info("final balance",
		zap.String("aggregate_id", id.String()),
		zap.String("balance", final.State().Balance.String()),
		zap.Int("version", final.Version()),
	)
	return nil
}

// buildStore selects an EventStore implementation from LEDGER_STORE
// (defaulting to the in-memory store) and returns a cleanup func callers
// must defer.
func buildStore(ctx context.Context) (eventcore.EventStore, func(), error) {
	switch os.Getenv("LEDGER_STORE") {
	case "redis":
		addr := os.Getenv("LEDGER_REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		store := eventredis.New(client, "ledger", eventredis.WithCompression(eventredis.CompressionLZ4))
		return store, func() { _ = client.Close() }, nil
	case "mongo":
		uri := os.Getenv("LEDGER_MONGO_URI")
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, nil, err
		}
		collection := client.Database("ledger").Collection("events")
		store := eventmongo.New(client, collection)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(ctx) }, nil
	default:
		return mem.New(), func() {}, nil
	}
}
