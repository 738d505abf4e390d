package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"workmate/internal/agent"
	"workmate/internal/auth"
	"workmate/internal/config"
	"workmate/internal/log"
	"workmate/internal/repository"
	"workmate/internal/server"
	"workmate/internal/store"
)

// productSource adapts the catalog repository to the analyzer's lookup
// interface.
type productSource struct {
	products *repository.ProductRepository
}

func (s *productSource) ProductByID(ctx context.Context, id string) (agent.ProductInput, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return agent.ProductInput{}, err
	}

	input := agent.ProductInput{
		ID:    product.ID,
		Name:  product.Title,
		Brand: product.Vendor,
	}
	if len(product.Tags) > 0 {
		input.Category = product.Tags[0]
	}
	if len(product.Variants) > 0 {
		input.Price = product.Variants[0].Price
	}
	return input, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the process environment takes precedence.
	_ = godotenv.Load()

	settings, err := config.Load()
	if err != nil {
		var confErr *config.ConfigurationError
		if errors.As(err, &confErr) {
			return confErr
		}
		return err
	}

	logger := log.New(settings.LogLevel)
	logger.Info("starting workmate backend (%s)", settings.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		Settings: settings,
		Logger:   logger,
		Runs:     store.NewMemoryStore(),
	}

	if settings.DatabaseURL != "" {
		pool, err := repository.NewPool(ctx, settings.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		products := repository.NewProductRepository(pool)
		orders := repository.NewOrderRepository(pool)
		if err := products.InitSchema(ctx); err != nil {
			return err
		}
		if err := orders.InitSchema(ctx); err != nil {
			return err
		}

		opts.Products = products
		opts.Orders = orders
		opts.DB = pool
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set, catalog and order routes disabled")
	}

	simple, err := agent.NewSimpleAgent(settings, logger, "")
	if err != nil {
		return err
	}
	multi, err := agent.NewMultiAgentWorkflow(settings, logger, "")
	if err != nil {
		return err
	}

	analyzerOpts := []agent.AnalyzerOption{agent.WithMarketFetcher(agent.NewMarketFetcher())}
	if settings.DatabaseURL != "" {
		analyzerOpts = append(analyzerOpts,
			agent.WithProductSource(&productSource{products: opts.Products.(*repository.ProductRepository)}))
	}
	analyzer, err := agent.NewProductAnalyzer(settings, logger, "", analyzerOpts...)
	if err != nil {
		return err
	}

	opts.Simple = simple
	opts.Multi = multi
	opts.Analyzer = analyzer

	if settings.JWTSecret != "" {
		manager, err := auth.NewManager(settings)
		if err != nil {
			return err
		}
		opts.Auth = manager
		logger.Info("jwt guard enabled on data routes")
	}

	return server.New(opts).Run(ctx)
}
