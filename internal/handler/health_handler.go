package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-gradebook/internal/config"
	"github.com/noah-isme/gema-gradebook/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Components  map[string]string `json:"components,omitempty"`
}

// HealthDependencies are the backing stores probed by the health endpoint.
// Nil entries are skipped.
type HealthDependencies struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, deps HealthDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Components:  map[string]string{},
		}

		if deps.DB != nil {
			payload.Components["database"] = probe(func() error {
				sqlDB, err := deps.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			})
		}
		if deps.Redis != nil {
			payload.Components["redis"] = probe(func() error {
				return deps.Redis.Ping(ctx).Err()
			})
		}

		for _, status := range payload.Components {
			if status != "ok" {
				payload.Status = "degraded"
				return utils.Fail(c, fiber.StatusServiceUnavailable, "service degraded", payload)
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

func probe(check func() error) string {
	if err := check(); err != nil {
		return "down"
	}
	return "ok"
}
