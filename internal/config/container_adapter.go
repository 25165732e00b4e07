package config

import (
	"github.com/garyjia/docflow/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Workflow: container.WorkflowConfig{
			StagesFile:           c.Workflow.StagesFile,
			DeliveryScope:        c.Workflow.DeliveryScope,
			BillingPrecision:     c.Workflow.BillingPrecision,
			PaymentDueOffsetDays: c.Workflow.PaymentDueOffsetDays,
		},
		Numbering: container.NumberingConfig{
			Backend:        c.Numbering.Backend,
			RedisAddr:      c.Numbering.Redis.Addr,
			RedisPassword:  c.Numbering.Redis.Password,
			RedisDB:        c.Numbering.Redis.DB,
			RedisKeyPrefix: c.Numbering.Redis.KeyPrefix,
		},
		Identity: container.IdentityConfig{
			GroupPrecedence: append([]string(nil), c.Identity.GroupPrecedence...),
			ElevatedGroups:  append([]string(nil), c.Identity.ElevatedGroups...),
			Aliases:         c.Identity.Aliases,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
