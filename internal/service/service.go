package service

import (
	"go.uber.org/zap"

	"github.com/mudit2103/csm-web/config"
	"github.com/mudit2103/csm-web/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Fixture FixtureService
	Export  ExportService
}

// NewService 创建 Service 聚合；guard 为 nil 时生成任务不加分布式锁
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	guard RunGuard,
	logger *zap.Logger,
) *Service {
	return &Service{
		Fixture: NewFixtureService(cfg, repo, guard, logger.Named("fixture")),
		Export:  NewExportService(cfg, repo, logger.Named("export")),
	}
}
