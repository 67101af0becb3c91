package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mudit2103/csm-web/internal/dto"
)

type statusReport struct {
	Current *dto.GenerateResult `json:"current"`
	LastRun map[string]string   `json:"last_run,omitempty"`
}

func NewCmdStatus(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print current data counts and the last recorded generation run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := contextOrBackground(cmd.Context())
			current, err := a.svc.Fixture.Summary(ctx)
			if err != nil {
				return err
			}
			report := statusReport{Current: current}
			if a.rdb != nil {
				last, err := a.rdb.LastRun(ctx)
				if err != nil {
					a.logger.Warn("读取最近一次生成记录失败", zap.Error(err))
				} else {
					report.LastRun = last
				}
			}
			return printJSON(os.Stdout, report)
		},
		SilenceUsage: true,
	}
}

// bootstrap 加载配置并装配依赖
func bootstrap(configPath string) (*app, error) {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
