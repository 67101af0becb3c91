package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mudit2103/csm-web/internal/dto"
	pkgerrors "github.com/mudit2103/csm-web/pkg/errors"
)

type GenerateOptions struct {
	ConfigPath *string
	Complicate bool
	Seed       uint64
}

func DefaultGenerateOptions(configPath *string) *GenerateOptions {
	return &GenerateOptions{
		ConfigPath: configPath,
		Complicate: false,
		Seed:       0,
	}
}

func NewCmdGenerate(configPath *string) *cobra.Command {
	o := DefaultGenerateOptions(configPath)
	cmd := &cobra.Command{
		Use:   "generate [--complicate] [--seed N]",
		Short: "Flush all scheduler data and generate a fresh test dataset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.Flags())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *GenerateOptions) Bind(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Complicate, "complicate", o.Complicate, "Also cross-enroll mentors, add extra sections and add overrides.")
	fs.Uint64Var(&o.Seed, "seed", o.Seed, "Random seed; 0 picks one from the clock. Overrides fixture.seed.")
}

func (o *GenerateOptions) Validate(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return nil
}

func (o *GenerateOptions) Run(ctx context.Context, fs *pflag.FlagSet) error {
	cfg, logger, err := loadConfig(*o.ConfigPath)
	if err != nil {
		return err
	}
	if fs.Changed("seed") {
		cfg.Fixture.Seed = o.Seed
	}

	// 生产环境在连接数据库之前即拒绝
	if !cfg.App.AllowsFixtures() {
		logger.Warn("生产环境拒绝生成测试数据", zap.String("env", cfg.App.Env), zap.Bool("debug", cfg.App.Debug))
		_ = logger.Sync()
		return pkgerrors.ErrProductionGuard
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.Fixture.Generate(contextOrBackground(ctx), &dto.GenerateRequest{Complicate: o.Complicate})
	if err != nil {
		return err
	}

	return printJSON(os.Stdout, result)
}
