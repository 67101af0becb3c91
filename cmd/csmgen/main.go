package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName = "csmgen"
)

func main() {
	command := NewRootCommand()
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand 根命令：生成、迁移与导出调度测试数据
func NewRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s [command] [flags]", appName),
		Short:         fmt.Sprintf("%s resets and regenerates scheduler test data for local development.", appName),
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (defaults to ./config/config.yaml or ./config.yaml).")

	cmd.AddCommand(
		NewCmdGenerate(&configPath),
		NewCmdMigrate(&configPath),
		NewCmdExport(&configPath),
		NewCmdStatus(&configPath),
	)
	return cmd
}
