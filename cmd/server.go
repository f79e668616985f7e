package cmd

import (
	"qrate/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动QRate服务器",
	Long:  `启动QRate选曲推荐系统的HTTP服务器，提供活动管理、来宾提交与DJ面板API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
