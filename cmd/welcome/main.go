// cmd/welcome/main.go
// 歡迎信 CLI 入口

package main

import (
	"fmt"
	"os"

	"welcome-mailer/internal/cli"
	"welcome-mailer/internal/config"
	"welcome-mailer/internal/logger"
	"welcome-mailer/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Println(cli.MsgFailed)
		return
	}
	logger.Setup(cfg)

	cmd := cli.NewWelcomeCommand(cfg, services.NewMailRouter(cfg))
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
