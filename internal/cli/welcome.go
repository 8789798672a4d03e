// internal/cli/welcome.go
// 歡迎信 CLI - 發送一封歡迎信並輸出結果

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"welcome-mailer/internal/app"
	"welcome-mailer/internal/config"
	"welcome-mailer/internal/services"
)

const (
	MsgSent   = "Welcome Email Sent!"
	MsgFailed = "Welcome Email Failed!"

	fallbackRecipient = "jane.doe@gmail.com"
	sendTimeout       = 30 * time.Second
)

// NewWelcomeCommand 建立 welcome 指令
// 不論成功或失敗皆以 exit code 0 結束
func NewWelcomeCommand(cfg *config.Config, mailRouter *services.MailRouter) *cobra.Command {
	var (
		to       string
		provider string
		demo     bool
	)

	recipient := cfg.WelcomeRecipient
	if recipient == "" {
		recipient = fallbackRecipient
	}

	cmd := &cobra.Command{
		Use:           "welcome",
		Short:         "Send the welcome email",
		Long:          `Sends the fixed welcome email to one recipient through the configured mail provider.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 明確指定 --demo 時覆寫 MAIL_DEMO_MODE (包含 --demo=false)
			if cmd.Flags().Changed("demo") {
				cfg.MailDemoMode = demo
			}
			if provider == "" {
				provider = cfg.MailProvider
			}

			sender, err := mailRouter.Resolve(provider)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				fmt.Fprintln(cmd.OutOrStdout(), MsgFailed)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
			defer cancel()

			welcome := app.New(sender, app.WithConfig(cfg))
			sent, err := welcome.SendWelcomeEmail(ctx, to)
			if err != nil {
				log.Error().Err(err).Str("provider", sender.Name()).Msg("welcome email failed")
			}

			if sent {
				fmt.Fprintln(cmd.OutOrStdout(), MsgSent)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), MsgFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", recipient, "recipient address")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "mail provider (defaults to MAIL_PROVIDER)")
	cmd.Flags().BoolVar(&demo, "demo", cfg.MailDemoMode, "report success even when the provider rejects the message")

	return cmd
}
