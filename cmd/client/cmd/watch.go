package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"scorekeeper/internal/app/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Фоновая синхронизация",
	Long: `Запускает синхронизацию при старте, по таймеру, при появлении сети
и после локальных изменений. Сигнал фокуса (SIGUSR1) запускает
синхронизацию немедленно.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		if len(focusSignals) > 0 {
			focus := make(chan os.Signal, 1)
			signal.Notify(focus, focusSignals...)
			defer signal.Stop(focus)

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-focus:
						app.Triggers().OnFocus()
					}
				}
			}()
		}

		return app.Run(ctx)
	},
}
