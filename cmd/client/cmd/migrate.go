package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scorekeeper/cmd/client/cmd/output"
	"scorekeeper/internal/app/client"
)

var forceMigrate bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Перенести локальные данные на сервер",
	Long: `Однократно переносит все записи устройства на сервер. Выполняется,
только если у пользователя на сервере еще нет записей. Повторный запуск
после сбоя безопасен.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		if !app.IsAuthenticated() {
			return fmt.Errorf("требуется аутентификация: задайте USER_ID и API_TOKEN")
		}

		ctx := cmd.Context()
		m := app.Migration()

		if !forceMigrate {
			needed, err := m.IsMigrationNeeded(ctx, app.UserID())
			if err != nil {
				return err
			}
			if !needed {
				output.Success("Перенос не требуется")
				return nil
			}
		}

		progress := output.NewProgress(os.Stdout)
		var migrationErr error

		ok := m.RunMigration(ctx, app.UserID(), progress.Update, func(err error) {
			migrationErr = err
		})
		progress.Done()

		if !ok {
			return fmt.Errorf("перенос не удался: %w", migrationErr)
		}

		output.Success("Перенос завершен")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&forceMigrate, "force", false, "выполнить перенос без проверки")
}
