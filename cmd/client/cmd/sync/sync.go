package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scorekeeper/cmd/client/cmd/output"
	"scorekeeper/internal/app/client"
)

var (
	syncStatus bool
	jsonOutput bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизировать данные с сервером",
	Long: `Отправляет локальные изменения на сервер и получает изменения
с других устройств. Ручной запуск всегда начинает с полным запасом
повторов.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		if syncStatus {
			return showSyncStatus(app)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	if !app.IsAuthenticated() {
		return fmt.Errorf("требуется аутентификация: задайте USER_ID и API_TOKEN")
	}

	fmt.Println("Проверка соединения с сервером...")
	if err := app.CheckConnection(ctx); err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}

	before := app.Engine().Status().Stats
	start := time.Now()

	if err := app.Engine().RequestManualSync(ctx); err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	after := app.Engine().Status().Stats

	output.Success("Синхронизация завершена")
	output.Field("Время выполнения", time.Since(start).Round(time.Millisecond))
	output.Field("Отправлено", after.TotalPushed-before.TotalPushed)
	output.Field("Получено", after.TotalPulled-before.TotalPulled)
	if retries := after.TotalRetries - before.TotalRetries; retries > 0 {
		output.Warn("Повторов: %d", retries)
	}
	return nil
}

func showSyncStatus(app *client.App) error {
	snap := app.Engine().Status()
	if jsonOutput {
		return output.JSON(snap)
	}

	output.Field("Состояние", snap.Status)
	if snap.LastSyncTimestamp > 0 {
		output.Field("Последняя синхронизация", time.UnixMilli(snap.LastSyncTimestamp).Format(time.RFC3339))
	} else {
		output.Field("Последняя синхронизация", "никогда")
	}
	if snap.LastError != "" {
		output.Warn("Последняя ошибка: %s", snap.LastError)
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
}
