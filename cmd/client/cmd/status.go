package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"scorekeeper/cmd/client/cmd/output"
	"scorekeeper/internal/app/client"
)

var statusJSON bool

type statusReport struct {
	Authenticated bool                `json:"authenticated"`
	Online        bool                `json:"online"`
	LocalRecords  int                 `json:"local_records"`
	Pending       bool                `json:"pending_changes"`
	QueuedPhotos  int                 `json:"queued_photos"`
	Sync          client.SyncSnapshot `json:"sync"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние клиента",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store := app.Storage()

		count, err := store.CountRecords(ctx)
		if err != nil {
			return err
		}
		pending, err := store.HasPendingChanges(ctx)
		if err != nil {
			return err
		}
		queue, err := store.PhotoQueue(ctx)
		if err != nil {
			return err
		}

		report := statusReport{
			Authenticated: app.IsAuthenticated(),
			Online:        app.CheckConnection(ctx) == nil,
			LocalRecords:  count,
			Pending:       pending,
			QueuedPhotos:  len(queue),
			Sync:          app.Engine().Status(),
		}

		if statusJSON {
			return output.JSON(report)
		}

		output.Field("Аутентификация", yesNo(report.Authenticated))
		output.Field("Сервер доступен", yesNo(report.Online))
		output.Field("Локальных записей", report.LocalRecords)
		output.Field("Есть изменения", yesNo(report.Pending))
		output.Field("Фото в очереди", report.QueuedPhotos)
		output.Field("Синхронизация", report.Sync.Status)
		if ts := report.Sync.LastSyncTimestamp; ts > 0 {
			output.Field("Последняя синхронизация", time.UnixMilli(ts).Format(time.RFC3339))
		}
		if report.Sync.LastError != "" {
			output.Warn("Последняя ошибка: %s", report.Sync.LastError)
		}
		return nil
	},
}

func yesNo(v bool) string {
	if v {
		return "да"
	}
	return "нет"
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "вывод в формате JSON")
}
