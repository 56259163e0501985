package photo

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"scorekeeper/cmd/client/cmd/output"
	"scorekeeper/internal/app/client"
)

// PhotoCmd родительская команда для работы с фото матчей
var PhotoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Фото матчей",
	Long:  `Прикрепление фото к матчу и загрузка отложенных фото.`,
}

var addCmd = &cobra.Command{
	Use:   "add <match-id> <file>",
	Short: "Прикрепить фото к матчу",
	Long: `Сжимает фото до 1920px и загружает его. Если сети нет или загрузка
не удалась, фото ставится в очередь и загрузится позже.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		matchID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("некорректный ID матча: %s", args[0])
		}

		raw, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("ошибка чтения файла: %w", err)
		}

		if app.IsAuthenticated() {
			app.Monitor().Check(cmd.Context())
		}

		url, err := app.PhotoQueue().AttachPhoto(cmd.Context(), matchID, raw)
		if err != nil {
			return err
		}

		if url == "" {
			output.Warn("Фото поставлено в очередь загрузки")
			return nil
		}
		output.Success("Фото загружено")
		output.Field("Ссылка", url)
		return nil
	},
}

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Загрузить фото из очереди",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		if err := app.CheckConnection(cmd.Context()); err != nil {
			return fmt.Errorf("сервер недоступен: %w", err)
		}

		stats, err := app.PhotoQueue().DrainQueue(cmd.Context())
		if err != nil {
			return err
		}

		output.Field("Загружено", stats.Uploaded)
		output.Field("Осталось в очереди", stats.Retried)
		if stats.Dropped > 0 {
			output.Warn("Удалено после %d неудачных попыток: %d", client.MaxPhotoRetries, stats.Dropped)
		}
		return nil
	},
}

func init() {
	PhotoCmd.AddCommand(addCmd)
	PhotoCmd.AddCommand(drainCmd)
}
