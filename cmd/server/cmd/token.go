package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scorekeeper/internal/domain/session"
	"scorekeeper/internal/infrastructure/storage/postgres"
)

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Выпустить токен устройства",
	Long: `Создает сессию для пользователя и печатает bearer токен. Токен
передается клиенту через API_TOKEN, в базе хранится только его хеш.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		storage, err := postgres.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("ошибка подключения к базе: %w", err)
		}
		defer storage.Close()

		sessions := session.NewService(postgres.NewSessionRepository(storage, log), log, cfg.Session.TTL)

		token, err := sessions.Create(ctx, tokenUser)
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "UUID пользователя")
	_ = tokenCmd.MarkFlagRequired("user")
}
