package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) batchOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-batch",
		Method:      http.MethodPost,
		Path:        "/api/sync/batch",
		Summary:     "Записать пакет строк",
		Description: "Upsert строк пользователя в одной транзакции. Возвращает id в порядке запроса",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) changesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-changes",
		Method:      http.MethodGet,
		Path:        "/api/sync/changes",
		Summary:     "Получить изменения",
		Description: "Неудаленные строки с last_modified_ms больше курсора и время сервера",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) countOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-count",
		Method:      http.MethodGet,
		Path:        "/api/sync/count",
		Summary:     "Число записей пользователя",
		Tags:        []string{"sync"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) matchPhotoOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-match-photo",
		Method:        http.MethodPut,
		Path:          "/api/sync/matches/{id}/photo",
		Summary:       "Привязать фото к матчу",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}
