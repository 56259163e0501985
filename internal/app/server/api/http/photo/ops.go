package photo

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) uploadOp() huma.Operation {
	return huma.Operation{
		OperationID:  "photo-upload",
		Method:       http.MethodPut,
		Path:         "/api/storage/photos/{user}/{file}",
		Summary:      "Загрузить фото матча",
		Description:  "Перезаписывает объект по ключу user/file и возвращает публичную ссылку",
		Tags:         []string{"storage"},
		MaxBodyBytes: MaxPhotoBytes,
		Security:     []map[string][]string{{"bearer": {}}},
		Middlewares:  h.middleware,
	}
}
