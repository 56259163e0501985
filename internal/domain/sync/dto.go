package sync

import "scorekeeper/internal/domain/entity"

// DTO (Data Transfer Objects) для API синхронизации

// ChangesResponse изменения после курсора и время сервера для следующего запроса
type ChangesResponse struct {
	Changes      entity.ChangeSet `json:"changes"`
	ServerTimeMs int64            `json:"server_time_ms" doc:"Курсор для следующего запроса изменений"`
}

// CountResponse число неудаленных записей пользователя
type CountResponse struct {
	Count int `json:"count"`
}

// MatchPhotoRequest ссылка на фото матча
type MatchPhotoRequest struct {
	PhotoURL string `json:"photo_url" format:"uri" maxLength:"2048"`
}

// PhotoUploadResponse публичная ссылка на загруженное фото
type PhotoUploadResponse struct {
	URL string `json:"url"`
}
