package sync

import (
	"scorekeeper/internal/domain/entity"
	"scorekeeper/internal/domain/sync"
)

type batchInput struct {
	Body entity.ChangeSet
}

type batchOutput struct {
	Body entity.UpsertResult
}

type changesInput struct {
	Since int64 `query:"since" minimum:"0" doc:"Курсор last_modified_ms, 0 для полной выборки"`
}

type changesOutput struct {
	Body sync.ChangesResponse
}

type countInput struct{}

type countOutput struct {
	Body sync.CountResponse
}

type matchPhotoInput struct {
	ID   string `path:"id" format:"uuid"`
	Body sync.MatchPhotoRequest
}
