package photo

import "scorekeeper/internal/domain/sync"

type uploadInput struct {
	User    string `path:"user" maxLength:"128"`
	File    string `path:"file" maxLength:"128"`
	RawBody []byte `contentType:"image/jpeg"`
}

type uploadOutput struct {
	Body sync.PhotoUploadResponse
}
