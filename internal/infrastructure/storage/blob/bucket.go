package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrInvalidKey = errors.New("invalid object key")
	ErrNotFound   = errors.New("object not found")
)

// Ключ фото: {userId}/{matchId}_{unixMs}.jpg
var keySegment = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Bucket файловое хранилище фотографий с публичными ссылками
type Bucket struct {
	dir     string
	baseURL string
}

// NewBucket создает каталог хранилища. baseURL префикс публичных ссылок,
// к нему добавляется ключ.
func NewBucket(dir, baseURL string) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога хранилища: %w", err)
	}
	return &Bucket{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// ValidateKey проверяет ключ вида user/file без выхода за пределы каталога
func ValidateKey(key string) error {
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, p := range parts {
		if p == "." || p == ".." || !keySegment.MatchString(p) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// Put записывает объект с перезаписью и возвращает его публичную ссылку.
// Запись идет через временный файл, читатель не увидит половину фото.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := b.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ошибка создания каталога: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("ошибка создания файла: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("ошибка записи файла: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("ошибка записи файла: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("ошибка сохранения файла: %w", err)
	}

	return b.URL(key), nil
}

// Get читает объект по ключу
func (b *Bucket) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}
	return data, nil
}

// URL публичная ссылка на объект
func (b *Bucket) URL(key string) string {
	return b.baseURL + "/" + key
}

// FileSystem раздает только объекты по допустимым ключам. Каталоги и
// временные файлы загрузки не видны.
func (b *Bucket) FileSystem() http.FileSystem {
	return objectFS{bucket: b}
}

type objectFS struct {
	bucket *Bucket
}

func (fs objectFS) Open(name string) (http.File, error) {
	key := strings.TrimPrefix(name, "/")
	if ValidateKey(key) != nil || strings.HasPrefix(filepath.Base(key), ".") {
		return nil, os.ErrNotExist
	}

	f, err := os.Open(fs.bucket.path(key))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func (b *Bucket) path(key string) string {
	return filepath.Join(b.dir, filepath.FromSlash(key))
}
