package api

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectStorage 抽象对象存储操作，便于测试时替换为内存实现。
// 生产实现为 storage.Client。
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}
