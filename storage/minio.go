package storage

import (
	"context"
	"fmt"
	"time"

	"qrate/config"
	"qrate/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtworkStore 默认封面素材的对象存储
// 桶内放一组 cover-00.jpg .. cover-NN.jpg，封面序号缓存解析成对象URL
type ArtworkStore struct {
	client   *minio.Client
	endpoint string
	bucket   string
	useSSL   bool
}

// NewArtworkStore 初始化 MinIO 客户端并确保封面桶存在
func NewArtworkStore(cfg *config.Config) (*ArtworkStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查封面桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建封面桶失败: %w", err)
		}
		logger.Info("封面桶已创建", logger.String("bucket", cfg.MinioBucket))
	}

	return &ArtworkStore{
		client:   client,
		endpoint: cfg.MinioEndpoint,
		bucket:   cfg.MinioBucket,
		useSSL:   cfg.MinioUseSSL,
	}, nil
}

// objectName 封面序号对应的对象名
func (s *ArtworkStore) objectName(index int) string {
	return fmt.Sprintf("covers/cover-%02d.jpg", index)
}

// CoverURL 封面序号对应的可访问URL
func (s *ArtworkStore) CoverURL(index int) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, s.objectName(index))
}

// EnsureCover 确认某个封面对象存在（启动自检用）
func (s *ArtworkStore) EnsureCover(ctx context.Context, index int) error {
	_, err := s.client.StatObject(ctx, s.bucket, s.objectName(index), minio.StatObjectOptions{})
	if err != nil {
		return fmt.Errorf("封面对象不存在: %s: %w", s.objectName(index), err)
	}
	return nil
}
