package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"resume-analyzer-go/internal/config"
)

// Storage 聚合所有存储组件，单个组件初始化失败不影响其它组件
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	MySQL    *MySQL
	Redis    *Redis
}

// NewStorage 按配置初始化各存储组件。
// 未配置的组件跳过，初始化失败的组件记录警告后置nil，全部失败时返回错误
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var initErrors []string

	// MinIO内部日志只在debug级别下输出
	var minioLogger *log.Logger
	if strings.EqualFold(cfg.Logger.Level, "debug") {
		minioLogger = log.New(os.Stderr, "[minio] ", log.LstdFlags)
	} else {
		minioLogger = log.New(io.Discard, "", 0)
	}

	if cfg.MinIO.Endpoint != "" {
		minioClient, err := NewMinIO(ctx, &cfg.MinIO, minioLogger)
		if err != nil {
			log.Printf("警告: MinIO初始化失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		} else {
			s.MinIO = minioClient
		}
	}

	if cfg.RabbitMQ.URL != "" {
		mq, err := NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("警告: RabbitMQ初始化失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else {
			s.RabbitMQ = mq
		}
	}

	if cfg.MySQL.Host != "" {
		db, err := NewMySQL(&cfg.MySQL)
		if err != nil {
			log.Printf("警告: MySQL初始化失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		} else {
			s.MySQL = db
		}
	}

	if cfg.Redis.Address != "" {
		redisClient, err := NewRedisAdapter(ctx, &cfg.Redis)
		if err != nil {
			log.Printf("警告: Redis初始化失败: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		} else {
			s.Redis = redisClient
		}
	}

	if s.MinIO == nil && s.RabbitMQ == nil && s.MySQL == nil && s.Redis == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}

	if len(initErrors) > 0 {
		log.Printf("部分存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}

	return s, nil
}

// Close 关闭所有持有连接的组件
func (s *Storage) Close() error {
	var errs []string

	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("Redis: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("关闭存储组件时出错: %s", strings.Join(errs, "; "))
	}
	return nil
}
