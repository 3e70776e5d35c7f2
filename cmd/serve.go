package cmd

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"

	"github.com/yi-nology/photo_bridge/biz/router"
	"github.com/yi-nology/photo_bridge/biz/service"
	"github.com/yi-nology/photo_bridge/pkg/asseturl"
	"github.com/yi-nology/photo_bridge/pkg/database"
	"github.com/yi-nology/photo_bridge/pkg/imaging"
	"github.com/yi-nology/photo_bridge/pkg/lock"
	"github.com/yi-nology/photo_bridge/pkg/redis"
	"github.com/yi-nology/photo_bridge/pkg/storage"
)

// maxFilesPerRequest bounds the request body of a multi-file upload.
const maxFilesPerRequest = 10

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return fmt.Errorf("migrate: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		database.Close(db)
		return err
	}

	var mu *lock.Mutex
	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		hlog.Warnf("redis unavailable, carousel writes run unlocked: %v", err)
	} else if rdb != nil {
		mu = lock.New(rdb, lock.DefaultOptions())
	}

	svc := service.NewService(service.NewLogic(db), service.Options{
		Store:       store,
		Transformer: imaging.New(cfg.Imaging.MaxConcurrency),
		Resolver:    asseturl.New(cfg.Storage.Local.AssetBaseURL, asseturl.KeepObjectURLs(store.IsObjectURL)),
		Limits: service.QuotaLimits{
			PerDay:   cfg.Upload.MaxPerDayBytes,
			PerMonth: cfg.Upload.MaxPerMonthBytes,
		},
		MaxUploadSize: cfg.Upload.MaxSize,
	})

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(int(cfg.Upload.MaxSize)*maxFilesPerRequest+1<<20),
	)
	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				hlog.CtxWarnf(ctx, "close redis: %v", err)
			}
		}
		if err := database.Close(db); err != nil {
			hlog.CtxWarnf(ctx, "close database: %v", err)
		}
	})
	router.Register(h, cfg, svc, mu)

	hlog.Infof("photo_bridge listening on %s (primary store: %s)", cfg.Server.Address, store.Primary())
	h.Spin()
	return nil
}
