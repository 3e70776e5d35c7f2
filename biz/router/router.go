package router

import (
	"path/filepath"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yi-nology/photo_bridge/biz/handler"
	"github.com/yi-nology/photo_bridge/biz/middleware"
	"github.com/yi-nology/photo_bridge/biz/service"
	"github.com/yi-nology/photo_bridge/pkg/config"
	"github.com/yi-nology/photo_bridge/pkg/lock"
)

// Register wires every route of the service. mu may be nil, in which case
// carousel writes run without the cross-replica lock.
func Register(r *server.Hertz, cfg *config.Config, svc *service.Service, mu *lock.Mutex) {
	r.Use(middleware.Recovery(), middleware.Logging(), middleware.CORS(&cfg.CORS))

	r.GET("/ping", handler.Ping)
	r.GET("/metrics", adaptor.HertzHandler(promhttp.Handler()))

	registerUploads(r, cfg)

	photos := handler.NewPhotoHandler(svc, cfg.Upload.MaxSize)
	carousel := handler.NewCarouselHandler(svc, cfg.Upload.MaxSize)

	api := r.Group("/api", middleware.Identify())
	api.GET("/photos", photos.ListPhotos)
	api.GET("/photos/:id", photos.GetPhoto)
	api.GET("/carousel", carousel.List)

	user := api.Group("", middleware.RequireAuth())
	user.POST("/photos", photos.UploadPhotos)
	user.PUT("/photos/:id", photos.UpdatePhoto)
	user.DELETE("/photos/:id", photos.DeletePhoto)
	user.GET("/users/me/photos", photos.MyPhotos)
	user.GET("/users/me/stats", photos.MyStats)

	admin := api.Group("/admin", middleware.RequireAuth(), middleware.RequireAdmin())
	admin.POST("/minio-import", photos.ImportObject)
	admin.POST("/minio-delete", photos.DeleteObject)
	admin.GET("/carousel", carousel.List)

	writes := admin.Group("/carousel", middleware.WriteLock(mu)...)
	writes.POST("", carousel.Add)
	writes.PUT("/sort", carousel.Sort)
	writes.PUT("/:id", carousel.Replace)
	writes.DELETE("/:id", carousel.Delete)
}

// registerUploads serves filesystem blobs under /uploads behind the referer guard.
func registerUploads(r *server.Hertz, cfg *config.Config) {
	root, err := filepath.Abs(cfg.Storage.Local.Root)
	if err != nil {
		root = cfg.Storage.Local.Root
	}
	allowed := append([]string{
		"http://localhost:5173",
		"http://localhost:" + cfg.ListenPort(),
		cfg.Storage.Local.AssetBaseURL,
	}, cfg.Upload.AllowedReferers...)

	uploads := r.Group("/uploads", middleware.HotlinkGuard(middleware.NewRefererPolicy(allowed...)))
	uploads.StaticFS("/", &app.FS{
		Root:        root,
		PathRewrite: app.NewPathSlashesStripper(1),
	})
}
