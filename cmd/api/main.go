package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/course-registry-api/api/swagger"
	"github.com/noah-isme/course-registry-api/internal/handler"
	"github.com/noah-isme/course-registry-api/internal/middleware"
	"github.com/noah-isme/course-registry-api/internal/repository"
	"github.com/noah-isme/course-registry-api/internal/service"
	"github.com/noah-isme/course-registry-api/pkg/cache"
	"github.com/noah-isme/course-registry-api/pkg/config"
	"github.com/noah-isme/course-registry-api/pkg/database"
	"github.com/noah-isme/course-registry-api/pkg/export"
	"github.com/noah-isme/course-registry-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-registry-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-registry-api/pkg/middleware/requestid"
)

// @title Course Registry API
// @version 1.0.0
// @description Course scheduling backend with a transactional enrollment engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without schedule cache", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.ScheduleTTL, logr, true)
		}
	}

	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	sectionRepo := repository.NewSectionRepository(db)

	enrollmentSvc := service.NewEnrollmentService(scheduleRepo, scheduleRepo, cacheSvc, metrics, nil, logr)
	studentSvc := service.NewStudentService(userRepo, enrollmentSvc, export.NewSchedulePDFExporter(), export.NewCSVExporter(), logr)
	subjectSvc := service.NewSubjectService(subjectRepo, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, logr)
	sectionSvc := service.NewSectionService(sectionRepo, logr)

	studentHandler := handler.NewStudentHandler(studentSvc, enrollmentSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/students", studentHandler.List)
		api.GET("/students/:id", studentHandler.Get)
		api.GET("/students/:id/schedule", studentHandler.GetSchedule)
		api.GET("/students/:id/schedule/pdf", studentHandler.ExportPDF)
		api.GET("/students/:id/schedule/csv", studentHandler.ExportCSV)
		api.POST("/students/:id/enrollments", studentHandler.Enroll)
		api.DELETE("/students/:id/enrollments/:sectionId", studentHandler.Drop)

		api.GET("/sections", sectionHandler.List)
		api.GET("/sections/:id", sectionHandler.Get)

		api.GET("/subjects", subjectHandler.List)
		api.GET("/subjects/:id", subjectHandler.Get)

		api.GET("/teachers", teacherHandler.List)
		api.GET("/teachers/:id", teacherHandler.Get)

		api.GET("/classrooms", classroomHandler.List)
		api.GET("/classrooms/:id", classroomHandler.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
