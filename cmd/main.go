package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/roleplay-sim/config"
	"github.com/lshigami/roleplay-sim/database"
	adminctrl "github.com/lshigami/roleplay-sim/internal/controller/admin"
	userctrl "github.com/lshigami/roleplay-sim/internal/controller/user"
	"github.com/lshigami/roleplay-sim/internal/logger"
	"github.com/lshigami/roleplay-sim/internal/model"
	"github.com/lshigami/roleplay-sim/internal/realtime"
	"github.com/lshigami/roleplay-sim/internal/repository"
	"github.com/lshigami/roleplay-sim/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

//go:generate swag init -g cmd/main.go -o docs

// @title Roleplay Simulation API
// @version 1.0
// @description Timed roleplay simulations: pause/resume with active-time tracking, form scoring, competency and soft skill feedback.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			NewNotifier,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewServiceRepository,
			repository.NewServiceLevelRepository,
			repository.NewSimulationRepository,
			repository.NewFeedbackRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewGeminiSoftSkillRater,
			service.NewFeedbackService,
			service.NewSimulationService,
			service.NewAdminServiceService,
		),

		// API Controllers Layer
		fx.Provide(
			adminctrl.NewServiceController,
			userctrl.NewSimulationController,
		),

		fx.Invoke(logger.Configure),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop application cleanly")
	}
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// NewNotifier closes the redis connection when the app stops.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config) realtime.Notifier {
	n := realtime.NewNotifier(cfg)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return n.Close()
		},
	})
	return n
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	serviceCtrl *adminctrl.ServiceController,
	simulationCtrl *userctrl.SimulationController,
) {
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/services", serviceCtrl.CreateService)
	}

	userAPIGroup := router.Group("/api/v1")
	{
		userAPIGroup.POST("/simulations", simulationCtrl.StartSimulation)

		sims := userAPIGroup.Group("/simulations/:id")
		sims.GET("/time", simulationCtrl.GetUsedTime)
		sims.POST("/pause", simulationCtrl.PauseSimulation)
		sims.POST("/resume", simulationCtrl.ResumeSimulation)
		sims.PUT("/answers", simulationCtrl.UpdateFormAnswers)
		sims.PUT("/transcript", simulationCtrl.UpdateTranscript)
		sims.POST("/stop", simulationCtrl.StopSimulation)
		sims.POST("/cancel", simulationCtrl.CancelSimulation)
		sims.GET("/result", simulationCtrl.GetResult)
		sims.GET("/history", simulationCtrl.GetHistory)
		sims.POST("/soft-skills", simulationCtrl.GenerateSoftSkills)

		userAPIGroup.GET("/users/:user_id/simulations", simulationCtrl.ListUserSimulations)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Roleplay simulation API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Service{},
		&model.ServiceLevel{},
		&model.Simulation{},
		&model.SimulationFeedback{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
