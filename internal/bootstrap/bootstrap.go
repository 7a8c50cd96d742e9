package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/campusdata/internal/app/controllers"
	appMigrations "github.com/yigit/campusdata/internal/app/migrations"
	"github.com/yigit/campusdata/internal/app/models"
	appRoutes "github.com/yigit/campusdata/internal/app/routes"
	appServices "github.com/yigit/campusdata/internal/app/services"
	"github.com/yigit/campusdata/internal/config"
	"github.com/yigit/campusdata/internal/db"
	appMiddleware "github.com/yigit/campusdata/internal/middleware"
	"github.com/yigit/campusdata/internal/orm"
	"github.com/yigit/campusdata/internal/pkg/logger"
	"github.com/yigit/campusdata/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Factory           *orm.Factory
	Services          *appServices.Services
	StudentController *appControllers.StudentController
	CourseController  *appControllers.CourseController
	TeacherController *appControllers.TeacherController
	Logger            zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the persistence unit and, when configured, creates
// the schema.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.Database, error) {
	lgr.Info().Str("unit", cfg.Database.Unit).Str("driver", cfg.Database.Driver).Msg("Establishing database connection...")
	database, err := db.Open(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	if !cfg.Database.CreateSchema {
		return database, nil
	}

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database).Migrate(context.Background()); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return database, nil
}

// BuildDependencies maps the entities, creates the session factory and wires
// services and controllers.
func BuildDependencies(cfg *config.Config, database *db.Database, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	registry, err := models.NewRegistry()
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to build entity mappings")
		return nil, fmt.Errorf("failed to build entity mappings: %w", err)
	}

	deps.Factory, err = orm.NewFactory(cfg.Database.Unit, database, registry)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to create session factory")
		return nil, fmt.Errorf("failed to create session factory: %w", err)
	}

	if cfg.Database.Seed {
		if err := seed.CreateDefaultData(context.Background(), deps.Factory, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	deps.Services = appServices.NewServices(deps.Factory)

	deps.StudentController = appControllers.NewStudentController(deps.Services.Students, deps.Services.Teachers)
	deps.CourseController = appControllers.NewCourseController(deps.Services.Courses)
	deps.TeacherController = appControllers.NewTeacherController(deps.Services.Teachers)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router,
		deps.StudentController,
		deps.CourseController,
		deps.TeacherController,
	)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
