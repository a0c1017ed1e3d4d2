package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/app"
	iauth "github.com/homelearnhq/homelearn/internal/auth"
	"github.com/homelearnhq/homelearn/internal/middleware"
	"github.com/homelearnhq/homelearn/internal/realtime"
	"github.com/homelearnhq/homelearn/internal/services"
)

// Dependencies bundles everything the router needs beyond the database.
type Dependencies struct {
	JWT           *iauth.JWTService
	Google        *iauth.GoogleProvider
	Hub           *realtime.Hub
	Auth          *services.AuthService
	Users         *services.UserService
	Courses       *services.CourseService
	Enrollments   *services.EnrollmentService
	Payments      *services.PaymentService
	Conversations *services.ConversationService
	Chat          *services.ChatService
	Dashboard     *services.DashboardService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	requireAuth := middleware.Auth(deps.JWT)

	registerHealthRoutes(r, db, cfg)
	registerMonitoringRoutes(r, cfg)
	registerAuthRoutes(r, cfg, deps, requireAuth)
	registerCourseRoutes(r, deps, requireAuth)
	registerEnrollmentRoutes(r, deps, requireAuth)
	registerPaymentRoutes(r, deps, requireAuth)
	registerConversationRoutes(r, deps, requireAuth)
	registerDashboardRoutes(r, deps, requireAuth)
	registerChatRoutes(r, deps)

	return r, nil
}
