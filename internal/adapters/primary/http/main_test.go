package http

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	mw "github.com/pulsefit/pulsefit-backend/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/pulsefit/pulsefit-backend/internal/adapters/primary/websocket"
	"github.com/pulsefit/pulsefit-backend/internal/adapters/secondary/email"
	pgadapter "github.com/pulsefit/pulsefit-backend/internal/adapters/secondary/postgres"
	"github.com/pulsefit/pulsefit-backend/internal/auth"
	"github.com/pulsefit/pulsefit-backend/internal/core/domain"
	"github.com/pulsefit/pulsefit-backend/internal/core/services"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		pgcontainer.WithDatabase("pulsefit-test"),
		pgcontainer.WithUsername("user"),
		pgcontainer.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("could not get connection string: %v", err)
	}

	migrationsPath, err := filepath.Abs("../../../../migrations")
	if err != nil {
		log.Fatalf("could not find migrations directory: %v", err)
	}

	migrationURL := "file://" + migrationsPath
	mig, err := migrate.New(migrationURL, connStr)
	if err != nil {
		log.Fatalf("could not create migrate instance: %v", err)
	}
	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("could not run migrations: %v", err)
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not create connection pool: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Fatalf("could not terminate postgres container: %v", err)
	}

	os.Exit(code)
}

// testApp bundles the wired router with the pieces tests reach into directly.
type testApp struct {
	router       *chi.Mux
	tokenManager *auth.TokenManager
	notifService *services.NotificationService
}

// newTestApp wires the full HTTP surface against the shared test database.
// The hub has no live sessions, so pushes are silent no-ops, which is exactly
// the delivery contract.
func newTestApp() *testApp {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)

	userRepo := pgadapter.NewUserRepository(testPool)
	notifRepo := pgadapter.NewNotificationRepository(testPool)
	appRepo := pgadapter.NewTrainerApplicationRepository(testPool)
	orderRepo := pgadapter.NewOrderRepository(testPool)

	hub := wsAdapter.NewHub(nil, logger)
	notifService := services.NewNotificationService(notifRepo, hub)
	hub.SetNotificationLister(notifService)

	authService := services.NewAuthService(userRepo)
	notifier := email.NewMockSMTPNotifierWithLogger(userRepo, logger)
	trainerService := services.NewTrainerService(appRepo, userRepo, notifService, hub, notifier)
	orderService := services.NewOrderService(orderRepo, userRepo, notifService, hub)

	authHandler := NewAuthHandler(authService, tokenManager, errorHandler, logger)
	notifHandler := NewNotificationHandler(notifService, errorHandler, logger)
	trainerHandler := NewTrainerHandler(trainerService, errorHandler, logger)
	orderHandler := NewOrderHandler(orderService, errorHandler, logger)
	adminHandler := NewAdminHandler(notifService, errorHandler, logger)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", authHandler.RegisterRoutes)

		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/notifications", notifHandler.RegisterRoutes)
			r.Route("/trainers", trainerHandler.RegisterRoutes)
			r.Route("/orders", orderHandler.RegisterRoutes)
			r.Route("/admin", adminHandler.RegisterRoutes)
		})
	})

	return &testApp{
		router:       router,
		tokenManager: tokenManager,
		notifService: notifService,
	}
}

// registerUser creates a fresh member with a unique email and returns it with
// a valid bearer token.
func (app *testApp) registerUser(t *testing.T) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()

	userRepo := pgadapter.NewUserRepository(testPool)
	authService := services.NewAuthService(userRepo)

	userEmail := uuid.NewString() + "@example.com"
	user, err := authService.Register(ctx, "Test User", userEmail, "Password1!")
	require.NoError(t, err)

	token, err := app.tokenManager.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)

	return user, token
}

// registerAdmin creates a member and promotes it to admin.
func (app *testApp) registerAdmin(t *testing.T) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()

	user, _ := app.registerUser(t)

	userRepo := pgadapter.NewUserRepository(testPool)
	require.NoError(t, userRepo.UpdateRole(ctx, user.ID, domain.RoleAdmin))
	user.Role = domain.RoleAdmin

	token, err := app.tokenManager.GenerateToken(user.ID, domain.RoleAdmin)
	require.NoError(t, err)

	return user, token
}
