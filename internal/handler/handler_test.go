package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/escola-digital/escola-api/internal/config"
	"github.com/escola-digital/escola-api/internal/handler"
	"github.com/escola-digital/escola-api/internal/models"
	"github.com/escola-digital/escola-api/internal/repository"
	"github.com/escola-digital/escola-api/internal/router"
	"github.com/escola-digital/escola-api/internal/service"
)

// envelope mirrors utils.APIResponse with the payload kept raw so each test
// can decode it into the expected shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.SchoolClass{}, &models.Subject{}, &models.Attendance{}, &models.Grade{}, &models.ActivityLog{}))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activitySvc := service.NewActivityService(activityRepo, logger)
	attendanceSvc := service.NewAttendanceService(db, attendanceRepo, validate, nil, time.Minute, activitySvc, nil, logger)
	gradeSvc := service.NewGradeService(db, gradeRepo, studentRepo, subjectRepo, validate, nil, activitySvc, nil, logger)
	boletimSvc := service.NewBoletimService(gradeRepo, studentRepo, nil, time.Minute, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "escola-api-test", AppEnv: "test"}, router.Dependencies{
		AttendanceHandler: handler.NewAttendanceHandler(attendanceSvc, logger),
		GradeHandler:      handler.NewGradeHandler(gradeSvc, logger),
		BoletimHandler:    handler.NewBoletimHandler(boletimSvc, logger),
		ActivityHandler:   handler.NewActivityHandler(activitySvc, logger),
		JWTMiddleware:     authStub,
	})

	return app, db
}

// authStub stands in for the JWT middleware so handlers see an authenticated
// teacher.
func authStub(c *fiber.Ctx) error {
	c.Locals("user_id", uint(1))
	c.Locals("user_role", "teacher")
	return c.Next()
}

func seedStudent(t *testing.T, db *gorm.DB, name, email string) models.Student {
	t.Helper()
	student := models.Student{Name: name, Email: email}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func seedSubject(t *testing.T, db *gorm.DB, name string) models.Subject {
	t.Helper()
	subject := models.Subject{Name: name}
	require.NoError(t, db.Create(&subject).Error)
	return subject
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload interface{}) (*http.Response, envelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NoError(t, resp.Body.Close())

	return resp, env
}
