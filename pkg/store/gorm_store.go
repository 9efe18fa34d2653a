package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"elearnhub/pkg/domain"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const migrateLockID int64 = 51824017

const settingsRowID = "default"

// GormStore implements Store with one table per entity kind. It runs on
// Postgres, or on SQLite when the DSN starts with "sqlite:".
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore opens the DB, runs auto-migrations and seeds the default
// dataset on first boot.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	dialector, isSQLite := dialectorFor(dsn)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}
	if err := withMigrationLock(db, !isSQLite, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&CourseModel{}, &VideoModel{}, &StudentModel{}, &PaymentModel{}, &SettingsModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return seedDefaults(tx)
	}); err != nil {
		return nil, err
	}
	return &GormStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, bool) {
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		return sqlite.Open(path), true
	}
	return postgres.Open(dsn), false
}

// withMigrationLock serialises migrations across replicas with a Postgres
// advisory lock.
func withMigrationLock(db *gorm.DB, advisory bool, fn func(*gorm.DB) error) error {
	if !advisory {
		return fn(db)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// seedDefaults inserts the default dataset once. The settings row marks a
// seeded database, so emptied tables stay empty across restarts.
func seedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&SettingsModel{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count settings: %w", err)
	}
	if count > 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		doNothing := clause.OnConflict{DoNothing: true}
		courses := make([]CourseModel, 0)
		for _, c := range DefaultCourses() {
			courses = append(courses, courseToModel(c))
		}
		videos := make([]VideoModel, 0)
		for _, v := range DefaultVideos() {
			videos = append(videos, videoToModel(v))
		}
		students := make([]StudentModel, 0)
		for _, st := range DefaultStudents() {
			m, err := studentToModel(st)
			if err != nil {
				return err
			}
			students = append(students, m)
		}
		payments := make([]PaymentModel, 0)
		for _, p := range DefaultPayments() {
			payments = append(payments, paymentToModel(p))
		}
		settings, err := settingsToModel(DefaultSettings(), time.Now().UTC())
		if err != nil {
			return err
		}
		if err := tx.Clauses(doNothing).Create(&courses).Error; err != nil {
			return fmt.Errorf("seed courses: %w", err)
		}
		if err := tx.Clauses(doNothing).Create(&videos).Error; err != nil {
			return fmt.Errorf("seed videos: %w", err)
		}
		if err := tx.Clauses(doNothing).Create(&students).Error; err != nil {
			return fmt.Errorf("seed students: %w", err)
		}
		if err := tx.Clauses(doNothing).Create(&payments).Error; err != nil {
			return fmt.Errorf("seed payments: %w", err)
		}
		if err := tx.Clauses(doNothing).Create(&settings).Error; err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) listVideoModels(conds ...any) ([]VideoModel, error) {
	var models []VideoModel
	tx := s.db.Order("sort_order ASC").Order("created_at ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, storageErr("list", "videos", err)
	}
	return models, nil
}

func (s *GormStore) withVideos(models []CourseModel) ([]domain.Course, error) {
	courses := make([]domain.Course, 0, len(models))
	for _, m := range models {
		courses = append(courses, courseFromModel(m))
	}
	if len(courses) == 0 {
		return courses, nil
	}
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	videoModels, err := s.listVideoModels("course_id IN ?", ids)
	if err != nil {
		return nil, err
	}
	videos := make([]domain.Video, 0, len(videoModels))
	for _, m := range videoModels {
		videos = append(videos, videoFromModel(m))
	}
	attachVideos(courses, videos)
	return courses, nil
}

func (s *GormStore) ListCourses() ([]domain.Course, error) {
	var models []CourseModel
	if err := s.db.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, storageErr("list", "courses", err)
	}
	return s.withVideos(models)
}

func (s *GormStore) GetCourse(id string) (domain.Course, bool, error) {
	var model CourseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Course{}, false, nil
		}
		return domain.Course{}, false, storageErr("get", "courses", err)
	}
	courses, err := s.withVideos([]CourseModel{model})
	if err != nil {
		return domain.Course{}, false, err
	}
	return courses[0], true, nil
}

func (s *GormStore) AddCourse(in domain.NewCourse) (domain.Course, error) {
	c := in.Build(NewID(), s.now())
	model := courseToModel(c)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Course{}, storageErr("insert", "courses", err)
	}
	return c, nil
}

func (s *GormStore) UpdateCourse(id string, patch domain.CoursePatch) (domain.Course, bool, error) {
	var model CourseModel
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		c := courseFromModel(model)
		patch.Apply(&c, s.now())
		model = courseToModel(c)
		return tx.Save(&model).Error
	})
	if err != nil {
		return domain.Course{}, false, storageErr("update", "courses", err)
	}
	if !found {
		return domain.Course{}, false, nil
	}
	courses, err := s.withVideos([]CourseModel{model})
	if err != nil {
		return domain.Course{}, false, err
	}
	return courses[0], true, nil
}

// DeleteCourse removes the course and its videos in one transaction.
func (s *GormStore) DeleteCourse(id string) (bool, error) {
	var affected int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&CourseModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		return tx.Delete(&VideoModel{}, "course_id = ?", id).Error
	})
	if err != nil {
		return false, storageErr("delete", "courses", err)
	}
	return affected > 0, nil
}

// SearchCourses filters in SQL with bound parameters only.
func (s *GormStore) SearchCourses(filter domain.CourseFilter) ([]domain.Course, error) {
	tx := s.db.Model(&CourseModel{})
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		tx = tx.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(instructor) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	if filter.Category != "" {
		tx = tx.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.Level != "" {
		tx = tx.Where("LOWER(level) = LOWER(?)", filter.Level)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	var models []CourseModel
	if err := tx.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, storageErr("search", "courses", err)
	}
	return s.withVideos(models)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *GormStore) ListVideos() ([]domain.Video, error) {
	var models []VideoModel
	if err := s.db.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, storageErr("list", "videos", err)
	}
	res := make([]domain.Video, 0, len(models))
	for _, m := range models {
		res = append(res, videoFromModel(m))
	}
	return res, nil
}

func (s *GormStore) ListVideosByCourse(courseID string) ([]domain.Video, error) {
	models, err := s.listVideoModels("course_id = ?", courseID)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Video, 0, len(models))
	for _, m := range models {
		res = append(res, videoFromModel(m))
	}
	return res, nil
}

func (s *GormStore) GetVideo(id string) (domain.Video, bool, error) {
	var model VideoModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Video{}, false, nil
		}
		return domain.Video{}, false, storageErr("get", "videos", err)
	}
	return videoFromModel(model), true, nil
}

func (s *GormStore) AddVideo(in domain.NewVideo) (domain.Video, error) {
	v := in.Build(NewID(), s.now())
	model := videoToModel(v)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Video{}, storageErr("insert", "videos", err)
	}
	return v, nil
}

func (s *GormStore) UpdateVideo(id string, patch domain.VideoPatch) (domain.Video, bool, error) {
	var out domain.Video
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model VideoModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		out = videoFromModel(model)
		patch.Apply(&out, s.now())
		model = videoToModel(out)
		return tx.Save(&model).Error
	})
	if err != nil {
		return domain.Video{}, false, storageErr("update", "videos", err)
	}
	return out, found, nil
}

func (s *GormStore) DeleteVideo(id string) (bool, error) {
	res := s.db.Delete(&VideoModel{}, "id = ?", id)
	if res.Error != nil {
		return false, storageErr("delete", "videos", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ListStudents() ([]domain.Student, error) {
	var models []StudentModel
	if err := s.db.Order("joined_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, storageErr("list", "students", err)
	}
	res := make([]domain.Student, 0, len(models))
	for _, m := range models {
		st, err := studentFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, nil
}

func (s *GormStore) getStudent(query string, arg any) (domain.Student, bool, error) {
	var model StudentModel
	if err := s.db.Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Student{}, false, nil
		}
		return domain.Student{}, false, storageErr("get", "students", err)
	}
	st, err := studentFromModel(model)
	if err != nil {
		return domain.Student{}, false, err
	}
	return st, true, nil
}

func (s *GormStore) GetStudent(id string) (domain.Student, bool, error) {
	return s.getStudent("id = ?", id)
}

func (s *GormStore) GetStudentByEmail(email string) (domain.Student, bool, error) {
	return s.getStudent("LOWER(email) = LOWER(?)", strings.TrimSpace(email))
}

func (s *GormStore) AddStudent(in domain.NewStudent) (domain.Student, error) {
	st := in.Build(NewID(), s.now())
	model, err := studentToModel(st)
	if err != nil {
		return domain.Student{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Student{}, storageErr("insert", "students", err)
	}
	return st, nil
}

func (s *GormStore) UpdateStudent(id string, patch domain.StudentPatch) (domain.Student, bool, error) {
	var out domain.Student
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model StudentModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		st, err := studentFromModel(model)
		if err != nil {
			return err
		}
		found = true
		patch.Apply(&st, s.now())
		out = st
		model, err = studentToModel(st)
		if err != nil {
			return err
		}
		return tx.Save(&model).Error
	})
	if err != nil {
		return domain.Student{}, false, storageErr("update", "students", err)
	}
	return out, found, nil
}

func (s *GormStore) DeleteStudent(id string) (bool, error) {
	res := s.db.Delete(&StudentModel{}, "id = ?", id)
	if res.Error != nil {
		return false, storageErr("delete", "students", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) listPayments(conds ...any) ([]domain.Payment, error) {
	var models []PaymentModel
	tx := s.db.Order("created_at ASC").Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, storageErr("list", "payments", err)
	}
	res := make([]domain.Payment, 0, len(models))
	for _, m := range models {
		res = append(res, paymentFromModel(m))
	}
	return res, nil
}

func (s *GormStore) ListPayments() ([]domain.Payment, error) {
	return s.listPayments()
}

func (s *GormStore) ListPaymentsByStudent(studentID string) ([]domain.Payment, error) {
	return s.listPayments("student_id = ?", studentID)
}

func (s *GormStore) getPayment(query string, arg any) (domain.Payment, bool, error) {
	var model PaymentModel
	if err := s.db.Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payment{}, false, nil
		}
		return domain.Payment{}, false, storageErr("get", "payments", err)
	}
	return paymentFromModel(model), true, nil
}

func (s *GormStore) GetPayment(id string) (domain.Payment, bool, error) {
	return s.getPayment("id = ?", id)
}

func (s *GormStore) GetPaymentByTransaction(transactionID string) (domain.Payment, bool, error) {
	if transactionID == "" {
		return domain.Payment{}, false, nil
	}
	return s.getPayment("transaction_id = ?", transactionID)
}

func (s *GormStore) AddPayment(in domain.NewPayment) (domain.Payment, error) {
	p := in.Build(NewID(), s.now())
	model := paymentToModel(p)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Payment{}, storageErr("insert", "payments", err)
	}
	return p, nil
}

func (s *GormStore) UpdatePayment(id string, patch domain.PaymentPatch) (domain.Payment, bool, error) {
	var out domain.Payment
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model PaymentModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		out = paymentFromModel(model)
		patch.Apply(&out)
		model = paymentToModel(out)
		return tx.Save(&model).Error
	})
	if err != nil {
		return domain.Payment{}, false, storageErr("update", "payments", err)
	}
	return out, found, nil
}

func (s *GormStore) DeletePayment(id string) (bool, error) {
	res := s.db.Delete(&PaymentModel{}, "id = ?", id)
	if res.Error != nil {
		return false, storageErr("delete", "payments", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) GetSettings() (domain.Settings, error) {
	var model SettingsModel
	if err := s.db.First(&model, "id = ?", settingsRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultSettings(), nil
		}
		return domain.Settings{}, storageErr("get", "settings", err)
	}
	var out domain.Settings
	if err := json.Unmarshal(model.Document, &out); err != nil {
		return domain.Settings{}, storageErr("decode", "settings", err)
	}
	return out, nil
}

func (s *GormStore) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	model, err := settingsToModel(settings, s.now())
	if err != nil {
		return domain.Settings{}, err
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&model).Error; err != nil {
		return domain.Settings{}, storageErr("upsert", "settings", err)
	}
	return settings, nil
}

// Analytics loads the four collections concurrently and aggregates them.
func (s *GormStore) Analytics() (domain.Analytics, error) {
	var (
		courses  []domain.Course
		videos   []domain.Video
		students []domain.Student
		payments []domain.Payment
	)
	var g errgroup.Group
	g.Go(func() error {
		var models []CourseModel
		if err := s.db.Find(&models).Error; err != nil {
			return storageErr("list", "courses", err)
		}
		for _, m := range models {
			courses = append(courses, courseFromModel(m))
		}
		return nil
	})
	g.Go(func() (err error) {
		videos, err = s.ListVideos()
		return err
	})
	g.Go(func() (err error) {
		students, err = s.ListStudents()
		return err
	})
	g.Go(func() (err error) {
		payments, err = s.ListPayments()
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Analytics{}, err
	}
	return BuildAnalytics(courses, videos, students, payments), nil
}

func courseToModel(c domain.Course) CourseModel {
	return CourseModel{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Thumbnail:   c.Thumbnail,
		Price:       c.Price,
		Category:    c.Category,
		Instructor:  c.Instructor,
		Level:       c.Level,
		Status:      string(c.Status),
		Enrollments: c.Enrollments,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func courseFromModel(m CourseModel) domain.Course {
	return domain.Course{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Thumbnail:   m.Thumbnail,
		Price:       m.Price,
		Category:    m.Category,
		Instructor:  m.Instructor,
		Level:       m.Level,
		Status:      domain.CourseStatus(m.Status),
		Enrollments: m.Enrollments,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func videoToModel(v domain.Video) VideoModel {
	return VideoModel{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		CourseID:    v.CourseID,
		Duration:    v.Duration,
		Status:      string(v.Status),
		Views:       v.Views,
		SortOrder:   v.Order,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func videoFromModel(m VideoModel) domain.Video {
	return domain.Video{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CourseID:    m.CourseID,
		Duration:    m.Duration,
		Status:      domain.VideoStatus(m.Status),
		Views:       m.Views,
		Order:       m.SortOrder,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func studentToModel(st domain.Student) (StudentModel, error) {
	enrolled, err := json.Marshal(nonNilIDs(st.EnrolledCourses))
	if err != nil {
		return StudentModel{}, storageErr("encode", "students", err)
	}
	completed, err := json.Marshal(nonNilIDs(st.CompletedCourses))
	if err != nil {
		return StudentModel{}, storageErr("encode", "students", err)
	}
	return StudentModel{
		ID:               st.ID,
		Name:             st.Name,
		Email:            st.Email,
		EnrolledCourses:  datatypes.JSON(enrolled),
		CompletedCourses: datatypes.JSON(completed),
		TotalSpent:       st.TotalSpent,
		JoinedAt:         st.JoinedAt,
		LastActive:       st.LastActive,
	}, nil
}

func studentFromModel(m StudentModel) (domain.Student, error) {
	st := domain.Student{
		ID:               m.ID,
		Name:             m.Name,
		Email:            m.Email,
		EnrolledCourses:  []string{},
		CompletedCourses: []string{},
		TotalSpent:       m.TotalSpent,
		JoinedAt:         m.JoinedAt.UTC(),
		LastActive:       m.LastActive.UTC(),
	}
	if len(m.EnrolledCourses) > 0 {
		if err := json.Unmarshal(m.EnrolledCourses, &st.EnrolledCourses); err != nil {
			return domain.Student{}, storageErr("decode", "students", err)
		}
	}
	if len(m.CompletedCourses) > 0 {
		if err := json.Unmarshal(m.CompletedCourses, &st.CompletedCourses); err != nil {
			return domain.Student{}, storageErr("decode", "students", err)
		}
	}
	st.EnrolledCourses = nonNilIDs(st.EnrolledCourses)
	st.CompletedCourses = nonNilIDs(st.CompletedCourses)
	return st, nil
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func paymentToModel(p domain.Payment) PaymentModel {
	return PaymentModel{
		ID:            p.ID,
		StudentID:     p.StudentID,
		StudentName:   p.StudentName,
		StudentEmail:  p.StudentEmail,
		CourseID:      p.CourseID,
		CourseName:    p.CourseName,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
	}
}

func paymentFromModel(m PaymentModel) domain.Payment {
	return domain.Payment{
		ID:            m.ID,
		StudentID:     m.StudentID,
		StudentName:   m.StudentName,
		StudentEmail:  m.StudentEmail,
		CourseID:      m.CourseID,
		CourseName:    m.CourseName,
		Amount:        m.Amount,
		Currency:      m.Currency,
		Method:        domain.PaymentMethod(m.Method),
		Status:        domain.PaymentStatus(m.Status),
		TransactionID: m.TransactionID,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func settingsToModel(settings domain.Settings, now time.Time) (SettingsModel, error) {
	doc, err := json.Marshal(settings)
	if err != nil {
		return SettingsModel{}, storageErr("encode", "settings", err)
	}
	return SettingsModel{ID: settingsRowID, Document: datatypes.JSON(doc), UpdatedAt: now}, nil
}
