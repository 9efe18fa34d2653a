package store

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"elearnhub/pkg/domain"
)

type BlobStoreOptions struct {
	Now   func() time.Time
	NewID func() string
}

type BlobStoreOption func(*BlobStoreOptions)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) BlobStoreOption {
	return func(opts *BlobStoreOptions) {
		opts.Now = now
	}
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(newID func() string) BlobStoreOption {
	return func(opts *BlobStoreOptions) {
		opts.NewID = newID
	}
}

// BlobStore implements Store with one JSON array per entity kind. Every
// mutation reads the whole collection, changes it and writes it back.
// The mutex serialises that cycle within one process only; two processes
// sharing a backend still overwrite each other.
type BlobStore struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
	newID   func() string
}

// NewBlobStore wraps a backend. Missing keys read as the default dataset.
func NewBlobStore(backend Backend, options ...BlobStoreOption) *BlobStore {
	opts := BlobStoreOptions{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: NewID,
	}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	return &BlobStore{backend: backend, now: opts.Now, newID: opts.NewID}
}

func loadBlob[T any](backend Backend, key string, seed func() T) (T, error) {
	var out T
	raw, ok, err := backend.Get(key)
	if err != nil {
		return out, storageErr("read", key, err)
	}
	if !ok {
		return seed(), nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, storageErr("decode", key, err)
	}
	return out, nil
}

func saveBlob[T any](backend Backend, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return storageErr("encode", key, err)
	}
	if err := backend.Put(key, raw); err != nil {
		return storageErr("write", key, err)
	}
	return nil
}

// saveBlobs writes several kinds together. Backends without batch support
// get the blobs one by one in the given order, so callers list the blob
// whose loss is harmless first.
func saveBlobs(backend Backend, blobs ...Blob) error {
	if batch, ok := backend.(BatchBackend); ok {
		if err := batch.PutAll(blobs); err != nil {
			return storageErr("write", blobKeys(blobs), err)
		}
		return nil
	}
	for _, blob := range blobs {
		if err := backend.Put(blob.Key, blob.Value); err != nil {
			return storageErr("write", blob.Key, err)
		}
	}
	return nil
}

func blobKeys(blobs []Blob) string {
	keys := make([]string, len(blobs))
	for i, blob := range blobs {
		keys[i] = blob.Key
	}
	return strings.Join(keys, ",")
}

func encodeBlob[T any](key string, v T) (Blob, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Blob{}, storageErr("encode", key, err)
	}
	return Blob{Key: key, Value: raw}, nil
}

func stripVideos(courses []domain.Course) []domain.Course {
	stripped := make([]domain.Course, len(courses))
	for i, c := range courses {
		c.Videos = nil
		stripped[i] = c
	}
	return stripped
}

func (s *BlobStore) courses() ([]domain.Course, error) {
	return loadBlob(s.backend, KeyCourses, DefaultCourses)
}

func (s *BlobStore) saveCourses(courses []domain.Course) error {
	return saveBlob(s.backend, KeyCourses, stripVideos(courses))
}

func (s *BlobStore) videos() ([]domain.Video, error) {
	return loadBlob(s.backend, KeyVideos, DefaultVideos)
}

func (s *BlobStore) students() ([]domain.Student, error) {
	return loadBlob(s.backend, KeyStudents, DefaultStudents)
}

func (s *BlobStore) payments() ([]domain.Payment, error) {
	return loadBlob(s.backend, KeyPayments, DefaultPayments)
}

// attachVideos sets Course.Videos from the video collection, ordered by Order.
func attachVideos(courses []domain.Course, videos []domain.Video) {
	byCourse := make(map[string][]domain.Video)
	for _, v := range videos {
		byCourse[v.CourseID] = append(byCourse[v.CourseID], v)
	}
	for i := range courses {
		vs := byCourse[courses[i].ID]
		sortVideos(vs)
		courses[i].Videos = vs
	}
}

func sortVideos(videos []domain.Video) {
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].Order < videos[j].Order
	})
}

func (s *BlobStore) ListCourses() ([]domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses, err := s.courses()
	if err != nil {
		return nil, err
	}
	videos, err := s.videos()
	if err != nil {
		return nil, err
	}
	attachVideos(courses, videos)
	return courses, nil
}

func (s *BlobStore) GetCourse(id string) (domain.Course, bool, error) {
	courses, err := s.ListCourses()
	if err != nil {
		return domain.Course{}, false, err
	}
	for _, c := range courses {
		if c.ID == id {
			return c, true, nil
		}
	}
	return domain.Course{}, false, nil
}

func (s *BlobStore) AddCourse(in domain.NewCourse) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses, err := s.courses()
	if err != nil {
		return domain.Course{}, err
	}
	c := in.Build(s.newID(), s.now())
	if err := s.saveCourses(append(courses, c)); err != nil {
		return domain.Course{}, err
	}
	return c, nil
}

func (s *BlobStore) UpdateCourse(id string, patch domain.CoursePatch) (domain.Course, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses, err := s.courses()
	if err != nil {
		return domain.Course{}, false, err
	}
	for i := range courses {
		if courses[i].ID != id {
			continue
		}
		patch.Apply(&courses[i], s.now())
		if err := s.saveCourses(courses); err != nil {
			return domain.Course{}, false, err
		}
		videos, err := s.videos()
		if err != nil {
			return domain.Course{}, false, err
		}
		out := []domain.Course{courses[i]}
		attachVideos(out, videos)
		return out[0], true, nil
	}
	return domain.Course{}, false, nil
}

// DeleteCourse removes the course and every video that belongs to it.
// Videos are written before courses: a failed second write leaves a
// course without videos, never videos without a course.
func (s *BlobStore) DeleteCourse(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses, err := s.courses()
	if err != nil {
		return false, err
	}
	kept := courses[:0]
	found := false
	for _, c := range courses {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return false, nil
	}
	videos, err := s.videos()
	if err != nil {
		return false, err
	}
	keptVideos := make([]domain.Video, 0, len(videos))
	for _, v := range videos {
		if v.CourseID != id {
			keptVideos = append(keptVideos, v)
		}
	}
	videoBlob, err := encodeBlob(KeyVideos, keptVideos)
	if err != nil {
		return false, err
	}
	courseBlob, err := encodeBlob(KeyCourses, stripVideos(kept))
	if err != nil {
		return false, err
	}
	if err := saveBlobs(s.backend, videoBlob, courseBlob); err != nil {
		return false, err
	}
	return true, nil
}

func (s *BlobStore) SearchCourses(filter domain.CourseFilter) ([]domain.Course, error) {
	courses, err := s.ListCourses()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		if filter.Match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *BlobStore) ListVideos() ([]domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos()
}

// ListVideosByCourse returns the course's videos ordered by Order.
func (s *BlobStore) ListVideosByCourse(courseID string) ([]domain.Video, error) {
	videos, err := s.ListVideos()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Video, 0)
	for _, v := range videos {
		if v.CourseID == courseID {
			out = append(out, v)
		}
	}
	sortVideos(out)
	return out, nil
}

func (s *BlobStore) GetVideo(id string) (domain.Video, bool, error) {
	videos, err := s.ListVideos()
	if err != nil {
		return domain.Video{}, false, err
	}
	for _, v := range videos {
		if v.ID == id {
			return v, true, nil
		}
	}
	return domain.Video{}, false, nil
}

func (s *BlobStore) AddVideo(in domain.NewVideo) (domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	videos, err := s.videos()
	if err != nil {
		return domain.Video{}, err
	}
	v := in.Build(s.newID(), s.now())
	if err := saveBlob(s.backend, KeyVideos, append(videos, v)); err != nil {
		return domain.Video{}, err
	}
	return v, nil
}

func (s *BlobStore) UpdateVideo(id string, patch domain.VideoPatch) (domain.Video, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	videos, err := s.videos()
	if err != nil {
		return domain.Video{}, false, err
	}
	for i := range videos {
		if videos[i].ID != id {
			continue
		}
		patch.Apply(&videos[i], s.now())
		if err := saveBlob(s.backend, KeyVideos, videos); err != nil {
			return domain.Video{}, false, err
		}
		return videos[i], true, nil
	}
	return domain.Video{}, false, nil
}

func (s *BlobStore) DeleteVideo(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	videos, err := s.videos()
	if err != nil {
		return false, err
	}
	for i := range videos {
		if videos[i].ID == id {
			videos = append(videos[:i], videos[i+1:]...)
			return true, saveBlob(s.backend, KeyVideos, videos)
		}
	}
	return false, nil
}

func (s *BlobStore) ListStudents() ([]domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.students()
}

func (s *BlobStore) GetStudent(id string) (domain.Student, bool, error) {
	return s.findStudent(func(st domain.Student) bool { return st.ID == id })
}

// GetStudentByEmail matches case-insensitively on the trimmed address.
func (s *BlobStore) GetStudentByEmail(email string) (domain.Student, bool, error) {
	email = strings.TrimSpace(email)
	return s.findStudent(func(st domain.Student) bool { return strings.EqualFold(st.Email, email) })
}

func (s *BlobStore) findStudent(match func(domain.Student) bool) (domain.Student, bool, error) {
	students, err := s.ListStudents()
	if err != nil {
		return domain.Student{}, false, err
	}
	for _, st := range students {
		if match(st) {
			return st, true, nil
		}
	}
	return domain.Student{}, false, nil
}

func (s *BlobStore) AddStudent(in domain.NewStudent) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.students()
	if err != nil {
		return domain.Student{}, err
	}
	st := in.Build(s.newID(), s.now())
	if err := saveBlob(s.backend, KeyStudents, append(students, st)); err != nil {
		return domain.Student{}, err
	}
	return st, nil
}

func (s *BlobStore) UpdateStudent(id string, patch domain.StudentPatch) (domain.Student, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.students()
	if err != nil {
		return domain.Student{}, false, err
	}
	for i := range students {
		if students[i].ID != id {
			continue
		}
		patch.Apply(&students[i], s.now())
		if err := saveBlob(s.backend, KeyStudents, students); err != nil {
			return domain.Student{}, false, err
		}
		return students[i], true, nil
	}
	return domain.Student{}, false, nil
}

func (s *BlobStore) DeleteStudent(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.students()
	if err != nil {
		return false, err
	}
	for i := range students {
		if students[i].ID == id {
			students = append(students[:i], students[i+1:]...)
			return true, saveBlob(s.backend, KeyStudents, students)
		}
	}
	return false, nil
}

func (s *BlobStore) ListPayments() ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments()
}

func (s *BlobStore) ListPaymentsByStudent(studentID string) ([]domain.Payment, error) {
	payments, err := s.ListPayments()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0)
	for _, p := range payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *BlobStore) GetPayment(id string) (domain.Payment, bool, error) {
	return s.findPayment(func(p domain.Payment) bool { return p.ID == id })
}

func (s *BlobStore) GetPaymentByTransaction(transactionID string) (domain.Payment, bool, error) {
	if transactionID == "" {
		return domain.Payment{}, false, nil
	}
	return s.findPayment(func(p domain.Payment) bool { return p.TransactionID == transactionID })
}

func (s *BlobStore) findPayment(match func(domain.Payment) bool) (domain.Payment, bool, error) {
	payments, err := s.ListPayments()
	if err != nil {
		return domain.Payment{}, false, err
	}
	for _, p := range payments {
		if match(p) {
			return p, true, nil
		}
	}
	return domain.Payment{}, false, nil
}

func (s *BlobStore) AddPayment(in domain.NewPayment) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments, err := s.payments()
	if err != nil {
		return domain.Payment{}, err
	}
	p := in.Build(s.newID(), s.now())
	if err := saveBlob(s.backend, KeyPayments, append(payments, p)); err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

func (s *BlobStore) UpdatePayment(id string, patch domain.PaymentPatch) (domain.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments, err := s.payments()
	if err != nil {
		return domain.Payment{}, false, err
	}
	for i := range payments {
		if payments[i].ID != id {
			continue
		}
		patch.Apply(&payments[i])
		if err := saveBlob(s.backend, KeyPayments, payments); err != nil {
			return domain.Payment{}, false, err
		}
		return payments[i], true, nil
	}
	return domain.Payment{}, false, nil
}

func (s *BlobStore) DeletePayment(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments, err := s.payments()
	if err != nil {
		return false, err
	}
	for i := range payments {
		if payments[i].ID == id {
			payments = append(payments[:i], payments[i+1:]...)
			return true, saveBlob(s.backend, KeyPayments, payments)
		}
	}
	return false, nil
}

func (s *BlobStore) GetSettings() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadBlob(s.backend, KeySettings, DefaultSettings)
}

// SaveSettings replaces the whole settings document.
func (s *BlobStore) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := saveBlob(s.backend, KeySettings, settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func (s *BlobStore) Analytics() (domain.Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses, err := s.courses()
	if err != nil {
		return domain.Analytics{}, err
	}
	videos, err := s.videos()
	if err != nil {
		return domain.Analytics{}, err
	}
	students, err := s.students()
	if err != nil {
		return domain.Analytics{}, err
	}
	payments, err := s.payments()
	if err != nil {
		return domain.Analytics{}, err
	}
	return BuildAnalytics(courses, videos, students, payments), nil
}
