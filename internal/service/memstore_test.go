package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/repository"
	"github.com/noah-isme/camp-school-api/pkg/jobs"
)

// memStore is an in-memory stand-in for the SQL repositories. Commit applies the same
// conditional writes as the SQL transaction under a single lock.
type memStore struct {
	mu         sync.Mutex
	seq        int
	users      map[string]*models.User
	classes    map[string]*models.ClassOffering
	selections map[string]*models.SelectedClass
	payments   map[string]*models.Payment
	audits     []models.AuditLog

	createPaymentErr error
	findClassErr     error
	commitErr        error
	markReviewErr    error
	listErr          error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]*models.User{},
		classes:    map[string]*models.ClassOffering{},
		selections: map[string]*models.SelectedClass{},
		payments:   map[string]*models.Payment{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addClass(c models.ClassOffering) *models.ClassOffering {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = m.nextID("class")
	}
	if c.Status == "" {
		c.Status = models.ClassStatusApproved
	}
	m.classes[c.ID] = &c
	return &c
}

func (m *memStore) addSelection(s models.SelectedClass) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = m.nextID("sel")
	}
	m.selections[s.ID] = &s
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = m.nextID("user")
	}
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) class(id string) models.ClassOffering {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.classes[id]
}

func (m *memStore) payment(id string) (models.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return models.Payment{}, false
	}
	return *p, true
}

func (m *memStore) paymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

func (m *memStore) selectionCount(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.selections {
		if strings.EqualFold(s.Email, email) {
			n++
		}
	}
	return n
}

type memUsers struct{ *memStore }

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r memUsers) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), r.listErr
}

func (r memUsers) CreateIfAbsent(_ context.Context, user *models.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return false, nil
		}
	}
	if user.ID == "" {
		user.ID = r.nextID("user")
	}
	cp := *user
	r.users[user.ID] = &cp
	return true, nil
}

func (r memUsers) UpdateRole(_ context.Context, id string, role models.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	return nil
}

func (r memUsers) ListInstructors(_ context.Context) ([]models.Instructor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Instructor
	for _, u := range r.users {
		if u.Role != models.RoleInstructor {
			continue
		}
		count := 0
		for _, c := range r.classes {
			if strings.EqualFold(c.InstructorEmail, u.Email) {
				count++
			}
		}
		out = append(out, models.Instructor{ID: u.ID, Email: u.Email, Name: u.Name, ClassCount: count})
	}
	return out, nil
}

func (r memUsers) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, *log)
	return nil
}

type memClasses struct{ *memStore }

func (r memClasses) List(_ context.Context, filter models.ClassFilter) ([]models.ClassOffering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.ClassOffering, 0)
	for _, c := range r.classes {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.InstructorEmail != "" && !strings.EqualFold(filter.InstructorEmail, c.InstructorEmail) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memClasses) FindByID(_ context.Context, id string) (*models.ClassOffering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findClassErr != nil {
		return nil, r.findClassErr
	}
	if c, ok := r.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r memClasses) FindByNameAndInstructor(_ context.Context, name, email string) ([]models.ClassOffering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findClassErr != nil {
		return nil, r.findClassErr
	}
	var out []models.ClassOffering
	for _, c := range r.classes {
		if c.ClassName == name && strings.EqualFold(c.InstructorEmail, email) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r memClasses) Create(_ context.Context, c *models.ClassOffering) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = r.nextID("class")
	}
	cp := *c
	r.classes[c.ID] = &cp
	return nil
}

func (r memClasses) Update(_ context.Context, c *models.ClassOffering) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.classes[c.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.ClassName, stored.Image, stored.Price = c.ClassName, c.Image, c.Price
	return nil
}

func (r memClasses) UpdateStatus(_ context.Context, id string, status models.ClassStatus, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.classes[id]
	if !ok {
		return sql.ErrNoRows
	}
	stored.Status, stored.Feedback = status, feedback
	return nil
}

type memSelections struct{ *memStore }

func (r memSelections) Create(_ context.Context, sel *models.SelectedClass) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.selections {
		if s.ClassID == sel.ClassID && strings.EqualFold(s.Email, sel.Email) {
			return repository.ErrDuplicate
		}
	}
	if sel.ID == "" {
		sel.ID = r.nextID("sel")
	}
	cp := *sel
	r.selections[sel.ID] = &cp
	return nil
}

func (r memSelections) FindByID(_ context.Context, id string) (*models.SelectedClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.selections[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r memSelections) ListByEmail(_ context.Context, email string) ([]models.SelectedClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SelectedClass, 0)
	for _, s := range r.selections {
		if strings.EqualFold(s.Email, email) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r memSelections) DeleteByID(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.selections[id]; !ok {
		return 0, nil
	}
	delete(r.selections, id)
	return 1, nil
}

type memPayments struct{ *memStore }

func (r memPayments) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createPaymentErr != nil {
		return r.createPaymentErr
	}
	if p.TransactionID != nil {
		for _, existing := range r.payments {
			if existing.TransactionID != nil && *existing.TransactionID == *p.TransactionID {
				return repository.ErrDuplicate
			}
		}
	}
	if p.ID == "" {
		p.ID = r.nextID("pay")
	}
	r.seq++
	p.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r memPayments) FindByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r memPayments) FindByTransactionID(_ context.Context, txID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.TransactionID != nil && *p.TransactionID == txID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memPayments) ListByEmail(_ context.Context, email string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Payment, 0)
	for _, p := range r.payments {
		if strings.EqualFold(p.Email, email) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memPayments) List(_ context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Payment
	for _, p := range r.payments {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(filter.Email, p.Email) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := (filter.Page - 1) * filter.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r memPayments) MarkNeedsReview(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markReviewErr != nil {
		return r.markReviewErr
	}
	p, ok := r.payments[id]
	if !ok || p.Status == models.PaymentStatusEnrolled {
		return repository.ErrAlreadyEnrolled
	}
	p.Status = models.PaymentStatusNeedsReview
	rr := reason
	p.ReviewReason = &rr
	return nil
}

func (r memPayments) ListForReconciliation(_ context.Context, staleBefore time.Time, limit int) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Payment, 0)
	for _, p := range r.payments {
		if p.Status == models.PaymentStatusNeedsReview || (p.Status == models.PaymentStatusPending && p.CreatedAt.Before(staleBefore)) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memEnrollments struct{ *memStore }

func (r memEnrollments) Commit(_ context.Context, in repository.EnrollmentCommit) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return 0, r.commitErr
	}
	p, ok := r.payments[in.PaymentID]
	if !ok || p.Status == models.PaymentStatusEnrolled {
		return 0, repository.ErrAlreadyEnrolled
	}
	c, ok := r.classes[in.ClassID]
	if !ok || c.AvailableSeat <= 0 {
		return 0, repository.ErrSeatUnavailable
	}
	c.AvailableSeat--
	c.Enrolled++
	p.Status = models.PaymentStatusEnrolled
	classID := in.ClassID
	p.ClassID = &classID
	p.ReviewReason = nil

	var removed int64
	for id, s := range r.selections {
		if !strings.EqualFold(s.Email, in.Email) {
			continue
		}
		if s.ClassID == in.ClassID || (s.ClassName == in.ClassName && strings.EqualFold(s.InstructorEmail, in.InstructorEmail)) {
			delete(r.selections, id)
			removed++
		}
	}
	return removed, nil
}

type recordedEvent struct {
	Type    string
	Key     string
	Payload EnrollmentEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, eventType, key string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, _ := payload.(EnrollmentEvent)
	f.events = append(f.events, recordedEvent{Type: eventType, Key: key, Payload: ev})
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

type fakeQueue struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeCatalog struct{ calls int }

func (f *fakeCatalog) InvalidateCatalog(context.Context) { f.calls++ }

func (m *memStore) addPayment(p models.Payment) *models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.nextID("pay")
	}
	if p.CreatedAt.IsZero() {
		m.seq++
		p.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	}
	m.payments[p.ID] = &p
	return &p
}
