package lifecycle

import (
	"sort"
	"sync"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// fakeRequestRepo applies guarded transitions with the same semantics as the
// SQL implementation: the update only lands when the status guard matches.
type fakeRequestRepo struct {
	mu          sync.Mutex
	nextID      uint
	requests    map[uint]*models.ServiceRequest
	transitions []models.RequestTransition
}

func newFakeRequestRepo(requests ...*models.ServiceRequest) *fakeRequestRepo {
	r := &fakeRequestRepo{nextID: 100, requests: make(map[uint]*models.ServiceRequest)}
	for _, req := range requests {
		cp := *req
		r.requests[req.ID] = &cp
	}
	return r
}

func (r *fakeRequestRepo) Create(req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = r.nextID
	r.nextID++
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) GetByID(id uint) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRequestRepo) Update(req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) Transition(id uint, fromStatus string, updates map[string]interface{}, entry *models.RequestTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != fromStatus {
		return false, nil
	}
	for col, val := range updates {
		switch col {
		case "status":
			req.Status = val.(string)
		case "stage":
			req.Stage = val.(string)
		case "cancellation_reason":
			req.CancellationReason = val.(string)
		case "ca_id":
			if val == nil {
				req.CAID = nil
			} else {
				caID := val.(uint)
				req.CAID = &caID
			}
		case "scheduled_at":
			if val == nil {
				req.ScheduledAt = nil
			} else {
				req.ScheduledAt = val.(*time.Time)
			}
		case "estimated_amount":
			req.EstimatedAmount = val.(float64)
		case "completed_at":
			req.CompletedAt = val.(*time.Time)
		case "escalated_at":
			req.EscalatedAt = val.(*time.Time)
		}
	}
	if entry != nil {
		r.transitions = append(r.transitions, *entry)
	}
	return true, nil
}

func (r *fakeRequestRepo) ListByUser(userID uint, offset, limit int) ([]models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceRequest
	for _, req := range r.requests {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRequestRepo) ListByCA(caID uint, offset, limit int) ([]models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ServiceRequest
	for _, req := range r.requests {
		if req.IsAssignedCA(caID) {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRequestRepo) ListTransitions(requestID uint) ([]models.RequestTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RequestTransition
	for _, t := range r.transitions {
		if t.ServiceRequestID == requestID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeAccountantRepo struct {
	mu       sync.Mutex
	profiles map[uint]*models.CharteredAccountant
}

func newFakeAccountantRepo(profiles ...*models.CharteredAccountant) *fakeAccountantRepo {
	r := &fakeAccountantRepo{profiles: make(map[uint]*models.CharteredAccountant)}
	for _, ca := range profiles {
		cp := *ca
		r.profiles[ca.ID] = &cp
	}
	return r
}

func (r *fakeAccountantRepo) Create(ca *models.CharteredAccountant) error { return nil }

func (r *fakeAccountantRepo) GetByID(id uint) (*models.CharteredAccountant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ca, ok := r.profiles[id]; ok {
		cp := *ca
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountantRepo) GetByUserID(userID uint) (*models.CharteredAccountant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ca := range r.profiles {
		if ca.UserID == userID {
			cp := *ca
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountantRepo) Update(ca *models.CharteredAccountant) error { return nil }

func (r *fakeAccountantRepo) IncrementCompletedFilings(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ca, ok := r.profiles[id]; ok {
		ca.CompletedFilings++
	}
	return nil
}

func (r *fakeAccountantRepo) completedFilings(id uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ca, ok := r.profiles[id]; ok {
		return ca.CompletedFilings
	}
	return 0
}
