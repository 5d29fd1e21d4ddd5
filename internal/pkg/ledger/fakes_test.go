package ledger

import (
	"sort"
	"sync"

	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// memPaymentRepo is an in-memory PaymentRepository with the same slot and
// dedup semantics as the GORM implementation.
type memPaymentRepo struct {
	mu            sync.Mutex
	nextID        uint
	payments      map[uint]*models.Payment
	nextEventID   uint
	webhookEvents map[string]*models.GatewayWebhookEvent
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{
		nextID:        1,
		payments:      make(map[uint]*models.Payment),
		nextEventID:   1,
		webhookEvents: make(map[string]*models.GatewayWebhookEvent),
	}
}

func (r *memPaymentRepo) Create(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) CreateIfSlotFree(p *models.Payment) (bool, *models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.ServiceRequestID == p.ServiceRequestID && existing.Type == p.Type && existing.IsLive() {
			cp := *existing
			return false, &cp, nil
		}
	}
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.payments[p.ID] = &cp
	return true, p, nil
}

func (r *memPaymentRepo) GetByID(id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPaymentRepo) GetByGatewayOrderID(orderID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GatewayOrderID == orderID && orderID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPaymentRepo) FindLiveByRequestAndType(requestID uint, paymentType string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ServiceRequestID == requestID && p.Type == paymentType && p.IsLive() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPaymentRepo) HasCompleted(requestID uint, paymentType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ServiceRequestID == requestID && p.Type == paymentType && p.Status == models.PaymentStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPaymentRepo) Update(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, id)
	return nil
}

func (r *memPaymentRepo) ListByRequest(requestID uint) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.ServiceRequestID == requestID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memPaymentRepo) CreateWebhookEventIfNotExists(event *models.GatewayWebhookEvent) (bool, *models.GatewayWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := r.webhookEvents[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	event.ID = r.nextEventID
	r.nextEventID++
	cp := *event
	r.webhookEvents[key] = &cp
	out := cp
	return true, &out, nil
}

func (r *memPaymentRepo) MarkWebhookProcessed(id uint, processingError string) error {
	return nil
}

func (r *memPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

// memRequestRepo holds ServiceRequest rows and applies guarded transitions
// the way the SQL implementation does.
type memRequestRepo struct {
	mu          sync.Mutex
	requests    map[uint]*models.ServiceRequest
	transitions []models.RequestTransition
}

func newMemRequestRepo(requests ...*models.ServiceRequest) *memRequestRepo {
	r := &memRequestRepo{requests: make(map[uint]*models.ServiceRequest)}
	for _, req := range requests {
		cp := *req
		r.requests[req.ID] = &cp
	}
	return r
}

func (r *memRequestRepo) Create(req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == 0 {
		req.ID = uint(len(r.requests) + 1)
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) GetByID(id uint) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRequestRepo) Update(req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) Transition(id uint, fromStatus string, updates map[string]interface{}, entry *models.RequestTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != fromStatus {
		return false, nil
	}
	applyRequestUpdates(req, updates)
	if entry != nil {
		r.transitions = append(r.transitions, *entry)
	}
	return true, nil
}

func applyRequestUpdates(req *models.ServiceRequest, updates map[string]interface{}) {
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
				id := val.(uint)
				req.CAID = &id
			}
		}
	}
}

func (r *memRequestRepo) ListByUser(userID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return nil, nil
}

func (r *memRequestRepo) ListByCA(caID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return nil, nil
}

func (r *memRequestRepo) ListTransitions(requestID uint) ([]models.RequestTransition, error) {
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

func (r *memRequestRepo) setStatus(id uint, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok {
		req.Status = status
	}
}

// memAccountantRepo serves CA profiles from a fixed map.
type memAccountantRepo struct {
	mu       sync.Mutex
	profiles map[uint]*models.CharteredAccountant
}

func newMemAccountantRepo(profiles ...*models.CharteredAccountant) *memAccountantRepo {
	r := &memAccountantRepo{profiles: make(map[uint]*models.CharteredAccountant)}
	for _, ca := range profiles {
		cp := *ca
		r.profiles[ca.ID] = &cp
	}
	return r
}

func (r *memAccountantRepo) Create(ca *models.CharteredAccountant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ca
	r.profiles[ca.ID] = &cp
	return nil
}

func (r *memAccountantRepo) GetByID(id uint) (*models.CharteredAccountant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ca, ok := r.profiles[id]; ok {
		cp := *ca
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memAccountantRepo) GetByUserID(userID uint) (*models.CharteredAccountant, error) {
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

func (r *memAccountantRepo) Update(ca *models.CharteredAccountant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ca
	r.profiles[ca.ID] = &cp
	return nil
}

func (r *memAccountantRepo) IncrementCompletedFilings(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ca, ok := r.profiles[id]; ok {
		ca.CompletedFilings++
	}
	return nil
}
