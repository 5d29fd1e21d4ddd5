package apiv1

import (
	"sort"
	"sync"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// fakePaymentRepo is the minimal in-memory PaymentRepository the handler
// tests need: payment rows plus the webhook event store with its processing
// outcome. failNextUpdate injects one transient store failure.
type fakePaymentRepo struct {
	mu             sync.Mutex
	nextID         uint
	payments       map[uint]*models.Payment
	nextEventID    uint
	events         map[string]*models.GatewayWebhookEvent
	failNextUpdate error
}

func newFakePaymentRepo(payments ...*models.Payment) *fakePaymentRepo {
	r := &fakePaymentRepo{
		nextID:      1,
		payments:    make(map[uint]*models.Payment),
		nextEventID: 1,
		events:      make(map[string]*models.GatewayWebhookEvent),
	}
	for _, p := range payments {
		if p.ID == 0 {
			p.ID = r.nextID
		}
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
		cp := *p
		r.payments[p.ID] = &cp
	}
	return r
}

func (r *fakePaymentRepo) Create(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) CreateIfSlotFree(p *models.Payment) (bool, *models.Payment, error) {
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

func (r *fakePaymentRepo) GetByID(id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) GetByGatewayOrderID(orderID string) (*models.Payment, error) {
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

func (r *fakePaymentRepo) FindLiveByRequestAndType(requestID uint, paymentType string) (*models.Payment, error) {
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

func (r *fakePaymentRepo) HasCompleted(requestID uint, paymentType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ServiceRequestID == requestID && p.Type == paymentType && p.Status == models.PaymentStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) Update(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNextUpdate; err != nil {
		r.failNextUpdate = nil
		return err
	}
	if _, ok := r.payments[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, id)
	return nil
}

func (r *fakePaymentRepo) ListByRequest(requestID uint) ([]models.Payment, error) {
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

func (r *fakePaymentRepo) CreateWebhookEventIfNotExists(event *models.GatewayWebhookEvent) (bool, *models.GatewayWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := r.events[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	event.ID = r.nextEventID
	r.nextEventID++
	cp := *event
	r.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (r *fakePaymentRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeRequestRepo serves ServiceRequest rows from a fixed map; the handler
// tests never transition them.
type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uint]*models.ServiceRequest
}

func newFakeRequestRepo(requests ...*models.ServiceRequest) *fakeRequestRepo {
	r := &fakeRequestRepo{requests: make(map[uint]*models.ServiceRequest)}
	for _, req := range requests {
		cp := *req
		r.requests[req.ID] = &cp
	}
	return r
}

func (r *fakeRequestRepo) Create(req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == 0 {
		req.ID = uint(len(r.requests) + 1)
	}
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
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) Transition(id uint, fromStatus string, updates map[string]interface{}, entry *models.RequestTransition) (bool, error) {
	return false, nil
}

func (r *fakeRequestRepo) ListByUser(userID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return nil, nil
}

func (r *fakeRequestRepo) ListByCA(caID uint, offset, limit int) ([]models.ServiceRequest, error) {
	return nil, nil
}

func (r *fakeRequestRepo) ListTransitions(requestID uint) ([]models.RequestTransition, error) {
	return nil, nil
}

// fakeDocumentRepo serves Document rows from a fixed map.
type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[uint]*models.Document
}

func newFakeDocumentRepo(docs ...*models.Document) *fakeDocumentRepo {
	r := &fakeDocumentRepo{docs: make(map[uint]*models.Document)}
	for _, d := range docs {
		cp := *d
		r.docs[d.ID] = &cp
	}
	return r
}

func (r *fakeDocumentRepo) Create(d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == 0 {
		d.ID = uint(len(r.docs) + 1)
	}
	cp := *d
	r.docs[d.ID] = &cp
	return nil
}

func (r *fakeDocumentRepo) GetByID(id uint) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDocumentRepo) ListByRequest(requestID uint) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for _, d := range r.docs {
		if d.ServiceRequestID == requestID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDocumentRepo) Update(d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.docs[d.ID] = &cp
	return nil
}

func (r *fakeDocumentRepo) IncrementDownloadCount(id uint) error {
	return nil
}
