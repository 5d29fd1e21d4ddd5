package notification

import (
	"encoding/json"
	"log"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

// Notifier is the delivery port the lifecycle and ledger call at each
// transition. Delivery is best-effort: a failed notification must never roll
// back the transition that triggered it.
type Notifier interface {
	Notify(recipientID uint, recipientKind usercontext.PrincipalKind, kind, content string, referenceID uint, payload map[string]interface{})
}

// Dispatcher persists in-app notifications. Transport fan-out (push, email)
// is a separate consumer of the notifications table.
type Dispatcher struct {
	repo repository.NotificationRepository
}

func NewDispatcher(repo repository.NotificationRepository) *Dispatcher {
	return &Dispatcher{repo: repo}
}

func (d *Dispatcher) Notify(recipientID uint, recipientKind usercontext.PrincipalKind, kind, content string, referenceID uint, payload map[string]interface{}) {
	payloadJSON := ""
	if len(payload) > 0 {
		if raw, err := json.Marshal(payload); err == nil {
			payloadJSON = string(raw)
		} else {
			log.Printf("notification payload marshal failed for %s: %v", kind, err)
		}
	}

	n := &models.Notification{
		RecipientID:   recipientID,
		RecipientKind: string(recipientKind),
		Kind:          kind,
		Content:       content,
		PayloadJSON:   payloadJSON,
		ReferenceID:   referenceID,
	}
	if err := d.repo.Create(n); err != nil {
		log.Printf("failed to store %s notification for %s %d: %v", kind, recipientKind, recipientID, err)
	}
}
