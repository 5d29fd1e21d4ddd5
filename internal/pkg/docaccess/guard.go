package docaccess

import (
	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

// Decision carries the outcome of an access check plus the reason for a
// denial, which is logged with the caller id for audit.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// LedgerView is the slice of the payment ledger the guard needs: whether a
// completed payment of a given type exists for a request. The check is
// re-evaluated on every call because payment state changes over the
// request's life.
type LedgerView interface {
	HasCompleted(requestID uint, paymentType string) (bool, error)
}

// CanAccess decides whether the principal may read a document on a request.
//
// Only the request's own user and its assigned CA are candidates (admins
// pass unconditionally). CAs see nothing until a completed booking fee
// payment funds the escrow. ITR-V documents are read-by-user-only and the
// user needs a completed service fee payment first. Soft-deleted documents
// are invisible to everyone.
func CanAccess(doc *models.Document, req *models.ServiceRequest, p usercontext.Principal, ledger LedgerView) (Decision, error) {
	if doc.Status == models.DocumentStatusDeleted {
		return deny("document deleted"), nil
	}
	if doc.ServiceRequestID != req.ID {
		return deny("document does not belong to request"), nil
	}

	if p.IsAdmin() {
		return allow(), nil
	}

	switch p.Kind {
	case usercontext.KindUser:
		if req.UserID != p.UserID {
			return deny("not a party to the request"), nil
		}
		if doc.IsITRV() {
			paid, err := ledger.HasCompleted(req.ID, models.PaymentTypeServiceFee)
			if err != nil {
				return Decision{}, err
			}
			if !paid {
				return deny("ITR-V locked until the service fee is paid"), nil
			}
		}
		return allow(), nil

	case usercontext.KindCA:
		if !req.IsAssignedCA(p.CAID) {
			return deny("not the assigned CA"), nil
		}
		if doc.IsITRV() {
			return deny("ITR-V is not downloadable by the CA"), nil
		}
		funded, err := ledger.HasCompleted(req.ID, models.PaymentTypeBookingFee)
		if err != nil {
			return Decision{}, err
		}
		if !funded {
			return deny("booking fee not yet paid"), nil
		}
		return allow(), nil
	}

	return deny("unknown principal"), nil
}

// CanUpload decides whether the principal may attach a new document to the
// request. Both parties may upload while the request is live; nothing can be
// attached to a terminal request except by the assigned CA delivering final
// paperwork on a completed one.
func CanUpload(req *models.ServiceRequest, p usercontext.Principal) Decision {
	if p.IsAdmin() {
		return allow()
	}

	isUser := p.Kind == usercontext.KindUser && req.UserID == p.UserID
	isCA := p.Kind == usercontext.KindCA && req.IsAssignedCA(p.CAID)
	if !isUser && !isCA {
		return deny("not a party to the request")
	}

	switch req.Status {
	case models.RequestStatusCancelled, models.RequestStatusRejected:
		return deny("request is closed")
	case models.RequestStatusCompleted:
		if isCA {
			return allow()
		}
		return deny("request is complete")
	}
	return allow()
}
