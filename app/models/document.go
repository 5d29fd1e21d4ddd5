package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DocumentStatusUploaded = "uploaded"
	DocumentStatusVerified = "verified"
	DocumentStatusRejected = "rejected"
	DocumentStatusDeleted  = "deleted"
)

// DocumentTypeITRV marks the final ITR-V acknowledgement. It is uploaded by
// the CA, never downloadable by the CA, and released to the user only after
// the service fee has cleared.
const DocumentTypeITRV = "itr_v"

// Document is a file attached to a service request. Rows are soft-deleted by
// flipping Status to "deleted"; they are never removed physically.
type Document struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ServiceRequestID uint           `gorm:"not null;index" json:"service_request_id"`
	UploaderID       uint           `gorm:"not null" json:"uploader_id"`
	UploaderKind     string         `gorm:"type:varchar(10);not null" json:"uploader_kind"`
	FileName         string         `gorm:"type:varchar(255);not null" json:"file_name" validate:"required"`
	FileType         string         `gorm:"type:varchar(50);not null" json:"file_type"`
	ContentType      string         `gorm:"type:varchar(100)" json:"content_type"`
	SizeBytes        int64          `gorm:"default:0" json:"size_bytes"`
	StorageKey       string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	Status           string         `gorm:"type:varchar(20);not null;default:'uploaded'" json:"status"`
	DownloadCount    int            `gorm:"default:0" json:"download_count"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *Document) IsITRV() bool {
	return d.FileType == DocumentTypeITRV
}
