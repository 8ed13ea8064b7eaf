package services

import (
	"encoding/json"
	"math"

	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestMeta carries optional request context recorded alongside an audit
// entry. Nil when the action was triggered by a webhook or background job.
type RequestMeta struct {
	UserAgent string
	IP        string
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one audit entry. Entries are never updated afterwards.
func (a *AuditService) Record(shopID uuid.UUID, action, resourceType, resourceID string, detail map[string]interface{}, meta *RequestMeta) error {
	entry := models.AuditLog{
		ID:           uuid.New(),
		ShopID:       shopID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			entry.Detail = datatypes.JSON(b)
		}
	}
	if meta != nil {
		entry.UserAgent = meta.UserAgent
		entry.IP = meta.IP
	}
	return a.db.Create(&entry).Error
}

// List returns the shop's audit trail, newest first.
func (a *AuditService) List(shopID uuid.UUID, page, limit int) (*dto.AuditLogListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := a.db.Model(&models.AuditLog{}).Scopes(models.ForShop(shopID)).Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.AuditLog
	if err := a.db.Scopes(models.ForShop(shopID)).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}

	resp := &dto.AuditLogListResponse{
		Logs:       make([]dto.AuditLogResponse, 0, len(logs)),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
	for _, l := range logs {
		item := dto.AuditLogResponse{
			ID:           l.ID.String(),
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			CreatedAt:    l.CreatedAt,
		}
		if len(l.Detail) > 0 {
			var detail map[string]interface{}
			if err := json.Unmarshal(l.Detail, &detail); err == nil {
				item.Detail = detail
			}
		}
		resp.Logs = append(resp.Logs, item)
	}
	return resp, nil
}
