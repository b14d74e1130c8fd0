package repository

import (
	"strings"

	"github.com/gastrolink/gastrolink/app/models"
	"gorm.io/gorm"
)

// serviceRepository implements the ServiceRepository interface
type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new service repository instance
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(service *models.Service) error {
	return r.db.Create(service).Error
}

func (r *serviceRepository) GetByID(id uint) (*models.Service, error) {
	var service models.Service
	err := r.db.First(&service, id).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) GetByUUID(uuid string) (*models.Service, error) {
	var service models.Service
	err := r.db.Where("uuid = ?", uuid).First(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) GetByOrganizationID(orgID uint) ([]models.Service, error) {
	var services []models.Service
	err := r.db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&services).Error
	return services, err
}

func (r *serviceRepository) Update(service *models.Service) error {
	return r.db.Save(service).Error
}

func (r *serviceRepository) Delete(id uint) error {
	return r.db.Delete(&models.Service{}, id).Error
}

// List returns listings matching the filter, newest first.
func (r *serviceRepository) List(filter ServiceFilter, offset, limit int) ([]models.Service, error) {
	query := r.db.Model(&models.Service{})
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where("FIND_IN_SET(?, tags) > 0", tag)
	}
	if mode := strings.ToLower(strings.TrimSpace(filter.DeliveryMode)); mode != "" {
		query = query.Where("delivery_mode = ?", mode)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price_min <= ?", filter.MaxPrice)
	}

	var services []models.Service
	err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&services).Error
	return services, err
}

func (r *serviceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Service{}).Count(&count).Error
	return count, err
}
