package repository

import (
	"github.com/gastrolink/gastrolink/app/models"
	"gorm.io/gorm"
)

// organizationRepository implements the OrganizationRepository interface
type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository instance
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

func (r *organizationRepository) GetByID(id uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.First(&org, id).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) GetByUUID(uuid string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("uuid = ?", uuid).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByUUIDWithServices loads an organization together with its listings.
func (r *organizationRepository) GetByUUIDWithServices(uuid string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Preload("Services").Where("uuid = ?", uuid).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) Update(org *models.Organization) error {
	return r.db.Save(org).Error
}

func (r *organizationRepository) List(offset, limit int) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&orgs).Error
	return orgs, err
}

func (r *organizationRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Organization{}).Count(&count).Error
	return count, err
}
