package repository

import (
	"github.com/gastrolink/gastrolink/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id uint) (*models.Organization, error)
	GetByUUID(uuid string) (*models.Organization, error)
	GetByUUIDWithServices(uuid string) (*models.Organization, error)
	Update(org *models.Organization) error
	List(offset, limit int) ([]models.Organization, error)
	Count() (int64, error)
}

// ServiceRepository defines the interface for service listing operations
type ServiceRepository interface {
	Create(service *models.Service) error
	GetByID(id uint) (*models.Service, error)
	GetByUUID(uuid string) (*models.Service, error)
	GetByOrganizationID(orgID uint) ([]models.Service, error)
	Update(service *models.Service) error
	Delete(id uint) error
	List(filter ServiceFilter, offset, limit int) ([]models.Service, error)
	Count() (int64, error)
}

// ServiceFilter narrows service listings. Zero values mean "no filter".
type ServiceFilter struct {
	Tag          string
	DeliveryMode string
	MaxPrice     int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Organization OrganizationRepository
	Service      ServiceRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Organization: NewOrganizationRepository(db),
		Service:      NewServiceRepository(db),
	}
}
