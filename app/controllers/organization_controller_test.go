package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gastrolink/gastrolink/app/models"
)

func TestApplyOrganizationUpdatePartial(t *testing.T) {
	org := &models.Organization{
		Name:           "Trattoria Nord GmbH",
		Description:    "Regional Italian kitchen",
		RegistryNumber: "HRB 12345",
		City:           "Hamburg",
		Website:        "https://trattoria-nord.example",
	}

	applyOrganizationUpdate(org, organizationUpdateRequest{
		City:    strPtr("Berlin"),
		Website: strPtr(""),
	})

	assert.Equal(t, "Berlin", org.City)
	assert.Empty(t, org.Website)

	// Omitted fields keep their stored values.
	assert.Equal(t, "Trattoria Nord GmbH", org.Name)
	assert.Equal(t, "Regional Italian kitchen", org.Description)
	assert.Equal(t, "HRB 12345", org.RegistryNumber)
}

func TestApplyOrganizationUpdateEmptyRequestIsNoOp(t *testing.T) {
	org := &models.Organization{
		Name:        "Trattoria Nord GmbH",
		Description: "Regional Italian kitchen",
		City:        "Hamburg",
	}
	before := *org

	applyOrganizationUpdate(org, organizationUpdateRequest{})

	assert.Equal(t, before, *org)
}
