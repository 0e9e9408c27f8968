package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

func TestPrincipalCanAccessCompany(t *testing.T) {
	cases := []struct {
		name      string
		principal domain.Principal
		companyID string
		allowed   bool
	}{
		{
			name:      "platform admin accesses any company",
			principal: domain.Principal{UserID: "admin", Role: domain.RolePlatformAdmin},
			companyID: "company-1",
			allowed:   true,
		},
		{
			name:      "staff accesses own company",
			principal: domain.Principal{UserID: "staff", CompanyID: "company-1", Role: domain.RoleCompanyStaff},
			companyID: "company-1",
			allowed:   true,
		},
		{
			name:      "staff denied foreign company",
			principal: domain.Principal{UserID: "staff", CompanyID: "company-1", Role: domain.RoleCompanyStaff},
			companyID: "company-2",
			allowed:   false,
		},
		{
			name:      "company admin denied foreign company",
			principal: domain.Principal{UserID: "boss", CompanyID: "company-1", Role: domain.RoleCompanyAdmin},
			companyID: "company-2",
			allowed:   false,
		},
		{
			name:      "empty company id never matches",
			principal: domain.Principal{UserID: "staff", Role: domain.RoleCompanyStaff},
			companyID: "",
			allowed:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.principal.CanAccessCompany(tc.companyID); got != tc.allowed {
				t.Fatalf("expected %v, got %v", tc.allowed, got)
			}
		})
	}
}
