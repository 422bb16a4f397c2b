// Package orgs manages docvault organizations.
//
// # Overview
//
// Every profile and document belongs to at most one organization and the
// role authority denies any access that crosses an organization boundary
// (god excepted). Organizations carry an org code that new members type at
// registration; joining through a code leaves the member pending until a
// super admin of that organization approves them.
//
// # Usage Example
//
//	org := &orgs.Organization{Name: "Acme Corp"}
//	if err := service.CreateOrganization(ctx, org); err != nil {
//		return err
//	}
//	fmt.Println(org.Slug, org.OrgCode) // acme-corp K7QM4TZP
//
// Codes typed by users go through NormalizeOrgCode, which trims, upper-cases
// and checks the 4-16 alphanumeric format.
//
// # Related Packages
//
//   - pkg/members: approval and role workflows for organization members
//   - pkg/rbac: organization boundary rule
package orgs
