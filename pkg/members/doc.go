// Package members implements the organization membership workflows.
//
// A user who registers with an org code lands in that organization as
// pending. A super admin of the organization (or god) approves or rejects
// the request. Admins and above manage existing members: accounts they create
// follow rbac.CanCreateUser, role changes follow rbac.CanChangeRole,
// activation follows rbac.CanSetActive, organization moves follow
// rbac.CanMoveOrg, and deletion requires the actor to outrank the target. Every mutation and every refusal
// is written to the audit log.
package members
