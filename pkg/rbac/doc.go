// Package rbac implements the docvault role hierarchy and permission matrix.
//
// # Overview
//
// Every principal holds exactly one of four roles, totally ordered by weight:
//
//	user        10
//	admin       50
//	super_admin 75
//	god         100
//
// Outranks is strict and IsAtLeast is reflexive. Both are pure functions of
// this table.
//
// # Permission Matrix
//
// HasPermission and Evaluate decide (role, action, resource, context) tuples.
// Rules fire in this order:
//
//  1. god_panel is never granted by the matrix, not even to god. The god
//     console is gated separately by CanAccessGodPanel.
//
//  2. god is granted every action on every other resource.
//
//  3. When both organization ids are known and differ, non-god roles are
//     denied before any resource rule runs.
//
//  4. Resource rules:
//
//     admin_panel, audit_log        admin+
//     system_settings               super_admin+
//     organization read             admin+
//     organization (other)          super_admin+
//     user read, create, delete     admin+
//     user update                   self, or admin+
//     user promote, demote          super_admin+
//     document read, create         any role
//     document update, delete       owner, or admin+
//     ai_agent read                 any role, otherwise admin+
//     ai_action read                any role, otherwise admin+
//     ai_key (any)                  owner, or super_admin+
//
//  5. Anything else is denied.
//
// Evaluate returns a Decision whose Rule and Reason come from the rule that
// fired. Denial is an ordinary result, not an error.
//
// # Workflow Checks
//
// CanDeleteDocument, CanChangeRole, CanSetActive and CanDecideMembership layer
// relative-rank rules on top of the matrix for the mutations that compare the
// actor against another user.
//
//	d := rbac.CanDeleteDocument(actor, rbac.DocumentFacts{
//		OwnerID:   doc.OwnerID,
//		OwnerRole: ownerRole,
//		OrgID:     doc.OrgID,
//		IsPublic:  doc.IsPublic,
//	})
//	if !d.Allowed {
//		return &ForbiddenError{Reason: d.Reason}
//	}
//
// The package performs no I/O and holds no mutable state.
package rbac
