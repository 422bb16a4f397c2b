// Package users stores docvault profiles and password credentials.
//
// A profile carries the role and organization the role authority evaluates,
// plus the approval status of the member's organization request. Members who
// registered with an organization code start as pending and cannot sign in
// until a super admin approves them.
package users
