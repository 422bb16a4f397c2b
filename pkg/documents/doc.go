// Package documents deletes documents and the files behind them.
//
// Deletion follows rbac.CanDeleteDocument: owners may always delete, other
// actors must outrank the owner inside the same organization, and god may
// only remove other users' public documents. A document distributed to
// several organizations exists as copies sharing title and owner; deleting
// one also deletes every copy the actor could delete directly, and leaves
// the others in place. Stored files are removed through a storage.BlobStore
// after the rows are gone, skipping files a remaining copy still uses, and
// a failure there never fails the deletion.
package documents
