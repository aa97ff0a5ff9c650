// Package license issues, loads and re-signs license documents.
//
// A Service ties the document model to the integrity, migration and expiry
// packages and to a codec for the on-disk format:
//
//	GenerateDefault -> ApplyOverrides -> Finalize -> bytes
//	bytes -> Load -> (ApplyOverrides -> Finalize)
//
// Load rejects licenses whose agents.total is below agents.desktop or
// agents.mobile. Expiry, signature and integrity findings are returned in the
// Report so that an expired license can be re-issued with a new hidden expiry
// and licenses from older generators, which may lack optional fields, still
// load. Validate and Finalize reject expired licenses.
//
// Only the integrity field is enforced by license consumers. The digest and
// signature fields are decoys; see package security.
package license
