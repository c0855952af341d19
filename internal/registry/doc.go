// Package registry publishes a saved dataset directory to a remote dataset
// registry.
//
// Two backends exist: the Hugging Face Hub, spoken to over its HTTP API with
// large files routed through Git LFS, and Google Drive, which mirrors the
// directory tree into a folder using a service account. Both are selected from
// configuration through New and share the Publisher interface.
package registry
