// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates a repository with the same name is already registered.
var ErrDuplicate = errors.New("duplicate repository")

// ErrCredentialNotFound indicates an unknown credential reference.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrCredentialWrite indicates key material could not be persisted or materialized.
var ErrCredentialWrite = errors.New("credential write failed")

// ErrSyncInProgress indicates a sync was requested for a repository that is
// already syncing. The next scheduled pass will pick the repository up again.
var ErrSyncInProgress = errors.New("sync already in progress")
