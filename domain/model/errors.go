package model

import "errors"

// Error kinds surfaced to the RPC caller. Call sites wrap these with %w and a
// human-readable detail so errors.Is keeps working across layers.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrConflict         = errors.New("conflict")

	ErrTypeNotSupported             = errors.New("cluster type not supported")
	ErrTypeNotEnabled               = errors.New("cluster type not enabled")
	ErrRequiredParameterNotProvided = errors.New("required template parameter not provided")

	ErrAuthorizationFailure = errors.New("authorization failure")
	ErrTrustCreateFailed    = errors.New("failed to create trust")
	ErrTrustDeleteFailed    = errors.New("failed to delete trust")

	ErrCertificateStorage = errors.New("certificate storage failure")
	ErrInvalidCsr         = errors.New("invalid certificate signing request")

	ErrKubernetesAPI = errors.New("kubernetes api failure")
	ErrContainerAPI  = errors.New("container api failure")

	ErrOperationTimeout = errors.New("operation timed out")

	ErrInvalidClusterState       = errors.New("cluster state does not allow this operation")
	ErrClusterTemplateReferenced = errors.New("cluster template is referenced by clusters")
	ErrQuotaExceeded             = errors.New("project quota exceeded")

	// ErrDiscoveryURL is retryable: the discovery service could not hand out
	// a token and nothing has been persisted yet.
	ErrDiscoveryURL = errors.New("failed to obtain discovery url")
)
