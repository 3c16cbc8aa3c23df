package protection

import (
	"errors"
	"fmt"
)

// VaultError carries the SafetyVault contract error code
type VaultError struct {
	Code    uint32
	Message string
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("safety vault error #%d: %s", e.Code, e.Message)
}

var (
	ErrInsufficientBalance   = &VaultError{Code: 1, Message: "insufficient balance"}
	ErrPoolNotFound          = &VaultError{Code: 2, Message: "pool not found"}
	ErrInsuranceClaimFailed  = &VaultError{Code: 3, Message: "insurance claim failed"}
	ErrUnauthorized          = &VaultError{Code: 4, Message: "unauthorized"}
	ErrInvalidAction         = &VaultError{Code: 5, Message: "invalid action"}
	ErrActionExecutionFailed = &VaultError{Code: 6, Message: "action execution failed"}
	ErrNotAtRisk             = &VaultError{Code: 7, Message: "position is not at risk"}
)

// ErrReceiptNotFound is returned by stores for unknown receipt ids
var ErrReceiptNotFound = errors.New("receipt not found")

// ErrReceiptCorrupted is returned when a stored receipt fails its checksum
var ErrReceiptCorrupted = errors.New("receipt checksum verification failed")
