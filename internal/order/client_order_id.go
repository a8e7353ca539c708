package order

import (
	"strings"

	"github.com/google/uuid"
)

// MaxClientOrderIDLength is the longest client order ID the exchange accepts
const MaxClientOrderIDLength = 36

// Purpose tags a client order ID with the lifecycle step that placed it
type Purpose string

const (
	PurposeEntry Purpose = "E"
	PurposeExit  Purpose = "X"
)

// NewClientOrderID returns an ID of the form PT<purpose>-<32 hex chars>.
func NewClientOrderID(purpose Purpose) string {
	id := "PT" + string(purpose) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > MaxClientOrderIDLength {
		id = id[:MaxClientOrderIDLength]
	}
	return id
}

// PurposeOf extracts the purpose tag from an ID created by NewClientOrderID.
func PurposeOf(clientOrderID string) (Purpose, bool) {
	if len(clientOrderID) < 4 || !strings.HasPrefix(clientOrderID, "PT") || clientOrderID[3] != '-' {
		return "", false
	}
	switch p := Purpose(clientOrderID[2:3]); p {
	case PurposeEntry, PurposeExit:
		return p, true
	}
	return "", false
}
